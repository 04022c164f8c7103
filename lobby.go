package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"werewolf-extreme/engine"
)

// Preset is a named starting role list. Missing seats are filled with
// Villagers when the game starts.
type Preset struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Roles []engine.RoleID `json:"roles"`
}

var presets = []Preset{
	{ID: "classic", Name: "Classic", Roles: []engine.RoleID{
		engine.RoleWerewolf, engine.RoleWerewolf, engine.RoleSeer, engine.RoleBodyguard,
	}},
	{ID: "phase2", Name: "Phase 2: Mystic", Roles: []engine.RoleID{
		engine.RoleWolfMan, engine.RoleDireWolf, engine.RoleWitch, engine.RoleSeer, engine.RoleApprenticeSeer,
	}},
	{ID: "chaos", Name: "Total Chaos", Roles: []engine.RoleID{
		engine.RoleWerewolf, engine.RoleSerialKiller, engine.RoleJester, engine.RoleTroublemaker, engine.RoleMedium,
	}},
	{ID: "hunter_game", Name: "Hunter & Prey", Roles: []engine.RoleID{
		engine.RoleWerewolf, engine.RoleWerewolf, engine.RoleHunter, engine.RolePriest, engine.RoleBodyguard,
	}},
}

// defaultPreset is used by start_game when the host names none.
var defaultPreset = "classic"

func findPreset(id string) (Preset, error) {
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q: %w", id, errUnknownPreset)
}

// dealRoles returns n shuffled roles from the preset, padded with Villagers
// when the preset is short and cut when it is long.
func dealRoles(p Preset, n int) []engine.RoleID {
	pool := make([]engine.RoleID, 0, max(n, len(p.Roles)))
	pool = append(pool, p.Roles...)
	for len(pool) < n {
		pool = append(pool, engine.RoleVillager)
	}
	shuffleRoles(pool)
	return pool[:n]
}

// shuffleRoles shuffles the role pool using crypto/rand
func shuffleRoles(roles []engine.RoleID) {
	for i := len(roles) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			// Fallback: just swap with previous element
			roles[i], roles[i-1] = roles[i-1], roles[i]
			continue
		}
		j := int(jBig.Int64())
		roles[i], roles[j] = roles[j], roles[i]
	}
}

// newRoomCode draws a six-digit code.
func newRoomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}

type joinResponse struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError("writeJSON", err)
	}
}

func writeError(w http.ResponseWriter, context string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errNameTaken):
		status = http.StatusConflict
	case errors.Is(err, errWrongPhase), errors.Is(err, errInvalidTarget):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logError(context, err)
	} else {
		DebugLog(context, "Rejected: %v", err)
	}
	http.Error(w, userMessage(err), status)
}

func playerName(r *http.Request) (string, error) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" || len(name) > 32 {
		return "", fmt.Errorf("name %q: %w", name, errInvalidTarget)
	}
	return name, nil
}

// handleCreateRoom opens a room with the caller as host.
func handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	name, err := playerName(r)
	if err != nil {
		writeError(w, "handleCreateRoom", err)
		return
	}

	host := engine.Player{ID: uuid.NewString(), Name: name, IsHost: true}
	var code string
	for attempt := 0; attempt < 5; attempt++ {
		if code, err = newRoomCode(); err != nil {
			break
		}
		if err = insertRoom(code, host); err == nil {
			break
		}
		DebugLog("handleCreateRoom", "Room code %s unavailable: %v", code, err)
	}
	if err != nil {
		writeError(w, "handleCreateRoom", err)
		return
	}

	s, err := createSession(code, host.ID)
	if err != nil {
		writeError(w, "handleCreateRoom", err)
		return
	}
	setSessionCookie(w, s)

	appLogger.Infof("Room %s created by '%s'", code, name)
	LogDBState("after room created: " + code)
	writeJSON(w, http.StatusCreated, joinResponse{RoomCode: code, PlayerID: host.ID, Token: s.Token})
}

// handleJoinRoom seats the caller in a room that is still in the lobby.
func handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	name, err := playerName(r)
	if err != nil {
		writeError(w, "handleJoinRoom", err)
		return
	}

	p := engine.Player{ID: uuid.NewString(), Name: name}
	unlock := lockRoom(code)
	err = func() error {
		room, err := getRoom(code)
		if err != nil {
			return err
		}
		if room.Phase != engine.PhaseLobby {
			return fmt.Errorf("join during %s: %w", room.Phase, errWrongPhase)
		}
		return addPlayerToRoom(code, p)
	}()
	unlock()
	if err != nil {
		writeError(w, "handleJoinRoom", err)
		return
	}

	s, err := createSession(code, p.ID)
	if err != nil {
		writeError(w, "handleJoinRoom", err)
		return
	}
	setSessionCookie(w, s)

	appLogger.Infof("Player '%s' joined room %s", name, code)
	LogDBState("after player join: " + name)
	broadcastRoomState(code)
	writeJSON(w, http.StatusOK, joinResponse{RoomCode: code, PlayerID: p.ID, Token: s.Token})
}

// handleGetRoom returns the public snapshot, the same one websocket clients
// receive.
func handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, players, lines, err := loadPublicView(r.PathValue("code"))
	if err != nil {
		writeError(w, "handleGetRoom", err)
		return
	}
	writeJSON(w, http.StatusOK, publicState(room, players, lines))
}

func handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presets)
}

func handleWSStartGame(client *Client, msg WSMessage) {
	unlock := lockRoom(client.roomCode)
	err := startGame(client, msg)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSStartGame", err)
		return
	}
	broadcastRoomState(client.roomCode)
}

// startGame deals roles and opens the first night.
func startGame(client *Client, msg WSMessage) error {
	room, err := requireHost(client)
	if err != nil {
		return err
	}
	if room.Phase != engine.PhaseLobby {
		return fmt.Errorf("start while %s: %w", room.Phase, errWrongPhase)
	}

	presetID := msg.Preset
	if presetID == "" {
		presetID = defaultPreset
	}
	preset, err := findPreset(presetID)
	if err != nil {
		return err
	}

	_, state, err := loadGameState(room.Code)
	if err != nil {
		return err
	}
	roles := dealRoles(preset, len(state.Players))
	for i := range state.Players {
		p := &state.Players[i]
		p.Role = roles[i]
		p.IsAlive = true
		p.HasUsedAbility = false
		p.Attributes = engine.Attributes{}
		p.Flags = engine.Flags{}
		p.PrivateResult = ""
		DebugLog("startGame", "Assigned %s to '%s'", p.Role, p.Name)
	}
	state.Phase = engine.PhaseNight
	state.Turn = 1
	state.ExecutionCount = 1
	state.Actions = nil
	state.Votes = nil

	if err := saveGameState(room.Code, state, []string{"Night falls. Roles have been assigned."}); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	if _, err := db.Exec("UPDATE room SET preset = ? WHERE code = ?", preset.ID, room.Code); err != nil {
		return fmt.Errorf("store preset: %w", err)
	}

	appLogger.Infof("Room %s started with preset %s and %d players", room.Code, preset.ID, len(state.Players))
	LogDBState("after game start")
	return nil
}
