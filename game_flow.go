package main

import (
	"fmt"
	"sync"

	"werewolf-extreme/engine"
)

// roomLocks serializes every state-changing operation on a room. Readers go
// straight to the database.
var roomLocks sync.Map

func lockRoom(code string) func() {
	mu, _ := roomLocks.LoadOrStore(code, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// loadPublicView reads what a room's clients are shown.
func loadPublicView(code string) (Room, []engine.Player, []string, error) {
	room, err := getRoom(code)
	if err != nil {
		return room, nil, nil, err
	}
	players, err := getRoomPlayers(code)
	if err != nil {
		return room, nil, nil, fmt.Errorf("load players: %w", err)
	}
	lines, err := getRoomLog(code)
	if err != nil {
		return room, nil, nil, fmt.Errorf("load log: %w", err)
	}
	return room, players, lines, nil
}

func publicState(room Room, players []engine.Player, lines []string) PublicState {
	s := PublicState{
		RoomCode:  room.Code,
		HostID:    room.HostID,
		Phase:     room.Phase,
		Turn:      room.Turn,
		Players:   engine.PublicRoster(players, room.Phase),
		Log:       lines,
		Winner:    engine.Winner(room.Winner),
		WinReason: room.WinReason,
	}
	switch room.Phase {
	case engine.PhaseNight:
		s.Submitted = countSubmissions(room.Code, room.Turn, "night_action")
	case engine.PhaseVoting:
		s.Submitted = countSubmissions(room.Code, room.Turn, "day_vote")
	}
	return s
}

// privateState builds the role card for p. Wolves and the Minion learn who
// the wolves are.
func privateState(p engine.Player, players []engine.Player) PrivateState {
	role := engine.RoleFor(p.Role)
	s := PrivateState{
		PlayerID:      p.ID,
		Role:          role,
		IsAlive:       p.IsAlive,
		PrivateResult: p.PrivateResult,
		Attributes:    p.Attributes,
	}
	if role.Faction == engine.FactionWerewolf {
		for _, q := range players {
			if q.ID != p.ID && engine.IsWolf(q.Role) && engine.RoleFor(q.Role).Faction == engine.FactionWerewolf {
				s.Pack = append(s.Pack, q.Name)
			}
		}
	}
	for _, q := range players {
		if q.ID == p.Attributes.LoverID {
			s.Lover = q.Name
		}
	}
	return s
}

// broadcastRoomState sends the public state to the whole room and each
// connected player's role card to that player only.
func broadcastRoomState(code string) {
	room, players, lines, err := loadPublicView(code)
	if err != nil {
		logError("broadcastRoomState", err)
		return
	}

	DebugLog("broadcastRoomState", "Broadcasting room %s (phase: %s, turn %d)", code, room.Phase, room.Turn)
	state := publicState(room, players, lines)
	hub.sendToRoom(code, OutMessage{Type: msgState, State: &state})

	byID := make(map[string]engine.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, id := range hub.connectedPlayerIDs(code) {
		if p, ok := byID[id]; ok {
			priv := privateState(p, players)
			hub.sendToPlayer(code, id, OutMessage{Type: msgPrivate, Private: &priv})
		}
	}
}

// requireHost loads the room and fails unless the client is its host.
func requireHost(client *Client) (Room, error) {
	room, err := getRoom(client.roomCode)
	if err != nil {
		return room, err
	}
	if room.HostID != client.playerID {
		return room, errNotHost
	}
	return room, nil
}

// handleWSAdvancePhase moves the room one step through the game loop.
// NIGHT resolves the night, DAY opens the vote, VOTING resolves the vote.
func handleWSAdvancePhase(client *Client) {
	unlock := lockRoom(client.roomCode)
	err := advancePhase(client)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSAdvancePhase", err)
		return
	}
	broadcastRoomState(client.roomCode)
}

func advancePhase(client *Client) error {
	room, err := requireHost(client)
	if err != nil {
		return err
	}

	switch room.Phase {
	case engine.PhaseNight:
		return resolveNight(room.Code)
	case engine.PhaseDay:
		return openVoting(room.Code)
	case engine.PhaseVoting:
		return resolveVoting(room.Code)
	}
	return fmt.Errorf("advance from %s: %w", room.Phase, errWrongPhase)
}

// handleWSToggleLife is the host's manual override for a player's life. It
// sits outside the rules: no chain reactions, no win check.
func handleWSToggleLife(client *Client, msg WSMessage) {
	unlock := lockRoom(client.roomCode)
	err := toggleLife(client, msg)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSToggleLife", err)
		return
	}
	broadcastRoomState(client.roomCode)
}

func toggleLife(client *Client, msg WSMessage) error {
	room, err := requireHost(client)
	if err != nil {
		return err
	}
	if room.Phase == engine.PhaseLobby {
		return fmt.Errorf("toggle life in lobby: %w", errWrongPhase)
	}

	target, err := getRoomPlayer(room.Code, msg.TargetID)
	if err != nil {
		return fmt.Errorf("toggle life: %w", errInvalidTarget)
	}
	alive := !target.IsAlive
	if msg.IsAlive != nil {
		alive = *msg.IsAlive
	}
	target.IsAlive = alive
	if err := updatePlayer(db, room.Code, target); err != nil {
		return err
	}

	appLogger.Infof("Host toggled %s in room %s: alive=%v", target.Name, room.Code, alive)
	LogDBState("after toggle life")
	return nil
}

// handleWSNewGame resets a finished room to the lobby, keeping every seat.
func handleWSNewGame(client *Client) {
	unlock := lockRoom(client.roomCode)
	err := newGame(client)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSNewGame", err)
		return
	}
	broadcastRoomState(client.roomCode)
}

func newGame(client *Client) error {
	room, err := requireHost(client)
	if err != nil {
		return err
	}
	if room.Phase != engine.PhaseGameOver {
		return fmt.Errorf("new game while %s: %w", room.Phase, errWrongPhase)
	}
	if err := resetRoom(room.Code); err != nil {
		return err
	}

	appLogger.Infof("Room %s reset to lobby (previous winner: %s)", room.Code, room.Winner)
	LogDBState("after new game created")
	return nil
}

// endGame logs the final result once a resolution reports a winner.
func endGame(code string, s engine.GameState) {
	appLogger.Infow("Game finished", "room", code, "winner", s.Winner, "reason", s.WinReason, "turn", s.Turn)
	LogDBState("after game end")
}
