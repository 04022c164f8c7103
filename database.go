package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"werewolf-extreme/engine"
)

// Room is one game table. The roster lives in room_player.
type Room struct {
	Code           string       `db:"code"`
	HostID         string       `db:"host_id"`
	Phase          engine.Phase `db:"phase"`
	Turn           int          `db:"turn"`
	ExecutionCount int          `db:"execution_count"`
	Winner         string       `db:"winner"`
	WinReason      string       `db:"win_reason"`
	WolvesDisabled bool         `db:"wolves_disabled"`
	WolfExtraKills int          `db:"wolf_extra_kills"`
	Preset         string       `db:"preset"`
}

type playerRow struct {
	PlayerID       string `db:"player_id"`
	Name           string `db:"name"`
	Role           string `db:"role"`
	IsAlive        bool   `db:"is_alive"`
	IsHost         bool   `db:"is_host"`
	HasUsedAbility bool   `db:"has_used_ability"`
	Attributes     string `db:"attributes"`
	Flags          string `db:"flags"`
	PrivateResult  string `db:"private_result"`
}

func (r playerRow) toPlayer() (engine.Player, error) {
	p := engine.Player{
		ID:             r.PlayerID,
		Name:           r.Name,
		Role:           engine.RoleID(r.Role),
		IsAlive:        r.IsAlive,
		IsHost:         r.IsHost,
		HasUsedAbility: r.HasUsedAbility,
		PrivateResult:  r.PrivateResult,
	}
	if err := json.Unmarshal([]byte(r.Attributes), &p.Attributes); err != nil {
		return p, fmt.Errorf("attributes of %s: %w", r.PlayerID, err)
	}
	if err := json.Unmarshal([]byte(r.Flags), &p.Flags); err != nil {
		return p, fmt.Errorf("flags of %s: %w", r.PlayerID, err)
	}
	return p, nil
}

type actionRow struct {
	ID                string `db:"id"`
	ActorID           string `db:"actor_id"`
	TargetID          string `db:"target_id"`
	SecondaryTargetID string `db:"secondary_target_id"`
	Kind              string `db:"kind"`
	Priority          int    `db:"priority"`
}

type voteRow struct {
	VoterID  string `db:"voter_id"`
	TargetID string `db:"target_id"`
}

// Log line kinds
const (
	LogEvent = "event"
	LogStory = "story"
)

func getRoom(code string) (Room, error) {
	var room Room
	err := db.Get(&room, `
		SELECT code, host_id, phase, turn, execution_count, winner, win_reason,
			wolves_disabled, wolf_extra_kills, preset
		FROM room WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return room, fmt.Errorf("room %s: %w", code, errRoomNotFound)
	}
	return room, err
}

const playerColumns = `player_id, name, role, is_alive, is_host, has_used_ability, attributes, flags, private_result`

func getRoomPlayers(code string) ([]engine.Player, error) {
	var rows []playerRow
	if err := db.Select(&rows, `SELECT `+playerColumns+` FROM room_player WHERE room_code = ? ORDER BY seat`, code); err != nil {
		return nil, err
	}
	players := make([]engine.Player, 0, len(rows))
	for _, r := range rows {
		p, err := r.toPlayer()
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func getRoomPlayer(code, playerID string) (engine.Player, error) {
	var row playerRow
	err := db.Get(&row, `SELECT `+playerColumns+` FROM room_player WHERE room_code = ? AND player_id = ?`, code, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Player{}, fmt.Errorf("player %s in room %s: %w", playerID, code, errPlayerNotInRoom)
	}
	if err != nil {
		return engine.Player{}, err
	}
	return row.toPlayer()
}

func getPlayerName(code, playerID string) string {
	var name string
	db.Get(&name, "SELECT name FROM room_player WHERE room_code = ? AND player_id = ?", code, playerID)
	return name
}

// getRoomLog returns every visible log line, narration included.
func getRoomLog(code string) ([]string, error) {
	var lines []string
	err := db.Select(&lines, `SELECT line FROM room_log WHERE room_code = ? AND line != '' ORDER BY rowid`, code)
	return lines, err
}

// loadGameState assembles the engine snapshot for a room: roster in seat
// order, this turn's pending actions and votes, and the event log.
func loadGameState(code string) (Room, engine.GameState, error) {
	room, err := getRoom(code)
	if err != nil {
		return room, engine.GameState{}, err
	}
	players, err := getRoomPlayers(code)
	if err != nil {
		return room, engine.GameState{}, fmt.Errorf("load players: %w", err)
	}

	var actions []actionRow
	if err := db.Select(&actions, `
		SELECT id, actor_id, target_id, secondary_target_id, kind, priority
		FROM night_action WHERE room_code = ? AND turn = ? ORDER BY rowid`, code, room.Turn); err != nil {
		return room, engine.GameState{}, fmt.Errorf("load actions: %w", err)
	}
	var votes []voteRow
	if err := db.Select(&votes, `SELECT voter_id, target_id FROM day_vote WHERE room_code = ? AND turn = ?`, code, room.Turn); err != nil {
		return room, engine.GameState{}, fmt.Errorf("load votes: %w", err)
	}
	var lines []string
	if err := db.Select(&lines, `SELECT line FROM room_log WHERE room_code = ? AND kind = ? ORDER BY rowid`, code, LogEvent); err != nil {
		return room, engine.GameState{}, fmt.Errorf("load log: %w", err)
	}

	state := engine.GameState{
		Phase:          room.Phase,
		Turn:           room.Turn,
		Players:        players,
		ExecutionCount: room.ExecutionCount,
		Log:            lines,
		Winner:         engine.Winner(room.Winner),
		WinReason:      room.WinReason,
		Effects: engine.GlobalEffects{
			WolvesDisabled: room.WolvesDisabled,
			WolfExtraKills: room.WolfExtraKills,
		},
	}
	for _, a := range actions {
		state.Actions = append(state.Actions, engine.NightAction{
			ID:                a.ID,
			ActorID:           a.ActorID,
			TargetID:          a.TargetID,
			SecondaryTargetID: a.SecondaryTargetID,
			Kind:              engine.ActionKind(a.Kind),
			Priority:          a.Priority,
		})
	}
	if len(votes) > 0 {
		state.Votes = make(map[string]string, len(votes))
		for _, v := range votes {
			state.Votes[v.VoterID] = v.TargetID
		}
	}
	return room, state, nil
}

// saveGameState writes a resolved snapshot back in one transaction so readers
// never see a half-applied roster. newLines are appended to the room log.
// Cleared actions or votes in s delete the pending rows.
func saveGameState(code string, s engine.GameState, newLines []string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE room SET phase = ?, turn = ?, execution_count = ?, winner = ?, win_reason = ?,
			wolves_disabled = ?, wolf_extra_kills = ?
		WHERE code = ?`,
		s.Phase, s.Turn, s.ExecutionCount, string(s.Winner), s.WinReason,
		s.Effects.WolvesDisabled, s.Effects.WolfExtraKills, code)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("room %s: %w", code, errRoomNotFound)
	}

	for _, p := range s.Players {
		if err := updatePlayer(tx, code, p); err != nil {
			return err
		}
	}

	if s.Actions == nil {
		if _, err := tx.Exec("DELETE FROM night_action WHERE room_code = ?", code); err != nil {
			return fmt.Errorf("clear actions: %w", err)
		}
	}
	if s.Votes == nil {
		if _, err := tx.Exec("DELETE FROM day_vote WHERE room_code = ?", code); err != nil {
			return fmt.Errorf("clear votes: %w", err)
		}
	}

	if err := appendRoomLog(tx, code, s.Turn, s.Phase, LogEvent, newLines...); err != nil {
		return err
	}
	return tx.Commit()
}

func updatePlayer(ex sqlx.Execer, code string, p engine.Player) error {
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	flags, err := json.Marshal(p.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	_, err = ex.Exec(`
		UPDATE room_player SET role = ?, is_alive = ?, has_used_ability = ?,
			attributes = ?, flags = ?, private_result = ?
		WHERE room_code = ? AND player_id = ?`,
		string(p.Role), p.IsAlive, p.HasUsedAbility, string(attrs), string(flags), p.PrivateResult,
		code, p.ID)
	if err != nil {
		return fmt.Errorf("update player %s: %w", p.ID, err)
	}
	return nil
}

func appendRoomLog(ex sqlx.Execer, code string, turn int, phase engine.Phase, kind string, lines ...string) error {
	for _, line := range lines {
		if _, err := ex.Exec(`INSERT INTO room_log (room_code, turn, phase, kind, line) VALUES (?, ?, ?, ?, ?)`,
			code, turn, phase, kind, line); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
	}
	return nil
}

// insertRoom creates the room row and seats the host.
func insertRoom(code string, host engine.Player) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO room (code, host_id, phase) VALUES (?, ?, ?)`, code, host.ID, engine.PhaseLobby); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	if err := insertPlayer(tx, code, 0, host); err != nil {
		return err
	}
	if err := appendRoomLog(tx, code, 0, engine.PhaseLobby, LogEvent, "Room created. Waiting for players..."); err != nil {
		return err
	}
	return tx.Commit()
}

// addPlayerToRoom seats a new player at the end of the table.
func addPlayerToRoom(code string, p engine.Player) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seat int
	if err := tx.Get(&seat, "SELECT COUNT(*) FROM room_player WHERE room_code = ?", code); err != nil {
		return fmt.Errorf("count seats: %w", err)
	}
	if err := insertPlayer(tx, code, seat, p); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlayer(ex sqlx.Execer, code string, seat int, p engine.Player) error {
	_, err := ex.Exec(`
		INSERT INTO room_player (room_code, player_id, seat, name, role, is_alive, is_host)
		VALUES (?, ?, ?, ?, ?, 1, ?)`,
		code, p.ID, seat, p.Name, string(engine.RoleUnknown), p.IsHost)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique && strings.Contains(se.Error(), "room_player.name") {
		return fmt.Errorf("%q: %w", p.Name, errNameTaken)
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// upsertNightAction records a submission. A second submission by the same
// actor in the same turn replaces the first.
func upsertNightAction(code string, turn int, a engine.NightAction) error {
	_, err := db.Exec(`
		INSERT INTO night_action (id, room_code, turn, actor_id, target_id, secondary_target_id, kind, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_code, turn, actor_id)
		DO UPDATE SET id = excluded.id, target_id = excluded.target_id,
			secondary_target_id = excluded.secondary_target_id,
			kind = excluded.kind, priority = excluded.priority`,
		a.ID, code, turn, a.ActorID, a.TargetID, a.SecondaryTargetID, string(a.Kind), a.Priority)
	return err
}

// upsertVote records a day vote with the same last-write-wins rule.
func upsertVote(code string, turn int, voterID, targetID string) error {
	_, err := db.Exec(`
		INSERT INTO day_vote (room_code, turn, voter_id, target_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(room_code, turn, voter_id) DO UPDATE SET target_id = excluded.target_id`,
		code, turn, voterID, targetID)
	return err
}

func countSubmissions(code string, turn int, table string) int {
	var n int
	db.Get(&n, "SELECT COUNT(*) FROM "+table+" WHERE room_code = ? AND turn = ?", code, turn)
	return n
}

// resetRoom returns a finished room to the lobby with the same seats.
func resetRoom(code string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{`UPDATE room SET phase = ?, turn = 0, execution_count = 1, winner = '', win_reason = '',
			wolves_disabled = 0, wolf_extra_kills = 0, preset = '' WHERE code = ?`, []any{engine.PhaseLobby, code}},
		{`UPDATE room_player SET role = ?, is_alive = 1, has_used_ability = 0, attributes = '{}',
			flags = '{}', private_result = '' WHERE room_code = ?`, []any{string(engine.RoleUnknown), code}},
		{"DELETE FROM night_action WHERE room_code = ?", []any{code}},
		{"DELETE FROM day_vote WHERE room_code = ?", []any{code}},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(st.query, st.args...); err != nil {
			return fmt.Errorf("reset room: %w", err)
		}
	}
	if err := appendRoomLog(tx, code, 0, engine.PhaseLobby, LogEvent, "A new game is being prepared."); err != nil {
		return err
	}
	return tx.Commit()
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS room (
		code TEXT PRIMARY KEY,
		host_id TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'LOBBY',
		turn INTEGER NOT NULL DEFAULT 0,
		execution_count INTEGER NOT NULL DEFAULT 1,
		winner TEXT NOT NULL DEFAULT '',
		win_reason TEXT NOT NULL DEFAULT '',
		wolves_disabled INTEGER NOT NULL DEFAULT 0,
		wolf_extra_kills INTEGER NOT NULL DEFAULT 0,
		preset TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS room_player (
		room_code TEXT NOT NULL,
		player_id TEXT NOT NULL,
		seat INTEGER NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'Unknown',
		is_alive INTEGER NOT NULL DEFAULT 1,
		is_host INTEGER NOT NULL DEFAULT 0,
		has_used_ability INTEGER NOT NULL DEFAULT 0,
		attributes TEXT NOT NULL DEFAULT '{}',
		flags TEXT NOT NULL DEFAULT '{}',
		private_result TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (room_code) REFERENCES room(code),
		UNIQUE(room_code, player_id),
		UNIQUE(room_code, name)
	);
	CREATE TABLE IF NOT EXISTS night_action (
		id TEXT NOT NULL,
		room_code TEXT NOT NULL,
		turn INTEGER NOT NULL,
		actor_id TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		secondary_target_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL,
		FOREIGN KEY (room_code) REFERENCES room(code),
		UNIQUE(room_code, turn, actor_id)
	);
	CREATE TABLE IF NOT EXISTS day_vote (
		room_code TEXT NOT NULL,
		turn INTEGER NOT NULL,
		voter_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		FOREIGN KEY (room_code) REFERENCES room(code),
		UNIQUE(room_code, turn, voter_id)
	);
	CREATE TABLE IF NOT EXISTS room_log (
		room_code TEXT NOT NULL,
		turn INTEGER NOT NULL,
		phase TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'event',
		line TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (room_code) REFERENCES room(code)
	);
	CREATE INDEX IF NOT EXISTS idx_room_log_lookup ON room_log(room_code, kind);
	CREATE TABLE IF NOT EXISTS session (
		token TEXT PRIMARY KEY,
		room_code TEXT NOT NULL,
		player_id TEXT NOT NULL,
		FOREIGN KEY (room_code) REFERENCES room(code)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	appLogger.Info("Database initialized successfully")
	return nil
}
