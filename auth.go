package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const sessionCookieName = "werewolf_session"

// Session binds a browser to one seat in one room.
type Session struct {
	Token    string `db:"token"`
	RoomCode string `db:"room_code"`
	PlayerID string `db:"player_id"`
}

var errNoSession = errors.New("no session")

func createSession(roomCode, playerID string) (Session, error) {
	s := Session{Token: uuid.NewString(), RoomCode: roomCode, PlayerID: playerID}
	if _, err := db.NamedExec(`INSERT INTO session (token, room_code, player_id) VALUES (:token, :room_code, :player_id)`, s); err != nil {
		return s, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

func setSessionCookie(w http.ResponseWriter, s Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func getSessionFromRequest(r *http.Request) (Session, error) {
	var s Session
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return s, errNoSession
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return s, errNoSession
	}

	err = db.Get(&s, "SELECT token, room_code, player_id FROM session WHERE token = ?", cookie.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return s, errNoSession
	}
	return s, err
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	s, err := getSessionFromRequest(r)
	if err == nil {
		db.Exec("DELETE FROM session WHERE token = ?", s.Token)
		appLogger.Infof("Player logged out: name='%s', room=%s", getPlayerName(s.RoomCode, s.PlayerID), s.RoomCode)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
