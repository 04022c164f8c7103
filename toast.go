package main

import (
	"errors"
	"sync/atomic"
)

var (
	errRoomNotFound    = errors.New("room not found")
	errPlayerNotInRoom = errors.New("player not in room")
	errNotHost         = errors.New("only the host can do that")
	errWrongPhase      = errors.New("not allowed in this phase")
	errInvalidTarget   = errors.New("invalid target")
	errNameTaken       = errors.New("name already taken")
	errUnknownPreset   = errors.New("unknown preset")
)

// Toast represents a notification message to show to the user
type Toast struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"` // "error", "warning", "success", "info"
	Message string `json:"message"`
}

const genericFailure = "Something went wrong"

var toastCounter atomic.Int64

func newToast(toastType, message string) Toast {
	return Toast{ID: toastCounter.Add(1), Type: toastType, Message: message}
}

// userMessage maps an error to the text shown to the player. Unexpected
// errors are not leaked.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errRoomNotFound):
		return "Room not found"
	case errors.Is(err, errPlayerNotInRoom):
		return "You are not in this room"
	case errors.Is(err, errNotHost):
		return "Only the host can do that"
	case errors.Is(err, errWrongPhase):
		return "That is not possible right now"
	case errors.Is(err, errInvalidTarget):
		return "Invalid target"
	case errors.Is(err, errNameTaken):
		return "Name already taken"
	case errors.Is(err, errUnknownPreset):
		return "Unknown preset"
	}
	return genericFailure
}

// sendToast sends a toast to a specific player via WebSocket
func sendToast(roomCode, playerID, toastType, message string) {
	t := newToast(toastType, message)
	hub.sendToPlayer(roomCode, playerID, OutMessage{Type: msgToast, Toast: &t})
}

// sendErrorToast reports err to the player who caused it. Unexpected
// errors are logged with context.
func sendErrorToast(client *Client, context string, err error) {
	msg := userMessage(err)
	if msg == genericFailure {
		logError(context, err)
	} else {
		DebugLog(context, "Rejected for player %s: %v", client.playerID, err)
	}
	sendToast(client.roomCode, client.playerID, "error", msg)
}
