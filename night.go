package main

import (
	"fmt"

	"werewolf-extreme/engine"
)

func handleWSNightAction(client *Client, msg WSMessage) {
	unlock := lockRoom(client.roomCode)
	err := submitNightAction(client, msg)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSNightAction", err)
		return
	}
	sendToast(client.roomCode, client.playerID, "success", "Your choice is locked in.")
	broadcastRoomState(client.roomCode)
}

// submitNightAction validates a submission against the actor's role and
// records it. A later submission in the same night replaces it.
func submitNightAction(client *Client, msg WSMessage) error {
	room, err := getRoom(client.roomCode)
	if err != nil {
		return err
	}
	if room.Phase != engine.PhaseNight {
		return fmt.Errorf("night action during %s: %w", room.Phase, errWrongPhase)
	}

	actor, err := getRoomPlayer(room.Code, client.playerID)
	if err != nil {
		return err
	}
	target, err := getRoomPlayer(room.Code, msg.TargetID)
	if err != nil {
		return fmt.Errorf("target %q: %w", msg.TargetID, errInvalidTarget)
	}
	if msg.SecondaryTargetID != "" {
		if _, err := getRoomPlayer(room.Code, msg.SecondaryTargetID); err != nil {
			return fmt.Errorf("secondary target %q: %w", msg.SecondaryTargetID, errInvalidTarget)
		}
	}

	kind := engine.ActionKind(msg.Kind)
	if !engine.CanSubmit(&actor, &target, kind) {
		return fmt.Errorf("%s cannot %q %s: %w", actor.Role, kind, target.Name, errInvalidTarget)
	}

	action := engine.NewAction(actor, target.ID, msg.SecondaryTargetID, kind)
	if err := upsertNightAction(room.Code, room.Turn, action); err != nil {
		return fmt.Errorf("record action: %w", err)
	}

	appLogger.Infof("%s (%s) chose %s on %s, night %d", actor.Name, actor.Role, action.Kind, target.Name, room.Turn)
	DebugLog("submitNightAction", "Action %s priority %d recorded in room %s", action.ID, action.Priority, room.Code)
	LogDBState("after night action")
	return nil
}

// resolveNight runs the night through the engine and persists the outcome.
func resolveNight(code string) error {
	_, state, err := loadGameState(code)
	if err != nil {
		return err
	}

	appLogger.Infof("Resolving night %d in room %s with %d actions", state.Turn, code, len(state.Actions))
	next, res := engine.AdvanceNight(state)
	if err := saveGameState(code, next, res.Log); err != nil {
		return fmt.Errorf("save night: %w", err)
	}

	DebugLog("resolveNight", "Night %d in room %s: %d deaths, next phase %s", state.Turn, code, len(res.Deaths), res.Phase)
	LogDBState("after night resolution")

	if next.Phase == engine.PhaseGameOver {
		endGame(code, next)
	}
	if len(res.Deaths) > 0 {
		maybeGenerateStory(code, next.Turn, engine.PhaseNight)
	}
	return nil
}
