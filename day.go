package main

import (
	"fmt"

	"werewolf-extreme/engine"
)

func handleWSVote(client *Client, msg WSMessage) {
	unlock := lockRoom(client.roomCode)
	err := castVote(client, msg)
	unlock()
	if err != nil {
		sendErrorToast(client, "handleWSVote", err)
		return
	}
	broadcastRoomState(client.roomCode)
}

// castVote records a day vote. The engine discards votes from silenced or
// banished voters, so they are accepted here and ignored at resolution.
func castVote(client *Client, msg WSMessage) error {
	room, err := getRoom(client.roomCode)
	if err != nil {
		return err
	}
	if room.Phase != engine.PhaseVoting {
		return fmt.Errorf("vote during %s: %w", room.Phase, errWrongPhase)
	}

	voter, err := getRoomPlayer(room.Code, client.playerID)
	if err != nil {
		return err
	}
	if !voter.IsAlive {
		return fmt.Errorf("dead voter %s: %w", voter.Name, errWrongPhase)
	}
	target, err := getRoomPlayer(room.Code, msg.TargetID)
	if err != nil || !target.IsAlive {
		return fmt.Errorf("vote for %q: %w", msg.TargetID, errInvalidTarget)
	}

	if err := upsertVote(room.Code, room.Turn, voter.ID, target.ID); err != nil {
		return fmt.Errorf("record vote: %w", err)
	}

	appLogger.Infof("%s voted for %s, day %d", voter.Name, target.Name, room.Turn)
	LogDBState("after day vote")
	return nil
}

// openVoting moves the room from discussion to the vote.
func openVoting(code string) error {
	_, state, err := loadGameState(code)
	if err != nil {
		return err
	}
	state.Phase = engine.PhaseVoting
	line := "The village gathers to vote."
	if state.ExecutionCount > 1 {
		line = fmt.Sprintf("The village gathers to vote. %d players will be executed today.", state.ExecutionCount)
	}
	if err := saveGameState(code, state, []string{line}); err != nil {
		return fmt.Errorf("open voting: %w", err)
	}
	DebugLog("openVoting", "Room %s voting on day %d", code, state.Turn)
	return nil
}

// resolveVoting runs the vote through the engine and persists the outcome.
func resolveVoting(code string) error {
	_, state, err := loadGameState(code)
	if err != nil {
		return err
	}

	appLogger.Infof("Resolving vote on day %d in room %s with %d votes", state.Turn, code, len(state.Votes))
	next, res := engine.AdvanceVoting(state)
	lines := res.Log
	if next.Phase == engine.PhaseNight {
		lines = append(lines, "Night falls again...")
	}
	if err := saveGameState(code, next, lines); err != nil {
		return fmt.Errorf("save vote: %w", err)
	}

	DebugLog("resolveVoting", "Day %d in room %s: executed %v, next phase %s", state.Turn, code, res.Executed, res.Phase)
	LogDBState("after day resolution")

	if next.Phase == engine.PhaseGameOver {
		endGame(code, next)
	}
	if len(res.Deaths) > 0 {
		maybeGenerateStory(code, state.Turn, engine.PhaseVoting)
	}
	return nil
}
