package engine

import "github.com/google/uuid"

// Phase of the game loop.
type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseNight    Phase = "NIGHT"
	PhaseDay      Phase = "DAY"
	PhaseVoting   Phase = "VOTING"
	PhaseGameOver Phase = "GAME_OVER"
)

// ActionKind tags what a night action is trying to do. Roles with more than
// one ability (Witch, Dire Wolf) use it to pick the ability.
type ActionKind string

const (
	KindNone        ActionKind = ""
	KindBite        ActionKind = "bite"
	KindKill        ActionKind = "kill"
	KindHeal        ActionKind = "heal"
	KindPoison      ActionKind = "poison"
	KindProtect     ActionKind = "protect"
	KindSilence     ActionKind = "silence"
	KindBanish      ActionKind = "banish"
	KindBind        ActionKind = "bind"
	KindPair        ActionKind = "pair"
	KindLock        ActionKind = "lock"
	KindRecruit     ActionKind = "recruit"
	KindHitList     ActionKind = "hit_list"
	KindArm         ActionKind = "arm"
	KindInvestigate ActionKind = "investigate"
	KindCommune     ActionKind = "commune"
	KindScout       ActionKind = "scout"
	KindPurge       ActionKind = "purge"
	KindDisrupt     ActionKind = "disrupt"
	KindWatch       ActionKind = "watch"
)

// NightAction is one submitted night ability use.
type NightAction struct {
	ID                string     `json:"id"`
	ActorID           string     `json:"actor_id"`
	TargetID          string     `json:"target_id"`
	SecondaryTargetID string     `json:"secondary_target_id,omitempty"`
	Kind              ActionKind `json:"kind"`
	Priority          int        `json:"priority"`
}

// NewAction builds an action for actor, copying the priority from the
// actor's strategy. An empty kind selects the role's default ability.
func NewAction(actor Player, targetID, secondaryID string, kind ActionKind) NightAction {
	s := StrategyFor(actor.Role)
	if kind == KindNone {
		kind = s.DefaultKind(&actor)
	}
	return NightAction{
		ID:                uuid.NewString(),
		ActorID:           actor.ID,
		TargetID:          targetID,
		SecondaryTargetID: secondaryID,
		Kind:              kind,
		Priority:          s.Priority(kind),
	}
}

// GlobalEffects carry from one resolution into the next night.
type GlobalEffects struct {
	WolvesDisabled bool `json:"wolves_disabled,omitempty"`
	WolfExtraKills int  `json:"wolf_extra_kills,omitempty"`
}

func (e GlobalEffects) merge(o GlobalEffects) GlobalEffects {
	return GlobalEffects{
		WolvesDisabled: e.WolvesDisabled || o.WolvesDisabled,
		WolfExtraKills: max(e.WolfExtraKills, o.WolfExtraKills),
	}
}

// Winner names the side that won. WinnerDraw ends the game with nobody winning.
type Winner string

const (
	WinnerNone         Winner = ""
	WinnerDraw         Winner = "Draw"
	WinnerGood         Winner = "Good"
	WinnerEvil         Winner = "Evil"
	WinnerCult         Winner = "Cult"
	WinnerHoodlum      Winner = "Hoodlum"
	WinnerLovers       Winner = "Lovers"
	WinnerLoneWolf     Winner = "Lone Wolf"
	WinnerSerialKiller Winner = "Serial Killer"
	WinnerJester       Winner = "Jester"
	WinnerTanner       Winner = "Tanner"
)

// GameState is the full snapshot the controller owns between resolutions.
type GameState struct {
	Phase          Phase             `json:"phase"`
	Turn           int               `json:"turn"`
	Players        []Player          `json:"players"`
	Actions        []NightAction     `json:"actions"`
	Votes          map[string]string `json:"votes"`
	ExecutionCount int               `json:"execution_count"`
	Log            []string          `json:"log"`
	Winner         Winner            `json:"winner,omitempty"`
	WinReason      string            `json:"win_reason,omitempty"`
	Effects        GlobalEffects     `json:"effects"`
}

// WinResult is the outcome of CheckWinCondition.
type WinResult struct {
	Winner Winner `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Over reports whether the game has ended.
func (w WinResult) Over() bool { return w.Winner != WinnerNone }

// NightResult is everything a night resolution produced.
type NightResult struct {
	Players            []Player      `json:"players"`
	Log                []string      `json:"log"`
	Deaths             []string      `json:"deaths"`
	Phase              Phase         `json:"phase"`
	Winner             Winner        `json:"winner,omitempty"`
	WinReason          string        `json:"win_reason,omitempty"`
	NextExecutionCount int           `json:"next_execution_count"`
	Effects            GlobalEffects `json:"effects"`
}

// VoteResult is everything a voting resolution produced.
type VoteResult struct {
	Players   []Player      `json:"players"`
	Log       []string      `json:"log"`
	Executed  []string      `json:"executed"`
	Deaths    []string      `json:"deaths"`
	Phase     Phase         `json:"phase"`
	Winner    Winner        `json:"winner,omitempty"`
	WinReason string        `json:"win_reason,omitempty"`
	Effects   GlobalEffects `json:"effects"`
}

// AdvanceNight resolves the night in s and folds the result back into a new
// state. Pending actions and votes are cleared.
func AdvanceNight(s GameState) (GameState, NightResult) {
	res := ResolveNight(s)
	next := s
	next.Players = res.Players
	next.Actions = nil
	next.Votes = nil
	next.Log = append(append([]string(nil), s.Log...), res.Log...)
	next.Phase = res.Phase
	next.Winner = res.Winner
	next.WinReason = res.WinReason
	next.ExecutionCount = res.NextExecutionCount
	next.Effects = res.Effects
	return next, res
}

// AdvanceVoting resolves the pending votes and folds the result back. When the
// game continues, the turn counter moves on and the execution count resets.
func AdvanceVoting(s GameState) (GameState, VoteResult) {
	res := ResolveVoting(s.Players, s.Votes, s.ExecutionCount)
	next := s
	next.Players = res.Players
	next.Actions = nil
	next.Votes = nil
	next.Log = append(append([]string(nil), s.Log...), res.Log...)
	next.Phase = res.Phase
	next.Winner = res.Winner
	next.WinReason = res.WinReason
	next.ExecutionCount = 1
	next.Effects = s.Effects.merge(res.Effects)
	if res.Phase == PhaseNight {
		next.Turn = s.Turn + 1
	}
	return next, res
}
