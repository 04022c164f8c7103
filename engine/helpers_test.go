package engine

import (
	"fmt"
	"strings"
)

// seat builds a roster of living players p1..pN with the given roles.
func seat(roles ...RoleID) []Player {
	players := make([]Player, len(roles))
	for i, r := range roles {
		players[i] = Player{
			ID:      fmt.Sprintf("p%d", i+1),
			Name:    fmt.Sprintf("P%d", i+1),
			Role:    r,
			IsAlive: true,
		}
	}
	return players
}

// act builds the default action of players[actor] aimed at players[target].
func act(players []Player, actor, target int) NightAction {
	return NewAction(players[actor], players[target].ID, "", KindNone)
}

func night(players []Player, actions ...NightAction) NightResult {
	return ResolveNight(GameState{
		Phase:          PhaseNight,
		Turn:           1,
		Players:        players,
		Actions:        actions,
		ExecutionCount: 1,
	})
}

func find(players []Player, id string) Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return Player{}
}

func logContains(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
