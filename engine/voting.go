package engine

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveVoting executes the village's choice. votes maps voter id to target
// id. The input roster is not modified.
func ResolveVoting(players []Player, votes map[string]string, executionCount int) VoteResult {
	r := newRoster(players)
	d := newDeathTracker(r, 0)
	if executionCount < 1 {
		executionCount = 1
	}

	tally := make(map[string]int)
	for voterID, targetID := range votes {
		voter, target := r.get(voterID), r.get(targetID)
		if voter == nil || target == nil || !voter.IsAlive || !target.IsAlive {
			continue
		}
		if voter.Flags.Silenced || voter.Flags.Banished || target.Flags.Banished {
			continue
		}
		tally[target.ID]++
	}

	var candidates []*Player
	for i := range r.players {
		if tally[r.players[i].ID] > 0 {
			candidates = append(candidates, &r.players[i])
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return tally[candidates[i].ID] > tally[candidates[j].ID]
	})

	var chosen []*Player
	switch {
	case len(candidates) == 0:
		d.log = append(d.log, "No votes were cast. Nobody was executed.")
	case executionCount == 1:
		top := tally[candidates[0].ID]
		var tied []string
		for _, c := range candidates {
			if tally[c.ID] == top {
				tied = append(tied, c.Name)
			}
		}
		if len(tied) > 1 {
			d.log = append(d.log, fmt.Sprintf("The vote was tied between %s. Nobody was executed.", strings.Join(tied, " and ")))
			break
		}
		chosen = candidates[:1]
	default:
		chosen = candidates[:min(executionCount, len(candidates))]
	}

	var executed []string
	var win WinResult
	for _, p := range chosen {
		role := RoleFor(p.Role)
		switch {
		case role.ExecutionImmune && !p.HasUsedAbility:
			p.HasUsedAbility = true
			p.Flags.Revealed = true
			d.log = append(d.log, fmt.Sprintf("%s revealed royal blood and was spared.", p.Name))
		case role.WinsOnExecution:
			d.kill(p, fmt.Sprintf("%s was executed by the village, grinning.", p.Name))
			executed = append(executed, p.ID)
			if !win.Over() {
				win = WinResult{Winner: Winner(p.Role), Reason: fmt.Sprintf("%s wanted to be executed.", p.Name)}
			}
		default:
			d.kill(p, fmt.Sprintf("%s was executed by the village.", p.Name))
			executed = append(executed, p.ID)
		}
	}

	d.chain()
	d.transform()

	res := VoteResult{
		Players:  r.players,
		Log:      d.log,
		Executed: executed,
		Deaths:   d.order,
		Phase:    PhaseNight,
		Effects:  d.next,
	}
	if !win.Over() {
		win = CheckWinCondition(r.players)
	}
	if win.Over() {
		res.Phase = PhaseGameOver
		res.Winner = win.Winner
		res.WinReason = win.Reason
	}
	return res
}
