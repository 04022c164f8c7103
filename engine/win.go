package engine

import "fmt"

// CheckWinCondition evaluates the roster against every win condition in a
// fixed order and returns the first that holds.
func CheckWinCondition(players []Player) WinResult {
	byID := make(map[string]Player, len(players))
	var alive []Player
	for _, p := range players {
		byID[p.ID] = p
		if p.IsAlive {
			alive = append(alive, p)
		}
	}

	if len(alive) == 0 {
		return WinResult{Winner: WinnerDraw, Reason: "Nobody is left alive."}
	}

	for _, p := range alive {
		if p.Role != RoleCultLeader {
			continue
		}
		captured := true
		for _, q := range alive {
			if q.Role != RoleCultLeader && !q.Attributes.CultMember {
				captured = false
				break
			}
		}
		if captured {
			return WinResult{Winner: WinnerCult, Reason: fmt.Sprintf("Every survivor kneels before %s.", p.Name)}
		}
	}

	for _, p := range alive {
		if p.Role != RoleHoodlum || len(p.Attributes.HitList) == 0 {
			continue
		}
		done := true
		for _, id := range p.Attributes.HitList {
			if mark, ok := byID[id]; !ok || mark.IsAlive {
				done = false
				break
			}
		}
		if done {
			return WinResult{Winner: WinnerHoodlum, Reason: fmt.Sprintf("%s outlived every mark.", p.Name)}
		}
	}

	if len(alive) == 2 && alive[0].Attributes.LoverID == alive[1].ID && alive[1].Attributes.LoverID == alive[0].ID {
		return WinResult{Winner: WinnerLovers, Reason: fmt.Sprintf("%s and %s are the last ones standing.", alive[0].Name, alive[1].Name)}
	}

	var evil, others int
	var lastEvil Player
	for _, p := range alive {
		switch RoleFor(p.Role).Alignment {
		case AlignmentEvil:
			evil++
			lastEvil = p
		case AlignmentGood, AlignmentNeutral:
			others++
		}
	}

	if evil == 1 && len(alive) == 1 && lastEvil.Role == RoleLoneWolf {
		return WinResult{Winner: WinnerLoneWolf, Reason: fmt.Sprintf("%s is the last wolf standing.", lastEvil.Name)}
	}

	if len(alive) == 1 && alive[0].Role == RoleSerialKiller {
		return WinResult{Winner: WinnerSerialKiller, Reason: fmt.Sprintf("%s is the only one left.", alive[0].Name)}
	}

	// Solo evil roles count toward the majority once their own wins are ruled out.
	if evil > 0 && evil >= others {
		return WinResult{Winner: WinnerEvil, Reason: "Evil has overrun the village."}
	}
	if evil == 0 {
		return WinResult{Winner: WinnerGood, Reason: "Every evil soul has been removed."}
	}
	return WinResult{}
}
