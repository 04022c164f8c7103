package engine

import (
	"fmt"
	"sort"
	"strings"
)

type nightResolver struct {
	*deathTracker
	carried    GlobalEffects
	executions int
	submitted  map[string]bool
	targeted   map[string]string
}

// ResolveNight resolves the pending night actions in s. The input state is
// not modified; the result carries a fresh roster.
func ResolveNight(s GameState) NightResult {
	r := newRoster(s.Players)
	n := &nightResolver{
		deathTracker: newDeathTracker(r, s.Turn),
		carried:      s.Effects,
		executions:   1,
		submitted:    make(map[string]bool),
		targeted:     make(map[string]string),
	}

	for _, p := range r.alive() {
		p.Flags = Flags{}
		p.PrivateResult = ""
	}

	actions := append([]NightAction(nil), s.Actions...)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority < actions[j].Priority
	})
	for _, a := range actions {
		if actor := r.get(a.ActorID); actor != nil && actor.IsAlive {
			n.submitted[actor.ID] = true
		}
	}

	for _, a := range actions {
		n.apply(a)
	}
	for _, p := range r.alive() {
		p.Attributes.LastTargetID = n.targeted[p.ID]
	}

	n.sweep()
	n.chain()
	n.transform()

	var names []string
	for _, id := range n.order {
		names = append(names, r.get(id).Name)
	}
	if len(names) == 0 {
		n.log = append(n.log, "The night passed quietly. Nobody died.")
	} else {
		n.log = append(n.log, fmt.Sprintf("Lost in the night: %s.", strings.Join(names, ", ")))
	}

	res := NightResult{
		Players:            r.players,
		Log:                n.log,
		Deaths:             n.order,
		Phase:              PhaseDay,
		NextExecutionCount: n.executions,
		Effects:            n.next,
	}
	if w := CheckWinCondition(r.players); w.Over() {
		res.Phase = PhaseGameOver
		res.Winner = w.Winner
		res.WinReason = w.Reason
	}
	return res
}

func (n *nightResolver) apply(a NightAction) {
	actor := n.r.get(a.ActorID)
	target := n.r.get(a.TargetID)
	if actor == nil || target == nil || !actor.IsAlive {
		return
	}
	s := StrategyFor(actor.Role)
	if s.Priority(a.Kind) == TierPassive || !s.CanTarget(actor, target, a.Kind) {
		return
	}
	n.targeted[actor.ID] = target.ID

	if eff, ok := s.(Effector); ok {
		if e := eff.Effect(a); e != nil {
			n.interpret(e, a, actor, target)
			return
		}
	}
	s.Apply(a, &target.Flags, &actor.Flags)
}

// interpret runs the structured abilities.
func (n *nightResolver) interpret(e Effect, a NightAction, actor, target *Player) {
	if actor.Flags.Roleblocked {
		return
	}
	switch e := e.(type) {
	case Bite:
		n.bite(actor, target)
		if n.carried.WolfExtraKills > 0 {
			if second := n.r.get(a.SecondaryTargetID); second != nil && otherAlive(actor, second) {
				n.bite(actor, second)
			}
		}

	case Potion:
		if e.Heal {
			if actor.Attributes.HealPotionUsed {
				return
			}
			actor.Attributes.HealPotionUsed = true
			target.Flags.Protected = true
			note(actor, fmt.Sprintf("You poured your healing potion for %s.", target.Name))
			return
		}
		if actor.Attributes.PoisonPotionUsed {
			return
		}
		actor.Attributes.PoisonPotionUsed = true
		target.Flags.MarkedForDeath = true
		target.Flags.Doomed = true

	case Bond:
		if e.Lovers {
			second := n.r.get(a.SecondaryTargetID)
			if second == nil || !second.IsAlive || second.ID == target.ID {
				return
			}
			actor.HasUsedAbility = true
			target.Attributes.LoverID = second.ID
			second.Attributes.LoverID = target.ID
			note(target, fmt.Sprintf("Cupid's arrow struck. You are in love with %s.", second.Name))
			note(second, fmt.Sprintf("Cupid's arrow struck. You are in love with %s.", target.Name))
			return
		}
		if actor.Attributes.BoundPartnerID != "" {
			return
		}
		actor.Attributes.BoundPartnerID = target.ID
		actor.HasUsedAbility = true
		note(actor, fmt.Sprintf("Your soul is now bound to %s.", target.Name))

	case LockIdentity:
		if actor.Attributes.IdentityTargetID != "" {
			return
		}
		actor.Attributes.IdentityTargetID = target.ID
		actor.HasUsedAbility = true
		note(actor, fmt.Sprintf("You are watching %s closely.", target.Name))

	case ArmRetribution:
		actor.Attributes.RetributionTargetID = target.ID
		note(actor, fmt.Sprintf("Your aim is on %s.", target.Name))

	case Recruit:
		target.Attributes.CultMember = true
		note(target, "You have been welcomed into the cult.")

	case MarkHitList:
		if len(actor.Attributes.HitList) > 0 {
			return
		}
		list := []string{target.ID}
		if second := n.r.get(a.SecondaryTargetID); second != nil && second.ID != target.ID && otherAlive(actor, second) {
			list = append(list, second.ID)
		}
		actor.Attributes.HitList = list
		actor.HasUsedAbility = true

	case Investigate:
		if e.Dead {
			note(actor, fmt.Sprintf("The spirits whisper that %s was a %s.", target.Name, target.Role))
			return
		}
		target.Flags.Revealed = true
		note(actor, fmt.Sprintf("Your vision shows %s as a %s.", target.Name, RoleFor(target.Role).SeenAs()))

	case Scout:
		var names []string
		for _, p := range n.r.alive() {
			if p.ID == actor.ID {
				continue
			}
			if (e.Masons && p.Role == RoleMason) || (!e.Masons && IsWolf(p.Role)) {
				names = append(names, p.Name)
			}
		}
		label := "wolves"
		if e.Masons {
			label = "other Masons"
		}
		if len(names) == 0 {
			note(actor, fmt.Sprintf("You found no %s.", label))
			return
		}
		note(actor, fmt.Sprintf("The %s are: %s.", label, strings.Join(names, ", ")))

	case Purge:
		if e.OneShot {
			actor.HasUsedAbility = true
		}
		if IsWolf(RoleFor(target.Role).SeenAs()) {
			target.Flags.MarkedForDeath = true
			return
		}
		actor.Flags.MarkedForDeath = true
		actor.Flags.Doomed = true

	case DoubleExecution:
		actor.HasUsedAbility = true
		n.executions = 2
		note(actor, "Tomorrow the village will demand two executions.")

	case WatchNeighbours:
		seen := n.neighbours(actor)
		if len(seen) == 0 {
			note(actor, "Too few neighbours remain to watch.")
			return
		}
		var parts []string
		for _, q := range seen {
			parts = append(parts, fmt.Sprintf("%s %s.", q.Name, stirred(n.submitted[q.ID])))
		}
		note(actor, strings.Join(parts, " "))
	}
}

func (n *nightResolver) bite(actor, target *Player) {
	if n.carried.WolvesDisabled {
		note(actor, "The pack is sick and could not hunt tonight.")
		return
	}
	if target.Flags.Protected {
		return
	}
	target.Flags.Bitten = true
}

// neighbours returns the living seats either side of p, wrapping around.
// With fewer than three alive there is nobody distinct on both sides.
func (n *nightResolver) neighbours(p *Player) []*Player {
	alive := n.r.alive()
	if len(alive) < 3 {
		return nil
	}
	for i, q := range alive {
		if q.ID == p.ID {
			return []*Player{alive[(i-1+len(alive))%len(alive)], alive[(i+1)%len(alive)]}
		}
	}
	return nil
}

func stirred(acted bool) string {
	if acted {
		return "stirred in the night"
	}
	return "slept soundly"
}

// IsWolf reports whether the role hunts with the pack or alone as a wolf.
func IsWolf(id RoleID) bool {
	switch id {
	case RoleWerewolf, RoleWolfMan, RoleDireWolf, RoleWolfCub, RoleLoneWolf:
		return true
	}
	return false
}
