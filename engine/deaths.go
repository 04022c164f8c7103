package engine

import "fmt"

// deathTracker records who died during one resolution call and runs the
// follow-up passes that depend on it.
type deathTracker struct {
	r     *roster
	turn  int
	died  map[string]bool
	order []string
	log   []string
	fired map[string]bool
	next  GlobalEffects
}

func newDeathTracker(r *roster, turn int) *deathTracker {
	return &deathTracker{
		r:     r,
		turn:  turn,
		died:  make(map[string]bool),
		fired: make(map[string]bool),
	}
}

func (d *deathTracker) kill(p *Player, reason string) {
	if !p.IsAlive {
		return
	}
	p.IsAlive = false
	d.died[p.ID] = true
	d.order = append(d.order, p.ID)
	d.log = append(d.log, reason)
}

// sweep applies the night's lethal flags.
func (d *deathTracker) sweep() {
	for _, p := range d.r.alive() {
		f := p.Flags
		switch {
		case f.Doomed:
			d.kill(p, fmt.Sprintf("%s was slain by a force no guard could stop.", p.Name))
		case p.Attributes.DelayedDeathTurn > 0 && d.turn >= p.Attributes.DelayedDeathTurn:
			d.kill(p, fmt.Sprintf("%s finally succumbed to wounds from an earlier night.", p.Name))
		case f.Protected:
			if f.MarkedForDeath || f.Bitten {
				note(p, "You were attacked in the night, but someone kept you alive.")
			}
		case f.MarkedForDeath:
			d.kill(p, fmt.Sprintf("%s was found dead at dawn.", p.Name))
		case f.Bitten:
			d.bitten(p)
		}
	}
}

// bitten resolves a wolf bite that landed, including species immunity.
func (d *deathTracker) bitten(p *Player) {
	switch p.Role {
	case RoleCursed:
		p.Role = RoleWerewolf
		note(p, "The bite did not kill you. You wake up hungry. You are now a Werewolf.")
	case RoleToughGuy:
		if p.Attributes.DelayedDeathTurn == 0 {
			p.Attributes.DelayedDeathTurn = d.turn + 1
			note(p, "You were bitten and survived the night. You will not survive the next.")
		}
	case RoleDiseased:
		d.kill(p, fmt.Sprintf("%s was found dead at dawn.", p.Name))
		d.next.WolvesDisabled = true
	default:
		d.kill(p, fmt.Sprintf("%s was found dead at dawn.", p.Name))
	}
}

// chain repeats until a pass adds no deaths: soul bonds, lovers and armed
// retribution.
func (d *deathTracker) chain() {
	for {
		changed := false
		for _, p := range d.r.alive() {
			a := p.Attributes
			switch {
			case a.BoundPartnerID != "" && d.died[a.BoundPartnerID]:
				d.kill(p, fmt.Sprintf("%s collapsed as their soul bond snapped.", p.Name))
				changed = true
			case a.LoverID != "" && d.died[a.LoverID]:
				d.kill(p, fmt.Sprintf("%s died of a broken heart.", p.Name))
				changed = true
			}
		}
		for _, id := range d.order {
			p := d.r.get(id)
			if p.Role != RoleHunter || d.fired[id] {
				continue
			}
			d.fired[id] = true
			if t := d.r.get(p.Attributes.RetributionTargetID); t != nil && t.IsAlive {
				d.kill(t, fmt.Sprintf("%s was taken down by %s's last shot.", t.Name, p.Name))
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	for _, id := range d.order {
		if d.r.get(id).Role == RoleWolfCub {
			d.next.WolfExtraKills = 1
		}
	}
}

// transform applies role inheritance. Running it twice on the same roster
// changes nothing the second time.
func (d *deathTracker) transform() {
	for _, p := range d.r.alive() {
		if p.Role != RoleChangeling && p.Role != RoleDoppelganger {
			continue
		}
		t := d.r.get(p.Attributes.IdentityTargetID)
		if t == nil || !d.died[t.ID] {
			continue
		}
		p.Role = t.Role
		p.HasUsedAbility = false
		p.Attributes.HealPotionUsed = false
		p.Attributes.PoisonPotionUsed = false
		p.Attributes.IdentityTargetID = ""
		note(p, fmt.Sprintf("%s is gone. You have taken their place as the %s.", t.Name, t.Role))
	}

	seerExists, seerAlive := false, false
	for _, p := range d.r.players {
		if p.Role == RoleSeer {
			seerExists = true
			seerAlive = seerAlive || p.IsAlive
		}
	}
	if !seerExists || seerAlive {
		return
	}
	for _, p := range d.r.alive() {
		if p.Role == RoleApprenticeSeer {
			p.Role = RoleSeer
			note(p, "The Seer is dead. Their sight is now yours.")
		}
	}
}

func note(p *Player, msg string) {
	if p.PrivateResult == "" {
		p.PrivateResult = msg
		return
	}
	p.PrivateResult += " " + msg
}
