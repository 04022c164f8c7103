package engine

// Flags hold per-turn state. They are cleared for every living player at
// the start of each night resolution.
type Flags struct {
	Protected      bool `json:"protected"`
	Roleblocked    bool `json:"roleblocked"`
	MarkedForDeath bool `json:"marked_for_death"`
	Doomed         bool `json:"doomed"`
	Bitten         bool `json:"bitten"`
	Revealed       bool `json:"revealed"`
	Silenced       bool `json:"silenced"`
	Banished       bool `json:"banished"`
}

// Attributes hold cross-turn state that survives until explicitly changed.
type Attributes struct {
	BoundPartnerID      string   `json:"bound_partner_id,omitempty"`
	LoverID             string   `json:"lover_id,omitempty"`
	HealPotionUsed      bool     `json:"heal_potion_used,omitempty"`
	PoisonPotionUsed    bool     `json:"poison_potion_used,omitempty"`
	IdentityTargetID    string   `json:"identity_target_id,omitempty"`
	RetributionTargetID string   `json:"retribution_target_id,omitempty"`
	HitList             []string `json:"hit_list,omitempty"`
	DelayedDeathTurn    int      `json:"delayed_death_turn,omitempty"`
	CultMember          bool     `json:"cult_member,omitempty"`
	LastTargetID        string   `json:"last_target_id,omitempty"`
}

// Player is one seat at the table.
type Player struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           RoleID     `json:"role"`
	IsAlive        bool       `json:"is_alive"`
	IsHost         bool       `json:"is_host"`
	HasUsedAbility bool       `json:"has_used_ability"`
	Attributes     Attributes `json:"attributes"`
	Flags          Flags      `json:"flags"`
	PrivateResult  string     `json:"private_result,omitempty"`
}

// Clone returns a deep copy of p.
func (p Player) Clone() Player {
	c := p
	if p.Attributes.HitList != nil {
		c.Attributes.HitList = append([]string(nil), p.Attributes.HitList...)
	}
	return c
}

// ClonePlayers deep-copies a roster.
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}

// AliveCount returns how many players are alive.
func AliveCount(players []Player) int {
	n := 0
	for _, p := range players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// roster indexes a cloned player slice by id.
type roster struct {
	players []Player
	byID    map[string]int
}

func newRoster(players []Player) *roster {
	r := &roster{players: ClonePlayers(players), byID: make(map[string]int, len(players))}
	for i, p := range r.players {
		r.byID[p.ID] = i
	}
	return r
}

func (r *roster) get(id string) *Player {
	if id == "" {
		return nil
	}
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return &r.players[i]
}

func (r *roster) alive() []*Player {
	var out []*Player
	for i := range r.players {
		if r.players[i].IsAlive {
			out = append(out, &r.players[i])
		}
	}
	return out
}
