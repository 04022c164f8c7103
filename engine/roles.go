package engine

// registry maps each role with a night ability to its strategy. Roles not
// listed here are passive.
var registry = map[RoleID]Strategy{
	RoleWerewolf: wolf(),
	RoleWolfMan:  wolf(),
	RoleWolfCub:  wolf(),
	RoleLoneWolf: wolf(),
	RoleDireWolf: multiStrategy{
		kinds: map[ActionKind]Strategy{
			KindBind: effectStrategy{kind: KindBind, tier: TierSetup, effect: constant(Bond{}),
				rule: func(actor, target *Player) bool {
					return actor.Attributes.BoundPartnerID == "" && otherAlive(actor, target)
				}},
			KindBite: wolf(),
		},
		def: func(actor *Player) ActionKind {
			if actor.Attributes.BoundPartnerID == "" {
				return KindBind
			}
			return KindBite
		},
	},

	RoleChangeling:   identityThief(),
	RoleDoppelganger: identityThief(),
	RoleCultLeader: effectStrategy{kind: KindRecruit, tier: TierSetup, effect: constant(Recruit{}),
		rule: func(actor, target *Player) bool {
			return otherAlive(actor, target) && !target.Attributes.CultMember
		}},
	RoleCupid: effectStrategy{kind: KindPair, tier: TierSetup, rule: oneShot(anyAlive), effect: constant(Bond{Lovers: true})},
	RoleHoodlum: effectStrategy{kind: KindHitList, tier: TierSetup, effect: constant(MarkHitList{}),
		rule: func(actor, target *Player) bool {
			return len(actor.Attributes.HitList) == 0 && otherAlive(actor, target)
		}},
	RoleHunter: effectStrategy{kind: KindArm, tier: TierSetup, rule: otherAlive, effect: constant(ArmRetribution{})},
	RoleMinion: effectStrategy{kind: KindScout, tier: TierSetup, rule: anyAlive, effect: constant(Scout{})},
	RoleMason:  effectStrategy{kind: KindScout, tier: TierSetup, rule: anyAlive, effect: constant(Scout{Masons: true})},

	RoleSpellcaster: flagStrategy{kind: KindSilence, tier: TierSilence, rule: otherAlive,
		mutate: func(f *Flags) { f.Silenced = true }},

	RoleBodyguard: flagStrategy{kind: KindProtect, tier: TierProtect, mutate: func(f *Flags) { f.Protected = true },
		rule: func(actor, target *Player) bool {
			return otherAlive(actor, target) && target.ID != actor.Attributes.LastTargetID
		}},
	RoleOldHag: flagStrategy{kind: KindBanish, tier: TierProtect, rule: otherAlive,
		mutate: func(f *Flags) { f.Banished = true }},
	RoleWitch: multiStrategy{
		kinds: map[ActionKind]Strategy{
			KindHeal: effectStrategy{kind: KindHeal, tier: TierProtect, effect: constant(Potion{Heal: true}),
				rule: func(actor, target *Player) bool {
					return !actor.Attributes.HealPotionUsed && anyAlive(actor, target)
				}},
			KindPoison: effectStrategy{kind: KindPoison, tier: TierLethal, effect: constant(Potion{}),
				rule: func(actor, target *Player) bool {
					return !actor.Attributes.PoisonPotionUsed && otherAlive(actor, target)
				}},
		},
		def: func(*Player) ActionKind { return KindHeal },
	},

	RoleSerialKiller: flagStrategy{kind: KindKill, tier: TierLethal, rule: otherAlive,
		mutate: func(f *Flags) {
			f.MarkedForDeath = true
			f.Doomed = true
		}},
	RolePriest:   effectStrategy{kind: KindPurge, tier: TierLethal, rule: oneShot(otherAlive), effect: constant(Purge{OneShot: true})},
	RoleRevealer: effectStrategy{kind: KindPurge, tier: TierLethal, rule: otherAlive, effect: constant(Purge{})},

	RoleSeer:         effectStrategy{kind: KindInvestigate, tier: TierInvestigate, rule: otherAlive, effect: constant(Investigate{})},
	RoleMedium:       effectStrategy{kind: KindCommune, tier: TierInvestigate, rule: deadOnly, effect: constant(Investigate{Dead: true})},
	RoleTroublemaker: effectStrategy{kind: KindDisrupt, tier: TierInvestigate, rule: oneShot(anyAlive), effect: constant(DoubleExecution{})},

	RoleInsomniac: effectStrategy{kind: KindWatch, tier: TierPassiveInfo, rule: anyAlive, effect: constant(WatchNeighbours{})},
}

func wolf() Strategy {
	return effectStrategy{kind: KindBite, tier: TierLethal, rule: otherAlive, effect: constant(Bite{})}
}

func identityThief() Strategy {
	return effectStrategy{kind: KindLock, tier: TierSetup, effect: constant(LockIdentity{}),
		rule: func(actor, target *Player) bool {
			return actor.Attributes.IdentityTargetID == "" && otherAlive(actor, target)
		}}
}

func constant(e Effect) func(NightAction) Effect {
	return func(NightAction) Effect { return e }
}
