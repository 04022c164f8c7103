package engine

// Priority tiers. Lower tiers resolve first so later tiers can observe the
// flags they set.
const (
	TierSetup       = 0
	TierSilence     = 1
	TierProtect     = 2
	TierLethal      = 3
	TierInvestigate = 4
	TierPassiveInfo = 5
	TierPassive     = 99
)

// Strategy is the night behaviour of a role.
type Strategy interface {
	// Priority returns the tier for kind, or TierPassive when the role has no
	// such ability.
	Priority(kind ActionKind) int
	// DefaultKind is the ability used when a submission names none.
	DefaultKind(actor *Player) ActionKind
	// CanTarget reports whether actor may use the kind ability on target.
	// Spent one-shot abilities fail here.
	CanTarget(actor, target *Player, kind ActionKind) bool
	// Apply changes per-turn flags. It does nothing when the actor is roleblocked.
	Apply(a NightAction, target, actor *Flags)
}

// Effector is implemented by strategies whose ability touches attributes or
// produces private text. Their actions go through the effect interpreter
// instead of Apply.
type Effector interface {
	Effect(a NightAction) Effect
}

// StrategyFor returns the strategy for a role. Unknown roles get a no-op.
func StrategyFor(id RoleID) Strategy {
	if s, ok := registry[id]; ok {
		return s
	}
	return passive{}
}

// CanSubmit is the caller-side check for a night submission. The engine
// repeats the relevant checks during resolution.
func CanSubmit(actor, target *Player, kind ActionKind) bool {
	if actor == nil || target == nil || !actor.IsAlive {
		return false
	}
	s := StrategyFor(actor.Role)
	if kind == KindNone {
		kind = s.DefaultKind(actor)
	}
	if s.Priority(kind) == TierPassive {
		return false
	}
	return s.CanTarget(actor, target, kind)
}

type targetRule func(actor, target *Player) bool

func otherAlive(actor, target *Player) bool {
	return target.IsAlive && target.ID != actor.ID
}

func anyAlive(_, target *Player) bool {
	return target.IsAlive
}

func deadOnly(actor, target *Player) bool {
	return !target.IsAlive && target.ID != actor.ID
}

func oneShot(rule targetRule) targetRule {
	return func(actor, target *Player) bool {
		return !actor.HasUsedAbility && rule(actor, target)
	}
}

// passive roles have no night ability.
type passive struct{}

func (passive) Priority(ActionKind) int { return TierPassive }

func (passive) DefaultKind(*Player) ActionKind { return KindNone }

func (passive) CanTarget(_, _ *Player, _ ActionKind) bool { return false }

func (passive) Apply(NightAction, *Flags, *Flags) {}

// flagStrategy sets flags on its target and nothing else.
type flagStrategy struct {
	kind   ActionKind
	tier   int
	rule   targetRule
	mutate func(*Flags)
}

func (s flagStrategy) Priority(kind ActionKind) int {
	if kind != s.kind {
		return TierPassive
	}
	return s.tier
}

func (s flagStrategy) DefaultKind(*Player) ActionKind { return s.kind }

func (s flagStrategy) CanTarget(actor, target *Player, _ ActionKind) bool {
	return s.rule(actor, target)
}

func (s flagStrategy) Apply(_ NightAction, target, actor *Flags) {
	if actor.Roleblocked || target == nil {
		return
	}
	s.mutate(target)
}

// effectStrategy hands its action to the effect interpreter.
type effectStrategy struct {
	kind   ActionKind
	tier   int
	rule   targetRule
	effect func(a NightAction) Effect
}

func (s effectStrategy) Priority(kind ActionKind) int {
	if kind != s.kind {
		return TierPassive
	}
	return s.tier
}

func (s effectStrategy) DefaultKind(*Player) ActionKind { return s.kind }

func (s effectStrategy) CanTarget(actor, target *Player, _ ActionKind) bool {
	return s.rule(actor, target)
}

func (s effectStrategy) Apply(NightAction, *Flags, *Flags) {}

func (s effectStrategy) Effect(a NightAction) Effect { return s.effect(a) }

// multiStrategy routes by action kind for roles with more than one ability.
type multiStrategy struct {
	kinds map[ActionKind]Strategy
	def   func(actor *Player) ActionKind
}

func (s multiStrategy) Priority(kind ActionKind) int {
	if sub, ok := s.kinds[kind]; ok {
		return sub.Priority(kind)
	}
	return TierPassive
}

func (s multiStrategy) DefaultKind(actor *Player) ActionKind { return s.def(actor) }

func (s multiStrategy) CanTarget(actor, target *Player, kind ActionKind) bool {
	if sub, ok := s.kinds[kind]; ok {
		return sub.CanTarget(actor, target, kind)
	}
	return false
}

func (s multiStrategy) Apply(a NightAction, target, actor *Flags) {
	if sub, ok := s.kinds[a.Kind]; ok {
		sub.Apply(a, target, actor)
	}
}

func (s multiStrategy) Effect(a NightAction) Effect {
	if sub, ok := s.kinds[a.Kind].(Effector); ok {
		return sub.Effect(a)
	}
	return nil
}
