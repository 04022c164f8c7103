package engine

// Effect is a structured ability outcome that does not fit the flag model.
// The variants below are the closed set the night interpreter understands.
type Effect interface {
	isEffect()
}

// Bite is a wolf attack. With carried extra kills the secondary target is
// attacked as well.
type Bite struct{}

// Potion spends one of the Witch's potions.
type Potion struct {
	Heal bool
}

// Bond ties the actor to the target (soul bond), or the target to the
// secondary target (lovers).
type Bond struct {
	Lovers bool
}

// LockIdentity records the player whose role the actor inherits on death.
type LockIdentity struct{}

// ArmRetribution picks who dies with the actor.
type ArmRetribution struct{}

// Recruit converts the target into the cult.
type Recruit struct{}

// MarkHitList fixes the Hoodlum's two marks.
type MarkHitList struct{}

// Investigate reveals a role to the actor. Dead investigations see the true
// role; living ones see the disguise.
type Investigate struct {
	Dead bool
}

// Scout tells the actor who else shares a team.
type Scout struct {
	Masons bool
}

// Purge kills a wolf or, failing that, the actor.
type Purge struct {
	OneShot bool
}

// DoubleExecution makes the next vote execute two players.
type DoubleExecution struct{}

// WatchNeighbours reports whether the seats either side acted.
type WatchNeighbours struct{}

func (Bite) isEffect()            {}
func (Potion) isEffect()          {}
func (Bond) isEffect()            {}
func (LockIdentity) isEffect()    {}
func (ArmRetribution) isEffect()  {}
func (Recruit) isEffect()         {}
func (MarkHitList) isEffect()     {}
func (Investigate) isEffect()     {}
func (Scout) isEffect()           {}
func (Purge) isEffect()           {}
func (DoubleExecution) isEffect() {}
func (WatchNeighbours) isEffect() {}
