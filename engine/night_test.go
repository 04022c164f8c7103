package engine

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

func TestQuietNightWhenBodyguardSavesTarget(t *testing.T) {
	players := seat(RoleWerewolf, RoleWerewolf, RoleSeer, RoleBodyguard, RoleVillager, RoleVillager)

	res := night(players, act(players, 3, 4), act(players, 0, 4))

	if len(res.Deaths) != 0 {
		t.Errorf("Expected no deaths, got %v", res.Deaths)
	}
	if !logContains(res.Log, "quiet") {
		t.Errorf("Expected a quiet night line, got %v", res.Log)
	}
	if res.Phase != PhaseDay {
		t.Errorf("Expected phase %s, got %s", PhaseDay, res.Phase)
	}
}

func TestUnstoppableKillIgnoresProtection(t *testing.T) {
	players := seat(RoleSerialKiller, RoleWerewolf, RoleSeer, RoleBodyguard, RoleVillager, RoleVillager)

	res := night(players, act(players, 3, 4), act(players, 0, 4))

	if find(res.Players, "p5").IsAlive {
		t.Errorf("Protected target of an unstoppable kill should die")
	}
	if !logContains(res.Log, "P5") {
		t.Errorf("Expected the death summary to name P5, got %v", res.Log)
	}
}

func TestProtectionPrecedence(t *testing.T) {
	r := newRoster(seat(RoleVillager, RoleVillager, RoleVillager, RoleWerewolf, RoleWerewolf))
	r.get("p1").Flags = Flags{Protected: true, MarkedForDeath: true}
	r.get("p2").Flags = Flags{Protected: true, MarkedForDeath: true, Doomed: true}
	r.get("p3").Flags = Flags{Protected: true, Bitten: true}

	d := newDeathTracker(r, 1)
	d.sweep()

	if !r.get("p1").IsAlive {
		t.Errorf("Protected, marked, not doomed player should survive")
	}
	if r.get("p2").IsAlive {
		t.Errorf("Doomed player should die regardless of protection")
	}
	if !r.get("p3").IsAlive {
		t.Errorf("Protected bitten player should survive")
	}
}

func TestProtectResolvesBeforeBiteInAnyOrder(t *testing.T) {
	players := seat(RoleWerewolf, RoleSeer, RoleBodyguard, RoleVillager, RoleVillager, RoleVillager)
	base := []NightAction{act(players, 0, 3), act(players, 2, 3), act(players, 1, 0)}

	f := func(seed int64) bool {
		actions := append([]NightAction(nil), base...)
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(actions), func(i, j int) { actions[i], actions[j] = actions[j], actions[i] })

		res := night(players, actions...)
		if !find(res.Players, "p4").IsAlive {
			t.Errorf("Order %v: protected target died", actions)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func TestNightNeverRaisesTheDead(t *testing.T) {
	var pool []RoleID
	for _, r := range Roles() {
		pool = append(pool, r.ID)
	}
	pool = append(pool, "Necromancer")

	f := func(seed int64) bool {
		rng := rand.New(rand.NewSource(seed))
		roles := make([]RoleID, 8)
		for i := range roles {
			roles[i] = pool[rng.Intn(len(pool))]
		}
		players := seat(roles...)
		players[rng.Intn(len(players))].IsAlive = false

		var actions []NightAction
		for i := range players {
			a := NewAction(players[i], players[rng.Intn(len(players))].ID, players[rng.Intn(len(players))].ID, KindNone)
			actions = append(actions, a)
		}
		before := ClonePlayers(players)

		res := ResolveNight(GameState{
			Turn:    1 + rng.Intn(4),
			Players: players,
			Actions: actions,
			Effects: GlobalEffects{WolfExtraKills: rng.Intn(2)},
		})

		if AliveCount(res.Players) > AliveCount(before) {
			t.Errorf("Alive count grew from %d to %d", AliveCount(before), AliveCount(res.Players))
			return false
		}
		if !reflect.DeepEqual(players, before) {
			t.Errorf("Input roster was modified")
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 50}); err != nil {
		t.Error(err)
	}
}

func TestFlagsResetEachNight(t *testing.T) {
	players := seat(RoleWerewolf, RoleVillager, RoleVillager, RoleVillager)
	players[1].Flags = Flags{Silenced: true, Banished: true, Protected: true}
	players[1].PrivateResult = "old news"

	res := night(players)

	p := find(res.Players, "p2")
	if p.Flags != (Flags{}) {
		t.Errorf("Expected flags to be cleared, got %+v", p.Flags)
	}
	if p.PrivateResult != "" {
		t.Errorf("Expected private result to be cleared, got %q", p.PrivateResult)
	}
}

func TestCursedBecomesWerewolfWhenBitten(t *testing.T) {
	players := seat(RoleWerewolf, RoleCursed, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	res := night(players, act(players, 0, 1))

	p := find(res.Players, "p2")
	if !p.IsAlive {
		t.Fatalf("Cursed should survive a bite")
	}
	if p.Role != RoleWerewolf {
		t.Errorf("Expected Cursed to turn into %s, got %s", RoleWerewolf, p.Role)
	}
}

func TestUnstoppableKillBypassesCurse(t *testing.T) {
	players := seat(RoleSerialKiller, RoleWerewolf, RoleCursed, RoleToughGuy, RoleVillager, RoleVillager, RoleVillager)

	res := night(players,
		act(players, 0, 2),
		act(players, 1, 2),
	)
	cursed := find(res.Players, "p3")
	if cursed.IsAlive {
		t.Errorf("Cursed hit by an unstoppable kill should die")
	}
	if cursed.Role != RoleCursed {
		t.Errorf("Cursed should die without transforming, got %s", cursed.Role)
	}

	res = night(players, act(players, 0, 3))
	if find(res.Players, "p4").IsAlive {
		t.Errorf("Tough Guy hit by an unstoppable kill should die the same night")
	}
}

func TestToughGuyDiesTheFollowingNight(t *testing.T) {
	players := seat(RoleWerewolf, RoleToughGuy, RoleVillager, RoleVillager, RoleVillager)

	state := GameState{Phase: PhaseNight, Turn: 1, Players: players, Actions: []NightAction{act(players, 0, 1)}}
	state, res := AdvanceNight(state)
	if !find(res.Players, "p2").IsAlive {
		t.Fatalf("Tough Guy should survive the night he is bitten")
	}
	if got := find(res.Players, "p2").Attributes.DelayedDeathTurn; got != 2 {
		t.Errorf("Expected delayed death on turn 2, got %d", got)
	}

	state.Turn = 2
	state.Phase = PhaseNight
	_, res = AdvanceNight(state)
	if find(res.Players, "p2").IsAlive {
		t.Errorf("Tough Guy should die on the following night")
	}
}

func TestDiseasedDisablesNextHunt(t *testing.T) {
	players := seat(RoleWerewolf, RoleDiseased, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	state, res := AdvanceNight(GameState{Turn: 1, Players: players, Actions: []NightAction{act(players, 0, 1)}})
	if find(res.Players, "p2").IsAlive {
		t.Fatalf("Diseased should die when bitten")
	}
	if !res.Effects.WolvesDisabled {
		t.Fatalf("Expected wolves to be disabled for the next night")
	}

	state.Actions = []NightAction{act(state.Players, 0, 2)}
	res = ResolveNight(state)
	if !find(res.Players, "p3").IsAlive {
		t.Errorf("Sick wolves should not be able to kill")
	}
	if res.Effects.WolvesDisabled {
		t.Errorf("Sickness should only last one night")
	}
}

func TestWolfCubDeathGrantsSecondBite(t *testing.T) {
	players := seat(RoleWolfCub, RoleWerewolf, RoleVillager, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	vote := ResolveVoting(players, map[string]string{"p3": "p1", "p4": "p1", "p5": "p1"}, 1)
	if vote.Effects.WolfExtraKills != 1 {
		t.Fatalf("Expected one extra kill after the Wolf Cub died, got %d", vote.Effects.WolfExtraKills)
	}

	bite := NewAction(find(vote.Players, "p2"), "p3", "p4", KindNone)
	res := ResolveNight(GameState{Turn: 2, Players: vote.Players, Actions: []NightAction{bite}, Effects: vote.Effects})
	if find(res.Players, "p3").IsAlive || find(res.Players, "p4").IsAlive {
		t.Errorf("Both bite targets should die")
	}

	res = ResolveNight(GameState{Turn: 2, Players: vote.Players, Actions: []NightAction{bite}})
	if !find(res.Players, "p4").IsAlive {
		t.Errorf("Secondary target should be ignored without extra kills")
	}
}

func TestLoversDieTogetherAtNight(t *testing.T) {
	players := seat(RoleWerewolf, RoleCupid, RoleVillager, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	pair := NewAction(players[1], "p3", "p4", KindNone)
	res := night(players, pair, act(players, 0, 2))

	if find(res.Players, "p3").IsAlive || find(res.Players, "p4").IsAlive {
		t.Errorf("Both lovers should die")
	}
	if !logContains(res.Log, "broken heart") {
		t.Errorf("Expected a heartbreak line, got %v", res.Log)
	}
	if !find(res.Players, "p2").HasUsedAbility {
		t.Errorf("Cupid's pairing should be spent")
	}
}

func TestDireWolfDiesWithBoundPartner(t *testing.T) {
	players := seat(RoleDireWolf, RoleWerewolf, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	res := night(players, act(players, 0, 2), act(players, 1, 2))

	if find(res.Players, "p1").IsAlive {
		t.Errorf("Dire Wolf should die with its bound partner")
	}
	if !logContains(res.Log, "soul bond") {
		t.Errorf("Expected a soul bond line, got %v", res.Log)
	}
	if got := NewAction(find(res.Players, "p1"), "p4", "", KindNone).Kind; got != KindBite {
		t.Errorf("A bound Dire Wolf should default to biting, got %s", got)
	}
}

func TestHunterTakesArmedTargetDown(t *testing.T) {
	players := seat(RoleWerewolf, RoleWerewolf, RoleHunter, RoleVillager, RoleVillager, RoleVillager)

	res := night(players, act(players, 2, 0), act(players, 1, 2))

	if find(res.Players, "p3").IsAlive {
		t.Fatalf("Hunter should die")
	}
	if find(res.Players, "p1").IsAlive {
		t.Errorf("Hunter's armed target should die with him")
	}
	if len(res.Deaths) != 2 {
		t.Errorf("Expected 2 deaths, got %v", res.Deaths)
	}
}

func TestApprenticeInheritsSeer(t *testing.T) {
	players := seat(RoleWerewolf, RoleSeer, RoleApprenticeSeer, RoleVillager, RoleVillager, RoleVillager)

	res := night(players, act(players, 0, 1))

	if find(res.Players, "p2").IsAlive {
		t.Fatalf("Seer should die")
	}
	if got := find(res.Players, "p3").Role; got != RoleSeer {
		t.Errorf("Apprentice should become %s, got %s", RoleSeer, got)
	}
}

func TestChangelingTakesOverDeadTarget(t *testing.T) {
	players := seat(RoleWerewolf, RoleWitch, RoleChangeling, RoleVillager, RoleVillager, RoleVillager)
	players[1].Attributes.HealPotionUsed = true

	res := night(players, act(players, 2, 1), act(players, 0, 1))

	p := find(res.Players, "p3")
	if p.Role != RoleWitch {
		t.Fatalf("Changeling should become %s, got %s", RoleWitch, p.Role)
	}
	if p.HasUsedAbility || p.Attributes.HealPotionUsed || p.Attributes.IdentityTargetID != "" {
		t.Errorf("Inherited role should start fresh, got %+v used=%v", p.Attributes, p.HasUsedAbility)
	}
}

func TestTransformationIsIdempotent(t *testing.T) {
	r := newRoster(seat(RoleWerewolf, RoleSeer, RoleApprenticeSeer, RoleDoppelganger, RoleVillager))
	r.get("p4").Attributes.IdentityTargetID = "p2"
	d := newDeathTracker(r, 1)
	d.kill(r.get("p2"), "gone")

	d.transform()
	once := ClonePlayers(r.players)
	d.transform()

	if !reflect.DeepEqual(once, r.players) {
		t.Errorf("Second transformation pass changed the roster")
	}
	if r.get("p4").Role != RoleSeer {
		t.Errorf("Doppelganger should have become the Seer, got %s", r.get("p4").Role)
	}
	if r.get("p3").Role != RoleApprenticeSeer {
		t.Errorf("Apprentice should wait while a Seer lives, got %s", r.get("p3").Role)
	}
}

func TestWitchPotionsAreSingleUse(t *testing.T) {
	players := seat(RoleWerewolf, RoleWitch, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	state, res := AdvanceNight(GameState{Turn: 1, Players: players, Actions: []NightAction{act(players, 1, 2), act(players, 0, 2)}})
	if !find(res.Players, "p3").IsAlive {
		t.Fatalf("Healed target should survive")
	}
	if !find(res.Players, "p2").Attributes.HealPotionUsed {
		t.Fatalf("Heal potion should be spent")
	}

	state.Turn = 2
	state.Actions = []NightAction{act(state.Players, 1, 2), act(state.Players, 0, 2)}
	state, res = AdvanceNight(state)
	if find(res.Players, "p3").IsAlive {
		t.Errorf("Second heal should do nothing")
	}

	poison := NewAction(find(state.Players, "p2"), "p4", "", KindPoison)
	if poison.Priority != TierLethal {
		t.Errorf("Poison should resolve with lethal actions, got tier %d", poison.Priority)
	}
	state.Turn = 3
	state.Actions = []NightAction{poison}
	state, res = AdvanceNight(state)
	if find(res.Players, "p4").IsAlive {
		t.Errorf("Poisoned target should die")
	}

	state.Turn = 4
	state.Actions = []NightAction{NewAction(find(state.Players, "p2"), "p5", "", KindPoison)}
	_, res = AdvanceNight(state)
	if !find(res.Players, "p5").IsAlive {
		t.Errorf("Second poison should do nothing")
	}
}

func TestInvestigations(t *testing.T) {
	players := seat(RoleSeer, RoleWolfMan, RoleMedium, RoleLycan, RoleVillager, RoleVillager)
	players[4].IsAlive = false
	players[4].Role = RoleHunter

	res := night(players, act(players, 0, 1), act(players, 2, 4))

	if got := find(res.Players, "p1").PrivateResult; !strings.Contains(got, "as a Villager") {
		t.Errorf("Seer should see the Wolf Man as a Villager, got %q", got)
	}
	if !find(res.Players, "p2").Flags.Revealed {
		t.Errorf("Investigated player should be flagged as revealed")
	}
	if got := find(res.Players, "p3").PrivateResult; !strings.Contains(got, "was a Hunter") {
		t.Errorf("Medium should learn the dead player's true role, got %q", got)
	}

	res = night(players, act(players, 0, 3))
	if got := find(res.Players, "p1").PrivateResult; !strings.Contains(got, "as a Werewolf") {
		t.Errorf("Seer should see the Lycan as a Werewolf, got %q", got)
	}
}

func TestRevealerMisfireKillsRevealer(t *testing.T) {
	players := seat(RoleRevealer, RoleLycan, RoleVillager, RoleWerewolf, RoleVillager, RoleVillager)

	res := night(players, act(players, 0, 2))
	if find(res.Players, "p1").IsAlive {
		t.Errorf("Revealer should die after exposing a villager")
	}

	res = night(players, act(players, 0, 1))
	if find(res.Players, "p2").IsAlive {
		t.Errorf("Revealer should kill a player who looks like a wolf")
	}
	if !find(res.Players, "p1").IsAlive {
		t.Errorf("Revealer should survive a successful exposure")
	}
}

func TestInsomniacWatchesNeighbours(t *testing.T) {
	players := seat(RoleVillager, RoleInsomniac, RoleSeer, RoleWerewolf, RoleVillager)

	res := night(players, act(players, 2, 3), act(players, 1, 1))

	got := find(res.Players, "p2").PrivateResult
	if !strings.Contains(got, "P1 slept soundly") || !strings.Contains(got, "P3 stirred") {
		t.Errorf("Unexpected insomniac report %q", got)
	}
}

func TestInsomniacNeedsThreeLivingPlayers(t *testing.T) {
	players := seat(RoleInsomniac, RoleWerewolf, RoleVillager)
	players[2].IsAlive = false

	res := night(players, act(players, 0, 0))

	got := find(res.Players, "p1").PrivateResult
	if strings.Contains(got, "P2") || strings.Contains(got, "P1") {
		t.Errorf("Insomniac should not report on a lone neighbour or itself, got %q", got)
	}
	if !strings.Contains(got, "Too few neighbours") {
		t.Errorf("Expected a too-few-neighbours report, got %q", got)
	}
}

func TestTroublemakerForcesDoubleExecution(t *testing.T) {
	players := seat(RoleTroublemaker, RoleWerewolf, RoleVillager, RoleVillager)

	res := night(players, act(players, 0, 2))

	if res.NextExecutionCount != 2 {
		t.Errorf("Expected next execution count 2, got %d", res.NextExecutionCount)
	}
	if !find(res.Players, "p1").HasUsedAbility {
		t.Errorf("Troublemaker ability should be spent")
	}
	if CanSubmit(&res.Players[0], &res.Players[2], KindNone) {
		t.Errorf("Spent Troublemaker should not be able to submit again")
	}
}

func TestMalformedActionsAreSkipped(t *testing.T) {
	players := seat(RoleWerewolf, RoleVillager, RoleVillager, RoleVillager, "Necromancer")
	dead := seat(RoleWerewolf)[0]
	dead.ID, dead.IsAlive = "p9", false
	players = append(players, dead)

	res := night(players,
		NightAction{ID: "ghost", ActorID: "nobody", TargetID: "p2", Kind: KindBite, Priority: TierLethal},
		NightAction{ID: "stale", ActorID: "p1", TargetID: "nobody", Kind: KindBite, Priority: TierLethal},
		NightAction{ID: "dead", ActorID: "p9", TargetID: "p3", Kind: KindBite, Priority: TierLethal},
		NightAction{ID: "forged", ActorID: "p2", TargetID: "p3", Kind: KindBite, Priority: TierLethal},
		act(players, 4, 3),
	)

	if len(res.Deaths) != 0 {
		t.Errorf("Expected no deaths from malformed actions, got %v", res.Deaths)
	}
	if StrategyFor("Necromancer").Priority(KindNone) != TierPassive {
		t.Errorf("Unknown roles should fall back to the passive strategy")
	}
}

func TestBodyguardCannotRepeatTarget(t *testing.T) {
	players := seat(RoleWerewolf, RoleBodyguard, RoleVillager, RoleVillager, RoleVillager, RoleVillager)

	state, _ := AdvanceNight(GameState{Turn: 1, Players: players, Actions: []NightAction{act(players, 1, 2)}})
	guard := find(state.Players, "p2")
	if guard.Attributes.LastTargetID != "p3" {
		t.Fatalf("Expected last target p3, got %q", guard.Attributes.LastTargetID)
	}
	target := find(state.Players, "p3")
	if CanSubmit(&guard, &target, KindNone) {
		t.Errorf("Bodyguard should not be allowed to guard the same player twice in a row")
	}

	state.Turn = 2
	state.Actions = []NightAction{act(state.Players, 1, 2), act(state.Players, 0, 2)}
	_, res := AdvanceNight(state)
	if find(res.Players, "p3").IsAlive {
		t.Errorf("Repeated guard should be ignored")
	}
}

func TestRoleblockedApplyIsNoop(t *testing.T) {
	var target Flags
	actor := Flags{Roleblocked: true}

	StrategyFor(RoleBodyguard).Apply(NightAction{Kind: KindProtect}, &target, &actor)

	if target.Protected {
		t.Errorf("Roleblocked actor should not protect anyone")
	}
}

func TestCultAndHoodlumSetup(t *testing.T) {
	players := seat(RoleCultLeader, RoleHoodlum, RoleVillager, RoleVillager, RoleWerewolf)

	res := night(players,
		act(players, 0, 2),
		NewAction(players[1], "p4", "p5", KindNone),
	)

	if !find(res.Players, "p3").Attributes.CultMember {
		t.Errorf("Recruited player should be a cult member")
	}
	if got := find(res.Players, "p2").Attributes.HitList; !reflect.DeepEqual(got, []string{"p4", "p5"}) {
		t.Errorf("Expected hit list [p4 p5], got %v", got)
	}
}

func TestWitchCannotPoisonHerself(t *testing.T) {
	players := seat(RoleWitch, RoleWerewolf, RoleVillager, RoleVillager, RoleVillager)
	witch := players[0]

	if CanSubmit(&witch, &witch, KindPoison) {
		t.Errorf("Witch should not be allowed to poison herself")
	}
	if !CanSubmit(&witch, &witch, KindHeal) {
		t.Errorf("Witch should be allowed to heal herself")
	}

	res := night(players, NewAction(witch, witch.ID, "", KindPoison))
	if !find(res.Players, "p1").IsAlive {
		t.Errorf("A forged self-poison should be skipped")
	}
	if find(res.Players, "p1").Attributes.PoisonPotionUsed {
		t.Errorf("A skipped poison should not be spent")
	}
}

func TestSpentAbilitiesAreRefused(t *testing.T) {
	tests := []struct {
		name  string
		role  RoleID
		kind  ActionKind
		spend func(p *Player)
	}{
		{
			name:  "heal potion",
			role:  RoleWitch,
			kind:  KindHeal,
			spend: func(p *Player) { p.Attributes.HealPotionUsed = true },
		},
		{
			name:  "poison potion",
			role:  RoleWitch,
			kind:  KindPoison,
			spend: func(p *Player) { p.Attributes.PoisonPotionUsed = true },
		},
		{
			name:  "dire wolf bind",
			role:  RoleDireWolf,
			kind:  KindBind,
			spend: func(p *Player) { p.Attributes.BoundPartnerID = "p3" },
		},
		{
			name:  "priest purge",
			role:  RolePriest,
			kind:  KindPurge,
			spend: func(p *Player) { p.HasUsedAbility = true },
		},
		{
			name:  "troublemaker disruption",
			role:  RoleTroublemaker,
			kind:  KindDisrupt,
			spend: func(p *Player) { p.HasUsedAbility = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players := seat(tt.role, RoleVillager, RoleVillager)
			actor, target := players[0], players[1]

			if !CanSubmit(&actor, &target, tt.kind) {
				t.Fatalf("Fresh %s should be allowed to %s", tt.role, tt.kind)
			}
			tt.spend(&actor)
			if CanSubmit(&actor, &target, tt.kind) {
				t.Errorf("Spent %s should not be allowed to %s again", tt.role, tt.kind)
			}
		})
	}

	players := seat(RoleDireWolf, RoleVillager, RoleVillager)
	players[0].Attributes.BoundPartnerID = "p3"
	if !CanSubmit(&players[0], &players[1], KindBite) {
		t.Errorf("A bound Dire Wolf should still be allowed to bite")
	}
}
