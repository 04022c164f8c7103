package engine

import "testing"

func TestPublicRosterHidesRolesUntilGameOver(t *testing.T) {
	players := seat(RoleWerewolf, RoleSeer, RolePrince)
	players[1].PrivateResult = "P1 is a Werewolf."
	players[2].HasUsedAbility = true
	players[1].Flags.Revealed = true

	for _, p := range PublicRoster(players, PhaseDay) {
		if p.Role != RoleUnknown {
			t.Errorf("Expected %s to be hidden during the day, got %s", p.Name, p.Role)
		}
	}
	public := PublicRoster(players, PhaseDay)
	if !public[2].Revealed {
		t.Errorf("A revealed Prince should be marked as revealed")
	}
	if public[1].Revealed {
		t.Errorf("Only a spared Prince is revealed to everyone")
	}

	for i, p := range PublicRoster(players, PhaseGameOver) {
		if p.Role != players[i].Role {
			t.Errorf("Expected %s to be shown after the game, got %s", players[i].Role, p.Role)
		}
	}
}

func TestCatalogFallsBackToUnknown(t *testing.T) {
	r := RoleFor("Necromancer")
	if r.Alignment != AlignmentUnknown {
		t.Errorf("Expected unknown alignment, got %s", r.Alignment)
	}
	if Known("Necromancer") || Known(RoleUnknown) {
		t.Errorf("Uncatalogued roles should not be dealable")
	}
	if got := RoleFor(RoleWolfMan).SeenAs(); got != RoleVillager {
		t.Errorf("Wolf Man should be seen as %s, got %s", RoleVillager, got)
	}
	for _, role := range Roles() {
		if role.Alignment == AlignmentUnknown {
			t.Errorf("%s has no alignment", role.ID)
		}
	}
}
