package engine

// PublicPlayer is what every participant may see about a seat.
type PublicPlayer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     RoleID `json:"role"`
	IsAlive  bool   `json:"is_alive"`
	IsHost   bool   `json:"is_host"`
	Revealed bool   `json:"revealed,omitempty"`
}

// PublicRoster strips private state. Roles read Unknown until the game is over.
// A Prince who has spent his immunity stays publicly revealed.
func PublicRoster(players []Player, phase Phase) []PublicPlayer {
	out := make([]PublicPlayer, len(players))
	for i, p := range players {
		role := RoleUnknown
		if phase == PhaseGameOver {
			role = p.Role
		}
		out[i] = PublicPlayer{
			ID:       p.ID,
			Name:     p.Name,
			Role:     role,
			IsAlive:  p.IsAlive,
			IsHost:   p.IsHost,
			Revealed: p.HasUsedAbility && RoleFor(p.Role).ExecutionImmune,
		}
	}
	return out
}
