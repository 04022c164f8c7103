package engine

import "sort"

// RoleID identifies a role in the catalog.
type RoleID string

const (
	RoleUnknown RoleID = "Unknown"

	// Village
	RoleVillager       RoleID = "Villager"
	RoleSeer           RoleID = "Seer"
	RoleBodyguard      RoleID = "Bodyguard"
	RoleHunter         RoleID = "Hunter"
	RoleMedium         RoleID = "Medium"
	RoleApprenticeSeer RoleID = "Apprentice Seer"
	RoleDrunk          RoleID = "Drunk"
	RolePriest         RoleID = "Priest"
	RoleTroublemaker   RoleID = "Troublemaker"
	RoleInsomniac      RoleID = "Insomniac"
	RoleMason          RoleID = "Mason"
	RoleWitch          RoleID = "Witch"
	RoleChangeling     RoleID = "Changeling"
	RolePrince         RoleID = "Prince"
	RoleRevealer       RoleID = "Revealer"
	RoleSpellcaster    RoleID = "Spellcaster"
	RoleToughGuy       RoleID = "Tough Guy"
	RoleVillagerIdiot  RoleID = "Villager Idiot"
	RoleLycan          RoleID = "Lycan"
	RoleCursed         RoleID = "Cursed"
	RoleCupid          RoleID = "Cupid"
	RoleOldHag         RoleID = "Old Hag"
	RoleDiseased       RoleID = "Diseased"

	// Werewolves
	RoleWerewolf RoleID = "Werewolf"
	RoleWolfMan  RoleID = "Wolf Man"
	RoleDireWolf RoleID = "Dire Wolf"
	RoleMinion   RoleID = "Minion"
	RoleWolfCub  RoleID = "Wolf Cub"
	RoleLoneWolf RoleID = "Lone Wolf"

	// Solo and neutral
	RoleSerialKiller RoleID = "Serial Killer"
	RoleJester       RoleID = "Jester"
	RoleTanner       RoleID = "Tanner"
	RoleDoppelganger RoleID = "Doppelganger"
	RoleCultLeader   RoleID = "Cult Leader"
	RoleHoodlum      RoleID = "Hoodlum"
)

// Alignment is the broad side a role counts toward in the majority rule.
type Alignment string

const (
	AlignmentGood    Alignment = "Good"
	AlignmentEvil    Alignment = "Evil"
	AlignmentNeutral Alignment = "Neutral"
	AlignmentUnknown Alignment = "Unknown"
)

// Faction labels
const (
	FactionVillage  = "Village"
	FactionWerewolf = "Werewolf"
	FactionCult     = "Cult"
	FactionSolo     = "Solo"
)

// Role is the immutable catalog entry for a role.
type Role struct {
	ID          RoleID    `json:"id"`
	Description string    `json:"description"`
	Ability     string    `json:"ability"`
	Alignment   Alignment `json:"alignment"`
	Faction     string    `json:"faction"`

	// InvestigationResult is what investigators see instead of ID. Empty means ID.
	InvestigationResult RoleID `json:"-"`

	// WinsOnExecution ends the game in this role's favour when the village executes it.
	WinsOnExecution bool `json:"-"`
	// ExecutionImmune survives one execution by revealing itself.
	ExecutionImmune bool `json:"-"`
}

// SeenAs returns the role an investigator perceives.
func (r Role) SeenAs() RoleID {
	if r.InvestigationResult != "" {
		return r.InvestigationResult
	}
	return r.ID
}

var catalog = map[RoleID]Role{
	RoleUnknown: {ID: RoleUnknown, Description: "A face in the crowd.", Alignment: AlignmentUnknown, Faction: FactionVillage},

	RoleVillager:       {ID: RoleVillager, Description: "No special powers. Finds the wolves through discussion and the vote.", Ability: "Vote", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleSeer:           {ID: RoleSeer, Description: "Each night, learns the role of one player.", Ability: "Investigate", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleBodyguard:      {ID: RoleBodyguard, Description: "Each night, shields one other player. Cannot guard the same player two nights running.", Ability: "Protect", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleHunter:         {ID: RoleHunter, Description: "Picks a target each night. If the Hunter dies, the target dies too.", Ability: "Retribution", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleMedium:         {ID: RoleMedium, Description: "Each night, learns the true role of one dead player.", Ability: "Commune", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleApprenticeSeer: {ID: RoleApprenticeSeer, Description: "Becomes the Seer once the Seer is dead.", Ability: "Inherit", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleDrunk:          {ID: RoleDrunk, Description: "Too drunk to act. Plays as a Villager.", Ability: "None", Alignment: AlignmentGood, Faction: FactionVillage},
	RolePriest:         {ID: RolePriest, Description: "Once per game, purges a player. A wolf dies; anyone else costs the Priest their life.", Ability: "Purge", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleTroublemaker:   {ID: RoleTroublemaker, Description: "Once per game, forces the next vote to execute two players.", Ability: "Disrupt", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleInsomniac:      {ID: RoleInsomniac, Description: "Learns at dawn whether the neighbours on either side acted in the night.", Ability: "Watch", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleMason:          {ID: RoleMason, Description: "Knows the other Masons.", Ability: "Brotherhood", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleWitch:          {ID: RoleWitch, Description: "Holds one healing potion and one poison, each usable once per game.", Ability: "Potions", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleChangeling:     {ID: RoleChangeling, Description: "Locks onto one player. If that player dies, takes over their role.", Ability: "Mimic", Alignment: AlignmentGood, Faction: FactionVillage},
	RolePrince:         {ID: RolePrince, Description: "Survives the first execution by revealing royal blood.", Ability: "Royalty", Alignment: AlignmentGood, Faction: FactionVillage, ExecutionImmune: true},
	RoleRevealer:       {ID: RoleRevealer, Description: "Exposes one player a night. A wolf dies; otherwise the Revealer dies.", Ability: "Expose", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleSpellcaster:    {ID: RoleSpellcaster, Description: "Each night, silences one player for the next day.", Ability: "Silence", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleToughGuy:       {ID: RoleToughGuy, Description: "Survives a wolf bite for one night, then succumbs.", Ability: "Endure", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleVillagerIdiot:  {ID: RoleVillagerIdiot, Description: "Must vote every day.", Ability: "Always vote", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleLycan:          {ID: RoleLycan, Description: "A villager with wolf blood. Investigators see a Werewolf.", Ability: "Tainted", Alignment: AlignmentGood, Faction: FactionVillage, InvestigationResult: RoleWerewolf},
	RoleCursed:         {ID: RoleCursed, Description: "A villager who turns into a Werewolf when bitten.", Ability: "Curse", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleCupid:          {ID: RoleCupid, Description: "Once per game, binds two players as lovers. If one dies, so does the other.", Ability: "Pair", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleOldHag:         {ID: RoleOldHag, Description: "Each night, banishes one player from the next day.", Ability: "Banish", Alignment: AlignmentGood, Faction: FactionVillage},
	RoleDiseased:       {ID: RoleDiseased, Description: "Wolves who devour the Diseased cannot hunt the following night.", Ability: "Contagion", Alignment: AlignmentGood, Faction: FactionVillage},

	RoleWerewolf: {ID: RoleWerewolf, Description: "Hunts a villager each night with the pack.", Ability: "Bite", Alignment: AlignmentEvil, Faction: FactionWerewolf},
	RoleWolfMan:  {ID: RoleWolfMan, Description: "A werewolf that investigators see as a Villager.", Ability: "Disguise", Alignment: AlignmentEvil, Faction: FactionWerewolf, InvestigationResult: RoleVillager},
	RoleDireWolf: {ID: RoleDireWolf, Description: "Binds its soul to one player. If that player dies, so does the Dire Wolf.", Ability: "Soul bond", Alignment: AlignmentEvil, Faction: FactionWerewolf},
	RoleMinion:   {ID: RoleMinion, Description: "Knows the wolves but is unknown to them.", Ability: "Scout", Alignment: AlignmentEvil, Faction: FactionWerewolf},
	RoleWolfCub:  {ID: RoleWolfCub, Description: "If the Wolf Cub dies, the pack kills twice the next night.", Ability: "Vengeance", Alignment: AlignmentEvil, Faction: FactionWerewolf},
	RoleLoneWolf: {ID: RoleLoneWolf, Description: "Hunts with the pack but wins only as the last wolf standing.", Ability: "Betrayal", Alignment: AlignmentEvil, Faction: FactionWerewolf},

	RoleSerialKiller: {ID: RoleSerialKiller, Description: "Kills one player each night. Nothing stops the blade. Wins as the sole survivor.", Ability: "Slay", Alignment: AlignmentEvil, Faction: FactionSolo},
	RoleJester:       {ID: RoleJester, Description: "Wins by getting executed by the village.", Ability: "Provoke", Alignment: AlignmentNeutral, Faction: FactionSolo, WinsOnExecution: true},
	RoleTanner:       {ID: RoleTanner, Description: "Hates the job. Wins by getting executed.", Ability: "Despair", Alignment: AlignmentNeutral, Faction: FactionSolo, WinsOnExecution: true},
	RoleDoppelganger: {ID: RoleDoppelganger, Description: "Locks onto one player on the first night and becomes them if they die.", Ability: "Mimic", Alignment: AlignmentNeutral, Faction: FactionSolo},
	RoleCultLeader:   {ID: RoleCultLeader, Description: "Recruits one player a night. Wins when every survivor is in the cult.", Ability: "Recruit", Alignment: AlignmentNeutral, Faction: FactionCult},
	RoleHoodlum:      {ID: RoleHoodlum, Description: "Names two marks on the first night. Wins by outliving both.", Ability: "Hit list", Alignment: AlignmentNeutral, Faction: FactionSolo},
}

// RoleFor looks up a role. Unknown identifiers resolve to the Unknown role.
func RoleFor(id RoleID) Role {
	if r, ok := catalog[id]; ok {
		return r
	}
	r := catalog[RoleUnknown]
	r.ID = id
	return r
}

// Known reports whether id is a catalogued, dealable role.
func Known(id RoleID) bool {
	_, ok := catalog[id]
	return ok && id != RoleUnknown
}

// Roles returns every dealable role sorted by alignment then name.
func Roles() []Role {
	roles := make([]Role, 0, len(catalog))
	for id, r := range catalog {
		if id == RoleUnknown {
			continue
		}
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Alignment != roles[j].Alignment {
			return roles[i].Alignment < roles[j].Alignment
		}
		return roles[i].ID < roles[j].ID
	})
	return roles
}
