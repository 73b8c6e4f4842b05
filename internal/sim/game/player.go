package game

import "racecore/internal/protocol"

const (
	TeamSpectators = -1
	TeamRed        = 0
	TeamBlue       = 1
)

const (
	WeaponGame  = -3
	WeaponSelf  = -2
	WeaponWorld = -1
)

type SkinInfo struct {
	Name           string
	UseCustomColor bool
	ColorBody      int
	ColorFeet      int
}

// Player is the occupant of one slot. Throttle clocks hold the server tick
// of the last accepted action, 0 meaning never.
type Player struct {
	ClientID int
	team     int

	Vote    int
	VotePos int

	LastChat       int64
	LastVoteTry    int64
	LastVoteCall   int64
	LastSetTeam    int64
	LastChangeInfo int64
	LastEmote      int64
	LastKill       int64
	LastShowOthers int64

	UsingRaceClient bool
	ShowOthers      bool

	Skin  SkinInfo
	Score int

	RespawnTick int64
	spawning    bool
	entered     bool
}

func newPlayer(slot, team int) *Player {
	return &Player{ClientID: slot, team: team}
}

func (p *Player) Team() int { return p.team }

func (p *Player) IsSpectator() bool { return p.team == TeamSpectators }

func (p *Player) info(name string, local bool) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ClientID:       p.ClientID,
		Name:           name,
		Team:           p.team,
		Skin:           p.Skin.Name,
		UseCustomColor: p.Skin.UseCustomColor,
		ColorBody:      p.Skin.ColorBody,
		ColorFeet:      p.Skin.ColorFeet,
		Score:          p.Score,
		Local:          local,
	}
}
