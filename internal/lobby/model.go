package lobby

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/DoyleJ11/draft-rooms/internal/hub"
)

var (
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrRoomFull         = errors.New("room full")
	ErrUserNotFound     = errors.New("user not found")
	ErrResultRejected   = errors.New("result rejected")
	ErrInvalidResult    = errors.New("invalid result")
	ErrInvalidTeam      = errors.New("invalid team")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrPositionTaken    = errors.New("position taken")
	ErrNicknameRequired = errors.New("nickname required")
	ErrNoLiveChannel    = errors.New("mode has no live channel")
	ErrSpectatorAction  = errors.New("spectators cannot perform actions")
	ErrLobbyClosed      = errors.New("lobby closed")
)

type PlayerCount string

const (
	PlayerCountSolo           PlayerCount = "solo"
	PlayerCountRepresentative PlayerCount = "representative"
	PlayerCountTeam           PlayerCount = "team"
)

func (p PlayerCount) Valid() bool {
	switch p {
	case PlayerCountSolo, PlayerCountRepresentative, PlayerCountTeam:
		return true
	}
	return false
}

// Capacity is the number of seated (non-spectator) members a room holds.
func (p PlayerCount) Capacity() int {
	switch p {
	case PlayerCountSolo:
		return 1
	case PlayerCountRepresentative:
		return 2
	case PlayerCountTeam:
		return 10
	}
	return 0
}

func (p PlayerCount) SeatsPerSide() int {
	switch p {
	case PlayerCountTeam:
		return 5
	case PlayerCountSolo, PlayerCountRepresentative:
		return 1
	}
	return 0
}

// Minimum seated members required before the draft can start.
func (p PlayerCount) Minimum() int { return p.Capacity() }

// Live reports whether the mode offers a WebSocket channel. Solo drafts run
// entirely client side.
func (p PlayerCount) Live() bool { return p.Valid() && p != PlayerCountSolo }

type Settings struct {
	Version     string      `json:"version"`
	DraftMode   string      `json:"draftMode"`
	MatchFormat string      `json:"matchFormat"`
	PlayerCount PlayerCount `json:"playerCount"`
	TimeLimit   string      `json:"timeLimit"`
}

var winsRequired = map[string]int{"bo1": 1, "bo3": 2, "bo5": 3}

// WinsRequired is the number of set wins that ends the series.
func (s Settings) WinsRequired() int { return winsRequired[s.MatchFormat] }

// Normalize validates s against the configured draft modes and returns the
// canonical form together with the resolved mode.
func (s Settings) Normalize(modes engine.ModeSet) (Settings, engine.Mode, error) {
	s.Version = strings.TrimSpace(s.Version)
	s.DraftMode = strings.ToLower(strings.TrimSpace(s.DraftMode))
	s.MatchFormat = strings.ToLower(strings.TrimSpace(s.MatchFormat))
	s.PlayerCount = PlayerCount(strings.ToLower(strings.TrimSpace(string(s.PlayerCount))))
	s.TimeLimit = strings.TrimSpace(s.TimeLimit)

	required := []struct{ name, value string }{
		{"version", s.Version},
		{"draftMode", s.DraftMode},
		{"matchFormat", s.MatchFormat},
		{"playerCount", string(s.PlayerCount)},
		{"timeLimit", s.TimeLimit},
	}
	for _, f := range required {
		if f.value == "" {
			return s, engine.Mode{}, fmt.Errorf("%w: %s is required", ErrInvalidSettings, f.name)
		}
	}

	if !s.PlayerCount.Valid() {
		return s, engine.Mode{}, fmt.Errorf("%w: playerCount must be solo, representative or team", ErrInvalidSettings)
	}
	if s.WinsRequired() == 0 {
		return s, engine.Mode{}, fmt.Errorf("%w: unknown matchFormat %q", ErrInvalidSettings, s.MatchFormat)
	}
	mode, ok := modes.Lookup(s.DraftMode)
	if !ok {
		return s, engine.Mode{}, fmt.Errorf("%w: unknown draftMode %q", ErrInvalidSettings, s.DraftMode)
	}
	return s, mode, nil
}

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Team string

const (
	TeamBlue      Team = "BLUE"
	TeamRed       Team = "RED"
	TeamSpectator Team = "SPECTATOR"
)

func ParseTeam(s string) (Team, error) {
	switch t := Team(strings.ToUpper(strings.TrimSpace(s))); t {
	case TeamBlue, TeamRed, TeamSpectator:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTeam, s)
}

// Side maps a seat colour to its drafting side.
func (t Team) Side() (engine.Side, bool) {
	switch t {
	case TeamBlue:
		return engine.SideTeam1, true
	case TeamRed:
		return engine.SideTeam2, true
	}
	return "", false
}

type User struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Team     Team      `json:"team"`
	Position *int      `json:"position"`
	IsReady  bool      `json:"isReady"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (u User) Seated() bool { return u.Team != TeamSpectator }

type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type GameResult struct {
	Winner engine.Side `json:"winner"`
	Score  Score       `json:"score"`
}

func (r GameResult) Validate() error {
	if !r.Winner.Valid() {
		return fmt.Errorf("%w: winner must be team1 or team2", ErrInvalidResult)
	}
	if r.Score.Team1 < 0 || r.Score.Team2 < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidResult)
	}
	return nil
}

// DraftView is the turn pointer as shown to clients.
type DraftView struct {
	Phase  engine.Phase  `json:"phase"`
	Turn   int           `json:"turn"`
	Total  int           `json:"total"`
	Side   engine.Side   `json:"side,omitempty"`
	Action engine.Action `json:"action,omitempty"`
}

// Snapshot is the full room state pushed after every mutation.
type Snapshot struct {
	Code         string              `json:"code"`
	Version      int                 `json:"version"`
	Bans         []string            `json:"bans"`
	Picks        []string            `json:"picks"`
	Settings     Settings            `json:"settings"`
	Status       Status              `json:"status"`
	Participants map[string]hub.Info `json:"participants"`
	Spectators   map[string]hub.Info `json:"spectators"`
	CurrentSet   int                 `json:"currentSet"`
	Results      []GameResult        `json:"results"`
	Users        []User              `json:"users"`
	Draft        DraftView           `json:"draft"`
}

type LobbyStatus struct {
	Status     Status `json:"status"`
	Users      []User `json:"users"`
	AllReady   bool   `json:"allReady"`
	Seated     int    `json:"seated"`
	Capacity   int    `json:"capacity"`
	CurrentSet int    `json:"currentSet"`
}

type ResultAck struct {
	Status     Status `json:"status"`
	CurrentSet int    `json:"currentSet"`
}
