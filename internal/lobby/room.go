package lobby

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/google/uuid"
)

// room is the state owned by a Lobby's loop. Methods validate before they
// mutate, so a returned error always leaves the room unchanged.
type room struct {
	code       string
	settings   Settings
	status     Status
	users      []User
	draft      engine.State
	currentSet int
	results    []GameResult
}

func newRoom(code string, settings Settings, mode engine.Mode) *room {
	return &room{
		code:       code,
		settings:   settings,
		status:     StatusWaiting,
		users:      []User{},
		draft:      engine.NewIdleState(mode),
		currentSet: 1,
		results:    []GameResult{},
	}
}

func (r *room) userIndex(id string) int {
	return slices.IndexFunc(r.users, func(u User) bool { return u.ID == id })
}

func (r *room) user(id string) (User, error) {
	i := r.userIndex(id)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return r.users[i], nil
}

func (r *room) counts() (seated, ready int) {
	for _, u := range r.users {
		if !u.Seated() {
			continue
		}
		seated++
		if u.IsReady {
			ready++
		}
	}
	return seated, ready
}

func (r *room) allReady() bool {
	seated, ready := r.counts()
	return seated > 0 && ready == seated && seated >= r.settings.PlayerCount.Minimum()
}

// recomputeStatus applies the readiness gate. It only moves a room that has
// not started yet.
func (r *room) recomputeStatus() {
	if r.status != StatusWaiting && r.status != StatusReady {
		return
	}
	seated, ready := r.counts()
	switch {
	case r.allReady():
		r.status = StatusInProgress
		r.draft = engine.Start(r.draft)
	case seated > 0 && ready == seated:
		r.status = StatusReady
	default:
		r.status = StatusWaiting
	}
}

func (r *room) join(nickname string) (User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return User{}, ErrNicknameRequired
	}
	u := User{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Team:     TeamSpectator,
		IsHost:   len(r.users) == 0,
		JoinedAt: time.Now().UTC(),
	}
	r.users = append(r.users, u)
	return u, nil
}

func (r *room) updateTeam(userID string, team Team, position *int) (User, error) {
	i := r.userIndex(userID)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	team, err := ParseTeam(string(team))
	if err != nil {
		return User{}, err
	}
	u := r.users[i]

	if team == TeamSpectator {
		u.Team = TeamSpectator
		u.Position = nil
		r.users[i] = u
		r.recomputeStatus()
		return u, nil
	}

	pc := r.settings.PlayerCount
	seated, _ := r.counts()
	if !u.Seated() && seated+1 > pc.Capacity() {
		return User{}, fmt.Errorf("%w: %s rooms seat %d", ErrCapacityExceeded, pc, pc.Capacity())
	}

	taken := map[int]bool{}
	for _, other := range r.users {
		if other.ID != u.ID && other.Team == team && other.Position != nil {
			taken[*other.Position] = true
		}
	}
	if len(taken) >= pc.SeatsPerSide() {
		return User{}, fmt.Errorf("%w: %s is full", ErrCapacityExceeded, team)
	}

	var pos int
	if position == nil {
		for taken[pos] {
			pos++
		}
	} else {
		pos = *position
		if pos < 0 || pos >= pc.SeatsPerSide() {
			return User{}, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidPosition, pos, pc.SeatsPerSide())
		}
		if taken[pos] {
			return User{}, fmt.Errorf("%w: %s %d", ErrPositionTaken, team, pos)
		}
	}

	u.Team = team
	u.Position = &pos
	r.users[i] = u
	r.recomputeStatus()
	return u, nil
}

func (r *room) updateReady(userID string, isReady bool) (User, error) {
	i := r.userIndex(userID)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	r.users[i].IsReady = isReady
	r.recomputeStatus()
	return r.users[i], nil
}

// leave removes a user. Host passes to the earliest remaining joiner.
func (r *room) leave(userID string) (User, error) {
	i := r.userIndex(userID)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	u := r.users[i]
	r.users = slices.Delete(r.users, i, i+1)
	if u.IsHost && len(r.users) > 0 {
		r.users[0].IsHost = true
	}
	r.recomputeStatus()
	return u, nil
}

func (r *room) act(userID string, kind engine.CommandType, champion string) ([]engine.Event, error) {
	if r.status != StatusInProgress {
		return nil, fmt.Errorf("%w: room is %s", engine.ErrDraftNotActive, r.status)
	}
	u, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	side, seated := u.Team.Side()
	if !seated {
		return nil, fmt.Errorf("%w: %s is not seated", engine.ErrNotYourTurn, u.Nickname)
	}

	cmd := engine.Command{
		Type:     kind,
		Side:     side,
		AnySide:  r.settings.PlayerCount == PlayerCountSolo,
		Champion: strings.TrimSpace(champion),
	}
	events, next, err := engine.Apply(r.draft, cmd)
	if err != nil {
		return nil, err
	}
	r.draft = next
	return events, nil
}

func (r *room) wins(side engine.Side) int {
	n := 0
	for _, res := range r.results {
		if res.Winner == side {
			n++
		}
	}
	return n
}

func (r *room) submitResult(result GameResult) (ResultAck, error) {
	if r.status != StatusInProgress {
		return ResultAck{}, fmt.Errorf("%w: room is %s", ErrResultRejected, r.status)
	}
	if err := result.Validate(); err != nil {
		return ResultAck{}, err
	}

	r.results = append(r.results, result)
	r.currentSet++
	r.draft = engine.NextSet(r.draft)
	if r.wins(result.Winner) >= r.settings.WinsRequired() {
		r.status = StatusCompleted
		r.draft = engine.Stop(r.draft)
	}
	return ResultAck{Status: r.status, CurrentSet: r.currentSet}, nil
}

func (r *room) draftView() DraftView {
	v := DraftView{
		Phase: r.draft.Phase,
		Turn:  r.draft.Cursor,
		Total: len(r.draft.Sequence),
	}
	if step, ok := engine.CurrentStep(r.draft); ok {
		v.Side = step.Side
		v.Action = step.Action
	}
	return v
}

func (r *room) lobbyStatus() LobbyStatus {
	seated, _ := r.counts()
	return LobbyStatus{
		Status:     r.status,
		Users:      slices.Clone(r.users),
		AllReady:   r.allReady(),
		Seated:     seated,
		Capacity:   r.settings.PlayerCount.Capacity(),
		CurrentSet: r.currentSet,
	}
}

func (r *room) snapshot() Snapshot {
	return Snapshot{
		Code:       r.code,
		Bans:       slices.Clone(r.draft.Bans),
		Picks:      slices.Clone(r.draft.Picks),
		Settings:   r.settings,
		Status:     r.status,
		CurrentSet: r.currentSet,
		Results:    slices.Clone(r.results),
		Users:      slices.Clone(r.users),
		Draft:      r.draftView(),
	}
}
