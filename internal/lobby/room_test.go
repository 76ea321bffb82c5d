package lobby

import (
	"testing"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, pc PlayerCount) *room {
	t.Helper()
	settings, mode, err := Settings{
		Version: "14.1", DraftMode: "quick", MatchFormat: "bo1", PlayerCount: pc, TimeLimit: "30",
	}.Normalize(engine.DefaultModes())
	require.NoError(t, err)
	return newRoom("ROOM0001", settings, mode)
}

func TestSettings_Normalize(t *testing.T) {
	modes := engine.DefaultModes()
	valid := Settings{Version: "14.1", DraftMode: "Fearless", MatchFormat: "BO3", PlayerCount: "Team", TimeLimit: "30"}

	got, mode, err := valid.Normalize(modes)
	require.NoError(t, err)
	assert.Equal(t, "fearless", got.DraftMode)
	assert.Equal(t, PlayerCountTeam, got.PlayerCount)
	assert.Equal(t, 2, got.WinsRequired())
	assert.True(t, mode.Fearless)

	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "missing version", mutate: func(s *Settings) { s.Version = "" }},
		{name: "missing time limit", mutate: func(s *Settings) { s.TimeLimit = " " }},
		{name: "bad player count", mutate: func(s *Settings) { s.PlayerCount = "duo" }},
		{name: "bad match format", mutate: func(s *Settings) { s.MatchFormat = "bo4" }},
		{name: "unknown draft mode", mutate: func(s *Settings) { s.DraftMode = "allrandom" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			_, _, err := s.Normalize(modes)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestPlayerCount_Capacity(t *testing.T) {
	assert.Equal(t, 1, PlayerCountSolo.Capacity())
	assert.Equal(t, 2, PlayerCountRepresentative.Capacity())
	assert.Equal(t, 10, PlayerCountTeam.Capacity())
	assert.False(t, PlayerCountSolo.Live())
	assert.True(t, PlayerCountTeam.Live())
}

func TestRoom_UpdateTeamValidation(t *testing.T) {
	r := newTestRoom(t, PlayerCountTeam)
	a, err := r.join("a")
	require.NoError(t, err)
	b, err := r.join("b")
	require.NoError(t, err)

	_, err = r.updateTeam(a.ID, TeamBlue, ptr(2))
	require.NoError(t, err)

	cases := []struct {
		name     string
		userID   string
		team     Team
		position *int
		wantErr  error
	}{
		{name: "unknown user", userID: "missing", team: TeamBlue, wantErr: ErrUserNotFound},
		{name: "unknown team", userID: b.ID, team: "GREEN", wantErr: ErrInvalidTeam},
		{name: "position out of range", userID: b.ID, team: TeamRed, position: ptr(5), wantErr: ErrInvalidPosition},
		{name: "negative position", userID: b.ID, team: TeamRed, position: ptr(-1), wantErr: ErrInvalidPosition},
		{name: "position taken", userID: b.ID, team: TeamBlue, position: ptr(2), wantErr: ErrPositionTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := r.snapshot()
			_, err := r.updateTeam(tc.userID, tc.team, tc.position)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, before, r.snapshot(), "rejected update must not mutate")
		})
	}
}

func TestRoom_UpdateTeamAutoPosition(t *testing.T) {
	r := newTestRoom(t, PlayerCountTeam)
	a, _ := r.join("a")
	b, _ := r.join("b")

	_, err := r.updateTeam(a.ID, TeamBlue, ptr(0))
	require.NoError(t, err)
	got, err := r.updateTeam(b.ID, "blue", nil)
	require.NoError(t, err)
	require.NotNil(t, got.Position)
	assert.Equal(t, 1, *got.Position)
	assert.Equal(t, TeamBlue, got.Team)

	got, err = r.updateTeam(b.ID, TeamSpectator, ptr(3))
	require.NoError(t, err)
	assert.Nil(t, got.Position)
}

func TestRoom_SideFullEvenWithRoomSpace(t *testing.T) {
	r := newTestRoom(t, PlayerCountRepresentative)
	a, _ := r.join("a")
	b, _ := r.join("b")

	_, err := r.updateTeam(a.ID, TeamBlue, nil)
	require.NoError(t, err)
	_, err = r.updateTeam(b.ID, TeamBlue, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestRoom_SoloActsForBothSides(t *testing.T) {
	r := newTestRoom(t, PlayerCountSolo)
	u, _ := r.join("solo")
	_, err := r.updateTeam(u.ID, TeamRed, nil)
	require.NoError(t, err)
	_, err = r.updateReady(u.ID, true)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, r.status)

	// quick order opens with a team1 ban, then a team2 ban
	_, err = r.act(u.ID, engine.CmdBan, "Zed")
	require.NoError(t, err)
	_, err = r.act(u.ID, engine.CmdBan, "Ahri")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "Ahri"}, r.draft.Bans)
}

func TestRoom_LeaveAfterStartKeepsStatus(t *testing.T) {
	r := newTestRoom(t, PlayerCountSolo)
	a, _ := r.join("a")
	_, err := r.updateTeam(a.ID, TeamBlue, nil)
	require.NoError(t, err)
	_, err = r.updateReady(a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, r.status)

	_, err = r.leave(a.ID)
	require.NoError(t, err)
	assert.Empty(t, r.users)
	assert.Equal(t, StatusInProgress, r.status, "started rooms never regress")
}

func TestRoom_SetInvariantHoldsThroughSeries(t *testing.T) {
	r := newTestRoom(t, PlayerCountSolo)
	r.settings.MatchFormat = "bo5"
	u, _ := r.join("solo")
	_, _ = r.updateTeam(u.ID, TeamBlue, nil)
	_, _ = r.updateReady(u.ID, true)

	winners := []engine.Side{engine.SideTeam1, engine.SideTeam2, engine.SideTeam2, engine.SideTeam1, engine.SideTeam2}
	for i, w := range winners {
		assert.Equal(t, len(r.results)+1, r.currentSet)
		ack, err := r.submitResult(GameResult{Winner: w, Score: Score{Team1: 1}})
		require.NoError(t, err)
		if i < len(winners)-1 {
			assert.Equal(t, StatusInProgress, ack.Status)
		}
	}
	assert.Equal(t, StatusCompleted, r.status)
	assert.Equal(t, 6, r.currentSet)
	assert.Equal(t, engine.PhaseIdle, r.draft.Phase)
}
