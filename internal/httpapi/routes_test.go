package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHistory struct {
	recs  []store.SeriesRecord
	limit int
	err   error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.SeriesRecord, error) {
	f.limit = limit
	return f.recs, f.err
}

type api struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T, history HistoryReader) *api {
	t.Helper()
	reg := registry.New(context.Background(), registry.Options{})
	srv := httptest.NewServer(SetupRoutes(Deps{
		Registry:    reg,
		Logger:      zap.NewNop(),
		CORSOrigins: []string{"http://localhost:3000"},
		History:     history,
	}))
	t.Cleanup(func() {
		srv.Close()
		reg.Shutdown()
	})
	return &api{t: t, srv: srv}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (a *api) do(method, path string, body, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *api) createRoom(playerCount, format string) string {
	a.t.Helper()
	var created struct {
		RoomID string `json:"room_id"`
	}
	status := a.do(http.MethodPost, "/create-room", map[string]string{
		"version": "14.1", "draftMode": "tournament", "matchFormat": format,
		"playerCount": playerCount, "timeLimit": "30",
	}, &created)
	require.Equal(a.t, http.StatusOK, status)
	require.Len(a.t, created.RoomID, registry.CodeLength)
	return created.RoomID
}

func (a *api) join(code, nick string) lobby.User {
	a.t.Helper()
	var u lobby.User
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, "/game/"+code+"/join", map[string]string{"nickname": nick}, &u))
	return u
}

type detail struct {
	Detail string `json:"detail"`
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, nil)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", nil, nil))
}

func TestCreateRoom_InvalidSettings(t *testing.T) {
	a := newAPI(t, nil)

	var d detail
	status := a.do(http.MethodPost, "/create-room", map[string]string{
		"version": "1", "draftMode": "tournament", "matchFormat": "bo7",
		"playerCount": "team", "timeLimit": "30",
	}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, d.Detail, "invalid settings")

	status = a.do(http.MethodPost, "/create-room", map[string]string{"version": "1"}, &d)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownRoom(t *testing.T) {
	a := newAPI(t, nil)

	for _, path := range []string{"/game/NOPE1234", "/game/NOPE1234/status"} {
		var d detail
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, nil, &d))
		assert.Equal(t, "Room not found", d.Detail)
	}
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/game/NOPE1234/join", map[string]string{"nickname": "x"}, nil))
}

func TestLobbyFlow(t *testing.T) {
	a := newAPI(t, nil)
	code := a.createRoom("representative", "bo3")

	host := a.join(code, "alice")
	guest := a.join(code, "bob")
	assert.True(t, host.IsHost)
	assert.False(t, guest.IsHost)
	assert.Equal(t, lobby.TeamSpectator, host.Team)

	var u lobby.User
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/game/"+code+"/user/"+host.ID+"/team", map[string]any{"team": "BLUE"}, &u))
	assert.Equal(t, lobby.TeamBlue, u.Team)
	require.NotNil(t, u.Position)
	assert.Equal(t, 0, *u.Position)

	// BLUE has a single seat in representative mode
	var d detail
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPatch, "/game/"+code+"/user/"+guest.ID+"/team", map[string]any{"team": "BLUE"}, &d))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/game/"+code+"/user/"+guest.ID+"/team", map[string]any{"team": "GREEN"}, &d))
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/game/"+code+"/user/"+guest.ID+"/team", map[string]any{"team": "RED"}, &u))

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/game/"+code+"/user/"+host.ID+"/ready", map[string]any{}, &d))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, "/game/"+code+"/user/nobody/ready", map[string]any{"isReady": true}, &d))

	// results are refused before the draft starts
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/game/"+code+"/result", map[string]any{"winner": "team1", "score": map[string]int{"team1": 1}}, &d))

	for _, id := range []string{host.ID, guest.ID} {
		require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/game/"+code+"/user/"+id+"/ready", map[string]any{"isReady": true}, &u))
	}

	var st lobby.LobbyStatus
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/game/"+code+"/status", nil, &st))
	assert.Equal(t, lobby.StatusInProgress, st.Status)
	assert.True(t, st.AllReady)
	assert.Equal(t, 2, st.Seated)
	assert.Equal(t, 1, st.CurrentSet)

	var ack lobby.ResultAck
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/game/"+code+"/result", map[string]any{"winner": "team2", "score": map[string]int{"team2": 1}}, &ack))
	assert.Equal(t, lobby.StatusInProgress, ack.Status)
	assert.Equal(t, 2, ack.CurrentSet)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/game/"+code+"/result", map[string]any{"winner": "team3"}, &d))

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/game/"+code+"/result", map[string]any{"winner": "team2", "score": map[string]int{"team2": 2}}, &ack))
	assert.Equal(t, lobby.StatusCompleted, ack.Status)

	var snap lobby.Snapshot
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/game/"+code, nil, &snap))
	assert.Equal(t, code, snap.Code)
	assert.Len(t, snap.Results, 2)
	assert.Equal(t, lobby.StatusCompleted, snap.Status)
}

func TestLeaveRoom_PassesHost(t *testing.T) {
	a := newAPI(t, nil)
	code := a.createRoom("team", "bo1")
	host := a.join(code, "alice")
	next := a.join(code, "bob")

	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/game/"+code+"/user/"+host.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/game/"+code+"/user/"+host.ID, nil, nil))

	var st lobby.LobbyStatus
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/game/"+code+"/status", nil, &st))
	require.Len(t, st.Users, 1)
	assert.Equal(t, next.ID, st.Users[0].ID)
	assert.True(t, st.Users[0].IsHost)
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		a := newAPI(t, nil)
		assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/history", nil, nil))
	})

	t.Run("clamps limit", func(t *testing.T) {
		h := &fakeHistory{recs: []store.SeriesRecord{{Code: "ABCD1234", Winner: "team1", CompletedAt: time.Now()}}}
		a := newAPI(t, h)

		var recs []store.SeriesRecord
		require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/history?limit=500", nil, &recs))
		assert.Equal(t, maxHistoryLimit, h.limit)
		require.Len(t, recs, 1)
		assert.Equal(t, "ABCD1234", recs[0].Code)

		assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/history?limit=zero", nil, nil))
	})

	t.Run("store failure is not echoed", func(t *testing.T) {
		a := newAPI(t, &fakeHistory{err: errors.New("connection refused")})
		var d detail
		assert.Equal(t, http.StatusInternalServerError, a.do(http.MethodGet, "/history", nil, &d))
		assert.Equal(t, "internal error", d.Detail)
	})
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t, nil)
	req, err := http.NewRequest(http.MethodOptions, a.srv.URL+"/create-room", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t, []string{"localhost:3000", "example.com"}, originHosts([]string{"http://localhost:3000", "https://example.com", "::bad"}))
	assert.Equal(t, []string{"*"}, originHosts([]string{"http://a.test", "*"}))
}
