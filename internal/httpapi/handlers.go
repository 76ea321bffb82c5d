package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/draft-rooms/internal/apierr"
	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/store"
	"github.com/DoyleJ11/draft-rooms/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxBodyBytes        = 1 << 16
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryReader is the read side of the match archive.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]store.SeriesRecord, error)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code, status := apierr.Classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Detail: apierr.Detail(err)})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedMessage, err)
	}
	return nil
}

// lookup resolves the {code} path parameter to a live lobby.
func lookup(reg *registry.Registry, r *http.Request) (*lobby.Lobby, error) {
	return reg.Get(chi.URLParam(r, "code"))
}

func CreateRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var settings lobby.Settings
		if err := readJSON(w, r, &settings); err != nil {
			writeError(w, log, err)
			return
		}
		lb, err := reg.Create(settings)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			RoomID string `json:"room_id"`
		}{RoomID: lb.Code()})
	}
}

func GetRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		snap, err := lb.Snapshot(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func GetStatus(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		st, err := lb.LobbyStatus(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func SubmitResult(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var res lobby.GameResult
		if err := readJSON(w, r, &res); err != nil {
			writeError(w, log, err)
			return
		}
		ack, err := lb.SubmitResult(r.Context(), res)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}

func JoinRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var body struct {
			Nickname string `json:"nickname"`
		}
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := lb.Join(r.Context(), body.Nickname)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func UpdateTeam(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var body types.TeamData
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, log, err)
			return
		}
		team, err := lobby.ParseTeam(body.Team)
		if err != nil {
			writeError(w, log, err)
			return
		}
		u, err := lb.UpdateTeam(r.Context(), chi.URLParam(r, "userID"), team, body.Position)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func UpdateReady(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		var body struct {
			IsReady *bool `json:"isReady"`
		}
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, log, err)
			return
		}
		if body.IsReady == nil {
			writeError(w, log, fmt.Errorf("%w: isReady is required", types.ErrMalformedMessage))
			return
		}
		u, err := lb.UpdateReady(r.Context(), chi.URLParam(r, "userID"), *body.IsReady)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func LeaveRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := lookup(reg, r)
		if err != nil {
			writeError(w, log, err)
			return
		}
		u, err := lb.Leave(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func History(h HistoryReader, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, errorBody{Detail: "limit must be a positive integer"})
				return
			}
			limit = min(n, maxHistoryLimit)
		}
		recs, err := h.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
