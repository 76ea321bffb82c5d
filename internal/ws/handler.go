package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/apierr"
	"github.com/DoyleJ11/draft-rooms/internal/hub"
	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"github.com/DoyleJ11/draft-rooms/internal/registry"
	"github.com/DoyleJ11/draft-rooms/internal/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const maxMessageSize = 4096

type Config struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
}

// Handler serves GET /ws/draft?id={code}&spectator={bool}&userId={id}.
func Handler(reg *registry.Registry, cfg Config, log *zap.Logger) http.HandlerFunc {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("id")
		if code == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		lb, err := reg.Get(code)
		if err != nil {
			http.Error(w, apierr.Detail(err), http.StatusNotFound)
			return
		}

		role := hub.RoleParticipant
		if strings.EqualFold(q.Get("spectator"), "true") {
			role = hub.RoleSpectator
		}

		// Attach before upgrading so refusals surface as plain HTTP errors.
		c, err := lb.Attach(r.Context(), role, q.Get("userId"))
		if err != nil {
			_, status := apierr.Classify(err)
			log.Warn("connection refused", zap.String("room", code), zap.String("role", string(role)), zap.Error(err))
			http.Error(w, apierr.Detail(err), status)
			return
		}
		defer lb.Detach(context.Background(), c.ID)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(maxMessageSize)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go writePump(ctx, cancel, conn, c, cfg)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						log.Debug("read failed", zap.String("room", code), zap.String("client", c.ID), zap.Error(err))
					}
				}
				return
			}

			cmd, err := decode(data)
			if err == nil {
				err = lb.Dispatch(ctx, c, cmd)
			}
			if err != nil {
				errCode, _ := apierr.Classify(err)
				c.Send(types.ErrorFrame(errCode, apierr.Detail(err)))
			}
		}
	}
}

// writePump is the only writer on conn. It exits when the outbox closes or
// a write fails, cancelling the reader with it.
func writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *hub.Conn, cfg Config) {
	defer cancel()

	var ping <-chan time.Time
	if cfg.PingInterval > 0 {
		t := time.NewTicker(cfg.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-c.Out():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				return
			}

		case <-ping:
			pctx, pcancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		}
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrMalformedMessage, fmt.Sprintf(format, args...))
}

// decode turns a raw frame into a typed command, rejecting anything missing
// the fields its action needs.
func decode(data []byte) (lobby.Command, error) {
	var m types.ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, malformed("bad json")
	}

	switch m.Action {
	case types.ActionBan, types.ActionPick:
		if m.Champion == nil || strings.TrimSpace(*m.Champion) == "" {
			return nil, malformed("%s requires champion", m.Action)
		}
		if m.Action == types.ActionBan {
			return lobby.BanCommand{Champion: *m.Champion}, nil
		}
		return lobby.PickCommand{Champion: *m.Champion}, nil

	case types.ActionSubmitResult:
		if len(m.Result) == 0 || string(m.Result) == "null" {
			return nil, malformed("submit_result requires result")
		}
		var res lobby.GameResult
		if err := json.Unmarshal(m.Result, &res); err != nil {
			return nil, malformed("bad result")
		}
		return lobby.SubmitResultCommand{Result: res}, nil

	case types.ActionUpdateTeam:
		if m.UserID == nil || *m.UserID == "" {
			return nil, malformed("update_team requires userId")
		}
		if m.TeamData == nil {
			return nil, malformed("update_team requires teamData")
		}
		team, err := lobby.ParseTeam(m.TeamData.Team)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrMalformedMessage, err)
		}
		return lobby.UpdateTeamCommand{UserID: *m.UserID, Team: team, Position: m.TeamData.Position}, nil

	case types.ActionUpdateReady:
		if m.UserID == nil || *m.UserID == "" {
			return nil, malformed("update_ready requires userId")
		}
		if m.IsReady == nil {
			return nil, malformed("update_ready requires isReady")
		}
		return lobby.UpdateReadyCommand{UserID: *m.UserID, IsReady: *m.IsReady}, nil

	case "":
		return nil, malformed("missing action")
	default:
		return nil, malformed("unknown action %q", m.Action)
	}
}
