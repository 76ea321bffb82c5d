package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/DoyleJ11/draft-rooms/internal/hub"
	"github.com/DoyleJ11/draft-rooms/internal/types"
	"go.uber.org/zap"
)

const recordTimeout = 10 * time.Second

type Msg interface{ isLobbyMsg() }

type reply struct {
	val any
	err error
}

type join struct {
	Nickname string
	Reply    chan reply
}

type updateTeam struct {
	UserID   string
	Team     Team
	Position *int
	Reply    chan reply
}

type updateReady struct {
	UserID  string
	IsReady bool
	Reply   chan reply
}

type leave struct {
	UserID string
	Reply  chan reply
}

type act struct {
	UserID   string
	Type     engine.CommandType
	Champion string
	Reply    chan reply
}

type submitResult struct {
	Result GameResult
	Reply  chan reply
}

type attach struct {
	Role   hub.Role
	UserID string
	Reply  chan reply
}

type detach struct {
	ClientID string
	Reply    chan reply
}

type getSnapshot struct{ Reply chan reply }

type getStatus struct{ Reply chan reply }

type shutdown struct{}

func (join) isLobbyMsg()         {}
func (updateTeam) isLobbyMsg()   {}
func (updateReady) isLobbyMsg()  {}
func (leave) isLobbyMsg()        {}
func (act) isLobbyMsg()          {}
func (submitResult) isLobbyMsg() {}
func (attach) isLobbyMsg()       {}
func (detach) isLobbyMsg()       {}
func (getSnapshot) isLobbyMsg()  {}
func (getStatus) isLobbyMsg()    {}
func (shutdown) isLobbyMsg()     {}

type Options struct {
	OutboxSize int
	Recorder   Recorder
	Logger     *zap.Logger
}

// Lobby is one room session. Every mutation runs on the lobby's own
// goroutine, in inbox order; callers block only until their reply arrives.
type Lobby struct {
	code     string
	inbox    chan Msg
	state    *room
	version  int
	conns    *hub.Hub
	recorder Recorder
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mirrors of loop-owned state for lock-free reads by the registry
	status     atomic.Value
	lastActive atomic.Int64
}

func NewLobby(parent context.Context, code string, settings Settings, mode engine.Mode, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:     code,
		inbox:    make(chan Msg, 64), // Small buffer
		state:    newRoom(code, settings, mode),
		conns:    hub.New(opts.OutboxSize),
		recorder: opts.Recorder,
		log:      opts.Logger.With(zap.String("room", code)),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	l.status.Store(StatusWaiting)
	l.touch()

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

func (l *Lobby) Settings() Settings { return l.state.settings }

func (l *Lobby) Status() Status { return l.status.Load().(Status) }

func (l *Lobby) Connections() int { return l.conns.Len() }

func (l *Lobby) LastActive() time.Time { return time.Unix(0, l.lastActive.Load()) }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Close stops the loop and closes every attached connection.
func (l *Lobby) Close() {
	select {
	case l.inbox <- shutdown{}:
	case <-l.done:
	}
	<-l.done
}

func (l *Lobby) touch() { l.lastActive.Store(time.Now().UnixNano()) }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if _, ok := m.(shutdown); ok {
				l.shutdown()
				return
			}
			l.handle(m)
		}
	}
}

func (l *Lobby) handle(m Msg) {
	switch msg := m.(type) {
	case join:
		u, err := l.state.join(msg.Nickname)
		if err == nil {
			l.log.Info("user joined", zap.String("user", u.ID), zap.String("nickname", u.Nickname), zap.Bool("host", u.IsHost))
			l.commit(true)
		}
		msg.Reply <- reply{val: u, err: err}

	case updateTeam:
		before := l.state.status
		u, err := l.state.updateTeam(msg.UserID, msg.Team, msg.Position)
		if err == nil {
			l.log.Info("team updated", zap.String("user", u.ID), zap.String("team", string(u.Team)))
			l.transitioned(before)
			l.commit(true)
		}
		msg.Reply <- reply{val: u, err: err}

	case updateReady:
		before := l.state.status
		u, err := l.state.updateReady(msg.UserID, msg.IsReady)
		if err == nil {
			l.log.Info("ready updated", zap.String("user", u.ID), zap.Bool("ready", u.IsReady))
			l.transitioned(before)
			l.commit(true)
		}
		msg.Reply <- reply{val: u, err: err}

	case leave:
		before := l.state.status
		u, err := l.state.leave(msg.UserID)
		if err == nil {
			l.log.Info("user left", zap.String("user", u.ID))
			l.transitioned(before)
			l.commit(true)
		}
		msg.Reply <- reply{val: u, err: err}

	case act:
		events, err := l.state.act(msg.UserID, msg.Type, msg.Champion)
		if err != nil {
			l.log.Debug("draft action rejected", zap.String("user", msg.UserID), zap.String("type", string(msg.Type)), zap.Error(err))
		} else {
			for _, ev := range events {
				l.log.Info("draft event", zap.String("event", string(ev.Type)), zap.String("side", string(ev.Side)), zap.String("champion", ev.Champion))
			}
			l.commit(false)
		}
		msg.Reply <- reply{val: events, err: err}

	case submitResult:
		before := l.state.status
		ack, err := l.state.submitResult(msg.Result)
		if err == nil {
			l.log.Info("result submitted", zap.String("winner", string(msg.Result.Winner)), zap.Int("current_set", ack.CurrentSet))
			l.transitioned(before)
			if ack.Status == StatusCompleted {
				l.record()
			}
			l.commit(true)
		}
		msg.Reply <- reply{val: ack, err: err}

	case attach:
		c, err := l.attach(msg.Role, msg.UserID)
		if err == nil {
			l.log.Info("connection attached", zap.String("client", c.ID), zap.String("role", string(c.Role)), zap.String("user", c.UserID))
			l.commit(false)
		}
		msg.Reply <- reply{val: c, err: err}

	case detach:
		if l.conns.Detach(msg.ClientID) {
			l.log.Info("connection detached", zap.String("client", msg.ClientID), zap.Int("remaining", l.conns.Len()))
			l.commit(false)
		}
		msg.Reply <- reply{}

	case getSnapshot:
		msg.Reply <- reply{val: l.snapshot()}

	case getStatus:
		msg.Reply <- reply{val: l.state.lobbyStatus()}
	}
}

func (l *Lobby) attach(role hub.Role, userID string) (*hub.Conn, error) {
	pc := l.state.settings.PlayerCount
	if !pc.Live() {
		return nil, fmt.Errorf("%w: %s", ErrNoLiveChannel, pc)
	}
	if role == hub.RoleParticipant {
		if _, err := l.state.user(userID); err != nil {
			return nil, err
		}
		if l.conns.Count(hub.RoleParticipant) >= pc.Capacity() {
			return nil, fmt.Errorf("%w: %d participants connected", ErrRoomFull, pc.Capacity())
		}
	} else {
		userID = ""
	}
	return l.conns.Attach(role, userID), nil
}

func (l *Lobby) transitioned(before Status) {
	if after := l.state.status; after != before {
		l.log.Info("status changed", zap.String("from", string(before)), zap.String("to", string(after)))
	}
}

// commit publishes a new version of the room to every connection.
func (l *Lobby) commit(withStatus bool) {
	l.version++
	l.status.Store(l.state.status)
	l.touch()

	payload, err := json.Marshal(l.snapshot())
	if err != nil {
		l.log.Error("encode snapshot", zap.Error(err))
		return
	}
	l.conns.Broadcast(payload)

	if withStatus {
		frame, err := types.StatusFrame(l.state.lobbyStatus())
		if err != nil {
			l.log.Error("encode status", zap.Error(err))
			return
		}
		l.conns.Broadcast(frame)
	}
}

func (l *Lobby) snapshot() Snapshot {
	snap := l.state.snapshot()
	snap.Version = l.version
	snap.Participants = l.conns.Infos(hub.RoleParticipant)
	snap.Spectators = l.conns.Infos(hub.RoleSpectator)
	return snap
}

func (l *Lobby) record() {
	snap := l.state.snapshot()
	summary := SeriesSummary{
		Code:        l.code,
		Settings:    snap.Settings,
		Results:     snap.Results,
		Users:       snap.Users,
		CompletedAt: time.Now().UTC(),
	}
	if n := len(summary.Results); n > 0 {
		summary.Winner = summary.Results[n-1].Winner
	}

	ctx := context.WithoutCancel(l.ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		if err := l.recorder.RecordSeries(ctx, summary); err != nil {
			l.log.Warn("record series", zap.Error(err))
		}
	}()
}

func (l *Lobby) shutdown() {
	l.conns.CloseAll() // Tell clients no more frames
	l.cancel()
	l.log.Info("lobby closed")
}

// ask delivers m to the loop and waits for its reply.
func ask[T any](ctx context.Context, l *Lobby, m Msg, ch chan reply) (T, error) {
	var zero T
	select {
	case l.inbox <- m:
	case <-l.done:
		return zero, ErrLobbyClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-ch:
		v, _ := r.val.(T)
		return v, r.err
	case <-l.done:
		select {
		case r := <-ch:
			v, _ := r.val.(T)
			return v, r.err
		default:
			return zero, ErrLobbyClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (l *Lobby) Join(ctx context.Context, nickname string) (User, error) {
	ch := make(chan reply, 1)
	return ask[User](ctx, l, join{Nickname: nickname, Reply: ch}, ch)
}

func (l *Lobby) UpdateTeam(ctx context.Context, userID string, team Team, position *int) (User, error) {
	ch := make(chan reply, 1)
	return ask[User](ctx, l, updateTeam{UserID: userID, Team: team, Position: position, Reply: ch}, ch)
}

func (l *Lobby) UpdateReady(ctx context.Context, userID string, isReady bool) (User, error) {
	ch := make(chan reply, 1)
	return ask[User](ctx, l, updateReady{UserID: userID, IsReady: isReady, Reply: ch}, ch)
}

func (l *Lobby) Leave(ctx context.Context, userID string) (User, error) {
	ch := make(chan reply, 1)
	return ask[User](ctx, l, leave{UserID: userID, Reply: ch}, ch)
}

func (l *Lobby) Ban(ctx context.Context, userID, champion string) ([]engine.Event, error) {
	ch := make(chan reply, 1)
	return ask[[]engine.Event](ctx, l, act{UserID: userID, Type: engine.CmdBan, Champion: champion, Reply: ch}, ch)
}

func (l *Lobby) Pick(ctx context.Context, userID, champion string) ([]engine.Event, error) {
	ch := make(chan reply, 1)
	return ask[[]engine.Event](ctx, l, act{UserID: userID, Type: engine.CmdPick, Champion: champion, Reply: ch}, ch)
}

func (l *Lobby) SubmitResult(ctx context.Context, result GameResult) (ResultAck, error) {
	ch := make(chan reply, 1)
	return ask[ResultAck](ctx, l, submitResult{Result: result, Reply: ch}, ch)
}

// Attach registers a live connection. Participants must name a user of the room.
func (l *Lobby) Attach(ctx context.Context, role hub.Role, userID string) (*hub.Conn, error) {
	ch := make(chan reply, 1)
	return ask[*hub.Conn](ctx, l, attach{Role: role, UserID: userID, Reply: ch}, ch)
}

// Detach removes a connection. Room membership is left untouched.
func (l *Lobby) Detach(ctx context.Context, clientID string) {
	ch := make(chan reply, 1)
	_, _ = ask[struct{}](ctx, l, detach{ClientID: clientID, Reply: ch}, ch)
}

func (l *Lobby) Snapshot(ctx context.Context) (Snapshot, error) {
	ch := make(chan reply, 1)
	return ask[Snapshot](ctx, l, getSnapshot{Reply: ch}, ch)
}

func (l *Lobby) LobbyStatus(ctx context.Context) (LobbyStatus, error) {
	ch := make(chan reply, 1)
	return ask[LobbyStatus](ctx, l, getStatus{Reply: ch}, ch)
}
