// Package registry maps room codes to live lobbies.
package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("room not found")

const (
	CodeLength   = 8
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 32
)

func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

type Options struct {
	Modes      engine.ModeSet
	OutboxSize int
	IdleTTL    time.Duration
	Recorder   lobby.Recorder
	Logger     *zap.Logger
	// NewCode is swapped in tests to force collisions.
	NewCode func() (string, error)
}

// Registry owns every lobby in the process. The map lock is held only for
// lookups and inserts, never while a lobby is mutating.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*lobby.Lobby

	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, opts Options) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if opts.Modes == nil {
		opts.Modes = engine.DefaultModes()
	}
	if opts.NewCode == nil {
		opts.NewCode = GenerateCode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Create validates settings and starts a lobby under a fresh code.
func (r *Registry) Create(settings lobby.Settings) (*lobby.Lobby, error) {
	settings, mode, err := settings.Normalize(r.opts.Modes)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxCodeTries; i++ {
		code, err := r.opts.NewCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		r.mu.Lock()
		if _, taken := r.lobbies[code]; taken {
			r.mu.Unlock()
			r.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		lb := lobby.NewLobby(r.ctx, code, settings, mode, lobby.Options{
			OutboxSize: r.opts.OutboxSize,
			Recorder:   r.opts.Recorder,
			Logger:     r.log,
		})
		r.lobbies[code] = lb
		r.mu.Unlock()

		r.log.Info("room created",
			zap.String("room", code),
			zap.String("draft_mode", settings.DraftMode),
			zap.String("match_format", settings.MatchFormat),
			zap.String("player_count", string(settings.PlayerCount)))
		return lb, nil
	}
	return nil, fmt.Errorf("generate code: no free code after %d attempts", maxCodeTries)
}

func (r *Registry) Get(code string) (*lobby.Lobby, error) {
	r.mu.RLock()
	lb := r.lobbies[code]
	r.mu.RUnlock()
	if lb == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return lb, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

// Remove closes and forgets a lobby.
func (r *Registry) Remove(code string) bool {
	r.mu.Lock()
	lb := r.lobbies[code]
	delete(r.lobbies, code)
	r.mu.Unlock()
	if lb == nil {
		return false
	}
	lb.Close()
	return true
}

func (r *Registry) evictable(lb *lobby.Lobby, now time.Time) (string, bool) {
	if lb.Connections() > 0 {
		return "", false
	}
	if lb.Status() == lobby.StatusCompleted {
		return "completed", true
	}
	if r.opts.IdleTTL > 0 && now.Sub(lb.LastActive()) > r.opts.IdleTTL {
		return "idle", true
	}
	return "", false
}

// Sweep evicts completed rooms nobody is watching and rooms idle past the TTL.
func (r *Registry) Sweep(now time.Time) int {
	type victim struct {
		code, reason string
	}
	var victims []victim

	r.mu.RLock()
	for code, lb := range r.lobbies {
		if reason, ok := r.evictable(lb, now); ok {
			victims = append(victims, victim{code: code, reason: reason})
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, v := range victims {
		if r.Remove(v.code) {
			n++
			r.log.Info("room evicted", zap.String("room", v.code), zap.String("reason", v.reason))
		}
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}

// Shutdown closes every lobby.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	lobbies := r.lobbies
	r.lobbies = make(map[string]*lobby.Lobby)
	r.mu.Unlock()

	for _, lb := range lobbies {
		lb.Close()
	}
	r.cancel()
}
