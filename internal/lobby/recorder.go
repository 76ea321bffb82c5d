package lobby

import (
	"context"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/engine"
)

// SeriesSummary describes a finished series.
type SeriesSummary struct {
	Code        string
	Settings    Settings
	Winner      engine.Side
	Results     []GameResult
	Users       []User
	CompletedAt time.Time
}

// Recorder receives finished series. Calls happen off the lobby loop.
type Recorder interface {
	RecordSeries(ctx context.Context, s SeriesSummary) error
}

type nopRecorder struct{}

func (nopRecorder) RecordSeries(context.Context, SeriesSummary) error { return nil }
