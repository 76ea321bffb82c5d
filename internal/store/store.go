// Package store archives finished series. Live rooms never touch it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DoyleJ11/draft-rooms/internal/lobby"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SeriesRecord is one completed series.
type SeriesRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"size:8;index;not null" json:"code"`
	Version     string         `gorm:"not null" json:"version"`
	DraftMode   string         `gorm:"not null" json:"draftMode"`
	MatchFormat string         `gorm:"not null" json:"matchFormat"`
	PlayerCount string         `gorm:"not null" json:"playerCount"`
	TimeLimit   string         `gorm:"not null" json:"timeLimit"`
	Winner      string         `gorm:"size:8;not null" json:"winner"`
	SetsPlayed  int            `gorm:"not null" json:"setsPlayed"`
	Results     datatypes.JSON `gorm:"type:jsonb" json:"results"`
	Players     datatypes.JSON `gorm:"type:jsonb" json:"players"`
	CompletedAt time.Time      `gorm:"index" json:"completedAt"`
	CreatedAt   time.Time      `json:"-"`
}

func (SeriesRecord) TableName() string {
	return "series_history"
}

type player struct {
	Nickname string `json:"nickname"`
	Team     string `json:"team"`
	Position *int   `json:"position,omitempty"`
}

// NewRecord flattens a summary into its table row.
func NewRecord(s lobby.SeriesSummary) (SeriesRecord, error) {
	results, err := json.Marshal(s.Results)
	if err != nil {
		return SeriesRecord{}, fmt.Errorf("encode results: %w", err)
	}

	var players []player
	for _, u := range s.Users {
		if !u.Seated() {
			continue
		}
		players = append(players, player{Nickname: u.Nickname, Team: string(u.Team), Position: u.Position})
	}
	roster, err := json.Marshal(players)
	if err != nil {
		return SeriesRecord{}, fmt.Errorf("encode players: %w", err)
	}

	return SeriesRecord{
		Code:        s.Code,
		Version:     s.Settings.Version,
		DraftMode:   s.Settings.DraftMode,
		MatchFormat: s.Settings.MatchFormat,
		PlayerCount: string(s.Settings.PlayerCount),
		TimeLimit:   s.Settings.TimeLimit,
		Winner:      string(s.Winner),
		SetsPlayed:  len(s.Results),
		Results:     datatypes.JSON(results),
		Players:     datatypes.JSON(roster),
		CompletedAt: s.CompletedAt,
	}, nil
}

type History struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres and migrates the history table.
func Open(dsn string, log *zap.Logger) (*History, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return NewHistory(db, log)
}

func NewHistory(db *gorm.DB, log *zap.Logger) (*History, error) {
	if err := db.AutoMigrate(&SeriesRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &History{db: db, log: log}, nil
}

func (h *History) RecordSeries(ctx context.Context, s lobby.SeriesSummary) error {
	rec, err := NewRecord(s)
	if err != nil {
		return err
	}
	if err := h.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert series %s: %w", s.Code, err)
	}
	h.log.Info("series archived", zap.String("room", s.Code), zap.Uint("id", rec.ID))
	return nil
}

// Recent lists the latest archived series, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]SeriesRecord, error) {
	var out []SeriesRecord
	err := h.db.WithContext(ctx).Order("completed_at desc").Limit(limit).Find(&out).Error
	return out, err
}

func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
