// Package services – AnalyticsService
//
// This file implements the read-only analytics aggregation: per-user
// check-in totals over an optional date window, the derived completion
// rate, and the top streaks leaderboard.
package services

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/repo"
)

// TopStreakCount is the leaderboard size returned by Summary.
const TopStreakCount = 5

// Summary is the aggregated view returned by AnalyticsService.Summary.
type Summary struct {
	Routines       int64                  `json:"routines"`
	TotalCheckins  int64                  `json:"total_checkins"`
	DoneCheckins   int64                  `json:"done_checkins"`
	Skipped        int64                  `json:"skipped_checkins"`
	CompletionRate float64                `json:"completion_rate"`
	TopStreaks     []repo.StreakWithTitle `json:"top_streaks"`
}

// AnalyticsService aggregates check-in and streak statistics per user.
type AnalyticsService struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
}

// Summary computes a user's analytics snapshot. The optional from/to bounds
// restrict the check-in counts; the leaderboard always spans all time.
//
// CompletionRate is done/total as a percentage rounded to one decimal, and
// 0 when the window holds no check-ins.
func (s *AnalyticsService) Summary(ctx context.Context, userID string, from, to *time.Time) (*Summary, error) {
	routines, _, err := repo.RoutinesStats(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	counts, err := repo.CheckinStats(ctx, s.DB, userID, from, to)
	if err != nil {
		return nil, err
	}
	top, err := repo.TopStreaks(ctx, s.DB, userID, TopStreakCount)
	if err != nil {
		return nil, err
	}

	var rate float64
	if counts.Total > 0 {
		rate = math.Round(float64(counts.Done)/float64(counts.Total)*1000) / 10
	}
	return &Summary{
		Routines:       routines,
		TotalCheckins:  counts.Total,
		DoneCheckins:   counts.Done,
		Skipped:        counts.Skipped,
		CompletionRate: rate,
		TopStreaks:     top,
	}, nil
}
