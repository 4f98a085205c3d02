package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

func TestCreateStreak_DuplicateRoutine(t *testing.T) {
	db := newRepoDB(t)

	day := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	s := &domain.Streak{RoutineID: "r1", UserID: "u1", CurrentStreak: 1, BestStreak: 1, LastCheckinAt: &day}
	if err := CreateStreak(context.Background(), db, s); err != nil {
		t.Fatalf("CreateStreak: %v", err)
	}

	again := &domain.Streak{RoutineID: "r1", UserID: "u1", CurrentStreak: 1, BestStreak: 1, LastCheckinAt: &day}
	if err := CreateStreak(context.Background(), db, again); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second streak row, got %v", err)
	}
}

func TestUpdateStreak_VersionGuard(t *testing.T) {
	db := newRepoDB(t)

	day := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	s := &domain.Streak{RoutineID: "r1", UserID: "u1", CurrentStreak: 1, BestStreak: 1, LastCheckinAt: &day}
	if err := CreateStreak(context.Background(), db, s); err != nil {
		t.Fatalf("CreateStreak: %v", err)
	}

	// Two readers observe version 0.
	a, err := GetStreak(context.Background(), db, "r1")
	if err != nil {
		t.Fatalf("GetStreak a: %v", err)
	}
	b, err := GetStreak(context.Background(), db, "r1")
	if err != nil {
		t.Fatalf("GetStreak b: %v", err)
	}

	next := day.AddDate(0, 0, 1)
	a.CurrentStreak = 2
	a.BestStreak = 2
	a.LastCheckinAt = &next
	if err := UpdateStreak(context.Background(), db, a); err != nil {
		t.Fatalf("first update should win: %v", err)
	}
	if a.Version != 1 {
		t.Fatalf("winner version = %d; want 1", a.Version)
	}

	b.CurrentStreak = 2
	b.BestStreak = 2
	b.LastCheckinAt = &next
	if err := UpdateStreak(context.Background(), db, b); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update should conflict, got %v", err)
	}

	// Persisted state reflects exactly one increment.
	got, err := GetStreak(context.Background(), db, "r1")
	if err != nil {
		t.Fatalf("GetStreak final: %v", err)
	}
	if got.CurrentStreak != 2 || got.Version != 1 {
		t.Fatalf("final state %+v; want current=2 version=1", got)
	}
}

func TestGetStreak_NotFound(t *testing.T) {
	db := newRepoDB(t)
	if _, err := GetStreak(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListStreaks_OrderedByCurrentDesc(t *testing.T) {
	db := newRepoDB(t)

	for i, rid := range []string{"r1", "r2", "r3"} {
		s := &domain.Streak{RoutineID: rid, UserID: "u1", CurrentStreak: i + 1, BestStreak: i + 1}
		if err := CreateStreak(context.Background(), db, s); err != nil {
			t.Fatalf("seed %s: %v", rid, err)
		}
	}

	got, err := ListStreaks(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ListStreaks: %v", err)
	}
	if len(got) != 3 || got[0].RoutineID != "r3" || got[2].RoutineID != "r1" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestTopStreaks_JoinsTitles_AndSurvivesOrphans(t *testing.T) {
	db := newRepoDB(t)
	seedRoutine(t, db, "r1", "u1", domain.FrequencyDaily, nil)

	for _, s := range []*domain.Streak{
		{RoutineID: "r1", UserID: "u1", CurrentStreak: 4, BestStreak: 6},
		{RoutineID: "r-gone", UserID: "u1", CurrentStreak: 9, BestStreak: 9}, // routine never existed / deleted
	} {
		if err := CreateStreak(context.Background(), db, s); err != nil {
			t.Fatalf("seed streak %s: %v", s.RoutineID, err)
		}
	}

	got, err := TopStreaks(context.Background(), db, "u1", 5)
	if err != nil {
		t.Fatalf("TopStreaks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].RoutineID != "r-gone" || got[0].RoutineTitle != "" {
		t.Fatalf("orphan streak should lead with empty title: %+v", got[0])
	}
	if got[1].RoutineTitle != "Routine r1" {
		t.Fatalf("joined title missing: %+v", got[1])
	}
}
