package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// newTestDB opens a throwaway SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "svc.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedTestRoutine(t *testing.T, db *gorm.DB, userID, freq string, weekdays domain.WeekdaySet) *domain.Routine {
	t.Helper()
	r := &domain.Routine{
		UserID:    userID,
		Title:     "Morning run",
		Frequency: freq,
		Weekdays:  weekdays,
		Reminders: true,
	}
	if err := repo.CreateRoutine(context.Background(), db, r); err != nil {
		t.Fatalf("seed routine: %v", err)
	}
	return r
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse day %q: %v", s, err)
	}
	return d
}

func TestStreak_ConsecutiveDaysThenGapResets(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	steps := []struct {
		date          string
		wantCur, wantBest int
	}{
		{"2025-11-10", 1, 1},
		{"2025-11-11", 2, 2},
		{"2025-11-12", 3, 3},
		{"2025-11-15", 1, 3}, // gap of 3 days resets current, best is kept
	}
	for _, step := range steps {
		st, err := svc.MarkDone(ctx, r.ID, "u1", day(t, step.date))
		if err != nil {
			t.Fatalf("MarkDone(%s): %v", step.date, err)
		}
		if st.CurrentStreak != step.wantCur || st.BestStreak != step.wantBest {
			t.Fatalf("after %s: got (%d,%d), want (%d,%d)",
				step.date, st.CurrentStreak, st.BestStreak, step.wantCur, step.wantBest)
		}
		if st.LastCheckinAt == nil || !st.LastCheckinAt.Equal(domain.DateOf(day(t, step.date))) {
			t.Fatalf("after %s: last checkin %v", step.date, st.LastCheckinAt)
		}
	}
}

func TestStreak_SameDayIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	first, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10"))
	if err != nil {
		t.Fatalf("first MarkDone: %v", err)
	}
	// Different wall-clock time, same calendar day.
	again, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10").Add(18*time.Hour))
	if err != nil {
		t.Fatalf("repeat MarkDone: %v", err)
	}
	if again.CurrentStreak != first.CurrentStreak || again.BestStreak != first.BestStreak {
		t.Fatalf("same-day repeat changed counters: %+v vs %+v", again, first)
	}

	st, err := repo.GetStreak(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if st.Version != 0 {
		t.Fatalf("same-day repeat wrote a new version: %d", st.Version)
	}
}

func TestStreak_OutOfOrderCompletionResets(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	for _, d := range []string{"2025-11-10", "2025-11-11", "2025-11-12"} {
		if _, err := svc.MarkDone(ctx, r.ID, "u1", day(t, d)); err != nil {
			t.Fatalf("MarkDone(%s): %v", d, err)
		}
	}
	// Completing a back-dated check-in moves last backwards and resets.
	st, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-05"))
	if err != nil {
		t.Fatalf("back-dated MarkDone: %v", err)
	}
	if st.CurrentStreak != 1 || st.BestStreak != 3 {
		t.Fatalf("got (%d,%d), want (1,3)", st.CurrentStreak, st.BestStreak)
	}
	if !st.LastCheckinAt.Equal(domain.DateOf(day(t, "2025-11-05"))) {
		t.Fatalf("last checkin not moved back: %v", st.LastCheckinAt)
	}
}

func TestAdvance_NilLastCheckinResetsToOne(t *testing.T) {
	cur := &domain.Streak{CurrentStreak: 4, BestStreak: 6}
	next, changed := advance(cur, day(t, "2025-11-10"))
	if !changed {
		t.Fatal("expected a write")
	}
	if next.CurrentStreak != 1 || next.BestStreak != 6 {
		t.Fatalf("got (%d,%d), want (1,6)", next.CurrentStreak, next.BestStreak)
	}
}

func TestStreak_Get_OwnershipAndNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	if _, err := svc.Get(ctx, r.ID, "u1"); !errors.Is(err, ErrStreakNotFound) {
		t.Fatalf("no transitions yet: got %v, want ErrStreakNotFound", err)
	}
	if _, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10")); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if _, err := svc.Get(ctx, r.ID, "intruder"); !errors.Is(err, ErrStreakNotFound) {
		t.Fatalf("foreign user: got %v, want ErrStreakNotFound", err)
	}
	st, err := svc.Get(ctx, r.ID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.CurrentStreak != 1 {
		t.Fatalf("current = %d, want 1", st.CurrentStreak)
	}
}

func TestStreak_ListForUser_Order(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db}
	ctx := context.Background()

	short := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	long := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	if _, err := svc.MarkDone(ctx, short.ID, "u1", day(t, "2025-11-12")); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	for _, d := range []string{"2025-11-10", "2025-11-11", "2025-11-12"} {
		if _, err := svc.MarkDone(ctx, long.ID, "u1", day(t, d)); err != nil {
			t.Fatalf("MarkDone: %v", err)
		}
	}

	items, err := svc.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(items) != 2 || items[0].RoutineID != long.ID {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestStreak_RetryRecoversFromLostUpdateRace(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db, MaxRetries: 3}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	if _, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10")); err != nil {
		t.Fatalf("seed transition: %v", err)
	}

	// First write loses the race: another writer bumps the version between
	// read and update, then the conditional update is reported as stale.
	calls := 0
	updateStreakFn = func(ctx context.Context, tx *gorm.DB, st *domain.Streak) error {
		calls++
		if calls == 1 {
			if err := tx.Exec("UPDATE streaks SET version = version + 1 WHERE routine_id = ?", st.RoutineID).Error; err != nil {
				t.Fatalf("stage stale version: %v", err)
			}
			return repo.ErrConflict
		}
		return repo.UpdateStreak(ctx, tx, st)
	}
	t.Cleanup(func() { updateStreakFn = repo.UpdateStreak })

	st, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-11"))
	if err != nil {
		t.Fatalf("MarkDone after conflict: %v", err)
	}
	if calls != 2 {
		t.Fatalf("update attempts = %d, want 2", calls)
	}
	if st.CurrentStreak != 2 || st.BestStreak != 2 {
		t.Fatalf("streak = (%d,%d), want (2,2)", st.CurrentStreak, st.BestStreak)
	}

	got, err := repo.GetStreak(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if got.CurrentStreak != 2 {
		t.Fatalf("persisted streak = %d, want 2", got.CurrentStreak)
	}
}

func TestStreak_RetryExhaustionSurfacesConflict(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db, MaxRetries: 2}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	if _, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10")); err != nil {
		t.Fatalf("seed transition: %v", err)
	}

	calls := 0
	updateStreakFn = func(ctx context.Context, tx *gorm.DB, st *domain.Streak) error {
		calls++
		return repo.ErrConflict
	}
	t.Cleanup(func() { updateStreakFn = repo.UpdateStreak })

	_, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-11"))
	if !errors.Is(err, ErrStreakConflict) {
		t.Fatalf("err = %v, want ErrStreakConflict", err)
	}
	if want := svc.MaxRetries + 1; calls != want {
		t.Fatalf("update attempts = %d, want %d", calls, want)
	}

	// The lost transition is not partially applied.
	got, err := repo.GetStreak(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if got.CurrentStreak != 1 || got.BestStreak != 1 {
		t.Fatalf("streak = (%d,%d), want untouched (1,1)", got.CurrentStreak, got.BestStreak)
	}
}

func TestStreak_LostCreateRaceFallsThroughToUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := &StreakService{DB: db, MaxRetries: 3}
	ctx := context.Background()
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	// The create loses: a concurrent first transition already inserted the
	// row, so the insert reports a duplicate and the loop re-reads.
	createStreakFn = func(ctx context.Context, tx *gorm.DB, st *domain.Streak) error {
		if err := repo.CreateStreak(ctx, tx, st); err != nil {
			return err
		}
		return repo.ErrDuplicate
	}
	t.Cleanup(func() { createStreakFn = repo.CreateStreak })

	st, err := svc.MarkDone(ctx, r.ID, "u1", day(t, "2025-11-10"))
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	// Second attempt finds the winner's same-day row and no-ops.
	if st.CurrentStreak != 1 || st.BestStreak != 1 {
		t.Fatalf("streak = (%d,%d), want (1,1)", st.CurrentStreak, st.BestStreak)
	}
	if st.Version != 0 {
		t.Fatalf("version = %d, want 0 (no second write)", st.Version)
	}
}
