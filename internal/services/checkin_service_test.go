package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

func newCheckinService(db *gorm.DB) *CheckinService {
	return &CheckinService{
		DB:      db,
		Streaks: &StreakService{DB: db},
		Events:  &EventService{DB: db},
	}
}

func TestCheckinCreate_RoutineNotOwned(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "owner", domain.FrequencyDaily, nil)

	_, err := svc.Create(context.Background(), "intruder", CheckinInput{
		RoutineID:   r.ID,
		CheckinDate: day(t, "2025-11-10"),
	})
	if !errors.Is(err, ErrRoutineNotFound) {
		t.Fatalf("got %v, want ErrRoutineNotFound", err)
	}
}

func TestCheckinCreate_DefaultsToSkipped(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)

	c, err := svc.Create(context.Background(), "u1", CheckinInput{
		RoutineID:   r.ID,
		CheckinDate: day(t, "2025-11-10"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != domain.StatusSkipped {
		t.Fatalf("status = %q, want skipped", c.Status)
	}
	// A skipped check-in must not start a streak.
	if _, err := repo.GetStreak(context.Background(), db, r.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("skipped checkin created a streak row: %v", err)
	}
}

func TestCheckinCreate_InvalidStatusAndDate(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", CheckinInput{
		RoutineID:   r.ID,
		CheckinDate: day(t, "2025-11-10"),
		Status:      "maybe",
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("got %v, want ErrInvalidStatus", err)
	}

	_, err = svc.Create(ctx, "u1", CheckinInput{RoutineID: r.ID})
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
}

func TestCheckinCreate_DuplicateSameDay(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	ctx := context.Background()

	in := CheckinInput{RoutineID: r.ID, CheckinDate: day(t, "2025-11-10")}
	if _, err := svc.Create(ctx, "u1", in); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	// Later wall-clock time on the same calendar day still collides.
	in.CheckinDate = in.CheckinDate.Add(9 * time.Hour)
	if _, err := svc.Create(ctx, "u1", in); !errors.Is(err, ErrDuplicateCheckin) {
		t.Fatalf("got %v, want ErrDuplicateCheckin", err)
	}
}

func TestCheckinCreate_DoneDrivesStreakAndEvent(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "u1", CheckinInput{
		RoutineID:   r.ID,
		CheckinDate: day(t, "2025-11-10"),
		Status:      domain.StatusDone,
		Note:        "before work",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != domain.StatusDone {
		t.Fatalf("status = %q", c.Status)
	}

	st, err := repo.GetStreak(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if st.CurrentStreak != 1 || st.BestStreak != 1 {
		t.Fatalf("streak (%d,%d), want (1,1)", st.CurrentStreak, st.BestStreak)
	}

	events, err := repo.ListEvents(ctx, db, "u1", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventCheckinCreated {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestCheckinMarkDone_FlipsPlaceholder(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	ctx := context.Background()

	placeholder, err := svc.Create(ctx, "u1", CheckinInput{
		RoutineID:   r.ID,
		CheckinDate: day(t, "2025-11-10"),
	})
	if err != nil {
		t.Fatalf("Create placeholder: %v", err)
	}

	note := "evening session"
	c, err := svc.MarkDone(ctx, "u1", placeholder.ID, &note, nil)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if c.Status != domain.StatusDone || c.Note != note {
		t.Fatalf("checkin after MarkDone: %+v", c)
	}

	st, err := repo.GetStreak(ctx, db, r.ID)
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if st.CurrentStreak != 1 {
		t.Fatalf("current = %d, want 1", st.CurrentStreak)
	}

	// Marking done twice is harmless: the engine sees a zero-day gap.
	if _, err := svc.MarkDone(ctx, "u1", placeholder.ID, nil, nil); err != nil {
		t.Fatalf("second MarkDone: %v", err)
	}
	st, _ = repo.GetStreak(ctx, db, r.ID)
	if st.CurrentStreak != 1 || st.BestStreak != 1 {
		t.Fatalf("double MarkDone changed counters: (%d,%d)", st.CurrentStreak, st.BestStreak)
	}
}

func TestCheckinMarkDone_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)

	if _, err := svc.MarkDone(context.Background(), "u1", "missing", nil, nil); !errors.Is(err, ErrCheckinNotFound) {
		t.Fatalf("got %v, want ErrCheckinNotFound", err)
	}
}

func TestCheckinListForRoutine_UnknownRoutine(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)

	if _, err := svc.ListForRoutine(context.Background(), "u1", "missing", nil, nil); !errors.Is(err, ErrRoutineNotFound) {
		t.Fatalf("got %v, want ErrRoutineNotFound", err)
	}
}

func TestCheckinDelete(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckinService(db)
	r := seedTestRoutine(t, db, "u1", domain.FrequencyDaily, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "u1", CheckinInput{RoutineID: r.ID, CheckinDate: day(t, "2025-11-10")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, "intruder", c.ID); !errors.Is(err, ErrCheckinNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrCheckinNotFound", err)
	}
	if err := svc.Delete(ctx, "u1", c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", c.ID); !errors.Is(err, ErrCheckinNotFound) {
		t.Fatalf("second delete: got %v, want ErrCheckinNotFound", err)
	}
}
