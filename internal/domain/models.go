// Package domain defines the persistence models for routines, check-ins,
// streaks, and telemetry events. These types are mapped with GORM and form
// the core data layer of the habit tracking application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Recurrence frequencies accepted for Routine.Frequency.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Check-in statuses. A placeholder created by the generator starts as
// "skipped" and flips to "done" when the user completes the routine.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
)

// Routine represents a recurring habit definition owned by a user. Daily
// routines are due every day; weekly routines are due only on the weekdays
// listed in Weekdays (ISO indexes, Mon=1..Sun=7).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the routine owner; indexed for retrieval.
//   - Title: human-readable routine name.
//   - Frequency: "daily" or "weekly" (enforced by DB constraint).
//   - Weekdays: weekday set, meaningful only for weekly routines. The
//     daily⇒empty / weekly⇒non-empty invariant is enforced by the service
//     layer at create/update time.
//   - TimeOfDay: optional "HH:MM" reminder hint; never gates generation.
//   - Reminders: whether reminder delivery is desired (external concern).
//   - Meta: free-form JSON metadata.
//   - DeletedAt: soft deletion marker. Deleted routines naturally drop out
//     of generator runs; historical check-ins and streaks are kept as-is.
type Routine struct {
	ID        string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_routines"`
	Title     string         `json:"title"       gorm:"type:varchar(255);not null"`
	Frequency string         `json:"frequency"   gorm:"type:varchar(16);not null;check:frequency IN ('daily','weekly')"`
	Weekdays  WeekdaySet     `json:"weekdays"    gorm:"type:text"`
	TimeOfDay string         `json:"time_of_day,omitempty" gorm:"type:varchar(8)"`
	Reminders bool           `json:"reminders"   gorm:"not null;default:true"`
	Meta      JSONMap        `json:"meta"        gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Routine.
func (Routine) TableName() string { return "routines" }

// DueOn reports whether the routine's recurrence rule selects the given
// calendar day. Daily routines are due on every date; weekly routines are
// due when the date's ISO weekday index is in the weekday set.
func (r Routine) DueOn(date time.Time) bool {
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return r.Weekdays.Contains(WeekdayIndex(date))
	}
	return false
}

// Checkin is one concrete daily record of a routine's completion status.
// At most one check-in may exist per (routine, date) pair; the unique index
// is the sole concurrency primitive protecting placeholder creation.
//
// Rows are created either by the nightly generator (Status "skipped") or
// directly by a user action. UserID is denormalized from the routine at
// creation time so reads never need the join.
type Checkin struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RoutineID   string    `json:"routine_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_checkin_routine_date,priority:1"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_checkins"`
	CheckinDate time.Time `json:"checkin_date" gorm:"not null;uniqueIndex:ux_checkin_routine_date,priority:2"`
	Status      string    `json:"status"       gorm:"type:varchar(16);not null;check:status IN ('done','skipped')"`
	Note        string    `json:"note,omitempty" gorm:"type:text"`
	Meta        JSONMap   `json:"meta"         gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Checkin.
func (Checkin) TableName() string { return "checkins" }

// Streak holds the consecutive-day completion counters for one routine.
// There is exactly one row per routine, created lazily on the first "done"
// transition and updated exclusively by the streak engine.
//
// Version guards the read-modify-write cycle: updates are conditional on the
// version observed at read time, so two concurrent "done" transitions for
// the same routine cannot both apply a stale increment.
//
// Invariants: BestStreak >= CurrentStreak, and BestStreak never decreases.
// Streak rows are never deleted by this service, so they may outlive their
// routine.
type Streak struct {
	ID            string     `json:"id"              gorm:"type:char(36);primaryKey"`
	RoutineID     string     `json:"routine_id"      gorm:"type:char(36);not null;uniqueIndex:ux_streak_routine"`
	UserID        string     `json:"user_id"         gorm:"type:varchar(64);not null;index:idx_user_streaks"`
	CurrentStreak int        `json:"current_streak"  gorm:"not null;default:0"`
	BestStreak    int        `json:"best_streak"     gorm:"not null;default:0"`
	LastCheckinAt *time.Time `json:"last_checkin_at,omitempty"`
	Version       int64      `json:"-"               gorm:"not null;default:0"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Streak.
func (Streak) TableName() string { return "streaks" }

// Event is an append-only telemetry record (e.g. "checkin_planned",
// "checkin_done"). Event recording is best-effort everywhere: a failed
// insert never rolls back the operation that produced it.
type Event struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_events"`
	Type      string    `json:"type"       gorm:"type:varchar(64);not null;index"`
	Payload   JSONMap   `json:"payload"    gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }
