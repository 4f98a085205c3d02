// Package scheduler contains the nightly placeholder generator and the
// driver that fires it on a wall-clock schedule.
//
// The generator walks every live routine, decides whether the routine is due
// on the target calendar day, and inserts a "skipped" placeholder check-in
// for each due routine that does not have one yet. The unique index on
// (routine_id, checkin_date) makes the run idempotent: re-running for the
// same day, or racing a user who created the check-in first, simply counts
// the row as already existing.
//
// Per-routine failures are isolated. One broken routine is logged and
// counted, and the run continues with the rest of the snapshot.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/services"
)

var (
	// genRuns counts generator executions by outcome ("ok", "interrupted",
	// or "error").
	genRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_runs_total",
			Help: "Total number of placeholder generator runs.",
		},
		[]string{"outcome"},
	)

	// genPlaceholders counts placeholder inserts by result.
	genPlaceholders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_placeholders_total",
			Help: "Placeholder check-ins considered by the generator.",
		},
		[]string{"result"}, // created | existing | failed
	)

	// genDuration records how long a full generator run takes.
	genDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generator_run_duration_seconds",
			Help:    "Duration of placeholder generator runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(genRuns, genPlaceholders, genDuration)
}

// Summary reports what one generator run did.
type Summary struct {
	// Target is the calendar day placeholders were generated for.
	Target time.Time `json:"target"`
	// Routines is the size of the live-routine snapshot.
	Routines int `json:"routines"`
	// Due counts routines whose recurrence selected the target day.
	Due int `json:"due"`
	// Created counts placeholders inserted by this run.
	Created int `json:"created"`
	// Existing counts due routines that already had a check-in row.
	Existing int `json:"existing"`
	// Failed counts routines skipped because of an insert error.
	Failed int `json:"failed"`
	// Interrupted reports that the run's context expired before the whole
	// snapshot was processed; the counts above cover the completed part.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Generator creates "skipped" placeholder check-ins for due routines.
type Generator struct {
	// DB is the database handle used for the snapshot and inserts.
	DB *gorm.DB
	// Events records best-effort telemetry per created placeholder.
	Events *services.EventService
}

// Generate runs one placeholder pass for the calendar day of target.
//
// The routine snapshot is taken once at the start; routines created or
// deleted mid-run are picked up by the next run. The returned error is
// non-nil only when the snapshot itself cannot be read.
func (g *Generator) Generate(ctx context.Context, target time.Time) (*Summary, error) {
	tr := otel.Tracer("scheduler/Generator")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(attribute.String("target", target.Format("2006-01-02"))),
	)
	defer span.End()

	start := time.Now()
	day := domain.DateOf(target)
	sum := &Summary{Target: day}

	routines, err := repo.ListAllRoutines(ctx, g.DB)
	if err != nil {
		genRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	sum.Routines = len(routines)

	for i := range routines {
		// Once the run deadline expires every remaining insert would fail
		// with the same context error; stop instead of inflating Failed.
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}

		r := &routines[i]
		if !r.DueOn(day) {
			continue
		}
		sum.Due++

		c := &domain.Checkin{
			RoutineID:   r.ID,
			UserID:      r.UserID,
			CheckinDate: day,
			Status:      domain.StatusSkipped,
		}
		err := repo.CreateCheckin(ctx, g.DB, c)
		switch {
		case err == nil:
			sum.Created++
			genPlaceholders.WithLabelValues("created").Inc()
			g.Events.Record(ctx, r.UserID, services.EventCheckinPlanned, domain.JSONMap{
				"checkin_id": c.ID,
				"routine_id": r.ID,
				"date":       day.Format("2006-01-02"),
			})
		case errors.Is(err, repo.ErrDuplicate):
			// Already planned, or the user beat us to it. Either way the
			// day is covered and the existing row must not be touched.
			sum.Existing++
			genPlaceholders.WithLabelValues("existing").Inc()
		default:
			sum.Failed++
			genPlaceholders.WithLabelValues("failed").Inc()
			log.Warn().
				Err(err).
				Str("routine_id", r.ID).
				Str("target", day.Format("2006-01-02")).
				Msg("placeholder insert failed")
		}
	}

	outcome := "ok"
	if sum.Interrupted {
		outcome = "interrupted"
	}
	genRuns.WithLabelValues(outcome).Inc()
	genDuration.Observe(time.Since(start).Seconds())

	ev := log.Info()
	if sum.Interrupted {
		ev = log.Warn()
	}
	ev.
		Str("target", day.Format("2006-01-02")).
		Int("routines", sum.Routines).
		Int("due", sum.Due).
		Int("created", sum.Created).
		Int("existing", sum.Existing).
		Int("failed", sum.Failed).
		Bool("interrupted", sum.Interrupted).
		Msg("placeholder generation complete")
	return sum, nil
}
