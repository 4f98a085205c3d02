// Daily wall-clock driver for the placeholder generator.
//
// Instead of a fixed-interval ticker, the driver computes the next
// occurrence of the configured fire time in the configured timezone, sleeps
// until then, runs the generator for the following calendar day, and
// repeats. Sleeping to an absolute local time keeps the schedule correct
// across DST transitions, which a 24h ticker would drift through.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultGeneratorTimeout bounds one generator run when no timeout is
// configured.
const defaultGeneratorTimeout = 5 * time.Minute

// Driver fires the generator once per day at a configured local time.
type Driver struct {
	gen     *Generator
	hour    int
	minute  int
	loc     *time.Location
	timeout time.Duration
}

// NewDriver builds a Driver firing daily at fireTime ("HH:MM") in loc.
// A nil loc means UTC; a non-positive timeout falls back to the default.
func NewDriver(gen *Generator, fireTime string, loc *time.Location, timeout time.Duration) (*Driver, error) {
	h, m, err := parseFireTime(fireTime)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultGeneratorTimeout
	}
	return &Driver{gen: gen, hour: h, minute: m, loc: loc, timeout: timeout}, nil
}

// Run blocks until ctx is cancelled, executing one generator pass at every
// fire time. Each pass targets the calendar day after the fire date, so the
// nightly run plans tomorrow's placeholders.
func (d *Driver) Run(ctx context.Context) error {
	log.Info().
		Str("fire_time", fmt.Sprintf("%02d:%02d", d.hour, d.minute)).
		Str("timezone", d.loc.String()).
		Msg("generation schedule started")

	timer := time.NewTimer(time.Until(d.NextFire(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("generation schedule stopped")
			return ctx.Err()
		case now := <-timer.C:
			d.fire(ctx, now)
			timer.Reset(time.Until(d.NextFire(time.Now())))
		}
	}
}

// fire runs one generator pass for the day after now, bounded by the
// configured timeout. Errors are logged; the schedule keeps running.
func (d *Driver) fire(ctx context.Context, now time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	target := Tomorrow(now, d.loc)
	if _, err := d.gen.Generate(runCtx, target); err != nil {
		log.Error().
			Err(err).
			Str("target", target.Format("2006-01-02")).
			Msg("scheduled generation failed")
	}
}

// Tomorrow returns the day after now as observed in loc, expressed as a UTC
// midnight so that it matches stored check-in dates regardless of the zone's
// offset. Without the re-anchoring, "tomorrow 00:05 in a UTC+3 zone" would
// truncate to today.
func Tomorrow(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc).AddDate(0, 0, 1)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// NextFire returns the first instant at the configured fire time strictly
// after now, in the driver's timezone.
func (d *Driver) NextFire(now time.Time) time.Time {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// parseFireTime validates an "HH:MM" wall-clock time.
func parseFireTime(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("fire time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("fire time %q: bad hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("fire time %q: bad minute", s)
	}
	return hour, minute, nil
}
