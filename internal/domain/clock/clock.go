// Package clock implements the calendar and timezone arithmetic behind
// daily counters, streak deadlines and ISO-week rollups.
//
// Every function is pure: callers pass the instant to evaluate, which must
// come from the server's authoritative clock. Local dates are always derived
// from a UTC instant and an IANA zone name at decision time.
package clock

import (
	"fmt"
	"sync"
	"time"
	// Zone data is embedded so user timezones resolve on hosts without a
	// system zoneinfo database.
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
)

// NowFunc returns the current instant. Services take one so tests can pin
// time.
type NowFunc func() time.Time

// SystemNow is the production NowFunc.
func SystemNow() time.Time {
	return time.Now().UTC()
}

// Deadline is a streak deadline pair. Hard drives every state decision;
// Display is a UI convenience (the nominal midnight, grace hidden) and must
// never be compared against.
type Deadline struct {
	Hard    time.Time
	Display time.Time
}

// probe is the step used to locate the first instant of a local day when
// midnight falls inside a DST transition. All zones in tzdata transition on
// quarter-hour boundaries.
const probe = 15 * time.Minute

var locations sync.Map // string -> *time.Location

// LoadLocation resolves an IANA zone name. The empty string is UTC. Unknown
// names yield a ValidationError.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" || tz == domain.DefaultTimezone {
		return time.UTC, nil
	}
	if loc, ok := locations.Load(tz); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, domain.NewValidationError("timezone", fmt.Sprintf("unknown timezone %q", tz))
	}
	locations.Store(tz, loc)
	return loc, nil
}

// ValidateTimezone reports whether tz is a loadable IANA zone.
func ValidateTimezone(tz string) error {
	_, err := LoadLocation(tz)
	return err
}

// LocalDate returns the calendar date of instant in tz.
func LocalDate(instant time.Time, tz string) (civil.Date, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(instant.In(loc)), nil
}

// IsNewDay reports whether now falls on a different local date than
// lastDate. A zero lastDate always starts a new day.
func IsNewDay(lastDate civil.Date, tz string, now time.Time) (bool, error) {
	today, err := LocalDate(now, tz)
	if err != nil {
		return false, err
	}
	return today != lastDate, nil
}

// StartOfDay returns the first instant of date d in loc, in UTC. Where local
// midnight does not exist (a DST gap) this is the first instant after the
// gap; where it occurs twice it is the earlier one.
func StartOfDay(d civil.Date, loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	for civil.DateOf(t.In(loc)).Before(d) {
		t = t.Add(probe)
	}
	for civil.DateOf(t.Add(-probe).In(loc)) == d {
		t = t.Add(-probe)
	}
	return t.UTC()
}

// ComputeDeadline returns the deadline following lastQualifyingDate: the
// start of the next local day plus grace.
func ComputeDeadline(lastQualifyingDate civil.Date, tz string, grace time.Duration) (Deadline, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return Deadline{}, err
	}
	midnight := StartOfDay(lastQualifyingDate.AddDays(1), loc)
	return Deadline{
		Hard:    midnight.Add(grace),
		Display: midnight,
	}, nil
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d civil.Date) civil.Date {
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// ISOWeekID formats the ISO week containing d, e.g. "2026-W42".
func ISOWeekID(d civil.Date) string {
	year, week := d.In(time.UTC).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
