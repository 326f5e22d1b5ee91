// Package weekly rolls counted items into ISO-week totals with a capped,
// rotating history.
package weekly

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/clock"
)

// Defaults for Aggregator.
const (
	DefaultCap           = 500
	DefaultHistoryLimit  = 12
	DefaultAverageWindow = 4
)

// Aggregator maintains domain.WeeklyStats snapshots.
type Aggregator struct {
	// Cap is the maximum count for one week. Increments beyond it are
	// ignored without error.
	Cap int
	// HistoryLimit is the number of archived weeks kept.
	HistoryLimit int
	// AverageWindow is the number of most recent weeks WeeklyAverage uses.
	AverageWindow int
}

// NewAggregator creates an Aggregator with the given cap and default
// history settings. A non-positive cap uses DefaultCap.
func NewAggregator(weeklyCap int) *Aggregator {
	if weeklyCap <= 0 {
		weeklyCap = DefaultCap
	}
	return &Aggregator{
		Cap:           weeklyCap,
		HistoryLimit:  DefaultHistoryLimit,
		AverageWindow: DefaultAverageWindow,
	}
}

// Rollover archives the current week once a new ISO week has started in tz
// and reports whether stats changed. Weeks without any activity are archived
// with a zero count so the average reflects them. The input is not modified.
func (a *Aggregator) Rollover(stats domain.WeeklyStats, tz string, now time.Time) (domain.WeeklyStats, bool, error) {
	today, err := clock.LocalDate(now, tz)
	if err != nil {
		return domain.WeeklyStats{}, false, err
	}
	next := stats.Clone()
	weekStart := clock.WeekStart(today)

	if !next.CurrentWeekStart.IsValid() {
		next.CurrentWeekStart = weekStart
		return next, true, nil
	}
	// A timezone change can move the local date back into an earlier week;
	// the counter keeps accruing to the newer week.
	if !next.CurrentWeekStart.Before(weekStart) {
		return next, false, nil
	}

	archivedAt := now.UTC()
	next.History = append(next.History, domain.WeeklyCardEntry{
		WeekID:     clock.ISOWeekID(next.CurrentWeekStart),
		Count:      next.CurrentWeekCards,
		ArchivedAt: archivedAt,
	})

	skipped := next.CurrentWeekStart.AddDays(7)
	if earliest := weekStart.AddDays(-7 * a.HistoryLimit); skipped.Before(earliest) {
		skipped = earliest
	}
	for ; skipped.Before(weekStart); skipped = skipped.AddDays(7) {
		next.History = append(next.History, domain.WeeklyCardEntry{
			WeekID:     clock.ISOWeekID(skipped),
			Count:      0,
			ArchivedAt: archivedAt,
		})
	}

	if over := len(next.History) - a.HistoryLimit; over > 0 {
		next.History = slices.Clone(next.History[over:])
	}
	next.CurrentWeekStart = weekStart
	next.CurrentWeekCards = 0
	return next, true, nil
}

// Counted is the result of OnCardCounted.
type Counted struct {
	Stats domain.WeeklyStats
	// Incremented is false when the weekly cap swallowed the count.
	Incremented bool
	RolledOver  bool
}

// OnCardCounted rolls the week over if needed and counts one item. At the
// cap the count is silently dropped.
func (a *Aggregator) OnCardCounted(stats domain.WeeklyStats, tz string, now time.Time) (Counted, error) {
	next, rolled, err := a.Rollover(stats, tz, now)
	if err != nil {
		return Counted{}, err
	}
	result := Counted{Stats: next, RolledOver: rolled}
	if next.CurrentWeekCards >= a.Cap {
		return result, nil
	}
	result.Stats.CurrentWeekCards++
	result.Incremented = true
	return result, nil
}

// WeeklyAverage returns the mean count of the most recent AverageWindow
// entries of history, or 0 when history is empty.
func (a *Aggregator) WeeklyAverage(history []domain.WeeklyCardEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	window := history
	if len(window) > a.AverageWindow {
		window = window[len(window)-a.AverageWindow:]
	}
	total := 0
	for _, e := range window {
		total += e.Count
	}
	return float64(total) / float64(len(window))
}

// IsAtCap reports whether stats reached the weekly cap.
func (a *Aggregator) IsAtCap(stats domain.WeeklyStats) bool {
	return stats.CurrentWeekCards >= a.Cap
}

// WeekOf returns the Monday of the ISO week containing now in tz.
func WeekOf(now time.Time, tz string) (civil.Date, error) {
	today, err := clock.LocalDate(now, tz)
	if err != nil {
		return civil.Date{}, err
	}
	return clock.WeekStart(today), nil
}
