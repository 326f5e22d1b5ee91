package srs

import (
	"math"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
)

// calculateNewEaseFactor applies the per-rating adjustment and clamps the
// result to [MinEaseFactor, MaxEaseFactor].
func calculateNewEaseFactor(currentEF float64, rating int, params *Params) float64 {
	newEF := currentEF + params.EaseFactorAdjustment[rating]

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	// Keep two decimals so repeated adjustments do not accumulate float noise
	return math.Round(newEF*100) / 100
}

// calculateNewInterval determines the next interval in days.
//
// Algorithm behavior:
//   - First review (reviewCount == 0): always 1 day, whatever the rating
//   - Rating 1-2: reset to 1 day
//   - Rating 3: interval unchanged
//   - Rating 4-5: interval multiplied by the ease factor held before this
//     review, growing by at least one day and capped at MaxIntervalDays
func calculateNewInterval(currentInterval, reviewCount int, easeFactor float64, rating int, params *Params) int {
	if reviewCount == 0 {
		return 1
	}
	if currentInterval < 1 {
		currentInterval = 1
	}

	switch {
	case rating <= 2:
		return 1
	case rating == 3:
		return currentInterval
	}

	next := int(math.Round(float64(currentInterval) * easeFactor))
	if next <= currentInterval {
		next = currentInterval + 1
	}
	if next > params.MaxIntervalDays {
		next = params.MaxIntervalDays
	}
	return next
}

// calculateNewMasteryLevel increments on ratings >= MasteryRating and
// saturates at MaxMasteryLevel.
func calculateNewMasteryLevel(currentLevel, rating int, params *Params) int {
	if rating < params.MasteryRating {
		return currentLevel
	}
	if currentLevel >= params.MaxMasteryLevel {
		return params.MaxMasteryLevel
	}
	return currentLevel + 1
}

// isMasteryEvent reports whether a rating that produced next counts as the
// item being mastered.
func isMasteryEvent(rating int, next *domain.ItemMasteryRecord, params *Params) bool {
	return rating >= params.MasteryRating && next.MasteryLevel >= params.MasteryLevelThreshold
}

// calculateNextRecord creates a new record from the rating. The input is
// never modified.
func calculateNextRecord(
	record *domain.ItemMasteryRecord,
	rating int,
	now time.Time,
	params *Params,
) *domain.ItemMasteryRecord {
	next := record.Clone()
	now = now.UTC()

	next.EaseFactor = calculateNewEaseFactor(record.EaseFactor, rating, params)
	next.IntervalDays = calculateNewInterval(
		record.IntervalDays,
		record.ReviewCount,
		record.EaseFactor,
		rating,
		params,
	)
	next.MasteryLevel = calculateNewMasteryLevel(record.MasteryLevel, rating, params)

	next.ReviewCount++
	next.LastReviewedAt = now
	next.NextReviewDate = now.AddDate(0, 0, next.IntervalDays)
	next.UpdatedAt = now

	if next.MasteredAt.IsZero() && isMasteryEvent(rating, next, params) {
		next.MasteredAt = now
	}

	return next
}
