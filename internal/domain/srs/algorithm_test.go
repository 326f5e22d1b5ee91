package srs

import (
	"testing"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name        string
		current     int
		reviewCount int
		ef          float64
		rating      int
		expected    int
	}{
		{
			name:        "First review is always one day for a low rating",
			current:     1,
			reviewCount: 0,
			ef:          2.5,
			rating:      1,
			expected:    1,
		},
		{
			name:        "First review is always one day for a high rating",
			current:     1,
			reviewCount: 0,
			ef:          2.5,
			rating:      5,
			expected:    1,
		},
		{
			name:        "Rating 1 resets interval",
			current:     20,
			reviewCount: 4,
			ef:          2.5,
			rating:      1,
			expected:    1,
		},
		{
			name:        "Rating 2 resets interval",
			current:     20,
			reviewCount: 4,
			ef:          2.5,
			rating:      2,
			expected:    1,
		},
		{
			name:        "Rating 3 keeps interval",
			current:     20,
			reviewCount: 4,
			ef:          2.5,
			rating:      3,
			expected:    20,
		},
		{
			name:        "Rating 4 multiplies by ease factor",
			current:     10,
			reviewCount: 3,
			ef:          2.5,
			rating:      4,
			expected:    25, // 10 * 2.5
		},
		{
			name:        "Rating 5 multiplies by ease factor",
			current:     4,
			reviewCount: 3,
			ef:          2.6,
			rating:      5,
			expected:    10, // 4 * 2.6 = 10.4 → 10
		},
		{
			name:        "Growth is at least one day at minimum ease",
			current:     1,
			reviewCount: 2,
			ef:          1.3,
			rating:      4,
			expected:    2, // round(1.3) = 1, bumped to 2
		},
		{
			name:        "Interval is capped",
			current:     300,
			reviewCount: 9,
			ef:          2.5,
			rating:      5,
			expected:    params.MaxIntervalDays,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewInterval(tc.current, tc.reviewCount, tc.ef, tc.rating, params)

			if got != tc.expected {
				t.Errorf("Expected interval %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestCalculateNewEaseFactor(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		rating   int
		expected float64
	}{
		{name: "Rating 1 decreases ease factor", current: 2.5, rating: 1, expected: 2.3},
		{name: "Rating 2 decreases ease factor", current: 2.5, rating: 2, expected: 2.35},
		{name: "Rating 3 decreases ease factor slightly", current: 2.5, rating: 3, expected: 2.45},
		{name: "Rating 4 increases ease factor", current: 2.5, rating: 4, expected: 2.6},
		{name: "Rating 5 increases ease factor more", current: 2.5, rating: 5, expected: 2.65},
		{name: "Minimum ease factor is enforced", current: 1.35, rating: 1, expected: 1.3},
		{name: "Minimum holds under repeated low ratings", current: 1.3, rating: 2, expected: 1.3},
		{name: "Maximum ease factor is enforced", current: 2.95, rating: 5, expected: 3.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			newEF := calculateNewEaseFactor(tc.current, tc.rating, params)

			// Use a small epsilon for float comparison
			epsilon := 0.001
			if newEF < tc.expected-epsilon || newEF > tc.expected+epsilon {
				t.Errorf("Expected ease factor %f, got %f", tc.expected, newEF)
			}
		})
	}
}

func TestCalculateNewMasteryLevel(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  int
		rating   int
		expected int
	}{
		{name: "Rating 3 does not increment", current: 2, rating: 3, expected: 2},
		{name: "Rating 1 does not decrement", current: 2, rating: 1, expected: 2},
		{name: "Rating 4 increments", current: 2, rating: 4, expected: 3},
		{name: "Rating 5 increments by one", current: 0, rating: 5, expected: 1},
		{name: "Saturates at maximum", current: params.MaxMasteryLevel, rating: 5, expected: params.MaxMasteryLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewMasteryLevel(tc.current, tc.rating, params)
			if got != tc.expected {
				t.Errorf("Expected mastery level %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestCalculateNextRecord(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	record, err := domain.NewItemMasteryRecord(uuid.New(), uuid.New(), uuid.Nil, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}

	updated := calculateNextRecord(record, 4, now, params)

	if updated == record {
		t.Fatal("calculateNextRecord returned the same object, not a new one")
	}
	if record.ReviewCount != 0 || record.MasteryLevel != 0 || !record.MasteredAt.IsZero() {
		t.Fatal("calculateNextRecord modified its input")
	}
	if updated.ReviewCount != 1 {
		t.Errorf("Expected ReviewCount 1, got %d", updated.ReviewCount)
	}
	if updated.IntervalDays != 1 {
		t.Errorf("Expected first interval 1, got %d", updated.IntervalDays)
	}
	if updated.MasteryLevel != 1 {
		t.Errorf("Expected mastery level 1, got %d", updated.MasteryLevel)
	}
	if !updated.MasteredAt.Equal(now) {
		t.Errorf("Expected MasteredAt %v, got %v", now, updated.MasteredAt)
	}
	if !updated.LastReviewedAt.Equal(now) {
		t.Errorf("Expected LastReviewedAt %v, got %v", now, updated.LastReviewedAt)
	}
	if !updated.NextReviewDate.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("Expected NextReviewDate %v, got %v", now.AddDate(0, 0, 1), updated.NextReviewDate)
	}

	// A second good rating grows the interval but keeps the first mastery time
	later := now.Add(24 * time.Hour)
	second := calculateNextRecord(updated, 4, later, params)
	if second.IntervalDays != 3 { // round(1 * 2.6)
		t.Errorf("Expected interval 3, got %d", second.IntervalDays)
	}
	if !second.MasteredAt.Equal(now) {
		t.Errorf("Expected MasteredAt to stay %v, got %v", now, second.MasteredAt)
	}

	// A failing rating resets the interval without losing mastery
	third := calculateNextRecord(second, 1, later.Add(72*time.Hour), params)
	if third.IntervalDays != 1 {
		t.Errorf("Expected interval reset to 1, got %d", third.IntervalDays)
	}
	if third.MasteryLevel != second.MasteryLevel {
		t.Errorf("Expected mastery level to stay %d, got %d", second.MasteryLevel, third.MasteryLevel)
	}
}

func TestCalculateNextRecord_Deterministic(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	record, err := domain.NewItemMasteryRecord(uuid.New(), uuid.New(), uuid.Nil, now)
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	record.ReviewCount = 3
	record.IntervalDays = 6

	for rating := domain.MinRating; rating <= domain.MaxRating; rating++ {
		a := calculateNextRecord(record, rating, now, params)
		b := calculateNextRecord(record, rating, now, params)
		if *a != *b {
			t.Errorf("rating %d produced different results: %+v vs %+v", rating, a, b)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("rating %d produced an invalid record: %v", rating, err)
		}
	}
}
