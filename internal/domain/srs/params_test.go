package srs

import (
	"testing"
)

func TestNewDefaultParams(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	if params.MinEaseFactor != 1.3 {
		t.Errorf("Expected MinEaseFactor 1.3, got %f", params.MinEaseFactor)
	}
	if params.MaxEaseFactor != 3.0 {
		t.Errorf("Expected MaxEaseFactor 3.0, got %f", params.MaxEaseFactor)
	}
	if params.MaxIntervalDays != 365 {
		t.Errorf("Expected MaxIntervalDays 365, got %d", params.MaxIntervalDays)
	}
	if params.MaxMasteryLevel != 5 {
		t.Errorf("Expected MaxMasteryLevel 5, got %d", params.MaxMasteryLevel)
	}
	if params.MasteryRating != 4 {
		t.Errorf("Expected MasteryRating 4, got %d", params.MasteryRating)
	}
	if params.MasteryLevelThreshold != 1 {
		t.Errorf("Expected MasteryLevelThreshold 1, got %d", params.MasteryLevelThreshold)
	}

	// Ratings <= 3 must lower ease, ratings >= 4 must raise it
	for rating := 1; rating <= 5; rating++ {
		adj, ok := params.EaseFactorAdjustment[rating]
		if !ok {
			t.Fatalf("Missing ease factor adjustment for rating %d", rating)
		}
		if rating <= 3 && adj >= 0 {
			t.Errorf("Expected negative adjustment for rating %d, got %f", rating, adj)
		}
		if rating >= 4 && adj <= 0 {
			t.Errorf("Expected positive adjustment for rating %d, got %f", rating, adj)
		}
	}
}

func TestNewParams(t *testing.T) {
	t.Parallel() // Enable parallel execution

	t.Run("empty config keeps defaults", func(t *testing.T) {
		params := NewParams(ParamsConfig{})
		defaults := NewDefaultParams()

		if params.MinEaseFactor != defaults.MinEaseFactor ||
			params.MaxEaseFactor != defaults.MaxEaseFactor ||
			params.MaxIntervalDays != defaults.MaxIntervalDays ||
			params.MaxMasteryLevel != defaults.MaxMasteryLevel ||
			params.MasteryLevelThreshold != defaults.MasteryLevelThreshold {
			t.Errorf("Expected defaults, got %+v", params)
		}
		for rating, adj := range defaults.EaseFactorAdjustment {
			if params.EaseFactorAdjustment[rating] != adj {
				t.Errorf("Rating %d adjustment changed: %f", rating, params.EaseFactorAdjustment[rating])
			}
		}
	})

	t.Run("overrides are applied", func(t *testing.T) {
		params := NewParams(ParamsConfig{
			MinEaseFactor:             1.5,
			MaxEaseFactor:             2.8,
			AgainEaseFactorAdjustment: -0.3,
			EasyEaseFactorAdjustment:  0.2,
			MaxIntervalDays:           180,
			MaxMasteryLevel:           3,
			MasteryLevelThreshold:     2,
		})

		if params.MinEaseFactor != 1.5 {
			t.Errorf("Expected MinEaseFactor 1.5, got %f", params.MinEaseFactor)
		}
		if params.MaxEaseFactor != 2.8 {
			t.Errorf("Expected MaxEaseFactor 2.8, got %f", params.MaxEaseFactor)
		}
		if params.EaseFactorAdjustment[1] != -0.3 {
			t.Errorf("Expected again adjustment -0.3, got %f", params.EaseFactorAdjustment[1])
		}
		if params.EaseFactorAdjustment[5] != 0.2 {
			t.Errorf("Expected easy adjustment 0.2, got %f", params.EaseFactorAdjustment[5])
		}
		if params.EaseFactorAdjustment[3] != -0.05 {
			t.Errorf("Expected okay adjustment to stay -0.05, got %f", params.EaseFactorAdjustment[3])
		}
		if params.MaxIntervalDays != 180 {
			t.Errorf("Expected MaxIntervalDays 180, got %d", params.MaxIntervalDays)
		}
		if params.MaxMasteryLevel != 3 || params.MasteryLevelThreshold != 2 {
			t.Errorf("Expected mastery bounds 3/2, got %d/%d", params.MaxMasteryLevel, params.MasteryLevelThreshold)
		}
	})

	t.Run("threshold is clamped to max level", func(t *testing.T) {
		params := NewParams(ParamsConfig{MaxMasteryLevel: 2, MasteryLevelThreshold: 4})
		if params.MasteryLevelThreshold != 2 {
			t.Errorf("Expected threshold clamped to 2, got %d", params.MasteryLevelThreshold)
		}
	})

	t.Run("overrides do not leak between instances", func(t *testing.T) {
		_ = NewParams(ParamsConfig{GoodEaseFactorAdjustment: 0.5})
		if NewDefaultParams().EaseFactorAdjustment[4] != 0.10 {
			t.Error("Default params were modified by an override")
		}
	})
}
