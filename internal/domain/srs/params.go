package srs

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Ease factor adjustment per rating (1..5)
	EaseFactorAdjustment map[int]float64

	// Upper bound for a scheduled interval
	MaxIntervalDays int

	// Mastery
	MaxMasteryLevel       int
	MasteryRating         int // minimum rating that increments mastery_level
	MasteryLevelThreshold int // mastery_level at which an item counts as mastered
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	// Core limits
	MinEaseFactor float64
	MaxEaseFactor float64

	// Ease factor adjustments
	AgainEaseFactorAdjustment float64 // rating 1
	HardEaseFactorAdjustment  float64 // rating 2
	OkayEaseFactorAdjustment  float64 // rating 3
	GoodEaseFactorAdjustment  float64 // rating 4
	EasyEaseFactorAdjustment  float64 // rating 5

	MaxIntervalDays int

	MaxMasteryLevel       int
	MasteryLevelThreshold int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: 1.3,
		MaxEaseFactor: 3.0,

		// Ratings <= 3 decrease ease, ratings >= 4 increase it
		EaseFactorAdjustment: map[int]float64{
			1: -0.20,
			2: -0.15,
			3: -0.05,
			4: 0.10,
			5: 0.15,
		},

		MaxIntervalDays: 365,

		MaxMasteryLevel:       5,
		MasteryRating:         4,
		MasteryLevelThreshold: 1,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override core limits if provided
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}

	// Override ease factor adjustments if provided
	if config.AgainEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[1] = config.AgainEaseFactorAdjustment
	}
	if config.HardEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[2] = config.HardEaseFactorAdjustment
	}
	if config.OkayEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[3] = config.OkayEaseFactorAdjustment
	}
	if config.GoodEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[4] = config.GoodEaseFactorAdjustment
	}
	if config.EasyEaseFactorAdjustment != 0 {
		params.EaseFactorAdjustment[5] = config.EasyEaseFactorAdjustment
	}

	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	// Override mastery bounds if provided
	if config.MaxMasteryLevel > 0 {
		params.MaxMasteryLevel = config.MaxMasteryLevel
	}
	if config.MasteryLevelThreshold > 0 {
		params.MasteryLevelThreshold = config.MasteryLevelThreshold
	}
	if params.MasteryLevelThreshold > params.MaxMasteryLevel {
		params.MasteryLevelThreshold = params.MaxMasteryLevel
	}

	return params
}
