package internal

import "time"

type FoodState string

const (
	FoodEmpty FoodState = "empty"
	FoodLight FoodState = "light"
	FoodFull  FoodState = "full"
)

type Substance string

const (
	SubstancePsilocybin Substance = "psilocybin" // mg
	SubstanceLSD        Substance = "lsd"        // µg
)

type CaffeineTiming string

const (
	CaffeineNone   CaffeineTiming = "none"
	CaffeineBefore CaffeineTiming = "before"
	CaffeineWith   CaffeineTiming = "with"
	CaffeineAfter  CaffeineTiming = "after"
)

type Phase string

const (
	PhasePre         Phase = "pre"
	PhaseActive      Phase = "active"
	PhaseIntegration Phase = "integration"
	PhaseFollowUp    Phase = "follow_up"
)

type ConditionLevel string

const (
	LevelLow   ConditionLevel = "low"
	LevelMed   ConditionLevel = "med"
	LevelHigh  ConditionLevel = "high"
	LevelMixed ConditionLevel = "mixed"
)

type Sensitivity struct {
	Caffeine            int      `json:"caffeine"`             // 1–5
	Cannabis            *int     `json:"cannabis"`             // 1–5, null when not applicable
	BodyAwareness       int      `json:"bodyAwareness"`        // 1–5
	EmotionalReactivity int      `json:"emotionalReactivity"`  // 1–5
	Medications         []string `json:"medications"`
}

type NorthStar struct {
	Type   string  `json:"type"`
	Custom *string `json:"custom"`
}

type User struct {
	ID                string      `json:"id"`
	Token             string      `json:"token,omitempty"`
	Name              string      `json:"name,omitempty"`
	Email             string      `json:"email,omitempty"`
	Sensitivity       Sensitivity `json:"sensitivity"`
	PrimarySubstance  Substance   `json:"primary_substance"`
	NorthStar         NorthStar   `json:"north_star"`
	GuidanceLevel     string      `json:"guidance_level"`
	MenstrualTracking bool        `json:"menstrual_tracking"`
	CycleDay          *int        `json:"cycle_day,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// DefaultUser is the profile assumed for an account that has not finished onboarding.
func DefaultUser(id string) User {
	return User{
		ID: id,
		Sensitivity: Sensitivity{
			Caffeine:            3,
			BodyAwareness:       3,
			EmotionalReactivity: 3,
			Medications:         []string{},
		},
		PrimarySubstance: SubstancePsilocybin,
		NorthStar:        NorthStar{Type: "clarity"},
		GuidanceLevel:    "guided",
	}
}

type Batch struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Substance   Substance `json:"substance"`
	IsActive    bool      `json:"is_active"`
	DosesLogged int       `json:"doses_logged"`
	CreatedAt   time.Time `json:"created_at"`
}

type CarryoverTier string

const (
	TierClear    CarryoverTier = "clear"
	TierMild     CarryoverTier = "mild"
	TierModerate CarryoverTier = "moderate"
	TierHigh     CarryoverTier = "high"
)

type CarryoverResult struct {
	Score                   float64       `json:"score"` // 0–100
	Tier                    CarryoverTier `json:"tier"`
	Recommendation          string        `json:"recommendation"`
	EffectiveDoseMultiplier float64       `json:"effective_dose_multiplier"` // (0,1]
}

type DoseLog struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	BatchID        string           `json:"batch_id"`
	Amount         float64          `json:"amount"`
	Timestamp      time.Time        `json:"timestamp"`
	FoodState      FoodState        `json:"food_state"`
	Intention      string           `json:"intention,omitempty"`
	EffectiveDose  float64          `json:"effective_dose"`
	Carryover      *CarryoverResult `json:"carryover,omitempty"`
	SleepHours     *float64         `json:"sleep_hours,omitempty"`
	SleepQuality   *int             `json:"sleep_quality,omitempty"`
	StressLevel    *int             `json:"stress_level,omitempty"`
	CaffeineMg     *float64         `json:"caffeine_mg,omitempty"`
	CaffeineTiming *CaffeineTiming  `json:"caffeine_timing,omitempty"`
	Environment    *string          `json:"environment,omitempty"`
	Cannabis       *bool            `json:"cannabis,omitempty"`
	CycleDay       *int             `json:"cycle_day,omitempty"`
	Exercise       *string          `json:"exercise,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	Tags           []string         `json:"tags"`
	CreatedAt      time.Time        `json:"created_at"`
}

type Conditions struct {
	Load     ConditionLevel `json:"load"`
	Noise    ConditionLevel `json:"noise"`
	Schedule ConditionLevel `json:"schedule"`
}

type Signals struct {
	Energy    int `json:"energy"`    // 1–5
	Clarity   int `json:"clarity"`   // 1–5
	Stability int `json:"stability"` // 1–5
}

type CheckIn struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DoseID     *string    `json:"dose_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Phase      Phase      `json:"phase"`
	Conditions Conditions `json:"conditions"`
	Signals    Signals    `json:"signals"`
	BodyMap    []string   `json:"body_map"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type PatternType string

const (
	PatternFood        PatternType = "food_correlation"
	PatternDay         PatternType = "day_clustering"
	PatternSleep       PatternType = "sleep_correlation"
	PatternEnvironment PatternType = "environment_correlation"
	PatternCaffeine    PatternType = "caffeine_timing"
	PatternCycle       PatternType = "cycle_correlation"
	PatternBody        PatternType = "body_cluster"
	PatternAnti        PatternType = "anti_pattern"
)

type Pattern struct {
	Type        PatternType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"` // 0–100
}

type ThresholdPoint struct {
	Dose       float64 `json:"dose"`
	Confidence float64 `json:"confidence"`
}

type DoseRange struct {
	Low   ThresholdPoint `json:"low"`
	Sweet ThresholdPoint `json:"sweet"`
	High  ThresholdPoint `json:"high"`
}

const (
	AbstainInsufficientDoses    = "insufficient_doses"
	AbstainInsufficientCheckIns = "insufficient_check_ins"
)

// ThresholdRange carries a nil Range when there is not enough data; Reason says which data.
type ThresholdRange struct {
	Range   *DoseRange `json:"range"`
	Message string     `json:"message"`
	Reason  string     `json:"reason,omitempty"`
}
