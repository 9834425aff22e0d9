package logs

import (
	"fmt"
	"time"
)

// Kind identifies which log collection an entry belongs to.
type Kind string

const (
	KindMeal     Kind = "meal"
	KindExercise Kind = "exercise"
	KindWeight   Kind = "weight"
)

// ParseKind validates a kind string from an external caller.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindMeal, KindExercise, KindWeight:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("unknown log kind %q", raw)
}

// Status is the entry lifecycle state. Transitions are monotonic:
// analyzing -> complete or analyzing -> error; terminal states only leave
// the collection by deletion.
type Status string

const (
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// ValidTransition reports whether from -> to is an allowed status change.
func ValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusAnalyzing && (to == StatusComplete || to == StatusError)
}

// DayKey is the calendar day partition key in YYYY-MM-DD form. It is derived
// once at creation and never changes, so an entry cannot migrate between
// days through later mutation.
type DayKey string

const dayKeyLayout = "2006-01-02"

// DayOf derives the day key for a timestamp.
func DayOf(t time.Time) DayKey {
	return DayKey(t.Format(dayKeyLayout))
}

// ParseDayKey validates a day key from an external caller.
func ParseDayKey(raw string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, raw); err != nil {
		return "", fmt.Errorf("invalid day %q: %w", raw, err)
	}
	return DayKey(raw), nil
}

// MealPayload carries the nutrient values of a completed meal entry.
type MealPayload struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Fat      int `json:"fat"`
	Carbs    int `json:"carbs"`
	Sugar    int `json:"sugar"`
	Fiber    int `json:"fiber"`
	Sodium   int `json:"sodium"`
}

// ExercisePayload carries the result values of a completed exercise entry.
type ExercisePayload struct {
	DurationMinutes int    `json:"durationMinutes"`
	CaloriesBurned  int    `json:"caloriesBurned"`
	ExerciseType    string `json:"exerciseType,omitempty"`
}

// WeightPayload carries a weight record. Weight entries are always saved
// complete; there is no analysis path for them.
type WeightPayload struct {
	WeightKg float64 `json:"weightKg"`
}

// Entry is one logged meal, exercise, or weight record. Exactly one of the
// payload pointers is set, matching Kind, and only meaningful once Status
// is complete.
type Entry struct {
	ID                string           `json:"id"`
	Kind              Kind             `json:"kind"`
	DayKey            DayKey           `json:"dayKey"`
	CreatedAt         time.Time        `json:"createdAt"`
	Status            Status           `json:"status"`
	Name              string           `json:"name,omitempty"`
	Emoji             string           `json:"emoji,omitempty"`
	Meal              *MealPayload     `json:"meal,omitempty"`
	Exercise          *ExercisePayload `json:"exercise,omitempty"`
	Weight            *WeightPayload   `json:"weight,omitempty"`
	SourceImage       []byte           `json:"sourceImage,omitempty"`
	SourceDescription string           `json:"sourceDescription,omitempty"`
}

// TimedOut reports whether an analyzing entry has exceeded the acceptable
// wait. Derived on read and never persisted; a late successful resolution
// supersedes it because Status will no longer be analyzing.
func (e Entry) TimedOut(now time.Time, threshold time.Duration) bool {
	return e.Status == StatusAnalyzing && now.Sub(e.CreatedAt) > threshold
}

// Totals aggregates one day's completed entries. Analyzing and error
// entries contribute zero so provisional guesses are never counted.
type Totals struct {
	Calories        int `json:"calories"`
	Protein         int `json:"protein"`
	Fat             int `json:"fat"`
	Carbs           int `json:"carbs"`
	Sugar           int `json:"sugar"`
	Fiber           int `json:"fiber"`
	Sodium          int `json:"sodium"`
	CaloriesBurned  int `json:"caloriesBurned"`
	DurationMinutes int `json:"durationMinutes"`
	EntryCount      int `json:"entryCount"`
}

func (t *Totals) add(e Entry) {
	if e.Status != StatusComplete {
		return
	}
	t.EntryCount++
	if e.Meal != nil {
		t.Calories += e.Meal.Calories
		t.Protein += e.Meal.Protein
		t.Fat += e.Meal.Fat
		t.Carbs += e.Meal.Carbs
		t.Sugar += e.Meal.Sugar
		t.Fiber += e.Meal.Fiber
		t.Sodium += e.Meal.Sodium
	}
	if e.Exercise != nil {
		t.CaloriesBurned += e.Exercise.CaloriesBurned
		t.DurationMinutes += e.Exercise.DurationMinutes
	}
}
