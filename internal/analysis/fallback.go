package analysis

import (
	"hash/fnv"
	"strings"

	"calotrack/internal/logs"
	"calotrack/internal/shared/config"
)

// Fallback names when no description is available to derive one from.
var fallbackMealNames = []string{"Analyzed meal", "Home-cooked meal", "Balanced meal"}

// fallbackMeal builds the approximate result used when remote analysis
// fails. Values are drawn deterministically from the input so the same
// failure yields the same estimate, within the configured ranges.
func fallbackMeal(ranges config.FallbackRanges, description string) (string, logs.MealPayload) {
	name := strings.TrimSpace(description)
	if name == "" {
		name = fallbackMealNames[pick(description, "name", len(fallbackMealNames))]
	} else if runes := []rune(name); len(runes) > 20 {
		// Truncate by runes, not bytes; descriptions are often multi-byte.
		name = string(runes[:20])
	}
	payload := logs.MealPayload{
		Calories: drawn(description, "calories", ranges.CaloriesMin, ranges.CaloriesMax),
		Protein:  drawn(description, "protein", ranges.ProteinMin, ranges.ProteinMax),
		Fat:      drawn(description, "fat", ranges.FatMin, ranges.FatMax),
		Carbs:    drawn(description, "carbs", ranges.CarbsMin, ranges.CarbsMax),
	}
	return name, payload
}

// fallbackExercise estimates calories burned from duration alone.
func fallbackExercise(ranges config.FallbackRanges, durationMinutes int) int {
	rate := ranges.BurnPerMinute
	if rate <= 0 {
		rate = 5
	}
	return durationMinutes * rate
}

func drawn(input, salt string, min, max int) int {
	if max <= min {
		return min
	}
	return min + pick(input, salt, max-min+1)
}

func pick(input, salt string, n int) int {
	h := fnv.New64a()
	h.Write([]byte(input))
	h.Write([]byte{0})
	h.Write([]byte(salt))
	return int(h.Sum64() % uint64(n))
}

var emojiKeywords = []struct {
	keyword string
	emoji   string
}{
	{"ramen", "🍜"}, {"noodle", "🍜"},
	{"rice", "🍚"}, {"bowl", "🍚"},
	{"bread", "🍞"}, {"toast", "🍞"},
	{"salad", "🥗"},
	{"steak", "🥩"}, {"beef", "🥩"}, {"pork", "🥩"}, {"chicken", "🍗"},
	{"fish", "🍣"}, {"sushi", "🍣"},
	{"egg", "🍳"},
	{"curry", "🍛"},
	{"pizza", "🍕"},
	{"burger", "🍔"},
	{"pasta", "🍝"},
	{"coffee", "☕"},
	{"cake", "🍰"}, {"dessert", "🍰"}, {"sweet", "🍰"},
}

func emojiFor(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range emojiKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.emoji
		}
	}
	return "🍽️"
}
