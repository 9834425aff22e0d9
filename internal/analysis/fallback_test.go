package analysis

import (
	"strings"
	"testing"
	"unicode/utf8"

	"calotrack/internal/shared/config"
)

func TestFallbackMealDeterministic(t *testing.T) {
	name1, p1 := fallbackMeal(testRanges, "mystery stew")
	name2, p2 := fallbackMeal(testRanges, "mystery stew")
	if name1 != name2 || p1 != p2 {
		t.Fatal("same input should yield the same fallback values")
	}
}

func TestFallbackMealWithinRanges(t *testing.T) {
	for _, desc := range []string{"", "a", "pad thai", "something very long indeed that keeps going"} {
		_, p := fallbackMeal(testRanges, desc)
		if p.Calories < testRanges.CaloriesMin || p.Calories > testRanges.CaloriesMax {
			t.Errorf("%q: calories %d outside range", desc, p.Calories)
		}
		if p.Protein < testRanges.ProteinMin || p.Protein > testRanges.ProteinMax {
			t.Errorf("%q: protein %d outside range", desc, p.Protein)
		}
		if p.Fat < testRanges.FatMin || p.Fat > testRanges.FatMax {
			t.Errorf("%q: fat %d outside range", desc, p.Fat)
		}
		if p.Carbs < testRanges.CarbsMin || p.Carbs > testRanges.CarbsMax {
			t.Errorf("%q: carbs %d outside range", desc, p.Carbs)
		}
	}
}

func TestFallbackMealName(t *testing.T) {
	name, _ := fallbackMeal(testRanges, "pad thai")
	if name != "pad thai" {
		t.Errorf("name = %q", name)
	}

	name, _ = fallbackMeal(testRanges, "")
	found := false
	for _, candidate := range fallbackMealNames {
		if name == candidate {
			found = true
		}
	}
	if !found {
		t.Errorf("empty description yielded unexpected name %q", name)
	}

	long := "a very long meal description well past the cap"
	name, _ = fallbackMeal(testRanges, long)
	if len(name) != 20 {
		t.Errorf("long description name length = %d, want 20", len(name))
	}
}

func TestFallbackMealNameMultiByte(t *testing.T) {
	name, _ := fallbackMeal(testRanges, "ラーメンと餃子とチャーハンと唐揚げと味噌汁の定食セット")
	if !utf8.ValidString(name) {
		t.Fatalf("truncated name is not valid UTF-8: %q", name)
	}
	if got := utf8.RuneCountInString(name); got != 20 {
		t.Errorf("rune count = %d, want 20", got)
	}
	if !strings.HasPrefix(name, "ラーメンと餃子") {
		t.Errorf("name = %q, want original prefix preserved", name)
	}
}

func TestFallbackExercise(t *testing.T) {
	if got := fallbackExercise(testRanges, 30); got != 150 {
		t.Errorf("30 min = %d, want 150", got)
	}
	// Zero rate falls back to the default burn rate.
	if got := fallbackExercise(config.FallbackRanges{}, 10); got != 50 {
		t.Errorf("default rate: %d, want 50", got)
	}
}

func TestEmojiFor(t *testing.T) {
	cases := map[string]string{
		"Tonkotsu Ramen":   "🍜",
		"chicken salad":    "🥗",
		"Margherita pizza": "🍕",
		"grilled cheese":   "🍽️",
	}
	for name, want := range cases {
		if got := emojiFor(name); got != want {
			t.Errorf("emojiFor(%q) = %q, want %q", name, got, want)
		}
	}
}
