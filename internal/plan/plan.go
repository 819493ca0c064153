// Package plan defines the weekly meal plan schema and the planner agent
// that produces it from a complete profile.
package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Slot is a fixed meal position within a day.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
	SlotSnacks    Slot = "snacks"
)

// MealSlots is the fixed per-day slot structure, in serving order.
var MealSlots = []Slot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnacks}

// WeekDays is the fixed day sequence of a plan.
var WeekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Nutrition is an estimate in kcal and grams.
type Nutrition struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Add returns the component-wise sum of two estimates.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
	}
}

// MealEntry is one meal of one day.
type MealEntry struct {
	Slot         Slot      `json:"meal_time"`
	Name         string    `json:"meal_name"`
	Description  string    `json:"description"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Nutrition    Nutrition `json:"nutrition_info"`
	PrepMinutes  int       `json:"prep_minutes"`
	CookMinutes  int       `json:"cook_minutes"`
	Difficulty   string    `json:"difficulty"`
}

// DayPlan is one day's fixed sequence of meals plus the locally recomputed
// daily total.
type DayPlan struct {
	Day    string      `json:"day"`
	Meals  []MealEntry `json:"meals"`
	Totals Nutrition   `json:"totals"`
	Notes  string      `json:"notes,omitempty"`
}

// RecomputeTotals rederives the daily total from the meal entries. The
// collaborator's self-reported totals are never trusted.
func (d *DayPlan) RecomputeTotals() {
	var sum Nutrition
	for _, m := range d.Meals {
		sum = sum.Add(m.Nutrition)
	}
	d.Totals = sum
}

// Targets is the deterministic daily calorie and macro budget the plan was
// generated against.
type Targets struct {
	BMR      float64 `json:"bmr"`
	TDEE     float64 `json:"tdee"`
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// WeekPlan is an immutable seven-day plan. Regeneration produces a new
// value, never a mutation of an existing one.
type WeekPlan struct {
	Days            []DayPlan `json:"daily_plans"`
	ShoppingList    []string  `json:"shopping_list"`
	Recommendations []string  `json:"recommendations"`
	Targets         Targets   `json:"targets"`
	CreatedAt       time.Time `json:"created_at"`
}

// BuildShoppingList derives the deduplicated, case-normalized, sorted union
// of every ingredient in the given days.
func BuildShoppingList(days []DayPlan) []string {
	seen := make(map[string]struct{})
	for _, day := range days {
		for _, meal := range day.Meals {
			for _, ing := range meal.Ingredients {
				ing = strings.ToLower(strings.TrimSpace(ing))
				if ing == "" {
					continue
				}
				seen[ing] = struct{}{}
			}
		}
	}

	items := make([]string, 0, len(seen))
	for ing := range seen {
		items = append(items, ing)
	}
	sort.Strings(items)
	return items
}

// validateStructure checks the shape invariants of a collaborator-returned
// plan: exactly seven days in order, the fixed slot sequence per day,
// non-empty ingredient lists and non-negative nutrition and durations.
func validateStructure(days []DayPlan) error {
	if len(days) != len(WeekDays) {
		return fmt.Errorf("expected %d days, got %d", len(WeekDays), len(days))
	}
	for i, day := range days {
		if !strings.EqualFold(day.Day, WeekDays[i]) {
			return fmt.Errorf("day %d: expected %s, got %q", i+1, WeekDays[i], day.Day)
		}
		if len(day.Meals) != len(MealSlots) {
			return fmt.Errorf("%s: expected %d meals, got %d", WeekDays[i], len(MealSlots), len(day.Meals))
		}
		for j, meal := range day.Meals {
			if meal.Slot != MealSlots[j] {
				return fmt.Errorf("%s meal %d: expected slot %s, got %q", WeekDays[i], j+1, MealSlots[j], meal.Slot)
			}
			if meal.Name == "" {
				return fmt.Errorf("%s %s: meal has no name", WeekDays[i], meal.Slot)
			}
			if len(meal.Ingredients) == 0 {
				return fmt.Errorf("%s %s: meal has no ingredients", WeekDays[i], meal.Slot)
			}
			if meal.PrepMinutes < 0 || meal.CookMinutes < 0 {
				return fmt.Errorf("%s %s: negative duration", WeekDays[i], meal.Slot)
			}
			n := meal.Nutrition
			if n.Calories < 0 || n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 {
				return fmt.Errorf("%s %s: negative nutrition estimate", WeekDays[i], meal.Slot)
			}
		}
	}
	return nil
}
