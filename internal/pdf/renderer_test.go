package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
)

func fixtureProfile() profile.Profile {
	target := 75.0
	return profile.Profile{
		Name:                "Maria González",
		Age:                 30,
		Sex:                 profile.SexFemale,
		HeightCM:            168,
		WeightKG:            82,
		TargetWeightKG:      &target,
		ActivityLevel:       profile.ActivitySedentary,
		Goal:                profile.GoalWeightLoss,
		DietaryRestrictions: []string{"gluten_free"},
		Allergies:           []string{"peanut"},
		CookingSkill:        profile.SkillBeginner,
	}
}

func fixturePlan() *plan.WeekPlan {
	days := make([]plan.DayPlan, len(plan.WeekDays))
	for i, name := range plan.WeekDays {
		meals := make([]plan.MealEntry, len(plan.MealSlots))
		for j, slot := range plan.MealSlots {
			meals[j] = plan.MealEntry{
				Slot:         slot,
				Name:         fmt.Sprintf("%s %s bowl", name, slot),
				Description:  "A simple balanced dish.",
				Ingredients:  []string{"rice", "chicken breast", "olive oil"},
				Instructions: []string{"Cook the rice.", "Grill the chicken.", "Combine and serve."},
				Nutrition:    plan.Nutrition{Calories: 500, Protein: 30, Carbs: 55, Fat: 15},
				PrepMinutes:  10,
				CookMinutes:  20,
				Difficulty:   "easy",
			}
		}
		days[i] = plan.DayPlan{Day: name, Meals: meals}
		days[i].RecomputeTotals()
	}

	return &plan.WeekPlan{
		Days:            days,
		ShoppingList:    plan.BuildShoppingList(days),
		Recommendations: []string{"Drink at least two liters of water a day.", "Prep grains ahead on Sunday."},
		Targets:         plan.Targets{BMR: 1517, TDEE: 1820, Calories: 1320, ProteinG: 99, CarbsG: 132, FatG: 44},
		CreatedAt:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

// renderedText inflates every flate content stream so tests can assert on
// the text actually drawn into the document.
func renderedText(t *testing.T, raw []byte) string {
	t.Helper()
	var sb bytes.Buffer
	rest := raw
	for {
		i := bytes.Index(rest, []byte("stream"))
		if i < 0 {
			break
		}
		rest = bytes.TrimLeft(rest[i+len("stream"):], "\r\n")
		j := bytes.Index(rest, []byte("endstream"))
		if j < 0 {
			break
		}
		data := rest[:j]
		rest = rest[j+len("endstream"):]

		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			continue
		}
		inflated, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		sb.Write(inflated)
	}
	require.NotZero(t, sb.Len())
	return sb.String()
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(fixtureProfile(), fixturePlan())
	require.NoError(t, err)
	require.True(t, len(out) > 1000)
	require.Equal(t, "%PDF-", string(out[:5]))
}

func TestRenderTargetsSection(t *testing.T) {
	out, err := Render(fixtureProfile(), fixturePlan())
	require.NoError(t, err)

	text := renderedText(t, out)
	assert.Contains(t, text, "Daily Nutrition Targets")
	assert.Contains(t, text, "(1320 kcal)")
	assert.Contains(t, text, "(99 g)")
	assert.Contains(t, text, "(132 g)")
	assert.Contains(t, text, "(44 g)")
}

func TestRenderWeeklyOverview(t *testing.T) {
	out, err := Render(fixtureProfile(), fixturePlan())
	require.NoError(t, err)

	// 4 meals x 500 kcal x 7 days; per-day macros 120/220/60.
	text := renderedText(t, out)
	assert.Contains(t, text, "Weekly Overview")
	assert.Contains(t, text, "(14000 kcal)")
	assert.Contains(t, text, "(2000 kcal)")
	assert.Contains(t, text, "(120 g)")
	assert.Contains(t, text, "(220 g)")
	assert.Contains(t, text, "(60 g)")
}

func TestRenderIsDeterministic(t *testing.T) {
	p := fixtureProfile()
	week := fixturePlan()

	first, err := Render(p, week)
	require.NoError(t, err)
	second, err := Render(p, week)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestRenderHandlesLongContent(t *testing.T) {
	week := fixturePlan()
	for d := range week.Days {
		for m := range week.Days[d].Meals {
			ings := make([]string, 40)
			for i := range ings {
				ings[i] = fmt.Sprintf("ingredient number %d with a fairly long descriptive name", i)
			}
			week.Days[d].Meals[m].Ingredients = ings
		}
	}
	week.ShoppingList = plan.BuildShoppingList(week.Days)

	out, err := Render(fixtureProfile(), week)
	require.NoError(t, err)
	require.Equal(t, "%PDF-", string(out[:5]))
}

func TestRenderHandlesAccentedText(t *testing.T) {
	p := fixtureProfile()
	p.Name = "José Müller-Ávila"
	week := fixturePlan()
	week.Days[0].Meals[0].Name = "Crème brûlée oats"

	out, err := Render(p, week)
	require.NoError(t, err)
	require.Equal(t, "%PDF-", string(out[:5]))
}
