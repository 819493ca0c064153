// Package pdf renders a weekly meal plan into a printable document.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"ai-diet-planner/internal/plan"
	"ai-diet-planner/internal/profile"
)

const (
	pageMargin  = 15.0
	headerBlue  = 41
	headerGreen = 128
	headerRed   = 185
)

// Render produces the PDF document for a generated plan.
// The same profile and plan always yield the same bytes.
func Render(p profile.Profile, week *plan.WeekPlan) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(week.CreatedAt)
	doc.SetModificationDate(week.CreatedAt)
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	titlePage(doc, tr, p, week)
	weeklyOverview(doc, tr, week)
	for i := range week.Days {
		dayPage(doc, tr, &week.Days[i])
	}
	shoppingPage(doc, tr, week)
	if len(week.Recommendations) > 0 {
		recommendationsSection(doc, tr, week)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func titlePage(doc *fpdf.Fpdf, tr func(string) string, p profile.Profile, week *plan.WeekPlan) {
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 22)
	doc.SetTextColor(headerRed, headerGreen, headerBlue)
	doc.CellFormat(0, 14, tr("Personalized Weekly Meal Plan"), "", 1, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("Prepared for %s", p.Name)), "", 1, "C", false, 0, "")
	doc.Ln(6)

	sectionHeading(doc, tr, "Profile Summary")
	profileRow(doc, tr, "Age", fmt.Sprintf("%d years", p.Age))
	profileRow(doc, tr, "Sex", string(p.Sex))
	profileRow(doc, tr, "Height", fmt.Sprintf("%.0f cm", p.HeightCM))
	profileRow(doc, tr, "Weight", fmt.Sprintf("%.1f kg", p.WeightKG))
	if p.TargetWeightKG != nil {
		profileRow(doc, tr, "Target weight", fmt.Sprintf("%.1f kg", *p.TargetWeightKG))
	}
	profileRow(doc, tr, "Activity level", humanize(string(p.ActivityLevel)))
	profileRow(doc, tr, "Goal", humanize(string(p.Goal)))
	profileRow(doc, tr, "Cooking skill", humanize(string(p.CookingSkill)))
	if len(p.DietaryRestrictions) > 0 {
		restrictions := make([]string, len(p.DietaryRestrictions))
		for i, r := range p.DietaryRestrictions {
			restrictions[i] = humanize(r)
		}
		profileRow(doc, tr, "Dietary restrictions", strings.Join(restrictions, ", "))
	}
	if len(p.Allergies) > 0 {
		profileRow(doc, tr, "Allergies", strings.Join(p.Allergies, ", "))
	}
	doc.Ln(6)

	sectionHeading(doc, tr, "Daily Nutrition Targets")
	t := week.Targets
	profileRow(doc, tr, "Basal metabolic rate", fmt.Sprintf("%.0f kcal", t.BMR))
	profileRow(doc, tr, "Daily expenditure", fmt.Sprintf("%.0f kcal", t.TDEE))
	profileRow(doc, tr, "Calorie target", fmt.Sprintf("%d kcal", t.Calories))
	profileRow(doc, tr, "Protein", fmt.Sprintf("%.0f g", t.ProteinG))
	profileRow(doc, tr, "Carbohydrates", fmt.Sprintf("%.0f g", t.CarbsG))
	profileRow(doc, tr, "Fat", fmt.Sprintf("%.0f g", t.FatG))
}

// weeklyOverview summarizes the week: total calories and the per-day macro
// averages, derived from the recomputed day totals.
func weeklyOverview(doc *fpdf.Fpdf, tr func(string) string, week *plan.WeekPlan) {
	if len(week.Days) == 0 {
		return
	}
	var total plan.Nutrition
	for _, day := range week.Days {
		total = total.Add(day.Totals)
	}
	days := float64(len(week.Days))

	doc.Ln(6)
	sectionHeading(doc, tr, "Weekly Overview")
	profileRow(doc, tr, "Total calories", fmt.Sprintf("%d kcal", total.Calories))
	profileRow(doc, tr, "Average calories / day", fmt.Sprintf("%.0f kcal", float64(total.Calories)/days))
	profileRow(doc, tr, "Average protein / day", fmt.Sprintf("%.0f g", total.Protein/days))
	profileRow(doc, tr, "Average carbs / day", fmt.Sprintf("%.0f g", total.Carbs/days))
	profileRow(doc, tr, "Average fat / day", fmt.Sprintf("%.0f g", total.Fat/days))
}

func dayPage(doc *fpdf.Fpdf, tr func(string) string, day *plan.DayPlan) {
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.SetTextColor(headerRed, headerGreen, headerBlue)
	doc.CellFormat(0, 10, tr(day.Day), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)

	doc.SetFont("Helvetica", "I", 10)
	doc.CellFormat(0, 6, tr(fmt.Sprintf(
		"Daily totals: %d kcal  |  %.0fg protein  |  %.0fg carbs  |  %.0fg fat",
		day.Totals.Calories, day.Totals.Protein, day.Totals.Carbs, day.Totals.Fat,
	)), "", 1, "L", false, 0, "")
	doc.Ln(3)

	for i := range day.Meals {
		mealSection(doc, tr, &day.Meals[i])
	}

	if day.Notes != "" {
		doc.SetFont("Helvetica", "I", 9)
		doc.MultiCell(0, 5, tr("Note: "+day.Notes), "", "L", false)
	}
}

func mealSection(doc *fpdf.Fpdf, tr func(string) string, meal *plan.MealEntry) {
	doc.SetFont("Helvetica", "B", 12)
	doc.SetFillColor(235, 240, 248)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("%s: %s", humanize(string(meal.Slot)), meal.Name)), "", 1, "L", true, 0, "")

	doc.SetFont("Helvetica", "", 10)
	if meal.Description != "" {
		doc.MultiCell(0, 5, tr(meal.Description), "", "L", false)
	}

	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, tr(fmt.Sprintf(
		"%d kcal  |  %.0fg protein  |  %.0fg carbs  |  %.0fg fat  |  prep %d min  |  cook %d min  |  %s",
		meal.Nutrition.Calories, meal.Nutrition.Protein, meal.Nutrition.Carbs, meal.Nutrition.Fat,
		meal.PrepMinutes, meal.CookMinutes, humanize(meal.Difficulty),
	)), "", 1, "L", false, 0, "")

	if len(meal.Ingredients) > 0 {
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(0, 5, tr("Ingredients"), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		doc.MultiCell(0, 5, tr(strings.Join(meal.Ingredients, ", ")), "", "L", false)
	}
	if len(meal.Instructions) > 0 {
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(0, 5, tr("Instructions"), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		for i, step := range meal.Instructions {
			doc.MultiCell(0, 5, tr(fmt.Sprintf("%d. %s", i+1, step)), "", "L", false)
		}
	}
	doc.Ln(3)
}

func shoppingPage(doc *fpdf.Fpdf, tr func(string) string, week *plan.WeekPlan) {
	doc.AddPage()
	sectionHeading(doc, tr, "Shopping List")

	doc.SetFont("Helvetica", "", 10)
	for _, item := range week.ShoppingList {
		doc.MultiCell(0, 6, tr("- "+item), "", "L", false)
	}
}

func recommendationsSection(doc *fpdf.Fpdf, tr func(string) string, week *plan.WeekPlan) {
	doc.Ln(6)
	sectionHeading(doc, tr, "Recommendations")

	doc.SetFont("Helvetica", "", 10)
	for _, rec := range week.Recommendations {
		doc.MultiCell(0, 6, tr("- "+rec), "", "L", false)
	}
}

func sectionHeading(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.SetTextColor(headerRed, headerGreen, headerBlue)
	doc.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(1)
}

func profileRow(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(55, 6, tr(label), "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
}

// humanize turns snake_case wire values into display text.
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
