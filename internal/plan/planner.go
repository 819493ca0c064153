package plan

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/profile"
	"ai-diet-planner/internal/shared"
)

//go:embed planner_prompt.md
var plannerPrompt string

// ErrMalformedResponse indicates the collaborator returned a plan that could
// not be parsed or failed structural validation after the bounded retry.
var ErrMalformedResponse = errors.New("plan: malformed generation response")

// SafetyError reports an allergy conflict that survived the corrective
// regeneration. The plan is withheld rather than served unsafe.
type SafetyError struct {
	Day        string
	Ingredient string
	Allergen   string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("unsafe meal plan: %s: ingredient %q matches allergy %q", e.Day, e.Ingredient, e.Allergen)
}

// malformedRetries and safetyRetries bound re-attempts against a paid
// external API.
const (
	malformedRetries = 1
	safetyRetries    = 1
)

// Planner generates weekly plans from complete profiles.
type Planner struct {
	gen llm.Generator
	now func() time.Time
}

// NewPlanner creates a Planner backed by the given generator.
func NewPlanner(gen llm.Generator) *Planner {
	return &Planner{gen: gen, now: time.Now}
}

// rawWeek is the collaborator's wire shape. Its shopping list and totals, if
// any, are discarded; both are derived locally.
type rawWeek struct {
	Days            []DayPlan `json:"daily_plans"`
	Recommendations []string  `json:"recommendations"`
}

// Generate produces a new WeekPlan for the profile. The profile must be
// complete; calling with an incomplete one is a programming defect and
// panics. Meal content is schema-constrained generation; the calorie budget,
// daily totals and shopping list are computed locally.
func (p *Planner) Generate(ctx context.Context, prof profile.Profile) (*WeekPlan, []shared.AgentMeta, error) {
	if missing := prof.MissingFields(); len(missing) > 0 {
		panic(fmt.Sprintf("plan: Generate called with incomplete profile (missing %s)", strings.Join(missing, ", ")))
	}

	targets := DailyTargets(prof)

	var metas []shared.AgentMeta
	amendment := ""
	for attempt := 0; attempt <= safetyRetries; attempt++ {
		raw, attemptMetas, err := p.generateOnce(ctx, prof, targets, amendment)
		metas = append(metas, attemptMetas...)
		if err != nil {
			return nil, metas, err
		}

		violations := screenAllergies(raw.Days, prof.Allergies)
		if len(violations) == 0 {
			return p.finalize(raw, targets), metas, nil
		}
		if attempt == safetyRetries {
			v := violations[0]
			return nil, metas, &SafetyError{Day: v.day, Ingredient: v.ingredient, Allergen: v.allergen}
		}
		amendment = formatViolations(violations)
	}

	// Unreachable: the loop always returns.
	return nil, metas, fmt.Errorf("plan: generation fell through")
}

// generateOnce runs one prompt-generate-parse-validate cycle, retrying a
// malformed response once with the same prompt.
func (p *Planner) generateOnce(ctx context.Context, prof profile.Profile, targets Targets, amendment string) (*rawWeek, []shared.AgentMeta, error) {
	prompt, err := buildPlannerPrompt(prof, targets, amendment)
	if err != nil {
		return nil, nil, err
	}

	var metas []shared.AgentMeta
	var lastErr error
	for attempt := 0; attempt <= malformedRetries; attempt++ {
		start := p.now()
		resp, err := p.gen.Generate(ctx, llm.Request{
			Prompt: prompt,
			Schema: weekSchema(),
		})
		metas = append(metas, shared.AgentMeta{
			AgentName: "Planner",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		})
		if err != nil {
			return nil, metas, fmt.Errorf("failed to generate meal plan: %w", err)
		}

		raw := &rawWeek{}
		if err := json.Unmarshal([]byte(stripFences(resp.Content)), raw); err != nil {
			lastErr = fmt.Errorf("%w. Response: %s", err, resp.Content)
			continue
		}
		if err := validateStructure(raw.Days); err != nil {
			lastErr = err
			continue
		}
		return raw, metas, nil
	}
	return nil, metas, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
}

// finalize applies everything that is never trusted from the collaborator:
// canonical day names, recomputed totals, the derived shopping list, the
// targets and the creation timestamp.
func (p *Planner) finalize(raw *rawWeek, targets Targets) *WeekPlan {
	days := make([]DayPlan, len(raw.Days))
	copy(days, raw.Days)
	for i := range days {
		days[i].Day = WeekDays[i]
		days[i].RecomputeTotals()
	}

	return &WeekPlan{
		Days:            days,
		ShoppingList:    BuildShoppingList(days),
		Recommendations: raw.Recommendations,
		Targets:         targets,
		CreatedAt:       p.now().UTC(),
	}
}

type violation struct {
	day        string
	ingredient string
	allergen   string
}

// screenAllergies matches every ingredient against the allergy set,
// case-insensitive substring.
func screenAllergies(days []DayPlan, allergies []string) []violation {
	var found []violation
	for _, day := range days {
		for _, meal := range day.Meals {
			for _, ing := range meal.Ingredients {
				lowered := strings.ToLower(ing)
				for _, allergen := range allergies {
					a := strings.ToLower(strings.TrimSpace(allergen))
					if a == "" {
						continue
					}
					if strings.Contains(lowered, a) {
						found = append(found, violation{day: day.Day, ingredient: ing, allergen: allergen})
					}
				}
			}
		}
	}
	return found
}

func formatViolations(violations []violation) string {
	var sb strings.Builder
	for _, v := range violations {
		fmt.Fprintf(&sb, "- %s: %q contains %q\n", v.day, v.ingredient, v.allergen)
	}
	return sb.String()
}

type plannerPromptData struct {
	ProfileJSON  string
	Targets      Targets
	Allergies    []string
	Restrictions []string
	Amendment    string
}

func buildPlannerPrompt(prof profile.Profile, targets Targets, amendment string) (string, error) {
	tmpl, err := template.New("planner").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(plannerPrompt)
	if err != nil {
		return "", err
	}

	profileJSON, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, plannerPromptData{
		ProfileJSON:  string(profileJSON),
		Targets:      targets,
		Allergies:    prof.Allergies,
		Restrictions: prof.DietaryRestrictions,
		Amendment:    amendment,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stripFences removes a markdown code fence if the collaborator wrapped its
// JSON in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func weekSchema() *llm.Schema {
	meal := llm.Object(map[string]*llm.Schema{
		"meal_time":    llm.String(string(SlotBreakfast), string(SlotLunch), string(SlotDinner), string(SlotSnacks)),
		"meal_name":    llm.String(),
		"description":  llm.String(),
		"ingredients":  llm.Array(llm.String()),
		"instructions": llm.Array(llm.String()),
		"nutrition_info": llm.Object(map[string]*llm.Schema{
			"calories": llm.Integer(),
			"protein":  llm.Number(),
			"carbs":    llm.Number(),
			"fat":      llm.Number(),
		}, "calories", "protein", "carbs", "fat"),
		"prep_minutes": llm.Integer(),
		"cook_minutes": llm.Integer(),
		"difficulty":   llm.String(),
	}, "meal_time", "meal_name", "ingredients", "instructions", "nutrition_info")

	day := llm.Object(map[string]*llm.Schema{
		"day":   llm.String(WeekDays...),
		"meals": llm.Array(meal),
		"notes": llm.String(),
	}, "day", "meals")

	return llm.Object(map[string]*llm.Schema{
		"daily_plans":     llm.Array(day),
		"recommendations": llm.Array(llm.String()),
	}, "daily_plans", "recommendations")
}
