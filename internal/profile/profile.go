package profile

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sex is the biological sex used by the energy estimate.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// ActivityLevel is an ordinal describing habitual activity.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "lightly_active"
	ActivityModerate  ActivityLevel = "moderately_active"
	ActivityVery      ActivityLevel = "very_active"
	ActivityExtreme   ActivityLevel = "extremely_active"
)

// Goal is the user's primary health goal.
type Goal string

const (
	GoalWeightLoss    Goal = "weight_loss"
	GoalWeightGain    Goal = "weight_gain"
	GoalMaintenance   Goal = "maintenance"
	GoalMuscleGain    Goal = "muscle_gain"
	GoalGeneralHealth Goal = "general_health"
)

// CookingSkill rates how comfortable the user is in a kitchen.
type CookingSkill string

const (
	SkillBeginner     CookingSkill = "beginner"
	SkillIntermediate CookingSkill = "intermediate"
	SkillAdvanced     CookingSkill = "advanced"
)

// Profile is the validated structured record of one user's planning inputs,
// extracted from the intake conversation. A Profile with no missing fields is
// "complete"; only complete profiles may enter the planner.
type Profile struct {
	Name           string        `json:"name" validate:"required"`
	Age            int           `json:"age" validate:"required,gt=0,lte=130"`
	Sex            Sex           `json:"sex" validate:"required,oneof=male female other"`
	HeightCM       float64       `json:"height_cm" validate:"required,gt=0"`
	WeightKG       float64       `json:"weight_kg" validate:"required,gt=0"`
	TargetWeightKG *float64      `json:"target_weight_kg,omitempty" validate:"omitempty,gt=0"`
	ActivityLevel  ActivityLevel `json:"activity_level" validate:"required,oneof=sedentary lightly_active moderately_active very_active extremely_active"`
	Goal           Goal          `json:"goal" validate:"required,oneof=weight_loss weight_gain maintenance muscle_gain general_health"`

	DietaryRestrictions []string `json:"dietary_restrictions" validate:"dive,oneof=none vegetarian vegan gluten_free dairy_free nut_free low_carb keto paleo"`
	Allergies           []string `json:"allergies"`
	Preferences         []string `json:"preferences"`
	Dislikes            []string `json:"dislikes"`
	CulturalPreferences []string `json:"cultural_preferences"`

	CookingSkill     CookingSkill `json:"cooking_skill" validate:"required,oneof=beginner intermediate advanced"`
	BudgetConstraint string       `json:"budget_constraint,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their wire names so callers can echo them back
	// into the conversation.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MissingFields returns the wire names of all required fields that are
// absent or invalid, in declaration order. An empty result means the
// profile is complete.
func (p *Profile) MissingFields() []string {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Validator misconfiguration rather than bad data.
		panic(fmt.Sprintf("profile validation: %v", err))
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, fe := range verrs {
		name := fe.Field()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	return missing
}

// Complete reports whether every required field is present and valid.
func (p *Profile) Complete() bool {
	return len(p.MissingFields()) == 0
}

// Normalize trims and case-folds the set-valued fields and drops duplicates.
// Extraction output passes through here before validation so that casing
// differences from the collaborator never produce phantom set members.
func (p *Profile) Normalize() {
	p.DietaryRestrictions = normalizeSet(p.DietaryRestrictions)
	p.Allergies = normalizeSet(p.Allergies)
	p.Preferences = dedupeOrdered(p.Preferences)
	p.Dislikes = dedupeOrdered(p.Dislikes)
	p.CulturalPreferences = dedupeOrdered(p.CulturalPreferences)
}

// normalizeSet lowercases, trims and deduplicates, keeping first-seen order.
func normalizeSet(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// dedupeOrdered drops duplicates case-insensitively but preserves the
// original casing and order; these lists are presentational.
func dedupeOrdered(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// IncompleteError reports that extraction succeeded structurally but the
// profile is not yet complete. It is an expected state, not a failure: the
// orchestrator uses Missing to steer the conversation.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("profile incomplete: missing or invalid fields: %s", strings.Join(e.Missing, ", "))
}
