package plan

import (
	"math"

	"ai-diet-planner/internal/profile"
)

// activityMultipliers maps activity levels to their TDEE multiplier. This is
// the single source of truth for the deterministic energy estimate.
var activityMultipliers = map[profile.ActivityLevel]float64{
	profile.ActivitySedentary: 1.2,
	profile.ActivityLight:     1.375,
	profile.ActivityModerate:  1.55,
	profile.ActivityVery:      1.725,
	profile.ActivityExtreme:   1.9,
}

// goalAdjustments shifts the daily calorie budget by goal direction (kcal).
var goalAdjustments = map[profile.Goal]int{
	profile.GoalWeightLoss:    -500,
	profile.GoalWeightGain:    +500,
	profile.GoalMuscleGain:    +300,
	profile.GoalMaintenance:   0,
	profile.GoalGeneralHealth: 0,
}

// minDailyCalories floors the budget; a larger deficit than this is not a
// plan the system should ever hand out.
const minDailyCalories = 1200

// BMR computes the basal metabolic rate (kcal/day) via Mifflin-St Jeor.
// The sex constant is +5 male, -161 female; "other" uses the midpoint.
func BMR(weightKG, heightCM float64, age int, sex profile.Sex) float64 {
	bmr := 10*weightKG + 6.25*heightCM - 5*float64(age)
	switch sex {
	case profile.SexMale:
		bmr += 5
	case profile.SexFemale:
		bmr -= 161
	default:
		bmr -= 78
	}
	return bmr
}

// DailyTargets computes the calorie and macro budget for a complete profile.
// This numeric step is fully deterministic and never delegated to the
// collaborator.
func DailyTargets(p profile.Profile) Targets {
	bmr := BMR(p.WeightKG, p.HeightCM, p.Age, p.Sex)
	tdee := bmr * activityMultipliers[p.ActivityLevel]

	calories := int(math.Round(tdee)) + goalAdjustments[p.Goal]
	if calories < minDailyCalories {
		calories = minDailyCalories
	}

	// Macro split: 30/40/30 % of kcal for protein/carbs/fat, shifted to
	// 35/35/30 when building muscle. 4 kcal/g protein and carbs, 9 kcal/g fat.
	proteinShare, carbShare := 0.30, 0.40
	if p.Goal == profile.GoalMuscleGain {
		proteinShare, carbShare = 0.35, 0.35
	}
	fatShare := 1 - proteinShare - carbShare

	kcal := float64(calories)
	return Targets{
		BMR:      bmr,
		TDEE:     tdee,
		Calories: calories,
		ProteinG: math.Round(kcal * proteinShare / 4),
		CarbsG:   math.Round(kcal * carbShare / 4),
		FatG:     math.Round(kcal * fatShare / 9),
	}
}
