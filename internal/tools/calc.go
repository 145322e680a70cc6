package tools

import (
	"context"
	"fmt"
	"math"
)

// BMI computes the body mass index and its category from weight in
// kilograms and height in centimeters. Full precision is returned; the
// tool rounds only for display.
//
// Category boundaries are half-open: 18.5 and 25 belong to the upper
// category's lower bound, so bmi=18.5 is Normal and bmi=25.0 is
// Overweight.
func BMI(weightKg, heightCm float64) (float64, string) {
	heightM := heightCm / 100
	bmi := weightKg / (heightM * heightM)
	return bmi, BMICategory(bmi)
}

// BMICategory maps a BMI value to its standard category label.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal weight"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// Activity multipliers for the water recommendation. Unknown levels
// fall back to 1.0, matching the calculator this was derived from.
var activityMultipliers = map[string]float64{
	"sedentary": 1.0,
	"moderate":  1.2,
	"active":    1.5,
}

// DailyWater returns the recommended daily intake in liters and cups
// (240 ml per cup) for a body weight, using the ~33 ml/kg heuristic
// scaled by activity level. Linear in weight for a fixed level.
func DailyWater(weightKg float64, activityLevel string) (liters, cups float64) {
	baseMl := weightKg * 33

	multiplier, ok := activityMultipliers[activityLevel]
	if !ok {
		multiplier = 1.0
	}

	totalMl := baseMl * multiplier
	return totalMl / 1000, totalMl / 240
}

// round2 rounds to 2 decimal places, for display only.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round1 rounds to 1 decimal place, for display only.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func bmiTool() *Tool {
	return &Tool{
		Name:        "calculate_bmi",
		Description: "Calculate Body Mass Index given weight and height",
		Params: []Param{
			{Name: "weight_kg", Type: TypeNumber, Required: true, Description: "Weight in kilograms"},
			{Name: "height_cm", Type: TypeNumber, Required: true, Description: "Height in centimeters"},
		},
		Handler: handleBMI,
	}
}

func handleBMI(ctx context.Context, args map[string]any) (string, error) {
	weight := args["weight_kg"].(float64)
	height := args["height_cm"].(float64)

	if weight <= 0 {
		return "", &ArgError{Param: "weight_kg", Reason: "must be greater than zero"}
	}
	if height <= 0 {
		return "", &ArgError{Param: "height_cm", Reason: "must be greater than zero"}
	}

	bmi, category := BMI(weight, height)
	return fmt.Sprintf("Your BMI is %.2f (%s)", round2(bmi), category), nil
}

func waterTool() *Tool {
	return &Tool{
		Name:        "calculate_daily_water",
		Description: "Calculate recommended daily water intake based on weight and activity level",
		Params: []Param{
			{Name: "weight_kg", Type: TypeNumber, Required: true, Description: "Weight in kilograms"},
			{Name: "activity_level", Type: TypeString, Description: "Activity level", Enum: []string{"sedentary", "moderate", "active"}},
		},
		Handler: handleWater,
	}
}

func handleWater(ctx context.Context, args map[string]any) (string, error) {
	weight := args["weight_kg"].(float64)
	if weight <= 0 {
		return "", &ArgError{Param: "weight_kg", Reason: "must be greater than zero"}
	}

	level, _ := args["activity_level"].(string)
	liters, cups := DailyWater(weight, level)

	return fmt.Sprintf("You should drink approximately %.2f L (%.1f cups) of water daily",
		round2(liters), round1(cups)), nil
}
