package tools

import (
	"context"
	"fmt"
	"strings"
)

func medicationReminderTool() *Tool {
	return &Tool{
		Name:        "set_medication_reminder",
		Description: "Set up a medication reminder schedule with doses spaced evenly across the day",
		Params: []Param{
			{Name: "medication_name", Type: TypeString, Required: true, Description: "Name of the medication"},
			{Name: "times_per_day", Type: TypeInteger, Required: true, Description: "How many times per day to take the medication"},
			{Name: "start_time", Type: TypeString, Description: "First dose time in HH:MM format (default 09:00)"},
		},
		Handler: handleMedicationReminder,
	}
}

func handleMedicationReminder(ctx context.Context, args map[string]any) (string, error) {
	name := strings.TrimSpace(args["medication_name"].(string))
	if name == "" {
		return "", &ArgError{Param: "medication_name", Reason: "must not be empty"}
	}

	timesPerDay := args["times_per_day"].(int)
	if timesPerDay < 1 {
		return "", &ArgError{Param: "times_per_day", Reason: "must be at least 1"}
	}
	if timesPerDay > 24 {
		return "", &ArgError{Param: "times_per_day", Reason: "must be at most 24"}
	}

	start, _ := args["start_time"].(string)
	if start == "" {
		start = "09:00"
	}

	times, err := ReminderSchedule(start, timesPerDay)
	if err != nil {
		return "", &ArgError{Param: "start_time", Reason: err.Error()}
	}

	return fmt.Sprintf("Reminders set for %s at: %s", name, strings.Join(times, ", ")), nil
}

// ReminderSchedule spaces timesPerDay doses evenly across 24 hours
// starting from startTime ("HH:MM"), wrapping past midnight. The
// output is deterministic for given inputs.
func ReminderSchedule(startTime string, timesPerDay int) ([]string, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(startTime, "%d:%d", &hour, &minute); err != nil {
		return nil, fmt.Errorf("expected HH:MM, got %q", startTime)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("expected HH:MM, got %q", startTime)
	}

	// Work in minutes so uneven divisions (e.g. 3 doses) stay exact
	// enough: 24h/3 = 480 minutes.
	intervalMin := 24 * 60 / timesPerDay
	startMin := hour*60 + minute

	times := make([]string, timesPerDay)
	for i := 0; i < timesPerDay; i++ {
		total := (startMin + i*intervalMin) % (24 * 60)
		times[i] = fmt.Sprintf("%02d:%02d", total/60, total%60)
	}
	return times, nil
}
