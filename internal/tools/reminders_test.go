package tools

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestReminderSchedule(t *testing.T) {
	tests := []struct {
		start   string
		times   int
		want    []string
		wantErr bool
	}{
		{"09:00", 1, []string{"09:00"}, false},
		{"09:00", 2, []string{"09:00", "21:00"}, false},
		{"08:00", 3, []string{"08:00", "16:00", "00:00"}, false},
		{"06:30", 4, []string{"06:30", "12:30", "18:30", "00:30"}, false},
		{"22:00", 2, []string{"22:00", "10:00"}, false}, // wraps midnight
		{"9:5", 1, []string{"09:05"}, false},            // zero-pads loose input
		{"25:00", 2, nil, true},
		{"09:61", 2, nil, true},
		{"morning", 2, nil, true},
	}
	for _, tt := range tests {
		got, err := ReminderSchedule(tt.start, tt.times)
		if (err != nil) != tt.wantErr {
			t.Errorf("ReminderSchedule(%q, %d) error = %v, wantErr %v", tt.start, tt.times, err, tt.wantErr)
			continue
		}
		if err == nil && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ReminderSchedule(%q, %d) = %v, want %v", tt.start, tt.times, got, tt.want)
		}
	}
}

func TestMedicationReminderTool(t *testing.T) {
	r := testRegistry(t)

	result := r.Execute(context.Background(), "set_medication_reminder", map[string]any{
		"medication_name": "Aspirin",
		"times_per_day":   3.0, // JSON numbers arrive as float64
		"start_time":      "08:00",
	})
	if !result.OK {
		t.Fatalf("Execute(set_medication_reminder) failed: %v", result.Content)
	}
	if want := "Reminders set for Aspirin at: 08:00, 16:00, 00:00"; result.Content != want {
		t.Errorf("content = %q, want %q", result.Content, want)
	}
}

func TestMedicationReminderTool_DefaultStart(t *testing.T) {
	r := testRegistry(t)

	result := r.Execute(context.Background(), "set_medication_reminder", map[string]any{
		"medication_name": "Ibuprofen",
		"times_per_day":   2.0,
	})
	if !result.OK {
		t.Fatalf("Execute without start_time failed: %v", result.Content)
	}
	if !strings.Contains(result.Content, "09:00, 21:00") {
		t.Errorf("content = %q, want default 09:00 start", result.Content)
	}
}

func TestMedicationReminderTool_RejectsBadCount(t *testing.T) {
	r := testRegistry(t)

	for _, count := range []float64{0, 25, -1} {
		result := r.Execute(context.Background(), "set_medication_reminder", map[string]any{
			"medication_name": "Aspirin",
			"times_per_day":   count,
		})
		if result.OK {
			t.Errorf("times_per_day=%v succeeded, want invalid_arguments", count)
		}
		if result.Kind != ErrorInvalidArguments {
			t.Errorf("times_per_day=%v kind = %q, want %q", count, result.Kind, ErrorInvalidArguments)
		}
	}
}
