package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry(testLogger())

	tool := &Tool{Name: "demo", Handler: func(ctx context.Context, args map[string]any) (string, error) {
		return "ok", nil
	}}
	if err := r.Register(tool); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(tool); err == nil {
		t.Fatal("second Register() succeeded, want duplicate error")
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := testRegistry(t)

	result := r.Execute(context.Background(), "summon_doctor", nil)
	if result.OK {
		t.Fatal("Execute(summon_doctor) succeeded, want failure")
	}
	if result.Kind != ErrorUnknownTool {
		t.Errorf("kind = %q, want %q", result.Kind, ErrorUnknownTool)
	}
	if !strings.Contains(result.ForModel(), "unknown_tool") {
		t.Errorf("ForModel() = %q, want it to name the error kind", result.ForModel())
	}
}

func TestRegistry_MissingRequiredParam(t *testing.T) {
	r := testRegistry(t)

	result := r.Execute(context.Background(), "calculate_bmi", map[string]any{
		"weight_kg": 70.0,
	})
	if result.OK {
		t.Fatal("Execute without height_cm succeeded, want failure")
	}
	if result.Kind != ErrorInvalidArguments {
		t.Errorf("kind = %q, want %q", result.Kind, ErrorInvalidArguments)
	}
	if !strings.Contains(result.Content, "height_cm") {
		t.Errorf("content = %q, want it to name the missing parameter", result.Content)
	}
}

func TestRegistry_SpecsOrder(t *testing.T) {
	r := testRegistry(t)

	specs := r.Specs()
	want := []string{
		"calculate_bmi",
		"calculate_daily_water",
		"log_symptom",
		"show_symptoms",
		"search_symptoms",
		"set_medication_reminder",
	}
	if len(specs) != len(want) {
		t.Fatalf("len(Specs()) = %d, want %d", len(specs), len(want))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("Specs()[%d] = %q, want %q", i, specs[i].Name, name)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		param   Param
		raw     any
		want    any
		wantErr bool
	}{
		{"number passthrough", Param{Name: "w", Type: TypeNumber}, 70.5, 70.5, false},
		{"numeric string", Param{Name: "w", Type: TypeNumber}, "70.5", 70.5, false},
		{"bad numeric string", Param{Name: "w", Type: TypeNumber}, "heavy", nil, true},
		{"integral float to int", Param{Name: "n", Type: TypeInteger}, 3.0, 3, false},
		{"fractional float to int", Param{Name: "n", Type: TypeInteger}, 3.5, nil, true},
		{"integer string", Param{Name: "n", Type: TypeInteger}, "4", 4, false},
		{"string passthrough", Param{Name: "s", Type: TypeString}, "hi", "hi", false},
		{"number as string", Param{Name: "s", Type: TypeString}, 5.0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.param, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var argErr *ArgError
				if !errors.As(err, &argErr) {
					t.Fatalf("coerce() error type = %T, want *ArgError", err)
				}
				if argErr.Param != tt.param.Name {
					t.Errorf("ArgError.Param = %q, want %q", argErr.Param, tt.param.Name)
				}
				return
			}
			if got != tt.want {
				t.Errorf("coerce() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestCoerce_StringArray(t *testing.T) {
	p := Param{Name: "symptoms", Type: TypeStringArray}

	got, err := coerce(p, []any{"fever", "cough"})
	if err != nil {
		t.Fatalf("coerce() error = %v", err)
	}
	list, ok := got.([]string)
	if !ok || len(list) != 2 || list[0] != "fever" || list[1] != "cough" {
		t.Errorf("coerce() = %v, want [fever cough]", got)
	}

	// A bare string is promoted to a one-element list.
	got, err = coerce(p, "fever")
	if err != nil {
		t.Fatalf("coerce(string) error = %v", err)
	}
	list, ok = got.([]string)
	if !ok || len(list) != 1 || list[0] != "fever" {
		t.Errorf("coerce(string) = %v, want [fever]", got)
	}

	if _, err := coerce(p, []any{"fever", 3.0}); err == nil {
		t.Error("coerce(mixed array) succeeded, want error")
	}
}

func TestResult_ForModel(t *testing.T) {
	ok := success("all good")
	if got := ok.ForModel(); got != "all good" {
		t.Errorf("success ForModel() = %q, want %q", got, "all good")
	}

	bad := failure(ErrorExecution, "boom")
	if got := bad.ForModel(); got != "Tool error (execution_failed): boom" {
		t.Errorf("failure ForModel() = %q", got)
	}
}
