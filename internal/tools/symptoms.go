package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/seralba/vitala-health-agent/internal/session"
)

func logSymptomTool() *Tool {
	return &Tool{
		Name:        "log_symptom",
		Description: "Log a symptom the user reports, with a timestamp, into their session symptom log",
		Params: []Param{
			{Name: "description", Type: TypeString, Required: true, Description: "The symptom as the user described it"},
		},
		Handler: handleLogSymptom,
	}
}

func handleLogSymptom(ctx context.Context, args map[string]any) (string, error) {
	description := strings.TrimSpace(args["description"].(string))
	if description == "" {
		return "", &ArgError{Param: "description", Reason: "must not be empty"}
	}

	turn := TurnFromContext(ctx)
	if turn == nil {
		return "", fmt.Errorf("no active session")
	}

	entry := turn.LogSymptom(description)
	return fmt.Sprintf("Logged symptom: %s (at %s)", entry.Description,
		entry.Timestamp.Format("2006-01-02 15:04:05")), nil
}

func showSymptomsTool() *Tool {
	return &Tool{
		Name:        "show_symptoms",
		Description: "Show all symptoms the user has logged in this session, in chronological order",
		Params:      nil,
		Handler:     handleShowSymptoms,
	}
}

func handleShowSymptoms(ctx context.Context, args map[string]any) (string, error) {
	turn := TurnFromContext(ctx)
	if turn == nil {
		return "", fmt.Errorf("no active session")
	}

	return session.FormatSymptoms(turn.Symptoms()), nil
}

// symptomConditions maps sorted, comma-joined symptom sets to possible
// conditions. A lookup table, not medical advice; the caution below
// always accompanies results.
var symptomConditions = map[string][]string{
	"fever,headache,fatigue": {"Common Cold", "Flu", "COVID-19"},
	"cough,fever":            {"Respiratory Infection", "Bronchitis"},
	"headache,nausea":        {"Migraine", "Tension Headache"},
	"fever,body ache":        {"Flu", "Viral Infection"},
}

const conditionsCaution = "These are possible conditions only. Please consult a healthcare provider for proper diagnosis."

func searchSymptomsTool() *Tool {
	return &Tool{
		Name:        "search_symptoms",
		Description: "Search for possible medical conditions based on a list of symptoms",
		Params: []Param{
			{Name: "symptoms", Type: TypeStringArray, Required: true, Description: "List of symptoms"},
		},
		Handler: handleSearchSymptoms,
	}
}

func handleSearchSymptoms(ctx context.Context, args map[string]any) (string, error) {
	symptoms := args["symptoms"].([]string)
	if len(symptoms) == 0 {
		return "", &ArgError{Param: "symptoms", Reason: "must list at least one symptom"}
	}

	conditions := SearchConditions(symptoms)
	return fmt.Sprintf("Symptoms: %s\nPossible conditions: %s\n%s",
		strings.Join(symptoms, ", "),
		strings.Join(conditions, ", "),
		conditionsCaution), nil
}

// SearchConditions matches the given symptoms against the condition
// table and returns deduplicated possible conditions in table-match
// order. No match returns an explicit consult-a-doctor entry.
func SearchConditions(symptoms []string) []string {
	normalized := make([]string, len(symptoms))
	for i, s := range symptoms {
		normalized[i] = strings.ToLower(strings.TrimSpace(s))
	}

	// Iterate keys sorted so the result order is deterministic.
	keys := make([]string, 0, len(symptomConditions))
	for k := range symptomConditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conditions []string
	seen := make(map[string]bool)
	for _, key := range keys {
		if !keyMatches(key, normalized) {
			continue
		}
		for _, c := range symptomConditions[key] {
			if !seen[c] {
				seen[c] = true
				conditions = append(conditions, c)
			}
		}
	}

	if len(conditions) == 0 {
		conditions = []string{"Unable to determine - Please consult a doctor"}
	}
	return conditions
}

// keyMatches reports whether any of the symptoms appears in the
// comma-joined table key.
func keyMatches(key string, symptoms []string) bool {
	for _, s := range symptoms {
		if s != "" && strings.Contains(key, s) {
			return true
		}
	}
	return false
}
