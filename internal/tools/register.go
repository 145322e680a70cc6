package tools

import "log/slog"

// NewHealthRegistry creates a registry with the full fixed set of
// health tools. A registration conflict is a configuration error; the
// caller must treat it as fatal at startup.
func NewHealthRegistry(logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)

	builtins := []*Tool{
		bmiTool(),
		waterTool(),
		logSymptomTool(),
		showSymptomsTool(),
		searchSymptomsTool(),
		medicationReminderTool(),
	}

	for _, t := range builtins {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
