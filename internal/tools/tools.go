// Package tools defines the tools available to the agent and the
// registry that validates and executes them.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/seralba/vitala-health-agent/internal/llm"
)

// ParamType enumerates the argument types tools accept.
type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeString  ParamType = "string"
	// TypeStringArray is a JSON array of strings.
	TypeStringArray ParamType = "array"
)

// Param describes one tool parameter. The slice order in Tool.Params
// is the schema order, which keeps validation messages and generated
// JSON schemas deterministic.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
	Enum        []string // optional, string params only
}

// Handler executes a tool against validated, coerced arguments.
// Returning an *ArgError reports the call as an argument problem;
// any other error is an execution failure.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Schema renders the parameter list as a JSON-schema object in the
// function-calling wire shape.
func (t *Tool) Schema() map[string]any {
	properties := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Type == TypeStringArray {
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry holds the fixed set of tools, registered once at startup
// and immutable afterwards.
type Registry struct {
	logger *slog.Logger
	tools  map[string]*Tool
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		tools:  make(map[string]*Tool),
	}
}

// Register adds a tool. A duplicate name is a configuration error and
// must abort startup.
func (r *Registry) Register(t *Tool) error {
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q registered twice", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Specs returns all tools for the LLM, in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema(),
		})
	}
	return specs
}

// Execute looks up, validates, and runs a tool by name.
//
// An unknown tool or a bad argument never aborts the caller's turn:
// both come back as a failed Result whose text the model can relay to
// the user in natural language.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	tool := r.tools[name]
	if tool == nil {
		r.logger.Warn("unknown tool requested", "tool", name)
		return failure(ErrorUnknownTool, fmt.Sprintf("unknown tool: %s", name))
	}

	coerced, err := validateArgs(tool.Params, args)
	if err != nil {
		r.logger.Warn("tool arguments rejected", "tool", name, "error", err)
		return failure(ErrorInvalidArguments, err.Error())
	}

	output, err := tool.Handler(ctx, coerced)
	if err != nil {
		if argErr, ok := err.(*ArgError); ok {
			r.logger.Warn("tool arguments rejected", "tool", name, "error", argErr)
			return failure(ErrorInvalidArguments, argErr.Error())
		}
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return failure(ErrorExecution, err.Error())
	}

	r.logger.Debug("tool executed", "tool", name)
	return success(output)
}

// validateArgs checks every required parameter is present and every
// supplied value is coercible to its declared type. Returns the
// coerced argument map: numbers as float64, integers as int, strings
// as string, arrays as []string.
func validateArgs(params []Param, args map[string]any) (map[string]any, error) {
	coerced := make(map[string]any, len(args))

	for _, p := range params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, &ArgError{Param: p.Name, Reason: "required parameter is missing"}
			}
			continue
		}

		value, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}
		coerced[p.Name] = value
	}

	return coerced, nil
}

// coerce converts one raw JSON value to the parameter's declared type.
// Numeric strings coerce to numbers; everything else must already be
// the right shape.
func coerce(p Param, raw any) (any, error) {
	switch p.Type {
	case TypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected a number, got %q", v)}
			}
			return f, nil
		default:
			return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected a number, got %T", raw)}
		}

	case TypeInteger:
		switch v := raw.(type) {
		case float64:
			if v != float64(int(v)) {
				return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected an integer, got %v", v)}
			}
			return int(v), nil
		case int:
			return v, nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected an integer, got %q", v)}
			}
			return n, nil
		default:
			return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected an integer, got %T", raw)}
		}

	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected a string, got %T", raw)}
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			// Unlisted enum values pass through; tools fall back to
			// their defaults the way the original calculators do.
			return s, nil
		}
		return s, nil

	case TypeStringArray:
		items, ok := raw.([]any)
		if !ok {
			if single, isStr := raw.(string); isStr {
				return []string{single}, nil
			}
			return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected an array of strings, got %T", raw)}
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("expected an array of strings, found %T element", item)}
			}
			out = append(out, s)
		}
		return out, nil
	}

	return nil, &ArgError{Param: p.Name, Reason: fmt.Sprintf("unsupported parameter type %q", p.Type)}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
