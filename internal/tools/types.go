// Package tools defines the typed tool layer the research workflow exposes
// to the LLM: each tool pairs a JSON-schema argument description with an
// executor, and a thread-safe registry provides lookup.
package tools

import (
	"context"
	"fmt"
)

// Category classifies tools for lookup.
type Category string

const (
	// CategoryResearch covers web search and findings capture.
	CategoryResearch Category = "/research"

	// CategorySynthesis covers report assembly tools.
	CategorySynthesis Category = "/synthesis"

	// CategoryGeneral is for tools usable by any phase.
	CategoryGeneral Category = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Schema defines the JSON schema for tool arguments.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. It returns the
// observation text handed back to the LLM.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a typed function call the workflow can expose to an LLM.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	Description string

	// Category classifies the tool.
	Category Category

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// CheckArgs verifies that all required arguments are present.
func (t *Tool) CheckArgs(args map[string]any) error {
	for _, name := range t.Schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
		}
	}
	return nil
}

// StringArg extracts a string argument, tolerating absence.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg extracts an integer argument, accepting float64 as produced by
// JSON decoding.
func IntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
