// Package schema declares the shapes of structured model input and output
// and validates candidate values against them.
package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Type is the primitive kind of a value.
type Type string

const (
	String  Type = "string"
	Integer Type = "integer"
	Number  Type = "number"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// Shape describes a value. Arrays carry Items, objects carry ordered Fields.
type Shape struct {
	Type        Type     `yaml:"type"`
	Description string   `yaml:"description,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Items       *Shape   `yaml:"items,omitempty"`
	Fields      []Field  `yaml:"fields,omitempty"`
}

// Field is a named member of an object shape. Fields are required unless
// Optional is set.
type Field struct {
	Name     string `yaml:"name"`
	Optional bool   `yaml:"optional,omitempty"`
	Shape    `yaml:",inline"`
}

// Issue is one non-conforming location in a candidate value.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError lists every issue found in a rejected value.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Check reports declaration mistakes in the shape itself.
func (s Shape) Check() error {
	return s.check("")
}

func (s Shape) check(path string) error {
	where := path
	if where == "" {
		where = "<root>"
	}
	switch s.Type {
	case String, Integer, Number, Boolean:
		if len(s.Enum) > 0 && s.Type != String {
			return fmt.Errorf("%s: enum only allowed on string", where)
		}
	case Array:
		if s.Items == nil {
			return fmt.Errorf("%s: array without items", where)
		}
		return s.Items.check(path + "[]")
	case Object:
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				return fmt.Errorf("%s: unnamed field", where)
			}
			if seen[f.Name] {
				return fmt.Errorf("%s: duplicate field %q", where, f.Name)
			}
			seen[f.Name] = true
			if err := f.Shape.check(join(path, f.Name)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unknown type %q", where, s.Type)
	}
	return nil
}

// Validate accepts v only if it conforms entirely to s. v is a decoded JSON
// value. Keys not declared on an object are ignored.
func (s Shape) Validate(v any) error {
	var issues []Issue
	s.walk("", v, &issues)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (s Shape) walk(path string, v any, issues *[]Issue) {
	report := func(format string, args ...any) {
		*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	if v == nil {
		report("expected %s, got null", s.Type)
		return
	}
	switch s.Type {
	case String:
		str, ok := v.(string)
		if !ok {
			report("expected string, got %s", kind(v))
			return
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			report("%q is not one of %v", str, s.Enum)
		}
	case Integer:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) {
			report("expected integer, got %s", kind(v))
		}
	case Number:
		if _, ok := number(v); !ok {
			report("expected number, got %s", kind(v))
		}
	case Boolean:
		if _, ok := v.(bool); !ok {
			report("expected boolean, got %s", kind(v))
		}
	case Array:
		items, ok := v.([]any)
		if !ok {
			report("expected array, got %s", kind(v))
			return
		}
		for i, it := range items {
			s.Items.walk(fmt.Sprintf("%s[%d]", path, i), it, issues)
		}
	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			report("expected object, got %s", kind(v))
			return
		}
		for _, f := range s.Fields {
			fv, present := obj[f.Name]
			if !present {
				if !f.Optional {
					*issues = append(*issues, Issue{Path: join(path, f.Name), Message: "required field missing"})
				}
				continue
			}
			f.Shape.walk(join(path, f.Name), fv, issues)
		}
	default:
		report("unknown type %q", s.Type)
	}
}

// Issues extracts the issue list from err, if it is a ValidationError.
func Issues(err error) []Issue {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Issues
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func kind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
