package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports user input rejected before any store or model call.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

func invalid(msg string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Message: msg, Fields: fields}
}
