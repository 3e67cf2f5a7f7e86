package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/pipe"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("config warning: %s: %s", w.Field, w.Message)
}

// ValidationResults holds the results of configuration validation.
type ValidationResults struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are validation errors.
func (r ValidationResults) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (r ValidationResults) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// ErrorMessage returns a combined error message for all validation errors.
func (r ValidationResults) ErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// WriteWarnings writes all warnings to the given writer.
func (r ValidationResults) WriteWarnings(w io.Writer) {
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintln(w, warn.String())
	}
}

// Validate checks the configuration for errors and warnings.
func (c *Config) Validate() ValidationResults {
	var result ValidationResults

	if c.Watch.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   KeyWatchDebounce,
			Message: fmt.Sprintf("must not be negative, got %s", c.Watch.Debounce),
		})
	}

	// 0 would report success; 254 and 255 are taken by user and internal errors.
	if c.FailExitCode < 1 || c.FailExitCode >= fault.ExitUser {
		result.Errors = append(result.Errors, ValidationError{
			Field:   KeyFailExitCode,
			Message: fmt.Sprintf("must be between 1 and %d, got %d", fault.ExitUser-1, c.FailExitCode),
		})
	}

	if _, err := pipe.Parse(c.Pipe); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   KeyPipe,
			Message: err.Error(),
		})
	}

	if len(c.Files) == 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   KeyFiles,
			Message: "no test file patterns, nothing will run without file arguments",
		})
	}

	return result
}
