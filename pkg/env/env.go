// Package env names the environment variables zoar reads and exports, and
// parses their values.
package env

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Variables read by zoar itself.
const (
	// VerboseEnv turns on command tracing on the console.
	VerboseEnv = "ZOAR_VERBOSE"
	// DebugEnv turns on debug logging, in the runner child too.
	DebugEnv = "ZOAR_DEBUG"
)

// Variables exported to every test file.
const (
	// OnlyEnv is "1" when tests marked as only should be the only ones run.
	OnlyEnv = "ZOAR_ONLY"
	// GrepEnv holds the newline-separated grep patterns.
	GrepEnv = "ZOAR_GREP"
	// GenerationEnv holds the run generation; test files use it to detect
	// that modules loaded by a previous run are stale.
	GenerationEnv = "ZOAR_GENERATION"
	// RunIDEnv identifies the run for log correlation.
	RunIDEnv = "ZOAR_RUN_ID"
)

const keyValueParts = 2 // Number of parts in a key=value pair.

// ToMap parses KEY=value pairs such as os.Environ returns. Entries without a
// "=" are dropped.
func ToMap(assignments []string) map[string]string {
	return lo.FromPairs(lo.FilterMap(assignments, func(item string, _ int) (lo.Entry[string, string], bool) {
		parts := strings.SplitN(item, "=", keyValueParts)
		if len(parts) != keyValueParts {
			return lo.Entry[string, string]{}, false
		}

		return lo.Entry[string, string]{Key: parts[0], Value: parts[1]}, true
	}))
}

// ToAssignments renders envMap as sorted KEY=value pairs.
func ToAssignments(envMap map[string]string) []string {
	assignments := lo.MapToSlice(envMap, func(k, v string) string {
		return k + "=" + v
	})
	slices.Sort(assignments)
	return assignments
}

// ErrInvalidBool is returned when a string cannot be parsed as a boolean.
var ErrInvalidBool = errors.New("invalid boolean value")

// ParseBool interprets a string as a boolean.
// It trims leading and trailing whitespace, then lowercases the value
// before matching.
//
// Accepted values (case-insensitive, after trimming):
//   - "true", "yes", "1"  -> true
//   - "false", "no", "0"  -> false
//   - "" (empty)          -> false, nil error
//   - any other non-empty -> false, ErrInvalidBool
func ParseBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBool, value)
	}
}

// FailsafeParseBoolEnv reads an environment variable and parses it as a boolean.
// It returns defaultValue if the variable is unset, empty, or contains an invalid
// value.
func FailsafeParseBoolEnv(envVar string, defaultValue bool) bool {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return defaultValue
	}

	b, err := ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// Verbose reports whether command tracing was requested.
func Verbose() bool {
	return FailsafeParseBoolEnv(VerboseEnv, false)
}

// Debug reports whether debug logging was requested.
func Debug() bool {
	return FailsafeParseBoolEnv(DebugEnv, false)
}

// ciVars are CI environment variables parsed for truthiness.
var ciVars = []string{ //nolint:gochecknoglobals // package-level lookup table for CI detection
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"BUILDKITE",
}

// CIEnvVarNames returns every environment variable that InCI checks.
func CIEnvVarNames() []string {
	return append(slices.Clone(ciVars), "JENKINS_URL")
}

// InCI returns true if the process appears to be running in a CI environment,
// where the interactive watch prompt is never offered.
func InCI() bool {
	for _, v := range ciVars {
		if FailsafeParseBoolEnv(v, false) {
			return true
		}
	}
	return os.Getenv("JENKINS_URL") != ""
}
