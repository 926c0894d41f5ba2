package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

// SchemaError reports a dataset whose columns cannot be checked: a required
// column is missing or the survey periods cannot be derived. It aborts the
// whole check set.
type SchemaError struct {
	Kind    record.Kind
	Missing []string // required columns or column patterns not found
	Reason  string   // set when the problem is not a missing column
	Err     error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema error in %s data", e.Kind)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing required column(s): %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConfigError reports invalid check configuration. It is returned before any
// rule runs.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid check configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// IsSchemaError reports whether err is a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
