package core

// validation.go checks a dataset header against the column specs of its kind
// before a check set is built.
//
// Header validation reports every missing required column at once, so a
// field worker fixing a sheet sees the whole list instead of one column per
// attempt. Cell-level problems are never reported here; they are findings of
// the check rules.

import (
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/record"
)

// MakeHeaderIndex maps trimmed column names to their position.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

// ValidateHeaders checks that every required column or column family exists.
// Returns the header index, or a *check.SchemaError listing all missing
// columns.
func ValidateHeaders(kind record.Kind, headers []string, specs []ColumnSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if spec.Pattern == nil {
			if _, ok := idx[spec.Name]; !ok {
				missing = append(missing, spec.Name)
			}
			continue
		}
		if !anyMatch(headers, spec) {
			missing = append(missing, spec.Example+" ("+spec.Pattern.String()+")")
		}
	}

	if len(missing) > 0 {
		return nil, &check.SchemaError{Kind: kind, Missing: missing}
	}

	return idx, nil
}

func anyMatch(headers []string, spec ColumnSpec) bool {
	for _, h := range headers {
		if spec.Pattern.MatchString(strings.TrimSpace(h)) {
			return true
		}
	}
	return false
}

// UnknownColumns returns the header columns no spec describes, in order.
// They are kept in the data but may be typos of expected names.
func UnknownColumns(headers []string, specs []ColumnSpec) []string {
	var out []string
	for _, h := range headers {
		h = strings.TrimSpace(h)
		known := false
		for _, spec := range specs {
			if (spec.Pattern == nil && spec.Name == h) || (spec.Pattern != nil && spec.Pattern.MatchString(h)) {
				known = true
				break
			}
		}
		if !known {
			out = append(out, h)
		}
	}
	return out
}
