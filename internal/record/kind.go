package record

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the survey a dataset comes from.
type Kind string

const (
	KindTree   Kind = "tree"
	KindLitter Kind = "litter"
	KindSeed   Kind = "seed"
	KindOther  Kind = "other"
)

// ParseKind converts a user supplied kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTree, KindLitter, KindSeed:
		return k, nil
	default:
		return "", fmt.Errorf("unknown data kind %q (want tree, litter or seed)", s)
	}
}

// Header signatures used to recognize a dataset. A kind matches when every
// pattern matches at least one column.
var kindSignatures = []struct {
	kind     Kind
	patterns []*regexp.Regexp
}{
	{KindTree, compileAll(`^tag_no$`, `^indv_no$`, `^spc_japan$`, `^gbh[0-9]{2}$`, `^s_date[0-9]{2}$`)},
	{KindLitter, compileAll(`^trap_id$`, `^s_date1$`, `^s_date2$`, `^wdry_`, `^w_`)},
	{KindSeed, compileAll(`^trap_id$`, `^s_date1$`, `^s_date2$`, `^w`, `^spc$`, `^status$`, `^form$`)},
}

// GuessKind infers the data kind from column names.
func GuessKind(columns []string) Kind {
	for _, sig := range kindSignatures {
		if matchesAll(columns, sig.patterns) {
			return sig.kind
		}
	}
	return KindOther
}

func matchesAll(columns []string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		found := false
		for _, c := range columns {
			if p.MatchString(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
