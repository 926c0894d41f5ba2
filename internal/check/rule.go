package check

import (
	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/reference"
	"github.com/JonMunkholm/monisenforest/internal/species"
)

// Rule is one named validation bound to a check set.
type Rule struct {
	ID RuleID

	// Thorough rules only run in thorough mode unless enabled explicitly.
	Thorough bool

	// OptIn rules only run when enabled explicitly.
	OptIn bool

	Run func() []Finding
}

// CheckSet is the set of rules for one data kind, bound to one record.
type CheckSet interface {
	Kind() record.Kind
	// Rules returns the rules in execution order.
	Rules() []Rule
	// CheckAll runs the rules selected by the configuration the set was
	// built with.
	CheckAll(thorough bool) []Finding
}

// Options are the collaborators of a check set. Dictionary and Reference
// may be nil; the rules that need them then report nothing.
type Options struct {
	Config     Config
	Dictionary species.Dictionary
	Reference  *reference.Data
}

// RunOptions select which rules Run executes.
type RunOptions struct {
	Thorough bool
	Rules    map[RuleID]bool // explicit enable/disable, wins over the defaults
}

func (o RunOptions) selects(r Rule) bool {
	if on, ok := o.Rules[r.ID]; ok {
		return on
	}
	if r.OptIn {
		return false
	}
	if r.Thorough {
		return o.Thorough
	}
	return true
}

// Run executes the selected rules of set in order and concatenates their
// findings.
func Run(set CheckSet, opts RunOptions) []Finding {
	var out []Finding
	for _, r := range set.Rules() {
		if !opts.selects(r) {
			continue
		}
		out = append(out, r.Run()...)
	}
	return out
}

// Selected returns the ids of the rules Run would execute.
func Selected(set CheckSet, opts RunOptions) []RuleID {
	var ids []RuleID
	for _, r := range set.Rules() {
		if opts.selects(r) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
