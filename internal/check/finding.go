// Package check is the validation engine for Monitoring Sites 1000 forest
// data.
//
// A check set is bound to one [record.Record] at construction. Construction
// validates the configuration and the schema, then builds the cross-row
// indexes the rules share; after that every rule is a pure function of the
// record and the configuration. Rules never stop at the first problem: each
// returns every [Finding] it can see.
//
// Three check sets exist, one per data kind: [TreeChecks], [LitterChecks]
// and [SeedChecks]. They share the rules of [Common] and are all driven by
// [Run] through the [CheckSet] interface.
package check

// Severity ranks how likely a finding is to be a real data error.
type Severity string

const (
	// SeverityError marks values that are wrong as entered.
	SeverityError Severity = "error"
	// SeverityWarning marks values that are suspicious and need a look.
	SeverityWarning Severity = "warning"
	// SeverityNotice marks style problems such as non-standard names.
	SeverityNotice Severity = "notice"
)

// RuleID names a rule. IDs are stable and used in configuration and in
// suppression lists.
type RuleID string

const (
	RuleInvalidDate          RuleID = "invalid_date"
	RuleSpNotInList          RuleID = "sp_not_in_list"
	RuleSynonym              RuleID = "synonym"
	RuleLocalName            RuleID = "local_name"
	RuleBlankInDataCols      RuleID = "blank_in_data_cols"
	RuleInvalidValues        RuleID = "invalid_values"
	RulePositive             RuleID = "positive"
	RuleTagDup               RuleID = "tag_dup"
	RuleIndvNull             RuleID = "indv_null"
	RuleSpMismatch           RuleID = "sp_mismatch"
	RuleMeshXY               RuleID = "mesh_xy"
	RuleStemXY               RuleID = "stem_xy"
	RuleMissing              RuleID = "missing"
	RuleValuesAfterD         RuleID = "values_after_d"
	RuleAnomaly              RuleID = "anomaly"
	RuleValuesRecruits       RuleID = "values_recruits"
	RuleValuesND             RuleID = "values_nd"
	RuleTrapDateCombinations RuleID = "trap_date_combinations"
	RuleInstallationPeriod1  RuleID = "installation_period1"
	RuleInstallationPeriod2  RuleID = "installation_period2"
	RuleInstallationPeriod3  RuleID = "installation_period3"
	RuleTrap                 RuleID = "trap"
)

// AllRules lists every rule id.
var AllRules = []RuleID{
	RuleInvalidDate, RuleSpNotInList, RuleSynonym, RuleLocalName,
	RuleBlankInDataCols, RuleInvalidValues, RulePositive,
	RuleTagDup, RuleIndvNull, RuleSpMismatch, RuleMeshXY, RuleStemXY,
	RuleMissing, RuleValuesAfterD, RuleAnomaly, RuleValuesRecruits, RuleValuesND,
	RuleTrapDateCombinations, RuleInstallationPeriod1, RuleInstallationPeriod2,
	RuleInstallationPeriod3, RuleTrap,
}

// KnownRule reports whether id names a rule.
func KnownRule(id RuleID) bool {
	for _, r := range AllRules {
		if r == id {
			return true
		}
	}
	return false
}

// NoRow is the Row of findings that concern several rows or the whole
// dataset.
const NoRow = -1

// Finding is one reported anomaly.
type Finding struct {
	PlotID string `json:"plot_id"`

	// Row is the 0-based data row, or NoRow.
	Row int `json:"row"`

	// RecordID identifies the record for humans: the tag number for tree
	// data, the installation date (s_date1) for trap data.
	RecordID string `json:"record_id"`

	// Target is the secondary locator printed next to RecordID: the trap id
	// for trap data, otherwise the offending column or the values involved.
	Target string `json:"target,omitempty"`

	// Column is the offending column, when there is one.
	Column string `json:"column,omitempty"`

	Rule     RuleID   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Line returns the 1-based data line of the finding, or 0 for NoRow.
func (f Finding) Line() int {
	if f.Row == NoRow {
		return 0
	}
	return f.Row + 1
}
