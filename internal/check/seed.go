package check

import (
	"fmt"
	"regexp"

	"github.com/JonMunkholm/monisenforest/internal/record"
)

var seedMeasureRe = regexp.MustCompile(`^number|^wdry`)

// SeedChecks is the check set for seed trap data.
type SeedChecks struct {
	trapSet
}

// NewSeedChecks validates the configuration and the schema of rec and
// builds the per-trap index.
func NewSeedChecks(rec *record.Record, opts Options) (*SeedChecks, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := requireColumns(rec, record.KindSeed,
		[]string{"trap_id", "s_date1", "s_date2", "spc"},
		[]*regexp.Regexp{seedMeasureRe},
	); err != nil {
		return nil, err
	}
	return &SeedChecks{trapSet{
		Common: newCommon(rec, record.KindSeed, opts, rec.Select(seedMeasureRe)),
		ref:    opts.Reference,
		index:  BuildTrapIndex(rec),
	}}, nil
}

func (s *SeedChecks) Kind() record.Kind { return record.KindSeed }

func (s *SeedChecks) Rules() []Rule {
	return []Rule{
		{ID: RuleInvalidDate, Run: s.CheckInvalidDate},
		{ID: RuleSpNotInList, Run: s.CheckSpNotInList},
		{ID: RuleSynonym, Run: s.CheckSynonym},
		{ID: RuleLocalName, OptIn: true, Run: s.CheckLocalName},
		{ID: RuleBlankInDataCols, Run: s.CheckBlankInDataCols},
		{ID: RuleTrap, Run: s.CheckTrap},
		{ID: RuleInvalidValues, Run: s.CheckInvalidValues},
		{ID: RulePositive, Run: s.CheckPositive},
	}
}

func (s *SeedChecks) CheckAll(thorough bool) []Finding {
	return Run(s, RunOptions{Thorough: thorough, Rules: s.cfg.Rules})
}

// CheckTrap flags rows naming traps that are not on the plot roster, and
// roster traps with no record at all. Without a roster nothing is reported.
func (s *SeedChecks) CheckTrap() []Finding {
	roster := s.roster()
	if len(roster) == 0 {
		return nil
	}
	known := make(map[string]bool, len(roster))
	for _, t := range roster {
		known[t] = true
	}

	var out []Finding
	for _, tr := range s.index.Rows {
		if known[tr.Trap] {
			continue
		}
		out = append(out, s.finding(tr.Row, "trap_id", tr.Trap, RuleTrap, SeverityError,
			fmt.Sprintf("trap %q is not on the trap list of %s", tr.Trap, s.rec.PlotID())))
	}
	for _, t := range roster {
		if len(s.index.RowsOfTrap(t)) > 0 {
			continue
		}
		out = append(out, s.finding(NoRow, "trap_id", t, RuleTrap, SeverityError,
			fmt.Sprintf("trap %s has no record", t)))
	}
	return out
}
