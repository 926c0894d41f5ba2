package check

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/reference"
)

var (
	litterMeasureRe = regexp.MustCompile(`^w_|^wdry_`)
	litterDryRe     = regexp.MustCompile(`^wdry_`)
)

// trapSet carries what litter and seed checks share beyond Common.
type trapSet struct {
	*Common

	ref   *reference.Data
	index *TrapIndex
}

// roster returns the reference trap ids of the plot, or nil.
func (t *trapSet) roster() []string { return t.ref.Traps(t.rec.PlotID()) }

// LitterChecks is the check set for litter trap data.
type LitterChecks struct {
	trapSet
}

// NewLitterChecks validates the configuration and the schema of rec and
// builds the per-trap index.
func NewLitterChecks(rec *record.Record, opts Options) (*LitterChecks, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := requireColumns(rec, record.KindLitter,
		[]string{"trap_id", "s_date1", "s_date2"},
		[]*regexp.Regexp{litterMeasureRe},
	); err != nil {
		return nil, err
	}
	return &LitterChecks{trapSet{
		Common: newCommon(rec, record.KindLitter, opts, rec.Select(litterMeasureRe)),
		ref:    opts.Reference,
		index:  BuildTrapIndex(rec),
	}}, nil
}

func (l *LitterChecks) Kind() record.Kind { return record.KindLitter }

func (l *LitterChecks) Rules() []Rule {
	return []Rule{
		{ID: RuleInvalidDate, Run: l.CheckInvalidDate},
		{ID: RuleTrapDateCombinations, Run: l.CheckTrapDateCombinations},
		{ID: RuleInstallationPeriod1, Run: l.CheckInstallationPeriod1},
		{ID: RuleInstallationPeriod2, Run: l.CheckInstallationPeriod2},
		{ID: RuleInstallationPeriod3, Run: l.CheckInstallationPeriod3},
		{ID: RuleBlankInDataCols, Run: l.CheckBlankInDataCols},
		{ID: RuleInvalidValues, Run: l.CheckInvalidValues},
		{ID: RulePositive, Run: l.CheckPositive},
		{ID: RuleAnomaly, Thorough: true, Run: l.FindAnomaly},
	}
}

func (l *LitterChecks) CheckAll(thorough bool) []Finding {
	return Run(l, RunOptions{Thorough: thorough, Rules: l.cfg.Rules})
}

func periodLabel(p TrapPeriod) string { return p.Installed + "-" + p.Collected }

// CheckTrapDateCombinations flags traps recorded twice in one period and
// roster traps with no record in a period.
func (l *LitterChecks) CheckTrapDateCombinations() []Finding {
	roster := l.roster()

	var out []Finding
	for _, p := range l.index.Periods() {
		seen := make(map[string]bool)
		for _, r := range p.Rows {
			trap := l.index.Rows[r].Trap
			if !seen[trap] {
				seen[trap] = true
				continue
			}
			out = append(out, l.finding(r, "trap_id", trap, RuleTrapDateCombinations, SeverityWarning,
				fmt.Sprintf("trap %s is recorded more than once in period %s", trap, periodLabel(p))))
		}
		for _, trap := range roster {
			if seen[trap] {
				continue
			}
			f := l.finding(NoRow, "trap_id", trap, RuleTrapDateCombinations, SeverityWarning,
				fmt.Sprintf("trap %s has no record in period %s", trap, periodLabel(p)))
			f.RecordID = p.Installed
			out = append(out, f)
		}
	}
	return out
}

// CheckInstallationPeriod1 flags periods that are too long or too short.
func (l *LitterChecks) CheckInstallationPeriod1() []Finding {
	cfg := l.cfg.Installation
	overwinter := l.cfg.isOverwinter(l.rec.PlotID())

	var out []Finding
	for _, p := range l.index.Periods() {
		days := daysBetween(p.InstalledAt, p.CollectedAt)
		var msg string
		switch {
		case days > cfg.MaxDays:
			if overwinter && p.InstalledAt.Year() != p.CollectedAt.Year() {
				continue
			}
			msg = fmt.Sprintf("installation period of %d days is longer than %d days", days, cfg.MaxDays)
		case days < cfg.MinDays:
			msg = fmt.Sprintf("installation period of %d days is shorter than %d days", days, cfg.MinDays)
		default:
			continue
		}
		f := l.finding(NoRow, "s_date2", periodLabel(p), RuleInstallationPeriod1, SeverityWarning, msg)
		f.RecordID = p.Installed
		out = append(out, f)
	}
	return out
}

// CheckInstallationPeriod2 flags, per collection day, rows whose
// installation date differs from the one most traps share.
func (l *LitterChecks) CheckInstallationPeriod2() []Finding {
	var out []Finding
	for _, day := range l.index.Collections() {
		rows := l.index.RowsCollectedOn(day)
		counts := make(map[string]int)
		for _, r := range rows {
			counts[l.index.Rows[r].Installed]++
		}
		if len(counts) < 2 {
			continue
		}

		// Most common installation date; ties go to the earliest.
		var mode string
		for d, n := range counts {
			if n > counts[mode] || (n == counts[mode] && d < mode) {
				mode = d
			}
		}
		for _, r := range rows {
			tr := l.index.Rows[r]
			if tr.Installed == mode {
				continue
			}
			out = append(out, l.finding(r, "s_date1", tr.Trap, RuleInstallationPeriod2, SeverityWarning,
				fmt.Sprintf("installed on %s while other traps collected on %s were installed on %s",
					tr.Installed, day, mode)))
		}
	}
	return out
}

// CheckInstallationPeriod3 flags, per trap, a next installation that does
// not start on the previous collection day, unless the gap is a regular
// break of at least MaxGapDays or across a year.
func (l *LitterChecks) CheckInstallationPeriod3() []Finding {
	var out []Finding
	for _, trap := range l.index.Traps() {
		var prev *TrapRow
		for _, r := range l.index.RowsOfTrap(trap) {
			tr := l.index.Rows[r]
			if !tr.Dated {
				continue
			}
			if prev != nil {
				gap := daysBetween(prev.CollectedAt, tr.InstalledAt)
				sameYear := prev.CollectedAt.Year() == tr.InstalledAt.Year()
				if gap != 0 && gap < l.cfg.Installation.MaxGapDays && sameYear {
					msg := fmt.Sprintf("installed on %s, %d day(s) after the previous collection on %s",
						tr.Installed, gap, prev.Collected)
					if gap < 0 {
						msg = fmt.Sprintf("installed on %s, before the previous collection on %s",
							tr.Installed, prev.Collected)
					}
					out = append(out, l.finding(r, "s_date1", trap, RuleInstallationPeriod3, SeverityWarning, msg))
				}
			}
			prev = &tr
		}
	}
	return out
}

// FindAnomaly flags dry weights that are outliers among the traps
// collected on the same day, on a log scale.
func (l *LitterChecks) FindAnomaly() []Finding {
	o := l.cfg.Outlier
	columns := l.rec.Select(litterDryRe)
	colPos := make(map[string]int, len(columns))
	for i, c := range columns {
		colPos[c] = i
	}

	var out []Finding
	for _, day := range l.index.Collections() {
		rows := l.index.RowsCollectedOn(day)
		for _, col := range columns {
			var (
				groupRows []int
				logs      []float64
			)
			for _, r := range rows {
				m := ParseTrap(l.rec.Cell(r, col))
				if m.Code != CodeNone || !m.HasValue || m.Value <= 0 {
					continue
				}
				groupRows = append(groupRows, r)
				logs = append(logs, math.Log(m.Value))
			}
			if len(logs) < o.MinGroup {
				continue
			}

			var (
				flagged []bool
				fences  Fences
				err     error
			)
			if o.Method == OutlierGrubbs {
				flagged = GrubbsOutliers(logs, o.Alpha, o.MinGroup)
			} else {
				flagged, fences, err = TukeyOutliers(logs, o.K)
				if err != nil {
					slog.Warn("litter outlier test failed", "plot", l.rec.PlotID(), "day", day, "column", col, "error", err)
					continue
				}
			}

			for i, bad := range flagged {
				if !bad {
					continue
				}
				r := groupRows[i]
				msg := fmt.Sprintf("%s of %s g is an outlier among traps collected on %s",
					col, strings.TrimSpace(l.rec.Cell(r, col)), day)
				if o.Method != OutlierGrubbs {
					msg += fmt.Sprintf(" (expected %.3g-%.3g g)", math.Exp(fences.Low), math.Exp(fences.High))
				}
				out = append(out, l.finding(r, col, "", RuleAnomaly, SeverityWarning, msg))
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Row != out[b].Row {
			return out[a].Row < out[b].Row
		}
		return colPos[out[a].Column] < colPos[out[b].Column]
	})
	return out
}
