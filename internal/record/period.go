package record

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// ErrNoPeriods is returned when no repeated-measurement column is found.
var ErrNoPeriods = errors.New("no survey period columns")

// yearPivot splits two-digit census years between centuries: 50-99 are
// 1950-1999, 00-49 are 2000-2049.
const yearPivot = 50

// Period is one census round derived from a measurement column name such as
// "gbh05".
type Period struct {
	Column string
	Suffix string
	Year   int
}

// CensusYear expands a two-digit census year.
func CensusYear(yy int) int {
	if yy >= yearPivot {
		return 1900 + yy
	}
	return 2000 + yy
}

// Periods derives the census rounds from columns named prefix+YY. The result
// is ordered by year regardless of the column order in the file.
func Periods(columns []string, prefix string) ([]Period, error) {
	re, err := regexp.Compile("^" + regexp.QuoteMeta(prefix) + "([0-9]{2})$")
	if err != nil {
		return nil, err
	}

	var periods []Period
	for _, c := range columns {
		m := re.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		yy, _ := strconv.Atoi(m[1])
		year := CensusYear(yy)
		periods = append(periods, Period{Column: c, Suffix: m[1], Year: year})
	}

	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no column matches %s", ErrNoPeriods, re)
	}

	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Year < periods[j].Year })
	return periods, nil
}

// YearsBetween returns the number of years separating two census rounds.
func YearsBetween(from, to Period) int {
	return to.Year - from.Year
}
