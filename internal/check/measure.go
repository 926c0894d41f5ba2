package check

import (
	"math"
	"strconv"
	"strings"
)

// Code is the status code that may prefix a measurement cell.
type Code string

const (
	CodeNone      Code = ""
	CodeDead      Code = "d"    // died this census
	CodeStillDead Code = "dd"   // dead in an earlier census
	CodeMissing   Code = "na"   // not applicable, not yet recruited
	CodeBelow     Code = "na<5" // below registration size
	CodeVI        Code = "vi"
	CodeVN        Code = "vn"
	CodeCD        Code = "cd" // measurement position changed
	CodeND        Code = "nd" // value estimated or not measured
	CodeDash      Code = "-"  // trap not collected
)

// Measurement is a parsed measurement cell.
type Measurement struct {
	Raw      string
	Code     Code
	Value    float64
	HasValue bool

	// Blank is set for an empty cell.
	Blank bool

	// Valid is false when the cell is neither a number nor a permitted code
	// optionally followed by a number.
	Valid bool
}

// Positional returns whether m carries a measurement-position change code.
func (m Measurement) Positional() bool {
	return m.Code == CodeCD || m.Code == CodeVI || m.Code == CodeVN
}

// alive reports whether m is a live stem at or above threshold.
func (m Measurement) alive(threshold float64) bool {
	return m.HasValue && m.Value >= threshold
}

// Tree prefixes, longest first so that "na<5" wins over "na" and "dd"
// over "d".
var treePrefixes = []Code{CodeBelow, CodeVI, CodeVN, CodeCD, CodeND}

// ParseTree parses a gbh cell.
func ParseTree(raw string) Measurement {
	s := strings.TrimSpace(raw)
	m := Measurement{Raw: raw}
	switch {
	case s == "":
		m.Blank = true
		m.Valid = true
		return m
	case s == string(CodeStillDead):
		m.Code = CodeStillDead
		m.Valid = true
		return m
	case s == "na" || s == "NA":
		m.Code = CodeMissing
		m.Valid = true
		return m
	}

	rest := s
	for _, c := range treePrefixes {
		if strings.HasPrefix(s, string(c)) {
			m.Code = c
			rest = s[len(c):]
			break
		}
	}
	if m.Code == CodeNone && strings.HasPrefix(s, "d") && !strings.HasPrefix(s, "dd") {
		m.Code = CodeDead
		rest = s[1:]
	}
	return parseRest(m, rest)
}

// ParseTrap parses a litter or seed measurement cell.
func ParseTrap(raw string) Measurement {
	s := strings.TrimSpace(raw)
	m := Measurement{Raw: raw}
	switch {
	case s == "":
		m.Blank = true
		m.Valid = true
		return m
	case s == "na" || s == "NA":
		m.Code = CodeMissing
		m.Valid = true
		return m
	case s == string(CodeDash):
		m.Code = CodeDash
		m.Valid = true
		return m
	}

	rest := s
	if strings.HasPrefix(s, string(CodeND)) {
		m.Code = CodeND
		rest = s[len(CodeND):]
	}
	return parseRest(m, rest)
}

func parseRest(m Measurement, rest string) Measurement {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		m.Valid = true
		return m
	}
	v, ok := parseNumber(rest)
	if !ok {
		return m
	}
	m.Value = v
	m.HasValue = true
	m.Valid = true
	return m
}

// parseNumber parses a finite decimal number.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// normalizeSeries masks invalid cells and rewrites dead values: the first
// d<number> of a run reads as d, the one right after it as na.
func normalizeSeries(raw []Measurement) []Measurement {
	out := make([]Measurement, len(raw))
	for i, m := range raw {
		if !m.Valid {
			out[i] = Measurement{Raw: m.Raw}
			continue
		}
		if m.Code == CodeDead && m.HasValue {
			if i > 0 && raw[i-1].Code == CodeDead && raw[i-1].HasValue {
				out[i] = Measurement{Raw: m.Raw, Code: CodeMissing, Valid: true}
			} else {
				out[i] = Measurement{Raw: m.Raw, Code: CodeDead, Valid: true}
			}
			continue
		}
		out[i] = m
	}
	return out
}
