package check

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// GrowthConfig bounds the plausible gbh increment between two censuses
// years apart: [MinIncrement, Intercept + PerYear*years].
type GrowthConfig struct {
	PerYear      float64 `validate:"gte=0"`
	Intercept    float64 `validate:"gte=0"`
	MinIncrement float64 `validate:"lte=0"`
}

// MaxIncrement returns the largest plausible increment over years.
func (g GrowthConfig) MaxIncrement(years int) float64 {
	return g.Intercept + g.PerYear*float64(years)
}

// InRange reports whether an increment over years is plausible.
func (g GrowthConfig) InRange(diff float64, years int) bool {
	return diff >= g.MinIncrement && diff <= g.MaxIncrement(years)
}

// InstallationConfig holds the trap installation windows in days.
type InstallationConfig struct {
	MinDays    int `validate:"gte=0"`
	MaxDays    int `validate:"gtfield=MinDays"`
	MaxGapDays int `validate:"gt=0"`

	// Plots whose traps stay out over winter; their long periods are only
	// suspicious when they do not cross a year.
	OverwinterPlots []string
}

// OutlierConfig selects the outlier test of the litter anomaly rule.
type OutlierConfig struct {
	Method   string  `validate:"oneof=tukey grubbs"`
	K        float64 `validate:"gt=0"`
	MinGroup int     `validate:"gte=3"`
	Alpha    float64 `validate:"gt=0,lt=1"`
}

// Outlier methods.
const (
	OutlierTukey  = "tukey"
	OutlierGrubbs = "grubbs"
)

// Config is the full set of check thresholds. Use DefaultConfig and adjust.
type Config struct {
	Growth GrowthConfig

	// gbh (cm) at or above which a stem counts as alive.
	AliveThreshold float64 `validate:"gt=0"`

	// Base size (cm) of a recruit before growth allowance.
	RecruitBase float64 `validate:"gt=0"`

	Installation InstallationConfig
	Outlier      OutlierConfig

	// Rules explicitly enables (true) or disables (false) rules.
	Rules map[RuleID]bool

	// Thorough turns on the rules that are expensive or noisy.
	Thorough bool
}

// DefaultOverwinterPlots are the litter plots whose traps stay out over
// winter.
var DefaultOverwinterPlots = []string{
	"UR-BC1", "AS-DB1", "AS-DB2", "TM-DB1", "OY-DB1", "KY-DB1", "OT-EC1", "OG-DB1",
}

// DefaultConfig returns the thresholds of the field manuals.
func DefaultConfig() Config {
	return Config{
		Growth: GrowthConfig{
			PerYear:      2.5,
			Intercept:    3.8,
			MinIncrement: -3.1,
		},
		AliveThreshold: 15,
		RecruitBase:    15,
		Installation: InstallationConfig{
			MinDays:         11,
			MaxDays:         45,
			MaxGapDays:      45,
			OverwinterPlots: append([]string(nil), DefaultOverwinterPlots...),
		},
		Outlier: OutlierConfig{
			Method:   OutlierTukey,
			K:        1.5,
			MinGroup: 5,
			Alpha:    0.01,
		},
	}
}

var validate = validator.New()

// Validate checks every threshold and rule id and reports all problems at
// once as a *ConfigError.
func (c Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ConfigError{Problems: []string{err.Error()}}
		}
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	var unknown []string
	for id := range c.Rules {
		if !KnownRule(id) {
			unknown = append(unknown, string(id))
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		problems = append(problems, fmt.Sprintf("Rules: unknown rule %q", id))
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.StructNamespace()
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s: must be >= %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s: must be <= %s (got %v)", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s: must be > %s (got %v)", field, fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s: must be < %s (got %v)", field, fe.Param(), fe.Value())
	case "gtfield":
		return fmt.Sprintf("%s: must be greater than %s (got %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s] (got %q)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

func (c Config) isOverwinter(plotID string) bool {
	for _, p := range c.Installation.OverwinterPlots {
		if p == plotID {
			return true
		}
	}
	return false
}
