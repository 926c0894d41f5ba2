package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/monisenforest/internal/check"
)

// Load reads the configuration from environment variables, applies the
// defaults and validates the result. Every malformed variable is reported,
// not just the first one.
//
// Fields are bound with an env tag:
//
//	env:"NAME"                       read NAME
//	env:"NAME,alias=OLD_NAME"        fall back to OLD_NAME when NAME is unset
//	env:"NAME,lower"                 lower-case the value before parsing
//
// and an optional default tag.
func Load() (*Config, error) {
	cfg := &Config{}

	var problems []string
	for _, b := range bindings(reflect.ValueOf(cfg).Elem()) {
		raw, ok := b.lookup()
		if !ok {
			raw = b.def
		}
		if raw == "" {
			continue
		}
		if b.lower {
			raw = strings.ToLower(raw)
		}
		if err := decode(b.field, raw); err != nil {
			problems = append(problems, fmt.Sprintf("%s=%q: %v", b.name, raw, err))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("config load: %s", strings.Join(problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// binding ties one settable field to its environment variable.
type binding struct {
	name    string
	aliases []string
	def     string
	lower   bool
	field   reflect.Value
}

func (b binding) lookup() (string, bool) {
	for _, name := range append([]string{b.name}, b.aliases...) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// bindings walks v depth first and returns its env-tagged fields in
// declaration order.
func bindings(v reflect.Value) []binding {
	var out []binding
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			out = append(out, bindings(fv)...)
			continue
		}
		name, opts, ok := parseEnvTag(sf.Tag)
		if !ok {
			continue
		}
		b := binding{name: name, def: sf.Tag.Get("default"), field: fv}
		for _, opt := range opts {
			switch {
			case opt == "lower":
				b.lower = true
			case strings.HasPrefix(opt, "alias="):
				b.aliases = append(b.aliases, strings.TrimPrefix(opt, "alias="))
			}
		}
		out = append(out, b)
	}
	return out
}

func parseEnvTag(tag reflect.StructTag) (string, []string, bool) {
	env, ok := tag.Lookup("env")
	if !ok || env == "" || env == "-" {
		return "", nil, false
	}
	parts := strings.Split(env, ",")
	return parts[0], parts[1:], true
}

var durationType = reflect.TypeOf(time.Duration(0))

// decode parses raw into the field according to the field's type.
func decode(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return errors.New("not an integer")
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.New("not a number")
		}
		field.SetFloat(f)
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("not a boolean")
		}
		field.SetBool(v)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list of %s", field.Type().Elem())
		}
		field.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var validate = newValidator()

// newValidator reports fields under their environment variable names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if name, _, ok := parseEnvTag(sf.Tag); ok {
			return name
		}
		return sf.Name
	})
	return v
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	// Check thresholds are owned by the engine.
	if err := c.Check.Engine().Validate(); err != nil {
		var ce *check.ConfigError
		if errors.As(err, &ce) {
			errs = append(errs, ce.Problems...)
		} else {
			errs = append(errs, err.Error())
		}
	}

	if c.Rate.Enabled {
		if c.Rate.RequestsPerMinute <= 0 {
			errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		}
		if c.Rate.CheckLimit <= 0 {
			errs = append(errs, "RATE_LIMIT_CHECK must be positive when rate limiting is enabled")
		}
	}
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is set but API_KEYS is empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be positive (got %v)", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be non-negative (got %v)", fe.Field(), fe.Value())
	case "min":
		return fmt.Sprintf("%s (%v) must be at least %s", fe.Field(), fe.Value(), fe.Param())
	case "max":
		return fmt.Sprintf("%s (%v) must be at most %s", fe.Field(), fe.Value(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// String returns the configuration for logging with API keys masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Addr: %q}, Check: {Outlier: %q, Thorough: %v, Disable: %v}, "+
		"Batch: {MaxConcurrent: %d, Timeout: %s}, Security: {RequireAPIKey: %v, APIKeys: [MASKED x%d]}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Check.OutlierMethod, c.Check.Thorough, c.Check.Disable,
		c.Batch.MaxConcurrent, c.Batch.Timeout, c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Logging.Level, c.Logging.Format)
}
