package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/ingest"
	"github.com/JonMunkholm/monisenforest/internal/logging"
	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/reference"
	"github.com/JonMunkholm/monisenforest/internal/species"
)

// DefaultCheckTimeout is the maximum duration of one check.
const DefaultCheckTimeout = 2 * time.Minute

// ServiceOptions configure a Service. Only Config is required; the zero
// value of everything else disables the feature or picks the default.
type ServiceOptions struct {
	Config check.Config

	// Dictionaries holds the species list of each kind. Kinds without a
	// list skip the species rules.
	Dictionaries map[record.Kind]species.Dictionary
	Reference    *reference.Data
	Suppressions *SuppressionList

	Limiter *CheckLimiter
	Timeout time.Duration

	// Ingest is the template for reading uploaded files. Kind and PlotID
	// are taken from the CheckOptions of each call.
	Ingest ingest.Options

	Metrics *Metrics
}

// Service checks datasets against the registered kinds. It is safe for
// concurrent use; every collaborator is read-only after construction.
type Service struct {
	cfg      check.Config
	dicts    map[record.Kind]species.Dictionary
	ref      *reference.Data
	suppress atomic.Pointer[SuppressionList]
	limiter  *CheckLimiter
	timeout  time.Duration
	ingest   ingest.Options
	metrics  *Metrics
}

// NewService validates the check configuration and creates a Service.
func NewService(opts ServiceOptions) (*Service, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("new service: %w", err)
	}

	s := &Service{
		cfg:      opts.Config,
		dicts:    make(map[record.Kind]species.Dictionary, len(opts.Dictionaries)),
		ref:      opts.Reference,
		limiter:  opts.Limiter,
		timeout:  opts.Timeout,
		ingest:   opts.Ingest,
		metrics:  opts.Metrics,
	}
	s.suppress.Store(opts.Suppressions)
	for k, d := range opts.Dictionaries {
		s.dicts[k] = d
	}
	if s.limiter == nil {
		s.limiter = NewCheckLimiter(DefaultMaxConcurrentChecks, DefaultMaxWaitTime)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultCheckTimeout
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// Limiter returns the limiter shared by all checks of the service.
func (s *Service) Limiter() *CheckLimiter { return s.limiter }

// Dictionary returns the species list of kind, or nil.
func (s *Service) Dictionary(kind record.Kind) species.Dictionary { return s.dicts[kind] }

// KindSummary describes a registered kind for clients.
type KindSummary struct {
	Kind     record.Kind    `json:"kind"`
	Label    string         `json:"label"`
	Group    string         `json:"group"`
	Required []string       `json:"required"`
	Template []string       `json:"template"`
	Rules    []check.RuleID `json:"rules"`
}

// ListKinds returns the registered kinds in registry order.
func (s *Service) ListKinds() []KindSummary {
	defs := All()
	out := make([]KindSummary, len(defs))
	for i, def := range defs {
		out[i] = KindSummary{
			Kind:     def.Info.Kind,
			Label:    def.Info.Label,
			Group:    def.Info.Group,
			Required: def.RequiredColumns(),
			Template: def.Template(),
			Rules:    kindRules[def.Info.Kind],
		}
	}
	return out
}

// kindRules lists the rule ids of each kind in execution order.
var kindRules = map[record.Kind][]check.RuleID{
	record.KindTree: {
		check.RuleInvalidDate, check.RuleSpNotInList, check.RuleSynonym, check.RuleLocalName,
		check.RuleTagDup, check.RuleIndvNull, check.RuleSpMismatch, check.RuleMeshXY,
		check.RuleStemXY, check.RuleBlankInDataCols, check.RuleInvalidValues, check.RulePositive,
		check.RuleMissing, check.RuleValuesAfterD, check.RuleAnomaly, check.RuleValuesRecruits,
		check.RuleValuesND,
	},
	record.KindLitter: {
		check.RuleInvalidDate, check.RuleTrapDateCombinations, check.RuleInstallationPeriod1,
		check.RuleInstallationPeriod2, check.RuleInstallationPeriod3, check.RuleBlankInDataCols,
		check.RuleInvalidValues, check.RulePositive, check.RuleAnomaly,
	},
	record.KindSeed: {
		check.RuleInvalidDate, check.RuleSpNotInList, check.RuleSynonym, check.RuleLocalName,
		check.RuleBlankInDataCols, check.RuleTrap, check.RuleInvalidValues, check.RulePositive,
	},
}

// Template returns the header row of an empty data file of kind.
func (s *Service) Template(kind record.Kind) ([]string, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("template: unknown data kind %q", kind)
	}
	return def.Template(), nil
}

// runOptions merges the configured rule switches with the per-call ones.
// Disable wins over Enable.
func (s *Service) runOptions(opts CheckOptions) (check.RunOptions, error) {
	rules := make(map[check.RuleID]bool, len(s.cfg.Rules)+len(opts.Enable)+len(opts.Disable))
	for id, on := range s.cfg.Rules {
		rules[id] = on
	}
	for _, id := range opts.Enable {
		if !check.KnownRule(id) {
			return check.RunOptions{}, fmt.Errorf("unknown rule %q", id)
		}
		rules[id] = true
	}
	for _, id := range opts.Disable {
		if !check.KnownRule(id) {
			return check.RunOptions{}, fmt.Errorf("unknown rule %q", id)
		}
		rules[id] = false
	}
	return check.RunOptions{
		Thorough: opts.Thorough || s.cfg.Thorough,
		Rules:    rules,
	}, nil
}

// Check runs the rules of the record's kind and returns the report.
//
// The check waits for a limiter slot and is bounded by the service
// timeout. Schema and configuration problems are returned as errors;
// everything wrong inside the cells is a finding.
func (s *Service) Check(ctx context.Context, rec *record.Record, opts CheckOptions) (*Report, error) {
	kind := rec.Kind()
	if opts.Kind != "" {
		kind = opts.Kind
	}

	logger := logging.WithFields(ctx, "plot_id", rec.PlotID(), "kind", kind).With(checkLogFields(ctx)...)

	report, err := s.check(ctx, rec, kind, opts)
	if err != nil {
		s.metrics.failed(kind, err)
		logger.Warn("check failed", "error", err)
		return nil, err
	}

	s.metrics.observe(report)
	logger.Info("check completed",
		"report_id", report.ID,
		"rows", report.Rows,
		"findings", len(report.Findings),
		"errors", report.BySeverity[check.SeverityError],
		"suppressed", report.Suppressed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (s *Service) check(ctx context.Context, rec *record.Record, kind record.Kind, opts CheckOptions) (*Report, error) {
	if kind == record.KindOther {
		return nil, fmt.Errorf("check %s: cannot determine data kind from the header", rec.PlotID())
	}
	def, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("check %s: unknown data kind %q", rec.PlotID(), kind)
	}
	if _, err := ValidateHeaders(kind, rec.Columns(), def.Columns); err != nil {
		return nil, err
	}
	runOpts, err := s.runOptions(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	type outcome struct {
		report *Report
		err    error
	}
	done := make(chan outcome, 1)

	// The rules cannot be interrupted; the slot is held until they finish
	// even when the caller has given up.
	go func() {
		var out outcome
		defer func() { done <- out }()
		defer s.limiter.Release()
		defer func() {
			if r := recover(); r != nil {
				logging.FromContext(ctx).Error("panic in check",
					"plot_id", rec.PlotID(),
					"kind", kind,
					"panic", r,
				)
				out = outcome{err: fmt.Errorf("check %s: internal error: %v", rec.PlotID(), r)}
			}
		}()
		out.report, out.err = s.run(rec, kind, def, runOpts)
	}()

	select {
	case out := <-done:
		return out.report, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("check %s: %w", rec.PlotID(), ctx.Err())
	}
}

func (s *Service) run(rec *record.Record, kind record.Kind, def KindDefinition, runOpts check.RunOptions) (*Report, error) {
	start := time.Now()

	cfg := s.cfg
	cfg.Rules = runOpts.Rules
	cfg.Thorough = runOpts.Thorough

	set, err := def.New(rec, check.Options{
		Config:     cfg,
		Dictionary: s.dicts[kind],
		Reference:  s.ref,
	})
	if err != nil {
		return nil, err
	}

	findings := check.Run(set, runOpts)
	findings, suppressed := s.Suppressions().Filter(findings)
	if findings == nil {
		findings = []check.Finding{}
	}

	report := &Report{
		ID:         uuid.New().String(),
		PlotID:     rec.PlotID(),
		Kind:       kind,
		Thorough:   runOpts.Thorough,
		Rows:       rec.Len(),
		Rules:      check.Selected(set, runOpts),
		Findings:   findings,
		Suppressed: suppressed,
		BySeverity: make(map[check.Severity]int),
		ByRule:     make(map[check.RuleID]int),
	}
	for _, f := range findings {
		report.BySeverity[f.Severity]++
		report.ByRule[f.Rule]++
	}
	report.Duration = time.Since(start)
	return report, nil
}

// CheckFile parses r as the data file called name and checks it.
func (s *Service) CheckFile(ctx context.Context, name string, r io.Reader, opts CheckOptions) (*Report, error) {
	rec, err := s.Read(name, r, opts)
	if err != nil {
		return nil, err
	}
	report, err := s.Check(ctx, rec, opts)
	if err != nil {
		return nil, err
	}
	report.FileName = name
	return report, nil
}

// Read parses r with the ingest settings of the service.
func (s *Service) Read(name string, r io.Reader, opts CheckOptions) (*record.Record, error) {
	in := s.ingest
	if opts.Kind != "" {
		in.Kind = opts.Kind
	}
	if opts.PlotID != "" {
		in.PlotID = opts.PlotID
	}
	return ingest.Read(name, r, in)
}

// CheckBatch checks several files in parallel, at most as many at once as
// the limiter allows. A file that fails does not stop the others; its error
// is returned in its result. Results keep the order of files.
func (s *Service) CheckBatch(ctx context.Context, files []BatchFile, opts CheckOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limiter.MaxConcurrent())

	var mu sync.Mutex
	summary := map[string]int{}

	for i, file := range files {
		g.Go(func() error {
			results[i] = BatchResult{Name: file.Name}
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			report, err := s.checkBatchFile(gctx, file, opts)
			results[i].Report = report
			results[i].Err = err

			mu.Lock()
			if err != nil {
				summary["failed"]++
			} else {
				summary["checked"]++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	logging.FromContext(ctx).Info("batch completed",
		"files", len(files),
		"checked", summary["checked"],
		"failed", summary["failed"],
	)

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Service) checkBatchFile(ctx context.Context, file BatchFile, opts CheckOptions) (*Report, error) {
	if file.Open == nil {
		return nil, errors.New("no file provided")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	return s.CheckFile(ctx, file.Name, rc, opts)
}
