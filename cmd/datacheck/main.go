// Command datacheck checks survey data files and writes one findings file
// per input, next to the input or into -out.
//
// Usage:
//
//	datacheck [flags] FILE...
//
// Besides checking, -mode selects the other file operations:
//
//	check      write 確認事項<name>.xlsx (default)
//	clean      write <name>_clean.csv with normalized cells
//	transform  write <name>_state.csv with error, death and recruit columns (tree data)
//	annotate   write <name>_sp.csv with scientific names appended
//
// Reference data and check thresholds come from the same environment
// variables as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/monisenforest/internal/check"
	"github.com/JonMunkholm/monisenforest/internal/config"
	"github.com/JonMunkholm/monisenforest/internal/core"
	_ "github.com/JonMunkholm/monisenforest/internal/core/kinds" // Register all data kinds
	"github.com/JonMunkholm/monisenforest/internal/export"
	"github.com/JonMunkholm/monisenforest/internal/ingest"
	"github.com/JonMunkholm/monisenforest/internal/logging"
	"github.com/JonMunkholm/monisenforest/internal/record"
	"github.com/JonMunkholm/monisenforest/internal/species"
	"github.com/JonMunkholm/monisenforest/internal/transform"
)

type options struct {
	mode           string
	out            string
	format         string
	kind           string
	plotID         string
	thorough       bool
	enable         string
	disable        string
	classification bool
	sheet          string
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "check", "check | clean | transform | annotate")
	flag.StringVar(&opts.out, "out", "", "output directory (defaults to the directory of each input)")
	flag.StringVar(&opts.format, "format", "xlsx", "findings file format: xlsx | csv")
	flag.StringVar(&opts.kind, "kind", "", "data kind: tree | litter | seed (guessed from the header when empty)")
	flag.StringVar(&opts.plotID, "plot", "", "plot id (read from the file when empty)")
	flag.BoolVar(&opts.thorough, "thorough", false, "also run the slow rules")
	flag.StringVar(&opts.enable, "enable", "", "comma-separated rule ids to run in addition")
	flag.StringVar(&opts.disable, "disable", "", "comma-separated rule ids to skip")
	flag.BoolVar(&opts.classification, "classification", false, "annotate: add genus, family and order columns")
	flag.StringVar(&opts.sheet, "sheet", "", "XLSX sheet to read (Data or the first sheet when empty)")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// stdout is reserved for the per-file summary.
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: datacheck [flags] FILE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	service, err := newService(cfg, opts)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	checkOpts, err := opts.checkOptions()
	if err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var failed int
	switch opts.mode {
	case "check":
		failed, err = runCheck(ctx, service, flag.Args(), checkOpts, opts)
	case "clean", "transform", "annotate":
		failed = runConvert(service, flag.Args(), checkOpts, opts)
	default:
		err = fmt.Errorf("unknown mode %q", opts.mode)
	}
	if err != nil {
		slog.Error("datacheck failed", "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func newService(cfg *config.Config, opts options) (*core.Service, error) {
	svcOpts := core.ServiceOptions{
		Config:  cfg.Check.Engine(),
		Limiter: core.NewCheckLimiter(cfg.Batch.MaxConcurrent, cfg.Batch.MaxWaitTime),
		Timeout: cfg.Batch.Timeout,
		Ingest: ingest.Options{
			Encoding: cfg.Upload.Encoding,
			Sheet:    opts.sheet,
		},
	}
	refs := core.ReferenceFiles{
		TreeSpecies: cfg.Reference.TreeSpecies,
		SeedSpecies: cfg.Reference.SeedSpecies,
		MeshXY:      cfg.Reference.MeshXY,
		TrapList:    cfg.Reference.TrapList,
		Suppress:    cfg.Reference.Suppress,
	}
	if err := refs.Load(&svcOpts); err != nil {
		return nil, err
	}
	return core.NewService(svcOpts)
}

func (o options) checkOptions() (core.CheckOptions, error) {
	var opts core.CheckOptions
	if o.kind != "" {
		kind, err := record.ParseKind(o.kind)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	if o.format != "xlsx" && o.format != "csv" {
		return opts, fmt.Errorf("unknown format %q (want xlsx or csv)", o.format)
	}
	opts.PlotID = o.plotID
	opts.Thorough = o.thorough
	opts.Enable = splitRules(o.enable)
	opts.Disable = splitRules(o.disable)
	return opts, nil
}

func splitRules(v string) []check.RuleID {
	var ids []check.RuleID
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, check.RuleID(part))
		}
	}
	return ids
}

// runCheck checks every file and writes the findings files. It returns the
// number of files that could not be checked.
func runCheck(ctx context.Context, service *core.Service, paths []string, checkOpts core.CheckOptions, opts options) (int, error) {
	files := make([]core.BatchFile, len(paths))
	for i, p := range paths {
		files[i] = core.BatchFile{
			Name: filepath.Base(p),
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		}
	}

	results, err := service.CheckBatch(ctx, files, checkOpts)
	if err != nil {
		return 0, err
	}

	var failed int
	for i, res := range results {
		if res.Err != nil {
			failed++
			msg := core.MapError(res.Err)
			slog.Error("check failed", "file", paths[i], "error", res.Err, "code", msg.Code)
			fmt.Printf("%s\tFAILED\t%s (%s)\n", paths[i], msg.Message, msg.Code)
			continue
		}

		out := outputPath(paths[i], opts.out, export.ReportPrefix, "", "."+opts.format)
		if err := writeFindings(out, res.Report, opts.format); err != nil {
			failed++
			slog.Error("write findings failed", "file", out, "error", err)
			continue
		}
		fmt.Printf("%s\t%d findings\t%s\n", paths[i], len(res.Report.Findings), out)
	}
	return failed, nil
}

func writeFindings(path string, report *core.Report, format string) error {
	return writeFile(path, func(w io.Writer) error {
		if format == "csv" {
			return export.WriteCSV(w, report.Findings, report.Kind)
		}
		return export.WriteXLSX(w, report.Findings, report.Kind)
	})
}

// runConvert applies a clean, transform or annotate pass to every file and
// returns the number of files that failed.
func runConvert(service *core.Service, paths []string, checkOpts core.CheckOptions, opts options) int {
	var failed int
	for _, p := range paths {
		out, err := convertFile(service, p, checkOpts, opts)
		if err != nil {
			failed++
			slog.Error(opts.mode+" failed", "file", p, "error", err)
			fmt.Printf("%s\tFAILED\t%s\n", p, core.FormatUserError(err))
			continue
		}
		fmt.Printf("%s\t%s\n", p, out)
	}
	return failed
}

func convertFile(service *core.Service, path string, checkOpts core.CheckOptions, opts options) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rec, err := service.Read(filepath.Base(path), f, checkOpts)
	if err != nil {
		return "", err
	}

	writeOpts := export.RecordOptions{KeepComments: true, BOM: true}
	var suffix string

	switch opts.mode {
	case "clean":
		suffix = "_clean"
		writeOpts.Clean = true
	case "transform":
		suffix = "_state"
		if rec.Kind() != record.KindTree {
			return "", fmt.Errorf("transform needs tree data, got %s", rec.Kind())
		}
		if rec, err = transform.AddStateColumns(rec, transform.DefaultStateOptions()); err != nil {
			return "", err
		}
	case "annotate":
		suffix = "_sp"
		dict := service.Dictionary(rec.Kind())
		if dict == nil {
			return "", errors.New("no species list configured for " + string(rec.Kind()) + " data")
		}
		var unknown []string
		rec, unknown, err = species.Annotate(rec, dict, species.AnnotateOptions{
			ScientificName: true,
			Classification: opts.classification,
		})
		if err != nil {
			return "", err
		}
		if len(unknown) > 0 {
			slog.Warn("species not in list", "file", path, "names", unknown)
		}
	}

	out := outputPath(path, opts.out, "", suffix, ".csv")
	return out, writeFile(out, func(w io.Writer) error {
		return export.WriteRecordCSV(w, rec, writeOpts)
	})
}

// outputPath builds prefix+stem+suffix+ext in dir, or next to input when
// dir is empty.
func outputPath(input, dir, prefix, suffix, ext string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, prefix+stem+suffix+ext)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
