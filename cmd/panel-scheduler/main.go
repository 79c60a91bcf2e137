package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sidang-scheduler-api/internal/csvio"
	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
	"github.com/noah-isme/sidang-scheduler-api/pkg/config"
	"github.com/noah-isme/sidang-scheduler-api/pkg/export"
	"github.com/noah-isme/sidang-scheduler-api/pkg/logger"
	"github.com/noah-isme/sidang-scheduler-api/pkg/storage"
)

type cliOptions struct {
	Sessions   string
	Expertise  string
	Delimiter  rune
	Strategy   scheduler.StrategyName
	Iterations int
	Epsilon    float64
	Seed       uint64
	OutDir     string
	Format     export.Format
	Timeout    time.Duration
	Retain     time.Duration
}

type result struct {
	Schedule *scheduler.Schedule
	Report   scheduler.Report
	Files    []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	opts, err := parseFlags(os.Args[1:], cfg.Scheduler, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logr.Fatal("invalid arguments", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, opts, cfg.Scheduler, logr)
	if err != nil {
		logr.Error("scheduling failed", zap.Error(err))
		os.Exit(1)
	}
	if !res.Report.Valid {
		logr.Warn("schedule failed verification",
			zap.Int("expertise_violations", res.Report.ExpertiseViolations),
			zap.Int("time_conflicts", res.Report.TimeConflicts))
		os.Exit(2)
	}
}

func parseFlags(args []string, defaults config.SchedulerConfig, output io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("panel-scheduler", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		opts      cliOptions
		delim     string
		strategy  string
		format    string
		engineDef = scheduler.DefaultOptions()
	)
	iterations := defaults.MaxIterations
	if iterations == 0 {
		iterations = engineDef.MaxIterations
	}
	seed := defaults.Seed
	if seed == 0 {
		seed = engineDef.Seed
	}
	defStrategy := defaults.DefaultStrategy
	if defStrategy == "" {
		defStrategy = string(scheduler.StrategyCapacity)
	}

	fs.StringVar(&opts.Sessions, "sessions", "", "sessions CSV (id,date,time,room,student_id,title,field)")
	fs.StringVar(&opts.Expertise, "expertise", "", "lecturer expertise CSV (id,expertise)")
	fs.StringVar(&delim, "delim", ",", `CSV delimiter, a single character or "tab"`)
	fs.StringVar(&strategy, "strategy", defStrategy, "capacity, scored or rollout")
	fs.IntVar(&opts.Iterations, "iterations", iterations, "rollout trials")
	fs.Float64Var(&opts.Epsilon, "epsilon", defaults.Epsilon, "rollout exploration rate in [0,1]")
	fs.Uint64Var(&opts.Seed, "seed", seed, "rollout random seed")
	fs.StringVar(&opts.OutDir, "out", "./exports", "output directory")
	fs.StringVar(&format, "format", string(export.FormatCSV), "export format: csv or pdf")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this duration (0 disables)")
	fs.DurationVar(&opts.Retain, "retain", 0, "remove files in the output directory older than this (0 keeps all)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Sessions == "" || opts.Expertise == "" {
		return opts, errors.New("-sessions and -expertise are required")
	}

	var err error
	if opts.Delimiter, err = parseDelimiter(delim); err != nil {
		return opts, err
	}
	if opts.Strategy, err = scheduler.ParseStrategy(strategy); err != nil {
		return opts, err
	}
	if opts.Format, err = export.ParseFormat(format); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseDelimiter(raw string) (rune, error) {
	if raw == "tab" || raw == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return r, nil
}

func run(ctx context.Context, opts cliOptions, defaults config.SchedulerConfig, logr *zap.Logger) (*result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sessions, err := csvio.LoadSessionsFile(opts.Sessions, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	lecturers, err := csvio.LoadExpertiseFile(opts.Expertise, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	roster, err := scheduler.NewRoster(sessions, lecturers, validator.New())
	if err != nil {
		return nil, err
	}

	engineOpts, err := defaults.EngineOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler configuration: %w", err)
	}
	engineOpts.MaxIterations = opts.Iterations
	engineOpts.Epsilon = opts.Epsilon
	engineOpts.Seed = opts.Seed
	if err := engineOpts.Validate(); err != nil {
		return nil, err
	}

	engine, err := scheduler.New(roster, engineOpts, logr)
	if err != nil {
		return nil, err
	}
	schedule, err := engine.Run(ctx, opts.Strategy)
	if err != nil {
		return nil, err
	}
	report := scheduler.Analyze(schedule, roster)
	logReport(logr, schedule, report)

	store, err := storage.NewLocalStorage(opts.OutDir)
	if err != nil {
		return nil, err
	}
	if opts.Retain > 0 {
		removed, err := store.CleanupOlderThan(opts.Retain)
		if err != nil {
			return nil, err
		}
		if len(removed) > 0 {
			logr.Info("old exports removed", zap.Strings("files", removed))
		}
	}

	files, err := writeExports(store, schedule, report, opts.Format, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		logr.Info("export written", zap.String("path", f))
	}
	return &result{Schedule: schedule, Report: report, Files: files}, nil
}

// writeExports saves the schedule in format plus a workload CSV. CSV files
// reuse the input delimiter.
func writeExports(store *storage.LocalStorage, schedule *scheduler.Schedule, report scheduler.Report, format export.Format, delim rune) ([]string, error) {
	stem := "schedule-" + string(schedule.Strategy)
	data := export.ScheduleDataset(schedule)
	data.Notes = export.ReportNotes(report)
	csvExporter := export.NewCSVExporter().WithDelimiter(delim)

	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatPDF:
		body, err = export.NewPDFExporter().Render(data, fmt.Sprintf("Panel schedule (%s)", schedule.Strategy))
	default:
		body, err = csvExporter.Render(data)
	}
	if err != nil {
		return nil, fmt.Errorf("render schedule: %w", err)
	}
	schedulePath, err := store.Save(stem+"."+string(format), body)
	if err != nil {
		return nil, err
	}

	workload, err := csvExporter.Render(export.WorkloadDataset(report))
	if err != nil {
		return nil, fmt.Errorf("render workload: %w", err)
	}
	workloadPath, err := store.Save("workload-"+string(schedule.Strategy)+".csv", workload)
	if err != nil {
		return nil, err
	}
	return []string{schedulePath, workloadPath}, nil
}

func logReport(logr *zap.Logger, schedule *scheduler.Schedule, report scheduler.Report) {
	fields := []zap.Field{
		zap.String("strategy", string(schedule.Strategy)),
		zap.Bool("valid", report.Valid),
		zap.Int("sessions", report.Summary.TotalSessions),
		zap.Int("lecturers_used", report.Summary.LecturersUsed),
		zap.Int("filled_roles", report.Summary.FilledRoles),
		zap.Int("unassigned_roles", report.Summary.UnassignedRoles),
		zap.Int("expertise_violations", report.ExpertiseViolations),
		zap.Int("time_conflicts", report.TimeConflicts),
		zap.Float64("workload_mean", report.Stats.Mean),
		zap.Float64("workload_std", report.Stats.StdDev),
		zap.Float64("balance_score", report.BalanceScore),
		zap.Float64("expertise_ratio", report.ExpertiseRatio),
	}
	if report.BestReward != nil {
		fields = append(fields, zap.Float64("best_reward", *report.BestReward))
	}
	logr.Info("schedule report", fields...)
	for _, entry := range schedule.Entries {
		logr.Debug("panel",
			zap.String("session", entry.Session.ID),
			zap.String("slot", entry.Session.Slot().String()),
			zap.Any("members", entry.Panel.Members),
			zap.Any("scores", entry.Panel.Scores))
	}
	for kind, n := range report.Diagnostics {
		logr.Info("unassigned roles", zap.String("reason", string(kind)), zap.Int("count", n))
	}
}
