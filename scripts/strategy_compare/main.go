package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sidang-scheduler-api/internal/csvio"
	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

type comparison struct {
	Strategy scheduler.StrategyName
	Report   scheduler.Report
	Duration time.Duration
	Error    error
}

func main() {
	var (
		sessionsPath  string
		expertisePath string
		delim         string
		iterations    int
		epsilon       float64
		seed          uint64
		timeout       time.Duration
	)

	flag.StringVar(&sessionsPath, "sessions", "", "sessions CSV")
	flag.StringVar(&expertisePath, "expertise", "", "lecturer expertise CSV")
	flag.StringVar(&delim, "delim", ",", "CSV delimiter")
	flag.IntVar(&iterations, "iterations", 500, "rollout trials")
	flag.Float64Var(&epsilon, "epsilon", 0.1, "rollout exploration rate")
	flag.Uint64Var(&seed, "seed", 1, "rollout random seed")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	if sessionsPath == "" || expertisePath == "" || len([]rune(delim)) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	sep := []rune(delim)[0]

	sessions, err := csvio.LoadSessionsFile(sessionsPath, sep)
	if err != nil {
		log.Fatalf("failed to load sessions: %v", err)
	}
	lecturers, err := csvio.LoadExpertiseFile(expertisePath, sep)
	if err != nil {
		log.Fatalf("failed to load expertise: %v", err)
	}
	roster, err := scheduler.NewRoster(sessions, lecturers, validator.New())
	if err != nil {
		log.Fatalf("invalid input: %v", err)
	}

	opts := scheduler.DefaultOptions()
	opts.MaxIterations = iterations
	opts.Epsilon = epsilon
	opts.Seed = seed

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results, err := compareStrategies(ctx, roster, opts)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	printReport(os.Stdout, results)

	failed := 0
	for _, res := range results {
		if res.Error != nil || !res.Report.Valid {
			failed++
		}
	}
	fmt.Printf("Failed strategies: %d of %d\n", failed, len(results))
	if failed > 0 {
		os.Exit(1)
	}
}

func compareStrategies(ctx context.Context, roster *scheduler.Roster, opts scheduler.Options) ([]comparison, error) {
	engine, err := scheduler.New(roster, opts, zap.NewNop())
	if err != nil {
		return nil, err
	}
	results := make([]comparison, 0, len(scheduler.Strategies))
	for _, strategy := range scheduler.Strategies {
		res := comparison{Strategy: strategy}
		start := time.Now()
		schedule, err := engine.Run(ctx, strategy)
		res.Duration = time.Since(start)
		if err != nil {
			res.Error = err
		} else {
			res.Report = scheduler.Analyze(schedule, roster)
		}
		results = append(results, res)
	}
	return results, nil
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Strategy Compare Report")
	fmt.Fprintln(w, "=======================")
	for _, res := range results {
		if res.Error != nil {
			fmt.Fprintf(w, "[ERROR] %s (%s)\n  Error: %v\n", res.Strategy, res.Duration, res.Error)
			continue
		}
		status := "OK"
		if !res.Report.Valid {
			status = "INVALID"
		}
		r := res.Report
		fmt.Fprintf(w, "[%s] %s (%s)\n", status, res.Strategy, res.Duration)
		fmt.Fprintf(w, "  Filled roles: %d | Unassigned: %d | Lecturers used: %d\n",
			r.Summary.FilledRoles, r.Summary.UnassignedRoles, r.Summary.LecturersUsed)
		fmt.Fprintf(w, "  Expertise violations: %d | Time conflicts: %d | Expertise ratio: %.3f\n",
			r.ExpertiseViolations, r.TimeConflicts, r.ExpertiseRatio)
		fmt.Fprintf(w, "  Workload mean: %.2f | std: %.2f | min: %.0f | max: %.0f | balance: %.3f\n",
			r.Stats.Mean, r.Stats.StdDev, r.Stats.Min, r.Stats.Max, r.BalanceScore)
		if r.BestReward != nil {
			fmt.Fprintf(w, "  Best reward: %.3f\n", *r.BestReward)
		}
	}
}
