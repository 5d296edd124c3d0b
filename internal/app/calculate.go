package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/agbru/fibsum/internal/calibration"
	"github.com/agbru/fibsum/internal/cli"
	"github.com/agbru/fibsum/internal/collective/amqpcomm"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/metrics"
	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/partition"
	"github.com/agbru/fibsum/internal/sysmon"
	"github.com/agbru/fibsum/internal/tui"
	"github.com/agbru/fibsum/internal/ui"
)

// runLocal runs the selected strategies in this process.
func (a *Application) runLocal(ctx context.Context, out io.Writer) int {
	data := partition.WorkRange(a.Config.N)
	if a.Config.Calibrate {
		return a.runCalibration(ctx, data, out)
	}
	strategies := orchestration.StrategiesFor(a.Config.Mode, orchestration.StrategyOptions{
		Workers:  a.Config.Workers,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		Observer: a.observer,
	})

	if a.Config.TUI {
		return a.runDashboard(ctx, strategies, data, out)
	}
	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
		cli.PrintExecutionMode(strategies, out)
	}
	if a.Config.Repeat > 1 {
		return a.runRepeat(ctx, strategies, data, out)
	}

	var progressReporter orchestration.ProgressReporter
	progressOut := out
	if a.Config.Quiet {
		progressOut = io.Discard
		progressReporter = orchestration.NullProgressReporter{}
	} else {
		progressReporter = cli.CLIProgressReporter{}
	}

	before := metrics.ReadMemory()
	results := orchestration.ExecuteStrategies(ctx, strategies, data, a.Metrics, progressReporter, progressOut)
	mem := metrics.ReadMemory().Since(before)

	return a.analyzeResults(ctx, results, mem, out)
}

func (a *Application) analyzeResults(ctx context.Context, results []orchestration.CalculationResult, mem metrics.MemoryDelta, out io.Writer) int {
	for _, res := range results {
		if res.Err == nil {
			cli.DisplaySummary(out, res)
		}
	}

	presenter := cli.CLIResultPresenter{}
	presOpts := orchestration.PresentationOptions{
		N:       a.Config.N,
		Verbose: a.Config.Verbose,
		Details: a.Config.Details && !a.Config.Quiet,
	}

	var exitCode int
	if len(results) == 1 {
		if res := results[0]; res.Err != nil {
			return presenter.HandleError(a.timeout(res.Err, res.Name), res.Duration, out)
		}
		presenter.PresentResult(results[0], presOpts, out)
		exitCode = apperrors.ExitSuccess
	} else {
		tableOut := out
		if a.Config.Quiet {
			tableOut = io.Discard
		}
		exitCode = orchestration.AnalyzeComparisonResults(results, presOpts, presenter, tableOut)
	}

	if presOpts.Details {
		cli.DisplayMemoryStats(mem, out)
		cli.DisplaySystemStats(sysmon.Sample(ctx), out)
	}

	if best := findBestResult(results); best != nil && exitCode == apperrors.ExitSuccess {
		if err := a.saveResult(*best, out); err != nil {
			return apperrors.ExitErrorGeneric
		}
	}
	return exitCode
}

// runCalibration measures the distributed strategy for the worker counts
// suited to this machine and prints the recommendation.
func (a *Application) runCalibration(ctx context.Context, data []int, out io.Writer) int {
	counts := calibration.GenerateWorkerCounts(runtime.NumCPU())
	if !a.Config.Quiet {
		fmt.Fprintf(out, "%s\n", ui.Heading("Calibration"))
		fmt.Fprintf(out, "Measuring F(1..%d) with %v workers, %d run(s) each.\n", a.Config.N, counts, a.Config.Repeat)
	}
	results, best, err := calibration.Calibrate(ctx, data, counts, calibration.Options{
		Runs:   a.Config.Repeat,
		Logger: a.Logger,
	})
	if err != nil {
		return cli.CLIResultPresenter{}.HandleError(a.timeout(err, "calibration"), 0, out)
	}
	if !a.Config.Quiet {
		calibration.PrintResults(out, results, best)
	}
	calibration.PrintRecommendation(out, best)
	return apperrors.ExitSuccess
}

// runDashboard follows the run in the terminal dashboard, then prints the
// summary lines once the dashboard is closed.
func (a *Application) runDashboard(ctx context.Context, strategies []orchestration.Strategy, data []int, out io.Writer) int {
	code, results, err := tui.Run(ctx, strategies, data, tui.Options{
		N:       a.Config.N,
		Workers: a.Config.Workers,
		Metrics: a.Metrics,
		Version: Version,
	})
	if err != nil {
		a.Logger.Error("dashboard failed", err)
		return apperrors.ExitErrorGeneric
	}
	for _, res := range results {
		if res.Err == nil {
			cli.DisplaySummary(out, res)
		}
	}
	if best := findBestResult(results); best != nil && code == apperrors.ExitSuccess {
		if err := a.saveResult(*best, out); err != nil {
			return apperrors.ExitErrorGeneric
		}
	}
	return code
}

// runRepeat runs every strategy Config.Repeat times and checks that all
// totals agree, within and across strategies.
func (a *Application) runRepeat(ctx context.Context, strategies []orchestration.Strategy, data []int, out io.Writer) int {
	var reference *orchestration.RepeatStats
	for _, s := range strategies {
		stats, err := orchestration.Repeat(ctx, s, data, a.Config.Repeat)
		for _, d := range stats.Durations {
			a.Metrics.ObserveRun(s.Name(), d, nil)
		}
		if err != nil {
			if errors.Is(err, orchestration.ErrNondeterministic) {
				fmt.Fprintf(out, "CRITICAL ERROR! %v\n", err)
				return apperrors.ExitErrorMismatch
			}
			return cli.CLIResultPresenter{}.HandleError(a.timeout(err, s.Name()), 0, out)
		}
		_, parallel := s.(orchestration.DistributedStrategy)
		fmt.Fprint(out, cli.FormatSummary(stats.Total, stats.Mean, parallel))
		if !a.Config.Quiet {
			cli.DisplayRepeatStats(stats, out)
		}
		if reference == nil {
			reference = &stats
		} else if reference.Total.Cmp(stats.Total) != 0 {
			fmt.Fprintf(out, "CRITICAL ERROR! %s and %s disagree.\n", reference.Name, stats.Name)
			return apperrors.ExitErrorMismatch
		}
	}
	return apperrors.ExitSuccess
}

// runAMQP runs this process's rank of a group connected through RabbitMQ.
// Only the coordinator prints the result.
func (a *Application) runAMQP(ctx context.Context, out io.Writer) int {
	start := time.Now()
	cfg := amqpcomm.DefaultConfig()
	cfg.URL = a.Config.AMQPURL
	cfg.RunID = a.Config.RunID
	cfg.Rank = a.Config.Rank
	cfg.Size = a.Config.Workers

	presenter := cli.CLIResultPresenter{}
	comm, err := a.dial(ctx, cfg, a.Logger)
	if err != nil {
		return presenter.HandleError(apperrors.CollectiveError{Op: "connect", Rank: cfg.Rank, Cause: err}, time.Since(start), out)
	}
	defer func() {
		if err := comm.Close(); err != nil {
			a.Logger.Error("failed to close broker connection", err, logging.Int("rank", cfg.Rank))
		}
	}()

	var data []int
	if cfg.Rank == orchestration.CoordinatorRank {
		data = partition.WorkRange(a.Config.N)
	}
	res, err := orchestration.RunRank(ctx, metrics.Instrument(comm, a.Metrics), data, orchestration.RankOptions{
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		Observer: a.observer,
	})
	elapsed := time.Since(start)
	a.Metrics.ObserveRun("amqp", elapsed, err)
	if err != nil {
		return presenter.HandleError(a.timeout(err, "amqp rank "+strconv.Itoa(cfg.Rank)), elapsed, out)
	}
	if !res.IsCoordinator() {
		a.Logger.Info("partial sum reported",
			logging.Int("rank", res.Rank), logging.String("range", res.Range.String()))
		return apperrors.ExitSuccess
	}

	result := orchestration.CalculationResult{
		Name:     fmt.Sprintf("Parallel (%d processes, amqp)", cfg.Size),
		Result:   res.Total,
		Duration: elapsed,
		Parallel: true,
	}
	cli.DisplaySummary(out, result)
	presenter.PresentResult(result, orchestration.PresentationOptions{
		N: a.Config.N, Verbose: a.Config.Verbose, Details: a.Config.Details && !a.Config.Quiet,
	}, out)
	if err := a.saveResult(result, out); err != nil {
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func findBestResult(results []orchestration.CalculationResult) *orchestration.CalculationResult {
	var bestResult *orchestration.CalculationResult
	for i := range results {
		if results[i].Err == nil {
			if bestResult == nil || results[i].Duration < bestResult.Duration {
				bestResult = &results[i]
			}
		}
	}
	return bestResult
}

func (a *Application) saveResult(res orchestration.CalculationResult, out io.Writer) error {
	cfg := cli.OutputConfig{OutputFile: a.Config.OutputFile, Quiet: a.Config.Quiet}
	if err := cli.DisplaySavedResult(out, res, a.Config.N, cfg); err != nil {
		a.Logger.Error("failed to save result", err, logging.String("path", cfg.OutputFile))
		return err
	}
	return nil
}

// timeout reports a deadline hit by operation against the -timeout limit.
func (a *Application) timeout(err error, operation string) error {
	return apperrors.AsTimeout(err, operation, a.Config.Timeout)
}
