// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their behavior:
//
//   - Display* functions write formatted output to an [io.Writer].
//     Examples: [DisplaySummary], [DisplayResult], [DisplayProgress].
//
//   - Format* functions return a formatted string without performing I/O.
//     Examples: [FormatSummary].
//
//   - Write* functions write data to files on the filesystem.
//     Examples: [WriteResultToFile].

package cli

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/format"
	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/ui"
)

// FormatSummary returns the two result lines of a run:
//
//	Sum of Fibonacci Numbers: 88083...
//	Elapsed Time: 0.0123 seconds
//
// Distributed runs label the elapsed time "Elapsed Time (Parallel)".
func FormatSummary(total *big.Int, elapsed time.Duration, parallel bool) string {
	label := "Elapsed Time"
	if parallel {
		label = "Elapsed Time (Parallel)"
	}
	return fmt.Sprintf("Sum of Fibonacci Numbers: %s\n%s: %s seconds\n",
		format.FormatPreview(total.String()), label, format.FormatElapsedSeconds(elapsed))
}

// DisplaySummary writes the result lines of a successful run.
func DisplaySummary(out io.Writer, result orchestration.CalculationResult) {
	fmt.Fprint(out, FormatSummary(result.Result, result.Duration, result.Parallel))
}

// DisplayResult writes the detailed analysis of a result: size of the total,
// the total itself in verbose mode, and the partition table of distributed runs.
func DisplayResult(result orchestration.CalculationResult, opts orchestration.PresentationOptions, out io.Writer) {
	if !opts.Verbose && !opts.Details {
		return
	}
	digits := result.Result.String()
	if opts.Details {
		fmt.Fprintf(out, "\n%s\n", ui.Heading("Detailed result analysis"))
		fmt.Fprintf(out, "Strategy:         %s%s%s\n", ui.ColorBlue(), result.Name, ui.ColorReset())
		fmt.Fprintf(out, "Work range:       [1, %s]\n", format.FormatNumberString(fmt.Sprint(opts.N)))
		fmt.Fprintf(out, "Calculation time: %s%s%s\n", ui.ColorYellow(), format.FormatExecutionDuration(result.Duration), ui.ColorReset())
		fmt.Fprintf(out, "Number of digits: %s\n", format.FormatNumberString(fmt.Sprint(len(digits))))
		fmt.Fprintf(out, "Result binary size: %s bits\n", format.FormatNumberString(fmt.Sprint(result.Result.BitLen())))
		if len(result.Ranks) > 0 {
			DisplayPartitions(result.Ranks, out)
		}
	}
	if opts.Verbose {
		fmt.Fprintf(out, "\nSum of F(1..%d) =\n%s%s%s\n", opts.N, ui.ColorGreen(), digits, ui.ColorReset())
	} else if opts.Details {
		fmt.Fprintf(out, "\nSum of F(1..%d) = %s\n", opts.N, truncateDigits(digits))
	}
}

func truncateDigits(digits string) string {
	if len(digits) <= TruncationLimit {
		return format.FormatNumberString(digits)
	}
	return fmt.Sprintf("%s...%s (truncated, use -v for the full value)",
		digits[:DisplayEdges], digits[len(digits)-DisplayEdges:])
}

// DisplayPartitions writes one row per rank: its range, size, compute time and
// the size of its partial sum.
func DisplayPartitions(ranks []orchestration.RankResult, out io.Writer) {
	fmt.Fprintf(out, "\nPartitions:\n")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Rank\tRange\tValues\tCompute\tPartial digits")
	for _, r := range ranks {
		partialDigits := 0
		if r.Partial != nil {
			partialDigits = len(r.Partial.String())
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\t%d\n",
			r.Rank, r.Range, r.Range.Len(), format.FormatExecutionDuration(r.Compute), partialDigits)
	}
	tw.Flush()
}

// DisplayRepeatStats writes the timing statistics of repeated runs.
func DisplayRepeatStats(stats orchestration.RepeatStats, out io.Writer) {
	fmt.Fprintf(out, "%s: %d runs, identical totals\n", stats.Name, stats.Runs)
	fmt.Fprintf(out, "  Mean %s s, stddev %s s, min %s s, max %s s\n",
		format.FormatElapsedSeconds(stats.Mean), format.FormatElapsedSeconds(stats.StdDev),
		format.FormatElapsedSeconds(stats.Min), format.FormatElapsedSeconds(stats.Max))
}

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path to save the result (empty for no file output).
	OutputFile string
	// Quiet mode suppresses the confirmation message.
	Quiet bool
}

// WriteResultToFile writes the full total with a descriptive header.
// It does nothing when config.OutputFile is empty.
func WriteResultToFile(result *big.Int, n int, duration time.Duration, strategy string, config OutputConfig) error {
	if config.OutputFile == "" {
		return nil
	}

	dir := filepath.Dir(config.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.WrapError(err, "failed to create directory")
		}
	}

	file, err := os.Create(config.OutputFile)
	if err != nil {
		return apperrors.WrapError(err, "failed to create output file")
	}
	defer file.Close()

	fmt.Fprintf(file, "# Fibonacci Sum Result\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Strategy: %s\n", strategy)
	fmt.Fprintf(file, "# Duration: %s\n", duration)
	fmt.Fprintf(file, "# N: %d\n", n)
	fmt.Fprintf(file, "# Bits: %d\n", result.BitLen())
	fmt.Fprintf(file, "# Digits: %d\n", len(result.String()))
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "Sum of F(1..%d) =\n%s\n", n, result.String())

	return file.Close()
}

// DisplaySavedResult writes the result file and confirms it unless quiet.
func DisplaySavedResult(out io.Writer, result orchestration.CalculationResult, n int, config OutputConfig) error {
	if config.OutputFile == "" {
		return nil
	}
	if err := WriteResultToFile(result.Result, n, result.Duration, result.Name, config); err != nil {
		return err
	}
	if !config.Quiet {
		fmt.Fprintf(out, "\n%sResult saved to: %s%s%s\n",
			ui.ColorGreen(), ui.ColorCyan(), config.OutputFile, ui.ColorReset())
	}
	return nil
}
