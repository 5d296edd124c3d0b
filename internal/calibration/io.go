package calibration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/agbru/fibsum/internal/format"
	"github.com/agbru/fibsum/internal/ui"
)

// PrintResults formats the calibration table, marking the best count.
func PrintResults(out io.Writer, results []Result, best int) {
	fmt.Fprintf(out, "\n%s\n", ui.Heading("Calibration Summary"))
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  %sWorkers%s\t│ %sMean%s\t│ %sStd. dev.%s\n",
		ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset())
	fmt.Fprintf(tw, "  %s\t┼%s\t┼%s\n", strings.Repeat("─", 9), strings.Repeat("─", 14), strings.Repeat("─", 14))
	for _, res := range results {
		mean := fmt.Sprintf("%sN/A%s", ui.ColorRed(), ui.ColorReset())
		stddev := mean
		if res.Err == nil {
			mean = format.FormatExecutionDuration(res.Stats.Mean)
			stddev = ui.ColorGrey() + format.FormatExecutionDuration(res.Stats.StdDev) + ui.ColorReset()
		}
		highlight := ""
		if res.Workers == best && res.Err == nil {
			highlight = fmt.Sprintf(" %s(Optimal)%s", ui.ColorGreen(), ui.ColorReset())
		}
		fmt.Fprintf(tw, "  %s%d%s\t│ %s%s%s%s\t│ %s\n",
			ui.ColorCyan(), res.Workers, ui.ColorReset(), ui.ColorYellow(), mean, ui.ColorReset(), highlight, stddev)
	}
	tw.Flush()
}

// PrintRecommendation prints the flag to use for the best count.
func PrintRecommendation(out io.Writer, best int) {
	fmt.Fprintf(out, "\n%sRecommended%s: -workers %s%d%s\n",
		ui.ColorGreen(), ui.ColorReset(), ui.ColorYellow(), best, ui.ColorReset())
}
