package cli

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/partition"
	"github.com/agbru/fibsum/internal/ui"
)

func TestFormatSummary(t *testing.T) {
	t.Parallel()
	total, _ := new(big.Int).SetString("880837990002364329423517250217571446953178810", 10)

	got := FormatSummary(total, 123456789*time.Nanosecond, false)
	want := "Sum of Fibonacci Numbers: 88083...\nElapsed Time: 0.1235 seconds\n"
	if got != want {
		t.Errorf("FormatSummary = %q, want %q", got, want)
	}

	got = FormatSummary(big.NewInt(143), 2*time.Second, true)
	want = "Sum of Fibonacci Numbers: 143...\nElapsed Time (Parallel): 2.0000 seconds\n"
	if got != want {
		t.Errorf("FormatSummary (parallel) = %q, want %q", got, want)
	}
}

func TestDisplayResult(t *testing.T) {
	ui.InitTheme(true)
	defer ui.InitTheme(false)

	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(200), nil)
	ranks := []orchestration.RankResult{
		{Rank: 0, Range: partition.Range{Start: 0, End: 5}, Partial: big.NewInt(12)},
		{Rank: 1, Range: partition.Range{Start: 5, End: 10}, Partial: big.NewInt(131)},
	}

	tests := []struct {
		name        string
		result      orchestration.CalculationResult
		opts        orchestration.PresentationOptions
		contains    []string
		notContains []string
	}{
		{
			name:        "Nothing by default",
			result:      orchestration.CalculationResult{Name: "Sequential", Result: big.NewInt(143)},
			opts:        orchestration.PresentationOptions{N: 10},
			notContains: []string{"Detailed", "Sum of F"},
		},
		{
			name:     "Details",
			result:   orchestration.CalculationResult{Name: "Parallel (2 workers)", Result: big.NewInt(143), Ranks: ranks, Duration: time.Millisecond},
			opts:     orchestration.PresentationOptions{N: 10, Details: true},
			contains: []string{"Detailed result analysis", "Number of digits: 3", "Partitions:", "[5,10)", "Sum of F(1..10) = 143"},
		},
		{
			name:     "Truncated",
			result:   orchestration.CalculationResult{Name: "Sequential", Result: huge},
			opts:     orchestration.PresentationOptions{N: 100, Details: true},
			contains: []string{"(truncated", "Number of digits: 201"},
		},
		{
			name:        "Verbose shows full value",
			result:      orchestration.CalculationResult{Name: "Sequential", Result: huge},
			opts:        orchestration.PresentationOptions{N: 100, Verbose: true},
			contains:    []string{"Sum of F(1..100) =\n1" + strings.Repeat("0", 200)},
			notContains: []string{"truncated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			DisplayResult(tt.result, tt.opts, &buf)
			output := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("Expected output to contain %q, but got:\n%s", s, output)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(output, s) {
					t.Errorf("Expected output not to contain %q, but got:\n%s", s, output)
				}
			}
		})
	}
}

func TestDisplayRepeatStats(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	DisplayRepeatStats(orchestration.RepeatStats{
		Name: "Sequential", Runs: 3, Mean: 10 * time.Millisecond, Max: 20 * time.Millisecond,
	}, &buf)
	if !strings.Contains(buf.String(), "3 runs") || !strings.Contains(buf.String(), "Mean 0.0100 s") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteResultToFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	testCases := []struct {
		name       string
		outputFile string
		checkFunc  func(t *testing.T, filePath string)
	}{
		{
			name:       "Write result to file",
			outputFile: filepath.Join(tmpDir, "result.txt"),
			checkFunc: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				if err != nil {
					t.Fatalf("Failed to read output file: %v", err)
				}
				contentStr := string(content)
				if !strings.Contains(contentStr, "Sum of F(1..10) =\n143\n") {
					t.Errorf("File should contain the full sum, got:\n%s", contentStr)
				}
				if !strings.Contains(contentStr, "# Strategy: Sequential") {
					t.Error("File should name the strategy")
				}
			},
		},
		{
			name:       "Empty output file (no write)",
			outputFile: "",
		},
		{
			name:       "Create nested directory",
			outputFile: filepath.Join(tmpDir, "nested", "dir", "result.txt"),
			checkFunc: func(t *testing.T, filePath string) {
				if _, err := os.Stat(filePath); err != nil {
					t.Errorf("File should exist in nested directory: %v", err)
				}
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := WriteResultToFile(big.NewInt(143), 10, 100*time.Millisecond, "Sequential", OutputConfig{OutputFile: tc.outputFile})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tc.checkFunc != nil {
				tc.checkFunc(t, tc.outputFile)
			}
		})
	}
}

func TestDisplaySavedResult(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	result := orchestration.CalculationResult{Name: "Sequential", Result: big.NewInt(143)}

	t.Run("Normal mode", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		path := filepath.Join(tmpDir, "out.txt")
		if err := DisplaySavedResult(&buf, result, 10, OutputConfig{OutputFile: path}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Result saved to") {
			t.Errorf("Should show file save message, got %q", buf.String())
		}
	})

	t.Run("Quiet mode", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		path := filepath.Join(tmpDir, "quiet.txt")
		if err := DisplaySavedResult(&buf, result, 10, OutputConfig{OutputFile: path, Quiet: true}); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 0 {
			t.Errorf("Quiet mode should print nothing, got %q", buf.String())
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Output file should exist: %v", err)
		}
	})
}
