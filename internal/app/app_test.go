package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/agbru/fibsum/internal/collective"
	"github.com/agbru/fibsum/internal/collective/amqpcomm"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/logging"
)

// worldComm adapts an in-process rank to RankComm.
type worldComm struct {
	*collective.LocalComm
	closed bool
}

func (c *worldComm) Close() error {
	c.closed = true
	return nil
}

// worldDialer hands out the ranks of one shared World, standing in for
// processes connected to the same broker.
func worldDialer(t *testing.T, size int) (Dialer, []*worldComm) {
	t.Helper()
	w, err := collective.NewWorld(size)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	comms := make([]*worldComm, size)
	for r := range comms {
		comms[r] = &worldComm{LocalComm: w.Comm(r)}
	}
	return func(_ context.Context, cfg amqpcomm.Config, _ logging.Logger) (RankComm, error) {
		if cfg.Size != size {
			t.Errorf("dial size = %d, want %d", cfg.Size, size)
		}
		return comms[cfg.Rank], nil
	}, comms
}

func newTestApp(t *testing.T, args []string, opts ...AppOption) *Application {
	t.Helper()
	opts = append([]AppOption{WithLogger(logging.NopLogger{})}, opts...)
	a, err := New(append([]string{"fibsum", "-no-color"}, args...), &bytes.Buffer{}, opts...)
	if err != nil {
		t.Fatalf("New(%v): %v", args, err)
	}
	return a
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, err := New([]string{"fibsum"}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if a.Config.N != 10000 || a.Config.Mode != "all" {
			t.Errorf("unexpected defaults: %+v", a.Config)
		}
		if a.Logger == nil {
			t.Error("logger not built")
		}
		if a.Metrics != nil {
			t.Error("metrics collector created without -metrics-file")
		}
	})

	t.Run("help", func(t *testing.T) {
		_, err := New([]string{"fibsum", "--help"}, &bytes.Buffer{})
		if !IsHelpError(err) {
			t.Errorf("IsHelpError(%v) = false", err)
		}
	})

	t.Run("config error", func(t *testing.T) {
		_, err := New([]string{"fibsum", "-workers", "0"}, &bytes.Buffer{})
		var configErr apperrors.ConfigError
		if !errors.As(err, &configErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		var out bytes.Buffer
		if code := ReportError(err, &out); code != apperrors.ExitErrorConfig {
			t.Errorf("ReportError code = %d", code)
		}
		if !strings.Contains(out.String(), "Configuration error") {
			t.Errorf("ReportError output = %q", out.String())
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := New([]string{"fibsum", "-log-level", "loud"}, &bytes.Buffer{})
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestRun_Local(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
	}{
		{
			name:     "sequential",
			args:     []string{"-n", "10", "-mode", "sequential", "-q"},
			contains: []string{"Sum of Fibonacci Numbers: 143...", "Elapsed Time: "},
			absent:   []string{"Execution Configuration", "(Parallel)"},
		},
		{
			name:     "parallel",
			args:     []string{"-n", "20", "-mode", "parallel", "-workers", "3", "-q"},
			contains: []string{"Sum of Fibonacci Numbers: 17710...", "Elapsed Time (Parallel): "},
		},
		{
			name: "comparison",
			args: []string{"-n", "100", "-workers", "4"},
			contains: []string{
				"Execution Configuration",
				"Comparison Summary",
				"Elapsed Time: ",
				"Elapsed Time (Parallel): ",
				"Global Status",
			},
		},
		{
			name:     "details",
			args:     []string{"-n", "30", "-mode", "parallel", "-workers", "2", "-d"},
			contains: []string{"Number of digits", "Rank", "Memory"},
		},
		{
			name:     "status server",
			args:     []string{"-n", "10", "-mode", "parallel", "-workers", "2", "-q", "-listen", "127.0.0.1:0"},
			contains: []string{"Sum of Fibonacci Numbers: 143..."},
		},
		{
			name:     "calibrate",
			args:     []string{"-n", "50", "-calibrate"},
			contains: []string{"Calibration Summary", "(Optimal)", "Recommended: -workers "},
		},
		{
			name:     "repeat",
			args:     []string{"-n", "25", "-repeat", "3"},
			contains: []string{"3 runs, identical totals", "Elapsed Time (Parallel): "},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, tt.args)
			var out bytes.Buffer
			if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
				t.Fatalf("Run exit code = %d\n%s", code, out.String())
			}
			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q\n%s", want, out.String())
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(out.String(), unwanted) {
					t.Errorf("output unexpectedly contains %q", unwanted)
				}
			}
		})
	}
}

func TestRun_OutputAndMetricsFiles(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "sum.txt")
	metricsPath := filepath.Join(dir, "fibsum.prom")

	a := newTestApp(t, []string{"-n", "10", "-q", "-o", resultPath, "-metrics-file", metricsPath})
	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run exit code = %d\n%s", code, out.String())
	}

	content, err := os.ReadFile(resultPath)
	if err != nil {
		t.Fatalf("result file: %v", err)
	}
	if !strings.Contains(string(content), "143") {
		t.Errorf("result file missing the total:\n%s", content)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), "fibsum_runs_total") {
		t.Errorf("metrics file missing fibsum_runs_total:\n%s", metrics)
	}
}

func TestRun_StatusServerWithoutMetricsFile(t *testing.T) {
	var logs bytes.Buffer
	a := newTestApp(t, []string{"-n", "12", "-mode", "parallel", "-workers", "3", "-q", "-listen", "127.0.0.1:0"},
		WithLogger(logging.NewLogger(&logs, "test")))
	if a.Metrics == nil {
		t.Fatal("-listen should create a metrics collector")
	}

	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitSuccess {
		t.Fatalf("Run exit code = %d\n%s\nlogs: %s", code, out.String(), logs.String())
	}
	if strings.Contains(logs.String(), "failed to write metrics") || strings.Contains(logs.String(), `"level":"error"`) {
		t.Errorf("unexpected error logged: %s", logs.String())
	}
}

func TestRun_Canceled(t *testing.T) {
	a := newTestApp(t, []string{"-n", "5000", "-mode", "sequential", "-q"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if code := a.Run(ctx, &out); code != apperrors.ExitErrorCanceled {
		t.Errorf("Run exit code = %d, want %d\n%s", code, apperrors.ExitErrorCanceled, out.String())
	}
}

func TestRun_AMQPTransport(t *testing.T) {
	const size = 3
	dialer, comms := worldDialer(t, size)

	outputs := make([]bytes.Buffer, size)
	codes := make([]int, size)
	var wg sync.WaitGroup
	for r := 0; r < size; r++ {
		a := newTestApp(t, []string{
			"-n", "20", "-mode", "parallel", "-transport", "amqp",
			"-workers", "3", "-rank", strconv.Itoa(r), "-q",
		}, WithDialer(dialer))
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			codes[r] = a.Run(context.Background(), &outputs[r])
		}(r)
	}
	wg.Wait()

	for r := 0; r < size; r++ {
		if codes[r] != apperrors.ExitSuccess {
			t.Errorf("rank %d exit code = %d\n%s", r, codes[r], outputs[r].String())
		}
		if !comms[r].closed {
			t.Errorf("rank %d communicator not closed", r)
		}
	}
	if got := outputs[0].String(); !strings.Contains(got, "Sum of Fibonacci Numbers: 17710...") ||
		!strings.Contains(got, "Elapsed Time (Parallel): ") {
		t.Errorf("coordinator output:\n%s", got)
	}
	for r := 1; r < size; r++ {
		if outputs[r].Len() != 0 {
			t.Errorf("rank %d printed output:\n%s", r, outputs[r].String())
		}
	}
}

func TestRun_AMQPDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	a := newTestApp(t, []string{"-mode", "parallel", "-transport", "amqp", "-workers", "2", "-q"},
		WithDialer(func(context.Context, amqpcomm.Config, logging.Logger) (RankComm, error) {
			return nil, dialErr
		}))

	var out bytes.Buffer
	if code := a.Run(context.Background(), &out); code != apperrors.ExitErrorGeneric {
		t.Errorf("Run exit code = %d, want %d", code, apperrors.ExitErrorGeneric)
	}
	if !strings.Contains(out.String(), "connection refused") {
		t.Errorf("output does not mention the cause:\n%s", out.String())
	}
}

func TestHasVersionFlag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"--version"}, true},
		{[]string{"-n", "10", "-version"}, true},
		{[]string{"-V"}, true},
		{[]string{"-v"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := HasVersionFlag(tt.args); got != tt.want {
			t.Errorf("HasVersionFlag(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	PrintVersion(&out)
	if !strings.HasPrefix(out.String(), "fibsum "+Version) {
		t.Errorf("PrintVersion = %q", out.String())
	}
}
