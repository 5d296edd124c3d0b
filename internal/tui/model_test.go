package tui

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/partition"
	"github.com/agbru/fibsum/internal/ui"
)

type failingStrategy struct{}

func (failingStrategy) Name() string { return "Broken" }

func (failingStrategy) Execute(context.Context, []int, orchestration.ProgressFunc) (*big.Int, error) {
	return nil, errors.New("rank exploded")
}

func plainTheme(t *testing.T) {
	t.Helper()
	ui.InitTheme(true)
	initStyles()
	t.Cleanup(func() {
		ui.InitTheme(false)
		initStyles()
	})
}

// runModel executes the run synchronously and replays every message the
// bridge produced through Update, as the program would.
func runModel(t *testing.T, strategies []orchestration.Strategy, n int) Model {
	t.Helper()
	m := NewModel(context.Background(), strategies, partition.WorkRange(n), Options{N: n, Workers: 3, Version: "test"})
	ref, rec := newRecordingRef()
	m.ref = ref

	complete := startRunCmd(m.ref, m.ctx, m.strategies, m.data, m.opts)()
	var model tea.Model = m
	for _, msg := range append(rec.messages(), complete) {
		model, _ = model.Update(msg)
	}
	return model.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ComparisonRun(t *testing.T) {
	plainTheme(t)
	strategies := orchestration.StrategiesFor(orchestration.ModeAll, orchestration.StrategyOptions{
		Workers: 3,
		Logger:  logging.NopLogger{},
	})

	m := runModel(t, strategies, 10)
	if !m.done || m.exitCode != apperrors.ExitSuccess {
		t.Fatalf("done=%v exitCode=%d", m.done, m.exitCode)
	}
	for i, p := range m.progress {
		if p != 1 {
			t.Errorf("progress[%d] = %v, want 1", i, p)
		}
	}

	view := m.View()
	for _, want := range []string{"fibsum", "Sequential", "Parallel (3 workers)", "143...", "consistent", "done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Partitions") {
		t.Error("partitions shown before toggling")
	}

	model, _ := m.Update(keyMsg("d"))
	view = model.View()
	for _, want := range []string{"Partitions", "rank 0", "[0,3)", "[6,10)"} {
		if !strings.Contains(view, want) {
			t.Errorf("partition view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_FailedRun(t *testing.T) {
	plainTheme(t)
	m := runModel(t, []orchestration.Strategy{failingStrategy{}}, 5)

	if m.exitCode != apperrors.ExitErrorGeneric {
		t.Errorf("exitCode = %d, want %d", m.exitCode, apperrors.ExitErrorGeneric)
	}
	view := m.View()
	if !strings.Contains(view, "rank exploded") || !strings.Contains(view, "failed") {
		t.Errorf("view does not report the failure:\n%s", view)
	}
}

func TestModel_QuitBeforeDone(t *testing.T) {
	m := NewModel(context.Background(), []orchestration.Strategy{orchestration.SequentialStrategy{}}, nil, Options{})

	model, cmd := m.Update(keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if got := model.(Model).exitCode; got != apperrors.ExitErrorCanceled {
		t.Errorf("exitCode = %d, want %d", got, apperrors.ExitErrorCanceled)
	}
	if m.ctx.Err() == nil {
		t.Error("quitting did not cancel the run")
	}
}

func TestModel_Messages(t *testing.T) {
	m := NewModel(context.Background(), []orchestration.Strategy{orchestration.SequentialStrategy{}}, nil, Options{})

	model, _ := m.Update(ProgressMsg{StrategyIndex: 0, Value: 0.4, Average: 0.4})
	model, _ = model.Update(ProgressMsg{StrategyIndex: 3, Value: 0.9})
	model, _ = model.Update(SysStatsMsg{CPUPercent: 12, MemPercent: 34})
	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := model.(Model)

	if got.progress[0] != 0.4 {
		t.Errorf("progress = %v, want 0.4", got.progress[0])
	}
	if got.cpu.Last() != 12 || got.mem.Last() != 34 {
		t.Errorf("samples = %v / %v", got.cpu.Last(), got.mem.Last())
	}
	if got.width != 120 {
		t.Errorf("width = %d", got.width)
	}

	if _, cmd := got.Update(TickMsg{}); cmd == nil {
		t.Error("tick while running should schedule sampling")
	}
	done, _ := got.Update(RunCompleteMsg{ExitCode: apperrors.ExitSuccess})
	if _, cmd := done.Update(TickMsg{}); cmd != nil {
		t.Error("tick after completion should stop")
	}
}
