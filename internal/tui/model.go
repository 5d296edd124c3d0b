package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/format"
	"github.com/agbru/fibsum/internal/metrics"
	"github.com/agbru/fibsum/internal/orchestration"
	"github.com/agbru/fibsum/internal/sysmon"
)

// Layout constants for the dashboard.
const (
	defaultWidth  = 80
	nameWidth     = 24
	minBarWidth   = 10
	historyLength = 30
	tickInterval  = 500 * time.Millisecond
)

// Options configures a dashboard session.
type Options struct {
	N       int
	Workers int
	Metrics *metrics.Collector
	Version string
}

// Model is the root bubbletea model of the dashboard.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	ref    *programRef
	keymap KeyMap

	strategies []orchestration.Strategy
	data       []int
	opts       Options

	progress   []float64
	average    float64
	results    []orchestration.CalculationResult
	comparison []orchestration.CalculationResult
	final      *orchestration.CalculationResult
	err        error

	cpu *History
	mem *History

	start          time.Time
	elapsed        time.Duration
	done           bool
	showPartitions bool
	exitCode       int
	width          int
}

// NewModel creates a dashboard that runs strategies over data.
func NewModel(parentCtx context.Context, strategies []orchestration.Strategy, data []int, opts Options) Model {
	ctx, cancel := context.WithCancel(parentCtx)
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		ref:        &programRef{},
		keymap:     DefaultKeyMap(),
		strategies: strategies,
		data:       data,
		opts:       opts,
		progress:   make([]float64, len(strategies)),
		cpu:        NewHistory(historyLength),
		mem:        NewHistory(historyLength),
		start:      time.Now(),
		exitCode:   apperrors.ExitSuccess,
		width:      defaultWidth,
	}
}

// Init starts the run and the sampling clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), startRunCmd(m.ref, m.ctx, m.strategies, m.data, m.opts))
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case ProgressMsg:
		if msg.StrategyIndex >= 0 && msg.StrategyIndex < len(m.progress) {
			m.progress[msg.StrategyIndex] = max(m.progress[msg.StrategyIndex], msg.Value)
		}
		m.average = msg.Average
		return m, nil

	case ProgressDoneMsg:
		return m, nil

	case ComparisonResultsMsg:
		m.comparison = msg.Results
		return m, nil

	case FinalResultMsg:
		res := msg.Result
		m.final = &res
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case RunCompleteMsg:
		m.done = true
		m.exitCode = msg.ExitCode
		m.results = msg.Results
		m.elapsed = time.Since(m.start)
		return m, nil

	case TickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Since(m.start)
		return m, tea.Batch(sampleSysStatsCmd(m.ctx), tickCmd())

	case SysStatsMsg:
		m.cpu.Push(msg.CPUPercent)
		m.mem.Push(msg.MemPercent)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.cancel()
		if !m.done {
			m.exitCode = apperrors.ExitErrorCanceled
		}
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Details):
		m.showPartitions = !m.showPartitions
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	sections := []string{
		m.headerView(),
		panelStyle.Render(m.progressView()),
		m.systemView(),
	}
	if res := m.resultView(); res != "" {
		sections = append(sections, panelStyle.Render(res))
	}
	if m.showPartitions {
		if parts := m.partitionsView(); parts != "" {
			sections = append(sections, panelStyle.Render(parts))
		}
	}
	sections = append(sections, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	status := accentStyle.Render("running")
	switch {
	case m.done && m.exitCode == apperrors.ExitSuccess:
		status = successStyle.Render("done")
	case m.done:
		status = errorStyle.Render("failed")
	}
	return fmt.Sprintf("%s %s  F(1..%d), %d workers  %s  %s",
		titleStyle.Render("fibsum"), dimStyle.Render(m.opts.Version), m.opts.N, m.opts.Workers,
		format.FormatExecutionDuration(m.elapsed), status)
}

func (m Model) progressView() string {
	barWidth := max(m.width-nameWidth-20, minBarWidth)
	var b strings.Builder
	for i, s := range m.strategies {
		name := s.Name()
		state := fmt.Sprintf("%5.1f%%", m.progress[i]*100)
		if res, ok := m.resultFor(name); ok {
			if res.Err != nil {
				state = errorStyle.Render("error")
			} else {
				state = successStyle.Render(format.FormatExecutionDuration(res.Duration))
			}
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-*s %s %s", nameWidth, name, accentStyle.Render(Bar(m.progress[i], barWidth)), state)
	}
	return b.String()
}

func (m Model) systemView() string {
	return fmt.Sprintf("CPU %s %5.1f%%   MEM %s %5.1f%%",
		accentStyle.Render(Sparkline(m.cpu.Values())), m.cpu.Last(),
		accentStyle.Render(Sparkline(m.mem.Values())), m.mem.Last())
}

func (m Model) resultView() string {
	if m.err != nil && m.final == nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.final == nil {
		return ""
	}
	digits := m.final.Result.String()
	lines := []string{
		fmt.Sprintf("Sum of F(1..%d): %s (%s digits)", m.opts.N,
			format.FormatPreview(digits), format.FormatNumberString(fmt.Sprint(len(digits)))),
		dimStyle.Render("Fastest: " + m.final.Name),
	}
	switch {
	case m.exitCode == apperrors.ExitErrorMismatch:
		lines = append(lines, errorStyle.Render("Results are inconsistent"))
	case len(m.comparison) > 1:
		lines = append(lines, successStyle.Render("All valid results are consistent"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) partitionsView() string {
	var ranks []orchestration.RankResult
	for _, res := range m.results {
		if len(res.Ranks) > 0 {
			ranks = res.Ranks
			break
		}
	}
	if len(ranks) == 0 {
		return ""
	}
	var slowest time.Duration
	for _, r := range ranks {
		slowest = max(slowest, r.Compute)
	}
	load := make([]float64, len(ranks))
	var b strings.Builder
	b.WriteString(titleStyle.Render("Partitions"))
	for i, r := range ranks {
		if slowest > 0 {
			load[i] = float64(r.Compute) / float64(slowest) * 100
		}
		fmt.Fprintf(&b, "\nrank %-3d %-14s %6d values  %s", r.Rank, r.Range, r.Range.Len(),
			format.FormatExecutionDuration(r.Compute))
	}
	fmt.Fprintf(&b, "\nload %s", accentStyle.Render(Sparkline(load)))
	return b.String()
}

func (m Model) footerView() string {
	quit, details := m.keymap.Quit.Help(), m.keymap.Details.Help()
	return dimStyle.Render(fmt.Sprintf("%s %s  %s %s", quit.Key, quit.Desc, details.Key, details.Desc))
}

func (m Model) resultFor(name string) (orchestration.CalculationResult, bool) {
	for _, res := range m.results {
		if res.Name == name {
			return res, true
		}
	}
	return orchestration.CalculationResult{}, false
}

// Run shows the dashboard until the user quits and returns the exit code
// and the results of the run (nil when it was interrupted).
func Run(ctx context.Context, strategies []orchestration.Strategy, data []int, opts Options) (int, []orchestration.CalculationResult, error) {
	initStyles()

	model := NewModel(ctx, strategies, data, opts)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen())
	model.ref.SetProgram(p)

	finalModel, err := p.Run()
	if err != nil {
		return apperrors.ExitErrorGeneric, nil, err
	}
	if m, ok := finalModel.(Model); ok {
		return m.exitCode, m.results, nil
	}
	return apperrors.ExitSuccess, nil, nil
}

// startRunCmd runs the strategies and reports through the bridge.
func startRunCmd(ref *programRef, ctx context.Context, strategies []orchestration.Strategy, data []int, opts Options) tea.Cmd {
	return func() tea.Msg {
		results := orchestration.ExecuteStrategies(ctx, strategies, data, opts.Metrics, &ProgressReporter{ref: ref}, io.Discard)
		presOpts := orchestration.PresentationOptions{N: opts.N, Details: true}
		exitCode := orchestration.AnalyzeComparisonResults(results, presOpts, &ResultPresenter{ref: ref}, io.Discard)
		return RunCompleteMsg{ExitCode: exitCode, Results: results}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sampleSysStatsCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		s := sysmon.Sample(ctx)
		return SysStatsMsg{CPUPercent: s.CPUPercent, MemPercent: s.MemPercent}
	}
}
