package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pointfit/pkg/pipeline"
	"github.com/matzehuels/pointfit/pkg/relax"
)

// Progress styles
var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	defaultBarWidth = 40
	maxBarWidth     = 80
)

// =============================================================================
// ProgressModel - Live optimization progress
// =============================================================================

// roundMsg carries one optimizer round into the UI.
type roundMsg relax.RoundEvent

// doneMsg tells the UI that the run has returned.
type doneMsg struct{}

// ProgressModel is the bubbletea model showing a running estimate.
type ProgressModel struct {
	Last     relax.RoundEvent
	Accepted int
	Rejected int
	Width    int
	Stopping bool
	Done     bool

	cancel context.CancelFunc
}

// NewProgressModel creates a progress model. cancel is called when the user
// quits; the model keeps running until the run has returned.
func NewProgressModel(cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Width: defaultBarWidth, cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.Stopping && m.cancel != nil {
				m.cancel()
			}
			m.Stopping = true
		}
	case roundMsg:
		ev := relax.RoundEvent(msg)
		if ev.Accepted {
			m.Accepted++
		} else {
			m.Rejected++
		}
		m.Last = ev
	case doneMsg:
		m.Done = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.Width = min(max(msg.Width-20, 10), maxBarWidth)
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Relaxing positions"))
	b.WriteString("\n\n")

	ev := m.Last
	frac := 0.0
	if ev.MaxRounds > 0 {
		frac = float64(ev.Round) / float64(ev.MaxRounds)
	}
	b.WriteString("  " + progressBar(frac, m.Width))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d", ev.Round, ev.MaxRounds)))
	b.WriteString("\n\n")

	line := func(label, value string) {
		b.WriteString("  " + labelStyle.Render(label) + " " + StyleValue.Render(value) + "\n")
	}
	line("error", formatError(ev.Best.Cumulative))
	line("max error", formatError(ev.Best.Max))
	line("step", formatError(ev.NextStepSize))
	line("accepted", fmt.Sprintf("%d / %d", m.Accepted, m.Accepted+m.Rejected))
	if ev.Skipped > 0 {
		line("skipped", fmt.Sprint(ev.Skipped))
	}

	b.WriteString("\n")
	switch {
	case m.Done:
		b.WriteString(StyleSuccess.Render("  " + ev.Status.String()))
	case m.Stopping:
		b.WriteString(StyleWarning.Render("  stopping after this round..."))
	default:
		b.WriteString(StyleDim.Render("  q stop and checkpoint"))
	}
	b.WriteString("\n")
	return b.String()
}

func progressBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// runWithProgress runs fn while the progress UI renders its rounds. The UI
// writes to stderr so stdout stays clean for results.
func runWithProgress(ctx context.Context, opts pipeline.Options,
	fn func(context.Context, pipeline.Options) (*pipeline.Result, error)) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(cancel), tea.WithOutput(os.Stderr))
	opts.Progress = func(ev relax.RoundEvent) { p.Send(roundMsg(ev)) }

	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx, opts)
		done <- outcome{res, err}
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		out := <-done
		if out.err != nil {
			return out.res, out.err
		}
		return out.res, fmt.Errorf("progress ui: %w", err)
	}
	out := <-done
	return out.res, out.err
}
