package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/fit"
	"github.com/san-kum/eprsim/internal/numeric"
)

const (
	canvasWidth   = 60
	canvasHeight  = 18
	sigmaCapacity = 300
	paramRows     = 12
	tickInterval  = time.Second / 10
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Monitor shows the experimental and fitted spectra and the sigma history
// while the runner works, and turns key presses into session edits.
type Monitor struct {
	ctx       context.Context
	name      string
	session   *fit.Session
	runner    *fit.Runner
	maxCycles int
	initial   []epr.Radical
	exp       []float64
	canvas    *Canvas
	theme     Theme

	status   fit.Status
	rads     []epr.Radical
	fitted   []float64
	sigmas   []float64
	selected int
	active   bool
	runStart int
	lastErr  error
	showHelp bool
}

// NewMonitor builds a monitor for runner, which must drive session.
// maxCycles bounds each start of the fit; 0 runs until stopped.
func NewMonitor(ctx context.Context, name string, session *fit.Session, runner *fit.Runner, maxCycles int) Monitor {
	m := Monitor{
		ctx:       ctx,
		name:      name,
		session:   session,
		runner:    runner,
		maxCycles: maxCycles,
		initial:   session.Radicals(),
		exp:       session.Experimental(),
		canvas:    NewCanvas(canvasWidth, canvasHeight),
		theme:     Themes[0],
		sigmas:    make([]float64, 0, sigmaCapacity),
	}
	m.refresh()
	return m
}

// WithTheme selects a palette by name.
func (m Monitor) WithTheme(name string) Monitor {
	m.theme = GetTheme(name)
	return m
}

func (m Monitor) Init() tea.Cmd { return tick() }

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.runner.Stop()
			return m, tea.Quit
		case " ":
			m.toggle()
		case "tab":
			m.move(1)
		case "shift+tab":
			m.move(-1)
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		case "a":
			m.lastErr = m.session.EditMembership(0, true)
		case "d":
			if t, ok := m.target(); ok {
				m.lastErr = m.session.EditMembership(t.Radical, false)
			}
		case "e":
			_, m.lastErr = m.session.Evaluate()
		case "r":
			m.session.SetRadicals(m.initial)
			m.lastErr = nil
		case "t":
			m.theme = nextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
		m.refresh()
	case tickMsg:
		m.poll()
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m *Monitor) toggle() {
	if m.runner.Running() {
		m.runner.Stop()
		return
	}
	m.runStart = m.session.Status().Iterations
	err := m.runner.Start(m.ctx, m.maxCycles)
	m.lastErr = err
	m.active = err == nil
}

// poll collects the outcome of a worker that has finished.
func (m *Monitor) poll() {
	if !m.active || m.runner.Running() {
		return
	}
	m.active = false
	if _, err := m.runner.Wait(); err != nil {
		m.lastErr = err
	}
}

func (m *Monitor) refresh() {
	m.status = m.session.Status()
	m.rads = m.session.Radicals()
	m.fitted = m.session.Fitted()

	if m.status.Sigma < fit.SigmaSentinel {
		if n := len(m.sigmas); n == 0 || m.sigmas[n-1] != m.status.Sigma {
			m.sigmas = append(m.sigmas, m.status.Sigma)
			if len(m.sigmas) > sigmaCapacity {
				m.sigmas = m.sigmas[1:]
			}
		}
	}

	if n := len(Targets(m.rads)); m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m *Monitor) move(dir int) {
	n := len(Targets(m.rads))
	if n == 0 {
		return
	}
	m.selected = (m.selected + dir + n) % n
}

func (m *Monitor) target() (epr.Target, bool) {
	ts := Targets(m.rads)
	if m.selected < 0 || m.selected >= len(ts) {
		return epr.Target{}, false
	}
	return ts[m.selected], true
}

// adjust scales the selected value. A zero value moves by factor-1 instead.
func (m *Monitor) adjust(factor float64) {
	t, ok := m.target()
	if !ok {
		return
	}
	v, err := t.Get(m.rads)
	if err != nil {
		m.lastErr = err
		return
	}
	next := v * factor
	if v == 0 {
		next = factor - 1
	}
	m.lastErr = m.session.Set(t, next)
}

// Targets lists every editable scalar of rads in editor order.
func Targets(rads []epr.Radical) []epr.Target {
	var ts []epr.Target
	for ri, r := range rads {
		for _, f := range epr.RadicalFields() {
			ts = append(ts, epr.Target{Radical: ri, Nucleus: -1, Field: f})
		}
		for ni := range r.Nucs {
			for _, f := range epr.NucleusFields() {
				ts = append(ts, epr.Target{Radical: ri, Nucleus: ni, NucField: f})
			}
		}
	}
	return ts
}

func (m Monitor) View() string {
	st := newStyles(m.theme)

	m.canvas.Clear()
	lo, hi := spectrumRange(m.exp, m.fitted)
	m.canvas.Baseline(0, lo, hi)
	if m.exp != nil {
		m.canvas.Scatter(m.exp, lo, hi)
	}
	m.canvas.Plot(m.fitted, lo, hi)
	canvasView := lipgloss.NewStyle().Padding(1, 2).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.name)) + "\n")
	if m.runner.Running() {
		s.WriteString(st.status.Render("FITTING") + "\n")
	} else {
		s.WriteString(st.warn.Render("STOPPED") + "\n")
	}
	if m.lastErr != nil {
		s.WriteString(st.err.Render(m.lastErr.Error()) + "\n")
	}
	s.WriteString("\n")

	sigma := "unscored"
	if m.status.Sigma < fit.SigmaSentinel {
		sigma = fmt.Sprintf("%.6g", m.status.Sigma)
	}
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Sigma", sigma)
	row("Norm", fmt.Sprintf("%.4g", m.status.Norm))
	row("Iterations", humanize.Comma(int64(m.status.Iterations)))
	row("Accepted", humanize.Comma(int64(m.status.Accepted)))
	row("Radicals", fmt.Sprintf("%d", m.status.Radicals))
	if m.maxCycles > 0 {
		done := float64(m.status.Iterations-m.runStart) / float64(m.maxCycles)
		s.WriteString(st.label.Render("Budget") + ProgressBar(done, 20, m.theme) + "\n")
	}

	if len(m.sigmas) > 1 {
		logs := make([]float64, len(m.sigmas))
		for i, v := range m.sigmas {
			logs[i] = math.Log10(math.Max(v, 1e-300))
		}
		chart := asciigraph.Plot(logs, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("log10 sigma"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if res := residual(m.exp, m.fitted); res != nil {
		s.WriteString(st.label.Render("Residual") + st.muted.Render(Sparkline(res, 30)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	s.WriteString(m.paramList(st))

	s.WriteString(st.muted.Render("\nSP:Fit Tab:Select ↑↓:Tune A/D:Add/Del\nE:Score R:Restore T:Theme ?:Help Q:Quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + main
	}
	return main
}

func (m Monitor) paramList(st styles) string {
	ts := Targets(m.rads)
	if len(ts) == 0 {
		return st.label.Render("  (none)") + "\n"
	}
	first := max(0, min(m.selected-paramRows/2, len(ts)-paramRows))
	last := min(len(ts), first+paramRows)

	var b strings.Builder
	for i := first; i < last; i++ {
		t := ts[i]
		v, _ := t.Get(m.rads)
		line := fmt.Sprintf("r%d %-14s %10.4g", t.Radical, fieldLabel(t), v)
		if i == m.selected {
			b.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + st.muted.Render(line) + "\n")
		}
	}
	return b.String()
}

func fieldLabel(t epr.Target) string {
	if t.Nucleus >= 0 {
		return fmt.Sprintf("n%d %s", t.Nucleus, t.NucField)
	}
	return t.Field.String()
}

func spectrumRange(exp, fitted []float64) (float64, float64) {
	lo := math.Min(numeric.Min(exp), numeric.Min(fitted))
	hi := math.Max(numeric.Max(exp), numeric.Max(fitted))
	return lo, hi
}

func residual(exp, fitted []float64) []float64 {
	if exp == nil || len(exp) != len(fitted) {
		return nil
	}
	out := make([]float64, len(exp))
	for i := range exp {
		out[i] = exp[i] - fitted[i]
	}
	return out
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Start/stop the fit       ║
║  Tab      - Next parameter           ║
║  Up/K     - Increase value (+5%)     ║
║  Down/J   - Decrease value (-5%)     ║
║  A        - Add an electron          ║
║  D        - Remove selected radical  ║
║  E        - Score current radicals   ║
║  R        - Restore start radicals   ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run shows m until the user quits or ctx ends, then stops the fit.
func Run(ctx context.Context, m Monitor) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	m.runner.Stop()
	if _, werr := m.runner.Wait(); werr != nil && !errors.Is(werr, fit.ErrNotStarted) && !errors.Is(werr, context.Canceled) {
		return werr
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
