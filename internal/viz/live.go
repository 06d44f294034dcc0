package viz

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/sim"
	"github.com/san-kum/longsim/internal/tracker"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxTurnsPerTick = 1024
	gifPath         = "phase_space.gif"
)

type TickMsg time.Time

// Builder returns a fresh simulator positioned at turn zero.
type Builder func() (*sim.Simulator, error)

// Model is the live phase space view of one simulation.
type Model struct {
	name  string
	build Builder
	sim   *sim.Simulator

	canvas *Canvas
	frame  Frame

	turnsPerTick  int
	running       bool
	err           error
	last          dynamo.Snapshot
	sigmaHistory  []float64
	offsetHistory []float64

	separatrix bool
	showHelp   bool
	recording  bool
	frames     []*image.Paletted
}

// NewModel builds the first simulator and sizes the plot on its initial
// distribution.
func NewModel(name string, build Builder) (Model, error) {
	m := Model{
		name:         name,
		build:        build,
		canvas:       NewCanvas(width, height),
		turnsPerTick: 1,
		running:      true,
		separatrix:   true,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "s":
			m.separatrix = !m.separatrix
		case "+", "=":
			m.turnsPerTick = min(maxTurnsPerTick, m.turnsPerTick*2)
		case "-", "_":
			m.turnsPerTick = max(1, m.turnsPerTick/2)
		case "g":
			if m.recording {
				if err := saveGIF(gifPath, m.frames); err != nil {
					m.err = err
				}
				m.recording, m.frames = false, nil
			} else {
				m.recording, m.frames = true, make([]*image.Paletted, 0)
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		m.draw()
		if m.recording {
			m.frames = append(m.frames, captureFrame(m.canvas))
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) reset() error {
	s, err := m.build()
	if err != nil {
		return err
	}
	m.sim, m.err = s, nil
	m.sigmaHistory = make([]float64, 0, historyCapacity)
	m.offsetHistory = make([]float64, 0, historyCapacity)
	m.last = s.Context().Snapshot()
	m.frame = frameFor(s.Context())
	m.draw()
	return nil
}

// step tracks turnsPerTick turns and records their snapshots.
func (m *Model) step() {
	c := m.sim.Context()
	if c.Remaining() == 0 {
		m.running = false
		return
	}
	cfg := dynamo.Config{Turns: m.turnsPerTick, ValidateState: true}
	err := m.sim.RunWithCallback(context.Background(), cfg, func(s dynamo.Snapshot) bool {
		m.push(s)
		return true
	})
	if err != nil {
		m.err, m.running = err, false
	}
}

func (m *Model) push(s dynamo.Snapshot) {
	m.last = s
	m.sigmaHistory = appendCapped(m.sigmaHistory, s.SigmaDE)
	m.offsetHistory = appendCapped(m.offsetHistory, s.MeanDt*1e9)
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

// frameFor spans the slicing window, or the bunch, in time and the larger
// of the bucket height and the bunch in energy.
func frameFor(c *sim.Context) Frame {
	b := c.Beam
	f := Frame{XMin: math.Inf(1), XMax: math.Inf(-1)}
	if c.Slicer != nil {
		f.XMin, f.XMax = c.Slicer.CutLeft, c.Slicer.CutRight
	} else {
		for i, t := range b.Dt {
			if b.ID[i] != 0 {
				f.XMin, f.XMax = math.Min(f.XMin, t), math.Max(f.XMax, t)
			}
		}
		pad := 0.1 * (f.XMax - f.XMin)
		f.XMin, f.XMax = f.XMin-pad, f.XMax+pad
	}

	var de float64
	for i, e := range b.DE {
		if b.ID[i] != 0 {
			de = math.Max(de, math.Abs(e))
		}
	}
	de *= 1.5
	if f.XMax > f.XMin {
		for _, v := range separatrixAt(c, analysis.Linspace(f.XMin, f.XMax, 64)) {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				de = math.Max(de, 1.1*v)
			}
		}
	}
	f.YMin, f.YMax = -de, de
	if !f.Valid() {
		return Frame{XMin: 0, XMax: 1, YMin: -1, YMax: 1}
	}
	return f
}

func separatrixAt(c *sim.Context, dt []float64) []float64 {
	p := c.RF[0]
	return tracker.Separatrix(p, min(p.Counter, p.Turns), dt)
}

func (m *Model) draw() {
	m.canvas.Clear()
	drawPhaseSpace(m.canvas, m.frame, m.sim.Context(), m.separatrix)
}

func drawPhaseSpace(canvas *Canvas, f Frame, c *sim.Context, separatrix bool) {
	b := c.Beam
	canvas.Scatter(f, b.Dt, b.DE, func(i int) bool { return b.ID[i] != 0 })
	if !separatrix {
		return
	}
	dt := analysis.Linspace(f.XMin, f.XMax, 2*canvas.Width)
	upper := separatrixAt(c, dt)
	lower := make([]float64, len(upper))
	for i, v := range upper {
		lower[i] = -v
	}
	canvas.Polyline(f, dt, upper)
	canvas.Polyline(f, dt, lower)
}

// PhaseSpace renders the alive particles of c, and the separatrix of the
// first RF system, on a new w x h canvas framed like the live view.
func PhaseSpace(c *sim.Context, w, h int, separatrix bool) (*Canvas, Frame) {
	canvas := NewCanvas(w, h)
	f := frameFor(c)
	drawPhaseSpace(canvas, f, c, separatrix)
	return canvas, f
}

func (m Model) status() string {
	c := m.sim.Context()
	switch {
	case m.err != nil:
		return "FAILED: " + m.err.Error()
	case c.Remaining() == 0:
		return "DONE"
	case m.running:
		return fmt.Sprintf("RUNNING x%d", m.turnsPerTick)
	}
	return "PAUSED"
}

func (m Model) View() string {
	c := m.sim.Context()
	s := m.last
	row := func(label, value string) string {
		return labelStyle().Render(label) + valueStyle().Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle().Render(strings.ToUpper(m.name)) + "\n")
	b.WriteString(statusStyle(m.running, m.err != nil).Render(m.status()) + "\n")
	done := float64(c.Turn()) / float64(max(1, c.Ring.Turns))
	b.WriteString(ProgressBar(done, 30) + "\n\n")

	b.WriteString(row("Turn", fmt.Sprintf("%d / %d", s.Turn, c.Ring.Turns)))
	b.WriteString(row("σ dE", fmt.Sprintf("%.4g MeV", s.SigmaDE/1e6)))
	b.WriteString(row("σ dt", fmt.Sprintf("%.4g ns", s.SigmaDt*1e9)))
	b.WriteString(row("Bunch length", fmt.Sprintf("%.4g ns", s.BunchLength*1e9)))
	b.WriteString(row("Alive / lost", fmt.Sprintf("%d / %d", s.Alive, s.Lost)))
	if c.Loop != nil {
		b.WriteString(row("Δφ", fmt.Sprintf("%.4g rad", s.Dphi)))
		b.WriteString(row("Δω_RF", fmt.Sprintf("%.4g rad/s", s.DomegaRF)))
	}

	if len(m.sigmaHistory) > 1 {
		chart := asciigraph.Plot(m.sigmaHistory, asciigraph.Height(4), asciigraph.Width(34), asciigraph.Caption("σ dE [eV]"))
		b.WriteString(graphStyle().Render(chart) + "\n")
		b.WriteString(labelStyle().Render("<dt> [ns]") + Sparkline(m.offsetHistory, 30) + "\n")
	}
	if c.Slicer != nil {
		if p := c.Slicer.Profile(); len(p.Counts) > 1 {
			chart := asciigraph.Plot(p.Counts, asciigraph.Height(4), asciigraph.Width(34), asciigraph.Caption("profile"))
			b.WriteString(graphStyle().Render(chart) + "\n")
		}
	}
	if m.recording {
		b.WriteString(statusStyle(false, true).Render(fmt.Sprintf("REC %d frames", len(m.frames))) + "\n")
	}
	b.WriteString(helpStyle().Render("SP:Pause R:Reset S:Separatrix +/-:Speed\nT:Theme G:Record ?:Help Q:Quit"))

	plot := canvasStyle().Render(m.canvas.String())
	view := lipgloss.JoinHorizontal(lipgloss.Top, plot, statsStyle().Render(b.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `
  Space  pause or resume tracking
  R      rebuild the simulation at turn zero
  S      toggle the separatrix
  + / -  double or halve the turns tracked per frame
  G      start or stop recording phase_space.gif
  T      cycle colour themes
  Q      quit
`

// RunLive opens the live view full screen until the user quits.
func RunLive(name string, build Builder) error {
	m, err := NewModel(name, build)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
