package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/spring"
)

const (
	canvasWidth     = 60
	canvasHeight    = 20
	historyCapacity = 120
	trailCapacity   = 40
	targetStep      = 0.1
	kick            = 4.0
)

// FrameMsg is one display frame. Frames are only scheduled while a spring
// is moving.
type FrameMsg time.Time

func frame(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return FrameMsg(t) })
}

type point struct{ x, y int }

// Model animates a dot toward a movable target with a two-axis MultiSpring.
// Coordinates are normalised to [0, 1] on both axes.
type Model struct {
	system *spring.System
	motion *spring.MultiSpring
	cfg    *config.Config

	presets []string
	preset  int
	spring  spring.Config
	param   int

	theme  Theme
	styles Styles
	canvas *Canvas
	gauges [2]progress.Model

	trail    []point
	history  []float64
	errors   *int
	ticking  bool
	last     time.Time
	frames   int
	showHelp bool
}

var params = []string{"tension", "friction"}

func NewModel(cfg *config.Config) (Model, error) {
	sysCfg, err := cfg.SystemConfig()
	if err != nil {
		return Model{}, err
	}

	m := Model{
		cfg:     cfg,
		presets: cfg.PresetNames(),
		spring:  cfg.Spring.Spring(),
		theme:   ThemeCyberpunk,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		trail:   make([]point, 0, trailCapacity),
		history: make([]float64, 0, historyCapacity),
		errors:  new(int),
	}
	errs := m.errors
	sysCfg.OnListenerError = func(error) { *errs++ }

	m.system, err = spring.NewSystem(sysCfg)
	if err != nil {
		return Model{}, err
	}
	m.motion, err = m.system.CreateMultiSpring(2, m.spring)
	if err != nil {
		return Model{}, err
	}
	m.styles = NewStyles(m.theme)
	for i := range m.gauges {
		m.gauges[i] = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	}

	if err := m.motion.SetCurrentValue([]float64{0.1, 0.1}); err != nil {
		return Model{}, err
	}
	if err := m.motion.SetEndValue([]float64{0.5, 0.5}); err != nil {
		return Model{}, err
	}
	m.ticking = true
	return m, nil
}

func (m Model) Init() tea.Cmd {
	if m.ticking {
		return frame(m.cfg.FPS)
	}
	return nil
}

// Ticking reports whether a frame is scheduled.
func (m Model) Ticking() bool { return m.ticking }

func (m Model) Position() []float64 { return m.motion.CurrentValue() }

func (m Model) Target() []float64 { return m.motion.EndValue() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		w := msg.Width - 46
		h := msg.Height - 4
		if w > 10 && h > 5 {
			m.canvas.Resize(w, h)
		}
		return m, nil
	case FrameMsg:
		return m.step(time.Time(msg))
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "w":
		m.moveTarget(0, targetStep)
	case "down", "s":
		m.moveTarget(0, -targetStep)
	case "left", "a":
		m.moveTarget(-targetStep, 0)
	case "right", "d":
		m.moveTarget(targetStep, 0)
	case "c":
		_ = m.motion.SetEndValue([]float64{0.5, 0.5})
	case " ":
		v := m.motion.Velocity()
		_ = m.motion.SetVelocity([]float64{v[0] + kick, v[1] + kick})
	case "x":
		m.motion.Halt()
	case "p":
		m.cyclePreset()
	case "tab":
		m.param = (m.param + 1) % len(params)
	case "+", "=":
		m.adjustParam(1.1)
	case "-", "_":
		m.adjustParam(1 / 1.1)
	case "t":
		m.theme = NextTheme(m.theme.Name)
		m.styles = NewStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, m.wake()
}

// wake schedules a frame when a key disturbed a resting spring.
func (m *Model) wake() tea.Cmd {
	if m.ticking || !m.system.Active() {
		return nil
	}
	m.ticking = true
	m.last = time.Time{}
	return frame(m.cfg.FPS)
}

func (m Model) step(now time.Time) (Model, tea.Cmd) {
	if !m.ticking {
		return m, nil
	}
	dt := 0.0
	if !m.last.IsZero() {
		dt = now.Sub(m.last).Seconds()
	}
	m.last = now
	m.frames++

	active, err := m.system.Tick(dt)
	if err != nil {
		*m.errors++
	}
	m.record()
	if !active {
		m.ticking = false
		return m, nil
	}
	return m, frame(m.cfg.FPS)
}

func (m *Model) record() {
	pos, end := m.motion.CurrentValue(), m.motion.EndValue()
	dist := math.Hypot(end[0]-pos[0], end[1]-pos[1])
	m.history = append(m.history, dist)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}

	p := m.toPixel(pos[0], pos[1])
	if n := len(m.trail); n == 0 || m.trail[n-1] != p {
		m.trail = append(m.trail, p)
		if len(m.trail) > trailCapacity {
			m.trail = m.trail[1:]
		}
	}
}

func (m *Model) moveTarget(dx, dy float64) {
	end := m.motion.EndValue()
	_ = m.motion.SetEndValue([]float64{clamp01(end[0] + dx), clamp01(end[1] + dy)})
}

func (m *Model) cyclePreset() {
	if len(m.presets) == 0 {
		return
	}
	m.preset = (m.preset + 1) % len(m.presets)
	if p := m.cfg.Preset(m.presets[m.preset]); p != nil {
		m.applyConfig(p.Spring())
	}
}

func (m *Model) adjustParam(factor float64) {
	cfg := m.spring
	switch params[m.param] {
	case "tension":
		cfg.Tension *= factor
	case "friction":
		if cfg.Friction == 0 {
			cfg.Friction = 0.1
		}
		cfg.Friction *= factor
	}
	m.applyConfig(cfg)
}

func (m *Model) applyConfig(cfg spring.Config) {
	for i := 0; i < m.motion.Len(); i++ {
		if err := m.motion.Component(i).SetConfig(cfg); err != nil {
			return
		}
	}
	m.spring = cfg
}

func (m *Model) toPixel(x, y float64) point {
	w, h := m.canvas.PixelSize()
	margin := 4
	px := margin + int(clamp(x, -0.25, 1.25)*float64(w-2*margin))
	py := h - margin - int(clamp(y, -0.25, 1.25)*float64(h-2*margin))
	return point{px, py}
}

func (m *Model) draw() {
	m.canvas.Clear()
	for i := 1; i < len(m.trail); i++ {
		a, b := m.trail[i-1], m.trail[i]
		m.canvas.DrawLine(a.x, a.y, b.x, b.y)
	}
	end := m.motion.EndValue()
	t := m.toPixel(end[0], end[1])
	m.canvas.Cross(t.x, t.y, 3)
	pos := m.motion.CurrentValue()
	p := m.toPixel(pos[0], pos[1])
	m.canvas.FillSquare(p.x, p.y, 1)
}

// progressOf is how far an axis has travelled from its start toward its
// end value, clamped to [0, 1].
func progressOf(s *spring.Spring) float64 {
	travel := s.EndValue() - s.StartValue()
	if travel == 0 {
		return 1
	}
	return clamp01((s.CurrentValue() - s.StartValue()) / travel)
}

func (m Model) View() string {
	m.draw()
	canvasView := m.styles.Canvas.Render(strings.TrimSuffix(m.canvas.String(), "\n"))

	var s strings.Builder
	s.WriteString(m.styles.Header.Render("SPRING") + "\n")
	if m.motion.IsAtRest() {
		s.WriteString(m.styles.Resting.Render("● RESTING") + "\n\n")
	} else {
		s.WriteString(m.styles.Active.Render("● MOVING") + "\n\n")
	}

	name := "custom"
	if len(m.presets) > 0 {
		name = m.presets[m.preset]
	}
	s.WriteString(m.styles.Row("Preset", name))
	s.WriteString(m.styles.Row("Frames", fmt.Sprintf("%d", m.frames)))
	if *m.errors > 0 {
		s.WriteString(m.styles.Row("Errors", fmt.Sprintf("%d", *m.errors)))
	}
	pos, vel := m.motion.CurrentValue(), m.motion.Velocity()
	s.WriteString(m.styles.Row("Position", fmt.Sprintf("%.3f, %.3f", pos[0], pos[1])))
	s.WriteString(m.styles.Row("Velocity", fmt.Sprintf("%.3f, %.3f", vel[0], vel[1])))

	s.WriteString("\n")
	for i, axis := range []string{"x", "y"} {
		s.WriteString(m.styles.Label.Render(axis) + m.gauges[i].ViewAs(progressOf(m.motion.Component(i))) + "\n")
	}

	s.WriteString("\n")
	values := []float64{m.spring.Tension, m.spring.Friction}
	for i, name := range params {
		line := fmt.Sprintf("%-10s %8.2f", name, values[i])
		if i == m.param {
			s.WriteString(m.styles.Param.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + m.styles.Value.Render(line) + "\n")
		}
	}
	s.WriteString(m.styles.Row("ζ", fmt.Sprintf("%.3f", m.spring.DampingRatio())))

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("distance to target"))
		s.WriteString("\n" + chart + "\n")
	}

	s.WriteString("\n" + m.styles.Separator(30) + "\n")
	if m.showHelp {
		s.WriteString(m.styles.Help.Render("arrows/wasd: move target\nc: center  space: kick  x: halt\np: preset  tab: param  +/-: tune\nt: theme  q: quit"))
	} else {
		s.WriteString(m.styles.Help.Render("?: help  q: quit"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.styles.Panel.Render(s.String()))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }
