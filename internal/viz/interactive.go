package viz

import (
	"fmt"
	"io"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/experiment"
	"github.com/san-kum/longsim/internal/sim"
)

var presetInfo = map[string]string{
	"lhc_acceleration":   "450 GeV ramp, single RF",
	"lhc_phase_loop":     "beam phase loop, 10k turns",
	"lhc_noise_feedback": "phase noise, bunch length fb",
	"psb_phase_loop":     "h=1, phase and radial loop",
	"psb_memory":         "resonator with 3 turn wake",
	"sps_impedance":      "200 MHz TWC, broadband",
}

const (
	stateMenu = iota
	stateSim
)

// App lets the user pick a preset and then shows it live.
type App struct {
	state, cursor int
	presets       []string
	live          Model
	err           error
}

func NewApp() App {
	return App{state: stateMenu, presets: config.ListPresets()}
}

// PresetBuilder builds the named preset with logging silenced, since log
// lines would tear the full screen view.
func PresetBuilder(cfg *config.Config) Builder {
	quiet := log.New(io.Discard, "", 0)
	return func() (*sim.Simulator, error) {
		exp, err := experiment.New(cfg, quiet)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = stateMenu
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		a.live = next.(Model)
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		a.cursor = max(0, a.cursor-1)
	case "down", "j":
		a.cursor = min(len(a.presets)-1, a.cursor+1)
	case "enter":
		name := a.presets[a.cursor]
		live, err := NewModel(name, PresetBuilder(config.GetPreset(name)))
		if err != nil {
			a.err = err
			return a, nil
		}
		a.live, a.err, a.state = live, nil, stateSim
		return a, a.live.Init()
	}
	return a, nil
}

func (a App) View() string {
	if a.state == stateSim {
		return a.live.View()
	}
	title := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	sub := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
	pick := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true)

	var b strings.Builder
	b.WriteString("\n\n    " + title.Render("LONGSIM") + "\n    " + sub.Render("longitudinal beam dynamics") + "\n    " + sub.Render(strings.Repeat("─", 26)) + "\n\n")
	for i, name := range a.presets {
		line := fmt.Sprintf("%-20s %s", name, presetInfo[name])
		if i == a.cursor {
			b.WriteString("    " + pick.Render("▸ "+line) + "\n")
		} else {
			b.WriteString("      " + sub.Render(line) + "\n")
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + sub.Render("j/k navigate  enter run  esc back  q quit") + "\n")
	return b.String()
}

func RunInteractive() error {
	_, err := tea.NewProgram(NewApp(), tea.WithAltScreen()).Run()
	return err
}
