package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ltiresp/internal/engine"
	"github.com/san-kum/ltiresp/internal/sim"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	statsWidth    = 40
	poleMapWidth  = 30
	poleMapHeight = 8
)

// Model pages through the responses of one analysis.
type Model struct {
	analysis      *engine.Analysis
	poles         []complex128
	class         int
	theme         int
	showPoles     bool
	width, height int
}

func NewModel(a *engine.Analysis, poles []complex128, theme string) Model {
	return Model{
		analysis:  a,
		poles:     poles,
		theme:     themeIndex(theme),
		showPoles: len(poles) > 0,
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// Class returns the response currently shown.
func (m Model) Class() sim.InputClass { return sim.Classes[m.class] }

// Theme returns the active theme.
func (m Model) Theme() Theme { return Themes[m.theme] }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.class = (m.class + 1) % len(sim.Classes)
		case "shift+tab", "left", "h":
			m.class = (m.class + len(sim.Classes) - 1) % len(sim.Classes)
		case "1", "2", "3":
			m.class = int(msg.String()[0] - '1')
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "p":
			m.showPoles = !m.showPoles && len(m.poles) > 0
		}
	}
	return m, nil
}

func (m Model) View() string {
	theme := m.Theme()
	class := m.Class()
	rd := m.analysis.Response(class)

	var tabs []string
	for i, c := range sim.Classes {
		label := fmt.Sprintf(" %d %s ", i+1, c)
		if i == m.class {
			tabs = append(tabs, lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Render("["+label+"]"))
		} else {
			tabs = append(tabs, lipgloss.NewStyle().Foreground(theme.Muted).Render(" "+label+" "))
		}
	}

	plotWidth := max(m.width-statsWidth-16, 20)
	plotHeight := max(m.height-12, 5)
	plot := PlotResponse(rd, plotWidth, plotHeight, theme.Series(class))

	var stats strings.Builder
	stats.WriteString(Title("STEP METRICS", theme) + "\n")
	stats.WriteString(RenderStepInfo(m.analysis.StepInfo) + "\n\n")
	stats.WriteString(MetricLabel.Render("DC gain") + MetricValue.Render(DCGain(m.analysis)) + "\n")
	stats.WriteString(MetricLabel.Render("Final value") + MetricValue.Render(fmt.Sprintf("%.4g", rd.Metadata.FinalValue)) + "\n")
	if method, ok := m.analysis.Methods[class.String()]; ok {
		stats.WriteString(MetricLabel.Render("Method") + MetricValue.Render(method) + "\n")
	}
	if m.showPoles {
		stats.WriteString("\n" + Title("POLES", theme) + "\n")
		stats.WriteString(PoleMap(m.poles, poleMapWidth, poleMapHeight))
	}

	header := Title(m.analysis.TransferFunction, theme) + "  " + StabilityBadge(m.analysis.Stable, theme)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Padding(1, 2).Render(plot),
		Panel.Width(statsWidth).Render(stats.String()),
	)
	help := KeyHint.Render("tab/←→: response  1-3: select  p: poles  t: theme (" + theme.Name + ")  q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(tabs, ""), body, help)
}

// Run starts the viewer in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
