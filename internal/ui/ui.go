package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/model"
)

// Model renders whatever snapshot the cache currently holds.
type Model struct {
	cache  *cache.Cache
	topic  string
	latest model.Snapshot
	width  int
}

func New(c *cache.Cache, topic string) *Model {
	return &Model{
		cache:  c,
		topic:  topic,
		latest: c.Latest(),
		width:  120,
	}
}

type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.latest = m.cache.Latest()
		return m, tickCmd()
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

// hotCelsius is where the temperature readout turns red.
const hotCelsius = 80.0

func (m *Model) View() string {
	s := m.latest
	status := "waiting for first message"
	if at, ok := m.cache.Received(); ok {
		status = fmt.Sprintf("sent %s, received %s ago",
			s.Time().Format("15:04:05"), time.Since(at).Truncate(time.Second))
	}
	header := titleStyle.Render("CPU monitor") + "  " +
		subtleStyle.Render(m.topic+" | "+status)

	temp := fmt.Sprintf("%5.1f°C", s.TemperatureC)
	if s.TemperatureC >= hotCelsius {
		temp = hotStyle.Render(temp)
	}
	gw := m.gaugeWidth()
	cpuCard := card("CPU", gaugeBar(s.CPUUsage, gw)+"  "+temp)
	memCard := card("Memory", gaugeBar(s.MemoryUsage, gw))
	diskCard := card("Disk /", gaugeBar(s.DiskUsage, gw))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, diskCard)
	if s.System != model.SystemLinux {
		return lipgloss.JoinVertical(lipgloss.Left, header, line1)
	}

	info := card("Host", fmt.Sprintf("%s  %d cores  %.0f MHz", s.System, s.CoreCount, s.FrequencyMHz))
	cores := ""
	if len(s.PerCore) > 0 {
		cores = card("Per core", renderCores(s.PerCore, clampInt(gw/2, 8, 20)))
	}
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, info, cores)
	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

// gaugeWidth fits three cards side by side; each card spends about 24
// columns on borders, padding, the percentage and the temperature.
func (m *Model) gaugeWidth() int {
	return clampInt(m.width/3-24, 10, 40)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func renderCores(cores []float64, width int) string {
	rows := make([]string, 0, len(cores))
	for i, v := range cores {
		rows = append(rows, fmt.Sprintf("%-3d %s", i, gaugeBar(v, width)))
	}
	return strings.Join(rows, "\n")
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(c *cache.Cache, topic string) error {
	prog := tea.NewProgram(New(c, topic), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
