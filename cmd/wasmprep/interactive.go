package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// headerHeight is the title line plus the blank line under it, and footerHeight the help line plus the one above.
const headerHeight, footerHeight = 2, 2

// browserModel pages through the listings of a compiled module, one function at a time.
type browserModel struct {
	filename string
	listings []*listing
	selected int
	viewport viewport.Model
	ready    bool
}

func newBrowserModel(filename string, listings []*listing) *browserModel {
	return &browserModel{filename: filename, listings: listings}
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "right", "l", "tab", "n":
			m.selectFunction(m.selected + 1)
			return m, nil
		case "left", "h", "shift+tab", "p":
			m.selectFunction(m.selected - 1)
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - headerHeight - footerHeight
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
			m.selectFunction(m.selected)
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// selectFunction shows the listing at index i, wrapping around both ends.
func (m *browserModel) selectFunction(i int) {
	if len(m.listings) == 0 {
		return
	}
	m.selected = (i + len(m.listings)) % len(m.listings)
	if m.ready {
		m.viewport.SetContent(m.listings[m.selected].body)
		m.viewport.GotoTop()
	}
}

func (m *browserModel) View() string {
	if len(m.listings) == 0 {
		return fmt.Sprintf("%s defines no functions.\n\n%s", m.filename, helpStyle.Render("q quit"))
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.listings[m.selected].title()))
	b.WriteString(fmt.Sprintf(" %d/%d %s\n\n", m.selected+1, len(m.listings), m.filename))
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("←/→ function • ↑/↓ scroll • %3.f%% • q quit", m.viewport.ScrollPercent()*100)))
	return b.String()
}

func runInteractive(filename string, listings []*listing) error {
	p := tea.NewProgram(newBrowserModel(filename, listings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
