package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/relgraph/pkg/config"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// RelationListModel - Interactive relation selection
// =============================================================================

// RelationListModel is the bubbletea model for interactive relation selection.
type RelationListModel struct {
	Relations []config.Info
	Cursor    int
	Selected  *config.Info
	Height    int
	Offset    int
}

// NewRelationListModel creates a new relation list model.
func NewRelationListModel(relations []config.Info) RelationListModel {
	return RelationListModel{
		Relations: relations,
		Height:    15,
	}
}

func (m RelationListModel) Init() tea.Cmd {
	return nil
}

func (m RelationListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Relations)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Relations) == 0 {
				return m, tea.Quit
			}
			info := m.Relations[m.Cursor]
			m.Selected = &info
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m RelationListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Relation"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Relations))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, relationRow(cursor, m.Relations[i]))
	}

	t := relationTable(rows).StyleFunc(func(row, col int) lipgloss.Style {
		if row == -1 {
			return styleHeader
		}
		if m.Offset+row == m.Cursor {
			return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
		}
		return lipgloss.NewStyle().Foreground(colorWhite)
	})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(m.Relations) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Relations))))
	}

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func relationTable(rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Relation", "Adapter", "Source", "Methods").
		Rows(rows...)
}

func relationRow(cursor string, info config.Info) []string {
	methods := "—"
	if len(info.Methods) > 0 {
		methods = strings.Join(info.Methods, ", ")
	}
	return []string{cursor, info.Name, info.Adapter, info.Source, methods}
}
