package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"nerdmem/internal/validate"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	footStyle  = lipgloss.NewStyle().Faint(true)
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Render the L1-L10 + parity health report as an interactive panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := boot()
		if err != nil {
			return err
		}
		defer d.close()

		report := d.validator.Run()
		p := tea.NewProgram(newDiagnoseModel(report))
		if _, err := p.Run(); err != nil {
			return err
		}
		if !report.OK() {
			os.Exit(report.ExitCode())
		}
		return nil
	},
}

// diagnoseModel is a minimal bubbletea program: one scrollable list of
// checks, colored by status, quit on q/ctrl+c/esc.
type diagnoseModel struct {
	report validate.Report
	cursor int
}

func newDiagnoseModel(report validate.Report) diagnoseModel {
	return diagnoseModel{report: report}
}

func (m diagnoseModel) Init() tea.Cmd { return nil }

func (m diagnoseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "down", "j":
			if m.cursor < len(m.report.Checks)-1 {
				m.cursor++
			}
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		}
	}
	return m, nil
}

func (m diagnoseModel) View() string {
	out := titleStyle.Render("nerdmem diagnose") + "\n\n"
	for i, c := range m.report.Checks {
		glyph := statusStyle(c.Status).Render(string(c.Status))
		line := fmt.Sprintf("[%s] %-5s %-28s %s", glyph, c.Level, c.ID, c.Detail)
		if i == m.cursor {
			line = lipgloss.NewStyle().Reverse(true).Render(line)
		}
		out += line + "\n"
	}
	out += "\n" + footStyle.Render(fmt.Sprintf("%d checks, %d failing - q to quit", len(m.report.Checks), len(m.report.Failures())))
	return out
}

func statusStyle(s validate.Status) lipgloss.Style {
	switch s {
	case validate.StatusPass:
		return passStyle
	case validate.StatusWarn:
		return warnStyle
	default:
		return failStyle
	}
}
