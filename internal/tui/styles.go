package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	startedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)
)
