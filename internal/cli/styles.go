package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"walletsync/internal/core"
)

var (
	IncomeColor  = lipgloss.Color("#2E7D32")
	ExpenseColor = lipgloss.Color("#E53935")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(IncomeColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ExpenseColor)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB300"))
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
)

// FormatAmount renders a signed amount, green when positive.
func FormatAmount(m core.Money) string {
	if m.Cents < 0 {
		return ErrorStyle.Render(m.String())
	}
	return SuccessStyle.Render(m.String())
}

// FormatFlow renders a transaction amount with its direction.
func FormatFlow(amount core.Money, isIncome bool) string {
	if isIncome {
		return SuccessStyle.Render("+" + amount.String())
	}
	return ErrorStyle.Render("-" + amount.String())
}

// FormatPercent renders a share with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%5.1f%%", p)
}
