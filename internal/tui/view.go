package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"signal-quorum/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	buyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	sellStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	holdStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

func (m *AppModel) View() string {
	if !m.ready {
		return "\n  Loading ensemble state..."
	}

	var b strings.Builder

	title := "Signal Quorum"
	if m.svc.Username != "" {
		title += " / " + m.svc.Username
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.viewSignals())
	b.WriteString("\n")
	b.WriteString(m.viewWeights())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("updated %s  |  r refresh  q quit", m.lastUpdate.Format("15:04:05"))))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m *AppModel) viewSignals() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Latest ensemble signals"))
	b.WriteString("\n")

	if len(m.signals) == 0 {
		b.WriteString(dimStyle.Render("  no signals yet"))
		b.WriteString("\n")
		return b.String()
	}

	for _, s := range m.signals {
		sig := s.signal
		fmt.Fprintf(&b, "  %-6s %s  strength %.2f  consensus %.0f%%",
			s.symbol, renderSignalType(sig.Type), sig.Strength, sig.ConsensusStrength*100)
		if sig.ConflictResolution != nil {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  [%s]", sig.ConflictResolution.Method)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *AppModel) viewWeights() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Strategy weights"))
	b.WriteString("\n")

	if len(m.weights) == 0 {
		b.WriteString(dimStyle.Render("  no strategies registered"))
		b.WriteString("\n")
		return b.String()
	}

	for _, w := range m.weights {
		fmt.Fprintf(&b, "  %-20s %s %5.1f%%\n", w.StrategyID, renderWeightBar(w.Weight), w.Weight*100)
	}
	return b.String()
}

func renderSignalType(t domain.SignalType) string {
	switch t {
	case domain.SignalBuy:
		return buyStyle.Render(string(t))
	case domain.SignalSell:
		return sellStyle.Render(string(t))
	default:
		return holdStyle.Render(string(t))
	}
}

const weightBarWidth = 20

func renderWeightBar(weight float64) string {
	filled := int(weight*weightBarWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > weightBarWidth {
		filled = weightBarWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", weightBarWidth-filled)
	return barStyle.Render(bar)
}
