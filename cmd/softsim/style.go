package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func printField(label string, value any) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value)))
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printField("  "+name, fmt.Sprintf("%.6g", m[name]))
	}
}
