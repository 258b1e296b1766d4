package tui

import (
	"fmt"
	"strings"
)

// binding is one key shown in the help overlay.
type binding struct {
	keys string
	desc string
}

// helpCategory groups related bindings under a tab.
type helpCategory struct {
	name  string
	items []binding
}

var helpMenu = []helpCategory{
	{
		name: "Circuit",
		items: []binding{
			{keys: "↑↓ / jk", desc: "Move between qubits"},
			{keys: "h l", desc: "Move between columns"},
			{keys: "tab", desc: "Focus the QASM editor"},
			{keys: "q / ctrl+c", desc: "Quit"},
		},
	},
	{
		name: "Analysis",
		items: []binding{
			{keys: "ctrl+r", desc: "Analyze the current circuit"},
			{keys: "+ / -", desc: "Raise or lower noise by 0.01"},
			{keys: "o", desc: "Optimize and replace the circuit"},
		},
	},
	{
		name: "Code",
		items: []binding{
			{keys: "← →", desc: "Switch qiskit / cirq / qasm"},
			{keys: "tab", desc: "Leave the editor"},
			{keys: "ctrl+r", desc: "Analyze while editing"},
		},
	},
}

// renderHelp renders the floating key-binding popup.
func (m Model) renderHelp() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Keys"))
	sb.WriteString("\n")

	for i, cat := range helpMenu {
		name := " " + cat.name + " "
		if i == m.helpCat {
			sb.WriteString(activeStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(helpMenu)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 42)))
	sb.WriteString("\n")

	for _, item := range helpMenu[m.helpCat].items {
		sb.WriteString(helpSelectedStyle.Render(fmt.Sprintf(" %-12s", item.keys)))
		sb.WriteString(helpNormalStyle.Render(item.desc))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ←→ Category  Esc ✕"))

	return helpBorderStyle.Render(sb.String())
}
