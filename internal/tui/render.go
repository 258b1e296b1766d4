package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"deqcore/internal/analysis"
	"deqcore/internal/circuit"
	"deqcore/internal/format"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres s within width visible columns.
func padCenter(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return string([]rune(s)[:width])
	}
	total := width - w
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}

// gateLabel returns the short name drawn inside a gate box.
func gateLabel(kind circuit.GateKind) string {
	switch kind {
	case circuit.GateMeasure:
		return "M"
	case circuit.GateSdg:
		return "S†"
	case circuit.GateTdg:
		return "T†"
	}
	return string(kind)
}

func controlSymbol(kind circuit.GateKind) string {
	if kind == circuit.GateSWAP {
		return "×"
	}
	return "●"
}

func targetSymbol(kind circuit.GateKind) string {
	if kind == circuit.GateSWAP {
		return "×"
	}
	return "⊕"
}

// ──────────────────────────── Cell rendering ────────────────────────────

// renderCell returns three lines (top, mid, bot) for one cell, each exactly
// cellW visible characters wide.
func renderCell(info cellInfo, highlight bool) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dblVertRow := strings.Repeat(" ", halfW) + cbitConnectorStyle.Render("║") + strings.Repeat(" ", cellW-halfW-1)

	style := gateStyle
	if info.nonClifford {
		style = nonCliffordStyle
	}

	if highlight {
		bdr := cursorBoxStyle
		innerW := cellW - 2
		dashL := (innerW - 1) / 2
		dashR := innerW - dashL - 1

		top = bdr.Render("╔" + strings.Repeat("═", innerW) + "╗")
		bot = bdr.Render("╚" + strings.Repeat("═", innerW) + "╝")
		side := bdr.Render("║")

		switch {
		case info.op != nil && info.isControl:
			mid = side + strings.Repeat("─", dashL) + style.Render(controlSymbol(info.op.op.Kind)) + strings.Repeat("─", dashR) + side
		case info.op != nil && info.isTarget:
			mid = side + strings.Repeat("─", dashL) + style.Render(targetSymbol(info.op.op.Kind)) + strings.Repeat("─", dashR) + side
		case info.op != nil:
			mid = side + "─┤" + style.Render(padCenter(gateLabel(info.op.op.Kind), gateNameW)) + "├─" + side
		case info.passThrough:
			mid = side + strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR) + side
		default:
			mid = side + strings.Repeat("─", innerW) + side
		}
		return
	}

	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1
	margin := (cellW - gateBoxW) / 2
	rightMargin := cellW - margin - gateBoxW

	verticals := func() {
		top, bot = emptyRow, emptyRow
		if info.vertAbove {
			top = vertRow
		}
		if info.vertBelow {
			bot = vertRow
		}
		if info.measureBelow {
			bot = dblVertRow
		}
	}

	switch {
	case info.op != nil && (info.isControl || info.isTarget):
		verticals()
		sym := targetSymbol(info.op.op.Kind)
		if info.isControl {
			sym = controlSymbol(info.op.op.Kind)
		}
		mid = strings.Repeat("─", dashL) + style.Render(sym) + strings.Repeat("─", dashR)

	case info.op != nil:
		name := padCenter(gateLabel(info.op.op.Kind), gateNameW)
		top = strings.Repeat(" ", margin) + style.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + style.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + style.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)
		if info.op.op.Kind == circuit.GateMeasure {
			bot = strings.Repeat(" ", margin) + style.Render("└──") + cbitConnectorStyle.Render("╥") + style.Render("──┘") + strings.Repeat(" ", rightMargin)
		}

	case info.passThrough:
		verticals()
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)

	case info.measureBelow:
		top = dblVertRow
		if info.vertAbove {
			top = vertRow
		}
		mid = strings.Repeat("─", dashL) + cbitConnectorStyle.Render("╫") + strings.Repeat("─", dashR)
		bot = dblVertRow

	default:
		verticals()
		mid = strings.Repeat("─", cellW)
	}
	return
}

// ──────────────────────────── Panel rendering ────────────────────────────

// renderDiagram draws the visible columns of g, starting at startCol.
func renderDiagram(g grid, startCol, maxCols, cursorCol, cursorQubit int, showCursor bool) string {
	var sb strings.Builder

	header := strings.Repeat(" ", labelVisualW)
	for col := startCol; col < startCol+maxCols; col++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", col), cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range g.numQubits {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for col := startCol; col < startCol+maxCols; col++ {
			hl := showCursor && col == cursorCol && qubit == cursorQubit
			top, mid, bot := renderCell(g.cellInfo(col, qubit), hl)
			topLine += top
			midLine += mid
			botLine += bot
		}
		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}

	if g.hasMeasure() {
		cbitLine := cbitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("c%d", g.numQubits))) + cbitWireStyle.Render("══")
		for col := startCol; col < startCol+maxCols; col++ {
			q := g.measureAt(col)
			if q < 0 {
				cbitLine += cbitWireStyle.Render(strings.Repeat("═", cellW))
				continue
			}
			bit := fmt.Sprintf("%d", q)
			dashL := (cellW - 1) / 2
			dashR := max(cellW-dashL-1-len(bit), 0)
			cbitLine += cbitWireStyle.Render(strings.Repeat("═", dashL)) +
				cbitConnectorStyle.Render("╩"+bit) +
				cbitWireStyle.Render(strings.Repeat("═", dashR))
		}
		sb.WriteString(cbitLine + "\n")
	}
	return sb.String()
}

// renderCircuitPanel renders the circuit diagram panel.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Quantum Circuit"))
	fmt.Fprintf(&sb, "  %s\n\n", dimStyle.Render(fmt.Sprintf("%s · %d qubits · %d ops", m.tag, m.circuit.NumQubits(), m.circuit.Len())))

	maxCols := max((width-labelVisualW-4)/cellW, 1)
	startCol := 0
	if m.cursorCol >= maxCols {
		startCol = m.cursorCol - maxCols + 1
	}
	if startCol > 0 {
		fmt.Fprintf(&sb, "  ◀ showing columns %d–%d\n", startCol, startCol+maxCols-1)
	}
	sb.WriteString(renderDiagram(m.grid, startCol, maxCols, m.cursorCol, m.cursorQubit, m.focus == focusCircuit))

	sb.WriteString("\n  ")
	if info := m.grid.cellInfo(m.cursorCol, m.cursorQubit); info.op != nil {
		sb.WriteString(activeStyle.Render(info.op.op.String()))
	} else {
		fmt.Fprintf(&sb, "Column %d, Qubit %d", m.cursorCol, m.cursorQubit)
	}
	if m.status != "" {
		fmt.Fprintf(&sb, "  │  %s", activeStyle.Render(m.status))
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderEditorPanel renders the QASM editor panel.
func (m Model) renderEditorPanel(width, height int) string {
	var sb strings.Builder

	title := "QASM Editor"
	if m.focus == focusEditor {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.editor.View())
	if m.parseErr != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.parseErr.Error()))
	}

	return editorStyle.Width(width).Height(height).Render(sb.String())
}

// renderResultsPanel renders counts, strategy and observables of the last
// analysis.
func (m Model) renderResultsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Mitigation"))
	fmt.Fprintf(&sb, "  %s\n\n", dimStyle.Render(fmt.Sprintf("p = %.2f", m.noise)))

	switch {
	case m.busy:
		sb.WriteString(dimStyle.Render("analyzing..."))
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.err.Error()))
	case m.report != nil:
		sb.WriteString(renderReport(m.report))
	default:
		sb.WriteString(dimStyle.Render("press ctrl+r to analyze"))
	}

	if m.optimized != nil {
		rep := m.optimized.Report
		fmt.Fprintf(&sb, "\n\n%s %s pass: gates %d → %d, depth %d → %d",
			activeStyle.Render("Optimized"), rep.Path,
			rep.OriginalGateCount, rep.OptimizedGateCount, rep.OriginalDepth, rep.OptimizedDepth)
	}

	return resultsStyle.Width(width).Height(height).Render(sb.String())
}

func renderReport(r *analysis.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Clifford %d  Non-Clifford %d  Measure %d\n",
		r.Counts.Clifford, r.Counts.NonClifford, r.Counts.Measure)
	fmt.Fprintf(&sb, "Strategy %s", activeStyle.Render(r.Strategy.Selected.String()))
	if r.Strategy.Used != r.Strategy.Selected {
		fmt.Fprintf(&sb, " → %s", errorStyle.Render(r.Strategy.Used.String()))
	}
	fmt.Fprintf(&sb, "  %s\n\n", dimStyle.Render(r.Executor))

	fmt.Fprintf(&sb, "%-10s %9s %9s\n", "", "⟨Z0⟩", "energy")
	rows := []struct {
		name string
		e, h float64
	}{
		{"ideal", r.Results.Ideal.Expectation, r.Results.Ideal.Energy},
		{"raw", r.Results.Raw.Expectation, r.Results.Raw.Energy},
		{"mitigated", r.Results.Mitigated.Expectation, r.Results.Mitigated.Energy},
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "%-10s %9.4f %9.4f\n", row.name, row.e, row.h)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderCodePanel renders the circuit in the representation picked on the
// tab strip.
func (m Model) renderCodePanel(width, height int) string {
	var sb strings.Builder

	for i, tag := range format.Tags {
		name := " " + tag.String() + " "
		if i == m.tab {
			sb.WriteString(helpSelectedStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(format.Tags)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n\n")

	code, err := m.analyzer.Registry().FromIR(m.circuit, format.Tags[m.tab])
	if err != nil {
		sb.WriteString(errorStyle.Render(err.Error()))
	} else {
		sb.WriteString(code)
	}

	return codeStyle.Width(width).Height(height).MaxHeight(height + 2).Render(sb.String())
}

// renderControlsPanel renders the bottom key help bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeStyle.Render("Navigate: "))
	sb.WriteString("↑↓/jk Qubit  hl Column  ←→ Representation  Tab Focus")
	sb.WriteString("\n")
	sb.WriteString(activeStyle.Render("Actions:  "))
	sb.WriteString("^R Analyze  o Optimize  +/- Noise  ? Help  q Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites overlay on top of bg at position (x, y).
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	ovLines := strings.Split(overlay, "\n")

	for i, ovLine := range ovLines {
		bgIdx := y + i
		if bgIdx < 0 || bgIdx >= len(bgLines) {
			continue
		}
		bgLines[bgIdx] = spliceLineAt(bgLines[bgIdx], ovLine, x)
	}
	return strings.Join(bgLines, "\n")
}

func isEscEnd(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// spliceLineAt replaces the visible columns of bgLine starting at x with
// overlay. ANSI escape sequences in bgLine are kept intact.
func spliceLineAt(bgLine, overlay string, x int) string {
	runes := []rune(bgLine)
	ovWidth := visibleLen(overlay)

	var prefix strings.Builder
	col, i := 0, 0

	for i < len(runes) && col < x {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				r := runes[i]
				prefix.WriteRune(r)
				i++
				if r != '\x1b' && r != '[' && isEscEnd(r) {
					break
				}
			}
			continue
		}
		prefix.WriteRune(runes[i])
		col++
		i++
	}
	for ; col < x; col++ {
		prefix.WriteRune(' ')
	}

	for skipped := 0; i < len(runes) && skipped < ovWidth; {
		if runes[i] == '\x1b' {
			for i < len(runes) {
				r := runes[i]
				i++
				if r != '\x1b' && r != '[' && isEscEnd(r) {
					break
				}
			}
			continue
		}
		skipped++
		i++
	}

	return prefix.String() + overlay + string(runes[i:])
}

// visibleLen returns the number of non-escape runes in s.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if isEscEnd(r) {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
