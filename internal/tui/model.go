// Package tui is an interactive terminal viewer for a single circuit: a
// diagram drawn from the IR, a QASM editor that re-parses on every edit, the
// last analysis and the circuit in each supported representation.
package tui

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"deqcore/internal/analysis"
	"deqcore/internal/circuit"
	"deqcore/internal/format"
)

// noiseStep is the change applied by + and -.
const noiseStep = 0.01

// focus represents which panel has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusEditor
	focusHelp
)

type analysisMsg struct {
	seq    int
	report *analysis.Report
	err    error
}

type optimizeMsg struct {
	report *analysis.OptimizeReport
	err    error
}

// Model represents the viewer state.
type Model struct {
	analyzer  *analysis.Analyzer
	circuit   *circuit.Circuit
	grid      grid
	tag       format.Tag
	noise     float64
	threshold int

	editor   textarea.Model
	lastQASM string
	parseErr error

	focus       focus
	cursorQubit int
	cursorCol   int
	tab         int
	helpCat     int
	width       int
	height      int
	status      string

	seq       int
	busy      bool
	report    *analysis.Report
	optimized *analysis.OptimizeReport
	err       error
}

// New returns a viewer for c, which was read in format tag.
func New(a *analysis.Analyzer, c *circuit.Circuit, tag format.Tag, noise float64, threshold int) Model {
	ta := textarea.New()
	ta.Placeholder = "Edit QASM here..."
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.KeyMap.InsertNewline.SetEnabled(true)

	m := Model{
		analyzer:  a,
		tag:       tag,
		noise:     noise,
		threshold: threshold,
		editor:    ta,
		focus:     focusCircuit,
		seq:       1,
		busy:      true,
	}
	for i, t := range format.Tags {
		if t == tag {
			m.tab = i
		}
	}
	m.setCircuit(c)
	return m
}

// Run starts the viewer in the alternate screen and blocks until it quits.
func Run(a *analysis.Analyzer, c *circuit.Circuit, tag format.Tag, noise float64, threshold int) error {
	_, err := tea.NewProgram(New(a, c, tag, noise, threshold), tea.WithAltScreen()).Run()
	return err
}

func (m *Model) setCircuit(c *circuit.Circuit) {
	m.circuit = c
	m.grid = layout(c)
	m.cursorQubit = min(m.cursorQubit, max(c.NumQubits()-1, 0))
	m.cursorCol = min(m.cursorCol, max(m.grid.numCols()-1, 0))

	qasm, err := m.analyzer.Registry().FromIR(c, format.QASM)
	if err != nil {
		m.parseErr = err
		return
	}
	m.editor.SetValue(qasm)
	m.lastQASM = qasm
	m.parseErr = nil
}

// parseEditor re-reads the editor text. A parse failure keeps the last good
// circuit and shows the error under the editor.
func (m *Model) parseEditor() {
	src := m.editor.Value()
	if src == m.lastQASM {
		return
	}
	m.lastQASM = src
	c, err := m.analyzer.Registry().ToIR(src, format.QASM)
	if err != nil {
		m.parseErr = err
		return
	}
	m.parseErr = nil
	m.circuit = c
	m.grid = layout(c)
	m.cursorQubit = min(m.cursorQubit, max(c.NumQubits()-1, 0))
	m.optimized = nil
	m.status = "edited, ctrl+r to analyze"
}

func (m *Model) analyze() tea.Cmd {
	m.seq++
	m.busy = true
	m.err = nil
	return m.analyzeCmd()
}

func (m Model) analyzeCmd() tea.Cmd {
	seq, a, c, tag, p := m.seq, m.analyzer, m.circuit, m.tag, m.noise
	return func() tea.Msg {
		report, err := a.AnalyzeCircuit(c, tag, p, nil)
		return analysisMsg{seq: seq, report: report, err: err}
	}
}

func (m *Model) optimize() tea.Cmd {
	a, c, tag, threshold := m.analyzer, m.circuit, m.tag, m.threshold
	return func() tea.Msg {
		report, err := a.OptimizeCircuit(c, tag, threshold)
		return optimizeMsg{report: report, err: err}
	}
}

func (m *Model) setNoise(p float64) tea.Cmd {
	p = math.Round(min(max(p, 0), 1)*100) / 100
	if p == m.noise {
		return nil
	}
	m.noise = p
	return m.analyze()
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return m.analyzeCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(max(msg.Width/3-6, 20))
		m.editor.SetHeight(max(msg.Height/2-8, 4))

	case analysisMsg:
		if msg.seq != m.seq {
			break
		}
		m.busy = false
		m.report, m.err = msg.report, msg.err

	case optimizeMsg:
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.optimized = msg.report
		m.setCircuit(msg.report.Circuit)
		m.status = fmt.Sprintf("optimized with %s pass", msg.report.Report.Path)
		cmds = append(cmds, m.analyze())

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if key == "ctrl+r" && m.focus != focusHelp {
			m.status = ""
			cmds = append(cmds, m.analyze())
			break
		}

		switch m.focus {
		case focusCircuit:
			m.status = ""
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.focus = focusEditor
				cmds = append(cmds, m.editor.Focus())
			case "?":
				m.focus = focusHelp
				m.helpCat = 0
			case "up", "k":
				if m.cursorQubit > 0 {
					m.cursorQubit--
				}
			case "down", "j":
				if m.cursorQubit < m.circuit.NumQubits()-1 {
					m.cursorQubit++
				}
			case "h":
				if m.cursorCol > 0 {
					m.cursorCol--
				}
			case "l":
				if m.cursorCol < m.grid.numCols()-1 {
					m.cursorCol++
				}
			case "left":
				m.tab = (m.tab + len(format.Tags) - 1) % len(format.Tags)
			case "right":
				m.tab = (m.tab + 1) % len(format.Tags)
			case "+", "=":
				cmds = append(cmds, m.setNoise(m.noise+noiseStep))
			case "-":
				cmds = append(cmds, m.setNoise(m.noise-noiseStep))
			case "o":
				cmds = append(cmds, m.optimize())
			}

		case focusEditor:
			if key == "tab" || key == "esc" {
				m.focus = focusCircuit
				m.editor.Blur()
				break
			}
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			cmds = append(cmds, cmd)
			m.parseEditor()

		case focusHelp:
			switch key {
			case "esc", "?", "q":
				m.focus = focusCircuit
			case "left", "h":
				if m.helpCat > 0 {
					m.helpCat--
				}
			case "right", "l":
				if m.helpCat < len(helpMenu)-1 {
					m.helpCat++
				}
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	editorW := m.width / 3
	circuitW := m.width - editorW - 4
	controlsH := 2
	topH := max(m.height/2-2, 8)
	bottomH := max(m.height-topH-controlsH-8, 6)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCircuitPanel(circuitW, topH),
		m.renderEditorPanel(editorW, topH))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderResultsPanel(circuitW, bottomH),
		m.renderCodePanel(editorW, bottomH))
	frame := lipgloss.JoinVertical(lipgloss.Left, top, bottom, m.renderControlsPanel(m.width-4, controlsH))

	if m.focus == focusHelp {
		frame = overlayAt(frame, m.renderHelp(), 2, 2)
	}
	return frame
}
