package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deqcore/internal/circuit"
)

// Pre-compiled regexps for QASM parsing.
var (
	qasmHeaderRegex      = regexp.MustCompile(`^OPENQASM\s+2(?:\.0)?\s*;?$`)
	qasmIncludeRegex     = regexp.MustCompile(`^include\s+"[^"]+"\s*;?$`)
	qregRegex            = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\]\s*;?$`)
	cregRegex            = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\]\s*;?$`)
	barrierRegex         = regexp.MustCompile(`^barrier\b`)
	measureRegex         = regexp.MustCompile(`^measure\s+(\w+)\[(\d+)\]\s*->\s*(\w+)\[(\d+)\]\s*;?$`)
	singleGateRegex      = regexp.MustCompile(`^(\w+)\s+(\w+)\[(\d+)\]\s*;?$`)
	singleGateParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + circuit.ParamPattern + `)\s*\)\s*(\w+)\[(\d+)\]\s*;?$`)
	twoQubitRegex        = regexp.MustCompile(`^(\w+)\s+(\w+)\[(\d+)\]\s*,\s*(\w+)\[(\d+)\]\s*;?$`)
)

type qasmAdapter struct{}

// NewQASMAdapter returns the OpenQASM 2.0 adapter.
func NewQASMAdapter() Adapter {
	return qasmAdapter{}
}

func (qasmAdapter) Tag() Tag { return QASM }

// Parse reads OpenQASM 2.0 restricted to a single quantum register and the
// supported gate vocabulary. Classical registers and barriers are accepted
// and dropped.
func (qasmAdapter) Parse(src string) (*circuit.Circuit, error) {
	var (
		reg       string
		numQubits int
		ops       []circuit.Operation
	)

	qubit := func(lineNo int, name, idx string) (int, error) {
		if reg == "" {
			return 0, lineError(QASM, lineNo, "gate before qreg declaration")
		}
		if name != reg {
			return 0, lineError(QASM, lineNo, "unknown register %q", name)
		}
		n, _ := strconv.Atoi(idx)
		return n, nil
	}

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw, "//"))
		if line == "" {
			continue
		}
		if qasmHeaderRegex.MatchString(line) || qasmIncludeRegex.MatchString(line) {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") {
			return nil, lineError(QASM, lineNo, "unsupported version %q", line)
		}

		if m := qregRegex.FindStringSubmatch(line); m != nil {
			if reg != "" {
				return nil, lineError(QASM, lineNo, "only one quantum register is supported")
			}
			reg = m[1]
			n, err := registerSize(QASM, lineNo, m[2])
			if err != nil {
				return nil, err
			}
			numQubits = n
			continue
		}
		if cregRegex.MatchString(line) || barrierRegex.MatchString(line) {
			continue
		}

		// Measurement: "measure q[0] -> c[0];"
		if m := measureRegex.FindStringSubmatch(line); m != nil {
			q, err := qubit(lineNo, m[1], m[2])
			if err != nil {
				return nil, err
			}
			ops = append(ops, circuit.Op(circuit.GateMeasure, q))
			continue
		}

		// Single-qubit parameterized gates: rx, ry, rz
		if m := singleGateParamRegex.FindStringSubmatch(line); m != nil {
			kind, ok := circuit.ParseKind(m[1])
			if !ok || !kind.IsParameterized() {
				return nil, lineError(QASM, lineNo, "unsupported gate %q", m[1])
			}
			theta, ok := circuit.ParseParam(m[2])
			if !ok {
				return nil, lineError(QASM, lineNo, "bad parameter %q", m[2])
			}
			q, err := qubit(lineNo, m[3], m[4])
			if err != nil {
				return nil, err
			}
			ops = append(ops, circuit.Op(kind, q, theta))
			continue
		}

		// Two-qubit gates: cx, swap
		if m := twoQubitRegex.FindStringSubmatch(line); m != nil {
			kind, ok := circuit.ParseKind(m[1])
			if !ok || kind.NumQubits() != 2 {
				return nil, lineError(QASM, lineNo, "unsupported gate %q", m[1])
			}
			a, err := qubit(lineNo, m[2], m[3])
			if err != nil {
				return nil, err
			}
			b, err := qubit(lineNo, m[4], m[5])
			if err != nil {
				return nil, err
			}
			if kind == circuit.GateCX {
				ops = append(ops, circuit.CX(a, b))
			} else {
				ops = append(ops, circuit.SWAP(a, b))
			}
			continue
		}

		// Single-qubit gates, including sdg and tdg
		if m := singleGateRegex.FindStringSubmatch(line); m != nil {
			kind, ok := circuit.ParseKind(m[1])
			if !ok || kind.NumQubits() != 1 || kind.IsParameterized() || kind == circuit.GateMeasure {
				return nil, lineError(QASM, lineNo, "unsupported gate %q", m[1])
			}
			q, err := qubit(lineNo, m[2], m[3])
			if err != nil {
				return nil, err
			}
			ops = append(ops, circuit.Op(kind, q))
			continue
		}

		return nil, lineError(QASM, lineNo, "unrecognized statement %q", line)
	}

	return circuit.New(numQubits, ops)
}

var qasmNames = map[circuit.GateKind]string{
	circuit.GateI:    "id",
	circuit.GateX:    "x",
	circuit.GateY:    "y",
	circuit.GateZ:    "z",
	circuit.GateH:    "h",
	circuit.GateS:    "s",
	circuit.GateSdg:  "sdg",
	circuit.GateT:    "t",
	circuit.GateTdg:  "tdg",
	circuit.GateCX:   "cx",
	circuit.GateSWAP: "swap",
	circuit.GateRX:   "rx",
	circuit.GateRY:   "ry",
	circuit.GateRZ:   "rz",
}

// Emit generates QASM 2.0 output. A classical register sized to the quantum
// register is declared only when the circuit measures.
func (qasmAdapter) Emit(c *circuit.Circuit) (string, error) {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.NumQubits())
	if c.HasMeasure() {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.NumQubits())
	}
	sb.WriteString("\n")

	c.Each(func(_ int, op circuit.Operation) {
		switch {
		case op.Kind == circuit.GateMeasure:
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", op.Targets[0], op.Targets[0])
		case op.Kind.IsParameterized():
			fmt.Fprintf(&sb, "%s(%s) q[%d];\n", qasmNames[op.Kind], circuit.FormatParam(op.Angle()), op.Targets[0])
		case op.Kind.NumQubits() == 2:
			qs := op.Qubits()
			fmt.Fprintf(&sb, "%s q[%d], q[%d];\n", qasmNames[op.Kind], qs[0], qs[1])
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", qasmNames[op.Kind], op.Targets[0])
		}
	})

	return sb.String(), nil
}
