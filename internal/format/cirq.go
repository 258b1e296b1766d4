package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deqcore/internal/circuit"
)

var (
	cirqImportRegex     = regexp.MustCompile(`^(?:from\s+[\w.]+\s+)?import\s+[\w., ]+(?:\s+as\s+\w+)?$`)
	cirqRangeRegex      = regexp.MustCompile(`^(\w+)\s*=\s*cirq\.LineQubit\.range\(\s*(\d+)\s*\)$`)
	cirqListRegex       = regexp.MustCompile(`^(\w+)\s*=\s*\[\s*cirq\.LineQubit\(\s*(\w+)\s*\)\s+for\s+(\w+)\s+in\s+range\(\s*(\d+)\s*\)\s*\]$`)
	cirqCircuitRegex    = regexp.MustCompile(`^(\w+)\s*=\s*cirq\.Circuit\(\s*\)$`)
	cirqAppendRegex     = regexp.MustCompile(`^(\w+)\.append\((.*)\)$`)
	cirqPrintRegex      = regexp.MustCompile(`^print\(.*\)$`)
	cirqQubitRegex      = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)
	cirqGateRegex       = regexp.MustCompile(`^cirq\.(\w+)\((.*)\)(\s*\*\*\s*-1)?$`)
	cirqPowGateRegex    = regexp.MustCompile(`^\(\s*cirq\.(\w+)\s*\*\*\s*-1\s*\)\((.*)\)$`)
	cirqRotationRegex   = regexp.MustCompile(`^cirq\.(rx|ry|rz)\(\s*(?:rads\s*=\s*)?(` + circuit.ParamPattern + `)\s*\)\((.*)\)$`)
	cirqMeasureKeyRegex = regexp.MustCompile(`^key\s*=`)
)

type cirqAdapter struct{}

// NewCirqAdapter returns the adapter for operation-composition scripts:
//
//	qubits = cirq.LineQubit.range(2)
//	circuit = cirq.Circuit()
//	circuit.append(cirq.H(qubits[0]))
func NewCirqAdapter() Adapter {
	return cirqAdapter{}
}

func (cirqAdapter) Tag() Tag { return Cirq }

type cirqParser struct {
	qubitsVar  string
	circuitVar string
	numQubits  int
	ops        []circuit.Operation
}

func (cirqAdapter) Parse(src string) (*circuit.Circuit, error) {
	p := &cirqParser{}

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw, "#"))
		if line == "" || cirqImportRegex.MatchString(line) || cirqPrintRegex.MatchString(line) {
			continue
		}

		if m := cirqRangeRegex.FindStringSubmatch(line); m != nil {
			if err := p.declareQubits(lineNo, m[1], m[2]); err != nil {
				return nil, err
			}
			continue
		}
		if m := cirqListRegex.FindStringSubmatch(line); m != nil {
			if m[2] != m[3] {
				return nil, lineError(Cirq, lineNo, "unsupported qubit list %q", line)
			}
			if err := p.declareQubits(lineNo, m[1], m[4]); err != nil {
				return nil, err
			}
			continue
		}
		if m := cirqCircuitRegex.FindStringSubmatch(line); m != nil {
			p.circuitVar = m[1]
			continue
		}

		m := cirqAppendRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(Cirq, lineNo, "unrecognized statement %q", line)
		}
		if p.circuitVar == "" || m[1] != p.circuitVar {
			return nil, lineError(Cirq, lineNo, "append to unknown circuit %q", m[1])
		}
		expr := strings.TrimSpace(m[2])
		exprs := []string{expr}
		if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
			exprs = splitArgs(expr[1 : len(expr)-1])
		}
		for _, e := range exprs {
			if e == "" {
				continue
			}
			if err := p.operation(lineNo, e); err != nil {
				return nil, err
			}
		}
	}

	if p.qubitsVar == "" {
		return nil, lineError(Cirq, 1, "no LineQubit declaration found")
	}
	return circuit.New(p.numQubits, p.ops)
}

func (p *cirqParser) declareQubits(lineNo int, name, count string) error {
	if p.qubitsVar != "" {
		return lineError(Cirq, lineNo, "qubits redeclared")
	}
	n, err := registerSize(Cirq, lineNo, count)
	if err != nil {
		return err
	}
	p.qubitsVar = name
	p.numQubits = n
	return nil
}

func (p *cirqParser) qubit(lineNo int, expr string) (int, error) {
	m := cirqQubitRegex.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return 0, lineError(Cirq, lineNo, "bad qubit reference %q", expr)
	}
	if m[1] != p.qubitsVar {
		return 0, lineError(Cirq, lineNo, "unknown qubit list %q", m[1])
	}
	n, _ := strconv.Atoi(m[2])
	return n, nil
}

func (p *cirqParser) qubits(lineNo int, args []string) ([]int, error) {
	qs := make([]int, len(args))
	for i, a := range args {
		q, err := p.qubit(lineNo, a)
		if err != nil {
			return nil, err
		}
		qs[i] = q
	}
	return qs, nil
}

var cirqKinds = map[string]circuit.GateKind{
	"I":    circuit.GateI,
	"X":    circuit.GateX,
	"Y":    circuit.GateY,
	"Z":    circuit.GateZ,
	"H":    circuit.GateH,
	"S":    circuit.GateS,
	"T":    circuit.GateT,
	"CNOT": circuit.GateCX,
	"CX":   circuit.GateCX,
	"SWAP": circuit.GateSWAP,
	"rx":   circuit.GateRX,
	"ry":   circuit.GateRY,
	"rz":   circuit.GateRZ,
}

func (p *cirqParser) operation(lineNo int, expr string) error {
	if m := cirqRotationRegex.FindStringSubmatch(expr); m != nil {
		theta, ok := circuit.ParseParam(m[2])
		if !ok {
			return lineError(Cirq, lineNo, "bad parameter %q", m[2])
		}
		q, err := p.qubit(lineNo, m[3])
		if err != nil {
			return err
		}
		p.ops = append(p.ops, circuit.Op(cirqKinds[m[1]], q, theta))
		return nil
	}

	name, argList, inverted := "", "", false
	if m := cirqPowGateRegex.FindStringSubmatch(expr); m != nil {
		name, argList, inverted = m[1], m[2], true
	} else if m := cirqGateRegex.FindStringSubmatch(expr); m != nil {
		name, argList, inverted = m[1], m[2], m[3] != ""
	} else {
		return lineError(Cirq, lineNo, "unrecognized operation %q", expr)
	}
	args := splitArgs(argList)

	if name == "measure" {
		for _, a := range args {
			if cirqMeasureKeyRegex.MatchString(a) {
				continue
			}
			q, err := p.qubit(lineNo, a)
			if err != nil {
				return err
			}
			p.ops = append(p.ops, circuit.Op(circuit.GateMeasure, q))
		}
		return nil
	}

	kind, ok := cirqKinds[name]
	if !ok || kind.IsParameterized() {
		return lineError(Cirq, lineNo, "unsupported gate %q", name)
	}
	if inverted {
		inv, ok := kind.Inverse()
		if !ok {
			return lineError(Cirq, lineNo, "cannot invert %q", name)
		}
		kind = inv
	}
	if len(args) != kind.NumQubits() {
		return lineError(Cirq, lineNo, "%s expects %d qubit(s), got %d", name, kind.NumQubits(), len(args))
	}
	qs, err := p.qubits(lineNo, args)
	if err != nil {
		return err
	}

	switch kind {
	case circuit.GateCX:
		p.ops = append(p.ops, circuit.CX(qs[0], qs[1]))
	case circuit.GateSWAP:
		p.ops = append(p.ops, circuit.SWAP(qs[0], qs[1]))
	default:
		p.ops = append(p.ops, circuit.Op(kind, qs[0]))
	}
	return nil
}

func (cirqAdapter) Emit(c *circuit.Circuit) (string, error) {
	var sb strings.Builder
	sb.WriteString("import cirq\n")
	if needsNumpy(c) {
		sb.WriteString("import numpy as np\n")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "qubits = [cirq.LineQubit(i) for i in range(%d)]\n", c.NumQubits())
	sb.WriteString("circuit = cirq.Circuit()\n")

	c.Each(func(_ int, op circuit.Operation) {
		sb.WriteString("circuit.append(")
		switch op.Kind {
		case circuit.GateMeasure:
			fmt.Fprintf(&sb, "cirq.measure(qubits[%d], key='m%d')", op.Targets[0], op.Targets[0])
		case circuit.GateSdg:
			fmt.Fprintf(&sb, "cirq.S(qubits[%d])**-1", op.Targets[0])
		case circuit.GateTdg:
			fmt.Fprintf(&sb, "cirq.T(qubits[%d])**-1", op.Targets[0])
		case circuit.GateCX:
			fmt.Fprintf(&sb, "cirq.CNOT(qubits[%d], qubits[%d])", op.Controls[0], op.Targets[0])
		case circuit.GateSWAP:
			fmt.Fprintf(&sb, "cirq.SWAP(qubits[%d], qubits[%d])", op.Targets[0], op.Targets[1])
		case circuit.GateRX, circuit.GateRY, circuit.GateRZ:
			fmt.Fprintf(&sb, "cirq.%s(%s)(qubits[%d])", strings.ToLower(string(op.Kind)),
				circuit.FormatParamWith(op.Angle(), "np.pi"), op.Targets[0])
		default:
			fmt.Fprintf(&sb, "cirq.%s(qubits[%d])", op.Kind, op.Targets[0])
		}
		sb.WriteString(")\n")
	})

	sb.WriteString("print(circuit)\n")
	return sb.String(), nil
}
