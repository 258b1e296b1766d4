package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deqcore/internal/circuit"
)

var (
	qiskitImportRegex  = regexp.MustCompile(`^(?:from\s+[\w.]+\s+)?import\s+[\w., ]+(?:\s+as\s+\w+)?$`)
	qiskitCircuitRegex = regexp.MustCompile(`^(\w+)\s*=\s*QuantumCircuit\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)
	qiskitCallRegex    = regexp.MustCompile(`^(\w+)\.(\w+)\((.*)\)$`)
	qiskitPrintRegex   = regexp.MustCompile(`^print\(.*\)$`)
)

type qiskitAdapter struct{}

// NewQiskitAdapter returns the adapter for imperative builder scripts:
//
//	qc = QuantumCircuit(2)
//	qc.h(0)
//	qc.cx(0, 1)
func NewQiskitAdapter() Adapter {
	return qiskitAdapter{}
}

func (qiskitAdapter) Tag() Tag { return Qiskit }

func (qiskitAdapter) Parse(src string) (*circuit.Circuit, error) {
	var (
		name      string
		numQubits int
		ops       []circuit.Operation
	)

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw, "#"))
		if line == "" || qiskitImportRegex.MatchString(line) || qiskitPrintRegex.MatchString(line) {
			continue
		}

		if m := qiskitCircuitRegex.FindStringSubmatch(line); m != nil {
			if name != "" {
				return nil, lineError(Qiskit, lineNo, "circuit %q redeclared", m[1])
			}
			name = m[1]
			n, err := registerSize(Qiskit, lineNo, m[2])
			if err != nil {
				return nil, err
			}
			numQubits = n
			continue
		}

		m := qiskitCallRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, lineError(Qiskit, lineNo, "unrecognized statement %q", line)
		}
		if name == "" {
			return nil, lineError(Qiskit, lineNo, "call before QuantumCircuit construction")
		}
		if m[1] != name {
			return nil, lineError(Qiskit, lineNo, "unknown circuit %q", m[1])
		}
		parsed, err := qiskitCall(lineNo, strings.ToLower(m[2]), splitArgs(m[3]), numQubits)
		if err != nil {
			return nil, err
		}
		ops = append(ops, parsed...)
	}

	if name == "" {
		return nil, lineError(Qiskit, 1, "no QuantumCircuit construction found")
	}
	return circuit.New(numQubits, ops)
}

func qiskitCall(lineNo int, method string, args []string, numQubits int) ([]circuit.Operation, error) {
	switch method {
	case "barrier":
		return nil, nil
	case "measure_all":
		ops := make([]circuit.Operation, numQubits)
		for q := range numQubits {
			ops[q] = circuit.Op(circuit.GateMeasure, q)
		}
		return ops, nil
	case "measure":
		if len(args) != 2 {
			return nil, lineError(Qiskit, lineNo, "measure expects qubit and clbit arguments")
		}
		qs, ok := intList(args[0])
		if !ok {
			return nil, lineError(Qiskit, lineNo, "bad qubit argument %q", args[0])
		}
		ops := make([]circuit.Operation, len(qs))
		for i, q := range qs {
			ops[i] = circuit.Op(circuit.GateMeasure, q)
		}
		return ops, nil
	}

	kind, ok := circuit.ParseKind(method)
	if !ok || kind == circuit.GateMeasure {
		return nil, lineError(Qiskit, lineNo, "unsupported gate %q", method)
	}

	var theta float64
	if kind.IsParameterized() {
		if len(args) != 2 {
			return nil, lineError(Qiskit, lineNo, "%s expects an angle and a qubit", method)
		}
		theta, ok = circuit.ParseParam(args[0])
		if !ok {
			return nil, lineError(Qiskit, lineNo, "bad parameter %q", args[0])
		}
		args = args[1:]
	}

	if len(args) != kind.NumQubits() {
		return nil, lineError(Qiskit, lineNo, "%s expects %d qubit argument(s), got %d", method, kind.NumQubits(), len(args))
	}
	qs := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, lineError(Qiskit, lineNo, "bad qubit argument %q", a)
		}
		qs[i] = n
	}

	switch {
	case kind == circuit.GateCX:
		return []circuit.Operation{circuit.CX(qs[0], qs[1])}, nil
	case kind == circuit.GateSWAP:
		return []circuit.Operation{circuit.SWAP(qs[0], qs[1])}, nil
	case kind.IsParameterized():
		return []circuit.Operation{circuit.Op(kind, qs[0], theta)}, nil
	}
	return []circuit.Operation{circuit.Op(kind, qs[0])}, nil
}

var qiskitNames = map[circuit.GateKind]string{
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

func (qiskitAdapter) Emit(c *circuit.Circuit) (string, error) {
	var sb strings.Builder
	sb.WriteString("from qiskit import QuantumCircuit\n")
	if needsNumpy(c) {
		sb.WriteString("import numpy as np\n")
	}
	sb.WriteString("\n")
	if c.HasMeasure() {
		fmt.Fprintf(&sb, "qc = QuantumCircuit(%d, %d)\n", c.NumQubits(), c.NumQubits())
	} else {
		fmt.Fprintf(&sb, "qc = QuantumCircuit(%d)\n", c.NumQubits())
	}

	c.Each(func(_ int, op circuit.Operation) {
		switch {
		case op.Kind == circuit.GateMeasure:
			fmt.Fprintf(&sb, "qc.measure(%d, %d)\n", op.Targets[0], op.Targets[0])
		case op.Kind.IsParameterized():
			fmt.Fprintf(&sb, "qc.%s(%s, %d)\n", qiskitNames[op.Kind], circuit.FormatParamWith(op.Angle(), "np.pi"), op.Targets[0])
		case op.Kind.NumQubits() == 2:
			qs := op.Qubits()
			fmt.Fprintf(&sb, "qc.%s(%d, %d)\n", qiskitNames[op.Kind], qs[0], qs[1])
		default:
			fmt.Fprintf(&sb, "qc.%s(%d)\n", qiskitNames[op.Kind], op.Targets[0])
		}
	})

	sb.WriteString("print(qc)\n")
	return sb.String(), nil
}
