package optimize

import (
	"math"

	"deqcore/internal/circuit"
)

const angleTol = 1e-9

// axis is the Pauli generator of a single-qubit rotation family.
type axis int

const (
	axisNone axis = iota
	axisZ
	axisX
	axisY
)

// rotation reports the axis and angle of a single-qubit gate, up to global
// phase. Gates outside the three rotation families return axisNone.
func rotation(op circuit.Operation) (axis, float64) {
	switch op.Kind {
	case circuit.GateZ:
		return axisZ, math.Pi
	case circuit.GateS:
		return axisZ, math.Pi / 2
	case circuit.GateSdg:
		return axisZ, -math.Pi / 2
	case circuit.GateT:
		return axisZ, math.Pi / 4
	case circuit.GateTdg:
		return axisZ, -math.Pi / 4
	case circuit.GateRZ:
		return axisZ, op.Angle()
	case circuit.GateX:
		return axisX, math.Pi
	case circuit.GateRX:
		return axisX, op.Angle()
	case circuit.GateY:
		return axisY, math.Pi
	case circuit.GateRY:
		return axisY, op.Angle()
	}
	return axisNone, 0
}

// normalizeAngle maps theta into (-pi, pi].
func normalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	} else if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}

func near(a, b float64) bool { return math.Abs(a-b) < angleTol }

// fromRotation builds the cheapest named gate for a rotation. The boolean is
// false when the rotation is the identity.
func fromRotation(ax axis, q int, theta float64) (circuit.Operation, bool) {
	theta = normalizeAngle(theta)
	if near(theta, 0) {
		return circuit.Operation{}, false
	}
	switch ax {
	case axisZ:
		switch {
		case near(theta, math.Pi):
			return circuit.Op(circuit.GateZ, q), true
		case near(theta, math.Pi/2):
			return circuit.Op(circuit.GateS, q), true
		case near(theta, -math.Pi/2):
			return circuit.Op(circuit.GateSdg, q), true
		case near(theta, math.Pi/4):
			return circuit.Op(circuit.GateT, q), true
		case near(theta, -math.Pi/4):
			return circuit.Op(circuit.GateTdg, q), true
		}
		return circuit.Op(circuit.GateRZ, q, theta), true
	case axisX:
		if near(theta, math.Pi) {
			return circuit.Op(circuit.GateX, q), true
		}
		return circuit.Op(circuit.GateRX, q, theta), true
	case axisY:
		if near(theta, math.Pi) {
			return circuit.Op(circuit.GateY, q), true
		}
		return circuit.Op(circuit.GateRY, q, theta), true
	}
	return circuit.Operation{}, false
}

// isIdentity reports gates that act as the identity up to global phase.
func isIdentity(op circuit.Operation) bool {
	if op.Kind == circuit.GateI {
		return true
	}
	return op.Kind.IsParameterized() && near(normalizeAngle(op.Angle()), 0)
}

// fuse merges two gates on the same qubit and axis. ok is false when the
// gates cannot be merged; keep is false when the product is the identity.
func fuse(a, b circuit.Operation) (merged circuit.Operation, keep, ok bool) {
	if len(a.Qubits()) != 1 || !a.SameWires(b) {
		return circuit.Operation{}, false, false
	}
	axA, thA := rotation(a)
	axB, thB := rotation(b)
	if axA == axisNone || axA != axB {
		return circuit.Operation{}, false, false
	}
	merged, keep = fromRotation(axA, a.Targets[0], thA+thB)
	return merged, keep, true
}

// cancels reports whether b undoes a.
func cancels(a, b circuit.Operation) bool {
	if a.Kind == circuit.GateSWAP && b.Kind == circuit.GateSWAP {
		return a.Touches(b.Targets[0]) && a.Touches(b.Targets[1])
	}
	inv, ok := a.Inverse()
	return ok && inv.Equal(b, angleTol)
}

// commutes reports whether a and b can be swapped without changing the
// circuit's action.
func commutes(a, b circuit.Operation) bool {
	if a.Disjoint(b) {
		return true
	}
	if a.Kind == circuit.GateMeasure || b.Kind == circuit.GateMeasure ||
		a.Kind == circuit.GateSWAP || b.Kind == circuit.GateSWAP {
		return false
	}
	switch {
	case a.Kind == circuit.GateCX && b.Kind == circuit.GateCX:
		return a.Controls[0] != b.Targets[0] && a.Targets[0] != b.Controls[0]
	case a.Kind == circuit.GateCX:
		return commutesThroughCX(b, a)
	case b.Kind == circuit.GateCX:
		return commutesThroughCX(a, b)
	}
	axA, _ := rotation(a)
	axB, _ := rotation(b)
	return axA != axisNone && axA == axB
}

// commutesThroughCX: Z rotations pass the control, X rotations pass the
// target.
func commutesThroughCX(single, cx circuit.Operation) bool {
	ax, _ := rotation(single)
	q := single.Targets[0]
	return (ax == axisZ && cx.Controls[0] == q) || (ax == axisX && cx.Targets[0] == q)
}
