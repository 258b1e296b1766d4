// Package strategy picks a mitigation strategy from gate-class counts.
package strategy

import (
	"fmt"
	"strings"
)

// Tag names a mitigation strategy.
type Tag int

const (
	// Regression learns a noisy-to-ideal map from near-Clifford training
	// circuits.
	Regression Tag = iota
	// QuasiProbability samples a quasi-probability decomposition of the
	// inverse noise channel.
	QuasiProbability
	// Extrapolation fits results at amplified noise and evaluates at zero.
	Extrapolation
	// Raw reports that mitigation fell back to unmitigated execution. Select
	// never returns it.
	Raw
)

var tagNames = []string{"Regression", "QuasiProbability", "Extrapolation", "Raw"}

func (t Tag) String() string {
	if int(t) < len(tagNames) && t >= 0 {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// ParseTag resolves a strategy name case-insensitively. The short names
// "cdr", "pec" and "zne" are accepted.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regression", "cdr":
		return Regression, nil
	case "quasiprobability", "quasi_probability", "pec":
		return QuasiProbability, nil
	case "extrapolation", "zne":
		return Extrapolation, nil
	case "raw":
		return Raw, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	v, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Select applies the decision table; the first matching row wins.
//
//	clifford+nonClifford == 0 -> Extrapolation
//	nonClifford == 0          -> Regression
//	nonClifford <= 2          -> QuasiProbability
//	otherwise                 -> Extrapolation
func Select(clifford, nonClifford int) Tag {
	switch {
	case clifford+nonClifford == 0:
		return Extrapolation
	case nonClifford == 0:
		return Regression
	case nonClifford <= 2:
		return QuasiProbability
	default:
		return Extrapolation
	}
}
