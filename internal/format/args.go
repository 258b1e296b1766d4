package format

import (
	"strconv"
	"strings"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
)

// registerSize parses a declared register size.
func registerSize(tag Tag, lineNo int, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, lineError(tag, lineNo, "bad register size %q", s)
	}
	if n > circuit.MaxRegister {
		return 0, qerr.Invalid(qerr.StageIngest, "%s line %d: register of %d qubits exceeds %d",
			tag, lineNo, n, circuit.MaxRegister)
	}
	return n, nil
}

// splitArgs splits a call's argument list on top-level commas, leaving
// commas nested inside brackets or parentheses alone.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		args  []string
		depth int
		start int
		quote rune
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}

// intList parses "3" or "[0, 1, 2]" into qubit indices.
func intList(s string) ([]int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var out []int
		for _, part := range splitArgs(s[1 : len(s)-1]) {
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return []int{n}, true
}

// stripComment drops a trailing comment introduced by marker, ignoring
// markers inside quotes.
func stripComment(line, marker string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case strings.HasPrefix(line[i:], marker):
			return line[:i]
		}
	}
	return line
}

// needsNumpy reports whether any angle in c renders symbolically.
func needsNumpy(c *circuit.Circuit) bool {
	found := false
	c.Each(func(_ int, op circuit.Operation) {
		for _, p := range op.Params {
			if circuit.UsesPi(p) {
				found = true
			}
		}
	})
	return found
}
