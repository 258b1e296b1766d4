package circuit

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParamPattern matches a single parameter value inside a gate call: plain
// numbers or pi expressions such as "pi/2", "3*pi/4", "-np.pi", "2.5e-3".
const ParamPattern = `-?\s*(?:\d*\.?\d*\s*\*?\s*(?:np\.|numpy\.|math\.)?pi(?:\s*/\s*\d+\.?\d*)?|\d*\.?\d+(?:[eE][+\-]?\d+)?)`

var numberRegex = regexp.MustCompile(`^[+\-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+\-]?\d+)?$`)

var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

var piQualifiers = strings.NewReplacer("numpy.pi", "pi", "np.pi", "pi", "math.pi", "pi")

// ParseParam parses a rotation angle.
//
// Supported formats:
//   - Plain numbers: "1.5707", "-0.5", "3.14e-2"
//   - Pi constant: "pi", "np.pi", "math.pi"
//   - Fractions: "pi/2", "np.pi/4"
//   - Coefficients: "2pi", "2*pi", "3*pi/4", "-3*np.pi/4"
//
// Non-finite values and hex floats are rejected.
func ParseParam(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if numberRegex.MatchString(s) {
		val, err := strconv.ParseFloat(s, 64)
		return val, err == nil && finite(val)
	}

	s = piQualifiers.Replace(strings.ToLower(s))
	s = strings.Replace(s, "- ", "-", 1)
	matches := piExprRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, false
	}

	coeff := 1.0
	if matches[2] != "" {
		var err error
		coeff, err = strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, false
		}
	}
	result := coeff * math.Pi
	if matches[3] != "" {
		denom, err := strconv.ParseFloat(matches[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		result /= denom
	}
	if matches[1] == "-" {
		result = -result
	}
	return result, finite(result)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

type piForm struct {
	coeff float64
	denom float64
	num   string
	frac  string
}

// piForms are the fractions rendered symbolically.
var piForms = []piForm{
	{2, 1, "2*", ""},
	{1, 1, "", ""},
	{1, 2, "", "/2"},
	{1, 3, "", "/3"},
	{1, 4, "", "/4"},
	{1, 6, "", "/6"},
	{1, 8, "", "/8"},
	{3, 4, "3*", "/4"},
	{3, 2, "3*", "/2"},
	{2, 3, "2*", "/3"},
}

// value computes the fraction in the same order ParseParam does, so symbolic
// output parses back to the identical float.
func (pf piForm) value() float64 {
	pi := math.Pi
	v := pf.coeff * pi
	if pf.denom != 1 {
		v /= pf.denom
	}
	return v
}

// FormatParam renders an angle, using "pi" for exact known fractions.
func FormatParam(val float64) string {
	return FormatParamWith(val, "pi")
}

// FormatParamWith renders an angle using piSym as the name of pi. Values
// that are not an exact known fraction use the shortest decimal that parses
// back to the same float.
func FormatParamWith(val float64, piSym string) string {
	s, _ := formatParam(val, piSym)
	return s
}

// UsesPi reports whether FormatParam renders val symbolically.
func UsesPi(val float64) bool {
	_, sym := formatParam(val, "pi")
	return sym
}

func formatParam(val float64, piSym string) (string, bool) {
	for _, pf := range piForms {
		v := pf.value()
		if val == v {
			return pf.num + piSym + pf.frac, true
		}
		if val == -v {
			return "-" + pf.num + piSym + pf.frac, true
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64), false
}
