package snes

import (
	"fmt"
	"strings"
)

type LineSearchKind uint8

const (
	LineSearchCubic LineSearchKind = iota
	LineSearchQuadratic
	LineSearchFull
)

var (
	lineSearchNames = []string{
		"cubic",
		"quadratic",
		"full",
	}
)

func (k LineSearchKind) String() string {
	if int(k) < len(lineSearchNames) {
		return lineSearchNames[k]
	}
	return fmt.Sprintf("LineSearchKind(%d)", uint8(k))
}

// ParseLineSearchKind accepts "full" (also "basic" and "none"), "quadratic"
// and "cubic". An empty label selects the cubic default.
func ParseLineSearchKind(label string) (k LineSearchKind, err error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "cubic", "":
		k = LineSearchCubic
	case "quadratic":
		k = LineSearchQuadratic
	case "full", "basic", "none":
		k = LineSearchFull
	default:
		err = fmt.Errorf("unknown line search: %q, expected one of full, quadratic, cubic", label)
	}
	return
}

type Options struct {
	Alpha         float64 // sufficient decrease constant
	MaxStep       float64 // longest step tried by a line search
	StepTol       float64 // shortest meaningful step
	LineSearch    LineSearchKind
	Atol          float64 // absolute residual norm tolerance
	Xtol          float64 // relative step tolerance
	MaxIterations int
}

func DefaultOptions() Options {
	return Options{
		Alpha:         1.e-4,
		MaxStep:       1.e8,
		StepTol:       1.e-12,
		LineSearch:    LineSearchCubic,
		Atol:          1.e-10,
		Xtol:          1.e-8,
		MaxIterations: 50,
	}
}

func (o Options) LineSearchParams() LineSearchParams {
	return LineSearchParams{
		Alpha:   o.Alpha,
		MaxStep: o.MaxStep,
		StepTol: o.StepTol,
	}
}

func (o Options) Print() {
	fmt.Printf("[%s]\t\t\t= Line Search\n", o.LineSearch)
	fmt.Printf("%8.3e\t\t= Alpha\n", o.Alpha)
	fmt.Printf("%8.3e\t\t= MaxStep\n", o.MaxStep)
	fmt.Printf("%8.3e\t\t= StepTol\n", o.StepTol)
	fmt.Printf("%8.3e\t\t= Atol\n", o.Atol)
	fmt.Printf("%8.3e\t\t= Xtol\n", o.Xtol)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", o.MaxIterations)
}
