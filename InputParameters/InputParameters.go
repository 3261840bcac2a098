package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/snes"
)

// Parameters obtained from the YAML input file. Zero values keep the
// defaults, except Atol and Xtol: present in the deck they are used as given,
// so 0 switches that convergence criterion off.
type InputParametersNewton struct {
	Title         string        `yaml:"Title"`
	Problem       string        `yaml:"Problem"`
	GridPoints    int           `yaml:"GridPoints"` // Bratu interior points
	Lambda        float64       `yaml:"Lambda"`     // Bratu parameter
	LineSearch    string        `yaml:"LineSearch"`
	Alpha         float64       `yaml:"Alpha"`
	MaxStep       float64       `yaml:"MaxStep"`
	StepTol       float64       `yaml:"StepTol"`
	Atol          *float64      `yaml:"Atol"`
	Xtol          *float64      `yaml:"Xtol"`
	MaxIterations int           `yaml:"MaxIterations"`
	FDJacobian    bool          `yaml:"FDJacobian"` // replace the hand coded Jacobian with finite differences
	KSP           KSPParameters `yaml:"KSP"`
}

type KSPParameters struct {
	Type    string  `yaml:"Type"`
	Rtol    float64 `yaml:"Rtol"`
	Atol    float64 `yaml:"Atol"`
	Dtol    float64 `yaml:"Dtol"`
	MaxIts  int     `yaml:"MaxIts"`
	Restart int     `yaml:"Restart"`
}

func (ip *InputParametersNewton) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersNewton) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t\t= Problem\n", ip.Problem)
	if ip.GridPoints != 0 {
		fmt.Printf("[%d]\t\t\t\t= Grid Points\n", ip.GridPoints)
	}
	fmt.Printf("%8.5f\t\t= Lambda\n", ip.Lambda)
	fmt.Printf("[%s]\t\t\t= Line Search\n", ip.LineSearch)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", ip.MaxIterations)
	fmt.Printf("[%s]\t\t\t= Linear Solver\n", ip.KSP.Type)
	if ip.FDJacobian {
		fmt.Printf("[finite difference]\t= Jacobian\n")
	}
}

// Options overlays the non zero parameters on snes.DefaultOptions
func (ip *InputParametersNewton) Options() (o snes.Options, err error) {
	o = snes.DefaultOptions()
	if len(ip.LineSearch) != 0 {
		if o.LineSearch, err = snes.ParseLineSearchKind(ip.LineSearch); err != nil {
			return o, errors.Wrap(err, "input parameters")
		}
	}
	setIfNonZero(&o.Alpha, ip.Alpha)
	setIfNonZero(&o.MaxStep, ip.MaxStep)
	setIfNonZero(&o.StepTol, ip.StepTol)
	if ip.Atol != nil {
		o.Atol = *ip.Atol
	}
	if ip.Xtol != nil {
		o.Xtol = *ip.Xtol
	}
	if ip.MaxIterations > 0 {
		o.MaxIterations = ip.MaxIterations
	}
	if o.Atol < 0 || o.Xtol < 0 {
		return o, fmt.Errorf("input parameters: tolerances must be non negative, have Atol = %g, Xtol = %g", o.Atol, o.Xtol)
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return o, fmt.Errorf("input parameters: Alpha must be in (0, 1), have %g", o.Alpha)
	}
	return
}

// NewKSP builds the linear solver, an empty type selects GMRES
func (ip *InputParametersNewton) NewKSP() (k *ksp.KSP, err error) {
	var kt ksp.Type
	if kt, err = ksp.NewType(ip.KSP.Type); err != nil {
		return nil, errors.Wrap(err, "input parameters")
	}
	k = ksp.NewKSP(kt)
	setIfNonZero(&k.Rtol, ip.KSP.Rtol)
	setIfNonZero(&k.Atol, ip.KSP.Atol)
	setIfNonZero(&k.Dtol, ip.KSP.Dtol)
	if ip.KSP.MaxIts > 0 {
		k.MaxIts = ip.KSP.MaxIts
	}
	if ip.KSP.Restart > 0 {
		k.Restart = ip.KSP.Restart
	}
	return
}

func setIfNonZero(dst *float64, val float64) {
	if val != 0 {
		*dst = val
	}
}
