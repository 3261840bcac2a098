/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/gosnes/InputParameters"
	"github.com/notargets/gosnes/ksp"
	"github.com/notargets/gosnes/model_problems"
	"github.com/notargets/gosnes/snes"
	"github.com/notargets/gosnes/utils"
)

type ModelSolve struct {
	ICFile       string // YAML input deck, overlays the flags
	HistoryFile  string
	NP           int // ranks for the collective vector reductions
	TestJacobian bool
	KSPMonitor   bool
}

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a nonlinear model problem with a Newton line search",
	Long: `
Runs Newton's method with a line search on one of the model problems:
bratu (1D solid fuel ignition), rosenbrock or freudenstein-roth.

gosnes solve -p rosenbrock --lineSearch quadratic`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ms = &ModelSolve{
				ICFile:       viper.GetString("inputParametersFile"),
				HistoryFile:  viper.GetString("historyFile"),
				NP:           viper.GetInt("np"),
				TestJacobian: viper.GetBool("testJacobian"),
				KSPMonitor:   viper.GetBool("kspMonitor"),
			}
			ip *InputParameters.InputParametersNewton
		)
		if ip, err = processSolveInput(ms); err != nil {
			return
		}
		_, err = RunSolve(ms, ip, cmd.OutOrStdout(), logger)
		return
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	def := snes.DefaultOptions()
	flags := SolveCmd.Flags()
	flags.StringP("problem", "p", "bratu", fmt.Sprintf("model problem, one of %v", model_problems.ProblemNames))
	flags.IntP("n", "n", 20, "number of interior points (bratu)")
	flags.Float64P("lambda", "l", 1, "nonlinearity parameter (bratu), solutions exist below 3.5138")
	flags.String("lineSearch", def.LineSearch.String(), "line search: full, quadratic or cubic")
	flags.String("ksp", "gmres", "linear solver: gmres, cg or preonly")
	flags.Int("maxIts", def.MaxIterations, "maximum Newton iterations")
	flags.Float64("atol", def.Atol, "absolute tolerance on ||F||")
	flags.Float64("xtol", def.Xtol, "relative tolerance on the step length")
	flags.Float64("alpha", def.Alpha, "sufficient decrease constant")
	flags.Float64("maxStep", def.MaxStep, "longest step a line search will try")
	flags.Float64("stepTol", def.StepTol, "shortest meaningful step")
	flags.Int("np", 1, "number of ranks for vector reductions")
	flags.StringP("inputParametersFile", "I", "", "YAML file for input parameters like:\n\t- Problem\n\t- LineSearch\n\t- KSP settings")
	flags.String("historyFile", "", "write the residual norm history to this CSV file")
	flags.Bool("fdJacobian", false, "use a finite difference Jacobian")
	flags.Bool("testJacobian", false, "compare the hand coded Jacobian with finite differences before solving")
	flags.Bool("kspMonitor", false, "print the linear solver residual norms")
	_ = viper.BindPFlags(flags)
}

func processSolveInput(ms *ModelSolve) (ip *InputParameters.InputParametersNewton, err error) {
	ip = &InputParameters.InputParametersNewton{
		Problem:       viper.GetString("problem"),
		GridPoints:    viper.GetInt("n"),
		Lambda:        viper.GetFloat64("lambda"),
		LineSearch:    viper.GetString("lineSearch"),
		Alpha:         viper.GetFloat64("alpha"),
		MaxStep:       viper.GetFloat64("maxStep"),
		StepTol:       viper.GetFloat64("stepTol"),
		Atol:          floatPtr(viper.GetFloat64("atol")),
		Xtol:          floatPtr(viper.GetFloat64("xtol")),
		MaxIterations: viper.GetInt("maxIts"),
		FDJacobian:    viper.GetBool("fdJacobian"),
		KSP: InputParameters.KSPParameters{
			Type: viper.GetString("ksp"),
		},
	}
	if len(ms.ICFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(ms.ICFile); err != nil {
			return nil, err
		}
		if err = ip.Parse(data); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", ms.ICFile)
		}
	}
	return
}

func floatPtr(f float64) *float64 { return &f }

// RunSolve builds the problem and solver described by ip, solves, and
// reports on w.
func RunSolve(ms *ModelSolve, ip *InputParameters.InputParametersNewton, w io.Writer, logger *zap.Logger) (res snes.Result, err error) {
	var (
		p        model_problems.Problem
		opts     snes.Options
		k        *ksp.KSP
		jacobian snes.JacobianFunc
		template utils.Vector
	)
	if p, err = model_problems.NewProblem(ip.Problem, ip.GridPoints, ip.Lambda); err != nil {
		return
	}
	if opts, err = ip.Options(); err != nil {
		return
	}
	if k, err = ip.NewKSP(); err != nil {
		return
	}
	k.Logger = logger
	if ms.KSPMonitor {
		k.Monitor = ksp.ShortMonitor(w)
	}
	jacobian = p.Jacobian
	if ip.FDJacobian {
		jacobian = snes.FDJacobian(p.Residual, p.Size())
	}
	template = utils.NewVector(p.Size())
	if ms.NP > 1 {
		template = template.WithComm(utils.NewCommunicator(ms.NP))
	}
	fmt.Fprintf(w, "%s, line search %s, linear solver %s\n", p.Name(), opts.LineSearch, k.Type)
	if ms.TestJacobian {
		x := template.Duplicate()
		if err = p.InitialGuess(x); err != nil {
			return
		}
		if _, err = snes.TestJacobian(p.Residual, p.Jacobian, x, w); err != nil {
			return
		}
	}
	solver := snes.NewNewtonLS(p.Residual, jacobian, k)
	solver.SetLogger(logger)
	solver.SetFromOptions(opts)
	solver.SetMonitor(snes.DefaultMonitor(w))
	if err = solver.Setup(template); err != nil {
		return
	}
	defer func() { _ = solver.Destroy() }()
	if res, err = solver.Solve(p.InitialGuess, opts.MaxIterations); err != nil {
		return
	}
	logger.Debug("memory", zap.String("usage", utils.GetMemUsage()))
	fmt.Fprintf(w, "%s after %d iterations, %d function evaluations, %d linear iterations, ||F|| = %g\n",
		res.Reason, res.Iterations, res.FunctionEvaluations, res.LinearIterations, res.Fnorm)
	if len(ms.HistoryFile) != 0 {
		if err = writeHistory(ms.HistoryFile, res.History); err != nil {
			return
		}
		fmt.Fprintf(w, "history written to %s\n", ms.HistoryFile)
	}
	return
}

// writeHistory writes "iteration,fnorm" records, the format tools/convOrder reads
func writeHistory(fileName string, history []float64) (err error) {
	var (
		f *os.File
	)
	if f, err = os.Create(fileName); err != nil {
		return
	}
	defer f.Close()
	wr := csv.NewWriter(f)
	if err = wr.Write([]string{"iteration", "fnorm"}); err != nil {
		return
	}
	for i, fnorm := range history {
		if err = wr.Write([]string{strconv.Itoa(i), strconv.FormatFloat(fnorm, 'e', 16, 64)}); err != nil {
			return
		}
	}
	wr.Flush()
	return wr.Error()
}
