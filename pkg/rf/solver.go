package rf

import (
	"fmt"
	"io"
	"log"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/edp1096/toy-bem/pkg/bem"
	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
	"github.com/edp1096/toy-bem/pkg/matrix"
	"github.com/edp1096/toy-bem/pkg/port"
	"github.com/edp1096/toy-bem/pkg/util"
)

type Config struct {
	OutputFile string
	Workers    int
	Logger     *log.Logger
}

// Solver drives the ports of a fixed geometry and solves for the surface
// currents they induce.
type Solver struct {
	Geometry *geometry.Geometry
	Ports    []*port.Port
	Kernel   *kernel.Cache
	Blocks   *bem.BlockCache
	W        *matrix.SystemMatrix
	Output   *util.Output
	Logger   *log.Logger

	omega     complex128
	assembled bool
}

func NewSolver(g *geometry.Geometry, ports []*port.Port, cfg Config) (*Solver, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports")
	}
	return newSolver(g, ports, cfg, kernel.NewCache(kernel.Helmholtz{}), util.NewOutput(cfg.OutputFile))
}

func newSolver(g *geometry.Geometry, ports []*port.Port, cfg Config, cache *kernel.Cache, out *util.Output) (*Solver, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w, err := matrix.NewSystemMatrix(g.TotalBFs())
	if err != nil {
		return nil, err
	}
	return &Solver{
		Geometry: g,
		Ports:    ports,
		Kernel:   cache,
		Blocks:   bem.NewBlockCache(bem.NewAssembler(g, cache), cfg.Workers, logger),
		W:        w,
		Output:   out,
		Logger:   logger,
	}, nil
}

// Clone returns a solver for concurrent use that shares the interaction
// cache and output file. Ports keep pointing at the receiver's geometry
// objects, which are only read.
func (s *Solver) Clone() (*Solver, error) {
	return newSolver(s.Geometry, s.Ports, Config{Workers: s.Blocks.Workers, Logger: s.Logger}, s.Kernel, s.Output)
}

func (s *Solver) Close() {
	if s.W != nil {
		s.W.Destroy()
		s.W = nil
	}
}

// Assemble fills and factors the system matrix at omega.
func (s *Solver) Assemble(omega complex128) error {
	s.Logger.Printf("Assembling BEM matrix at omega=%s...", util.FormatOmega(omega))
	if err := s.Blocks.AssembleSelf(omega); err != nil {
		return err
	}
	if _, err := s.Blocks.RecomputePairs(0, nil); err != nil {
		return err
	}
	s.W.Clear()
	s.Blocks.Stamp(s.W)
	if err := s.W.Factor(); err != nil {
		return err
	}
	s.omega = omega
	s.assembled = true
	return nil
}

// Solve returns the surface-current vector produced by the given port
// currents at the frequency of the last Assemble.
func (s *Solver) Solve(currents []complex128) ([]complex128, error) {
	if !s.assembled {
		return nil, fmt.Errorf("system matrix not assembled")
	}
	kn := make([]complex128, s.Geometry.TotalBFs())
	if err := port.AddPortContributionsToRHS(s.Geometry, s.Ports, currents, s.omega, s.Kernel, kn); err != nil {
		return nil, err
	}
	return s.W.Solve(kn)
}

// DrivePorts drives each port alone with unit current at omega. Row i of
// the result is the current vector for port i; one output row per port
// lists the norm of the current on each object.
func (s *Solver) DrivePorts(omega complex128) ([][]complex128, error) {
	if err := s.Assemble(omega); err != nil {
		return nil, err
	}

	responses := make([][]complex128, len(s.Ports))
	for np := range s.Ports {
		s.Logger.Printf(" Driving port %d", np+1)
		currents := make([]complex128, len(s.Ports))
		currents[np] = 1

		kn, err := s.Solve(currents)
		if err != nil {
			return nil, fmt.Errorf("port %d: %w", np+1, err)
		}
		responses[np] = kn

		if err := s.Output.WriteRow(fmt.Sprintf("PORT%d", np+1), omega, s.ObjectNorms(kn)); err != nil {
			return nil, err
		}
	}
	return responses, nil
}

// ObjectNorms returns the 2-norm of kn restricted to each object.
func (s *Solver) ObjectNorms(kn []complex128) []float64 {
	g := s.Geometry
	norms := make([]float64, g.NumObjects())
	for no, o := range g.Objects {
		off := g.BFIndexOffset(no)
		norms[no] = cmplxs.Norm(kn[off:off+o.NumBFs()], 2)
	}
	return norms
}
