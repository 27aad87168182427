package analysis

import (
	"fmt"
	"log"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/port"
	"github.com/edp1096/toy-bem/pkg/rf"
)

// RFAnalysis drives every port at every omega and records the current
// norm on each object.
type RFAnalysis struct {
	BaseAnalysis
	PortFile string
	Ports    []*port.Port // used as is when set; otherwise read from PortFile
	Config   rf.Config
	Omegas   []complex128
	Workers  int

	solver *rf.Solver
}

func NewRF(portFile string, cfg rf.Config, omegas []complex128, workers int) *RFAnalysis {
	return &RFAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		PortFile:     portFile,
		Config:       cfg,
		Omegas:       omegas,
		Workers:      workers,
	}
}

func (ra *RFAnalysis) Setup(g *geometry.Geometry) error {
	if len(ra.Omegas) == 0 {
		return fmt.Errorf("no frequencies")
	}
	ra.Geometry = g

	if ra.Ports == nil {
		ports, err := readPorts(g, ra.PortFile, ra.Config.Logger)
		if err != nil {
			return err
		}
		ra.Ports = ports
	}

	solver, err := rf.NewSolver(g, ra.Ports, ra.Config)
	if err != nil {
		return fmt.Errorf("rf setup error: %v", err)
	}
	ra.solver = solver
	return nil
}

func readPorts(g *geometry.Geometry, path string, logger *log.Logger) ([]*port.Port, error) {
	if path == "" {
		return nil, fmt.Errorf("no port file")
	}
	return (&port.Parser{Logger: logger}).ParseFile(g, path)
}

func (ra *RFAnalysis) Execute() error {
	if ra.solver == nil {
		return fmt.Errorf("geometry not set")
	}
	defer ra.solver.Close()

	norms := make([][][]float64, len(ra.Omegas))
	err := forEachFrequency(0, len(ra.Omegas), ra.Workers,
		func(k int) (*rf.Solver, func(), error) {
			if k == 0 {
				return ra.solver, nil, nil
			}
			s, err := ra.solver.Clone()
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
		func(s *rf.Solver, i int) error {
			responses, err := s.DrivePorts(ra.Omegas[i])
			if err != nil {
				return fmt.Errorf("omega=%v: %w", ra.Omegas[i], err)
			}
			norms[i] = make([][]float64, len(responses))
			for np, kn := range responses {
				norms[i][np] = s.ObjectNorms(kn)
			}
			return nil
		})
	if err != nil {
		return err
	}

	for i, omega := range ra.Omegas {
		solution := make(map[string]float64)
		for np := range ra.Ports {
			for no, o := range ra.Geometry.Objects {
				solution[fmt.Sprintf("K(%s)[PORT%d]", o.Label, np+1)] = norms[i][np][no]
			}
		}
		ra.StoreFrequencyResult(omega, solution)
	}
	return nil
}
