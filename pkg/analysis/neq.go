package analysis

import (
	"fmt"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/neq"
)

// NEQAnalysis evaluates the frequency integrand at every omega. Frequencies
// run in parallel on Workers goroutines, each with its own solver context.
// With cache writing enabled the first frequency runs alone, so the cache
// is stored before the others start.
type NEQAnalysis struct {
	BaseAnalysis
	Transforms []*geometry.Transformation
	Config     neq.Config
	Omegas     []complex128
	Workers    int

	data *neq.Data
}

func NewNEQ(transforms []*geometry.Transformation, cfg neq.Config, omegas []complex128, workers int) *NEQAnalysis {
	return &NEQAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		Transforms:   transforms,
		Config:       cfg,
		Omegas:       omegas,
		Workers:      workers,
	}
}

func (na *NEQAnalysis) Setup(g *geometry.Geometry) error {
	if len(na.Omegas) == 0 {
		return fmt.Errorf("no frequencies")
	}
	na.Geometry = g

	data, err := neq.NewData(g, na.Transforms, na.Config)
	if err != nil {
		return fmt.Errorf("neq setup error: %v", err)
	}
	na.data = data
	return nil
}

func (na *NEQAnalysis) Execute() error {
	if na.data == nil {
		return fmt.Errorf("geometry not set")
	}
	defer na.data.Close()

	integrands := make([][]float64, len(na.Omegas))
	first := 0
	if na.data.Flush.Armed() {
		fi, err := na.data.GetFrequencyIntegrand(na.Omegas[0])
		if err != nil {
			return fmt.Errorf("omega=%v: %w", na.Omegas[0], err)
		}
		integrands[0] = fi
		first = 1
	}

	err := forEachFrequency(first, len(na.Omegas), na.Workers,
		func(k int) (*neq.Data, func(), error) {
			if k == 0 {
				return na.data, nil, nil
			}
			d, err := na.data.Clone()
			if err != nil {
				return nil, nil, err
			}
			return d, d.Close, nil
		},
		func(d *neq.Data, i int) error {
			fi, err := d.GetFrequencyIntegrand(na.Omegas[i])
			if err != nil {
				return fmt.Errorf("omega=%v: %w", na.Omegas[i], err)
			}
			integrands[i] = fi
			return nil
		})
	if err != nil {
		return err
	}

	for i, omega := range na.Omegas {
		na.StoreFrequencyResult(omega, na.solution(integrands[i]))
	}
	return nil
}

// solution names integrand entries "QUANTITY(object)[transform]".
func (na *NEQAnalysis) solution(fi []float64) map[string]float64 {
	d := na.data
	g := d.Geometry
	nObj := g.NumObjects()
	quantities := d.Quantities()

	solution := make(map[string]float64, len(fi))
	for nt, tr := range d.Transforms {
		for iq, q := range quantities {
			for no, o := range g.Objects {
				idx := nt*nObj*len(quantities) + iq*nObj + no
				solution[fmt.Sprintf("%s(%s)[%s]", neq.QuantityNames[q], o.Label, tr.Tag)] = fi[idx]
			}
		}
	}
	return solution
}
