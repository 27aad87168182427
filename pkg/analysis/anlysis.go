package analysis

import (
	"fmt"
	"strings"

	"github.com/edp1096/toy-bem/pkg/geometry"
)

// Analysis modes selectable from the command line.
const (
	NEQ int = iota
	RF
)

// ParseMode maps a command line mode name (neq, rf) to its constant.
func ParseMode(name string) (int, error) {
	switch strings.ToLower(name) {
	case "neq":
		return NEQ, nil
	case "rf":
		return RF, nil
	}
	return 0, fmt.Errorf("unknown analysis mode %q", name)
}

type Analysis interface {
	Setup(g *geometry.Geometry) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Geometry *geometry.Geometry
	results  map[string][]float64 // key: quantity name, value: result by frequency
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{results: make(map[string][]float64)}
}

func (a *BaseAnalysis) storeOmega(omega complex128) {
	a.results["OMEGA"] = append(a.results["OMEGA"], real(omega))
	a.results["OMEGA_IMAG"] = append(a.results["OMEGA_IMAG"], imag(omega))
}

// StoreFrequencyResult appends one frequency's real values.
func (a *BaseAnalysis) StoreFrequencyResult(omega complex128, solution map[string]float64) {
	a.storeOmega(omega)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
