package material

import (
	"fmt"
	"math/cmplx"
	"strconv"
	"strings"
)

// Material returns the relative permittivity and permeability at a complex
// angular frequency.
type Material interface {
	Name() string
	EpsMu(omega complex128) (eps, mu complex128)
}

type Vacuum struct{}

func (Vacuum) Name() string { return "VACUUM" }

func (Vacuum) EpsMu(omega complex128) (complex128, complex128) { return 1, 1 }

type Constant struct {
	Eps, Mu complex128
}

func (c Constant) Name() string {
	if c.Mu == 1 {
		return fmt.Sprintf("CONST_EPS_%g", real(c.Eps))
	}
	return fmt.Sprintf("CONST_EPS_%g_MU_%g", real(c.Eps), real(c.Mu))
}

func (c Constant) EpsMu(omega complex128) (complex128, complex128) { return c.Eps, c.Mu }

// Drude is eps(w) = 1 - wp^2 / (w (w + i gamma)), mu = 1.
type Drude struct {
	OmegaP, Gamma float64
}

func (d Drude) Name() string { return fmt.Sprintf("DRUDE_%g_%g", d.OmegaP, d.Gamma) }

func (d Drude) EpsMu(omega complex128) (complex128, complex128) {
	if omega == 0 {
		return cmplx.Inf(), 1
	}
	wp2 := complex(d.OmegaP*d.OmegaP, 0)
	return 1 - wp2/(omega*(omega+complex(0, d.Gamma))), 1
}

// PEC marks a perfectly conducting object. Its EpsMu is never used for
// field propagation inside the object.
type PEC struct{}

func (PEC) Name() string { return "PEC" }

func (PEC) EpsMu(omega complex128) (complex128, complex128) { return cmplx.Inf(), 1 }

func IsPEC(m Material) bool {
	if m == nil {
		return true
	}
	_, ok := m.(PEC)
	return ok
}

// Parse understands VACUUM, PEC, CONST_EPS_<e>, CONST_EPS_<e>_MU_<m> and
// DRUDE_<wp>_<gamma>. Keywords are case-insensitive.
func Parse(name string) (Material, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	fields := strings.Split(upper, "_")

	switch {
	case upper == "VACUUM" || upper == "":
		return Vacuum{}, nil

	case upper == "PEC":
		return PEC{}, nil

	case strings.HasPrefix(upper, "CONST_EPS_"):
		// CONST EPS <e> [MU <m>]
		if len(fields) != 3 && len(fields) != 5 {
			return nil, fmt.Errorf("invalid material %q", name)
		}
		eps, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid permittivity in %q: %v", name, err)
		}
		mu := 1.0
		if len(fields) == 5 {
			if fields[3] != "MU" {
				return nil, fmt.Errorf("invalid material %q", name)
			}
			mu, err = strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid permeability in %q: %v", name, err)
			}
		}
		return Constant{Eps: complex(eps, 0), Mu: complex(mu, 0)}, nil

	case strings.HasPrefix(upper, "DRUDE_"):
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid material %q", name)
		}
		wp, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid plasma frequency in %q: %v", name, err)
		}
		gamma, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid damping in %q: %v", name, err)
		}
		return Drude{OmegaP: wp, Gamma: gamma}, nil
	}

	return nil, fmt.Errorf("unknown material %q", name)
}
