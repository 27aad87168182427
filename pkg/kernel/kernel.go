package kernel

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/util"
)

var ErrZeroWavenumber = errors.New("kernel: zero wavenumber")

// PanelRef names one half-RWG: a panel of an object plus the local index of
// its source/sink vertex.
type PanelRef struct {
	Object *geometry.Object
	Panel  geometry.PanelID
	IQ     int
}

// PPI holds the panel-panel integrals of two half-RWG shape functions
// h(x) = (x - Q) / (2A):
//
//	G = int int [h_a . h_b - (div h_a)(div h_b) / k^2] phi(x - x')
//	C = int int (h_a x h_b) . grad phi(x - x')
//
// with phi(r) = exp(ikr) / (4 pi r). Edge lengths and RWG signs are applied
// by the caller.
type PPI struct {
	G, C complex128
}

type Kernel interface {
	Interact(a, b PanelRef, k complex128) (PPI, error)
}

// nearFactor is the centroid distance, in panel radii, below which the
// higher order outer rule is used.
const nearFactor = 4.0

// Helmholtz evaluates PPI by direct product quadrature. The inner rule
// samples edge midpoints and the outer rule interior points, so the two
// point sets never coincide for touching panels.
type Helmholtz struct{}

func (Helmholtz) Interact(a, b PanelRef, k complex128) (PPI, error) {
	if k == 0 {
		return PPI{}, ErrZeroWavenumber
	}

	pa := a.Object.Panels[a.Panel]
	pb := b.Object.Panels[b.Panel]
	ta := a.Object.PanelTriangle(a.Panel)
	tb := b.Object.PanelTriangle(b.Panel)
	qa := a.Object.QVertex(a.Panel, a.IQ)
	qb := b.Object.QVertex(b.Panel, b.IQ)

	outer := util.GetTriangleRule(util.MidpointRule)
	if r3.Norm(r3.Sub(pa.Centroid, pb.Centroid)) < nearFactor*math.Max(pa.Radius, pb.Radius) {
		outer = util.GetTriangleRule(util.DunavantRule)
	}
	inner := util.GetTriangleRule(util.MidpointRule)

	divDiv := complex(1.0/(pa.Area*pb.Area), 0) / (k * k)
	ik := complex(0, 1) * k

	var g, c complex128
	for i, wi := range outer.Weights {
		x := util.Barycentric(ta, outer.Points[i])
		ha := r3.Scale(0.5/pa.Area, r3.Sub(x, qa))
		for j, wj := range inner.Weights {
			y := util.Barycentric(tb, inner.Points[j])
			hb := r3.Scale(0.5/pb.Area, r3.Sub(y, qb))

			rv := r3.Sub(x, y)
			r := r3.Norm(rv)
			cr := complex(r, 0)
			phi := cmplx.Exp(ik*cr) / complex(4.0*math.Pi*r, 0)
			// grad phi = rv (ikr - 1) phi / r^2
			dphi := (ik*cr - 1) * phi / complex(r*r, 0)

			w := complex(wi*wj*pa.Area*pb.Area, 0)
			g += w * (complex(r3.Dot(ha, hb), 0) - divDiv) * phi
			c += w * complex(r3.Dot(r3.Cross(ha, hb), rv), 0) * dphi
		}
	}
	return PPI{G: g, C: c}, nil
}
