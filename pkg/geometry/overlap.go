package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/internal/consts"
	"github.com/edp1096/toy-bem/pkg/util"
)

// HalfRWG is one panel of an RWG basis function:
// f(r) = Sign * Length/(2A) * (r - Q) on the panel.
type HalfRWG struct {
	Panel  PanelID
	IQ     int
	Sign   float64
	Length float64
}

// HalfRWGs lists the (one or two) panels carrying edge ne.
func (o *Object) HalfRWGs(ne EdgeID) []HalfRWG {
	e := o.Edges[ne]
	h := []HalfRWG{{Panel: e.PPanel, IQ: e.PIndex, Sign: 1, Length: e.Length}}
	if e.MPanel != NoPanel {
		h = append(h, HalfRWG{Panel: e.MPanel, IQ: e.MIndex, Sign: -1, Length: e.Length})
	}
	return h
}

// Overlaps returns the eleven overlap integrals between basis functions a
// and b (indexed by consts.OVERLAP_*). With n the panel normal:
//
//	Overlap        int f_a . f_b
//	Cross          int f_a . (n x f_b)
//	iBullet        int n_i f_a . f_b
//	iNablaNabla    int n_i (div f_a)(div f_b)
//	iTimesNabla    int (n x f_a)_i (div f_b)
//
// All integrals vanish unless a and b share a panel.
func (o *Object) Overlaps(a, b EdgeID) [consts.NUMOVERLAPS]float64 {
	var ov [consts.NUMOVERLAPS]float64
	rule := util.GetTriangleRule(util.MidpointRule)

	for _, ha := range o.HalfRWGs(a) {
		for _, hb := range o.HalfRWGs(b) {
			if ha.Panel != hb.Panel {
				continue
			}
			p := o.Panels[ha.Panel]
			tri := o.PanelTriangle(ha.Panel)
			qa := o.QVertex(ha.Panel, ha.IQ)
			qb := o.QVertex(hb.Panel, hb.IQ)
			pa := ha.Sign * ha.Length / (2.0 * p.Area)
			pb := hb.Sign * hb.Length / (2.0 * p.Area)
			divA := 2.0 * pa
			divB := 2.0 * pb
			n := p.ZHat

			for i, w := range rule.Weights {
				x := util.Barycentric(tri, rule.Points[i])
				fa := r3.Scale(pa, r3.Sub(x, qa))
				fb := r3.Scale(pb, r3.Sub(x, qb))
				wa := w * p.Area

				dot := r3.Dot(fa, fb)
				ov[consts.OVERLAP_OVERLAP] += wa * dot
				ov[consts.OVERLAP_CROSS] += wa * r3.Dot(fa, r3.Cross(n, fb))

				nxfa := r3.Cross(n, fa)
				nc := [3]float64{n.X, n.Y, n.Z}
				tc := [3]float64{nxfa.X, nxfa.Y, nxfa.Z}
				for mu := 0; mu < 3; mu++ {
					ov[consts.OVERLAP_XBULLET+3*mu] += wa * nc[mu] * dot
					ov[consts.OVERLAP_XNABLANABLA+3*mu] += wa * nc[mu] * divA * divB
					ov[consts.OVERLAP_XTIMESNABLA+3*mu] += wa * tc[mu] * divB
				}
			}
		}
	}
	return ov
}
