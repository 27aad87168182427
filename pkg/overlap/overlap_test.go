package overlap

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/internal/consts"
	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/material"
)

func tetrahedron(t *testing.T, label string, mat material.Material, offset r3.Vec) *geometry.Object {
	t.Helper()
	vertices := []r3.Vec{
		offset,
		r3.Add(offset, r3.Vec{X: 1}),
		r3.Add(offset, r3.Vec{Y: 1}),
		r3.Add(offset, r3.Vec{Z: 1}),
	}
	o, err := geometry.NewObject(label, vertices, [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}, mat)
	require.NoError(t, err)
	return o
}

func sharePanel(o *geometry.Object, a, b int) bool {
	ea, eb := o.Edges[a], o.Edges[b]
	for _, p := range []geometry.PanelID{ea.PPanel, ea.MPanel} {
		if p != geometry.NoPanel && (p == eb.PPanel || p == eb.MPanel) {
			return true
		}
	}
	return false
}

var allQuantities = Mask{true, true, true, true}

func TestAssembleSparsity(t *testing.T) {
	o := tetrahedron(t, "T", material.Constant{Eps: 3, Mu: 1}, r3.Vec{})
	set := AssembleObject(o, 0.7, 2, 1, allQuantities)

	for nq, m := range set {
		require.NotNil(t, m, "quantity %d", nq)
		r, c := m.Dims()
		assert.Equal(t, o.NumBFs(), r)
		assert.Equal(t, o.NumBFs(), c)
		assert.Greater(t, m.NNZ(), 0)

		for i := 0; i < r; i++ {
			m.DoRowNonZero(i, func(j int, v complex128) {
				a, b := i/2, j/2
				assert.True(t, sharePanel(o, a, b), "q%d entry (%d,%d)", nq, i, j)
				ov := o.Overlaps(geometry.EdgeID(a), geometry.EdgeID(b))
				assert.NotZero(t, ov[consts.OVERLAP_OVERLAP])
				if nq == consts.QINDEX_POWER {
					assert.NotEqual(t, i%2, j%2, "power entry (%d,%d)", i, j)
				}
			})
		}
	}

	// no entry couples edges on opposite sides of the tetrahedron
	for a := range o.Edges {
		for b := range o.Edges {
			if sharePanel(o, a, b) {
				continue
			}
			for _, m := range set {
				for _, ij := range [][2]int{{2 * a, 2 * b}, {2 * a, 2*b + 1}, {2*a + 1, 2 * b}, {2*a + 1, 2*b + 1}} {
					assert.Zero(t, m.At(ij[0], ij[1]))
				}
			}
		}
	}
}

func TestAssembleEntries(t *testing.T) {
	o := tetrahedron(t, "T", material.Constant{Eps: 3, Mu: 1}, r3.Vec{})
	omega := complex(0.5, 0.1)
	eps, mu := complex(2, 0.3), complex(1, 0)
	set := AssembleObject(o, omega, eps, mu, allQuantities)

	a := 0
	ov := o.Overlaps(0, 0)
	esO4 := cmplx.Conj(eps) / (4 * omega)
	msO4 := cmplx.Conj(mu) / (4 * omega)

	for nq := consts.QINDEX_XFORCE; nq <= consts.QINDEX_ZFORCE; nq++ {
		k := 3 * (nq - consts.QINDEX_XFORCE)
		nn := complex(ov[consts.OVERLAP_XNABLANABLA+k], 0)
		bullet := complex(ov[consts.OVERLAP_XBULLET+k], 0)
		tn := complex(ov[consts.OVERLAP_XTIMESNABLA+k], 0)

		m := set[nq]
		assert.InDelta(t, 0, cmplx.Abs(m.At(2*a, 2*a)-(esO4*nn-mu*bullet)), 1e-14)
		assert.InDelta(t, 0, cmplx.Abs(m.At(2*a+1, 2*a+1)-(msO4*nn-eps*bullet)), 1e-14)
		assert.Equal(t, tn, m.At(2*a, 2*a+1))
		assert.Equal(t, tn, m.At(2*a+1, 2*a))
	}
	assert.Equal(t, complex(ov[consts.OVERLAP_CROSS], 0), set[consts.QINDEX_POWER].At(0, 1))
	assert.Zero(t, set[consts.QINDEX_POWER].At(0, 0))
}

func TestAssemblePECAndMask(t *testing.T) {
	pec := tetrahedron(t, "P", material.PEC{}, r3.Vec{})
	diel := tetrahedron(t, "D", material.Constant{Eps: 2, Mu: 1}, r3.Vec{X: 4})
	g, err := geometry.NewGeometry(nil, pec, diel)
	require.NoError(t, err)

	sets, err := Assemble(g, 1.0, Mask{true, false, false, true})
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Nil(t, sets[0][consts.QINDEX_XFORCE])
	assert.Nil(t, sets[1][consts.QINDEX_YFORCE])

	assert.Zero(t, sets[0][consts.QINDEX_POWER].NNZ())
	r, _ := sets[0][consts.QINDEX_ZFORCE].Dims()
	assert.Equal(t, pec.NumEdges(), r)
	assert.Greater(t, sets[0][consts.QINDEX_ZFORCE].NNZ(), 0)
	assert.Greater(t, sets[1][consts.QINDEX_POWER].NNZ(), 0)

	assert.Equal(t, 2, Mask{true, false, false, true}.Count())

	forceOnly, err := Assemble(g, 1.0, Mask{false, false, false, true})
	require.NoError(t, err)
	require.NotNil(t, forceOnly[1][consts.QINDEX_POWER])
	assert.Equal(t, sets[1][consts.QINDEX_POWER].NNZ(), forceOnly[1][consts.QINDEX_POWER].NNZ())
	assert.Nil(t, forceOnly[1][consts.QINDEX_XFORCE])

	none, err := Assemble(g, 1.0, Mask{})
	require.NoError(t, err)
	assert.Nil(t, none[1][consts.QINDEX_POWER])

	_, err = Assemble(g, 0, allQuantities)
	assert.Error(t, err)
}
