package bem

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
	"github.com/edp1096/toy-bem/pkg/material"
	"github.com/edp1096/toy-bem/pkg/matrix"
)

func tetrahedron(t *testing.T, label string, mtl material.Material, offset r3.Vec) *geometry.Object {
	t.Helper()
	vertices := []r3.Vec{
		offset,
		r3.Add(offset, r3.Vec{X: 1}),
		r3.Add(offset, r3.Vec{Y: 1}),
		r3.Add(offset, r3.Vec{Z: 1}),
	}
	o, err := geometry.NewObject(label, vertices, [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}, mtl)
	require.NoError(t, err)
	return o
}

func threeBodies(t *testing.T) *geometry.Geometry {
	t.Helper()
	g, err := geometry.NewGeometry(nil,
		tetrahedron(t, "A", material.Constant{Eps: 4, Mu: 1}, r3.Vec{}),
		tetrahedron(t, "B", material.PEC{}, r3.Vec{X: 3}),
		tetrahedron(t, "C", material.Constant{Eps: 2, Mu: 1}, r3.Vec{Y: 3}),
	)
	require.NoError(t, err)
	return g
}

func TestPairIndex(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		want := 0
		for no := 0; no < n; no++ {
			for nop := no + 1; nop < n; nop++ {
				assert.Equal(t, want, PairIndex(no, nop, n), "n=%d (%d,%d)", n, no, nop)
				want++
			}
		}
	}
}

func TestNeedsRecompute(t *testing.T) {
	tests := []struct {
		name  string
		nt    int
		moved []bool
		want  [3]bool // pairs (0,1) (0,2) (1,2)
	}{
		{"first transform", 0, []bool{false, false, false}, [3]bool{true, true, true}},
		{"nothing moved", 3, []bool{false, false, false}, [3]bool{false, false, false}},
		{"one moved", 1, []bool{false, false, true}, [3]bool{false, true, true}},
		{"two moved", 2, []bool{true, true, false}, [3]bool{true, true, true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := [3]bool{
				NeedsRecompute(tc.nt, 0, 1, tc.moved),
				NeedsRecompute(tc.nt, 0, 2, tc.moved),
				NeedsRecompute(tc.nt, 1, 2, tc.moved),
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAssembleBlock(t *testing.T) {
	g := threeBodies(t)
	as := NewAssembler(g, nil)
	omega := complex(0.8, 0)

	t.Run("self block is symmetric and finite", func(t *testing.T) {
		r, c := as.BlockDims(0, 0)
		assert.Equal(t, 12, r)
		dst := mat.NewCDense(r, c, nil)
		require.NoError(t, as.AssembleBlock(0, 0, omega, true, dst))
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := dst.At(i, j)
				assert.False(t, cmplx.IsNaN(v) || cmplx.IsInf(v))
				assert.Equal(t, v, dst.At(j, i))
			}
		}
		assert.NotZero(t, dst.At(0, 0))
	})

	t.Run("mixed mutual block shape", func(t *testing.T) {
		r, c := as.BlockDims(0, 1)
		assert.Equal(t, 12, r)
		assert.Equal(t, 6, c)
		dst := mat.NewCDense(r, c, nil)
		require.NoError(t, as.AssembleBlock(0, 1, omega, false, dst))
		assert.NotZero(t, dst.At(0, 0))
		assert.NotZero(t, dst.At(1, 0))
	})

	t.Run("argument errors", func(t *testing.T) {
		assert.Error(t, as.AssembleBlock(0, 1, omega, false, mat.NewCDense(3, 3, nil)))
		assert.Error(t, as.AssembleBlock(0, 2, omega, true, mat.NewCDense(12, 12, nil)))
		assert.ErrorIs(t, as.AssembleBlock(1, 1, 0, true, mat.NewCDense(6, 6, nil)), kernel.ErrZeroWavenumber)
	})
}

func TestFlipSignOfMagneticColumns(t *testing.T) {
	m := mat.NewCDense(2, 4, []complex128{1, 2, 3, 4, 5, 6, 7, 8i})
	FlipSignOfMagneticColumns(m)
	want := mat.NewCDense(2, 4, []complex128{1, -2, 3, -4, 5, -6, 7, -8i})
	assert.True(t, mat.CEqual(want, m))
}

func TestRecomputePairs(t *testing.T) {
	g := threeBodies(t)
	bc := NewBlockCache(NewAssembler(g, kernel.NewCache(kernel.Helmholtz{})), 2, nil)
	require.NoError(t, bc.AssembleSelf(0.6))

	identity := geometry.NewTransformation("0")
	shiftC := geometry.NewTransformation("1")
	shiftC.AddOps("C", geometry.Displacement(0, 0, 1))

	require.NoError(t, g.Transform(identity))
	done, err := bc.RecomputePairs(0, g.Moved())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}}, done)
	g.UnTransform()

	before := make([]*mat.CDense, len(bc.U))
	for nb, u := range bc.U {
		r, c := u.Dims()
		before[nb] = mat.NewCDense(r, c, nil)
		before[nb].Copy(u)
	}

	require.NoError(t, g.Transform(shiftC))
	done, err = bc.RecomputePairs(1, g.Moved())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {1, 2}}, done)
	g.UnTransform()

	assert.True(t, mat.CEqual(before[PairIndex(0, 1, 3)], bc.U[PairIndex(0, 1, 3)]))
	assert.False(t, mat.CEqual(before[PairIndex(0, 2, 3)], bc.U[PairIndex(0, 2, 3)]))
	assert.False(t, mat.CEqual(before[PairIndex(1, 2, 3)], bc.U[PairIndex(1, 2, 3)]))

	// same placement again: nothing to do
	require.NoError(t, g.Transform(shiftC))
	done, err = bc.RecomputePairs(2, g.Moved())
	require.NoError(t, err)
	assert.Empty(t, done)
	g.UnTransform()
}

func TestRecomputePairsFlipsMagneticColumns(t *testing.T) {
	g := threeBodies(t)
	as := NewAssembler(g, nil)
	bc := NewBlockCache(as, 1, nil)
	require.NoError(t, bc.AssembleSelf(0.6))
	_, err := bc.RecomputePairs(0, g.Moved())
	require.NoError(t, err)

	raw := mat.NewCDense(12, 12, nil)
	require.NoError(t, as.AssembleBlock(0, 2, 0.6, false, raw))
	u := bc.U[PairIndex(0, 2, 3)]
	assert.Equal(t, raw.At(3, 2), u.At(3, 2))
	assert.Equal(t, -raw.At(3, 5), u.At(3, 5))

	// PEC column object: no flip
	raw = mat.NewCDense(12, 6, nil)
	require.NoError(t, as.AssembleBlock(0, 1, 0.6, false, raw))
	assert.True(t, mat.CEqual(raw, bc.U[PairIndex(0, 1, 3)]))
}

func TestStamp(t *testing.T) {
	g := threeBodies(t)
	bc := NewBlockCache(NewAssembler(g, nil), 3, nil)
	require.NoError(t, bc.AssembleSelf(0.6))
	_, err := bc.RecomputePairs(0, g.Moved())
	require.NoError(t, err)

	m, err := matrix.NewSystemMatrix(g.TotalBFs())
	require.NoError(t, err)
	defer m.Destroy()
	bc.Stamp(m)

	offB, offC := g.BFIndexOffset(1), g.BFIndexOffset(2)
	assert.Equal(t, bc.T[2].At(1, 4), m.GetEntry(offC+1, offC+4))
	u := bc.U[PairIndex(1, 2, 3)]
	assert.Equal(t, u.At(5, 7), m.GetEntry(offB+5, offC+7))
	assert.Equal(t, u.At(5, 7), m.GetEntry(offC+7, offB+5))
}
