package overlap

import (
	"fmt"
	"math/cmplx"
	"slices"

	"github.com/james-bowman/sparse"

	"github.com/edp1096/toy-bem/internal/consts"
	"github.com/edp1096/toy-bem/pkg/geometry"
)

// Matrix is a sparse complex matrix stored as two CSR matrices (real and
// imaginary parts) sharing one sparsity pattern.
type Matrix struct {
	re, im *sparse.CSR
}

func (m *Matrix) Dims() (int, int) { return m.re.Dims() }

// NNZ counts stored entries.
func (m *Matrix) NNZ() int { return m.re.NNZ() }

func (m *Matrix) At(i, j int) complex128 {
	return complex(m.re.At(i, j), m.im.At(i, j))
}

// DoRowNonZero calls fn for every stored entry of row i in column order.
func (m *Matrix) DoRowNonZero(i int, fn func(j int, v complex128)) {
	var imag []float64
	m.im.DoRowNonZero(i, func(_, _ int, v float64) {
		imag = append(imag, v)
	})
	k := 0
	m.re.DoRowNonZero(i, func(_, j int, v float64) {
		fn(j, complex(v, imag[k]))
		k++
	})
}

// builder accumulates entries in dictionary-of-keys form and records the
// pattern, so entries whose real or imaginary part vanishes stay stored.
type builder struct {
	n       int
	re, im  *sparse.DOK
	pattern [][]int
	seen    map[[2]int]bool
}

func newBuilder(n int) *builder {
	return &builder{
		n:       n,
		re:      sparse.NewDOK(n, n),
		im:      sparse.NewDOK(n, n),
		pattern: make([][]int, n),
		seen:    make(map[[2]int]bool),
	}
}

func (b *builder) add(i, j int, v complex128) {
	key := [2]int{i, j}
	if !b.seen[key] {
		b.seen[key] = true
		b.pattern[i] = append(b.pattern[i], j)
	}
	b.re.Set(i, j, b.re.At(i, j)+real(v))
	b.im.Set(i, j, b.im.At(i, j)+imag(v))
}

func (b *builder) build() *Matrix {
	ia := make([]int, b.n+1)
	var ja []int
	var re, im []float64
	for i, cols := range b.pattern {
		slices.Sort(cols)
		for _, j := range cols {
			ja = append(ja, j)
			re = append(re, b.re.At(i, j))
			im = append(im, b.im.At(i, j))
		}
		ia[i+1] = len(ja)
	}
	return &Matrix{
		re: sparse.NewCSR(b.n, b.n, ia, ja, re),
		im: sparse.NewCSR(b.n, b.n, append([]int(nil), ia...), append([]int(nil), ja...), im),
	}
}

// Set holds one object's overlap matrices indexed by consts.QINDEX_*;
// quantities not requested are nil, except power which traces always need.
type Set [consts.MAXQUANTITIES]*Matrix

// Mask selects quantities by consts.QINDEX_*.
type Mask [consts.MAXQUANTITIES]bool

func (m Mask) Count() int {
	n := 0
	for _, on := range m {
		if on {
			n++
		}
	}
	return n
}

// Assemble builds the overlap matrices of every object at frequency omega,
// using the exterior medium of g.
func Assemble(g *geometry.Geometry, omega complex128, mask Mask) ([]Set, error) {
	if omega == 0 {
		return nil, fmt.Errorf("overlap matrices need nonzero omega")
	}
	eps, mu := g.Exterior.EpsMu(omega)
	sets := make([]Set, g.NumObjects())
	for no, o := range g.Objects {
		sets[no] = AssembleObject(o, omega, eps, mu, mask)
	}
	return sets, nil
}

// AssembleObject builds one object's matrices. The power matrix is built
// whenever any quantity is selected. Penetrable objects use the
// 2x2 (electric, magnetic) layout per edge pair; PEC objects carry only
// electric currents and get the force entries alone.
func AssembleObject(o *geometry.Object, omega, eps, mu complex128, mask Mask) Set {
	esO4 := cmplx.Conj(eps) / (4.0 * omega)
	msO4 := cmplx.Conj(mu) / (4.0 * omega)
	pec := o.IsPEC()

	n := o.NumBFs()
	var builders [consts.MAXQUANTITIES]*builder
	for nq, on := range mask {
		if on {
			builders[nq] = newBuilder(n)
		}
	}
	// every trace contracts against the power matrix of the other objects
	if mask.Count() > 0 && builders[consts.QINDEX_POWER] == nil {
		builders[consts.QINDEX_POWER] = newBuilder(n)
	}

	for a, b := range sharedPanelPairs(o) {
		ov := o.Overlaps(a, b)
		if ov[consts.OVERLAP_OVERLAP] == 0 {
			continue
		}

		if pec {
			for nq := consts.QINDEX_XFORCE; nq <= consts.QINDEX_ZFORCE; nq++ {
				if builders[nq] == nil {
					continue
				}
				mu3 := 3 * (nq - consts.QINDEX_XFORCE)
				nn := complex(ov[consts.OVERLAP_XNABLANABLA+mu3], 0)
				bullet := complex(ov[consts.OVERLAP_XBULLET+mu3], 0)
				builders[nq].add(int(a), int(b), esO4*nn-mu*bullet)
			}
			continue
		}

		ea, ma := 2*int(a), 2*int(a)+1
		eb, mb := 2*int(b), 2*int(b)+1

		if bp := builders[consts.QINDEX_POWER]; bp != nil {
			cross := complex(ov[consts.OVERLAP_CROSS], 0)
			bp.add(ea, mb, cross)
			bp.add(ma, eb, cross)
		}

		for nq := consts.QINDEX_XFORCE; nq <= consts.QINDEX_ZFORCE; nq++ {
			bf := builders[nq]
			if bf == nil {
				continue
			}
			mu3 := 3 * (nq - consts.QINDEX_XFORCE)
			nn := complex(ov[consts.OVERLAP_XNABLANABLA+mu3], 0)
			bullet := complex(ov[consts.OVERLAP_XBULLET+mu3], 0)
			timesNabla := complex(ov[consts.OVERLAP_XTIMESNABLA+mu3], 0)

			bf.add(ea, eb, esO4*nn-mu*bullet)
			bf.add(ea, mb, timesNabla)
			bf.add(ma, eb, timesNabla)
			bf.add(ma, mb, msO4*nn-eps*bullet)
		}
	}

	var set Set
	for nq, bf := range builders {
		if bf != nil {
			set[nq] = bf.build()
		}
	}
	return set
}

// sharedPanelPairs yields every ordered edge pair (a, b) whose supports
// share at least one panel, each pair once.
func sharedPanelPairs(o *geometry.Object) func(yield func(geometry.EdgeID, geometry.EdgeID) bool) {
	return func(yield func(geometry.EdgeID, geometry.EdgeID) bool) {
		onPanel := make([][]geometry.EdgeID, len(o.Panels))
		for ne, e := range o.Edges {
			onPanel[e.PPanel] = append(onPanel[e.PPanel], geometry.EdgeID(ne))
			if e.MPanel != geometry.NoPanel {
				onPanel[e.MPanel] = append(onPanel[e.MPanel], geometry.EdgeID(ne))
			}
		}
		for a, e := range o.Edges {
			seen := make(map[geometry.EdgeID]bool)
			panels := []geometry.PanelID{e.PPanel}
			if e.MPanel != geometry.NoPanel {
				panels = append(panels, e.MPanel)
			}
			for _, np := range panels {
				for _, b := range onPanel[np] {
					if seen[b] {
						continue
					}
					seen[b] = true
					if !yield(geometry.EdgeID(a), b) {
						return
					}
				}
			}
		}
	}
}
