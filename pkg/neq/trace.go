package neq

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-bem/internal/consts"
)

// GetTrace evaluates quantity nq on object no from the inverted system:
//
//	sum over o2 != no of  Re Tr[ O(no,nq) M(no,o2) O(o2,power) M(no,o2)^H ]
//
// with M(a,b) the block of d.M whose rows belong to a and columns to b.
// Self terms do not contribute.
func GetTrace(d *Data, nq, no int) float64 {
	g := d.Geometry
	oq := d.Overlaps[no][nq]
	if oq == nil || oq.NNZ() == 0 {
		return 0
	}
	n1 := g.Objects[no].NumBFs()
	off1 := g.BFIndexOffset(no)

	var trace complex128
	for no2 := range g.Objects {
		if no2 == no {
			continue
		}
		op := d.Overlaps[no2][consts.QINDEX_POWER]
		if op == nil || op.NNZ() == 0 {
			continue
		}
		n2 := g.Objects[no2].NumBFs()
		off2 := g.BFIndexOffset(no2)

		// p = O(o2,power) * M(no,o2)^H, an n2 x n1 matrix
		p := mat.NewCDense(n2, n1, nil)
		for r2 := 0; r2 < n2; r2++ {
			op.DoRowNonZero(r2, func(c2 int, v complex128) {
				for r1 := 0; r1 < n1; r1++ {
					p.Set(r2, r1, p.At(r2, r1)+v*cmplx.Conj(d.M.At(off1+r1, off2+c2)))
				}
			})
		}

		for r1 := 0; r1 < n1; r1++ {
			oq.DoRowNonZero(r1, func(c1 int, v complex128) {
				var sum complex128
				for r2 := 0; r2 < n2; r2++ {
					sum += d.M.At(off1+c1, off2+r2) * p.At(r2, r1)
				}
				trace += v * sum
			})
		}
	}
	return real(trace)
}
