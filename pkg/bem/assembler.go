package bem

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
	"github.com/edp1096/toy-bem/pkg/material"
)

// Assembler fills impedance blocks of a geometry. Objects are addressed by
// their index in Geometry.Objects.
type Assembler struct {
	Geometry *geometry.Geometry
	Kernel   kernel.Kernel
}

func NewAssembler(g *geometry.Geometry, k kernel.Kernel) *Assembler {
	if k == nil {
		k = kernel.Helmholtz{}
	}
	return &Assembler{Geometry: g, Kernel: k}
}

// medium holds the constants of one homogeneous region at a frequency.
type medium struct {
	ikz, ikOverZ, ik complex128
	k               complex128
	sign            float64 // +1 exterior, -1 interior
}

func newMedium(m material.Material, omega complex128, sign float64) medium {
	eps, mu := m.EpsMu(omega)
	k := omega * cmplx.Sqrt(eps*mu)
	z := cmplx.Sqrt(mu / eps)
	ik := complex(0, 1) * k
	return medium{ikz: ik * z, ikOverZ: ik / z, ik: ik, k: k, sign: sign}
}

// BlockDims returns the dimensions of block (a, b).
func (as *Assembler) BlockDims(a, b int) (int, int) {
	return as.Geometry.Objects[a].NumBFs(), as.Geometry.Objects[b].NumBFs()
}

// AssembleBlock overwrites dst with the coupling of object a (rows) and
// object b (columns) at angular frequency omega. Rows and columns of a
// penetrable object interleave electric (even) and magnetic (odd) currents:
//
//	EE = i k Z G    EM = ME = -i k C    MM = i k G / Z
//
// summed over the exterior medium and, for a == b with a penetrable object,
// the interior medium. With symmetric set, only entries beta >= alpha are
// evaluated and the rest mirrored; this is valid for self blocks only.
func (as *Assembler) AssembleBlock(a, b int, omega complex128, symmetric bool, dst *mat.CDense) error {
	oa := as.Geometry.Objects[a]
	ob := as.Geometry.Objects[b]
	if r, c := dst.Dims(); r != oa.NumBFs() || c != ob.NumBFs() {
		return fmt.Errorf("block (%d,%d): destination is %dx%d, want %dx%d", a, b, r, c, oa.NumBFs(), ob.NumBFs())
	}
	if symmetric && a != b {
		return fmt.Errorf("block (%d,%d): symmetric assembly of a mutual block", a, b)
	}

	media := []medium{newMedium(as.Geometry.Exterior, omega, 1)}
	if a == b && !oa.IsPEC() {
		media = append(media, newMedium(oa.Material, omega, -1))
	}

	bpeA, bpeB := oa.BFsPerEdge(), ob.BFsPerEdge()
	for alpha := range oa.Edges {
		beta0 := 0
		if symmetric {
			beta0 = alpha
		}
		for beta := beta0; beta < len(ob.Edges); beta++ {
			var ee, em, mm complex128
			for _, md := range media {
				g, c, err := as.edgeEdge(oa, geometry.EdgeID(alpha), ob, geometry.EdgeID(beta), md.k)
				if err != nil {
					return fmt.Errorf("block (%d,%d) edges (%d,%d): %w", a, b, alpha, beta, err)
				}
				ee += md.ikz * g
				em -= complex(md.sign, 0) * md.ik * c
				mm += md.ikOverZ * g
			}

			set := func(i, j int, v complex128) {
				dst.Set(i, j, v)
				if symmetric {
					dst.Set(j, i, v)
				}
			}
			i, j := bpeA*alpha, bpeB*beta
			set(i, j, ee)
			if bpeB == 2 {
				set(i, j+1, em)
			}
			if bpeA == 2 {
				set(i+1, j, em)
				if bpeB == 2 {
					set(i+1, j+1, mm)
				}
			}
		}
	}
	return nil
}

// edgeEdge sums the panel-panel integrals over the half-RWGs of two edges,
// with RWG signs and edge lengths.
func (as *Assembler) edgeEdge(oa *geometry.Object, ea geometry.EdgeID, ob *geometry.Object, eb geometry.EdgeID, k complex128) (complex128, complex128, error) {
	var g, c complex128
	for _, ha := range oa.HalfRWGs(ea) {
		for _, hb := range ob.HalfRWGs(eb) {
			ppi, err := as.Kernel.Interact(
				kernel.PanelRef{Object: oa, Panel: ha.Panel, IQ: ha.IQ},
				kernel.PanelRef{Object: ob, Panel: hb.Panel, IQ: hb.IQ},
				k,
			)
			if err != nil {
				return 0, 0, err
			}
			w := complex(ha.Sign*hb.Sign*ha.Length*hb.Length, 0)
			g += w * ppi.G
			c += w * ppi.C
		}
	}
	return g, c, nil
}

// FlipSignOfMagneticColumns negates the odd (magnetic) columns of a block
// whose column object is penetrable.
func FlipSignOfMagneticColumns(dst *mat.CDense) {
	r, c := dst.Dims()
	for j := 1; j < c; j += 2 {
		for i := 0; i < r; i++ {
			dst.Set(i, j, -dst.At(i, j))
		}
	}
}
