package port

import (
	"fmt"
	"math/cmplx"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
)

// AddPortContributionsToRHS adds to kn the excitation produced by driving
// port i with currents[i] at angular frequency omega. The current on each
// port side is spread uniformly over its perimeter. Entries are added to the
// electric component of every edge basis function; kn must have length
// g.TotalBFs(). Ports with zero current are skipped.
func AddPortContributionsToRHS(g *geometry.Geometry, ports []*Port, currents []complex128,
	omega complex128, kern kernel.Kernel, kn []complex128) error {
	if len(currents) != len(ports) {
		return fmt.Errorf("%d port currents for %d ports", len(currents), len(ports))
	}
	if len(kn) != g.TotalBFs() {
		return fmt.Errorf("rhs length %d, want %d", len(kn), g.TotalBFs())
	}
	if kern == nil {
		kern = kernel.Helmholtz{}
	}

	eps, mu := g.Exterior.EpsMu(omega)
	k := omega * cmplx.Sqrt(eps*mu)
	ik := complex(0, 1) * k

	for no, dest := range g.Objects {
		offset := g.BFIndexOffset(no)
		for ne := range dest.Edges {
			halves := dest.HalfRWGs(geometry.EdgeID(ne))

			var field complex128
			for np, p := range ports {
				current := currents[np]
				if current == 0 {
					continue
				}
				for _, s := range []struct {
					obj       *geometry.Object
					edges     []Edge
					perimeter float64
					sign      float64
				}{
					{p.PObject, p.PEdges, p.PPerimeter, 1},
					{p.MObject, p.MEdges, p.MPerimeter, -1},
				} {
					if len(s.edges) == 0 {
						continue
					}
					weight := current / complex(s.perimeter, 0)
					for _, pe := range s.edges {
						src := kernel.PanelRef{Object: s.obj, Panel: pe.Panel, IQ: pe.IQ}
						for _, h := range halves {
							ppi, err := kern.Interact(src, kernel.PanelRef{Object: dest, Panel: h.Panel, IQ: h.IQ}, k)
							if err != nil {
								return err
							}
							// the port's P edges are the negative panels of the
							// straddling basis function
							field -= complex(s.sign*h.Sign*pe.Length*h.Length, 0) * weight * ik * ppi.G
						}
					}
				}
			}
			kn[offset+ne*dest.BFsPerEdge()] -= field
		}
	}
	return nil
}
