package port

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/toy-bem/pkg/geometry"
)

// PlotPorts writes gnuplot data blocks: the two reference points of each
// port, then one segment per port edge.
func PlotPorts(w io.Writer, ports []*Port) error {
	bw := bufio.NewWriter(w)
	for _, p := range ports {
		fmt.Fprintf(bw, "%e %e %e \n\n\n", p.PRefPoint.X, p.PRefPoint.Y, p.PRefPoint.Z)
		fmt.Fprintf(bw, "%e %e %e \n\n\n\n\n", p.MRefPoint.X, p.MRefPoint.Y, p.MRefPoint.Z)
		for _, s := range p.sides() {
			for _, e := range s.edges {
				v1, v2 := s.obj.EdgeVertices(e.Panel, e.IQ)
				fmt.Fprintf(bw, "%e %e %e \n", v1.X, v1.Y, v1.Z)
				fmt.Fprintf(bw, "%e %e %e \n", v2.X, v2.Y, v2.Z)
				fmt.Fprint(bw, "\n\n")
			}
		}
	}
	return bw.Flush()
}

// PlotPortsImage saves an x-y projection of the port edges and reference
// points. The format follows the file extension (png, svg, pdf, ...).
func PlotPortsImage(path string, ports []*Port) error {
	p := plot.New()
	p.Title.Text = "Ports"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for np, port := range ports {
		for ns, s := range port.sides() {
			for _, e := range s.edges {
				v1, v2 := s.obj.EdgeVertices(e.Panel, e.IQ)
				line, err := plotter.NewLine(plotter.XYs{{X: v1.X, Y: v1.Y}, {X: v2.X, Y: v2.Y}})
				if err != nil {
					return err
				}
				if ns == 1 {
					line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
				}
				p.Add(line)
			}
		}

		refs, err := plotter.NewScatter(plotter.XYs{
			{X: port.PRefPoint.X, Y: port.PRefPoint.Y},
			{X: port.MRefPoint.X, Y: port.MRefPoint.Y},
		})
		if err != nil {
			return err
		}
		p.Add(refs)
		p.Legend.Add(fmt.Sprintf("port %d", np), refs)
	}

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// DrawGMSHCircle writes a Gmsh post-processing view named name: a circle of
// the given radius about x0, in the plane normal to the direction (theta,
// phi).
func DrawGMSHCircle(w io.Writer, name string, x0 r3.Vec, theta, phi, radius float64) error {
	ct, st := math.Cos(theta), math.Sin(theta)
	cp, sp := math.Cos(phi), math.Sin(phi)
	// rows are the images of the local x, y, z axes
	axes := [3]r3.Vec{
		{X: ct * cp, Y: ct * sp, Z: -st},
		{X: -sp, Y: cp, Z: 0},
		{X: st * cp, Y: st * sp, Z: ct},
	}
	at := func(psi float64) r3.Vec {
		x := r3.Add(x0, r3.Scale(radius*math.Cos(psi), axes[0]))
		return r3.Add(x, r3.Scale(radius*math.Sin(psi), axes[1]))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "View \"%s\" {\n", name)
	const steps = 100
	dpsi := 2 * math.Pi / steps
	for i := 0; i < steps; i++ {
		x1, x2 := at(float64(i)*dpsi), at(float64(i+1)*dpsi)
		fmt.Fprintf(bw, "SL(%e,%e,%e,%e,%e,%e) {%e,%e};\n", x1.X, x1.Y, x1.Z, x2.X, x2.Y, x2.Z, 0.0, 0.0)
	}
	fmt.Fprint(bw, "};\n")
	return bw.Flush()
}

type portSide struct {
	obj   *geometry.Object
	edges []Edge
}

func (p *Port) sides() [2]portSide {
	return [2]portSide{{p.PObject, p.PEdges}, {p.MObject, p.MEdges}}
}
