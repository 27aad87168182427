package port

import (
	"bytes"
	"fmt"
	"math"
	"math/cmplx"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
	"github.com/edp1096/toy-bem/pkg/material"
)

// strip meshes the rectangle [0,nx]x[0,ny] in the z=0 plane with two
// triangles per unit square, shifted by offset.
func strip(t *testing.T, label string, nx, ny int, offset r3.Vec) *geometry.Object {
	t.Helper()
	var vertices []r3.Vec
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			vertices = append(vertices, r3.Add(offset, r3.Vec{X: float64(i), Y: float64(j)}))
		}
	}
	id := func(i, j int) int { return j*(nx+1) + i }
	var tris [][3]int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			tris = append(tris,
				[3]int{id(i, j), id(i+1, j), id(i+1, j+1)},
				[3]int{id(i, j), id(i+1, j+1), id(i, j+1)})
		}
	}
	o, err := geometry.NewObject(label, vertices, tris, material.PEC{})
	require.NoError(t, err)
	return o
}

func twoStrips(t *testing.T) *geometry.Geometry {
	t.Helper()
	g, err := geometry.NewGeometry(nil,
		strip(t, "A", 4, 2, r3.Vec{}),
		strip(t, "B", 4, 2, r3.Vec{Z: 2}))
	require.NoError(t, err)
	return g
}

// edgeOnX reports whether both endpoints of exterior edge ei have x == x0.
func edgeOnX(o *geometry.Object, ei int, x0 float64) bool {
	e := o.ExteriorEdges[ei]
	return o.Vertices[e.V1].X == x0 && o.Vertices[e.V2].X == x0
}

func TestPointOnLineSegment(t *testing.T) {
	l1 := r3.Vec{X: 1, Y: 2, Z: 3}
	l2 := r3.Vec{X: 4, Y: -2, Z: 3}
	along := func(s float64) r3.Vec { return r3.Add(l1, r3.Scale(s, r3.Sub(l2, l1))) }
	perp := r3.Vec{X: 4, Y: 3} // normal to l2-l1, length 5 = segment length

	cases := []struct {
		name string
		x    r3.Vec
		want bool
	}{
		{"first endpoint", l1, true},
		{"second endpoint", l2, true},
		{"middle", along(0.5), true},
		{"quarter", along(0.25), true},
		{"just off the line", r3.Add(along(0.5), r3.Scale(1e-8, perp)), true},
		{"off the line", r3.Add(along(0.5), r3.Scale(1e-4, perp)), false},
		{"before the start", along(-0.01), false},
		{"past the end", along(1.01), false},
		{"same distance as l2 from l1", r3.Add(l1, perp), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PointOnLineSegment(tc.x, l1, l2))
			assert.Equal(t, tc.want, PointOnLineSegment(tc.x, l2, l1), "swapped ends")
			for _, s := range []float64{1024, 1.0 / 1024} {
				assert.Equal(t, tc.want, PointOnLineSegment(r3.Scale(s, tc.x), r3.Scale(s, l1), r3.Scale(s, l2)), "scale %g", s)
			}
		})
	}
}

func TestFindEdgesOnLine(t *testing.T) {
	o := strip(t, "A", 4, 3, r3.Vec{})
	left := func(y0, y1 float64) [2]r3.Vec { return [2]r3.Vec{{Y: y0}, {Y: y1}} }

	t.Run("whole side", func(t *testing.T) {
		found := FindEdgesOnLine(o, [][2]r3.Vec{left(0, 3)})
		require.Len(t, found, 3)
		for _, ei := range found {
			assert.True(t, edgeOnX(o, ei, 0))
		}
	})

	t.Run("edges with one endpoint on the line are excluded", func(t *testing.T) {
		found := FindEdgesOnLine(o, [][2]r3.Vec{left(0, 1.5)})
		require.Len(t, found, 1)
		e := o.ExteriorEdges[found[0]]
		ys := []float64{o.Vertices[e.V1].Y, o.Vertices[e.V2].Y}
		assert.ElementsMatch(t, []float64{0, 1}, ys)
	})

	t.Run("endpoints on different segments", func(t *testing.T) {
		found := FindEdgesOnLine(o, [][2]r3.Vec{left(0, 0.5), left(0.5, 1)})
		assert.Len(t, found, 1)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, FindEdgesOnLine(o, [][2]r3.Vec{{{X: 2, Y: 1}, {X: 2, Y: 2}}}))
	})
}

func TestNewPort(t *testing.T) {
	o := strip(t, "A", 2, 2, r3.Vec{})
	left := FindEdgesOnLine(o, [][2]r3.Vec{{{}, {Y: 2}}})
	right := FindEdgesOnLine(o, [][2]r3.Vec{{{X: 2}, {X: 2, Y: 2}}})

	p, err := NewPort(o, left, o, right)
	require.NoError(t, err)
	assert.Len(t, p.PEdges, 2)
	assert.Len(t, p.MEdges, 2)
	assert.InDelta(t, 2.0, p.PPerimeter, 1e-15)
	assert.InDelta(t, 2.0, p.MPerimeter, 1e-15)
	assert.Equal(t, o.ExteriorEdges[left[0]].Centroid, p.PRefPoint)
	assert.Equal(t, 0.0, p.PRefPoint.X)
	assert.Equal(t, 2.0, p.MRefPoint.X)
	for _, e := range p.PEdges {
		v1, v2 := o.EdgeVertices(e.Panel, e.IQ)
		assert.Equal(t, 0.0, v1.X)
		assert.Equal(t, 0.0, v2.X)
	}

	_, err = NewPort(o, []int{o.NumExteriorEdges()}, o, right)
	assert.ErrorIs(t, err, ErrEdgeIndex)
	_, err = NewPort(o, left, o, []int{-1})
	assert.ErrorIs(t, err, ErrEdgeIndex)
}

func TestParse(t *testing.T) {
	g := twoStrips(t)

	t.Run("edges, lines and overrides", func(t *testing.T) {
		src := `
# feed
PORT
  PLINE from 0 0 0 to 0 2 0
  mline FROM 4 0 0 TO 4 2 0
  MREFPOINT 4 1 0.5
ENDPORT

port
  POBJECT b
  MOBJECT B
  PEDGES 0 1
  PREFPOINT 9 9 9
endport
`
		ports, err := (&Parser{}).Parse(g, strings.NewReader(src), "feed.port")
		require.NoError(t, err)
		require.Len(t, ports, 2)

		a, b := g.Objects[0], g.Objects[1]
		p0 := ports[0]
		assert.Same(t, a, p0.PObject)
		assert.Same(t, a, p0.MObject)
		require.Len(t, p0.PEdges, 2)
		require.Len(t, p0.MEdges, 2)
		for _, e := range p0.PEdges {
			assert.True(t, edgeOnX(a, e.EdgeIndex, 0))
		}
		for _, e := range p0.MEdges {
			assert.True(t, edgeOnX(a, e.EdgeIndex, 4))
		}
		assert.Equal(t, r3.Vec{X: 4, Y: 1, Z: 0.5}, p0.MRefPoint)
		assert.Equal(t, 0.0, p0.PRefPoint.X)

		p1 := ports[1]
		assert.Same(t, b, p1.PObject)
		assert.Same(t, b, p1.MObject)
		assert.Equal(t, []int{0, 1}, []int{p1.PEdges[0].EdgeIndex, p1.PEdges[1].EdgeIndex})
		assert.Empty(t, p1.MEdges)
		assert.Equal(t, r3.Vec{X: 9, Y: 9, Z: 9}, p1.PRefPoint)
	})

	bad := []struct {
		name string
		src  string
		kind error
		line int
	}{
		{"edges and line", "PORT\n PLINE FROM 0 0 0 TO 0 2 0\n\n PEDGES 1 2\nENDPORT\n", ErrConflict, 4},
		{"line and edges", "PORT\n MEDGES 1\n MLINE FROM 0 0 0 TO 0 2 0\nENDPORT\n", ErrConflict, 3},
		{"unknown object", "PORT\n POBJECT C\nENDPORT\n", ErrUnknownObject, 2},
		{"edge out of range", "PORT\n PEDGES 0 99\nENDPORT\n", ErrEdgeIndex, 3},
		{"bad edge token", "PORT\n PEDGES 0 x\nENDPORT\n", ErrSyntax, 2},
		{"bad line syntax", "PORT\n PLINE 0 0 0 TO 0 2 0\nENDPORT\n", ErrSyntax, 2},
		{"bad ref point", "PORT\n PREFPOINT 1 2\nENDPORT\n", ErrSyntax, 2},
		{"outside block", "PEDGES 1\n", ErrSyntax, 1},
		{"unknown keyword", "PORT\n EDGES 1\nENDPORT\n", ErrSyntax, 2},
		{"unterminated", "\nPORT\n PEDGES 1\n", ErrSyntax, 2},
		{"repeated edges", "PORT\n PEDGES 1\n PEDGES 2\nENDPORT\n", ErrSyntax, 3},
		{"empty edge list", "PORT\n PEDGES\n PLINE FROM 0 0 0 TO 0 2 0\nENDPORT\n", ErrSyntax, 2},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			ports, err := (&Parser{}).Parse(g, strings.NewReader(tc.src), "bad.port")
			assert.Nil(t, ports)
			require.ErrorIs(t, err, tc.kind)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad.port", pe.File)
			assert.Equal(t, tc.line, pe.Line)
			assert.True(t, strings.HasPrefix(err.Error(), "bad.port:"))
		})
	}

	t.Run("limits", func(t *testing.T) {
		ps := &Parser{MaxEdges: 2, MaxLines: 1}
		_, err := ps.Parse(g, strings.NewReader("PORT\n PEDGES 0 1 2\nENDPORT\n"), "x")
		assert.ErrorIs(t, err, ErrTooMany)
		_, err = ps.Parse(g, strings.NewReader("PORT\n PLINE FROM 0 0 0 TO 0 1 0\n PLINE FROM 0 1 0 TO 0 2 0\nENDPORT\n"), "x")
		assert.ErrorIs(t, err, ErrTooMany)
		ports, err := ps.Parse(g, strings.NewReader("PORT\n PEDGES 0 1\nENDPORT\n"), "x")
		require.NoError(t, err)
		assert.Len(t, ports, 1)

		// edges found on a line count against the same bound
		_, err = (&Parser{MaxEdges: 1}).Parse(g, strings.NewReader("PORT\n PLINE FROM 0 0 0 TO 0 2 0\nENDPORT\n"), "x")
		require.ErrorIs(t, err, ErrTooMany)
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 3, pe.Line)
		ports, err = (&Parser{MaxEdges: 2}).Parse(g, strings.NewReader("PORT\n PLINE FROM 0 0 0 TO 0 2 0\nENDPORT\n"), "x")
		require.NoError(t, err)
		require.Len(t, ports, 1)
		assert.Len(t, ports[0].PEdges, 2)
	})

	t.Run("error kinds", func(t *testing.T) {
		_, err := NewPort(g.Objects[0], []int{99}, g.Objects[0], nil)
		assert.Equal(t, ErrEdgeIndex, errorKind(err))
		_, err = NewPort(nil, []int{0}, g.Objects[0], nil)
		assert.Equal(t, ErrSyntax, errorKind(err))
		assert.Equal(t, ErrTooMany, errorKind(fmt.Errorf("%w: 3 edges", ErrTooMany)))
	})

	t.Run("file", func(t *testing.T) {
		_, err := ParsePortFile(g, filepath.Join(t.TempDir(), "missing.port"))
		assert.Error(t, err)
	})
}

func feedPorts(t *testing.T, g *geometry.Geometry) []*Port {
	t.Helper()
	src := `
PORT
 PLINE FROM 0 0 0 TO 0 2 0
 MLINE FROM 4 0 0 TO 4 2 0
ENDPORT
PORT
 POBJECT B
 MOBJECT B
 PLINE FROM 0 0 2 TO 0 2 2
 MLINE FROM 4 0 2 TO 4 2 2
ENDPORT
`
	ports, err := (&Parser{}).Parse(g, strings.NewReader(src), "feed.port")
	require.NoError(t, err)
	require.Len(t, ports, 2)
	return ports
}

func TestAddPortContributionsToRHS(t *testing.T) {
	g := twoStrips(t)
	ports := feedPorts(t, g)
	n := g.TotalBFs()
	omega := complex(1.3, 0)
	kern := kernel.NewCache(kernel.Helmholtz{})

	rhs := func(currents []complex128, ports []*Port) []complex128 {
		kn := make([]complex128, n)
		require.NoError(t, AddPortContributionsToRHS(g, ports, currents, omega, kern, kn))
		return kn
	}

	base := rhs([]complex128{complex(1, 0.5), 0}, ports)
	nonzero := 0
	for _, v := range base {
		assert.False(t, cmplx.IsNaN(v) || cmplx.IsInf(v))
		if v != 0 {
			nonzero++
		}
	}
	assert.Positive(t, nonzero)

	t.Run("zero current equals omitting the port", func(t *testing.T) {
		assert.Equal(t, base, rhs([]complex128{complex(1, 0.5)}, ports[:1]))
	})

	t.Run("linear in current", func(t *testing.T) {
		scale := complex(-2.5, 1)
		scaled := rhs([]complex128{scale * complex(1, 0.5), 0}, ports)
		for i := range base {
			assert.InDelta(t, 0, cmplx.Abs(scaled[i]-scale*base[i]), 1e-12*math.Max(1, cmplx.Abs(scaled[i])))
		}

		both := rhs([]complex128{complex(1, 0.5), 2}, ports)
		second := rhs([]complex128{0, 2}, ports)
		for i := range base {
			assert.InDelta(t, 0, cmplx.Abs(both[i]-base[i]-second[i]), 1e-12*math.Max(1, cmplx.Abs(both[i])))
		}
	})

	t.Run("adds to the existing vector", func(t *testing.T) {
		kn := make([]complex128, n)
		for i := range kn {
			kn[i] = 1
		}
		require.NoError(t, AddPortContributionsToRHS(g, ports, []complex128{complex(1, 0.5), 0}, omega, kern, kn))
		for i := range kn {
			assert.Equal(t, 1+base[i], kn[i])
		}
	})

	t.Run("bad lengths", func(t *testing.T) {
		assert.Error(t, AddPortContributionsToRHS(g, ports, []complex128{1}, omega, kern, make([]complex128, n)))
		assert.Error(t, AddPortContributionsToRHS(g, ports, []complex128{1, 1}, omega, kern, make([]complex128, n-1)))
	})
}

func TestPlotPorts(t *testing.T) {
	g := twoStrips(t)
	ports := feedPorts(t, g)

	var buf bytes.Buffer
	require.NoError(t, PlotPorts(&buf, ports))
	segments := 0
	for _, p := range ports {
		segments += len(p.PEdges) + len(p.MEdges)
	}
	points := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.TrimSpace(line) != "" {
			points++
		}
	}
	assert.Equal(t, 2*len(ports)+2*segments, points)

	path := filepath.Join(t.TempDir(), "ports.png")
	require.NoError(t, PlotPortsImage(path, ports))
	assert.FileExists(t, path)
}

func TestDrawGMSHCircle(t *testing.T) {
	var buf bytes.Buffer
	x0 := r3.Vec{X: 1, Y: 2, Z: 3}
	require.NoError(t, DrawGMSHCircle(&buf, "feed", x0, 0.3, 1.1, 0.5))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, `View "feed" {`, lines[0])
	assert.Equal(t, "};", lines[len(lines)-1])
	assert.Len(t, lines, 102)
	assert.True(t, strings.HasPrefix(lines[1], "SL("))
}
