package port

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/internal/consts"
	"github.com/edp1096/toy-bem/pkg/geometry"
)

// Edge is one boundary edge on a port side, as seen from its only panel.
type Edge struct {
	Panel     geometry.PanelID
	IQ        int
	Length    float64
	EdgeIndex int // index into the object's ExteriorEdges
}

// Port is a localized current injection across a cut in the surface mesh.
// Current enters through the P edges and leaves through the M edges.
type Port struct {
	PObject, MObject *geometry.Object

	PEdges, MEdges         []Edge
	PPerimeter, MPerimeter float64
	PRefPoint, MRefPoint   r3.Vec
}

// NewPort collects the exterior edges pEdges of pObj and mEdges of mObj.
// The reference point of each side defaults to the centroid of its first
// edge.
func NewPort(pObj *geometry.Object, pEdges []int, mObj *geometry.Object, mEdges []int) (*Port, error) {
	p := &Port{PObject: pObj, MObject: mObj}

	var err error
	p.PEdges, p.PPerimeter, p.PRefPoint, err = collectEdges(pObj, pEdges, "P")
	if err != nil {
		return nil, err
	}
	p.MEdges, p.MPerimeter, p.MRefPoint, err = collectEdges(mObj, mEdges, "M")
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectEdges(o *geometry.Object, indices []int, side string) ([]Edge, float64, r3.Vec, error) {
	var (
		edges     []Edge
		perimeter float64
		ref       r3.Vec
	)
	if len(indices) > 0 && o == nil {
		return nil, 0, ref, fmt.Errorf("%s edges given without an object", side)
	}
	for n, ei := range indices {
		if ei < 0 || ei >= o.NumExteriorEdges() {
			return nil, 0, ref, fmt.Errorf("%w: %s edge %d: object %s has %d exterior edges",
				ErrEdgeIndex, side, ei, o.Label, o.NumExteriorEdges())
		}
		e := o.ExteriorEdges[ei]
		edges = append(edges, Edge{Panel: e.PPanel, IQ: e.PIndex, Length: e.Length, EdgeIndex: ei})
		perimeter += e.Length
		if n == 0 {
			ref = e.Centroid
		}
	}
	return edges, perimeter, ref, nil
}

// PointOnLineSegment reports whether x lies within 1e-6 segment lengths of
// the segment l1-l2. Only squared distances are compared, so the result does
// not change under uniform scaling and does not depend on which end is l1.
func PointOnLineSegment(x, l1, l2 r3.Vec) bool {
	a := r3.Sub(x, l1)
	b := r3.Sub(l2, l1)
	b2 := r3.Norm2(b)
	tol := consts.SEGTOL2 * b2

	if b2 == 0 {
		return x == l1
	}

	adb := r3.Dot(a, b)
	var d2 float64
	switch {
	case adb <= 0:
		d2 = r3.Norm2(a)
	case adb >= b2:
		d2 = r3.Norm2(r3.Sub(x, l2))
	default:
		d2 = r3.Norm2(a) - adb*adb/b2
	}
	return d2 < tol
}

// FindEdgesOnLine returns the exterior edges of o whose endpoints both lie
// on the polyline given as segments. The two endpoints may sit on different
// segments.
func FindEdgesOnLine(o *geometry.Object, lines [][2]r3.Vec) []int {
	var found []int
	for nei, e := range o.ExteriorEdges {
		v1, v2 := o.Vertices[e.V1], o.Vertices[e.V2]
		onV1, onV2 := false, false
		for _, l := range lines {
			if !onV1 && PointOnLineSegment(v1, l[0], l[1]) {
				onV1 = true
			}
			if !onV2 && PointOnLineSegment(v2, l[0], l[1]) {
				onV2 = true
			}
			if onV1 && onV2 {
				found = append(found, nei)
				break
			}
		}
	}
	return found
}
