package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/material"
)

type (
	VertexID int
	PanelID  int
	EdgeID   int
)

const NoPanel PanelID = -1

type Panel struct {
	VI       [3]VertexID
	Centroid r3.Vec
	ZHat     r3.Vec  // unit normal, right-handed in VI order
	Area     float64 // triangle area
	Radius   float64 // max centroid-vertex distance
}

// Edge is an RWG basis function (interior edge, two panels) or a half-RWG
// boundary edge (MPanel == NoPanel). PIndex/MIndex are the local indices of
// the vertices opposite the edge in the respective panels.
type Edge struct {
	V1, V2   VertexID
	PPanel   PanelID
	MPanel   PanelID
	PIndex   int
	MIndex   int
	Length   float64
	Centroid r3.Vec
}

func (e Edge) IsExterior() bool { return e.MPanel == NoPanel }

type Object struct {
	Label        string
	MeshFileName string
	Material     material.Material

	Vertices      []r3.Vec
	Panels        []Panel
	Edges         []Edge
	ExteriorEdges []Edge
}

type edgeKey struct{ lo, hi VertexID }

type edgeSide struct {
	panel PanelID
	iQ    int
}

// NewObject builds panels and RWG edges from a triangle list. Interior edges
// become basis functions in order of first appearance; edges bounding a
// single panel become exterior edges.
func NewObject(label string, vertices []r3.Vec, triangles [][3]int, mat material.Material) (*Object, error) {
	if mat == nil {
		mat = material.PEC{}
	}
	o := &Object{
		Label:    label,
		Material: mat,
		Vertices: append([]r3.Vec(nil), vertices...),
		Panels:   make([]Panel, len(triangles)),
	}

	order := make([]edgeKey, 0, 3*len(triangles)/2)
	sides := make(map[edgeKey][]edgeSide)
	for np, tri := range triangles {
		for i := 0; i < 3; i++ {
			if tri[i] < 0 || tri[i] >= len(vertices) {
				return nil, fmt.Errorf("object %s: panel %d references vertex %d of %d", label, np, tri[i], len(vertices))
			}
			o.Panels[np].VI[i] = VertexID(tri[i])
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return nil, fmt.Errorf("object %s: panel %d is degenerate", label, np)
		}

		for iQ := 0; iQ < 3; iQ++ {
			a, b := VertexID(tri[(iQ+1)%3]), VertexID(tri[(iQ+2)%3])
			key := edgeKey{a, b}
			if b < a {
				key = edgeKey{b, a}
			}
			if _, seen := sides[key]; !seen {
				order = append(order, key)
			}
			sides[key] = append(sides[key], edgeSide{panel: PanelID(np), iQ: iQ})
		}
	}

	for _, key := range order {
		s := sides[key]
		switch len(s) {
		case 1:
			o.ExteriorEdges = append(o.ExteriorEdges, Edge{
				V1: key.lo, V2: key.hi,
				PPanel: s[0].panel, PIndex: s[0].iQ,
				MPanel: NoPanel, MIndex: -1,
			})
		case 2:
			o.Edges = append(o.Edges, Edge{
				V1: key.lo, V2: key.hi,
				PPanel: s[0].panel, PIndex: s[0].iQ,
				MPanel: s[1].panel, MIndex: s[1].iQ,
			})
		default:
			return nil, fmt.Errorf("object %s: non-manifold edge (%d,%d) shared by %d panels", label, key.lo, key.hi, len(s))
		}
	}

	o.updateDerived()
	return o, nil
}

// updateDerived recomputes panel and edge quantities from vertex positions.
func (o *Object) updateDerived() {
	for np := range o.Panels {
		p := &o.Panels[np]
		tri := o.PanelTriangle(PanelID(np))
		p.Centroid = tri.Centroid()
		n := tri.Normal()
		p.Area = 0.5 * r3.Norm(n)
		p.ZHat = r3.Unit(n)
		p.Radius = 0
		for _, v := range tri {
			if d := r3.Norm(r3.Sub(v, p.Centroid)); d > p.Radius {
				p.Radius = d
			}
		}
	}
	for _, edges := range [][]Edge{o.Edges, o.ExteriorEdges} {
		for ne := range edges {
			e := &edges[ne]
			v1, v2 := o.Vertices[e.V1], o.Vertices[e.V2]
			e.Length = r3.Norm(r3.Sub(v2, v1))
			e.Centroid = r3.Scale(0.5, r3.Add(v1, v2))
		}
	}
}

func (o *Object) NumEdges() int { return len(o.Edges) }

func (o *Object) NumExteriorEdges() int { return len(o.ExteriorEdges) }

func (o *Object) IsPEC() bool { return material.IsPEC(o.Material) }

// BFsPerEdge is 1 for PEC objects (electric currents only) and 2 otherwise
// (electric and magnetic currents).
func (o *Object) BFsPerEdge() int {
	if o.IsPEC() {
		return 1
	}
	return 2
}

func (o *Object) NumBFs() int { return o.BFsPerEdge() * len(o.Edges) }

func (o *Object) PanelTriangle(np PanelID) r3.Triangle {
	vi := o.Panels[np].VI
	return r3.Triangle{o.Vertices[vi[0]], o.Vertices[vi[1]], o.Vertices[vi[2]]}
}

// QVertex is the panel vertex with local index iQ.
func (o *Object) QVertex(np PanelID, iQ int) r3.Vec {
	return o.Vertices[o.Panels[np].VI[iQ]]
}

// EdgeVertices returns the endpoints of the edge opposite local vertex iQ.
func (o *Object) EdgeVertices(np PanelID, iQ int) (r3.Vec, r3.Vec) {
	vi := o.Panels[np].VI
	return o.Vertices[vi[(iQ+1)%3]], o.Vertices[vi[(iQ+2)%3]]
}

func (o *Object) clone() *Object {
	c := *o
	c.Vertices = append([]r3.Vec(nil), o.Vertices...)
	c.Panels = append([]Panel(nil), o.Panels...)
	c.Edges = append([]Edge(nil), o.Edges...)
	c.ExteriorEdges = append([]Edge(nil), o.ExteriorEdges...)
	return &c
}
