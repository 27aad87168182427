package geometry

import (
	"fmt"
	"strings"

	"github.com/edp1096/toy-bem/pkg/material"
)

// Geometry is an ordered set of objects embedded in an exterior medium.
// Basis functions are numbered object by object; BFIndexOffset gives the
// first global index of each object.
type Geometry struct {
	GeoFileName string
	Exterior    material.Material
	Objects     []*Object

	bfOffset []int
	totalBFs int

	// transform state
	transformed bool
	moved       []bool
	lastOps     [][]Op
	havePrev    bool
	snapshots   []*Object
}

func NewGeometry(exterior material.Material, objects ...*Object) (*Geometry, error) {
	if len(objects) == 0 {
		return nil, fmt.Errorf("geometry has no objects")
	}
	if exterior == nil {
		exterior = material.Vacuum{}
	}
	if material.IsPEC(exterior) {
		return nil, fmt.Errorf("exterior medium may not be PEC")
	}

	seen := make(map[string]bool)
	for _, o := range objects {
		key := strings.ToLower(o.Label)
		if seen[key] {
			return nil, fmt.Errorf("duplicate object label %s", o.Label)
		}
		seen[key] = true
	}

	g := &Geometry{
		Exterior: exterior,
		Objects:  objects,
		bfOffset: make([]int, len(objects)),
		moved:    make([]bool, len(objects)),
		lastOps:  make([][]Op, len(objects)),
	}
	for no, o := range objects {
		g.bfOffset[no] = g.totalBFs
		g.totalBFs += o.NumBFs()
	}
	return g, nil
}

func (g *Geometry) NumObjects() int { return len(g.Objects) }

func (g *Geometry) BFIndexOffset(no int) int { return g.bfOffset[no] }

func (g *Geometry) TotalBFs() int { return g.totalBFs }

// ObjectByLabel does a case-insensitive lookup and returns the object and
// its index, or nil and -1.
func (g *Geometry) ObjectByLabel(label string) (*Object, int) {
	for no, o := range g.Objects {
		if strings.EqualFold(o.Label, label) {
			return o, no
		}
	}
	return nil, -1
}

func (g *Geometry) ObjectIndex(o *Object) int {
	for no, p := range g.Objects {
		if p == o {
			return no
		}
	}
	return -1
}

func (g *Geometry) ObjectMoved(no int) bool { return g.moved[no] }

// Moved returns a copy of the moved flags.
func (g *Geometry) Moved() []bool { return append([]bool(nil), g.moved...) }

// Clone returns a deep copy usable concurrently with the receiver.
func (g *Geometry) Clone() *Geometry {
	c := &Geometry{
		GeoFileName: g.GeoFileName,
		Exterior:    g.Exterior,
		Objects:     make([]*Object, len(g.Objects)),
		bfOffset:    append([]int(nil), g.bfOffset...),
		totalBFs:    g.totalBFs,
		transformed: g.transformed,
		moved:       append([]bool(nil), g.moved...),
		lastOps:     make([][]Op, len(g.lastOps)),
		havePrev:    g.havePrev,
	}
	for no, o := range g.Objects {
		c.Objects[no] = o.clone()
	}
	for no, ops := range g.lastOps {
		c.lastOps[no] = append([]Op(nil), ops...)
	}
	if g.snapshots != nil {
		c.snapshots = make([]*Object, len(g.snapshots))
		for no, s := range g.snapshots {
			c.snapshots[no] = s.clone()
		}
	}
	return c
}
