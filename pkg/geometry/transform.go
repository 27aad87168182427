package geometry

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

type OpKind int

const (
	Displace OpKind = iota
	Rotate
)

// Op is one rigid-body step. Rotations are about an axis through the origin;
// Angle is in degrees.
type Op struct {
	Kind         OpKind
	Displacement r3.Vec
	Axis         r3.Vec
	Angle        float64
}

func Displacement(dx, dy, dz float64) Op {
	return Op{Kind: Displace, Displacement: r3.Vec{X: dx, Y: dy, Z: dz}}
}

func Rotation(angle float64, axis r3.Vec) Op {
	return Op{Kind: Rotate, Axis: axis, Angle: angle}
}

func (op Op) apply(v r3.Vec) r3.Vec {
	switch op.Kind {
	case Rotate:
		return r3.NewRotation(op.Angle*math.Pi/180.0, op.Axis).Rotate(v)
	default:
		return r3.Add(v, op.Displacement)
	}
}

func (op Op) String() string {
	if op.Kind == Rotate {
		return fmt.Sprintf("ROTATED %g ABOUT %g %g %g", op.Angle, op.Axis.X, op.Axis.Y, op.Axis.Z)
	}
	return fmt.Sprintf("DISPLACED %g %g %g", op.Displacement.X, op.Displacement.Y, op.Displacement.Z)
}

func sameOps(a, b []Op) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Transformation is a named set of per-object placements. Objects absent
// from Ops take AllOps (nil AllOps is the identity).
type Transformation struct {
	Tag    string
	AllOps []Op
	Ops    map[string][]Op // keyed by lower-case object label
}

func NewTransformation(tag string) *Transformation {
	return &Transformation{Tag: tag, Ops: make(map[string][]Op)}
}

// AddOps appends ops for one object, or for every object when label is empty.
func (t *Transformation) AddOps(label string, ops ...Op) {
	if label == "" {
		t.AllOps = append(t.AllOps, ops...)
		return
	}
	if t.Ops == nil {
		t.Ops = make(map[string][]Op)
	}
	key := strings.ToLower(label)
	t.Ops[key] = append(t.Ops[key], ops...)
}

func (t *Transformation) placement(label string) []Op {
	if ops, ok := t.Ops[strings.ToLower(label)]; ok {
		return ops
	}
	return t.AllOps
}

// Transform applies t in place. ObjectMoved(no) afterwards reports whether
// object no is placed differently than under the previous transformation;
// on the first call every object counts as moved.
func (g *Geometry) Transform(t *Transformation) error {
	if g.transformed {
		return fmt.Errorf("transform %s: geometry is already transformed", t.Tag)
	}
	for label := range t.Ops {
		if o, _ := g.ObjectByLabel(label); o == nil {
			return fmt.Errorf("transform %s: unknown object %s", t.Tag, label)
		}
	}

	g.snapshots = make([]*Object, len(g.Objects))
	for no, o := range g.Objects {
		g.snapshots[no] = o.clone()

		ops := t.placement(o.Label)
		g.moved[no] = !g.havePrev || !sameOps(ops, g.lastOps[no])
		g.lastOps[no] = append([]Op(nil), ops...)

		if len(ops) == 0 {
			continue
		}
		for nv, v := range o.Vertices {
			for _, op := range ops {
				v = op.apply(v)
			}
			o.Vertices[nv] = v
		}
		o.updateDerived()
	}
	g.havePrev = true
	g.transformed = true
	return nil
}

// UnTransform restores the snapshot taken by Transform, bit for bit.
func (g *Geometry) UnTransform() {
	if !g.transformed {
		return
	}
	for no, s := range g.snapshots {
		o := g.Objects[no]
		copy(o.Vertices, s.Vertices)
		copy(o.Panels, s.Panels)
		copy(o.Edges, s.Edges)
		copy(o.ExteriorEdges, s.ExteriorEdges)
	}
	g.snapshots = nil
	g.transformed = false
}

// ResetMoved forgets the previous placement so the next Transform marks
// every object as moved.
func (g *Geometry) ResetMoved() {
	g.havePrev = false
	for no := range g.lastOps {
		g.lastOps[no] = nil
		g.moved[no] = false
	}
}
