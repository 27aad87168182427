package util

import "gonum.org/v1/gonum/spatial/r3"

type QuadratureOrder int

const (
	CentroidRule QuadratureOrder = iota // degree 1
	MidpointRule                        // degree 2
	DunavantRule                        // degree 5
)

// TriangleRule holds barycentric abscissae and weights normalized to a
// unit-area triangle (weights sum to one).
type TriangleRule struct {
	Points  [][3]float64
	Weights []float64
}

const (
	dunavantA1 = 0.059715871789770
	dunavantB1 = 0.470142064105115
	dunavantW1 = 0.132394152788506
	dunavantA2 = 0.797426985353087
	dunavantB2 = 0.101286507323456
	dunavantW2 = 0.125939180544827
)

var TriangleRules = [3]TriangleRule{
	{
		Points:  [][3]float64{{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0}},
		Weights: []float64{1.0},
	},
	{
		Points:  [][3]float64{{0.5, 0.5, 0.0}, {0.0, 0.5, 0.5}, {0.5, 0.0, 0.5}},
		Weights: []float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0},
	},
	{
		Points: [][3]float64{
			{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0},
			{dunavantA1, dunavantB1, dunavantB1},
			{dunavantB1, dunavantA1, dunavantB1},
			{dunavantB1, dunavantB1, dunavantA1},
			{dunavantA2, dunavantB2, dunavantB2},
			{dunavantB2, dunavantA2, dunavantB2},
			{dunavantB2, dunavantB2, dunavantA2},
		},
		Weights: []float64{0.225, dunavantW1, dunavantW1, dunavantW1, dunavantW2, dunavantW2, dunavantW2},
	},
}

func GetTriangleRule(order QuadratureOrder) TriangleRule {
	if order < CentroidRule || order > DunavantRule {
		order = MidpointRule
	}
	return TriangleRules[order]
}

// Barycentric maps barycentric coordinates bc onto triangle t.
func Barycentric(t r3.Triangle, bc [3]float64) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(bc[0], t[0]), r3.Scale(bc[1], t[1])), r3.Scale(bc[2], t[2]))
}
