package matrix

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/sparse"
	"gonum.org/v1/gonum/mat"
)

var ErrSingular = errors.New("singular system matrix")

// SystemMatrix is the global BEM matrix. Indices are 0-based; the underlying
// sparse matrix is 1-based.
type SystemMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	config   *sparse.Configuration
	elements []*sparse.Element // row-major, fixed before the first factorization
	factored bool
}

func NewSystemMatrix(size int) (*SystemMatrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid system size %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 true,
		SeparatedComplexVectors: true,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	m, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating system matrix: %v", err)
	}

	sm := &SystemMatrix{Size: size, matrix: m, config: config}
	sm.setupElements()
	return sm, nil
}

// setupElements allocates the full dense pattern and keeps the element
// handles. Pivoting relinks elements internally, so indices are only
// looked up here.
func (m *SystemMatrix) setupElements() {
	m.elements = make([]*sparse.Element, m.Size*m.Size)
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			m.elements[(i-1)*m.Size+(j-1)] = m.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (m *SystemMatrix) element(i, j int) *sparse.Element {
	if i < 0 || j < 0 || i >= m.Size || j >= m.Size {
		panic(mat.ErrIndexOutOfRange)
	}
	return m.elements[i*m.Size+j]
}

func (m *SystemMatrix) Clear() {
	m.matrix.Clear()
	m.factored = false
}

func (m *SystemMatrix) SetEntry(i, j int, v complex128) {
	e := m.element(i, j)
	e.Real, e.Imag = real(v), imag(v)
}

func (m *SystemMatrix) AddEntry(i, j int, v complex128) {
	e := m.element(i, j)
	e.Real += real(v)
	e.Imag += imag(v)
}

// GetEntry reads back an entry. After Factor it returns LU data.
func (m *SystemMatrix) GetEntry(i, j int) complex128 {
	e := m.element(i, j)
	return complex(e.Real, e.Imag)
}

// InsertBlock adds b with its (0,0) entry at (row, col).
func (m *SystemMatrix) InsertBlock(b mat.CMatrix, row, col int) {
	r, c := b.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.AddEntry(row+i, col+j, b.At(i, j))
		}
	}
}

// InsertBlockTranspose adds the (non-conjugated) transpose of b at (row, col).
func (m *SystemMatrix) InsertBlockTranspose(b mat.CMatrix, row, col int) {
	r, c := b.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.AddEntry(row+j, col+i, b.At(i, j))
		}
	}
}

// ScaleColumn multiplies column j by s.
func (m *SystemMatrix) ScaleColumn(j int, s complex128) {
	for i := 0; i < m.Size; i++ {
		e := m.element(i, j)
		v := complex(e.Real, e.Imag) * s
		e.Real, e.Imag = real(v), imag(v)
	}
}

func (m *SystemMatrix) Factor() error {
	if m.factored {
		return nil
	}
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	m.factored = true
	return nil
}

// Solve factors the matrix if needed and returns x with A x = rhs.
func (m *SystemMatrix) Solve(rhs []complex128) ([]complex128, error) {
	if len(rhs) != m.Size {
		return nil, fmt.Errorf("rhs length %d, want %d", len(rhs), m.Size)
	}
	if err := m.Factor(); err != nil {
		return nil, err
	}

	b := make([]float64, m.Size+1) // 1-based indexing
	ib := make([]float64, m.Size+1)
	for i, v := range rhs {
		b[i+1], ib[i+1] = real(v), imag(v)
	}

	x, ix, err := m.matrix.SolveComplex(b, ib)
	if err != nil {
		return nil, fmt.Errorf("%w: matrix solve failed: %v", ErrSingular, err)
	}

	sol := make([]complex128, m.Size)
	for i := range sol {
		sol[i] = complex(x[i+1], ix[i+1])
		if cmplx.IsNaN(sol[i]) || cmplx.IsInf(sol[i]) {
			return nil, fmt.Errorf("%w: non-finite solution at row %d", ErrSingular, i)
		}
	}
	return sol, nil
}

// Invert returns the dense inverse, solving one unit column at a time
// against a single factorization.
func (m *SystemMatrix) Invert() (*mat.CDense, error) {
	if err := m.Factor(); err != nil {
		return nil, err
	}

	inv := mat.NewCDense(m.Size, m.Size, nil)
	b := make([]float64, m.Size+1)
	ib := make([]float64, m.Size+1)
	for j := 0; j < m.Size; j++ {
		clear(b)
		clear(ib)
		b[j+1] = 1

		x, ix, err := m.matrix.SolveComplex(b, ib)
		if err != nil {
			return nil, fmt.Errorf("%w: inverting column %d: %v", ErrSingular, j, err)
		}
		for i := 0; i < m.Size; i++ {
			re, im := x[i+1], ix[i+1]
			if math.IsNaN(re) || math.IsNaN(im) || math.IsInf(re, 0) || math.IsInf(im, 0) {
				return nil, fmt.Errorf("%w: non-finite inverse entry (%d,%d)", ErrSingular, i, j)
			}
			inv.Set(i, j, complex(re, im))
		}
	}
	return inv, nil
}

func (m *SystemMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
