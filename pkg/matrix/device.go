package matrix

import "gonum.org/v1/gonum/mat"

// BlockMatrix is what block assemblers stamp into. Indices are 0-based.
type BlockMatrix interface {
	InsertBlock(b mat.CMatrix, row, col int)
	InsertBlockTranspose(b mat.CMatrix, row, col int)
	AddEntry(i, j int, v complex128)
}

var _ BlockMatrix = (*SystemMatrix)(nil)
