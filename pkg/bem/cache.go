package bem

import (
	"fmt"
	"io"
	"log"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-bem/pkg/matrix"
)

// PairIndex numbers the object pairs no < nop row by row:
// (0,1), (0,2), ..., (0,N-1), (1,2), ...
func PairIndex(no, nop, numObjects int) int {
	return no*(2*numObjects-no-1)/2 + (nop - no - 1)
}

// NeedsRecompute reports whether mutual block (no, nop) must be assembled
// at transform nt, given which objects moved since the previous transform.
func NeedsRecompute(nt, no, nop int, moved []bool) bool {
	return nt == 0 || moved[no] || moved[nop]
}

// BlockCache owns the self blocks T and mutual blocks U of one frequency.
// Self blocks are assembled once; mutual blocks survive across transforms
// until one of their objects moves.
type BlockCache struct {
	Assembler *Assembler
	Workers   int
	Logger    *log.Logger

	T []*mat.CDense
	U []*mat.CDense

	omega complex128
	pairs [][2]int
}

func NewBlockCache(as *Assembler, workers int, logger *log.Logger) *BlockCache {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	n := as.Geometry.NumObjects()
	bc := &BlockCache{
		Assembler: as,
		Workers:   workers,
		Logger:    logger,
		T:         make([]*mat.CDense, n),
		U:         make([]*mat.CDense, n*(n-1)/2),
	}
	for no := 0; no < n; no++ {
		r, _ := as.BlockDims(no, no)
		bc.T[no] = mat.NewCDense(r, r, nil)
		for nop := no + 1; nop < n; nop++ {
			r, c := as.BlockDims(no, nop)
			bc.U[PairIndex(no, nop, n)] = mat.NewCDense(r, c, nil)
			bc.pairs = append(bc.pairs, [2]int{no, nop})
		}
	}
	return bc
}

// Pairs lists (no, nop) in PairIndex order.
func (bc *BlockCache) Pairs() [][2]int { return bc.pairs }

// AssembleSelf computes every self block at omega.
func (bc *BlockCache) AssembleSelf(omega complex128) error {
	bc.omega = omega
	for no := range bc.T {
		bc.Logger.Printf(" Assembling self contributions to T(%d)...", no)
		if err := bc.Assembler.AssembleBlock(no, no, omega, true, bc.T[no]); err != nil {
			return err
		}
	}
	return nil
}

// RecomputePairs reassembles the mutual blocks that NeedsRecompute selects
// and returns them in PairIndex order. Other blocks are left untouched.
// Freshly assembled blocks get their magnetic columns negated.
func (bc *BlockCache) RecomputePairs(nt int, moved []bool) ([][2]int, error) {
	var todo [][2]int
	for _, p := range bc.pairs {
		if NeedsRecompute(nt, p[0], p[1], moved) {
			todo = append(todo, p)
		}
	}
	if len(todo) == 0 {
		return nil, nil
	}

	n := len(bc.T)
	errs := make([]error, len(todo))
	work := make(chan int, bc.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < bc.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				no, nop := todo[idx][0], todo[idx][1]
				dst := bc.U[PairIndex(no, nop, n)]
				bc.Logger.Printf("  Assembling U(%d,%d)...", no, nop)
				if err := bc.Assembler.AssembleBlock(no, nop, bc.omega, false, dst); err != nil {
					errs[idx] = err
					continue
				}
				if bc.Assembler.Geometry.Objects[nop].BFsPerEdge() == 2 {
					FlipSignOfMagneticColumns(dst)
				}
			}
		}()
	}

	for i := range todo {
		work <- i
	}
	close(work)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("mutual block (%d,%d): %w", todo[i][0], todo[i][1], err)
		}
	}
	return todo, nil
}

// Stamp adds every block into m: T on the diagonal, U above it and U
// transposed below.
func (bc *BlockCache) Stamp(m matrix.BlockMatrix) {
	g := bc.Assembler.Geometry
	for no, t := range bc.T {
		off := g.BFIndexOffset(no)
		m.InsertBlock(t, off, off)
	}
	for nb, p := range bc.pairs {
		rowOff, colOff := g.BFIndexOffset(p[0]), g.BFIndexOffset(p[1])
		m.InsertBlock(bc.U[nb], rowOff, colOff)
		m.InsertBlockTranspose(bc.U[nb], colOff, rowOff)
	}
}
