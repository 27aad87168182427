package neq

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/toy-bem/pkg/bem"
	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/kernel"
	"github.com/edp1096/toy-bem/pkg/matrix"
	"github.com/edp1096/toy-bem/pkg/overlap"
	"github.com/edp1096/toy-bem/pkg/util"
)

var ErrTransform = errors.New("transform failed")

// FlushToken writes the interaction cache at most once per run, however
// many Data values share it.
type FlushToken struct {
	mu    sync.Mutex
	path  string
	armed bool
}

func NewFlushToken(path string) *FlushToken {
	return &FlushToken{path: path, armed: path != ""}
}

func (t *FlushToken) Armed() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Consume stores c if the token is still armed and disarms it. A failed
// store leaves the token armed.
func (t *FlushToken) Consume(c *kernel.Cache) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return nil
	}
	if err := c.Store(t.path); err != nil {
		return fmt.Errorf("writing interaction cache %s: %w", t.path, err)
	}
	t.armed = false
	return nil
}

// Data is the per-run solver context. One Data evaluates one frequency at a
// time; use Clone for concurrent frequencies.
type Data struct {
	Geometry   *geometry.Geometry
	Transforms []*geometry.Transformation
	Config     Config

	Kernel *kernel.Cache
	Output *util.Output
	Flush  *FlushToken
	Logger *log.Logger

	Overlaps []overlap.Set
	Blocks   *bem.BlockCache
	W        *matrix.SystemMatrix
	M        *mat.CDense // inverse of W for the current transform

	quantities []int
}

func NewData(g *geometry.Geometry, transforms []*geometry.Transformation, cfg Config) (*Data, error) {
	if len(transforms) == 0 {
		transforms = []*geometry.Transformation{geometry.NewTransformation("DEFAULT")}
	}
	if cfg.Quantities.Count() == 0 {
		return nil, fmt.Errorf("no quantities selected")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cache := kernel.NewCache(kernel.Helmholtz{})
	if cfg.ReadCache != "" {
		if err := cache.Load(cfg.ReadCache); err != nil {
			return nil, fmt.Errorf("reading interaction cache: %w", err)
		}
		logger.Printf("Read %d interactions from %s", cache.Len(), cfg.ReadCache)
	}

	return newData(g, transforms, cfg, cache, util.NewOutput(cfg.ByOmegaFile), NewFlushToken(cfg.WriteCache), logger)
}

func newData(g *geometry.Geometry, transforms []*geometry.Transformation, cfg Config,
	cache *kernel.Cache, out *util.Output, flush *FlushToken, logger *log.Logger) (*Data, error) {
	w, err := matrix.NewSystemMatrix(g.TotalBFs())
	if err != nil {
		return nil, err
	}
	d := &Data{
		Geometry:   g,
		Transforms: transforms,
		Config:     cfg,
		Kernel:     cache,
		Output:     out,
		Flush:      flush,
		Logger:     logger,
		W:          w,
		quantities: selected(cfg.Quantities),
	}
	d.Blocks = bem.NewBlockCache(bem.NewAssembler(g, cache), cfg.Workers, logger)
	return d, nil
}

// Clone returns a context with its own geometry copy and matrices that
// shares the interaction cache, output file and flush token with d.
func (d *Data) Clone() (*Data, error) {
	return newData(d.Geometry.Clone(), d.Transforms, d.Config, d.Kernel, d.Output, d.Flush, d.Logger)
}

func (d *Data) Close() {
	if d.W != nil {
		d.W.Destroy()
		d.W = nil
	}
}

// NumQuantities is the number of selected quantities (NQ).
func (d *Data) NumQuantities() int { return len(d.quantities) }

// Quantities lists the selected quantity indices in output order.
func (d *Data) Quantities() []int { return append([]int(nil), d.quantities...) }

// IntegrandLength is the length of the vector GetFrequencyIntegrand returns.
func (d *Data) IntegrandLength() int {
	return len(d.Transforms) * d.NumQuantities() * d.Geometry.NumObjects()
}

// GetFrequencyIntegrand evaluates every selected quantity for every object
// under every transform at omega. The result is indexed
// [nt*NO*NQ + nq*NO + no]. One row per transform is appended to the output
// file as soon as it is known.
func (d *Data) GetFrequencyIntegrand(omega complex128) ([]float64, error) {
	d.Logger.Printf("Computing neq quantities at omega=%s...", util.FormatOmega(omega))

	g := d.Geometry
	no, nq := g.NumObjects(), d.NumQuantities()
	fi := make([]float64, d.IntegrandLength())

	var err error
	d.Overlaps, err = overlap.Assemble(g, omega, d.Config.Quantities)
	if err != nil {
		return nil, err
	}
	if err := d.Blocks.AssembleSelf(omega); err != nil {
		return nil, err
	}

	g.ResetMoved()
	for nt, tr := range d.Transforms {
		if err := g.Transform(tr); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTransform, tr.Tag, err)
		}
		d.Logger.Printf(" Computing quantities at geometrical transform %s", tr.Tag)

		row, err := d.solveTransform(nt)
		g.UnTransform()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTransform, tr.Tag, err)
		}
		copy(fi[nt*no*nq:], row)

		if err := d.Output.WriteRow(tr.Tag, omega, row); err != nil {
			return nil, err
		}
		d.Logger.Printf(" ...done!")
	}

	if d.Flush.Armed() {
		if err := d.Flush.Consume(d.Kernel); err != nil {
			return nil, err
		}
		d.Logger.Printf("Wrote interaction cache (%d entries)", d.Kernel.Len())
	}
	return fi, nil
}

// solveTransform runs the cache-gated assembly, stamp, invert and trace
// steps for the transform currently applied.
func (d *Data) solveTransform(nt int) ([]float64, error) {
	g := d.Geometry
	if _, err := d.Blocks.RecomputePairs(nt, g.Moved()); err != nil {
		return nil, err
	}

	d.W.Clear()
	d.Blocks.Stamp(d.W)
	if d.Config.UndoMagneticRenormalization {
		d.undoMagneticRenormalization()
	}

	var err error
	d.M, err = d.W.Invert()
	if err != nil {
		return nil, err
	}

	nObj := g.NumObjects()
	row := make([]float64, d.NumQuantities()*nObj)
	for iq, q := range d.quantities {
		for no := 0; no < nObj; no++ {
			row[iq*nObj+no] = GetTrace(d, q, no)
		}
	}
	return row, nil
}

func (d *Data) undoMagneticRenormalization() {
	g := d.Geometry
	for no, o := range g.Objects {
		if o.BFsPerEdge() != 2 {
			continue
		}
		off := g.BFIndexOffset(no)
		for j := 1; j < o.NumBFs(); j += 2 {
			d.W.ScaleColumn(off+j, -1)
		}
	}
}
