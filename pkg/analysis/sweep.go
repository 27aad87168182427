package analysis

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/edp1096/toy-bem/pkg/util"
)

// Sweep describes frequency points between Start and Stop.
type Sweep struct {
	Start, Stop float64
	Points      int
	Type        string // "DEC", "OCT", "LIN"
}

func (s Sweep) Frequencies() ([]complex128, error) {
	if s.Points < 1 {
		return nil, fmt.Errorf("invalid number of points %d", s.Points)
	}
	pType := strings.ToUpper(s.Type)
	if (pType == "DEC" || pType == "OCT") && (s.Start <= 0 || s.Stop <= 0) {
		return nil, fmt.Errorf("%s sweep needs positive frequencies", pType)
	}

	frequencies := make([]complex128, s.Points)
	if s.Points == 1 {
		frequencies[0] = complex(s.Start, 0)
		return frequencies, nil
	}

	switch pType {
	case "DEC": // Decade
		logStart := math.Log10(s.Start)
		logStop := math.Log10(s.Stop)
		step := (logStop - logStart) / float64(s.Points-1)
		for i := range s.Points {
			frequencies[i] = complex(math.Pow(10, logStart+float64(i)*step), 0)
		}

	case "OCT": // Octave
		logStart := math.Log2(s.Start)
		logStop := math.Log2(s.Stop)
		step := (logStop - logStart) / float64(s.Points-1)
		for i := range s.Points {
			frequencies[i] = complex(math.Pow(2, logStart+float64(i)*step), 0)
		}

	case "LIN": // Linear
		step := (s.Stop - s.Start) / float64(s.Points-1)
		for i := range s.Points {
			frequencies[i] = complex(s.Start+float64(i)*step, 0)
		}

	default:
		return nil, fmt.Errorf("unknown sweep type %q", s.Type)
	}

	return frequencies, nil
}

// ReadOmegaFile reads one angular frequency per line (first field).
func ReadOmegaFile(path string) ([]complex128, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open omega file: %w", err)
	}
	defer f.Close()
	return ParseOmegaList(f, path)
}

func ParseOmegaList(r io.Reader, name string) ([]complex128, error) {
	var omegas []complex128
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		omega, err := util.ParseOmega(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", name, lineNo, err)
		}
		omegas = append(omegas, omega)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(omegas) == 0 {
		return nil, fmt.Errorf("%s: no frequencies", name)
	}
	return omegas, nil
}

// forEachFrequency runs job for indices first..n-1 on up to workers
// goroutines. Each goroutine gets its own context from newWorker; worker 0
// may return a shared one. The error of the lowest failing index is
// returned.
func forEachFrequency[W any](first, n, workers int,
	newWorker func(k int) (W, func(), error), job func(w W, i int) error) error {
	if first >= n {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n-first {
		workers = n - first
	}

	ctxs := make([]W, workers)
	for k := range workers {
		w, release, err := newWorker(k)
		if err != nil {
			return err
		}
		if release != nil {
			defer release()
		}
		ctxs[k] = w
	}

	errs := make([]error, n)
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for k := range workers {
		wg.Add(1)
		go func(w W) {
			defer wg.Done()
			for i := range jobs {
				errs[i] = job(w, i)
			}
		}(ctxs[k])
	}

	for i := first; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
