package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edp1096/toy-bem/pkg/analysis"
	"github.com/edp1096/toy-bem/pkg/geometry"
	"github.com/edp1096/toy-bem/pkg/neq"
	"github.com/edp1096/toy-bem/pkg/port"
	"github.com/edp1096/toy-bem/pkg/rf"
	"github.com/edp1096/toy-bem/pkg/util"
)

type options struct {
	geometry   string
	transforms string
	ports      string
	plotPorts  string

	omegas    string
	omegaFile string
	sweep     analysis.Sweep

	quantities string
	out        string
	readCache  string
	writeCache string
	workers    int
	freqJobs   int
	undoMagRen bool
	verbose    bool
}

func getKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "OMEGA" || k == "OMEGA_IMAG" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printResults(results map[string][]float64) {
	omegas := results["OMEGA"]
	fmt.Printf("\nAnalysis Results (%d frequency points):\n", len(omegas))
	fmt.Println("================")

	keys := getKeys(results)
	for i := range omegas {
		omega := complex(omegas[i], results["OMEGA_IMAG"][i])
		fmt.Printf("omega=%-10s", util.FormatOmega(omega))
		for _, name := range keys {
			fmt.Printf("  %s=%s", name, util.FormatValue(results[name][i]))
		}
		fmt.Println()
	}
}

func frequencies(opt *options) ([]complex128, error) {
	switch {
	case opt.omegaFile != "":
		return analysis.ReadOmegaFile(opt.omegaFile)
	case opt.omegas != "":
		return analysis.ParseOmegaList(strings.NewReader(strings.ReplaceAll(opt.omegas, ",", "\n")), "-omega")
	case opt.sweep.Points > 0:
		return opt.sweep.Frequencies()
	}
	return nil, fmt.Errorf("no frequencies: use -omega, -omegafile or -sweep")
}

func plotPorts(path string, ports []*port.Port) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".jpg", ".jpeg", ".eps", ".tif", ".tiff":
		return port.PlotPortsImage(path, ports)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := port.PlotPorts(f, ports); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: toy-bem neq|rf -geometry <file> [flags]")
	}
	mode, err := analysis.ParseMode(os.Args[1])
	if err != nil {
		log.Fatalf("Usage: toy-bem neq|rf -geometry <file> [flags]: %v", err)
	}

	opt := &options{}
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	fs.StringVar(&opt.geometry, "geometry", "", "geometry file")
	fs.StringVar(&opt.transforms, "transforms", "", "transformation file (neq)")
	fs.StringVar(&opt.ports, "ports", "", "port file (rf)")
	fs.StringVar(&opt.plotPorts, "plotports", "", "write port diagnostics (gnuplot data, or an image by extension)")
	fs.StringVar(&opt.omegas, "omega", "", "comma separated angular frequencies")
	fs.StringVar(&opt.omegaFile, "omegafile", "", "file with one angular frequency per line")
	fs.StringVar(&opt.sweep.Type, "sweep", "LIN", "sweep type DEC|OCT|LIN")
	fs.Float64Var(&opt.sweep.Start, "start", 0, "sweep start")
	fs.Float64Var(&opt.sweep.Stop, "stop", 0, "sweep stop")
	fs.IntVar(&opt.sweep.Points, "points", 0, "sweep points")
	fs.StringVar(&opt.quantities, "quantities", "power", "neq quantities: power,xforce,yforce,zforce")
	fs.StringVar(&opt.out, "out", "", "output file")
	fs.StringVar(&opt.readCache, "readcache", "", "interaction cache to read")
	fs.StringVar(&opt.writeCache, "writecache", "", "interaction cache to write")
	fs.IntVar(&opt.workers, "workers", 1, "block assembly goroutines")
	fs.IntVar(&opt.freqJobs, "jobs", 1, "frequencies evaluated in parallel")
	fs.BoolVar(&opt.undoMagRen, "undomagren", false, "negate magnetic columns before factoring (neq)")
	fs.BoolVar(&opt.verbose, "v", false, "log progress")
	fs.Parse(os.Args[2:])

	if opt.geometry == "" {
		log.Fatal("Usage: toy-bem neq|rf -geometry <file> [flags]")
	}

	var logger *log.Logger
	if opt.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	// 1. Read geometry
	g, err := geometry.ReadGeometry(opt.geometry)
	if err != nil {
		log.Fatalf("Error reading geometry: %v", err)
	}

	omegas, err := frequencies(opt)
	if err != nil {
		log.Fatalf("Error reading frequencies: %v", err)
	}

	// 2. Setup analyzer
	var (
		analyzer analysis.Analysis
		rfa      *analysis.RFAnalysis
	)
	switch mode {
	case analysis.NEQ:
		var transforms []*geometry.Transformation
		if opt.transforms != "" {
			transforms, err = geometry.ReadTransformations(opt.transforms)
			if err != nil {
				log.Fatalf("Error reading transformations: %v", err)
			}
		}
		mask, err := neq.ParseQuantities(opt.quantities)
		if err != nil {
			log.Fatalf("Error parsing quantities: %v", err)
		}
		analyzer = analysis.NewNEQ(transforms, neq.Config{
			Quantities:                  mask,
			ByOmegaFile:                 opt.out,
			ReadCache:                   opt.readCache,
			WriteCache:                  opt.writeCache,
			Workers:                     opt.workers,
			UndoMagneticRenormalization: opt.undoMagRen,
			Logger:                      logger,
		}, omegas, opt.freqJobs)

	case analysis.RF:
		rfa = analysis.NewRF(opt.ports, rf.Config{
			OutputFile: opt.out,
			Workers:    opt.workers,
			Logger:     logger,
		}, omegas, opt.freqJobs)
		analyzer = rfa
	}

	if err := analyzer.Setup(g); err != nil {
		log.Fatalf("Analysis setup failed: %v", err)
	}
	if rfa != nil && opt.plotPorts != "" {
		if err := plotPorts(opt.plotPorts, rfa.Ports); err != nil {
			log.Fatalf("Error plotting ports: %v", err)
		}
	}

	// 3. Run analysis
	if err := analyzer.Execute(); err != nil {
		log.Fatalf("Analysis execution failed: %v", err)
	}

	// 4. Print result
	printResults(analyzer.GetResults())
}
