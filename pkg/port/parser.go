package port

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/geometry"
)

var (
	ErrSyntax        = errors.New("syntax error")
	ErrEdgeIndex     = errors.New("edge index out of range")
	ErrUnknownObject = errors.New("unknown object")
	ErrConflict      = errors.New("conflicting edge selection")
	ErrTooMany       = errors.New("too many entries")
)

type ParseError struct {
	File   string
	Line   int
	Err    error
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser reads port files. Zero limits mean unbounded.
type Parser struct {
	MaxEdges int
	MaxLines int
	Logger   *log.Logger
}

// ParsePortFile reads the port file at path with no limits.
func ParsePortFile(g *geometry.Geometry, path string) ([]*Port, error) {
	return (&Parser{}).ParseFile(g, path)
}

func (ps *Parser) ParseFile(g *geometry.Geometry, path string) ([]*Port, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open port file: %w", err)
	}
	defer f.Close()
	return ps.Parse(g, f, path)
}

// portBlock accumulates one PORT ... ENDPORT section.
type portBlock struct {
	line             int
	pObj, mObj       *geometry.Object
	pEdges, mEdges   []int
	pListed, mListed bool
	pLines, mLines   [][2]r3.Vec
	pRef, mRef       r3.Vec
	hasPRef, hasMRef bool
}

// Parse reads PORT ... ENDPORT blocks from r. name is used in error messages.
// Nothing is returned on error.
func (ps *Parser) Parse(g *geometry.Geometry, r io.Reader, name string) ([]*Port, error) {
	if g.NumObjects() == 0 {
		return nil, fmt.Errorf("%s: geometry has no objects", name)
	}

	var (
		ports  []*Port
		block  *portBlock
		lineNo int
	)
	fail := func(kind error, format string, args ...any) error {
		return &ParseError{File: name, Line: lineNo, Err: kind, Detail: fmt.Sprintf(format, args...)}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}
		keyword := strings.ToUpper(tokens[0])

		if block == nil {
			if keyword != "PORT" {
				return nil, fail(ErrSyntax, "syntax error")
			}
			block = &portBlock{line: lineNo, pObj: g.Objects[0], mObj: g.Objects[0]}
			continue
		}

		switch keyword {
		case "ENDPORT":
			p, err := ps.finish(block, len(ports))
			if err != nil {
				return nil, fail(errorKind(err), "%v", err)
			}
			ports = append(ports, p)
			block = nil

		case "PEDGES", "MEDGES":
			side := keyword[:1]
			edges, listed, lines := &block.pEdges, &block.pListed, block.pLines
			if side == "M" {
				edges, listed, lines = &block.mEdges, &block.mListed, block.mLines
			}
			if *listed {
				return nil, fail(ErrSyntax, "multiple %s specifications", keyword)
			}
			if len(lines) != 0 {
				return nil, fail(ErrConflict, "%s may not be combined with %sLINE", keyword, side)
			}
			if len(tokens) == 1 {
				return nil, fail(ErrSyntax, "%s without edge indices", keyword)
			}
			*listed = true
			for _, tok := range tokens[1:] {
				ei, err := strconv.Atoi(tok)
				if err != nil {
					return nil, fail(ErrSyntax, "syntax error %s", tok)
				}
				*edges = append(*edges, ei)
			}
			if ps.MaxEdges > 0 && len(*edges) > ps.MaxEdges {
				return nil, fail(ErrTooMany, "too many edges")
			}

		case "PLINE", "MLINE":
			side := keyword[:1]
			lines, listed := &block.pLines, block.pListed
			if side == "M" {
				lines, listed = &block.mLines, block.mListed
			}
			if ps.MaxLines > 0 && len(*lines) == ps.MaxLines {
				return nil, fail(ErrTooMany, "too many %s specifications", keyword)
			}
			if listed {
				return nil, fail(ErrConflict, "%s may not be combined with %sEDGES", keyword, side)
			}
			if len(tokens) != 9 || !strings.EqualFold(tokens[1], "FROM") || !strings.EqualFold(tokens[5], "TO") {
				return nil, fail(ErrSyntax, "invalid %s syntax", keyword)
			}
			from, err := parseVec(tokens[2:5])
			if err != nil {
				return nil, fail(ErrSyntax, "syntax error %v", err)
			}
			to, err := parseVec(tokens[6:9])
			if err != nil {
				return nil, fail(ErrSyntax, "syntax error %v", err)
			}
			*lines = append(*lines, [2]r3.Vec{from, to})

		case "PREFPOINT", "MREFPOINT":
			if len(tokens) != 4 {
				return nil, fail(ErrSyntax, "syntax error")
			}
			v, err := parseVec(tokens[1:4])
			if err != nil {
				return nil, fail(ErrSyntax, "syntax error %v", err)
			}
			if keyword[0] == 'P' {
				block.pRef, block.hasPRef = v, true
			} else {
				block.mRef, block.hasMRef = v, true
			}

		case "POBJECT", "MOBJECT":
			if len(tokens) != 2 {
				return nil, fail(ErrSyntax, "syntax error")
			}
			o, _ := g.ObjectByLabel(tokens[1])
			if o == nil {
				return nil, fail(ErrUnknownObject, "could not find object %s in geometry %s", tokens[1], g.GeoFileName)
			}
			if keyword[0] == 'P' {
				block.pObj = o
			} else {
				block.mObj = o
			}

		default:
			return nil, fail(ErrSyntax, "unknown keyword %s", tokens[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if block != nil {
		lineNo = block.line
		return nil, fail(ErrSyntax, "PORT without ENDPORT")
	}
	return ports, nil
}

// finish resolves line specifications to edges and builds the port.
func (ps *Parser) finish(b *portBlock, portIndex int) (*Port, error) {
	if len(b.pLines) > 0 {
		b.pEdges = FindEdgesOnLine(b.pObj, b.pLines)
		ps.logEdges("P", portIndex, b.pEdges)
	}
	if len(b.mLines) > 0 {
		b.mEdges = FindEdgesOnLine(b.mObj, b.mLines)
		ps.logEdges("M", portIndex, b.mEdges)
	}
	if ps.MaxEdges > 0 {
		if len(b.pEdges) > ps.MaxEdges {
			return nil, fmt.Errorf("%w: %d edges on P side of port %d", ErrTooMany, len(b.pEdges), portIndex+1)
		}
		if len(b.mEdges) > ps.MaxEdges {
			return nil, fmt.Errorf("%w: %d edges on M side of port %d", ErrTooMany, len(b.mEdges), portIndex+1)
		}
	}

	p, err := NewPort(b.pObj, b.pEdges, b.mObj, b.mEdges)
	if err != nil {
		return nil, err
	}
	if b.hasPRef {
		p.PRefPoint = b.pRef
	}
	if b.hasMRef {
		p.MRefPoint = b.mRef
	}
	return p, nil
}

// errorKind maps a port construction error to its sentinel; anything
// unclassified is a syntax error.
func errorKind(err error) error {
	for _, kind := range []error{ErrEdgeIndex, ErrTooMany} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrSyntax
}

func (ps *Parser) logEdges(side string, portIndex int, edges []int) {
	if ps.Logger == nil {
		return
	}
	var sb strings.Builder
	for _, ei := range edges {
		fmt.Fprintf(&sb, " %d", ei)
	}
	ps.Logger.Printf(" Found %d edges on %s edge of port %d:%s", len(edges), side, portIndex, sb.String())
}

func parseVec(tokens []string) (r3.Vec, error) {
	var x [3]float64
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("%s", tok)
		}
		x[i] = v
	}
	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}, nil
}
