package geometry

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/material"
)

// ReadGeometry parses a geometry file:
//
//	MEDIUM VACUUM
//	OBJECT Sphere1
//	  MESHFILE sphere.msh
//	  MATERIAL CONST_EPS_4
//	ENDOBJECT
//
// Mesh paths are relative to the geometry file.
func ReadGeometry(path string) (*Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	g, err := ParseGeometry(f, path, func(meshFile, label string, mat material.Material) (*Object, error) {
		if !filepath.IsAbs(meshFile) {
			meshFile = filepath.Join(dir, meshFile)
		}
		return ReadMSH(meshFile, label, mat)
	})
	if err != nil {
		return nil, err
	}
	g.GeoFileName = path
	return g, nil
}

// MeshLoader resolves a MESHFILE reference to an object.
type MeshLoader func(meshFile, label string, mat material.Material) (*Object, error)

func ParseGeometry(r io.Reader, name string, load MeshLoader) (*Geometry, error) {
	scanner := bufio.NewScanner(r)

	var exterior material.Material = material.Vacuum{}
	var objects []*Object

	inObject := false
	var label, meshFile string
	var mat material.Material
	objectLine := 0

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		keyword := strings.ToUpper(fields[0])

		if !inObject {
			switch keyword {
			case "MEDIUM":
				if len(fields) != 2 {
					return nil, syntaxError(name, lineNum, "MEDIUM takes one material")
				}
				m, err := material.Parse(fields[1])
				if err != nil {
					return nil, syntaxError(name, lineNum, "%v", err)
				}
				exterior = m
			case "OBJECT":
				if len(fields) != 2 {
					return nil, syntaxError(name, lineNum, "OBJECT takes one label")
				}
				inObject = true
				label, meshFile, mat = fields[1], "", material.PEC{}
				objectLine = lineNum
			default:
				return nil, syntaxError(name, lineNum, "unknown keyword %s", fields[0])
			}
			continue
		}

		switch keyword {
		case "MESHFILE":
			if len(fields) != 2 {
				return nil, syntaxError(name, lineNum, "MESHFILE takes one path")
			}
			meshFile = fields[1]
		case "MATERIAL":
			if len(fields) != 2 {
				return nil, syntaxError(name, lineNum, "MATERIAL takes one name")
			}
			m, err := material.Parse(fields[1])
			if err != nil {
				return nil, syntaxError(name, lineNum, "%v", err)
			}
			mat = m
		case "ENDOBJECT":
			if meshFile == "" {
				return nil, syntaxError(name, lineNum, "object %s has no MESHFILE", label)
			}
			o, err := load(meshFile, label, mat)
			if err != nil {
				return nil, err
			}
			objects = append(objects, o)
			inObject = false
		default:
			return nil, syntaxError(name, lineNum, "unknown keyword %s", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inObject {
		return nil, syntaxError(name, objectLine, "OBJECT %s without ENDOBJECT", label)
	}

	g, err := NewGeometry(exterior, objects...)
	if err != nil {
		return nil, syntaxError(name, lineNum, "%v", err)
	}
	return g, nil
}

// ReadTransformations parses a transformation file:
//
//	TRANS sep10
//	  OBJECT Sphere2
//	  DISPLACED 0 0 10
//	  ROTATED 90 ABOUT 0 0 1
//	ENDTRANS
//
// Ops before any OBJECT line apply to every object. A lone "TRANS tag"
// line followed by another TRANS (or EOF) is the identity.
func ReadTransformations(path string) ([]*Transformation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTransformations(f, path)
}

func ParseTransformations(r io.Reader, name string) ([]*Transformation, error) {
	scanner := bufio.NewScanner(r)

	var list []*Transformation
	var current *Transformation
	var label string
	tags := make(map[string]bool)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		keyword := strings.ToUpper(fields[0])

		switch keyword {
		case "TRANS":
			if len(fields) != 2 {
				return nil, syntaxError(name, lineNum, "TRANS takes one tag")
			}
			if tags[fields[1]] {
				return nil, syntaxError(name, lineNum, "duplicate transformation tag %s", fields[1])
			}
			tags[fields[1]] = true
			current = NewTransformation(fields[1])
			list = append(list, current)
			label = ""
			continue
		case "ENDTRANS":
			if current == nil {
				return nil, syntaxError(name, lineNum, "ENDTRANS without TRANS")
			}
			current = nil
			continue
		}

		if current == nil {
			return nil, syntaxError(name, lineNum, "%s outside TRANS...ENDTRANS", fields[0])
		}

		switch keyword {
		case "OBJECT":
			if len(fields) != 2 {
				return nil, syntaxError(name, lineNum, "OBJECT takes one label")
			}
			label = fields[1]
			if _, ok := current.Ops[strings.ToLower(label)]; !ok {
				current.Ops[strings.ToLower(label)] = nil
			}
		case "DISPLACED":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, syntaxError(name, lineNum, "DISPLACED: %v", err)
			}
			current.AddOps(label, Displacement(v[0], v[1], v[2]))
		case "ROTATED":
			if len(fields) != 6 || !strings.EqualFold(fields[2], "ABOUT") {
				return nil, syntaxError(name, lineNum, "expected ROTATED angle ABOUT x y z")
			}
			angle, err := parseFloats(fields[1:2], 1)
			if err != nil {
				return nil, syntaxError(name, lineNum, "ROTATED: %v", err)
			}
			axis, err := parseFloats(fields[3:], 3)
			if err != nil {
				return nil, syntaxError(name, lineNum, "ROTATED: %v", err)
			}
			av := r3.Vec{X: axis[0], Y: axis[1], Z: axis[2]}
			if r3.Norm2(av) == 0 {
				return nil, syntaxError(name, lineNum, "ROTATED: zero rotation axis")
			}
			current.AddOps(label, Rotation(angle[0], av))
		default:
			return nil, syntaxError(name, lineNum, "unknown keyword %s", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, syntaxError(name, lineNum, "no transformations")
	}
	return list, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) != n {
		return nil, strconv.ErrSyntax
	}
	v := make([]float64, n)
	for i, s := range fields {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		v[i] = x
	}
	return v, nil
}
