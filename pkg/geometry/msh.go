package geometry

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edp1096/toy-bem/pkg/material"
)

const gmshTriangle = 2

// ReadMSH loads a Gmsh ASCII (version 2) mesh. Only nodes and 3-node
// triangles are used; other element types are ignored.
func ReadMSH(path, label string, mat material.Material) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	o, err := ParseMSH(f, path, label, mat)
	if err != nil {
		return nil, err
	}
	o.MeshFileName = path
	return o, nil
}

func ParseMSH(r io.Reader, name, label string, mat material.Material) (*Object, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	next := func() ([]string, bool) {
		for scanner.Scan() {
			lineNum++
			fields := strings.Fields(scanner.Text())
			if len(fields) > 0 {
				return fields, true
			}
		}
		return nil, false
	}

	var vertices []r3.Vec
	var triangles [][3]int
	nodeIndex := make(map[int]int)

	for {
		fields, ok := next()
		if !ok {
			break
		}

		switch fields[0] {
		case "$MeshFormat":
			fields, ok = next()
			if !ok || len(fields) < 1 {
				return nil, syntaxError(name, lineNum, "truncated $MeshFormat")
			}
			if !strings.HasPrefix(fields[0], "2") {
				return nil, syntaxError(name, lineNum, "unsupported mesh format version %s", fields[0])
			}
			if len(fields) > 1 && fields[1] != "0" {
				return nil, syntaxError(name, lineNum, "binary mesh files are not supported")
			}
			if fields, ok = next(); !ok || fields[0] != "$EndMeshFormat" {
				return nil, syntaxError(name, lineNum, "expected $EndMeshFormat")
			}

		case "$Nodes":
			fields, ok = next()
			if !ok {
				return nil, syntaxError(name, lineNum, "truncated $Nodes")
			}
			count, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, syntaxError(name, lineNum, "invalid node count %s", fields[0])
			}
			for i := 0; i < count; i++ {
				fields, ok = next()
				if !ok || len(fields) != 4 {
					return nil, syntaxError(name, lineNum, "invalid node record")
				}
				id, err := strconv.Atoi(fields[0])
				if err != nil {
					return nil, syntaxError(name, lineNum, "invalid node id %s", fields[0])
				}
				var xyz [3]float64
				for k := 0; k < 3; k++ {
					xyz[k], err = strconv.ParseFloat(fields[k+1], 64)
					if err != nil {
						return nil, syntaxError(name, lineNum, "invalid coordinate %s", fields[k+1])
					}
				}
				nodeIndex[id] = len(vertices)
				vertices = append(vertices, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
			}
			if fields, ok = next(); !ok || fields[0] != "$EndNodes" {
				return nil, syntaxError(name, lineNum, "expected $EndNodes")
			}

		case "$Elements":
			fields, ok = next()
			if !ok {
				return nil, syntaxError(name, lineNum, "truncated $Elements")
			}
			count, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, syntaxError(name, lineNum, "invalid element count %s", fields[0])
			}
			for i := 0; i < count; i++ {
				fields, ok = next()
				if !ok || len(fields) < 3 {
					return nil, syntaxError(name, lineNum, "invalid element record")
				}
				elType, err1 := strconv.Atoi(fields[1])
				numTags, err2 := strconv.Atoi(fields[2])
				if err1 != nil || err2 != nil {
					return nil, syntaxError(name, lineNum, "invalid element header")
				}
				if elType != gmshTriangle {
					continue
				}
				if len(fields) != 3+numTags+3 {
					return nil, syntaxError(name, lineNum, "triangle record has %d fields", len(fields))
				}
				var tri [3]int
				for k := 0; k < 3; k++ {
					id, err := strconv.Atoi(fields[3+numTags+k])
					if err != nil {
						return nil, syntaxError(name, lineNum, "invalid node reference %s", fields[3+numTags+k])
					}
					idx, found := nodeIndex[id]
					if !found {
						return nil, syntaxError(name, lineNum, "unknown node %d", id)
					}
					tri[k] = idx
				}
				triangles = append(triangles, tri)
			}
			if fields, ok = next(); !ok || fields[0] != "$EndElements" {
				return nil, syntaxError(name, lineNum, "expected $EndElements")
			}

		default:
			// skip unknown sections
			if strings.HasPrefix(fields[0], "$") && !strings.HasPrefix(fields[0], "$End") {
				end := "$End" + fields[0][1:]
				for {
					fields, ok = next()
					if !ok {
						return nil, syntaxError(name, lineNum, "missing %s", end)
					}
					if fields[0] == end {
						break
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(triangles) == 0 {
		return nil, syntaxError(name, lineNum, "no triangles in mesh")
	}

	return NewObject(label, vertices, triangles, mat)
}
