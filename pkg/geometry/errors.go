package geometry

import (
	"errors"
	"fmt"
)

var ErrSyntax = errors.New("syntax error")

// ParseError locates a problem in an input file.
type ParseError struct {
	File   string
	Line   int
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Detail)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

func syntaxError(file string, line int, format string, args ...any) error {
	return &ParseError{File: file, Line: line, Detail: fmt.Sprintf(format, args...)}
}
