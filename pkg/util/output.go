package util

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Output appends frequency-resolved rows to a file. The file is opened and
// closed for every row so finished rows survive a later failure.
type Output struct {
	Path string
	mu   sync.Mutex
}

func NewOutput(path string) *Output { return &Output{Path: path} }

// WriteRow appends "<tag> <omega> <value>...".
func (o *Output) WriteRow(tag string, omega complex128, values []float64) error {
	if o == nil || o.Path == "" {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(tag)
	sb.WriteByte(' ')
	sb.WriteString(FormatOmega(omega))
	for _, v := range values {
		sb.WriteByte(' ')
		sb.WriteString(FormatValue(v))
	}
	sb.WriteByte('\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", o.Path, err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", o.Path, err)
	}
	return f.Close()
}
