package util

import (
	"fmt"
	"math"
	"strconv"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatOmega renders a complex frequency the way it appears in output
// files: a plain real number when the imaginary part vanishes, re+imi
// otherwise.
func FormatOmega(z complex128) string {
	re, im := real(z), imag(z)
	if im == 0 {
		return strconv.FormatFloat(re, 'g', -1, 64)
	}
	if re == 0 {
		return strconv.FormatFloat(im, 'g', -1, 64) + "i"
	}
	return fmt.Sprintf("%s%+gi", strconv.FormatFloat(re, 'g', -1, 64), im)
}

// ParseOmega is the inverse of FormatOmega.
func ParseOmega(s string) (complex128, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return complex(v, 0), nil
	}
	z, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %v", s, err)
	}
	return z, nil
}

func FormatValue(value float64) string {
	return fmt.Sprintf("%e", value)
}
