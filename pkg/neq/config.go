package neq

import (
	"fmt"
	"log"
	"strings"

	"github.com/edp1096/toy-bem/internal/consts"
	"github.com/edp1096/toy-bem/pkg/overlap"
)

var QuantityNames = [consts.MAXQUANTITIES]string{"POWER", "XFORCE", "YFORCE", "ZFORCE"}

type Config struct {
	Quantities  overlap.Mask
	ByOmegaFile string

	ReadCache  string // interaction cache loaded before the first frequency
	WriteCache string // written once, after the first finished frequency

	Workers int // mutual-block assembly goroutines

	// Negate the magnetic columns of the stamped system before factoring.
	UndoMagneticRenormalization bool

	Logger *log.Logger
}

// ParseQuantities reads a comma separated list such as "power,zforce".
// Keywords are case-insensitive; an empty list selects power only.
func ParseQuantities(s string) (overlap.Mask, error) {
	var mask overlap.Mask
	s = strings.TrimSpace(s)
	if s == "" {
		mask[consts.QINDEX_POWER] = true
		return mask, nil
	}
	for _, name := range strings.Split(s, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		found := false
		for nq, qn := range QuantityNames {
			if name == qn {
				mask[nq] = true
				found = true
			}
		}
		if !found {
			return mask, fmt.Errorf("unknown quantity %q", name)
		}
	}
	return mask, nil
}

// selected lists the quantity indices of mask in output order.
func selected(mask overlap.Mask) []int {
	var q []int
	for nq, on := range mask {
		if on {
			q = append(q, nq)
		}
	}
	return q
}
