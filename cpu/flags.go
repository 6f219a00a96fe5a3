package cpu

import (
	"cmp"
	"strings"
)

// Flags is the flag register.
type Flags struct {
	Zero bool // Result was zero, or compared equal.
	EQ   bool
	GT   bool
	LT   bool
	GTE  bool
	LTE  bool
}

// Reset clears all flags.
func (fl *Flags) Reset() {
	*fl = Flags{}
}

// Compare sets the relational flags from the sign of c, as returned by
// cmp.Compare. Zero follows EQ.
func (fl *Flags) Compare(c int) {
	fl.EQ = c == 0
	fl.GT = c > 0
	fl.LT = c < 0
	fl.GTE = fl.GT || fl.EQ
	fl.LTE = fl.LT || fl.EQ
	fl.Zero = fl.EQ
}

// SetZero sets the Zero flag.
func (fl *Flags) SetZero(zero bool) {
	fl.Zero = zero
}

// SetFromComparison sets the relational flags from comparing a to b.
func SetFromComparison[T cmp.Ordered](fl *Flags, a, b T) {
	fl.Compare(cmp.Compare(a, b))
}

// Test reports whether a condition holds for the current flags.
func (fl *Flags) Test(cond Cond) bool {
	switch cond {
	case COND_Z:
		return fl.Zero
	case COND_NZ:
		return !fl.Zero
	case COND_EQ:
		return fl.EQ
	case COND_NE:
		return !fl.EQ
	case COND_GT:
		return fl.GT
	case COND_GTE:
		return fl.GTE
	case COND_LT:
		return fl.LT
	case COND_LTE:
		return fl.LTE
	}
	return false
}

// String lists the set flags, e.g. "Z EQ GTE LTE".
func (fl Flags) String() string {
	var set []string
	for _, flag := range []struct {
		name string
		on   bool
	}{
		{"Z", fl.Zero},
		{"EQ", fl.EQ},
		{"GT", fl.GT},
		{"LT", fl.LT},
		{"GTE", fl.GTE},
		{"LTE", fl.LTE},
	} {
		if flag.on {
			set = append(set, flag.name)
		}
	}
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set, " ")
}
