// Package dichromacy simulates how colours appear to viewers with one of the
// three dichromatic colour-vision deficiencies.
package dichromacy

import "strings"

// Filter selects which dichromacy is simulated.
type Filter uint8

const (
	Protanopia Filter = iota
	Deuteranopia
	Tritanopia
)

// Filters lists every supported filter in display order.
var Filters = []Filter{Protanopia, Deuteranopia, Tritanopia}

var filterNames = [...]string{"protanopia", "deuteranopia", "tritanopia"}

var filterLabels = [...]string{
	"Protanopia (Red-blind)",
	"Deuteranopia (Green-blind)",
	"Tritanopia (Blue-blind)",
}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return filterNames[Protanopia]
}

// Label is the human-readable name shown in UIs.
func (f Filter) Label() string {
	if int(f) < len(filterLabels) {
		return filterLabels[f]
	}
	return filterLabels[Protanopia]
}

// ParseFilter maps a filter name to a Filter. It never fails: unknown names
// fall back to Protanopia.
func ParseFilter(s string) Filter {
	f, _ := Lookup(s)
	return f
}

// Lookup is ParseFilter that also reports whether the name was recognised.
func Lookup(s string) (Filter, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range filterNames {
		if n == name {
			return Filter(i), true
		}
	}
	return Protanopia, false
}
