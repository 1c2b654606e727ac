package facttable

import (
	"strconv"
	"strings"
)

// CompareLabels orders labels naturally: numeric labels compare as numbers
// and sort before non-numeric ones, everything else compares as strings.
func CompareLabels(a, b string) int {
	fa, aNum := ParseNumber(a)
	fb, bNum := ParseNumber(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return strings.Compare(a, b)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

// CompareKeys compares two label tuples element-wise with CompareLabels.
func CompareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareLabels(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// ParseNumber reports whether a label is numeric (e.g. a YEAR) and its value.
func ParseNumber(label string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
