package models

import (
	"strconv"
	"strings"
)

// FormatCoordinate prints a coordinate in its shortest form but always with
// a decimal point, so 41 is written as "41.0".
func FormatCoordinate(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
