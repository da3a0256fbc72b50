package compiler

import (
	"strconv"
	"strings"
)

// formatValue renders v the way print writes it: strings verbatim and
// integers in decimal.
func formatValue(v *Value) string {
	if v.IsStr {
		return v.Str
	}
	return strconv.FormatInt(v.Int, 10)
}

// printText is the line written by one print call: the arguments separated
// by spaces, then a newline.
func printText(vals []*Value) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		parts = append(parts, formatValue(v))
	}
	return strings.Join(parts, " ") + "\n"
}
