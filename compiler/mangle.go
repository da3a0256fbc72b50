package compiler

import (
	"fmt"
	"strings"
)

// mangle turns a source name into a valid FASM identifier. Letters, digits
// and underscores are kept; every other byte becomes _xx in hex.
func mangle(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "_%02x", c)
		}
	}
	return sb.String()
}

// slotName is the data label for name declared in the scope labelled scope.
func slotName(scope, name string) string {
	label := mangle(scope) + "_" + mangle(name)
	if '0' <= label[0] && label[0] <= '9' {
		label = "_" + label
	}
	return label
}
