package ir

import (
	"fmt"
	"strings"
)

// Format returns a listing of the operations, one per line prefixed with its address.
//
// Ex.
//
//	0000 Pick 0
//	0001 Drop [1..1]
//	0002 Br return
func Format(code *Instructions) string {
	var sb strings.Builder
	for i, op := range code.Operations {
		fmt.Fprintf(&sb, "%04d %s\n", i, op)
	}
	return sb.String()
}
