// Package testutil provides fixtures for tests of code built on faultnet:
// sample text, temporary directory trees, and fakes for the HTTP and
// authentication endpoints a replicated client talks to.
package testutil

import (
	"strings"
)

// SampleText returns rows lines of cols characters each. Row i repeats the
// letter 'a'+i, so every row is distinguishable.
func SampleText(rows, cols int) string {
	var b strings.Builder
	for row := range rows {
		b.WriteString(strings.Repeat(string(rune('a'+row)), cols))
		if row < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
