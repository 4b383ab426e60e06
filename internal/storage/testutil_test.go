package storage

import (
	"fmt"
	"strings"
)

// recordLine joins fields with the delimiter and pads to RecordSize.
func recordLine(fields ...string) string {
	return normalizeWidth(strings.Join(fields, fieldDelimiter), RecordSize)
}

// tableText builds a table file with a valid header for the given lines.
func tableText(lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SIZE=%d TOP=-1 QTDE=%d STATUS=0\n", RecordSize, len(lines))
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
