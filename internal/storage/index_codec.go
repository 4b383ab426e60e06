package storage

import "strings"

// IndexEntry pairs an attribute value with the fixed-width line of the record
// it came from.
type IndexEntry struct {
	Key string // Attribute value; for the last field, without width padding
	Raw string // Record line, exactly RecordSize characters
}

func newIndexEntry(rec Record, attr Attribute) IndexEntry {
	key := rec.Value(attr)
	// Width padding only ever lands in the last field.
	if attr == AttrLanguage {
		key = strings.TrimRight(key, " ")
	}
	return IndexEntry{
		Key: key,
		Raw: rec.Raw,
	}
}

// compareEntries orders entries by key, byte-wise.
func compareEntries(a, b IndexEntry) int {
	return strings.Compare(a.Key, b.Key)
}
