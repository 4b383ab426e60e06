package storage

import (
	"slices"
	"sort"
)

/*
  ALGORITHM: Equal-Range Lookup (Two Binary Searches)
  ------------------------------------------------------------------
  Example Index (sorted by key):
  Entry 0: Jazz
  Entry 1: Rock
  Entry 2: Rock
  Entry 3: Samba

  Goal: Find every entry with key "Rock".

  1. Lower bound: smallest i where Entry[i].Key >= "Rock"  -> lo = 1
  2. Upper bound: smallest i where Entry[i].Key >  "Rock"  -> hi = 3
  3. Return Entry[lo:hi] (Entries 1 and 2).

  lo == hi means no entry has the key; that is an empty result, not an error.
  Both searches are O(log n); building the index is O(n log n) once, after
  which any number of lookups can reuse it.
*/

// SecondaryIndex is an in-memory index over one attribute of a table. It is
// read-only after BuildIndex returns.
type SecondaryIndex struct {
	attr    Attribute
	entries []IndexEntry
}

// BuildIndex extracts attr from every record and sorts the entries by key.
// Entries with equal keys keep the order of records.
func BuildIndex(records []Record, attr Attribute) *SecondaryIndex {
	entries := make([]IndexEntry, len(records))
	for i, rec := range records {
		entries[i] = newIndexEntry(rec, attr)
	}

	slices.SortStableFunc(entries, compareEntries)

	return &SecondaryIndex{
		attr:    attr,
		entries: entries,
	}
}

func (idx *SecondaryIndex) Attribute() Attribute {
	return idx.attr
}

func (idx *SecondaryIndex) Len() int {
	return len(idx.entries)
}

// Entries returns a copy of the sorted entries.
func (idx *SecondaryIndex) Entries() []IndexEntry {
	return slices.Clone(idx.entries)
}

// Bounds returns the half-open interval [lo, hi) of entries whose key equals
// value.
func (idx *SecondaryIndex) Bounds(value string) (lo, hi int) {
	n := len(idx.entries)
	if n == 0 {
		return 0, 0
	}

	lo = sort.Search(n, func(k int) bool {
		return idx.entries[k].Key >= value
	})
	hi = lo + sort.Search(n-lo, func(k int) bool {
		return idx.entries[lo+k].Key > value
	})
	return lo, hi
}

// Search returns the record lines whose key equals value, in index order.
// The comparison is exact; value is not trimmed or case-folded.
func (idx *SecondaryIndex) Search(value string) []string {
	lo, hi := idx.Bounds(value)
	if lo == hi {
		return nil
	}

	lines := make([]string, 0, hi-lo)
	for _, e := range idx.entries[lo:hi] {
		lines = append(lines, e.Raw)
	}
	return lines
}
