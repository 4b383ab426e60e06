// Package query reads the search request from a query file.
package query

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mvaleed/musicidx/internal/storage"
)

// Spec is one search request: the field to search and the exact value to
// match.
type Spec struct {
	Field string // Lower-cased, trimmed
	Value string // Trimmed; may be empty
}

// ReadSpec reads the field name from the first line and the search value from
// the second. Missing lines read as empty strings.
func ReadSpec(r io.Reader) (Spec, error) {
	scanner := bufio.NewScanner(r)

	var lines [2]string
	for i := range lines {
		if !scanner.Scan() {
			break
		}
		lines[i] = scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		return Spec{}, fmt.Errorf("failed to read query: %w", err)
	}

	return Spec{
		Field: strings.ToLower(strings.TrimSpace(lines[0])),
		Value: strings.TrimSpace(lines[1]),
	}, nil
}

// ReadSpecFile opens path and reads a Spec from it.
func ReadSpecFile(path string) (Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return Spec{}, fmt.Errorf("failed to open query file: %w", err)
	}
	defer f.Close()

	return ReadSpec(f)
}

// Attribute resolves the field name to a searchable attribute. An empty
// field is never valid.
func (s Spec) Attribute() (storage.Attribute, error) {
	return storage.ParseAttribute(s.Field)
}
