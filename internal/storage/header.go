package storage

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	headerKeySize   = "SIZE"
	headerKeyTop    = "TOP"
	headerKeyCount  = "QTDE"
	headerKeyStatus = "STATUS"

	headerTokens = 4
)

// TableHeader is the first line of a table file:
//
//	SIZE=91 TOP=-1 QTDE=<records> STATUS=0
type TableHeader struct {
	RecordSize   int
	IndexPointer int
	RecordCount  int
	Status       int
}

// ParseHeader parses the four KEY=VALUE tokens of a header line and validates
// them. Keys are case-insensitive and must each appear exactly once.
func ParseHeader(line string) (TableHeader, error) {
	tokens := strings.Fields(line)
	if len(tokens) != headerTokens {
		return TableHeader{}, fmt.Errorf("%w: expected %d KEY=VALUE tokens, got %d", ErrInvalidHeader, headerTokens, len(tokens))
	}

	var h TableHeader
	seen := make(map[string]bool, headerTokens)
	for _, tok := range tokens {
		key, raw, ok := strings.Cut(tok, "=")
		if !ok {
			return TableHeader{}, fmt.Errorf("%w: token %q is not KEY=VALUE", ErrInvalidHeader, tok)
		}
		key = strings.ToUpper(key)
		if seen[key] {
			return TableHeader{}, fmt.Errorf("%w: duplicate key %s", ErrInvalidHeader, key)
		}
		seen[key] = true

		value, err := strconv.Atoi(raw)
		if err != nil {
			return TableHeader{}, fmt.Errorf("%w: %s is not an integer: %q", ErrInvalidHeader, key, raw)
		}

		switch key {
		case headerKeySize:
			h.RecordSize = value
		case headerKeyTop:
			h.IndexPointer = value
		case headerKeyCount:
			h.RecordCount = value
		case headerKeyStatus:
			h.Status = value
		default:
			return TableHeader{}, fmt.Errorf("%w: unknown key %s", ErrInvalidHeader, key)
		}
	}

	if err := h.Validate(); err != nil {
		return TableHeader{}, err
	}
	return h, nil
}

// Validate checks the header contract.
func (h TableHeader) Validate() error {
	switch {
	case h.RecordSize != RecordSize:
		return fmt.Errorf("%w: SIZE=%d, want %d", ErrInvalidHeader, h.RecordSize, RecordSize)
	case h.IndexPointer != -1:
		return fmt.Errorf("%w: TOP=%d, want -1", ErrInvalidHeader, h.IndexPointer)
	case h.Status != 0:
		return fmt.Errorf("%w: STATUS=%d, want 0", ErrInvalidHeader, h.Status)
	case h.RecordCount < 0:
		return fmt.Errorf("%w: QTDE=%d is negative", ErrInvalidHeader, h.RecordCount)
	}
	return nil
}

func (h TableHeader) String() string {
	return fmt.Sprintf("%s=%d %s=%d %s=%d %s=%d",
		headerKeySize, h.RecordSize,
		headerKeyTop, h.IndexPointer,
		headerKeyCount, h.RecordCount,
		headerKeyStatus, h.Status)
}
