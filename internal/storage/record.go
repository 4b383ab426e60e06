package storage

import (
	"fmt"
	"strings"
)

const (
	// RecordSize is the only record width a table header may declare.
	RecordSize = 91

	fieldCount     = 6
	fieldDelimiter = "|"
)

// Attribute names a record field that can be indexed and searched.
// Duration is a stored field but is not an Attribute.
type Attribute uint8

const (
	AttrYear Attribute = iota + 1
	AttrTitle
	AttrArtist
	AttrGenre
	AttrLanguage
)

var attributeNames = map[Attribute]string{
	AttrYear:     "ano",
	AttrTitle:    "titulo",
	AttrArtist:   "artista",
	AttrGenre:    "genero",
	AttrLanguage: "idioma",
}

// ParseAttribute resolves a query field name. Names are matched after
// trimming and lower-casing.
func ParseAttribute(name string) (Attribute, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for attr, n := range attributeNames {
		if n == name {
			return attr, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidQueryField, name)
}

func (a Attribute) String() string {
	if n, ok := attributeNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Attribute(%d)", uint8(a))
}

// Record is one decoded table row. Raw is the fixed-width line the fields
// were split from.
type Record struct {
	Year     string
	Duration string
	Title    string
	Artist   string
	Genre    string
	Language string
	Raw      string
}

// DecodeRecord splits a line that has already been normalized to the table's
// record width.
func DecodeRecord(line string) (Record, error) {
	fields := strings.Split(line, fieldDelimiter)
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, fieldCount, len(fields))
	}

	return Record{
		Year:     fields[0],
		Duration: fields[1],
		Title:    fields[2],
		Artist:   fields[3],
		Genre:    fields[4],
		Language: fields[5],
		Raw:      line,
	}, nil
}

// Value returns the field selected by attr.
func (r Record) Value(attr Attribute) string {
	switch attr {
	case AttrYear:
		return r.Year
	case AttrTitle:
		return r.Title
	case AttrArtist:
		return r.Artist
	case AttrGenre:
		return r.Genre
	case AttrLanguage:
		return r.Language
	default:
		return ""
	}
}

// normalizeWidth pads with spaces or truncates line to exactly width
// characters. Width is counted in code points, not bytes.
func normalizeWidth(line string, width int) string {
	n := 0
	for i := range line {
		if n == width {
			return line[:i]
		}
		n++
	}
	if n < width {
		return line + strings.Repeat(" ", width-n)
	}
	return line
}
