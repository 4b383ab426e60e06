package storage

import (
	"bufio"
	"bytes"
	_ "crypto/sha256" // registers digest.Canonical
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/mvaleed/musicidx/internal/storage/mmap"
)

// Default load limits. A header or line beyond them is rejected before any
// allocation proportional to it happens.
const (
	DefaultMaxRecords   = 1_000_000
	DefaultMaxLineBytes = 4096
)

// Upper bounds for the configurable limits. Larger values are clamped.
const (
	MaxRecordsLimit   = 1 << 26
	MaxLineBytesLimit = 1 << 20
)

// Longest record line that can survive width normalization, in bytes.
const maxRecordBytes = RecordSize * utf8.UTFMax

// Prealloc cap for the record slice so a lying QTDE cannot force a large
// allocation up front.
const maxRecordPrealloc = 4096

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Table is a fully loaded table file. It is never partially populated: any
// load error discards everything read so far.
type Table struct {
	Header  TableHeader
	Records []Record

	// Digest identifies the (decompressed) table content. Set by OpenTable.
	Digest digest.Digest
}

// LoadOption configures table loading.
type LoadOption func(*loadConfig)

type loadConfig struct {
	maxRecords   int
	maxLineBytes int
	logger       *slog.Logger
}

// WithMaxRecords caps the record count a header may declare. Values above
// MaxRecordsLimit are clamped.
func WithMaxRecords(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.maxRecords = min(n, MaxRecordsLimit)
		}
	}
}

// WithMaxLineBytes caps the length of any single line, before width
// normalization. Values above MaxLineBytesLimit are clamped.
func WithMaxLineBytes(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.maxLineBytes = min(n, MaxLineBytesLimit)
		}
	}
}

// WithLogger sets the logger used while loading. If nil, a discard logger is
// used.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(c *loadConfig) {
		c.logger = logger
	}
}

func newLoadConfig(opts []LoadOption) loadConfig {
	c := loadConfig{
		maxRecords:   DefaultMaxRecords,
		maxLineBytes: DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// OpenTable maps the table file at path and loads it. Files framed as zstd
// are decompressed first.
func OpenTable(path string, opts ...LoadOption) (*Table, error) {
	cfg := newLoadConfig(opts)

	store, err := mmap.NewMmapStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data := store.Bytes()
	if isZstd(store) {
		data, err = decompress(data, cfg.decompressLimit())
		if err != nil {
			return nil, err
		}
		cfg.logger.Debug("decompressed table", "path", path, "compressed", store.Size(), "size", len(data))
	}

	dgst := digest.FromBytes(data)
	t, err := LoadTable(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	t.Digest = dgst

	cfg.logger.Info("table opened", "path", path, "records", len(t.Records), "digest", dgst.String())
	return t, nil
}

func isZstd(store *mmap.MmapStore) bool {
	if store.Size() < int64(len(zstdMagic)) {
		return false
	}
	magic, err := store.ReadAt(0, len(zstdMagic))
	return err == nil && bytes.Equal(magic, zstdMagic)
}

// decompressLimit bounds the decompressed size of a table: a header line plus
// maxRecords lines, each no longer than a record that survives width
// normalization (or maxLineBytes, if smaller), plus terminators.
func (c loadConfig) decompressLimit() uint64 {
	perLine := uint64(min(c.maxLineBytes, maxRecordBytes)) + 2
	return uint64(c.maxRecords+1)*perLine + uint64(c.maxLineBytes) + 2
}

func decompress(data []byte, limit uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress table: %w", err)
	}
	return out, nil
}

// LoadTable reads a header line and then exactly the number of records it
// declares. Each record line is padded or truncated to the declared width
// before decoding. Lines after the last declared record are ignored.
func LoadTable(r io.Reader, opts ...LoadOption) (*Table, error) {
	cfg := newLoadConfig(opts)

	scanner := bufio.NewScanner(r)
	// Room for the longest allowed line plus its line terminator.
	scanner.Buffer(make([]byte, 0, min(cfg.maxLineBytes+2, 64*1024)), cfg.maxLineBytes+2)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, fmt.Errorf("%w: header exceeds %d bytes", ErrInvalidHeader, cfg.maxLineBytes)
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		return nil, fmt.Errorf("%w: missing header line", ErrInvalidHeader)
	}
	if len(scanner.Bytes()) > cfg.maxLineBytes {
		return nil, fmt.Errorf("%w: header exceeds %d bytes", ErrInvalidHeader, cfg.maxLineBytes)
	}

	header, err := ParseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}
	if header.RecordCount > cfg.maxRecords {
		return nil, fmt.Errorf("%w: QTDE=%d exceeds limit %d", ErrInvalidHeader, header.RecordCount, cfg.maxRecords)
	}
	cfg.logger.Debug("table header parsed", "header", header.String())

	records := make([]Record, 0, min(header.RecordCount, maxRecordPrealloc))
	for i := range header.RecordCount {
		lineNo := i + 2

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					return nil, &RecordError{
						Line: lineNo,
						Err:  fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedRecord, cfg.maxLineBytes),
					}
				}
				return nil, fmt.Errorf("failed to read record at line %d: %w", lineNo, err)
			}
			return nil, fmt.Errorf("%w: expected %d records, read %d", ErrTruncatedTable, header.RecordCount, i)
		}

		if len(scanner.Bytes()) > cfg.maxLineBytes {
			return nil, &RecordError{
				Line: lineNo,
				Err:  fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedRecord, cfg.maxLineBytes),
			}
		}

		rec, err := DecodeRecord(normalizeWidth(scanner.Text(), header.RecordSize))
		if err != nil {
			return nil, &RecordError{Line: lineNo, Err: err}
		}
		records = append(records, rec)
	}

	cfg.logger.Debug("table loaded", "records", len(records))
	return &Table{
		Header:  header,
		Records: records,
	}, nil
}
