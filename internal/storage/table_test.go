package storage

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_LoadTable(t *testing.T) {
	t.Run("loads declared records", func(t *testing.T) {
		text := tableText(
			"1975|5:55|Bohemian Rhapsody|Queen|Rock|Ingles",
			"1959|9:22|So What|Miles Davis|Jazz|Instrumental",
		)

		table, err := LoadTable(strings.NewReader(text))
		require.NoError(t, err)

		assert.Equal(t, 2, table.Header.RecordCount)
		require.Len(t, table.Records, 2)
		assert.Equal(t, "Queen", table.Records[0].Artist)
		assert.Equal(t, "Jazz", table.Records[1].Genre)
		for _, rec := range table.Records {
			assert.Equal(t, RecordSize, utf8.RuneCountInString(rec.Raw))
		}
	})

	t.Run("zero records", func(t *testing.T) {
		table, err := LoadTable(strings.NewReader("SIZE=91 TOP=-1 QTDE=0 STATUS=0\n"))
		require.NoError(t, err)
		assert.Empty(t, table.Records)
	})

	t.Run("pads short and truncates long lines", func(t *testing.T) {
		long := "2000|4:00|" + strings.Repeat("x", 65) + "|Artist|Pop|Portugues"
		require.Greater(t, len(long), RecordSize)

		text := tableText("1990|3:00|Short|A|Pop|Ingles", long)
		table, err := LoadTable(strings.NewReader(text))
		require.NoError(t, err)

		short := table.Records[0]
		assert.Equal(t, RecordSize, len(short.Raw))
		assert.True(t, strings.HasPrefix(short.Raw, "1990|3:00|Short|A|Pop|Ingles "))

		truncated := table.Records[1]
		assert.Equal(t, long[:RecordSize], truncated.Raw)
		assert.Equal(t, "Port", truncated.Language)
	})

	t.Run("strips CRLF line endings", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=1 STATUS=0\r\n1975|5:55|Song|Queen|Rock|Ingles\r\n"

		table, err := LoadTable(strings.NewReader(text))
		require.NoError(t, err)
		require.Len(t, table.Records, 1)
		assert.NotContains(t, table.Records[0].Raw, "\r")
	})

	t.Run("last line without newline", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=1 STATUS=0\n1975|5:55|Song|Queen|Rock|Ingles"

		table, err := LoadTable(strings.NewReader(text))
		require.NoError(t, err)
		require.Len(t, table.Records, 1)
	})

	t.Run("ignores lines after declared count", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=1 STATUS=0\n" +
			"1975|5:55|Song|Queen|Rock|Ingles\n" +
			"this line is not a record\n"

		table, err := LoadTable(strings.NewReader(text))
		require.NoError(t, err)
		require.Len(t, table.Records, 1)
	})

	t.Run("invalid header", func(t *testing.T) {
		testCases := []struct {
			name string
			text string
		}{
			{"empty file", ""},
			{"bad size", "SIZE=80 TOP=-1 QTDE=0 STATUS=0\n"},
			{"record as header", "1975|5:55|Song|Queen|Rock|Ingles\n"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				table, err := LoadTable(strings.NewReader(tc.text))
				require.ErrorIs(t, err, ErrInvalidHeader)
				assert.Nil(t, table)
			})
		}
	})

	t.Run("truncated table", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=3 STATUS=0\n" +
			"1975|5:55|Song|Queen|Rock|Ingles\n"

		table, err := LoadTable(strings.NewReader(text))
		require.ErrorIs(t, err, ErrTruncatedTable)
		assert.Nil(t, table)
		assert.Contains(t, err.Error(), "expected 3 records, read 1")
	})

	t.Run("malformed record aborts load", func(t *testing.T) {
		text := tableText(
			"1975|5:55|Song|Queen|Rock|Ingles",
			"1975|5:55|Song|Queen|Rock",
			"1959|9:22|So What|Miles Davis|Jazz|Instrumental",
		)

		table, err := LoadTable(strings.NewReader(text))
		require.ErrorIs(t, err, ErrMalformedRecord)
		assert.Nil(t, table)

		var recErr *RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, 3, recErr.Line)
	})

	t.Run("truncation can drop a delimiter", func(t *testing.T) {
		line := "2000|4:00|" + strings.Repeat("t", 80) + "|Artist|Pop|Ingles"

		_, err := LoadTable(strings.NewReader(tableText(line)))
		require.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("record count over limit", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=5 STATUS=0\n"

		_, err := LoadTable(strings.NewReader(text), WithMaxRecords(4))
		require.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("line over limit", func(t *testing.T) {
		line := "1975|5:55|" + strings.Repeat("s", 200) + "|Queen|Rock|Ingles"

		_, err := LoadTable(strings.NewReader(tableText(line)), WithMaxLineBytes(128))
		require.ErrorIs(t, err, ErrMalformedRecord)

		var recErr *RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, 2, recErr.Line)
	})

	t.Run("extreme limits are clamped", func(t *testing.T) {
		text := tableText("1975|5:55|Song|Queen|Rock|Ingles")

		table, err := LoadTable(strings.NewReader(text),
			WithMaxLineBytes(math.MaxInt),
			WithMaxRecords(math.MaxInt),
		)
		require.NoError(t, err)
		require.Len(t, table.Records, 1)

		cfg := newLoadConfig([]LoadOption{WithMaxLineBytes(math.MaxInt), WithMaxRecords(math.MaxInt)})
		assert.Equal(t, MaxLineBytesLimit, cfg.maxLineBytes)
		assert.Equal(t, MaxRecordsLimit, cfg.maxRecords)
	})

	t.Run("header over limit", func(t *testing.T) {
		text := "SIZE=91 TOP=-1 QTDE=0 STATUS=0" + strings.Repeat(" ", 200) + "\n"

		_, err := LoadTable(strings.NewReader(text), WithMaxLineBytes(64))
		require.ErrorIs(t, err, ErrInvalidHeader)
	})
}

func TestTable_decompressLimit(t *testing.T) {
	t.Run("default limit is sized by record width", func(t *testing.T) {
		cfg := newLoadConfig(nil)

		expected := uint64(DefaultMaxRecords+1)*uint64(RecordSize*4+2) + uint64(DefaultMaxLineBytes+2)
		assert.Equal(t, expected, cfg.decompressLimit())
		assert.Less(t, cfg.decompressLimit(), uint64(400<<20))
	})

	t.Run("short line limit wins", func(t *testing.T) {
		cfg := newLoadConfig([]LoadOption{WithMaxLineBytes(100), WithMaxRecords(10)})
		assert.Equal(t, uint64(11*102+102), cfg.decompressLimit())
	})

	t.Run("clamped limits do not overflow", func(t *testing.T) {
		cfg := newLoadConfig([]LoadOption{WithMaxLineBytes(math.MaxInt), WithMaxRecords(math.MaxInt)})
		assert.Greater(t, cfg.decompressLimit(), uint64(MaxRecordsLimit))
	})
}

func TestTable_OpenTable(t *testing.T) {
	text := tableText(
		"1975|5:55|Bohemian Rhapsody|Queen|Rock|Ingles",
		"1959|9:22|So What|Miles Davis|Jazz|Instrumental",
	)

	t.Run("plain file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "musicas.txt")
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

		table, err := OpenTable(path)
		require.NoError(t, err)

		require.Len(t, table.Records, 2)
		assert.Equal(t, digest.FromString(text), table.Digest)
	})

	t.Run("zstd file", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll([]byte(text), nil)
		require.NoError(t, enc.Close())

		path := filepath.Join(t.TempDir(), "musicas.txt.zst")
		require.NoError(t, os.WriteFile(path, compressed, 0o644))

		table, err := OpenTable(path)
		require.NoError(t, err)

		require.Len(t, table.Records, 2)
		assert.Equal(t, "Miles Davis", table.Records[1].Artist)
		assert.Equal(t, digest.FromString(text), table.Digest)
	})

	t.Run("corrupt zstd file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.zst")
		data := append([]byte{0x28, 0xb5, 0x2f, 0xfd}, []byte("not really zstd")...)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err := OpenTable(path)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("file shorter than zstd magic", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.txt")
		require.NoError(t, os.WriteFile(path, []byte{0x28, 0xb5}, 0o644))

		_, err := OpenTable(path)
		require.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := OpenTable(path)
		require.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenTable(filepath.Join(t.TempDir(), "nope.txt"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
