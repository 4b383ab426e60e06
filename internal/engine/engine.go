// Package engine runs one search: load the table, read the query, build the
// secondary index, search it and write the result file.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mvaleed/musicidx/internal/output"
	"github.com/mvaleed/musicidx/internal/query"
	"github.com/mvaleed/musicidx/internal/storage"
)

var (
	// ErrDataFile is returned when the table file cannot be read at all.
	ErrDataFile = errors.New("data file unreadable")

	// ErrQueryFile is returned when the query file cannot be read at all.
	ErrQueryFile = errors.New("query file unreadable")
)

// Output lines for each failure kind.
const (
	MsgInvalidHeader   = "Erro: cabecalho invalido."
	MsgTruncatedTable  = "Erro: arquivo de dados truncado."
	MsgMalformedRecord = "Erro: registro malformado."
	MsgInvalidField    = "Erro: campo de busca invalido."
	MsgDataFile        = "Erro: nao foi possivel ler o arquivo de dados."
	MsgQueryFile       = "Erro: nao foi possivel ler o arquivo de consulta."
	MsgUnexpected      = "Erro: falha inesperada."
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. It is also passed to the table loader.
// If nil, a discard logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLoadOptions adds options for table loading.
func WithLoadOptions(opts ...storage.LoadOption) Option {
	return func(e *Engine) {
		e.loadOpts = append(e.loadOpts, opts...)
	}
}

type Engine struct {
	logger   *slog.Logger
	loadOpts []storage.LoadOption
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Run executes the search and writes its outcome to outPath: the matching
// lines, the no-results line, or a single error line. The returned error is
// non-nil only if the output file itself could not be written.
func (e *Engine) Run(dataPath, queryPath, outPath string) error {
	out, err := output.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	lines, err := e.Execute(dataPath, queryPath)
	if err != nil {
		e.logger.Warn("search aborted", "error", err)
		err = out.WriteMessage(Message(err))
	} else {
		err = out.WriteLines(lines)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return out.Commit()
}

// Execute loads the table at dataPath and returns the lines matching the
// query at queryPath. No matches is a nil slice and a nil error.
func (e *Engine) Execute(dataPath, queryPath string) ([]string, error) {
	loadOpts := append([]storage.LoadOption{storage.WithLogger(e.logger)}, e.loadOpts...)

	table, err := storage.OpenTable(dataPath, loadOpts...)
	if err != nil {
		if isLoadError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDataFile, err)
	}

	spec, err := query.ReadSpecFile(queryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFile, err)
	}

	attr, err := spec.Attribute()
	if err != nil {
		return nil, err
	}

	idx := storage.BuildIndex(table.Records, attr)
	lines := idx.Search(spec.Value)

	e.logger.Info("search complete",
		"attribute", attr.String(),
		"value", spec.Value,
		"indexed", idx.Len(),
		"matches", len(lines),
		"table_digest", table.Digest.String(),
	)
	return lines, nil
}

func isLoadError(err error) bool {
	return errors.Is(err, storage.ErrInvalidHeader) ||
		errors.Is(err, storage.ErrTruncatedTable) ||
		errors.Is(err, storage.ErrMalformedRecord)
}

// Message maps an error from Execute to the line written to the output file.
func Message(err error) string {
	var recErr *storage.RecordError

	switch {
	case errors.As(err, &recErr):
		return fmt.Sprintf("Erro: registro malformado na linha %d.", recErr.Line)
	case errors.Is(err, storage.ErrMalformedRecord):
		// Fallback: LoadTable always reports a *RecordError.
		return MsgMalformedRecord
	case errors.Is(err, storage.ErrInvalidHeader):
		return MsgInvalidHeader
	case errors.Is(err, storage.ErrTruncatedTable):
		return MsgTruncatedTable
	case errors.Is(err, storage.ErrInvalidQueryField):
		return MsgInvalidField
	case errors.Is(err, ErrDataFile):
		return MsgDataFile
	case errors.Is(err, ErrQueryFile):
		return MsgQueryFile
	default:
		return MsgUnexpected
	}
}
