// Package output writes search results to the output file.
//
// The file is written to a temporary sibling and renamed over the
// destination on Commit, so readers only ever see a complete output.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// NoResults is the line written when a search matches nothing.
const NoResults = "Nenhum resultado encontrado."

var ErrWriteAfterClose = errors.New("write called after writer closed")

type Writer struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// Create starts a new output for path. Nothing at path changes until Commit.
func Create(path string) (*Writer, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	// CreateTemp uses 0600.
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to set output mode: %w", err)
	}

	return &Writer{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

func (w *Writer) Write(b []byte) (int, error) {
	if w.closed {
		return 0, ErrWriteAfterClose
	}
	return w.writer.Write(b)
}

// WriteLine writes s followed by a newline.
func (w *Writer) WriteLine(s string) error {
	_, err := w.Write([]byte(s + "\n"))
	return err
}

// WriteLines writes every line, or the NoResults line if there are none.
func (w *Writer) WriteLines(lines []string) error {
	if len(lines) == 0 {
		return w.WriteNoResults()
	}
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) WriteNoResults() error {
	return w.WriteLine(NoResults)
}

// WriteMessage writes a single message line, such as an error report.
func (w *Writer) WriteMessage(msg string) error {
	return w.WriteLine(msg)
}

// Commit flushes the output and moves it into place. The writer is closed
// afterwards.
func (w *Writer) Commit() error {
	if w.closed {
		return ErrWriteAfterClose
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		return errors.Join(fmt.Errorf("failed to flush output: %w", err), w.discard())
	}
	if err := w.file.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync output: %w", err), w.discard())
	}
	if err := w.file.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close output: %w", err), os.Remove(w.file.Name()))
	}
	if err := os.Rename(w.file.Name(), w.path); err != nil {
		return errors.Join(fmt.Errorf("failed to move output into place: %w", err), os.Remove(w.file.Name()))
	}
	return nil
}

// Close discards an uncommitted output. It is a no-op after Commit.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.discard()
}

func (w *Writer) discard() error {
	closeErr := w.file.Close()
	removeErr := os.Remove(w.file.Name())
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

var _ io.WriteCloser = (*Writer)(nil)
