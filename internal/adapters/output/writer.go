// Package output provides adapters for writing application output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// StdoutPath selects the writer's own output stream instead of a file.
const StdoutPath = "-"

// lz4Suffix marks paths whose content is an LZ4 frame.
const lz4Suffix = ".lz4"

// Writer writes JSON documents to files or to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteGraph writes a single graph document to path.
func (w *Writer) WriteGraph(path string, graph *domain.FileGraph) error {
	return w.WriteJSON(path, graph)
}

// WriteGraphs writes an array of graph documents to path.
func (w *Writer) WriteGraphs(path string, graphs []*domain.FileGraph) error {
	if graphs == nil {
		graphs = []*domain.FileGraph{}
	}
	return w.WriteJSON(path, graphs)
}

// WriteJSON writes v as JSON indented by two spaces.
// A path ending in .lz4 is written as an LZ4 frame; "-" writes to the output destination.
func (w *Writer) WriteJSON(path string, v any) error {
	if path == StdoutPath {
		return encode(w.out, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := encodeTo(f, path, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// WriteLine writes a single line to the output destination.
func (w *Writer) WriteLine(format string, args ...any) error {
	_, err := fmt.Fprintf(w.out, format+"\n", args...)
	return err
}

func encodeTo(dst io.Writer, path string, v any) error {
	if !IsCompressed(path) {
		return encode(dst, v)
	}

	zw := lz4.NewWriter(dst)
	if err := encode(zw, v); err != nil {
		return err
	}
	return zw.Close()
}

func encode(dst io.Writer, v any) error {
	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// IsCompressed reports whether path names an LZ4-compressed document.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), lz4Suffix)
}
