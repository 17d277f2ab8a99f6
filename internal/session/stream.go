// ABOUTME: Line reader and writer adapters over plain byte streams
// ABOUTME: Input is split on newlines, output lines are newline terminated and flushed

package session

import (
	"bufio"
	"io"
)

// ScannerReader reads newline-delimited lines; a trailing \r is dropped.
type ScannerReader struct {
	scanner *bufio.Scanner
}

// NewScannerReader reads lines of at most maxLineBytes. A longer line fails
// with bufio.ErrTooLong.
func NewScannerReader(r io.Reader, maxLineBytes int) *ScannerReader {
	scanner := bufio.NewScanner(r)
	initial := 4096
	if maxLineBytes < initial {
		initial = maxLineBytes
	}
	scanner.Buffer(make([]byte, 0, initial), maxLineBytes)
	return &ScannerReader{scanner: scanner}
}

func (r *ScannerReader) ReadLine() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// StreamWriter writes each line followed by \n and flushes immediately.
type StreamWriter struct {
	w *bufio.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: bufio.NewWriter(w)}
}

func (w *StreamWriter) WriteLine(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
