// Package stream provides JSONL streaming to and from zip archives.
package stream

import (
	"archive/zip"
	"io"

	"encoding/json/v2"
)

// Writer streams entities as JSONL into one file of a zip archive.
type Writer struct {
	w     io.Writer
	count int
}

// NewWriter creates a JSONL writer for a path within the zip.
func NewWriter(zw *zip.Writer, path string) (*Writer, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}

	return &Writer{w: w}, nil
}

// Write encodes a single entity as one JSON line.
func (w *Writer) Write(entity any) error {
	if err := json.MarshalWrite(w.w, entity); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns entities written so far.
func (w *Writer) Count() int {
	return w.count
}
