package stream

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type testEntity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Questions int    `json:"questions"`
}

func TestWriterReader_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "test.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}

	zw := zip.NewWriter(f)

	w, err := NewWriter(zw, "entities/tags.jsonl")
	if err != nil {
		t.Fatal(err)
	}

	entities := []testEntity{
		{ID: "tag-1", Name: "Go", Questions: 12},
		{ID: "tag-2", Name: "Rust", Questions: 7},
		{ID: "tag-3", Name: "Python", Questions: 40},
	}

	for _, e := range entities {
		if err := w.Write(e); err != nil {
			t.Fatal(err)
		}
	}

	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}

	zw.Close()
	f.Close()

	// Read entities back.
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	rc, err := OpenFile(zr, "entities/tags.jsonl")
	if err != nil {
		t.Fatal(err)
	}

	reader := NewReader[testEntity](rc)

	var got []testEntity
	for entity, err := range reader.All() {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, entity)
	}

	if len(got) != len(entities) {
		t.Fatalf("got %d entities, want %d", len(got), len(entities))
	}

	for i, e := range got {
		if e != entities[i] {
			t.Errorf("entity %d: got %+v, want %+v", i, e, entities[i])
		}
	}
}

func TestOpenFile_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "empty.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}

	zw := zip.NewWriter(f)
	zw.Close()
	f.Close()

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	_, err = OpenFile(zr, "nonexistent.jsonl")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestReader_ContinuesOnParseError(t *testing.T) {
	jsonl := `{"id":"tag-1","name":"Good"}
{bad json}
{"id":"tag-2","name":"Also Good"}
`
	rc := io.NopCloser(bytes.NewReader([]byte(jsonl)))
	reader := NewReader[testEntity](rc)

	var good []testEntity
	var errors int

	for entity, err := range reader.All() {
		if err != nil {
			errors++
			continue
		}
		good = append(good, entity)
	}

	if len(good) != 2 {
		t.Errorf("got %d good entities, want 2", len(good))
	}
	if errors != 1 {
		t.Errorf("got %d errors, want 1", errors)
	}
}
