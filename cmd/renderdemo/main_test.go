package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesSampleDocuments(t *testing.T) {
	dir := t.TempDir()
	written, err := run(dir, "", "classic")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected pdf, docx and json, got %v", written)
	}
	for _, name := range []string{"Jordan_Lee_resume.pdf", "Jordan_Lee_resume.docx", "sample_resume.json"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(in, []byte(`{"title":""}`), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if _, err := run(filepath.Join(dir, "out"), in, "modern"); err == nil {
		t.Fatalf("expected validation error for empty title")
	}
	if _, err := run(dir, filepath.Join(dir, "missing.json"), "modern"); err == nil {
		t.Fatalf("expected load error")
	}
}
