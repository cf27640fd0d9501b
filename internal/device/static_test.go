package device

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseStaticList(t *testing.T) {
	input := `# lab 3
10.0.0.5=alice

10.0.0.6 = bob
garbage
=nameless
10.0.0.7=
10.0.0.8=a=b
`
	entries, skipped, err := ParseStaticList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseStaticList() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Name != "alice" || entries[0].Address != "10.0.0.5" || entries[0].Line != 2 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Name != "bob" || entries[1].Address != "10.0.0.6" {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	if len(skipped) != 4 {
		t.Fatalf("skipped = %d, want 4", len(skipped))
	}
	for _, e := range skipped {
		if !errors.Is(e, ErrMalformedEntry) {
			t.Errorf("skipped error %v does not wrap ErrMalformedEntry", e)
		}
	}
}

func TestRegistry_LoadStaticFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.txt")
	content := "10.0.0.5=alice\n10.0.0.6=bob\nbad line\n10.0.0.7=alice\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write static list: %v", err)
	}

	r := NewRegistry(30)
	created, err := r.LoadStaticFile(path)
	if err != nil {
		t.Fatalf("LoadStaticFile() error = %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	d, err := r.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Address != "10.0.0.7" {
		t.Errorf("Address = %q, want last entry %q", d.Address, "10.0.0.7")
	}
	if d.Source != SourceStatic {
		t.Errorf("Source = %q, want %q", d.Source, SourceStatic)
	}
}

func TestRegistry_LoadStaticFileMissing(t *testing.T) {
	r := NewRegistry(30)
	if _, err := r.LoadStaticFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("LoadStaticFile() expected error for missing file")
	}
}
