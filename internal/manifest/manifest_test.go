package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestParseBasicEntries(t *testing.T) {
	data := []byte("_main/bin/add /abs/bin/add\n_main/data/f.txt /abs/data/f.txt\n")
	m := Parse(data, MaxEntriesPOSIX, MaxValueBytesPOSIX)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if v, ok := m.Lookup("_main/bin/add"); !ok || v != "/abs/bin/add" {
		t.Fatalf("Lookup(_main/bin/add) = %q, %v", v, ok)
	}
}

func TestParseStripsTrailingCR(t *testing.T) {
	data := []byte("key value\r\n")
	m := Parse(data, MaxEntriesPOSIX, MaxValueBytesPOSIX)
	v, ok := m.Lookup("key")
	if !ok || v != "value" {
		t.Fatalf("Lookup(key) = %q, %v, want %q, true", v, ok, "value")
	}
}

func TestParseDropsLinesWithoutSpace(t *testing.T) {
	data := []byte("_main/.runfile\nkey value\n")
	m := Parse(data, MaxEntriesPOSIX, MaxValueBytesPOSIX)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (marker line dropped)", m.Len())
	}
}

func TestParseTruncatesOversizeValue(t *testing.T) {
	long := bytes.Repeat([]byte{'x'}, MaxValueBytesPOSIX+10)
	data := append([]byte("key "), long...)
	m := Parse(data, MaxEntriesPOSIX, MaxValueBytesPOSIX)
	v, _ := m.Lookup("key")
	if len(v) != MaxValueBytesPOSIX {
		t.Fatalf("value len = %d, want %d", len(v), MaxValueBytesPOSIX)
	}
}

func TestParseCapsAtMaxEntries(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 5; i++ {
		buf.WriteString("k v\n")
	}
	m := Parse(buf.Bytes(), 3, MaxValueBytesPOSIX)
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
}

func TestLoadMissingFileReturnsNilNil(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "does-not-exist"), MaxEntriesPOSIX, MaxValueBytesPOSIX)
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if m != nil {
		t.Fatalf("m = %v, want nil", m)
	}
}

func TestLoadReadsRealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MANIFEST")
	if err := os.WriteFile(path, []byte("_main/bin/add /abs/bin/add\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path, MaxEntriesPOSIX, MaxValueBytesPOSIX)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := m.Lookup("_main/bin/add"); !ok || v != "/abs/bin/add" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
}

func TestLookupAndLenOnNilManifest(t *testing.T) {
	var m *Manifest
	if _, ok := m.Lookup("anything"); ok {
		t.Fatal("nil manifest should never find a key")
	}
	if m.Len() != 0 {
		t.Fatal("nil manifest Len() should be 0")
	}
}
