package placeholder

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// buildTemplate assembles a synthetic template buffer with n ARG slots,
// mirroring the real stub's .runfiles_stubs layout closely enough to drive
// Locate/ReplaceAt without needing an actual compiled binary.
func buildTemplate(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x7fELF-fake-prefix-bytes-before-data-section\x00")
	buf.Write(padded("@@RUNFILES_ARGC@@", ArgcSize))
	buf.WriteString("\x00\x00junk-between-slots")
	buf.Write(padded("@@RUNFILES_TRANSFORM_FLAGS@@", TransformFlagsSize))
	buf.Write(padded("@@RUNFILES_EXPORT_ENV@@", ExportEnvSize))
	for i := 0; i < n; i++ {
		buf.Write(bytes.Repeat([]byte{'@'}, ArgSize))
	}
	buf.WriteString("trailing-bytes")
	return buf.Bytes()
}

func padded(s string, size int) []byte {
	b := make([]byte, size)
	copy(b, s)
	return b
}

func TestLocateFindsAllSlots(t *testing.T) {
	tmpl := buildTemplate(3)
	off, err := Locate(tmpl)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if off.ArgPlaceholders != 3 {
		t.Fatalf("ArgPlaceholders = %d, want 3", off.ArgPlaceholders)
	}
	for i := 0; i < 3; i++ {
		if _, err := off.NthArgOffset(i); err != nil {
			t.Fatalf("NthArgOffset(%d): %v", i, err)
		}
	}
	if _, err := off.NthArgOffset(3); !errors.Is(err, ErrArgPlaceholderMissing) {
		t.Fatalf("NthArgOffset(3) = %v, want ErrArgPlaceholderMissing", err)
	}
}

func TestLocateMissingMetadata(t *testing.T) {
	tmpl := []byte("no placeholders here at all")
	if _, err := Locate(tmpl); !errors.Is(err, ErrMetadataPlaceholderMissing) {
		t.Fatalf("Locate = %v, want ErrMetadataPlaceholderMissing", err)
	}
}

func TestNonOverlappingArgScan(t *testing.T) {
	// Two adjacent ArgSize runs (512 '@' bytes) must yield two matches
	// exactly ArgSize apart: the scan advances by the full pattern length,
	// not by 1 byte, after each hit.
	tmpl := buildTemplate(2)
	off, err := Locate(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	a0, _ := off.NthArgOffset(0)
	a1, _ := off.NthArgOffset(1)
	if a1-a0 != ArgSize {
		t.Fatalf("ARG1 offset - ARG0 offset = %d, want %d (non-overlapping)", a1-a0, ArgSize)
	}
}

func TestReplaceAtZeroFillsTail(t *testing.T) {
	buf := bytes.Repeat([]byte{'@'}, ArgSize)
	if err := ReplaceAt(buf, 0, []byte("hello"), ArgSize); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:5], []byte("hello")) {
		t.Fatalf("prefix = %q, want hello", buf[:5])
	}
	for i := 5; i < ArgSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("buf[%d] = %d, want 0 (zero-fill tail)", i, buf[i])
		}
	}
}

func TestReplaceAtValueTooLong(t *testing.T) {
	buf := make([]byte, ArgSize)
	err := ReplaceAt(buf, 0, bytes.Repeat([]byte{'x'}, ArgSize+1), ArgSize)
	if !errors.Is(err, ErrValueTooLong) {
		t.Fatalf("err = %v, want ErrValueTooLong", err)
	}
}

func TestReplaceAtDoesNotMutateOnFailure(t *testing.T) {
	buf := bytes.Repeat([]byte{'@'}, ArgSize)
	original := append([]byte(nil), buf...)
	_ = ReplaceAt(buf, 0, bytes.Repeat([]byte{'x'}, ArgSize+1), ArgSize)
	if !bytes.Equal(buf, original) {
		t.Fatal("ReplaceAt mutated buf despite returning an error")
	}
}

func TestReadCStringStopsAtFirstNUL(t *testing.T) {
	buf := make([]byte, ArgSize)
	copy(buf, "_main/bin/hash-file")
	got := ReadCString(buf, 0, ArgSize)
	if string(got) != "_main/bin/hash-file" {
		t.Fatalf("ReadCString = %q", got)
	}
}

func TestUnfinalized(t *testing.T) {
	if !Unfinalized([]byte("@@RUNFILES_ARGC@@")) {
		t.Fatal("sentinel content should be reported unfinalized")
	}
	if Unfinalized([]byte("2")) {
		t.Fatal("patched content should not be reported unfinalized")
	}
	if !strings.HasPrefix(SentinelPrefix, "@@RUNFILES_") {
		t.Fatal("SentinelPrefix constant drifted")
	}
}

// TestPatchDeterminism exercises the untouched-bytes half of spec property
// P1: after every slot is patched, each byte outside a placeholder slot still
// equals the template's byte. Slot contents are checked by
// TestReplaceAtZeroFillsTail.
func TestPatchDeterminism(t *testing.T) {
	tmpl := buildTemplate(2)
	off, err := Locate(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	patched := append([]byte(nil), tmpl...)
	if err := ReplaceAt(patched, off.Argc, []byte("2"), ArgcSize); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceAt(patched, off.TransformFlags, []byte("3"), TransformFlagsSize); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceAt(patched, off.ExportEnv, []byte("1"), ExportEnvSize); err != nil {
		t.Fatal(err)
	}
	a0, _ := off.NthArgOffset(0)
	a1, _ := off.NthArgOffset(1)
	if err := ReplaceAt(patched, a0, []byte("_main/bin/add"), ArgSize); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceAt(patched, a1, []byte("100"), ArgSize); err != nil {
		t.Fatal(err)
	}

	slots := []struct{ off, size int }{
		{off.Argc, ArgcSize}, {off.TransformFlags, TransformFlagsSize}, {off.ExportEnv, ExportEnvSize},
		{a0, ArgSize}, {a1, ArgSize},
	}
	inSlot := func(i int) bool {
		for _, s := range slots {
			if i >= s.off && i < s.off+s.size {
				return true
			}
		}
		return false
	}
	for i := range tmpl {
		if !inSlot(i) && patched[i] != tmpl[i] {
			t.Fatalf("byte %d outside any placeholder slot changed: %d -> %d", i, tmpl[i], patched[i])
		}
	}
}
