package rpkifile

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestValidFilename(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"root.cer", true},
		{"root.CER", true},
		{"child.roa", true},
		{"ghostbuster.gbr", true},
		{"parent.crl", true},
		{"a.cer", true},       // exactly the 5-character minimum
		{".cer", false},       // below the 5-character minimum
		{"abcde.txt", false},  // wrong extension
		{"two.dots.cer", false},
		{"has space.cer", false},
		{"has/slash.cer", false},
		{"noext", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ValidFilename(c.name); got != c.ok {
				t.Errorf("ValidFilename(%q) = %v, want %v", c.name, got, c.ok)
			}
		})
	}
}

func TestValidFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "object.cer")
	content := []byte("resource certificate bytes")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sum := sha256.Sum256(content)

	ok, err := ValidFileHash(path, sum[:], sha256.Size)
	if err != nil {
		t.Fatalf("ValidFileHash: %v", err)
	}
	if !ok {
		t.Error("expected digest to match")
	}

	wrong := sha256.Sum256([]byte("different content"))
	ok, err = ValidFileHash(path, wrong[:], sha256.Size)
	if err != nil {
		t.Fatalf("ValidFileHash: %v", err)
	}
	if ok {
		t.Error("expected digest mismatch to be reported as false, not an error")
	}

	ok, err = ValidFileHash(filepath.Join(dir, "missing.cer"), sum[:], sha256.Size)
	if err != nil {
		t.Fatalf("ValidFileHash on missing file: %v", err)
	}
	if ok {
		t.Error("expected missing file to report false")
	}

	if _, err := ValidFileHash(path, sum[:], 10); err == nil {
		t.Error("expected error for malformed expectedLen")
	}
}
