// Package rpkifile implements the two filesystem-adjacent predicates the
// fetch/validate pipeline needs before handing a file to the parser:
// whether a repository-relative filename is well-formed (spec.md section
// 4.2) and whether a file's content matches an expected SHA-256 digest.
// Both predicates are pure functions of external state (a name, a file's
// bytes) rather than of any certificate, so they live outside rescert.
package rpkifile

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// hashCache memoizes ValidFileHash results by path, mtime, and expected
// digest, so a manifest walk that re-checks the same file across several
// parent directories doesn't re-read and re-hash it every time. Entries
// expire quickly: this is a same-run optimization, not a durable record,
// since the RPKI repository it watches can be rewritten between runs.
var hashCache = cache.New(2*time.Minute, 5*time.Minute)

// validExtensions are the object types spec.md section 4.2 recognizes.
var validExtensions = map[string]bool{
	".cer": true,
	".crl": true,
	".gbr": true,
	".roa": true,
}

// ValidFilename reports whether name (a base name, not a path) satisfies
// spec.md section 4.2: at least 5 characters, composed only of letters,
// digits, '.', '_', and '-', containing exactly one '.', with an
// extension of cer, crl, gbr, or roa (case-insensitive).
func ValidFilename(name string) bool {
	if len(name) < 5 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	if strings.Count(name, ".") != 1 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return validExtensions[ext]
}

// ValidFileHash reports whether the file at path hashes to expected under
// SHA-256. It returns (false, nil) if the file cannot be opened or its
// digest doesn't match, and a non-nil error only for a malformed
// expectedLen, which signals a caller bug rather than an untrusted-input
// condition.
func ValidFileHash(path string, expected []byte, expectedLen int) (bool, error) {
	if expectedLen != sha256.Size {
		return false, fmt.Errorf("rpkifile: expected digest length %d, want %d", expectedLen, sha256.Size)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, nil
	}

	key := cacheKey(path, info.ModTime(), expected)
	if cached, ok := hashCache.Get(key); ok {
		return cached.(bool), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, nil
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, nil
	}

	match := string(h.Sum(nil)) == string(expected)
	hashCache.SetDefault(key, match)
	return match, nil
}

func cacheKey(path string, mtime time.Time, expected []byte) string {
	return fmt.Sprintf("%s|%d|%x", path, mtime.UnixNano(), expected)
}
