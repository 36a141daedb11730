package rescert

import "strings"

// validURI implements the URI predicate from spec.md section 4.1 / 8: a
// URI is accepted iff every byte is printable, non-space ASCII, the
// optional protocol prefix matches case-insensitively, and the substring
// "/." does not appear anywhere (it would otherwise let a relative or
// traversal path masquerade as a repository pointer).
func validURI(uri, prefix string) bool {
	if prefix != "" {
		if len(uri) < len(prefix) || !strings.EqualFold(uri[:len(prefix)], prefix) {
			return false
		}
	}
	for i := 0; i < len(uri); i++ {
		if c := uri[i]; c <= 0x20 || c >= 0x7f {
			return false
		}
	}
	return !strings.Contains(uri, "/.")
}
