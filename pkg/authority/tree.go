// Package authority implements the authority tree and the resource
// coverage validator: it decides whether a candidate certificate or ROA
// is authorized by a chain of previously trusted certificates rooted at
// a Trust Anchor (spec.md sections 4.2-4.3).
package authority

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rpki-core/validator/pkg/rescert"
)

// ErrDuplicateSKI is wrapped by any error reporting a subject key
// identifier already present in the tree, so callers can errors.Is it
// instead of matching on message text.
var ErrDuplicateSKI = errors.New("duplicate subject key identifier")

// Auth owns a parsed certificate and holds a non-owning parent link to
// another Auth in the same tree, or nil for a Trust Anchor (spec.md
// section 3).
type Auth struct {
	Cert   *rescert.Cert
	Parent *Auth
}

// SKI returns the authority's key in the tree.
func (a *Auth) SKI() string {
	return a.Cert.SKI
}

// Tree is an ordered map from SKI to Auth (spec.md section 4.3). Parent
// links form a forest whose roots are TAs. The tree never reclaims
// entries during a validation run. Iteration order is a function of the
// SKI keys, not of insertion sequence, so two trees built from the same
// authorities in different orders iterate identically.
type Tree struct {
	bySKI map[string]*Auth
}

// New creates an empty authority tree.
func New() *Tree {
	return &Tree{bySKI: make(map[string]*Auth)}
}

// Find looks up the authority with the given SKI.
func (t *Tree) Find(ski string) (*Auth, bool) {
	a, ok := t.bySKI[ski]
	return a, ok
}

// Insert adds an authority to the tree, rejecting a duplicate SKI.
func (t *Tree) Insert(a *Auth) error {
	ski := a.SKI()
	if _, exists := t.bySKI[ski]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSKI, ski)
	}
	t.bySKI[ski] = a
	return nil
}

// All returns every authority in the tree ordered by SKI string, so
// diagnostics over the same set of authorities are stable regardless of
// insertion order (spec.md section 4.3).
func (t *Tree) All() []*Auth {
	skis := make([]string, 0, len(t.bySKI))
	for ski := range t.bySKI {
		skis = append(skis, ski)
	}
	sort.Strings(skis)
	out := make([]*Auth, len(skis))
	for i, ski := range skis {
		out[i] = t.bySKI[ski]
	}
	return out
}

// Len returns the number of authorities currently in the tree.
func (t *Tree) Len() int {
	return len(t.bySKI)
}
