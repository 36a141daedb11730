package authority

import (
	"errors"
	"fmt"

	"github.com/rpki-core/validator/pkg/rescert"
	"github.com/rpki-core/validator/pkg/roa"
)

// ErrUnknownParent is wrapped by any error reporting an authority key
// identifier that names no known authority.
var ErrUnknownParent = errors.New("unknown parent authority key identifier")

// ValidSKIAKI locates the candidate's parent via its AKI, rejecting a
// candidate whose SKI is already present in the tree. A nil, nil result
// means the AKI names no known authority (spec.md section 4.2).
func ValidSKIAKI(file string, tree *Tree, ski, aki string) (*Auth, error) {
	if _, exists := tree.Find(ski); exists {
		return nil, fmt.Errorf("%s: %w: %s", file, ErrDuplicateSKI, ski)
	}
	parent, _ := tree.Find(aki)
	return parent, nil
}

// ValidTA reports whether cert qualifies as a Trust Anchor: no inherit
// entry of either kind, and its SKI not already present in the tree.
func ValidTA(file string, tree *Tree, cert *rescert.Cert) error {
	if cert.HasInheritAS() || cert.HasInheritIP() {
		return fmt.Errorf("%s: Trust Anchor must not carry inherit resources", file)
	}
	if _, exists := tree.Find(cert.SKI); exists {
		return fmt.Errorf("%s: %w: %s", file, ErrDuplicateSKI, cert.SKI)
	}
	return nil
}

// ValidCert checks that cert is correctly chained to a known parent whose
// resource allocation transitively covers every resource cert asserts
// (spec.md section 4.2). It returns nil on acceptance; a *CoverageError
// for a coverage-failure; a plain error otherwise.
func ValidCert(file string, tree *Tree, cert *rescert.Cert) error {
	parent, err := ValidSKIAKI(file, tree, cert.SKI, cert.AKI)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("%s: %w: %s", file, ErrUnknownParent, cert.AKI)
	}

	for _, e := range cert.AS {
		if e.Kind == rescert.ASEntryInherit {
			if cert.Purpose == rescert.PurposeBGPsecRouter {
				return fmt.Errorf("%s: bgpsec_router certificate AS resources must not inherit", file)
			}
			continue
		}
		min, max, _ := e.Bounds()
		if err := walkAS(min, max, parent); err != nil {
			return err
		}
	}

	for _, e := range cert.IPs {
		if e.Kind == rescert.IPEntryInherit {
			continue
		}
		min, max, _ := e.Bounds()
		if err := walkIP(e.AFI, min, max, parent); err != nil {
			return err
		}
	}

	return nil
}

// ValidROA locates the ROA's parent by AKI and checks that every
// asserted prefix is IP-covered by the chain. On success the ROA is
// stamped with its chain's TAL identifier.
func ValidROA(file string, tree *Tree, r *roa.ROA) error {
	parent, ok := tree.Find(r.AKI)
	if !ok {
		return fmt.Errorf("%s: %w: %s", file, ErrUnknownParent, r.AKI)
	}

	for _, p := range r.Prefixes {
		if err := walkIP(p.Prefix.AFI, p.Prefix.Min, p.Prefix.Max, parent); err != nil {
			return err
		}
	}

	r.TAL = parent.Cert.TAL
	return nil
}
