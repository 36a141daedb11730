package authority

import "github.com/rpki-core/validator/pkg/rescert"

// InstallTA validates cert as a Trust Anchor and, on success, wraps it in
// an Auth and inserts it into tree, stamping cert.TAL and cert.Valid
// (spec.md section 3 lifecycle). tal identifies the Trust Anchor Locator
// that authenticated this certificate's public key.
func InstallTA(file string, tree *Tree, cert *rescert.Cert, tal string) (*Auth, error) {
	if err := ValidTA(file, tree, cert); err != nil {
		return nil, err
	}
	cert.TAL = tal
	cert.Valid = true
	a := &Auth{Cert: cert}
	if err := tree.Insert(a); err != nil {
		return nil, err
	}
	return a, nil
}

// InstallCert validates cert against tree and, on success, wraps it in an
// Auth parented to the authority named by cert.AKI and inserts it,
// stamping cert.TAL (inherited from the parent) and cert.Valid.
func InstallCert(file string, tree *Tree, cert *rescert.Cert) (*Auth, error) {
	if err := ValidCert(file, tree, cert); err != nil {
		return nil, err
	}
	parent, _ := tree.Find(cert.AKI)
	cert.TAL = parent.Cert.TAL
	cert.Valid = true
	a := &Auth{Cert: cert, Parent: parent}
	if err := tree.Insert(a); err != nil {
		return nil, err
	}
	return a, nil
}
