// Package roa carries the minimal Route Origin Authorization data model
// the coverage validator needs (CMS envelope parsing is out of scope,
// spec.md section 1) and the BGPsec Router Key (BRK) aggregator of
// spec.md section 4.4.
package roa

import "github.com/rpki-core/validator/pkg/ipaddr"

// Prefix is one asserted (prefix, maxLength) pair of a ROA (RFC 6482
// section 3.3).
type Prefix struct {
	Prefix    ipaddr.Prefix
	MaxLength int // 0 means "no maxLength asserted", equal to the prefix length
}

// ROA is the already-decoded content a relying-party core validates: the
// CMS signature and eContent parsing that produce it are an external
// collaborator's responsibility (spec.md section 1).
type ROA struct {
	AKI      string
	ASID     uint32
	Prefixes []Prefix

	// TAL is set by ValidROA on acceptance, naming the chain's Trust
	// Anchor Locator.
	TAL string
}
