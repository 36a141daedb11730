// Package rescert implements the resource-certificate parser: it decodes
// the ASN.1 body of an X.509 certificate carrying RFC 3779 Internet
// number resource extensions, extracts the SIA pointers, and consolidates
// the result into a Cert record alongside an owned x509.Certificate
// handle.
package rescert

import (
	"crypto"
	"crypto/x509"
	"time"

	"github.com/rpki-core/validator/pkg/ipaddr"
)

// Purpose classifies what a certificate's subject key may be used for.
type Purpose int

const (
	PurposeUnknown Purpose = iota
	PurposeCA
	PurposeBGPsecRouter
)

func (p Purpose) String() string {
	switch p {
	case PurposeCA:
		return "ca"
	case PurposeBGPsecRouter:
		return "bgpsec_router"
	default:
		return "unknown"
	}
}

// IPEntryKind tags the variant held by an IPEntry.
type IPEntryKind int

const (
	IPEntryAddr IPEntryKind = iota
	IPEntryRange
	IPEntryInherit
)

// IPEntry is one entry of a certificate's IP resource set (cert_ip in
// spec.md section 3): either a prefix, an explicit range, or an inherit
// marker for one address family.
type IPEntry struct {
	AFI    ipaddr.AFI
	Kind   IPEntryKind
	Prefix ipaddr.Prefix // valid iff Kind == IPEntryAddr
	Range  ipaddr.Range  // valid iff Kind == IPEntryRange
}

// Bounds returns the entry's [min, max] byte-wise interval. ok is false
// for an inherit entry, which has no bounds of its own.
func (e IPEntry) Bounds() (min, max []byte, ok bool) {
	switch e.Kind {
	case IPEntryAddr:
		return e.Prefix.Min, e.Prefix.Max, true
	case IPEntryRange:
		return e.Range.Min, e.Range.Max, true
	default:
		return nil, nil, false
	}
}

// ASEntryKind tags the variant held by an ASEntry.
type ASEntryKind int

const (
	ASEntryID ASEntryKind = iota
	ASEntryRange
	ASEntryInherit
)

// ASEntry is one entry of a certificate's AS resource set (cert_as in
// spec.md section 3).
type ASEntry struct {
	Kind ASEntryKind
	ID   uint32 // valid iff Kind == ASEntryID
	Min  uint32 // valid iff Kind == ASEntryRange
	Max  uint32 // valid iff Kind == ASEntryRange
}

// Bounds returns the entry's [min, max] inclusive interval. ok is false
// for an inherit entry.
func (e ASEntry) Bounds() (min, max uint32, ok bool) {
	switch e.Kind {
	case ASEntryID:
		return e.ID, e.ID, true
	case ASEntryRange:
		return e.Min, e.Max, true
	default:
		return 0, 0, false
	}
}

// Cert is the fully parsed resource certificate record (cert in spec.md
// section 3). It never mutates after being parsed except that a
// validator may set TAL and Valid once, on acceptance into the authority
// tree.
type Cert struct {
	SKI string
	AKI string // empty only for a TA
	AIA string // empty for a TA, required otherwise
	CRL string // forbidden for a TA

	Manifest string // mft: rsync URI ending in .mft
	Repo     string // repo: rsync URI, must prefix Manifest
	Notify   string // notify: https URI

	IPs []IPEntry
	AS  []ASEntry

	Expires time.Time
	Purpose Purpose
	PubKey  crypto.PublicKey // present iff Purpose == PurposeBGPsecRouter

	TAL   string // set by the validator on acceptance
	Valid bool   // set by the validator on acceptance

	X509 *x509.Certificate
}

// HasInheritAS reports whether the AS resource set contains an inherit
// entry.
func (c *Cert) HasInheritAS() bool {
	for _, e := range c.AS {
		if e.Kind == ASEntryInherit {
			return true
		}
	}
	return false
}

// HasInheritIP reports whether any IP resource entry, of any family, is
// an inherit marker.
func (c *Cert) HasInheritIP() bool {
	for _, e := range c.IPs {
		if e.Kind == IPEntryInherit {
			return true
		}
	}
	return false
}
