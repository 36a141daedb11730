package roa

import (
	"fmt"
	"time"

	"github.com/rpki-core/validator/pkg/rescert"
)

// MaxBRKRangeSpan bounds how many individual AS ids a single AS range
// entry may expand into when synthesizing BRKs. RFC 3779 AS ranges are
// 32-bit and a worst-case range would expand to billions of records;
// spec.md's design notes flag this as an open question and ask for a cap
// or rejection rather than silent truncation. This implementation
// rejects with a resource-exhaustion-class error.
const MaxBRKRangeSpan = 10000

// BRK is a BGPsec Router Key: a binding of one AS number to a router's
// public key (spec.md GLOSSARY, section 4.4).
type BRK struct {
	ASID    uint32
	SKI     string
	PubKey  string // DER SubjectPublicKeyInfo, as a comparable string
	TAL     string
	Expires time.Time
}

type brkKey struct {
	ASID   uint32
	SKI    string
	PubKey string
}

// BRKSet is an ordered set of BRKs keyed by (asid, ski, pubkey). An
// insert that collides with an existing key keeps the later expiry (and
// its associated TAL); insertion order of distinct keys is preserved
// across replacements.
type BRKSet struct {
	order []brkKey
	byKey map[brkKey]BRK
}

// NewBRKSet creates an empty BRK set.
func NewBRKSet() *BRKSet {
	return &BRKSet{byKey: make(map[brkKey]BRK)}
}

// Insert adds or updates b, reporting whether the set changed.
func (s *BRKSet) Insert(b BRK) bool {
	key := brkKey{ASID: b.ASID, SKI: b.SKI, PubKey: b.PubKey}
	existing, exists := s.byKey[key]
	if !exists {
		s.byKey[key] = b
		s.order = append(s.order, key)
		return true
	}
	if b.Expires.After(existing.Expires) {
		s.byKey[key] = b
		return true
	}
	return false
}

// All returns the BRKs in the order their keys were first inserted.
func (s *BRKSet) All() []BRK {
	out := make([]BRK, len(s.order))
	for i, key := range s.order {
		out[i] = s.byKey[key]
	}
	return out
}

// InsertBRKs synthesizes one BRK per AS number asserted by a BGPsec
// router certificate and inserts each into set, returning how many
// records changed the set.
func InsertBRKs(set *BRKSet, cert *rescert.Cert) (int, error) {
	if cert.Purpose != rescert.PurposeBGPsecRouter {
		return 0, fmt.Errorf("cert_insert_brks: not a bgpsec_router certificate")
	}
	if cert.X509 == nil {
		return 0, fmt.Errorf("cert_insert_brks: certificate has no X.509 handle")
	}
	pubKey := string(cert.X509.RawSubjectPublicKeyInfo)

	changed := 0
	for _, e := range cert.AS {
		switch e.Kind {
		case rescert.ASEntryID:
			if set.Insert(BRK{ASID: e.ID, SKI: cert.SKI, PubKey: pubKey, TAL: cert.TAL, Expires: cert.Expires}) {
				changed++
			}
		case rescert.ASEntryRange:
			span := uint64(e.Max) - uint64(e.Min) + 1
			if span > MaxBRKRangeSpan {
				return changed, fmt.Errorf("cert_insert_brks: AS range [%d, %d] spans %d ids, exceeds cap %d",
					e.Min, e.Max, span, MaxBRKRangeSpan)
			}
			for id := e.Min; ; id++ {
				if set.Insert(BRK{ASID: id, SKI: cert.SKI, PubKey: pubKey, TAL: cert.TAL, Expires: cert.Expires}) {
					changed++
				}
				if id == e.Max {
					break
				}
			}
		case rescert.ASEntryInherit:
			return changed, fmt.Errorf("cert_insert_brks: AS resources must not inherit")
		}
	}
	return changed, nil
}
