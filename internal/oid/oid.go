// Package oid holds the object identifiers the certificate parser needs to
// recognize. They are eagerly initialized package-level values rather than
// a lazily-guarded cache; encoding/asn1.ObjectIdentifier construction is
// cheap enough that there is nothing to gain from deferring it.
package oid

import "encoding/asn1"

// Extensions left to crypto/x509's own parsing (subjectKeyIdentifier,
// authorityKeyIdentifier, keyUsage, extKeyUsage, basicConstraints,
// authorityInfoAccess, crlDistributionPoints) have no constants here: this
// module never dispatches on their OIDs directly, it reads the already
// decoded x509.Certificate fields instead.
var (
	// Certificate extensions this module decodes itself (subjectInfoAccess
	// per RFC 6487, the other two per RFC 3779).
	SubjectInfoAccess = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 11}
	IPAddrBlock       = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 7}
	AutonomousSysNum  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 8}

	// Extended key usages (RFC 6487 / draft-ietf-sidrops bgpsec).
	ExtKeyUsageBGPsecRouter = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 30}

	// SIA accessDescription method OIDs (RFC 6487 section 4.8.8).
	CARepository = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 5}
	RpkiManifest = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 10}
	RpkiNotify   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 13}
)
