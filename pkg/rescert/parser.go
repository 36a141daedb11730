package rescert

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rpki-core/validator/internal/oid"
)

// ErrUnknownPurpose is wrapped by the error returned when a certificate
// is neither a CA (basic constraints) nor a bgpsec_router certificate
// (BGPsec Router extended key usage).
var ErrUnknownPurpose = errors.New("unrecognized certificate purpose")

// Parse decodes the DER body of a resource certificate, walks its
// extensions, and consolidates the result into a Cert plus its owned
// x509.Certificate handle (spec.md section 4.1).
//
// file names the object for diagnostics only. der is the untrusted
// ASN.1 body. isTA indicates whether the post-extension validation rules
// for a Trust Anchor apply. Any violation is a fatal parse error; no
// partial Cert is returned.
func Parse(file string, der []byte, isTA bool) (*Cert, error) {
	x509cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%s: x509 decode: %w", file, err)
	}

	ipAcc := newIPAccumulator()
	asAcc := newASAccumulator()
	var sia siaFields
	siaPresent := false
	ipBlockPresent := false
	asNumPresent := false

	// x509.ParseCertificate above already rejects a certificate that
	// repeats any extension OID, so this loop sees each of
	// sbgp-ipAddrBlock, sbgp-autonomousSysNum, and subjectInfoAccess at
	// most once; the *Present flags record which of them appeared.
	for _, ext := range x509cert.Extensions {
		switch {
		case ext.Id.Equal(oid.IPAddrBlock):
			if ipBlockPresent {
				continue
			}
			ipBlockPresent = true
			if err := parseIPAddrBlock(ext.Value, ipAcc); err != nil {
				return nil, fmt.Errorf("%s: sbgp-ipAddrBlock (RFC 3779 section 2.2.3): %w", file, err)
			}
		case ext.Id.Equal(oid.AutonomousSysNum):
			if asNumPresent {
				continue
			}
			asNumPresent = true
			if err := parseASNum(ext.Value, asAcc); err != nil {
				return nil, fmt.Errorf("%s: sbgp-autonomousSysNum (RFC 3779 section 3.2.3): %w", file, err)
			}
		case ext.Id.Equal(oid.SubjectInfoAccess):
			if siaPresent {
				continue
			}
			siaPresent = true
			if err := parseSIA(ext.Value, &sia); err != nil {
				return nil, fmt.Errorf("%s: subjectInfoAccess (RFC 6487 section 4.8.8): %w", file, err)
			}
		default:
			// crlDistributionPoints, authorityInfoAccess, authority/
			// subject keyIdentifier, extKeyUsage are consumed by the
			// x509 library below and not re-parsed here; any other OID
			// is silently accepted.
		}
	}

	cert := &Cert{
		IPs:      ipAcc.entries(),
		AS:       asAcc.result(),
		Repo:     sia.repo,
		Manifest: sia.mft,
		Notify:   sia.notify,
		Expires:  x509cert.NotAfter,
		X509:     x509cert,
	}

	if len(x509cert.SubjectKeyId) == 0 {
		return nil, fmt.Errorf("%s: missing subject key identifier", file)
	}
	cert.SKI = hex.EncodeToString(x509cert.SubjectKeyId)
	if len(x509cert.AuthorityKeyId) > 0 {
		cert.AKI = hex.EncodeToString(x509cert.AuthorityKeyId)
	}
	if len(x509cert.IssuingCertificateURL) > 0 {
		cert.AIA = x509cert.IssuingCertificateURL[0]
	}
	if len(x509cert.CRLDistributionPoints) > 0 {
		cert.CRL = x509cert.CRLDistributionPoints[0]
	}

	purpose, pubKey, err := classifyPurpose(x509cert)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	cert.Purpose = purpose
	cert.PubKey = pubKey

	if err := validateStructure(cert, isTA, siaPresent); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return cert, nil
}

// ParseTA parses a Trust Anchor certificate and additionally authenticates
// it against the public key pinned by its TAL (Trust Anchor Locator):
// talPubKey is the DER-encoded SubjectPublicKeyInfo from the TAL, and must
// match the certificate's own subject public key byte-for-byte.
func ParseTA(file string, der []byte, talPubKey []byte) (*Cert, error) {
	cert, err := Parse(file, der, true)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(cert.X509.RawSubjectPublicKeyInfo, talPubKey) {
		return nil, fmt.Errorf("%s: TA public key does not match TAL pin", file)
	}
	return cert, nil
}

// classifyPurpose determines whether a certificate is a CA or a BGPsec
// router certificate from its basic constraints and extended key usage.
func classifyPurpose(cert *x509.Certificate) (Purpose, crypto.PublicKey, error) {
	if cert.IsCA {
		return PurposeCA, nil, nil
	}
	for _, oidv := range cert.UnknownExtKeyUsage {
		if oidv.Equal(oid.ExtKeyUsageBGPsecRouter) {
			return PurposeBGPsecRouter, cert.PublicKey, nil
		}
	}
	return PurposeUnknown, nil, fmt.Errorf("%w (not CA, not bgpsec_router)", ErrUnknownPurpose)
}

// validateStructure enforces the post-extension invariants of spec.md
// section 4.1.
func validateStructure(cert *Cert, isTA bool, siaPresent bool) error {
	switch cert.Purpose {
	case PurposeCA:
		if cert.Manifest == "" {
			return fmt.Errorf("ca certificate missing SIA rpkiManifest")
		}
		if len(cert.IPs) == 0 && len(cert.AS) == 0 {
			return fmt.Errorf("ca certificate has no IP or AS resources")
		}
	case PurposeBGPsecRouter:
		if cert.PubKey == nil {
			return fmt.Errorf("bgpsec_router certificate missing subject public key")
		}
		if len(cert.IPs) != 0 {
			return fmt.Errorf("bgpsec_router certificate must not carry IP resources")
		}
		if siaPresent {
			return fmt.Errorf("bgpsec_router certificate must not carry subjectInfoAccess")
		}
	}

	if cert.SKI == "" {
		return fmt.Errorf("missing subject key identifier")
	}

	if isTA {
		if cert.AKI != "" && cert.AKI != cert.SKI {
			return fmt.Errorf("TA authority key identifier must equal subject key identifier")
		}
		if cert.AIA != "" {
			return fmt.Errorf("TA must not carry authorityInfoAccess")
		}
		if cert.CRL != "" {
			return fmt.Errorf("TA must not carry crlDistributionPoints")
		}
		if cert.HasInheritAS() || cert.HasInheritIP() {
			return fmt.Errorf("TA must not carry inherit resources")
		}
		return nil
	}

	if cert.AKI == "" {
		return fmt.Errorf("missing authority key identifier")
	}
	if cert.AKI == cert.SKI {
		return fmt.Errorf("authority key identifier must differ from subject key identifier")
	}
	if cert.AIA == "" {
		return fmt.Errorf("missing authorityInfoAccess")
	}
	return nil
}
