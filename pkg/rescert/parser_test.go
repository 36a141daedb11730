package rescert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/rpki-core/validator/internal/oid"
)

// ipFamily describes one IPAddressFamily element to embed in a test
// certificate's sbgp-ipAddrBlock extension.
type ipFamily struct {
	afi     []byte
	inherit bool
	prefix  *asn1.BitString           // set for an addressPrefix item
	rng     *[2]asn1.BitString        // set for an addressRange item
}

func marshalIPAddrBlock(t *testing.T, families []ipFamily) []byte {
	t.Helper()
	type rawFamily struct {
		AddressFamily []byte
		Choice        asn1.RawValue
	}

	var out []rawFamily
	for _, f := range families {
		fam := rawFamily{AddressFamily: f.afi}
		switch {
		case f.inherit:
			fam.Choice = asn1.RawValue{FullBytes: []byte{0x05, 0x00}}
		case f.prefix != nil:
			prefixBytes, err := asn1.Marshal(*f.prefix)
			if err != nil {
				t.Fatalf("marshal prefix: %v", err)
			}
			itemsBytes, err := asn1.Marshal([]asn1.RawValue{{FullBytes: prefixBytes}})
			if err != nil {
				t.Fatalf("marshal addressesOrRanges: %v", err)
			}
			fam.Choice = asn1.RawValue{FullBytes: itemsBytes}
		case f.rng != nil:
			rngBytes, err := asn1.Marshal(struct {
				Min asn1.BitString
				Max asn1.BitString
			}{f.rng[0], f.rng[1]})
			if err != nil {
				t.Fatalf("marshal addressRange: %v", err)
			}
			itemsBytes, err := asn1.Marshal([]asn1.RawValue{{FullBytes: rngBytes}})
			if err != nil {
				t.Fatalf("marshal addressesOrRanges: %v", err)
			}
			fam.Choice = asn1.RawValue{FullBytes: itemsBytes}
		}
		out = append(out, fam)
	}

	payload, err := asn1.Marshal(out)
	if err != nil {
		t.Fatalf("marshal IPAddrBlock: %v", err)
	}
	return payload
}

func marshalASNum(t *testing.T, inherit bool, ids []int64, ranges [][2]int64) []byte {
	t.Helper()
	var inner []byte
	var err error
	switch {
	case inherit:
		inner = []byte{0x05, 0x00}
	default:
		var items []asn1.RawValue
		for _, id := range ids {
			b, err := asn1.Marshal(id)
			if err != nil {
				t.Fatalf("marshal ASId: %v", err)
			}
			items = append(items, asn1.RawValue{FullBytes: b})
		}
		for _, r := range ranges {
			b, err := asn1.Marshal(struct{ Min, Max int64 }{r[0], r[1]})
			if err != nil {
				t.Fatalf("marshal ASRange: %v", err)
			}
			items = append(items, asn1.RawValue{FullBytes: b})
		}
		inner, err = asn1.Marshal(items)
		if err != nil {
			t.Fatalf("marshal asIdsOrRanges: %v", err)
		}
	}

	asnum := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: inner}
	payload, err := asn1.Marshal([]asn1.RawValue{asnum})
	if err != nil {
		t.Fatalf("marshal ASIdentifiers: %v", err)
	}
	return payload
}

func marshalSIA(t *testing.T, repo, mft, notify string) []byte {
	t.Helper()
	type accessDescription struct {
		Method   asn1.ObjectIdentifier
		Location asn1.RawValue
	}
	loc := func(uri string) asn1.RawValue {
		return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 6, Bytes: []byte(uri)}
	}
	descs := []accessDescription{
		{Method: oid.CARepository, Location: loc(repo)},
		{Method: oid.RpkiManifest, Location: loc(mft)},
	}
	if notify != "" {
		descs = append(descs, accessDescription{Method: oid.RpkiNotify, Location: loc(notify)})
	}
	payload, err := asn1.Marshal(descs)
	if err != nil {
		t.Fatalf("marshal SubjectInfoAccessSyntax: %v", err)
	}
	return payload
}

type caCertOpts struct {
	ski, aki          string
	aia, crl          string
	ipAddrBlock       []byte
	ipAddrBlockDup    []byte // a second sbgp-ipAddrBlock extension, for duplicate-extension tests
	asNum             []byte
	repo, mft, notify string
}

func buildCACert(t *testing.T, o caCertOpts) []byte {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	var extraExts []pkix.Extension
	if o.ipAddrBlock != nil {
		extraExts = append(extraExts, pkix.Extension{Id: oid.IPAddrBlock, Value: o.ipAddrBlock})
	}
	if o.ipAddrBlockDup != nil {
		extraExts = append(extraExts, pkix.Extension{Id: oid.IPAddrBlock, Value: o.ipAddrBlockDup})
	}
	if o.asNum != nil {
		extraExts = append(extraExts, pkix.Extension{Id: oid.AutonomousSysNum, Value: o.asNum})
	}
	if o.mft != "" {
		extraExts = append(extraExts, pkix.Extension{
			Id:    oid.SubjectInfoAccess,
			Value: marshalSIA(t, o.repo, o.mft, o.notify),
		})
	}

	tpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte(o.ski),
		AuthorityKeyId:        []byte(o.aki),
		ExtraExtensions:       extraExts,
	}
	if o.aia != "" {
		tpl.IssuingCertificateURL = []string{o.aia}
	}
	if o.crl != "" {
		tpl.CRLDistributionPoints = []string{o.crl}
	}

	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	return der
}

func TestParseCACertificate(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "subject-key", aki: "issuer-key",
		aia: "rsync://repo/parent.cer", crl: "rsync://repo/parent.crl",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{10, 0, 0}, BitLength: 24}},
		}),
		asNum: marshalASNum(t, false, []int64{64500}, nil),
		repo:  "rsync://repo/", mft: "rsync://repo/child.mft", notify: "https://repo.example/notify.xml",
	})

	cert, err := Parse("child.cer", der, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cert.Purpose != PurposeCA {
		t.Errorf("Purpose = %v, want PurposeCA", cert.Purpose)
	}
	if cert.Manifest != "rsync://repo/child.mft" {
		t.Errorf("Manifest = %q", cert.Manifest)
	}
	if cert.Repo != "rsync://repo/" {
		t.Errorf("Repo = %q", cert.Repo)
	}
	if cert.Notify != "https://repo.example/notify.xml" {
		t.Errorf("Notify = %q", cert.Notify)
	}
	if len(cert.IPs) != 1 || cert.IPs[0].Kind != IPEntryAddr {
		t.Fatalf("IPs = %+v", cert.IPs)
	}
	if len(cert.AS) != 1 || cert.AS[0].Kind != ASEntryID || cert.AS[0].ID != 64500 {
		t.Fatalf("AS = %+v", cert.AS)
	}
	if cert.AIA != "rsync://repo/parent.cer" || cert.CRL != "rsync://repo/parent.crl" {
		t.Errorf("AIA = %q, CRL = %q", cert.AIA, cert.CRL)
	}
}

func TestParseDuplicateIPAddrBlockFirstWins(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "subject-key", aki: "issuer-key",
		aia: "rsync://repo/parent.cer",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{10, 0, 0}, BitLength: 24}},
		}),
		ipAddrBlockDup: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{192, 0, 0}, BitLength: 24}},
		}),
		asNum: marshalASNum(t, false, []int64{64500}, nil),
		repo:  "rsync://repo/", mft: "rsync://repo/child.mft",
	})

	cert, err := Parse("child.cer", der, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cert.IPs) != 1 {
		t.Fatalf("IPs = %+v, want exactly the first sbgp-ipAddrBlock's entry", cert.IPs)
	}
	min, _, ok := cert.IPs[0].Bounds()
	if !ok || min[0] != 10 {
		t.Errorf("IPs[0] = %+v, want the 10.0.0.0/8 entry from the first extension", cert.IPs[0])
	}
}

func TestParseRejectsMissingManifest(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "subject-key", aki: "issuer-key",
		aia: "rsync://repo/parent.cer",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, inherit: true},
		}),
	})
	if _, err := Parse("child.cer", der, false); err == nil {
		t.Fatal("expected error for CA certificate with no SIA rpkiManifest")
	}
}

func TestParseRejectsOverlappingIPResources(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "subject-key", aki: "issuer-key",
		aia: "rsync://repo/parent.cer",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{10, 0, 0}, BitLength: 24}},
			{afi: []byte{0, 1}, rng: &[2]asn1.BitString{
				{Bytes: []byte{10, 0, 0, 128}, BitLength: 32},
				{Bytes: []byte{10, 0, 1, 0}, BitLength: 32},
			}},
		}),
		repo: "rsync://repo/", mft: "rsync://repo/child.mft",
	})
	if _, err := Parse("child.cer", der, false); err == nil {
		t.Fatal("expected error for overlapping IPv4 resources")
	}
}

func TestParseRejectsInheritAndExplicitSameAFI(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "subject-key", aki: "issuer-key",
		aia: "rsync://repo/parent.cer",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, inherit: true},
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{10, 0, 0}, BitLength: 24}},
		}),
		repo: "rsync://repo/", mft: "rsync://repo/child.mft",
	})
	if _, err := Parse("child.cer", der, false); err == nil {
		t.Fatal("expected error for inherit coexisting with explicit resources in the same family")
	}
}

func TestParseTAAuthenticatesAgainstPin(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "ta-key", aki: "ta-key",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, prefix: &asn1.BitString{Bytes: []byte{10, 0, 0}, BitLength: 24}},
		}),
		asNum: marshalASNum(t, false, []int64{64500}, nil),
		repo:  "rsync://repo/", mft: "rsync://repo/ta.mft",
	})
	x509cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}

	if _, err := ParseTA("ta.cer", der, x509cert.RawSubjectPublicKeyInfo); err != nil {
		t.Fatalf("ParseTA with correct pin: %v", err)
	}
	if _, err := ParseTA("ta.cer", der, []byte("wrong pin")); err == nil {
		t.Fatal("expected error for a TA public key that doesn't match its TAL pin")
	}
}

func TestParseTARejectsInheritResources(t *testing.T) {
	der := buildCACert(t, caCertOpts{
		ski: "ta-key", aki: "ta-key",
		ipAddrBlock: marshalIPAddrBlock(t, []ipFamily{
			{afi: []byte{0, 1}, inherit: true},
		}),
		repo: "rsync://repo/", mft: "rsync://repo/ta.mft",
	})
	if _, err := Parse("ta.cer", der, true); err == nil {
		t.Fatal("expected Trust Anchor with inherit IP resources to be rejected")
	}
}

func TestParseBGPsecRouterCertificate(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tpl := &x509.Certificate{
		SerialNumber:       big.NewInt(1),
		Subject:            pkix.Name{CommonName: "test router"},
		NotBefore:          time.Now().Add(-time.Hour),
		NotAfter:           time.Now().Add(24 * time.Hour),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		SubjectKeyId:       []byte("router-key"),
		AuthorityKeyId:     []byte("issuer-key"),
		UnknownExtKeyUsage: []asn1.ObjectIdentifier{oid.ExtKeyUsageBGPsecRouter},
		ExtraExtensions: []pkix.Extension{
			{Id: oid.AutonomousSysNum, Value: marshalASNum(t, false, []int64{64500}, nil)},
		},
		IssuingCertificateURL: []string{"rsync://repo/parent.cer"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	cert, err := Parse("router.cer", der, false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cert.Purpose != PurposeBGPsecRouter {
		t.Errorf("Purpose = %v, want PurposeBGPsecRouter", cert.Purpose)
	}
	if cert.PubKey == nil {
		t.Error("expected a subject public key on a bgpsec_router certificate")
	}
	if len(cert.IPs) != 0 {
		t.Errorf("bgpsec_router certificate must not carry IP resources, got %+v", cert.IPs)
	}
}

func TestParseBGPsecRouterRejectsSIA(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tpl := &x509.Certificate{
		SerialNumber:       big.NewInt(1),
		Subject:            pkix.Name{CommonName: "test router"},
		NotBefore:          time.Now().Add(-time.Hour),
		NotAfter:           time.Now().Add(24 * time.Hour),
		SubjectKeyId:       []byte("router-key"),
		AuthorityKeyId:     []byte("issuer-key"),
		UnknownExtKeyUsage: []asn1.ObjectIdentifier{oid.ExtKeyUsageBGPsecRouter},
		ExtraExtensions: []pkix.Extension{
			{Id: oid.AutonomousSysNum, Value: marshalASNum(t, false, []int64{64500}, nil)},
			{Id: oid.SubjectInfoAccess, Value: marshalSIA(t, "rsync://repo/", "rsync://repo/x.mft", "")},
		},
		IssuingCertificateURL: []string{"rsync://repo/parent.cer"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	if _, err := Parse("router.cer", der, false); err == nil {
		t.Fatal("expected error for bgpsec_router certificate carrying subjectInfoAccess")
	}
}
