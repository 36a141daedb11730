// Package rpkicodec implements the length-free, fixed-order IPC byte
// stream that lets the untrusted parser process hand a parsed
// certificate record to the trusted validator process (spec.md section
// 4.5). The wire format has no envelope length or type tags: every field
// is written and must be read back in exactly the declared order.
package rpkicodec

import (
	"bytes"
	"crypto/x509"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rpki-core/validator/pkg/ipaddr"
	"github.com/rpki-core/validator/pkg/rescert"
)

// maxStringLen and maxEntryCount bound how much a single length field
// read off the wire is allowed to ask for. The IPC boundary is a
// security-critical trust boundary (spec.md section 9): a corrupted or
// hostile parser process must not be able to make the validator
// allocate gigabytes from a single forged length field.
const (
	maxStringLen  = 1 << 20
	maxEntryCount = 1 << 20
)

// Encode serializes cert in the field order required by spec.md section
// 4.5: valid, expires, purpose, ipsz, ips..., asz, as..., then the
// string fields mft, notify, repo, crl, aia, aki, ski, tal, pubkey.
func Encode(cert *rescert.Cert) ([]byte, error) {
	var buf bytes.Buffer

	writeBool(&buf, cert.Valid)
	writeInt64(&buf, cert.Expires.Unix())
	writeUint8(&buf, uint8(cert.Purpose))

	writeUint32(&buf, uint32(len(cert.IPs)))
	for _, e := range cert.IPs {
		if err := writeIPEntry(&buf, e); err != nil {
			return nil, err
		}
	}

	writeUint32(&buf, uint32(len(cert.AS)))
	for _, e := range cert.AS {
		writeASEntry(&buf, e)
	}

	writeString(&buf, cert.Manifest)
	writeString(&buf, cert.Notify)
	writeString(&buf, cert.Repo)
	writeString(&buf, cert.CRL)
	writeString(&buf, cert.AIA)
	writeString(&buf, cert.AKI)
	writeString(&buf, cert.SKI)
	writeString(&buf, cert.TAL)

	var pubKeyDER []byte
	if cert.PubKey != nil {
		der, err := x509.MarshalPKIXPublicKey(cert.PubKey)
		if err != nil {
			return nil, fmt.Errorf("encode: marshal public key: %w", err)
		}
		pubKeyDER = der
	}
	writeString(&buf, string(pubKeyDER))

	return buf.Bytes(), nil
}

// Decode reads back a Cert in the exact order Encode wrote it. The
// reader asserts that mft is present whenever purpose != bgpsec_router,
// and that ski is present, per spec.md section 4.5.
func Decode(data []byte) (*rescert.Cert, error) {
	r := &reader{buf: data}

	cert := &rescert.Cert{}
	cert.Valid = r.readBool()
	cert.Expires = time.Unix(r.readInt64(), 0).UTC()
	cert.Purpose = rescert.Purpose(r.readUint8())

	ipsz := r.readCount()
	for i := uint32(0); i < ipsz && r.err == nil; i++ {
		cert.IPs = append(cert.IPs, r.readIPEntry())
	}

	asz := r.readCount()
	for i := uint32(0); i < asz && r.err == nil; i++ {
		cert.AS = append(cert.AS, r.readASEntry())
	}

	cert.Manifest = r.readString()
	cert.Notify = r.readString()
	cert.Repo = r.readString()
	cert.CRL = r.readString()
	cert.AIA = r.readString()
	cert.AKI = r.readString()
	cert.SKI = r.readString()
	cert.TAL = r.readString()
	pubKeyDER := r.readString()

	if r.err != nil {
		return nil, r.err
	}

	if len(pubKeyDER) > 0 {
		pub, err := x509.ParsePKIXPublicKey([]byte(pubKeyDER))
		if err != nil {
			return nil, fmt.Errorf("decode: parse public key: %w", err)
		}
		cert.PubKey = pub
	}

	if cert.Purpose != rescert.PurposeBGPsecRouter && cert.Manifest == "" {
		return nil, fmt.Errorf("decode: missing mft for non-bgpsec_router certificate")
	}
	if cert.SKI == "" {
		return nil, fmt.Errorf("decode: missing ski")
	}

	return cert, nil
}

func writeIPEntry(buf *bytes.Buffer, e rescert.IPEntry) error {
	writeUint8(buf, uint8(e.AFI))
	writeUint8(buf, uint8(e.Kind))
	switch e.Kind {
	case rescert.IPEntryInherit:
	case rescert.IPEntryAddr:
		buf.Write(e.Prefix.Min)
		buf.Write(e.Prefix.Max)
		writeUint8(buf, uint8(e.Prefix.BitLen))
		writeString(buf, string(e.Prefix.Bytes))
	case rescert.IPEntryRange:
		buf.Write(e.Range.Min)
		buf.Write(e.Range.Max)
	default:
		return fmt.Errorf("encode: unknown IP entry kind %d", e.Kind)
	}
	return nil
}

func (r *reader) readIPEntry() rescert.IPEntry {
	afi := ipaddr.AFI(r.readUint8())
	kind := rescert.IPEntryKind(r.readUint8())
	width := afi.Width()
	switch kind {
	case rescert.IPEntryInherit:
		return rescert.IPEntry{AFI: afi, Kind: kind}
	case rescert.IPEntryAddr:
		min := r.readFixed(width)
		max := r.readFixed(width)
		bitLen := r.readUint8()
		bytesVal := r.readString()
		return rescert.IPEntry{
			AFI:  afi,
			Kind: kind,
			Prefix: ipaddr.Prefix{
				AFI:    afi,
				Bytes:  []byte(bytesVal),
				BitLen: int(bitLen),
				Min:    min,
				Max:    max,
			},
		}
	case rescert.IPEntryRange:
		min := r.readFixed(width)
		max := r.readFixed(width)
		return rescert.IPEntry{AFI: afi, Kind: kind, Range: ipaddr.Range{AFI: afi, Min: min, Max: max}}
	default:
		r.fail(fmt.Errorf("decode: unknown IP entry kind %d", kind))
		return rescert.IPEntry{}
	}
}

func writeASEntry(buf *bytes.Buffer, e rescert.ASEntry) {
	writeUint8(buf, uint8(e.Kind))
	switch e.Kind {
	case rescert.ASEntryInherit:
	case rescert.ASEntryID:
		writeUint32(buf, e.ID)
	case rescert.ASEntryRange:
		writeUint32(buf, e.Min)
		writeUint32(buf, e.Max)
	}
}

func (r *reader) readASEntry() rescert.ASEntry {
	kind := rescert.ASEntryKind(r.readUint8())
	switch kind {
	case rescert.ASEntryInherit:
		return rescert.ASEntry{Kind: kind}
	case rescert.ASEntryID:
		return rescert.ASEntry{Kind: kind, ID: r.readUint32()}
	case rescert.ASEntryRange:
		min := r.readUint32()
		max := r.readUint32()
		return rescert.ASEntry{Kind: kind, Min: min, Max: max}
	default:
		r.fail(fmt.Errorf("decode: unknown AS entry kind %d", kind))
		return rescert.ASEntry{}
	}
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeUint8(buf *bytes.Buffer, v uint8) {
	buf.WriteByte(v)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	buf.Write(tmp[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

// reader walks data front-to-back, recording the first error encountered
// so callers can chain reads without checking after every field.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) readFixed(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.fail(fmt.Errorf("decode: truncated stream"))
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

func (r *reader) readBool() bool {
	return r.readFixed(1)[0] != 0
}

func (r *reader) readUint8() uint8 {
	return r.readFixed(1)[0]
}

func (r *reader) readUint32() uint32 {
	return binary.BigEndian.Uint32(r.readFixed(4))
}

func (r *reader) readInt64() int64 {
	return int64(binary.BigEndian.Uint64(r.readFixed(8)))
}

// readCount reads a uint32 length prefix and rejects one larger than
// maxEntryCount before any allocation is attempted, per the trust
// boundary contract in spec.md section 9.
func (r *reader) readCount() uint32 {
	n := r.readUint32()
	if n > maxEntryCount {
		r.fail(fmt.Errorf("decode: entry count %d exceeds limit %d", n, maxEntryCount))
		return 0
	}
	return n
}

func (r *reader) readString() string {
	n := r.readUint32()
	if n > maxStringLen {
		r.fail(fmt.Errorf("decode: string length %d exceeds limit %d", n, maxStringLen))
		return ""
	}
	return string(r.readFixed(int(n)))
}
