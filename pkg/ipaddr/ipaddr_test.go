package ipaddr

import (
	"encoding/asn1"
	"testing"
)

func TestParseAFI(t *testing.T) {
	cases := []struct {
		name    string
		raw     []byte
		want    AFI
		wantErr bool
	}{
		{"ipv4", []byte{0x00, 0x01}, IPv4, false},
		{"ipv6", []byte{0x00, 0x02}, IPv6, false},
		{"ipv4 with safi", []byte{0x00, 0x01, 0x01}, IPv4, false},
		{"unsupported", []byte{0x00, 0x03}, Unknown, true},
		{"short", []byte{0x01}, Unknown, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseAFI(c.raw)
			if (err != nil) != c.wantErr {
				t.Fatalf("ParseAFI(%x) error = %v, wantErr %v", c.raw, err, c.wantErr)
			}
			if err == nil && got != c.want {
				t.Errorf("ParseAFI(%x) = %v, want %v", c.raw, got, c.want)
			}
		})
	}
}

func TestNewPrefix(t *testing.T) {
	p, err := NewPrefix(IPv4, asn1.BitString{Bytes: []byte{192, 0, 2}, BitLength: 24})
	if err != nil {
		t.Fatalf("NewPrefix: %v", err)
	}
	wantMin := []byte{192, 0, 2, 0}
	wantMax := []byte{192, 0, 2, 255}
	if string(p.Min) != string(wantMin) {
		t.Errorf("Min = %v, want %v", p.Min, wantMin)
	}
	if string(p.Max) != string(wantMax) {
		t.Errorf("Max = %v, want %v", p.Max, wantMax)
	}
}

func TestNewPrefixRejectsOversizedLength(t *testing.T) {
	_, err := NewPrefix(IPv4, asn1.BitString{Bytes: []byte{192, 0, 2, 0}, BitLength: 33})
	if err == nil {
		t.Fatal("expected error for bit length exceeding IPv4 width")
	}
}

func TestNewRangeRejectsInverted(t *testing.T) {
	_, err := NewRange(IPv4,
		asn1.BitString{Bytes: []byte{10, 0, 0, 5}, BitLength: 32},
		asn1.BitString{Bytes: []byte{10, 0, 0, 1}, BitLength: 32})
	if err == nil {
		t.Fatal("expected error when range min exceeds max")
	}
}

func TestCoversAndOverlaps(t *testing.T) {
	parentMin := []byte{10, 0, 0, 0}
	parentMax := []byte{10, 0, 255, 255}
	childMin := []byte{10, 0, 1, 0}
	childMax := []byte{10, 0, 1, 255}

	if !Covers(parentMin, parentMax, childMin, childMax) {
		t.Error("expected parent to cover child")
	}
	if Covers(childMin, childMax, parentMin, parentMax) {
		t.Error("child must not cover parent")
	}

	siblingMin := []byte{10, 1, 0, 0}
	siblingMax := []byte{10, 1, 255, 255}
	if Overlaps(childMin, childMax, siblingMin, siblingMax) {
		t.Error("disjoint ranges must not overlap")
	}
	if !Overlaps(parentMin, parentMax, childMin, childMax) {
		t.Error("expected overlapping ranges to be reported as such")
	}
}
