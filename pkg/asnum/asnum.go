// Package asnum implements the AS-number primitives needed by the resource
// certificate parser and coverage validator: parsing a single AS
// identifier or an inclusive range out of RFC 3779 ASIdentifiers, and
// testing overlap/coverage of singletons and ranges against a set.
package asnum

import "fmt"

// MaxID is the largest representable AS number (32-bit AS numbers, RFC
// 6793).
const MaxID = uint32(4294967295)

// ParseID validates a raw AS number decoded from an ASN.1 INTEGER. AS 0 is
// reserved (RFC 1930) and rejected.
func ParseID(v int64) (uint32, error) {
	if v <= 0 || v > int64(MaxID) {
		return 0, fmt.Errorf("AS id %d out of range", v)
	}
	return uint32(v), nil
}

// ParseRange validates a raw (min, max) pair decoded from an ASN.1
// ASRange. A singular range (min == max) must instead be encoded as a
// plain AS id, and a reversed range is malformed.
func ParseRange(min, max int64) (uint32, uint32, error) {
	if min <= 0 || min > int64(MaxID) {
		return 0, 0, fmt.Errorf("AS range min %d out of range", min)
	}
	if max <= 0 || max > int64(MaxID) {
		return 0, 0, fmt.Errorf("AS range max %d out of range", max)
	}
	if min >= max {
		return 0, 0, fmt.Errorf("AS range [%d, %d] is singular or reversed", min, max)
	}
	return uint32(min), uint32(max), nil
}

// Covers reports whether the set interval [setMin, setMax] fully contains
// [min, max].
func Covers(setMin, setMax, min, max uint32) bool {
	return setMin <= min && max <= setMax
}

// Overlaps reports whether [aMin, aMax] and [bMin, bMax] intersect.
func Overlaps(aMin, aMax, bMin, bMax uint32) bool {
	return aMin <= bMax && bMin <= aMax
}
