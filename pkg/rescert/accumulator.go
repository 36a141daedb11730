package rescert

import (
	"encoding/asn1"
	"fmt"

	"github.com/rpki-core/validator/pkg/ipaddr"
)

// ipAccumulator is attached to an in-progress certificate and appends
// parsed IP entries enforcing the non-overlap and at-most-one-inherit-per-
// AFI invariants (spec.md section 3).
type ipAccumulator struct {
	byAFI   map[ipaddr.AFI][]IPEntry
	inherit map[ipaddr.AFI]bool
}

func newIPAccumulator() *ipAccumulator {
	return &ipAccumulator{
		byAFI:   make(map[ipaddr.AFI][]IPEntry),
		inherit: make(map[ipaddr.AFI]bool),
	}
}

func (a *ipAccumulator) addInherit(afi ipaddr.AFI) error {
	if a.inherit[afi] {
		return fmt.Errorf("duplicate inherit for %s", afi)
	}
	if len(a.byAFI[afi]) > 0 {
		return fmt.Errorf("inherit for %s conflicts with explicit resources", afi)
	}
	a.inherit[afi] = true
	return nil
}

func (a *ipAccumulator) addPrefix(afi ipaddr.AFI, p ipaddr.Prefix) error {
	return a.add(afi, IPEntry{AFI: afi, Kind: IPEntryAddr, Prefix: p}, p.Min, p.Max)
}

func (a *ipAccumulator) addRange(afi ipaddr.AFI, r ipaddr.Range) error {
	return a.add(afi, IPEntry{AFI: afi, Kind: IPEntryRange, Range: r}, r.Min, r.Max)
}

func (a *ipAccumulator) add(afi ipaddr.AFI, entry IPEntry, min, max []byte) error {
	if a.inherit[afi] {
		return fmt.Errorf("explicit resource for %s conflicts with inherit", afi)
	}
	for _, existing := range a.byAFI[afi] {
		exMin, exMax, ok := existing.Bounds()
		if !ok {
			continue
		}
		if ipaddr.Overlaps(min, max, exMin, exMax) {
			return fmt.Errorf("overlapping %s resource", afi)
		}
	}
	a.byAFI[afi] = append(a.byAFI[afi], entry)
	return nil
}

// entries flattens the accumulated set in a deterministic order: IPv4
// before IPv6, inherit markers before explicit entries within a family.
func (a *ipAccumulator) entries() []IPEntry {
	var out []IPEntry
	for _, afi := range []ipaddr.AFI{ipaddr.IPv4, ipaddr.IPv6} {
		if a.inherit[afi] {
			out = append(out, IPEntry{AFI: afi, Kind: IPEntryInherit})
		}
		out = append(out, a.byAFI[afi]...)
	}
	return out
}

// asAccumulator enforces the same invariants for the AS resource set,
// which has no address family to partition by.
type asAccumulator struct {
	entries    []ASEntry
	hasInherit bool
}

func newASAccumulator() *asAccumulator {
	return &asAccumulator{}
}

func (a *asAccumulator) addInherit() error {
	if a.hasInherit {
		return fmt.Errorf("duplicate inherit")
	}
	if len(a.entries) > 0 {
		return fmt.Errorf("inherit conflicts with explicit AS resources")
	}
	a.hasInherit = true
	return nil
}

func (a *asAccumulator) addID(id uint32) error {
	return a.add(ASEntry{Kind: ASEntryID, ID: id}, id, id)
}

func (a *asAccumulator) addRange(min, max uint32) error {
	return a.add(ASEntry{Kind: ASEntryRange, Min: min, Max: max}, min, max)
}

func (a *asAccumulator) add(entry ASEntry, min, max uint32) error {
	if a.hasInherit {
		return fmt.Errorf("explicit AS resource conflicts with inherit")
	}
	for _, existing := range a.entries {
		exMin, exMax, ok := existing.Bounds()
		if !ok {
			continue
		}
		if min <= exMax && exMin <= max {
			return fmt.Errorf("overlapping AS resource")
		}
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *asAccumulator) result() []ASEntry {
	if a.hasInherit {
		return append([]ASEntry{{Kind: ASEntryInherit}}, a.entries...)
	}
	return a.entries
}

// asn1RawFamily mirrors IPAddressFamily ::= SEQUENCE { addressFamily
// OCTET STRING, ipAddressChoice IPAddressChoice } where ipAddressChoice
// is left as a RawValue so either CHOICE arm (NULL or SEQUENCE OF) can be
// dispatched on its tag.
type asn1RawFamily struct {
	AddressFamily []byte
	Choice        asn1.RawValue
}
