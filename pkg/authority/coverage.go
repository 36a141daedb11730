package authority

import (
	"fmt"
	"net"
	"strings"

	"github.com/rpki-core/validator/pkg/asnum"
	"github.com/rpki-core/validator/pkg/ipaddr"
	"github.com/rpki-core/validator/pkg/rescert"
)

// CoverageError is the coverage-failure diagnostic of spec.md section 7:
// it names the uncovered resource and the chain of ancestors consulted
// (tracewarn) before the walk gave up.
type CoverageError struct {
	Resource string
	Chain    []string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("coverage-failure: %s not covered; consulted chain %s",
		e.Resource, strings.Join(e.Chain, " -> "))
}

// walkAS ascends the parent chain starting at start, looking for an
// ancestor whose non-inheriting AS set covers [min, max]. At each step
// the ancestor's explicit (non-inherit) AS entries are consulted: if
// none are present the ancestor's answer is indeterminate (either it has
// no AS extension at all, or it only inherits) and the walk continues
// upward; if some are present, they give a definitive answer -- covered
// or refused -- and the walk stops there. This asymmetry matters: a
// child that inherits must not be rejected merely because its immediate
// parent also inherits.
func walkAS(min, max uint32, start *Auth) error {
	var chain []string
	for anc := start; anc != nil; anc = anc.Parent {
		chain = append(chain, anc.SKI())
		explicit := explicitASEntries(anc.Cert)
		if len(explicit) == 0 {
			continue
		}
		for _, e := range explicit {
			emin, emax, _ := e.Bounds()
			if asnum.Covers(emin, emax, min, max) {
				return nil
			}
		}
		return &CoverageError{Resource: formatASRange(min, max), Chain: chain}
	}
	return &CoverageError{Resource: formatASRange(min, max), Chain: chain}
}

// walkIP is the IP-resource analogue of walkAS, scoped to one address
// family: only entries of afi count toward an ancestor's answer.
func walkIP(afi ipaddr.AFI, min, max []byte, start *Auth) error {
	var chain []string
	for anc := start; anc != nil; anc = anc.Parent {
		chain = append(chain, anc.SKI())
		explicit := explicitIPEntries(anc.Cert, afi)
		if len(explicit) == 0 {
			continue
		}
		for _, e := range explicit {
			emin, emax, ok := e.Bounds()
			if !ok {
				continue
			}
			if ipaddr.Covers(emin, emax, min, max) {
				return nil
			}
		}
		return &CoverageError{Resource: formatIPRange(min, max), Chain: chain}
	}
	return &CoverageError{Resource: formatIPRange(min, max), Chain: chain}
}

func explicitASEntries(c *rescert.Cert) []rescert.ASEntry {
	var out []rescert.ASEntry
	for _, e := range c.AS {
		if e.Kind != rescert.ASEntryInherit {
			out = append(out, e)
		}
	}
	return out
}

func explicitIPEntries(c *rescert.Cert, afi ipaddr.AFI) []rescert.IPEntry {
	var out []rescert.IPEntry
	for _, e := range c.IPs {
		if e.AFI == afi && e.Kind != rescert.IPEntryInherit {
			out = append(out, e)
		}
	}
	return out
}

func formatASRange(min, max uint32) string {
	if min == max {
		return fmt.Sprintf("AS%d", min)
	}
	return fmt.Sprintf("AS%d-AS%d", min, max)
}

func formatIPRange(min, max []byte) string {
	return fmt.Sprintf("%s--%s", net.IP(min).String(), net.IP(max).String())
}
