package pkg

import (
	"math"
	"net/netip"
	"time"

	api "github.com/osrg/gobgp/v3/api"
	"github.com/osrg/gobgp/v3/pkg/apiutil"
	"github.com/osrg/gobgp/v3/pkg/packet/bgp"

	"ris_live/pkg/rislive"
)

// maxSegmentLength is the most ASes one AS_PATH segment can hold
const maxSegmentLength = 255

// NewNLRI converts a prefix into the unicast NLRI of its address family
func NewNLRI(prefix netip.Prefix) bgp.AddrPrefixInterface {
	prefix = prefix.Masked()
	if prefix.Addr().Is4() {
		return bgp.NewIPAddrPrefix(uint8(prefix.Bits()), prefix.Addr().String())
	}
	return bgp.NewIPv6AddrPrefix(uint8(prefix.Bits()), prefix.Addr().String())
}

// NewPathAttributes builds the BGP path attributes carried by an element.
// Withdrawals only get a placeholder next hop of their address family.
func NewPathAttributes(e rislive.RoutingElement) []bgp.PathAttributeInterface {
	nlri := NewNLRI(e.Prefix)
	if e.Type == rislive.Withdraw {
		return []bgp.PathAttributeInterface{newNextHop(unspecified(e.Prefix), nlri)}
	}

	origin := uint8(bgp.BGP_ORIGIN_ATTR_TYPE_INCOMPLETE)
	if e.Origin != nil {
		switch *e.Origin {
		case rislive.OriginIGP:
			origin = bgp.BGP_ORIGIN_ATTR_TYPE_IGP
		case rislive.OriginEGP:
			origin = bgp.BGP_ORIGIN_ATTR_TYPE_EGP
		}
	}
	attrs := []bgp.PathAttributeInterface{bgp.NewPathAttributeOrigin(origin)}

	if e.AsPath != nil {
		attrs = append(attrs, bgp.NewPathAttributeAsPath(asPathParams(e.AsPath)))
	}

	nextHop := unspecified(e.Prefix)
	if e.NextHop != nil {
		nextHop = *e.NextHop
	}
	attrs = append(attrs, newNextHop(nextHop, nlri))

	if e.Med != nil {
		attrs = append(attrs, bgp.NewPathAttributeMultiExitDisc(*e.Med))
	}

	if len(e.Communities) > 0 {
		var standard []uint32
		var large []*bgp.LargeCommunity
		for _, c := range e.Communities {
			// Values that do not fit the 16:16 encoding are kept as large communities
			if c.ASN <= math.MaxUint16 && c.Value <= math.MaxUint16 {
				standard = append(standard, c.ASN<<16|c.Value)
				continue
			}
			large = append(large, bgp.NewLargeCommunity(c.ASN, c.Value, 0))
		}
		if len(standard) > 0 {
			attrs = append(attrs, bgp.NewPathAttributeCommunities(standard))
		}
		if len(large) > 0 {
			attrs = append(attrs, bgp.NewPathAttributeLargeCommunities(large))
		}
	}

	if e.AggregatorASN != nil && e.AggregatorIP != nil {
		attrs = append(attrs, bgp.NewPathAttributeAggregator(*e.AggregatorASN, e.AggregatorIP.String()))
	}
	return attrs
}

// NewPathFromElement converts a routing element into a gobgp API path
func NewPathFromElement(e rislive.RoutingElement) (*api.Path, error) {
	return apiutil.NewPath(NewNLRI(e.Prefix), e.Type == rislive.Withdraw, NewPathAttributes(e), elementTime(e.Timestamp))
}

// asPathParams groups consecutive hops into AS_SEQUENCE segments and maps each set
// to an AS_SET segment
func asPathParams(path rislive.AsPath) []bgp.AsPathParamInterface {
	params := make([]bgp.AsPathParamInterface, 0, len(path))
	var sequence []uint32
	flush := func() {
		for len(sequence) > 0 {
			n := min(len(sequence), maxSegmentLength)
			params = append(params, bgp.NewAs4PathParam(bgp.BGP_ASPATH_ATTR_TYPE_SEQ, sequence[:n]))
			sequence = sequence[n:]
		}
	}
	for _, seg := range path {
		if seg.Type == rislive.SegmentHop {
			sequence = append(sequence, seg.ASNs...)
			continue
		}
		flush()
		if len(seg.ASNs) == 0 {
			continue
		}
		params = append(params, bgp.NewAs4PathParam(bgp.BGP_ASPATH_ATTR_TYPE_SET, seg.ASNs))
	}
	flush()
	return params
}

func newNextHop(nextHop netip.Addr, nlri bgp.AddrPrefixInterface) bgp.PathAttributeInterface {
	if nlri.AFI() == bgp.AFI_IP && nextHop.Is4() {
		return bgp.NewPathAttributeNextHop(nextHop.String())
	}
	return bgp.NewPathAttributeMpReachNLRI(nextHop.String(), []bgp.AddrPrefixInterface{nlri})
}

func unspecified(prefix netip.Prefix) netip.Addr {
	if prefix.Addr().Is4() {
		return netip.IPv4Unspecified()
	}
	return netip.IPv6Unspecified()
}

func elementTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9))
}
