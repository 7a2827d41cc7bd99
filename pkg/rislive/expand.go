package rislive

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
)

// endOfRibMarker is the prefix literal RIS Live sends once a peer finished its
// initial table dump.
const endOfRibMarker = "eor"

// attributes are the message-level values every announcement in the update shares
type attributes struct {
	asPath        AsPath
	origin        *Origin
	med           *uint32
	communities   []Community
	aggregatorASN *uint32
	aggregatorIP  *netip.Addr
}

// peer identifies the session an update was received on
type peer struct {
	timestamp float64
	ip        netip.Addr
	asn       uint32
}

func expandUpdate(raw string, body *UpdateBody) ([]RoutingElement, error) {
	p, err := decodePeer(raw, body)
	if err != nil {
		return nil, err
	}
	attrs, err := normalizeAttributes(raw, body)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, block := range body.Announcements {
		total += len(block.Prefixes) + len(block.Withdrawals)
	}
	elems := make([]RoutingElement, 0, total)
	for _, block := range body.Announcements {
		blockElems, err := expandBlock(raw, p, attrs, block)
		if err != nil {
			return nil, err
		}
		elems = append(elems, blockElems...)
	}
	return elems, nil
}

func decodePeer(raw string, body *UpdateBody) (peer, error) {
	ip, err := netip.ParseAddr(body.PeerIP)
	if err != nil {
		return peer{}, transportError(raw, fmt.Errorf("peer: %w", err))
	}
	asn, err := strconv.ParseUint(body.PeerASN, 10, 32)
	if err != nil {
		return peer{}, transportError(raw, fmt.Errorf("peer_asn: %w", err))
	}
	return peer{timestamp: body.Timestamp, ip: ip, asn: uint32(asn)}, nil
}

func normalizeAttributes(raw string, body *UpdateBody) (attributes, error) {
	var attrs attributes
	if body.AsPath != nil {
		path, err := NormalizeAsPath(body.AsPath)
		if err != nil {
			return attributes{}, transportError(raw, err)
		}
		attrs.asPath = path
	}
	if body.Communities != nil {
		communities, err := NormalizeCommunities(body.Communities)
		if err != nil {
			return attributes{}, err
		}
		attrs.communities = communities
	}
	if body.Origin != nil {
		origin, err := ParseOrigin(*body.Origin)
		if err != nil {
			return attributes{}, err
		}
		attrs.origin = &origin
	}
	attrs.med = body.Med
	if body.Aggregator != nil {
		asn, ip, err := ParseAggregator(*body.Aggregator)
		if err != nil {
			return attributes{}, err
		}
		attrs.aggregatorASN = &asn
		attrs.aggregatorIP = &ip
	}
	return attrs, nil
}

// clone copies every attribute so each element owns its values
func (a attributes) clone() attributes {
	return attributes{
		asPath:        a.asPath.Clone(),
		origin:        clonePtr(a.origin),
		med:           clonePtr(a.med),
		communities:   slices.Clone(a.communities),
		aggregatorASN: clonePtr(a.aggregatorASN),
		aggregatorIP:  clonePtr(a.aggregatorIP),
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// expandBlock emits the announcements of one block followed by its withdrawals
func expandBlock(raw string, p peer, attrs attributes, block AnnouncementBlock) ([]RoutingElement, error) {
	nextHop, err := netip.ParseAddr(block.NextHop)
	if err != nil {
		return nil, transportError(raw, fmt.Errorf("next_hop: %w", err))
	}

	elems := make([]RoutingElement, 0, len(block.Prefixes)+len(block.Withdrawals))
	for _, literal := range block.Prefixes {
		prefix, err := parsePrefix(literal)
		if err != nil {
			return nil, err
		}
		own := attrs.clone()
		elems = append(elems, RoutingElement{
			Timestamp:     p.timestamp,
			Type:          Announce,
			PeerIP:        p.ip,
			PeerASN:       p.asn,
			Prefix:        prefix,
			NextHop:       clonePtr(&nextHop),
			AsPath:        own.asPath,
			Origin:        own.origin,
			Med:           own.med,
			Communities:   own.communities,
			AggregatorASN: own.aggregatorASN,
			AggregatorIP:  own.aggregatorIP,
		})
	}
	for _, literal := range block.Withdrawals {
		prefix, err := parsePrefix(literal)
		if err != nil {
			return nil, err
		}
		elems = append(elems, RoutingElement{
			Timestamp: p.timestamp,
			Type:      Withdraw,
			PeerIP:    p.ip,
			PeerASN:   p.asn,
			Prefix:    prefix,
		})
	}
	return elems, nil
}

func parsePrefix(literal string) (netip.Prefix, error) {
	if literal == endOfRibMarker {
		return netip.Prefix{}, ErrEndOfRib
	}
	prefix, err := netip.ParsePrefix(literal)
	if err != nil {
		return netip.Prefix{}, semanticError(ErrKindPrefix, literal)
	}
	return prefix, nil
}
