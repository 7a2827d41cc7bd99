package rislive

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ElemType tells announcements and withdrawals apart
type ElemType uint8

const (
	// Announce is a reachable prefix with its path attributes
	Announce ElemType = iota
	// Withdraw is a prefix that is no longer reachable through the peer
	Withdraw
)

// String returns the string representation of ElemType
func (t ElemType) String() string {
	switch t {
	case Announce:
		return "announce"
	case Withdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t ElemType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// RoutingElement is one flat per-prefix record derived from an update message.
// Optional attributes are nil when absent. Withdraw elements never carry any of them.
type RoutingElement struct {
	Timestamp float64      `json:"timestamp"` // Unix seconds with fraction
	Type      ElemType     `json:"type"`
	PeerIP    netip.Addr   `json:"peer_ip"`
	PeerASN   uint32       `json:"peer_asn"`
	Prefix    netip.Prefix `json:"prefix"`

	// Path attributes, Announce only
	NextHop       *netip.Addr `json:"next_hop,omitempty"`
	AsPath        AsPath      `json:"as_path,omitempty"`
	Origin        *Origin     `json:"origin,omitempty"`
	Med           *uint32     `json:"med,omitempty"`
	Communities   []Community `json:"communities,omitempty"`
	AggregatorASN *uint32     `json:"aggr_asn,omitempty"`
	AggregatorIP  *netip.Addr `json:"aggr_ip,omitempty"`
}

// String renders the element as a pipe-separated line:
// type|timestamp|peer_ip|peer_asn|prefix|as_path|origin|next_hop|local_pref|med|communities|atomic|aggr_asn|aggr_ip
// local_pref and atomic are never present on a RIS Live element and stay empty.
func (e RoutingElement) String() string {
	t := "A"
	if e.Type == Withdraw {
		t = "W"
	}
	fields := []string{
		t,
		strconv.FormatFloat(e.Timestamp, 'f', -1, 64),
		e.PeerIP.String(),
		strconv.FormatUint(uint64(e.PeerASN), 10),
		e.Prefix.String(),
		optional(e.AsPath != nil, e.AsPath),
		optional(e.Origin != nil, e.Origin),
		optional(e.NextHop != nil, e.NextHop),
		"",
		optional(e.Med != nil, e.Med),
		communitiesString(e.Communities),
		"",
		optional(e.AggregatorASN != nil, e.AggregatorASN),
		optional(e.AggregatorIP != nil, e.AggregatorIP),
	}
	return strings.Join(fields, "|")
}

func optional(present bool, v any) string {
	if !present {
		return ""
	}
	switch x := v.(type) {
	case *netip.Addr:
		return x.String()
	case *Origin:
		return x.String()
	case *uint32:
		return strconv.FormatUint(uint64(*x), 10)
	default:
		return fmt.Sprint(v)
	}
}

func communitiesString(cs []Community) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
