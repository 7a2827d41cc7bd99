package rislive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

// SegmentType distinguishes an ordered path hop from an AS-SET
type SegmentType uint8

const (
	// SegmentHop is a single AS in the ordered part of the path
	SegmentHop SegmentType = iota
	// SegmentSet is an unordered group of ASes (AS-SET or confederation set)
	SegmentSet
)

// PathSegment is one element of a normalized AS path. A hop carries exactly one ASN.
// Member order of a set is kept for display only.
type PathSegment struct {
	Type SegmentType
	ASNs []uint32
}

// Hop builds a single-AS segment
func Hop(asn uint32) PathSegment {
	return PathSegment{Type: SegmentHop, ASNs: []uint32{asn}}
}

// Set builds an AS-SET segment
func Set(asns ...uint32) PathSegment {
	return PathSegment{Type: SegmentSet, ASNs: asns}
}

// Equal reports whether two segments are the same, ignoring member order of sets
func (s PathSegment) Equal(o PathSegment) bool {
	if s.Type != o.Type || len(s.ASNs) != len(o.ASNs) {
		return false
	}
	if s.Type == SegmentHop {
		return s.ASNs[0] == o.ASNs[0]
	}
	a := slices.Clone(s.ASNs)
	b := slices.Clone(o.ASNs)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// String renders a hop as its number and a set as {a,b,c}
func (s PathSegment) String() string {
	if s.Type == SegmentHop && len(s.ASNs) == 1 {
		return strconv.FormatUint(uint64(s.ASNs[0]), 10)
	}
	parts := make([]string, len(s.ASNs))
	for i, asn := range s.ASNs {
		parts[i] = strconv.FormatUint(uint64(asn), 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// MarshalJSON encodes a hop as a number and a set as an array, the wire shape
func (s PathSegment) MarshalJSON() ([]byte, error) {
	if s.Type == SegmentHop && len(s.ASNs) == 1 {
		return json.Marshal(s.ASNs[0])
	}
	return json.Marshal(s.ASNs)
}

// AsPath is an ordered sequence of path segments
type AsPath []PathSegment

// Clone returns a deep copy of the path
func (p AsPath) Clone() AsPath {
	if p == nil {
		return nil
	}
	out := make(AsPath, len(p))
	for i, seg := range p {
		out[i] = PathSegment{Type: seg.Type, ASNs: slices.Clone(seg.ASNs)}
	}
	return out
}

// Equal compares two paths segment by segment
func (p AsPath) Equal(o AsPath) bool {
	return slices.EqualFunc(p, o, PathSegment.Equal)
}

// String renders the path space-separated, e.g. "58299 {49981,397666}"
func (p AsPath) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, " ")
}

// NormalizeAsPath converts the wire path, whose entries are bare integers or arrays
// of integers, into an AsPath. An entry of any other shape is a structural error.
func NormalizeAsPath(raw []json.RawMessage) (AsPath, error) {
	path := make(AsPath, 0, len(raw))
	for i, entry := range raw {
		if string(bytes.TrimSpace(entry)) == "null" {
			return nil, fmt.Errorf("path entry %d: null", i)
		}
		var asn uint32
		if err := json.Unmarshal(entry, &asn); err == nil {
			path = append(path, Hop(asn))
			continue
		}
		var set []uint32
		if err := json.Unmarshal(entry, &set); err != nil {
			return nil, fmt.Errorf("path entry %d: %s is neither an asn nor an as-set", i, entry)
		}
		path = append(path, Set(set...))
	}
	return path, nil
}

// Community is a custom (asn, value) community tag
type Community struct {
	ASN   uint32
	Value uint32
}

// String renders the community as asn:value
func (c Community) String() string {
	return fmt.Sprintf("%d:%d", c.ASN, c.Value)
}

// MarshalText implements encoding.TextMarshaler
func (c Community) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// NormalizeCommunities turns wire tuples into communities. Every tuple must have
// exactly two members.
func NormalizeCommunities(raw [][]uint32) ([]Community, error) {
	communities := make([]Community, 0, len(raw))
	for _, tuple := range raw {
		if len(tuple) != 2 {
			return nil, semanticError(ErrKindCommunity, fmt.Sprint(tuple))
		}
		communities = append(communities, Community{ASN: tuple[0], Value: tuple[1]})
	}
	return communities, nil
}

// Origin is the ORIGIN path attribute
type Origin uint8

const (
	// OriginIGP is a route learned from an interior protocol
	OriginIGP Origin = iota
	// OriginEGP is a route learned via EGP
	OriginEGP
	// OriginIncomplete is a route of unknown origin, usually redistributed
	OriginIncomplete
)

// String returns the string representation of Origin
func (o Origin) String() string {
	switch o {
	case OriginIGP:
		return "IGP"
	case OriginEGP:
		return "EGP"
	case OriginIncomplete:
		return "INCOMPLETE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOrigin matches the token case-insensitively against igp, egp and incomplete
func ParseOrigin(token string) (Origin, error) {
	switch strings.ToLower(token) {
	case "igp":
		return OriginIGP, nil
	case "egp":
		return OriginEGP, nil
	case "incomplete":
		return OriginIncomplete, nil
	default:
		return 0, semanticError(ErrKindOrigin, token)
	}
}

// ParseAggregator splits an "ASN:IP" aggregator string
func ParseAggregator(raw string) (uint32, netip.Addr, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, netip.Addr{}, semanticError(ErrKindAggregator, raw)
	}
	asn, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, netip.Addr{}, semanticError(ErrKindAggregator, raw)
	}
	ip, err := netip.ParseAddr(parts[1])
	if err != nil {
		return 0, netip.Addr{}, semanticError(ErrKindAggregator, raw)
	}
	return uint32(asn), ip, nil
}
