package pkg

import (
	"net/netip"
	"testing"
	"time"

	api "github.com/osrg/gobgp/v3/api"
	"github.com/osrg/gobgp/v3/pkg/apiutil"
	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ris_live/pkg/rislive"
)

func announcement(t *testing.T) rislive.RoutingElement {
	t.Helper()
	elems, err := rislive.ParseMessage(`{"type":"ris_message","data":{"timestamp":1636342486.25,"peer":"37.49.237.175","peer_asn":"199524","type":"UPDATE",` +
		`"path":[199524,1299,[3356,13904]],"origin":"egp","med":10,"community":[[1299,35000],[199524,4200000000]],"aggregator":"65000:8.42.232.1",` +
		`"announcements":[{"next_hop":"37.49.237.175","prefixes":["64.68.236.0/22"]}]}}`)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	return elems[0]
}

func TestNewNLRI(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
		afi      uint16
	}{
		{prefix: "10.0.0.0/8", expected: "10.0.0.0/8", afi: bgp.AFI_IP},
		{prefix: "10.1.2.3/8", expected: "10.0.0.0/8", afi: bgp.AFI_IP},
		{prefix: "2602:fd9e:f00::/40", expected: "2602:fd9e:f00::/40", afi: bgp.AFI_IP6},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			nlri := NewNLRI(netip.MustParsePrefix(tt.prefix))
			assert.Equal(t, tt.expected, nlri.String())
			assert.Equal(t, tt.afi, nlri.AFI())
		})
	}
}

func TestNewPathAttributes(t *testing.T) {
	attrs := NewPathAttributes(announcement(t))

	byType := map[bgp.BGPAttrType]bgp.PathAttributeInterface{}
	for _, a := range attrs {
		byType[a.GetType()] = a
	}

	origin, ok := byType[bgp.BGP_ATTR_TYPE_ORIGIN].(*bgp.PathAttributeOrigin)
	require.True(t, ok)
	assert.Equal(t, uint8(bgp.BGP_ORIGIN_ATTR_TYPE_EGP), origin.Value)

	asPath, ok := byType[bgp.BGP_ATTR_TYPE_AS_PATH].(*bgp.PathAttributeAsPath)
	require.True(t, ok)
	require.Len(t, asPath.Value, 2)
	seq, ok := asPath.Value[0].(*bgp.As4PathParam)
	require.True(t, ok)
	assert.Equal(t, uint8(bgp.BGP_ASPATH_ATTR_TYPE_SEQ), seq.Type)
	assert.Equal(t, []uint32{199524, 1299}, seq.AS)
	set, ok := asPath.Value[1].(*bgp.As4PathParam)
	require.True(t, ok)
	assert.Equal(t, uint8(bgp.BGP_ASPATH_ATTR_TYPE_SET), set.Type)
	assert.ElementsMatch(t, []uint32{13904, 3356}, set.AS)

	nextHop, ok := byType[bgp.BGP_ATTR_TYPE_NEXT_HOP].(*bgp.PathAttributeNextHop)
	require.True(t, ok)
	assert.Equal(t, "37.49.237.175", nextHop.Value.String())

	med, ok := byType[bgp.BGP_ATTR_TYPE_MULTI_EXIT_DISC].(*bgp.PathAttributeMultiExitDisc)
	require.True(t, ok)
	assert.Equal(t, uint32(10), med.Value)

	communities, ok := byType[bgp.BGP_ATTR_TYPE_COMMUNITIES].(*bgp.PathAttributeCommunities)
	require.True(t, ok)
	assert.Equal(t, []uint32{1299<<16 | 35000}, communities.Value)

	large, ok := byType[bgp.BGP_ATTR_TYPE_LARGE_COMMUNITY].(*bgp.PathAttributeLargeCommunities)
	require.True(t, ok)
	require.Len(t, large.Values, 1)
	assert.Equal(t, uint32(199524), large.Values[0].ASN)
	assert.Equal(t, uint32(4200000000), large.Values[0].LocalData1)

	_, ok = byType[bgp.BGP_ATTR_TYPE_AGGREGATOR].(*bgp.PathAttributeAggregator)
	assert.True(t, ok)
}

func TestNewPathAttributesIPv6AndWithdraw(t *testing.T) {
	elems, err := rislive.ParseMessage(testUpdate)
	require.NoError(t, err)

	attrs := NewPathAttributes(elems[0])
	var mpReach *bgp.PathAttributeMpReachNLRI
	for _, a := range attrs {
		if m, ok := a.(*bgp.PathAttributeMpReachNLRI); ok {
			mpReach = m
		}
	}
	require.NotNil(t, mpReach)
	assert.Equal(t, "2001:7f8:24::82", mpReach.Nexthop.String())

	withdraw := NewPathAttributes(elems[2])
	require.Len(t, withdraw, 1)
	assert.Equal(t, bgp.BGP_ATTR_TYPE_NEXT_HOP, withdraw[0].GetType())
}

func TestNewPathFromElement(t *testing.T) {
	elems, err := rislive.ParseMessage(testUpdate)
	require.NoError(t, err)

	path, err := NewPathFromElement(elems[0])
	require.NoError(t, err)
	assert.False(t, path.IsWithdraw)
	assert.Equal(t, api.Family_AFI_IP6, path.Family.Afi)
	assert.Equal(t, api.Family_SAFI_UNICAST, path.Family.Safi)
	nlri, err := apiutil.GetNativeNlri(path)
	require.NoError(t, err)
	assert.Equal(t, "2602:fd9e:f00::/40", nlri.String())

	path, err = NewPathFromElement(elems[3])
	require.NoError(t, err)
	assert.True(t, path.IsWithdraw)
	assert.Equal(t, api.Family_AFI_IP, path.Family.Afi)
}

func TestElementTime(t *testing.T) {
	ts := elementTime(1636247118.5)
	assert.Equal(t, int64(1636247118), ts.Unix())
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Nanosecond()))
}

func TestAsPathParamsSkipsEmptySet(t *testing.T) {
	params := asPathParams(rislive.AsPath{rislive.Hop(1), rislive.Set([]uint32{}...), rislive.Hop(2)})
	require.Len(t, params, 2)
	for _, p := range params {
		seg, ok := p.(*bgp.As4PathParam)
		require.True(t, ok)
		assert.Equal(t, uint8(bgp.BGP_ASPATH_ATTR_TYPE_SEQ), seg.Type)
	}
}
