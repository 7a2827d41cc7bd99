package pkg

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ris_live/pkg/rislive"
)

const testUpdate = `{"type":"ris_message","data":{"timestamp":1636247118.76,"peer":"2001:7f8:24::82","peer_asn":"58299","host":"rrc20","type":"UPDATE","path":[58299,49981,397666],"origin":"igp","announcements":[{"next_hop":"2001:7f8:24::82","prefixes":["2602:fd9e:f00::/40"]},{"next_hop":"fe80::768e:f8ff:fea6:b2c4","prefixes":["2602:fd9e:f00::/40"],"withdrawals":["1.1.1.0/24","8.8.8.0/24"]}]}}`

func testElements(t *testing.T) []rislive.RoutingElement {
	t.Helper()
	elems, err := rislive.ParseMessage(testUpdate)
	require.NoError(t, err)
	require.Len(t, elems, 4)
	return elems
}

func TestParseUpdateType(t *testing.T) {
	tests := []struct {
		input       string
		expected    rislive.ElemType
		expectError bool
	}{
		{input: "a", expected: rislive.Announce},
		{input: "Announcement", expected: rislive.Announce},
		{input: "w", expected: rislive.Withdraw},
		{input: "WITHDRAWAL", expected: rislive.Withdraw},
		{input: "", expectError: true},
		{input: "x", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUpdateType(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPrinterFormats(t *testing.T) {
	elems := testElements(t)

	var text bytes.Buffer
	p, err := NewPrinter(&text, FormatText, "")
	require.NoError(t, err)
	require.NoError(t, p.PrintElements(elems))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "A|1636247118.76|"))
	assert.True(t, strings.HasPrefix(lines[3], "W|1636247118.76|"))

	var compact bytes.Buffer
	p, err = NewPrinter(&compact, FormatJSON, "")
	require.NoError(t, err)
	require.NoError(t, p.PrintElements(elems))
	lines = strings.Split(strings.TrimSpace(compact.String()), "\n")
	require.Len(t, lines, 4)
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &obj))
	assert.Equal(t, "withdraw", obj["type"])

	var pretty bytes.Buffer
	p, err = NewPrinter(&pretty, FormatPretty, "")
	require.NoError(t, err)
	require.NoError(t, p.PrintElements(elems[:1]))
	assert.Contains(t, pretty.String(), "\n  \"timestamp\": 1636247118.76,")

	_, err = NewPrinter(&pretty, "xml", "")
	assert.Error(t, err)
}

func TestPrinterFilter(t *testing.T) {
	elems := testElements(t)

	p, err := NewPrinter(&bytes.Buffer{}, FormatText, "w")
	require.NoError(t, err)
	kept := p.Filter(elems)
	require.Len(t, kept, 2)
	for _, e := range kept {
		assert.Equal(t, rislive.Withdraw, e.Type)
	}

	p, err = NewPrinter(&bytes.Buffer{}, FormatText, "a")
	require.NoError(t, err)
	assert.Len(t, p.Filter(elems), 2)

	p, err = NewPrinter(&bytes.Buffer{}, FormatText, "")
	require.NoError(t, err)
	assert.Len(t, p.Filter(elems), 4)
}
