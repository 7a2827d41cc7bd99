package rislive

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
)

// Subscription selects which messages the server streams. Empty strings leave a
// filter unset; Host "all" subscribes to every collector.
type Subscription struct {
	Host         string `yaml:"host"`
	Type         string `yaml:"type"`    // UPDATE, OPEN, NOTIFICATION, KEEPALIVE or RIS_PEER_STATE
	Require      string `yaml:"require"` // Only messages containing this key
	Peer         string `yaml:"peer"`
	Prefix       string `yaml:"prefix"`
	Path         string `yaml:"path"` // ASN or pattern matched against the AS path
	MoreSpecific bool   `yaml:"moreSpecific"`
	LessSpecific bool   `yaml:"lessSpecific"`
}

type subscribeData struct {
	Host         string `json:"host,omitempty"`
	Type         string `json:"type,omitempty"`
	Require      string `json:"require,omitempty"`
	Peer         string `json:"peer,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Path         string `json:"path,omitempty"`
	MoreSpecific bool   `json:"moreSpecific"`
	LessSpecific bool   `json:"lessSpecific"`
}

type clientMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Validate checks the filters the server would otherwise reject
func (s Subscription) Validate() error {
	if s.Type != "" {
		if _, ok := payloadKinds[s.Type]; !ok {
			return fmt.Errorf("invalid message type %q", s.Type)
		}
	}
	if s.Peer != "" {
		if _, err := netip.ParseAddr(s.Peer); err != nil {
			return fmt.Errorf("invalid peer %q: %w", s.Peer, err)
		}
	}
	if s.Prefix != "" {
		if _, err := netip.ParsePrefix(s.Prefix); err != nil {
			return fmt.Errorf("invalid prefix %q: %w", s.Prefix, err)
		}
	}
	return nil
}

// MarshalJSON encodes the ris_subscribe client message
func (s Subscription) MarshalJSON() ([]byte, error) {
	data := subscribeData{
		Type:         s.Type,
		Require:      s.Require,
		Peer:         s.Peer,
		Prefix:       s.Prefix,
		Path:         s.Path,
		MoreSpecific: s.MoreSpecific,
		LessSpecific: s.LessSpecific,
	}
	if !strings.EqualFold(s.Host, "all") {
		data.Host = s.Host
	}
	return json.Marshal(clientMessage{Type: "ris_subscribe", Data: data})
}

// Ping returns the keepalive message the server answers with pong
func Ping() []byte {
	return []byte(`{"type":"ping","data":null}`)
}
