// Package rislive decodes RIS Live JSON notifications into flat routing elements.
//
// ParseMessage is the entry point: it takes the text of one websocket frame and
// returns every announcement and withdrawal it carries, or exactly one error of the
// closed set *TransportError, *SemanticError or ErrEndOfRib. It holds no state and
// may be called from any number of goroutines.
package rislive

import (
	"encoding/json"
	"errors"
)

// MessageKind is the top-level "type" of a server message
type MessageKind int

const (
	// KindUnknown is any type this package does not know about
	KindUnknown MessageKind = iota
	// KindRisMessage carries a BGP message seen by a collector
	KindRisMessage
	// KindRisError reports a server-side error
	KindRisError
	// KindRisRrcList lists the available route collectors
	KindRisRrcList
	// KindRisSubscribeOk acknowledges a subscription
	KindRisSubscribeOk
	// KindPong answers a client ping
	KindPong
)

var messageKinds = map[string]MessageKind{
	"ris_message":      KindRisMessage,
	"ris_error":        KindRisError,
	"ris_rrc_list":     KindRisRrcList,
	"ris_subscribe_ok": KindRisSubscribeOk,
	"pong":             KindPong,
}

// String returns the string representation of MessageKind
func (k MessageKind) String() string {
	for name, kind := range messageKinds {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// PayloadKind is the BGP/RIS message type inside a ris_message ("data.type")
type PayloadKind int

const (
	// PayloadNone means data carried no type, a pure metadata notification
	PayloadNone PayloadKind = iota
	// PayloadUpdate is a BGP UPDATE, the only kind expanded into elements
	PayloadUpdate
	// PayloadOpen is a BGP OPEN
	PayloadOpen
	// PayloadNotification is a BGP NOTIFICATION
	PayloadNotification
	// PayloadKeepalive is a BGP KEEPALIVE
	PayloadKeepalive
	// PayloadPeerState reports a collector session state change
	PayloadPeerState
	// PayloadUnknown is any other data.type value
	PayloadUnknown
)

var payloadKinds = map[string]PayloadKind{
	"UPDATE":         PayloadUpdate,
	"OPEN":           PayloadOpen,
	"NOTIFICATION":   PayloadNotification,
	"KEEPALIVE":      PayloadKeepalive,
	"RIS_PEER_STATE": PayloadPeerState,
}

// Envelope is the decoded outer structure of one message. Update is set only when
// Kind is KindRisMessage and Payload is PayloadUpdate.
type Envelope struct {
	Kind    MessageKind
	Type    string // Top-level type exactly as received
	Payload PayloadKind
	Update  *UpdateBody
}

// UpdateBody holds the fields of an UPDATE payload before normalization
type UpdateBody struct {
	Timestamp     float64
	PeerIP        string
	PeerASN       string
	Host          string // Route collector, e.g. rrc21
	ID            string
	AsPath        []json.RawMessage // nil when absent
	Communities   [][]uint32        // nil when absent
	Origin        *string
	Med           *uint32
	Aggregator    *string
	Announcements []AnnouncementBlock
}

// AnnouncementBlock groups the prefixes announced through one next hop, along with
// prefixes withdrawn in the same block.
type AnnouncementBlock struct {
	NextHop     string
	Prefixes    []string
	Withdrawals []string // nil when absent
}

type envelopeJSON struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

type risMessageJSON struct {
	Timestamp *float64 `json:"timestamp"`
	Peer      *string  `json:"peer"`
	PeerASN   *string  `json:"peer_asn"`
	ID        string   `json:"id"`
	Host      string   `json:"host"`
	Type      *string  `json:"type"`
}

type updateJSON struct {
	Path          []json.RawMessage  `json:"path"`
	Community     [][]uint32         `json:"community"`
	Origin        *string            `json:"origin"`
	Med           *uint32            `json:"med"`
	Aggregator    *string            `json:"aggregator"`
	Announcements []announcementJSON `json:"announcements"`
}

type announcementJSON struct {
	NextHop     *string   `json:"next_hop"`
	Prefixes    *[]string `json:"prefixes"`
	Withdrawals []string  `json:"withdrawals"`
}

// DecodeEnvelope parses the text of one message and isolates the update payload.
// Any structural problem yields a *TransportError carrying the text.
func DecodeEnvelope(text string) (Envelope, error) {
	var env envelopeJSON
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Envelope{}, transportError(text, err)
	}
	if env.Type == nil {
		return Envelope{}, transportError(text, errors.New("missing message type"))
	}

	out := Envelope{Kind: messageKinds[*env.Type], Type: *env.Type}
	if out.Kind != KindRisMessage {
		return out, nil
	}

	var msg risMessageJSON
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Envelope{}, transportError(text, errors.New("ris_message without data"))
	}
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return Envelope{}, transportError(text, err)
	}
	switch {
	case msg.Timestamp == nil:
		return Envelope{}, transportError(text, errors.New("missing data.timestamp"))
	case msg.Peer == nil:
		return Envelope{}, transportError(text, errors.New("missing data.peer"))
	case msg.PeerASN == nil:
		return Envelope{}, transportError(text, errors.New("missing data.peer_asn"))
	}

	if msg.Type == nil {
		out.Payload = PayloadNone
		return out, nil
	}
	kind, ok := payloadKinds[*msg.Type]
	if !ok {
		out.Payload = PayloadUnknown
		return out, nil
	}
	out.Payload = kind
	if kind != PayloadUpdate {
		return out, nil
	}

	var upd updateJSON
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		return Envelope{}, transportError(text, err)
	}
	body := &UpdateBody{
		Timestamp:     *msg.Timestamp,
		PeerIP:        *msg.Peer,
		PeerASN:       *msg.PeerASN,
		Host:          msg.Host,
		ID:            msg.ID,
		AsPath:        upd.Path,
		Communities:   upd.Community,
		Origin:        upd.Origin,
		Med:           upd.Med,
		Aggregator:    upd.Aggregator,
		Announcements: make([]AnnouncementBlock, 0, len(upd.Announcements)),
	}
	for _, a := range upd.Announcements {
		if a.NextHop == nil || a.Prefixes == nil {
			return Envelope{}, transportError(text, errors.New("announcement without next_hop or prefixes"))
		}
		body.Announcements = append(body.Announcements, AnnouncementBlock{
			NextHop:     *a.NextHop,
			Prefixes:    *a.Prefixes,
			Withdrawals: a.Withdrawals,
		})
	}
	out.Update = body
	return out, nil
}

// ParseMessage decodes one RIS Live message into routing elements. Messages that
// carry no UPDATE decode to an empty list. On error no elements are returned.
func ParseMessage(text string) ([]RoutingElement, error) {
	env, err := DecodeEnvelope(text)
	if err != nil {
		return nil, err
	}

	switch env.Kind {
	case KindRisMessage:
	case KindRisError, KindRisRrcList, KindRisSubscribeOk, KindPong:
		return nil, nil
	case KindUnknown:
		// Unknown kinds are accepted as empty for compatibility with newer servers.
		// Callers that need to tell them apart use DecodeEnvelope.
		return nil, nil
	}

	switch env.Payload {
	case PayloadUpdate:
		return expandUpdate(text, env.Update)
	case PayloadNone, PayloadOpen, PayloadNotification, PayloadKeepalive, PayloadPeerState:
		return nil, nil
	case PayloadUnknown:
		return nil, nil
	}
	return nil, nil
}
