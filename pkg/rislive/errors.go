package rislive

import (
	"errors"
	"fmt"
)

// ErrEndOfRib is returned when a prefix list carries the "eor" marker. It signals
// that a peer finished its initial table dump and is not a decode failure.
var ErrEndOfRib = errors.New("end of rib prefix")

// TransportError reports a message that is not valid JSON or that lacks one of the
// mandatory scalars (peer, peer_asn, next_hop). Raw holds the full original text.
type TransportError struct {
	Raw string // Original message text, kept for diagnostics and replay
	Err error  // Underlying parse failure
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err == nil {
		return "incorrect json message"
	}
	return fmt.Sprintf("incorrect json message: %v", e.Err)
}

// Unwrap returns the underlying parse failure
func (e *TransportError) Unwrap() error {
	return e.Err
}

// SemanticErrorKind names the attribute whose content violated its grammar
type SemanticErrorKind int

const (
	// ErrKindOrigin is an origin token outside igp/egp/incomplete
	ErrKindOrigin SemanticErrorKind = iota
	// ErrKindAggregator is an aggregator that is not "ASN:IP"
	ErrKindAggregator
	// ErrKindPrefix is a prefix literal that does not parse as address/length
	ErrKindPrefix
	// ErrKindCommunity is a community tuple whose arity is not 2
	ErrKindCommunity
)

// String returns the string representation of SemanticErrorKind
func (k SemanticErrorKind) String() string {
	switch k {
	case ErrKindOrigin:
		return "unknown origin type"
	case ErrKindAggregator:
		return "incorrect aggregator"
	case ErrKindPrefix:
		return "incorrect prefix"
	case ErrKindCommunity:
		return "incorrect community"
	default:
		return "unknown"
	}
}

// SemanticError reports a present, well-shaped field whose content is invalid
type SemanticError struct {
	Kind  SemanticErrorKind
	Value string // Offending value as it appeared on the wire
}

// Error implements the error interface
func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Value)
}

// ErrorClass is the outcome of decoding one message
type ErrorClass int

const (
	// ClassNone means the message decoded without error
	ClassNone ErrorClass = iota
	// ClassTransport means the stream delivered malformed data
	ClassTransport
	// ClassSemantic means an attribute value violated its grammar
	ClassSemantic
	// ClassEndOfRib means the end-of-table marker was seen
	ClassEndOfRib
)

// String returns the string representation of ErrorClass
func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "ok"
	case ClassTransport:
		return "transport"
	case ClassSemantic:
		return "semantic"
	case ClassEndOfRib:
		return "eor"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by ParseMessage onto its ErrorClass. Errors from
// outside the package are treated as transport failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, ErrEndOfRib) {
		return ClassEndOfRib
	}
	var se *SemanticError
	if errors.As(err, &se) {
		return ClassSemantic
	}
	return ClassTransport
}

func transportError(raw string, err error) error {
	return &TransportError{Raw: raw, Err: err}
}

func semanticError(kind SemanticErrorKind, value string) error {
	return &SemanticError{Kind: kind, Value: value}
}
