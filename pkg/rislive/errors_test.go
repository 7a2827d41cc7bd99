package rislive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{name: "No error", err: nil, expected: ClassNone},
		{name: "End of rib", err: ErrEndOfRib, expected: ClassEndOfRib},
		{name: "Wrapped end of rib", err: fmt.Errorf("decode: %w", ErrEndOfRib), expected: ClassEndOfRib},
		{name: "Semantic", err: semanticError(ErrKindOrigin, "x"), expected: ClassSemantic},
		{name: "Wrapped semantic", err: fmt.Errorf("decode: %w", semanticError(ErrKindPrefix, "x")), expected: ClassSemantic},
		{name: "Transport", err: transportError("{", errors.New("eof")), expected: ClassTransport},
		{name: "Foreign", err: errors.New("boom"), expected: ClassTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	te := transportError("{", inner)
	assert.Equal(t, "incorrect json message: unexpected end of JSON input", te.Error())
	assert.ErrorIs(t, te, inner)

	se := semanticError(ErrKindAggregator, "garbage")
	assert.Equal(t, `incorrect aggregator: "garbage"`, se.Error())

	assert.Equal(t, "eor", ClassEndOfRib.String())
	assert.Equal(t, "transport", ClassTransport.String())
}
