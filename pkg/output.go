package pkg

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"ris_live/pkg/rislive"
)

const (
	// FormatText prints one pipe-separated line per element
	FormatText = "text"
	// FormatJSON prints one compact JSON object per element
	FormatJSON = "json"
	// FormatPretty prints indented JSON
	FormatPretty = "pretty"
)

// ParseFormat validates an output format name
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatPretty:
		return FormatPretty, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// ParseUpdateType maps "a..." to announcements and "w..." to withdrawals
func ParseUpdateType(updateType string) (rislive.ElemType, error) {
	lower := strings.ToLower(updateType)
	switch {
	case strings.HasPrefix(lower, "a"):
		return rislive.Announce, nil
	case strings.HasPrefix(lower, "w"):
		return rislive.Withdraw, nil
	default:
		return 0, fmt.Errorf("update type %q must be announcement (a) or withdrawal (w)", updateType)
	}
}

// Printer writes routing elements and raw messages to an output stream
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	only   *rislive.ElemType // nil prints both announcements and withdrawals
}

// NewPrinter creates a printer. An empty updateType keeps every element.
func NewPrinter(out io.Writer, format, updateType string) (*Printer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	p := &Printer{out: out, format: f}
	if updateType != "" {
		t, err := ParseUpdateType(updateType)
		if err != nil {
			return nil, err
		}
		p.only = &t
	}
	return p, nil
}

// Keep reports whether the element passes the update type filter
func (p *Printer) Keep(e rislive.RoutingElement) bool {
	return p.only == nil || *p.only == e.Type
}

// Filter returns the elements that pass the update type filter
func (p *Printer) Filter(elems []rislive.RoutingElement) []rislive.RoutingElement {
	if p.only == nil {
		return elems
	}
	kept := make([]rislive.RoutingElement, 0, len(elems))
	for _, e := range elems {
		if p.Keep(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// PrintElements writes each element on its own line in the configured format
func (p *Printer) PrintElements(elems []rislive.RoutingElement) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range elems {
		var line []byte
		var err error
		switch p.format {
		case FormatJSON:
			line, err = json.Marshal(e)
		case FormatPretty:
			line, err = json.MarshalIndent(e, "", "  ")
		default:
			line = []byte(e.String())
		}
		if err != nil {
			return fmt.Errorf("encode element: %w", err)
		}
		if _, err := fmt.Fprintf(p.out, "%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

// PrintRaw writes a message exactly as received
func (p *Printer) PrintRaw(msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := fmt.Fprintln(p.out, msg)
	return err
}
