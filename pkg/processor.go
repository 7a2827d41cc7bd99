package pkg

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"ris_live/pkg/rislive"
)

// RIB receives every decoded element
type RIB interface {
	Apply(elems []rislive.RoutingElement) error
}

// Processor handles the text of each message read from the stream
type Processor struct {
	printer *Printer
	metrics *Metrics
	rib     RIB
	raw     bool
}

// NewProcessor wires a printer with optional metrics and RIB. In raw mode messages
// are printed as received and never decoded.
func NewProcessor(printer *Printer, metrics *Metrics, rib RIB, raw bool) *Processor {
	return &Processor{
		printer: printer,
		metrics: metrics,
		rib:     rib,
		raw:     raw,
	}
}

// Handle decodes one message. Decode failures are logged and skipped since the
// stream stays usable after a bad message; only output failures are returned.
func (p *Processor) Handle(msg string) error {
	if msg == "" {
		return nil
	}
	if p.raw {
		return p.printer.PrintRaw(msg)
	}

	elems, err := rislive.ParseMessage(msg)
	class := rislive.Classify(err)
	if p.metrics != nil {
		p.metrics.ObserveMessage(class, elems)
	}

	switch class {
	case rislive.ClassNone:
	case rislive.ClassEndOfRib:
		log.WithField("raw", msg).Debug("End of RIB")
		return nil
	case rislive.ClassSemantic:
		log.WithError(err).Warn("Skipping message with invalid attribute")
		return nil
	case rislive.ClassTransport:
		log.WithError(err).WithField("raw", msg).Error("Skipping malformed message")
		return nil
	}

	if err := p.printer.PrintElements(p.printer.Filter(elems)); err != nil {
		return fmt.Errorf("print elements: %w", err)
	}

	if p.rib != nil && len(elems) > 0 {
		if err := p.rib.Apply(elems); err != nil {
			log.WithError(err).Warn("Failed to update RIB")
		}
	}
	return nil
}
