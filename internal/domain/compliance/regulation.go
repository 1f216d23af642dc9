package compliance

import (
	"errors"
	"fmt"
)

// Regulation identifies a supported compliance framework.
type Regulation string

const (
	RegulationGDPR     Regulation = "gdpr"
	RegulationCCPA     Regulation = "ccpa"
	RegulationHIPAA    Regulation = "hipaa"
	RegulationISO27001 Regulation = "iso27001"
)

var displayNames = map[Regulation]string{
	RegulationGDPR:     "GDPR (General Data Protection Regulation)",
	RegulationCCPA:     "CCPA (California Consumer Privacy Act)",
	RegulationHIPAA:    "HIPAA (Health Insurance Portability and Accountability Act)",
	RegulationISO27001: "ISO 27001 (Information Security Management)",
}

// ErrUnknownRegulation rejects identifiers outside the closed set.
var ErrUnknownRegulation = errors.New("unknown regulation")

// ParseRegulation validates a raw identifier against the closed set.
func ParseRegulation(raw string) (Regulation, error) {
	r := Regulation(raw)
	if _, ok := displayNames[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegulation, raw)
	}
	return r, nil
}

// Display returns the full framework name used in prompts and exports.
func (r Regulation) Display() string {
	return displayNames[r]
}

// Selection is an insertion-ordered set of regulations. The zero value is
// an empty selection ready for use. Toggle is the only mutation path.
type Selection struct {
	regs []Regulation
}

// Toggle flips membership of reg. Toggling the same id twice is a net no-op.
func (s *Selection) Toggle(reg Regulation) {
	for i, r := range s.regs {
		if r == reg {
			s.regs = append(s.regs[:i], s.regs[i+1:]...)
			return
		}
	}
	s.regs = append(s.regs, reg)
}

// Regulations returns the selected regulations in selection order.
func (s *Selection) Regulations() []Regulation {
	out := make([]Regulation, len(s.regs))
	copy(out, s.regs)
	return out
}

func (s *Selection) Empty() bool { return len(s.regs) == 0 }
