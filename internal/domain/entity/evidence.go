package entity

import (
	"fmt"
	"strings"

	"github.com/garyjia/event-budget/pkg/utils"
)

// Evidence is an immutable proof-of-expense reference. File types carry an
// opaque storage reference in URL; links must be absolute http(s) URLs.
type Evidence struct {
	Type EvidenceType `json:"type"`
	URL  string       `json:"url"`
	Name string       `json:"name"`
}

// NewEvidence validates and builds an evidence reference
func NewEvidence(evidenceType EvidenceType, url, name string) (Evidence, error) {
	ev := Evidence{
		Type: EvidenceType(strings.ToLower(strings.TrimSpace(string(evidenceType)))),
		URL:  strings.TrimSpace(url),
		Name: strings.TrimSpace(name),
	}
	if err := ev.Validate(); err != nil {
		return Evidence{}, err
	}
	return ev, nil
}

// Validate checks the type and reference of the evidence
func (e Evidence) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown evidence type %q", e.Type)
	}
	if e.URL == "" {
		return fmt.Errorf("evidence reference is required")
	}
	if e.Type == EvidenceLink {
		if err := utils.ValidateAbsoluteURL(e.URL); err != nil {
			return fmt.Errorf("invalid evidence link: %w", err)
		}
	}
	return nil
}

// Equal compares two evidence references by value
func (e Evidence) Equal(other Evidence) bool {
	return e.Type == other.Type && e.URL == other.URL && e.Name == other.Name
}

// removeEvidenceAt returns a copy of list without index idx
func removeEvidenceAt(list []Evidence, idx int) ([]Evidence, error) {
	if idx < 0 || idx >= len(list) {
		return nil, fmt.Errorf("evidence index %d out of range (have %d)", idx, len(list))
	}
	out := make([]Evidence, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, nil
}
