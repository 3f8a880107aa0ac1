package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvidence(t *testing.T) {
	tests := []struct {
		name    string
		typ     EvidenceType
		url     string
		wantErr bool
	}{
		{"image reference", EvidenceImage, "uploads/receipt-01.png", false},
		{"pdf reference", EvidencePDF, "uploads/invoice.pdf", false},
		{"link", EvidenceLink, "https://shop.example.com/order/42", false},
		{"type is case insensitive", EvidenceType("LINK"), "https://example.com", false},
		{"relative link", EvidenceLink, "/order/42", true},
		{"link without scheme", EvidenceLink, "example.com/order", true},
		{"missing reference", EvidenceDoc, "  ", true},
		{"unknown type", EvidenceType("video"), "uploads/clip.mp4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvidence(tt.typ, tt.url, "proof")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvidence_Equal(t *testing.T) {
	a, err := NewEvidence(EvidenceLink, " https://example.com/a ", "a")
	require.NoError(t, err)
	b, err := NewEvidence(EvidenceLink, "https://example.com/a", "a")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Evidence{Type: EvidenceLink, URL: "https://example.com/a", Name: "b"}))
}
