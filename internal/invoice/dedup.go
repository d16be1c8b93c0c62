package invoice

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"facturas/internal/fields"
	"facturas/pkg/models"
)

// Key is the exact-duplicate key of an invoice.
type Key struct {
	Number string
	Date   string
	Amount string
}

// KeyOf builds the duplicate key of a corpus entry with its fields normalized.
func KeyOf(e models.CorpusEntry) Key {
	return Key{
		Number: strings.ToUpper(strings.Join(strings.Fields(e.Number), "")),
		Date:   NormalizeDate(e.Date),
		Amount: NormalizeAmount(e.Amount),
	}
}

// SameInvoice reports whether two entries describe the same invoice.
// Synthetic numbers carry no identity, so entries holding one are compared
// by the hash of their extracted text instead of the key.
func SameInvoice(a, b models.CorpusEntry) bool {
	if fields.IsSynthetic(a.Number) || fields.IsSynthetic(b.Number) {
		return a.ContentHash != "" && a.ContentHash == b.ContentHash
	}
	return KeyOf(a) == KeyOf(b)
}

// FindDuplicate returns the first corpus entry that is the same invoice as e.
func FindDuplicate(e models.CorpusEntry, corpus []models.CorpusEntry) (models.CorpusEntry, bool) {
	for _, c := range corpus {
		if c.ID != "" && c.ID == e.ID {
			continue
		}
		if SameInvoice(e, c) {
			return c, true
		}
	}
	return models.CorpusEntry{}, false
}

// ContentHash fingerprints extracted text, ignoring case and whitespace layout.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
