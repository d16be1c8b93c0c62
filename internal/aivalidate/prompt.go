package aivalidate

import (
	"encoding/json"
	"fmt"
	"strings"

	"facturas/pkg/models"
)

const (
	// MaxCorpusEntries is how many of the most recent known invoices go into a prompt.
	MaxCorpusEntries = 50

	// MaxPromptTextRunes bounds the extracted text included in a prompt.
	MaxPromptTextRunes = 4000
)

const systemPrompt = `Sos un contador argentino experto en facturación electrónica AFIP/ARCA.
Revisás datos extraídos automáticamente de facturas y respondés únicamente con un objeto JSON válido, sin texto adicional ni bloques de código.`

// promptRecord is the subset of a record shown to the model.
type promptRecord struct {
	Number      string               `json:"number"`
	Date        string               `json:"date"`
	Amount      string               `json:"amount"`
	Type        models.InvoiceType   `json:"type"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Taxes       []models.TaxLineItem `json:"taxes"`
}

// buildPrompt renders the single-turn validation request.
func buildPrompt(rec models.InvoiceRecord, rawText string, corpus []models.CorpusEntry) string {
	recordJSON, err := json.MarshalIndent(promptRecord{
		Number:      rec.Number,
		Date:        rec.Date,
		Amount:      rec.Amount,
		Type:        rec.Type,
		Description: rec.Description,
		Category:    rec.Category,
		Taxes:       rec.Taxes,
	}, "", "  ")
	if err != nil {
		recordJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("Analizá la siguiente factura argentina.\n\n")
	b.WriteString("DATOS EXTRAÍDOS:\n")
	b.Write(recordJSON)
	b.WriteString("\n\nTEXTO ORIGINAL:\n")
	b.WriteString(truncateRunes(rawText, MaxPromptTextRunes))
	b.WriteString("\n\nFACTURAS YA REGISTRADAS (id | número | fecha | importe | tipo):\n")
	b.WriteString(formatCorpus(corpus))
	b.WriteString(`

INSTRUCCIONES:
1. Validá que número, fecha, importe y tipo sean coherentes con el texto original.
2. Compará número, fecha e importe con las facturas ya registradas. Si coinciden es un duplicado; si además es la misma factura escaneada o subida otra vez, marcala como copia.
3. El importe debe ser el NETO (sin IVA). Si el importe extraído es en realidad el IVA o el total, corregilo.
4. Verificá que cada línea de IVA sea proporcional al neto según su alícuota (21%, 10.5% o 27%).
5. Para cada impuesto indicá shouldCount: false en TODOS si la factura es una copia, true en caso contrario.

Respondé con este formato exacto:
{
  "isValid": true,
  "isDuplicate": false,
  "isDuplicateCopy": false,
  "duplicateReason": "",
  "originalInvoiceId": "",
  "confidence": 0.9,
  "warnings": [],
  "suggestions": [],
  "correctedData": {
    "number": "A-0001-00000001",
    "date": "AAAA-MM-DD",
    "amount": "0.00",
    "type": "income o expense",
    "description": "",
    "category": "",
    "taxes": [{"name": "IVA 21%", "type": "IVA", "rate": 21, "amount": "0.00", "shouldCount": true}]
  }
}`)
	return b.String()
}

// formatCorpus lists the most recent entries, one per line.
func formatCorpus(corpus []models.CorpusEntry) string {
	if len(corpus) == 0 {
		return "(ninguna)"
	}
	if len(corpus) > MaxCorpusEntries {
		corpus = corpus[len(corpus)-MaxCorpusEntries:]
	}
	lines := make([]string, 0, len(corpus))
	for _, e := range corpus {
		lines = append(lines, fmt.Sprintf("%s | %s | %s | %s | %s", e.ID, e.Number, e.Date, e.Amount, e.Type))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n[...]"
}
