package aivalidate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
)

//go:embed response.schema.json
var responseSchema []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.schema.json", bytes.NewReader(responseSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("response.schema.json")
})

// Patch is the model's verdict on one provisional record.
type Patch struct {
	IsValid           bool           `json:"isValid"`
	IsDuplicate       bool           `json:"isDuplicate"`
	IsDuplicateCopy   bool           `json:"isDuplicateCopy"`
	DuplicateReason   string         `json:"duplicateReason"`
	OriginalInvoiceID string         `json:"originalInvoiceId"`
	Confidence        *float64       `json:"confidence"`
	Warnings          []string       `json:"warnings"`
	Suggestions       []string       `json:"suggestions"`
	CorrectedData     *CorrectedData `json:"correctedData"`
}

// CorrectedData holds field corrections. Empty fields keep the provisional value.
type CorrectedData struct {
	Number      string      `json:"number"`
	Date        string      `json:"date"`
	Amount      looseAmount `json:"amount"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Category    string      `json:"category"`

	// Taxes replaces the provisional tax lines when present.
	Taxes []PatchTax `json:"taxes"`
}

// PatchTax is one tax line as the model reports it.
type PatchTax struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Rate        looseString `json:"rate"`
	Amount      looseAmount `json:"amount"`
	ShouldCount *bool       `json:"shouldCount"`
}

// looseString accepts a JSON string or number. Models switch between the two
// for amounts.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// looseAmount accepts a JSON number or a printed amount. Numbers are read
// as plain decimals; strings may use either thousands convention.
type looseAmount struct {
	value decimal.Decimal
	set   bool
}

func (a *looseAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = looseAmount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		d, ok := numeric.Clean(str)
		*a = looseAmount{value: d, set: ok}
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	*a = looseAmount{value: d, set: d.IsPositive()}
	return nil
}

// Decimal returns the amount and whether a positive value was present.
func (a looseAmount) Decimal() (decimal.Decimal, bool) {
	return a.value, a.set
}

// ParsePatch cuts the JSON object out of a model reply, checks it against
// the response schema and decodes it.
func ParsePatch(reply string) (*Patch, error) {
	raw, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrAIResponseUnparseable)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIResponseUnparseable, err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIResponseUnparseable, err)
	}

	var patch Patch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIResponseUnparseable, err)
	}
	return &patch, nil
}

// extractJSON returns the outermost {...} span of s, ignoring code fences
// and any prose around it.
func extractJSON(s string) (string, bool) {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
