package fields

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// DefaultIVARate applies when a VAT line prints no percentage.
const DefaultIVARate = 21.0

// GananciasRate is the fixed income-tax withholding rate.
const GananciasRate = 35.0

type taxFamily struct {
	Type    models.TaxType
	Pattern *regexp.Regexp
	// Rate returns the rate for a matched line; ok=false means the line
	// holds no tax of this family.
	Rate func(line string) (float64, bool)
	Name func(rate float64) string
}

var (
	ratePattern = regexp.MustCompile(`(\d{1,2}(?:[.,]\d{1,2})?)\s*%`)
	// Status lines mention iva without carrying an amount.
	taxStatusLine = regexp.MustCompile(`responsable|inscripto|exento|monotribut|condici[oó]n|consumidor final`)
	ivaSummary    = regexp.MustCompile(`sub\s?-?total|importe\s+(?:neto|total)|neto\s+gravado|[sc][io]n\s+iva|iva\s+incl`)

	// Registration numbers printed next to a tax name, like the IIBB
	// number 901-123456-7, are not amounts.
	registrationToken = regexp.MustCompile(`\d+(?:-\d+)+`)
	centsToken        = regexp.MustCompile(`[.,]\d{2}$`)
	longIntegerToken  = regexp.MustCompile(`^\d{8,}$`)
)

// taxAmount is the money amount of a tax line. Without a currency sign the
// amount must print its cents, and a bare run of eight or more digits is
// always an identifier.
func taxAmount(line string) (decimal.Decimal, bool) {
	line = scrub(line, percentToken, dateToken, registrationToken)
	currency := strings.Contains(line, "$")
	tokens := numberToken.FindAllString(line, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if longIntegerToken.MatchString(tok) || (!currency && !centsToken.MatchString(tok)) {
			continue
		}
		if d, ok := numeric.Clean(tok); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func printedRate(line string, fallback float64) float64 {
	if m := ratePattern.FindStringSubmatch(line); m != nil {
		if d, ok := numeric.Clean(m[1]); ok {
			f, _ := d.Float64()
			return f
		}
	}
	return fallback
}

func named(prefix string) func(float64) string {
	return func(rate float64) string {
		if rate == 0 {
			return prefix
		}
		return fmt.Sprintf("%s %s%%", prefix, decimal.NewFromFloat(rate).String())
	}
}

// taxFamilies are checked in order. A withholding or collection line that
// names IVA is a Retención or Percepción, so plain IVA is checked last.
var taxFamilies = []taxFamily{
	{
		Type:    models.TaxGanancias,
		Pattern: regexp.MustCompile(`ganancias`),
		Rate:    func(string) (float64, bool) { return GananciasRate, true },
		Name:    func(float64) string { return "Retención Ganancias" },
	},
	{
		Type:    models.TaxIIBB,
		Pattern: regexp.MustCompile(`ingresos\s+brutos|\biibb\b|\bii\.?\s?bb\.?`),
		Rate:    func(l string) (float64, bool) { return printedRate(l, 0), true },
		Name:    named("Ingresos Brutos"),
	},
	{
		Type:    models.TaxRetencion,
		Pattern: regexp.MustCompile(`retenci[oó]n`),
		Rate:    func(l string) (float64, bool) { return printedRate(l, 0), true },
		Name:    named("Retención"),
	},
	{
		Type:    models.TaxPercepcion,
		Pattern: regexp.MustCompile(`percepci[oó]n`),
		Rate:    func(l string) (float64, bool) { return printedRate(l, 0), true },
		Name:    named("Percepción"),
	},
	{
		Type:    models.TaxIVA,
		Pattern: ivaWord,
		Rate: func(l string) (float64, bool) {
			if ivaSummary.MatchString(l) {
				return 0, false
			}
			return printedRate(l, DefaultIVARate), true
		},
		Name: named("IVA"),
	},
}

type taxKey struct {
	Type   models.TaxType
	Rate   float64
	Amount string
}

// ExtractTaxes scans the text line by line for tax amounts. An amount already
// attributed to one tax family is not attributed to another, and a line
// repeating the family, rate and amount of an earlier one is skipped.
// Lines of the same family with different rates may share an amount.
func ExtractTaxes(text string) []models.TaxLineItem {
	taxes := []models.TaxLineItem{}
	owner := map[string]models.TaxType{}
	seen := map[taxKey]bool{}

	for _, line := range lines(text) {
		l := strings.ToLower(line)
		if taxStatusLine.MatchString(l) {
			continue
		}
		for _, fam := range taxFamilies {
			if !fam.Pattern.MatchString(l) {
				continue
			}
			rate, ok := fam.Rate(l)
			if !ok {
				break
			}
			amount, ok := taxAmount(l)
			if !ok {
				break
			}
			cents := amount.StringFixed(2)
			if t, taken := owner[cents]; taken && t != fam.Type {
				break
			}
			key := taxKey{Type: fam.Type, Rate: rate, Amount: cents}
			if seen[key] {
				break
			}
			owner[cents] = fam.Type
			seen[key] = true
			taxes = append(taxes, models.TaxLineItem{
				Name:        fam.Name(rate),
				Type:        fam.Type,
				Rate:        rate,
				Amount:      amount.Round(2),
				ShouldCount: true,
			})
			break
		}
	}
	return taxes
}
