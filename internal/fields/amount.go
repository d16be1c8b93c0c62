package fields

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
	"facturas/pkg/models"
)

var (
	// MinAmount rejects stray small numbers such as quantities or page counts.
	MinAmount = decimal.NewFromInt(100)
	// MaxAmount is the sanity ceiling for the last-resort scan.
	MaxAmount = decimal.NewFromInt(100_000_000)

	minVATRatio = decimal.NewFromFloat(0.10)
	maxVATRatio = decimal.NewFromFloat(0.35)
	two         = decimal.NewFromInt(2)
)

// Tier names reported by FindAmount.
const (
	TierLabel    = "label"
	TierLines    = "lines"
	TierCurrency = "currency-symbol"
	TierWords    = "currency-word"
	TierLargest  = "largest-number"
)

const amountValue = `\s*[:=]?\s*(?:\$|ars)?\s*(\d[\d.,]*)`

func plausible(m []string) (decimal.Decimal, bool) {
	d, ok := numeric.Clean(m[1])
	if !ok || d.LessThan(MinAmount) {
		return decimal.Zero, false
	}
	return d, true
}

// labelRules is tier 1: explicit labels, net amount first.
var labelRules = Table[decimal.Decimal]{
	{Name: "importe-neto", Priority: 10, Pattern: regexp.MustCompile(`(?i)importe\s+neto(?:\s+gravado)?` + amountValue), Accept: plausible},
	{Name: "subtotal", Priority: 20, Pattern: regexp.MustCompile(`(?i)sub\s?-?total` + amountValue), Accept: plausible},
	{Name: "importe-total", Priority: 30, Pattern: regexp.MustCompile(`(?i)importe\s+total` + amountValue), Accept: plausible},
}

// ExtractAmount returns the invoice's net amount with two decimals, or
// models.ZeroAmount when no tier finds a plausible value.
func ExtractAmount(text string) string {
	d, _, ok := FindAmount(text)
	if !ok {
		return models.ZeroAmount
	}
	return numeric.Format(d)
}

// FindAmount runs the amount tiers in order and reports which one succeeded.
func FindAmount(text string) (decimal.Decimal, string, bool) {
	if d, _, ok := labelRules.First(text); ok {
		return d, TierLabel, true
	}
	if d, ok := bucketAmount(text); ok {
		return d, TierLines, true
	}
	if d, ok := currencySymbolAmount(text); ok {
		return d, TierCurrency, true
	}
	if d, ok := currencyWordAmount(text); ok {
		return d, TierWords, true
	}
	if d, ok := largestAmount(text); ok {
		return d, TierLargest, true
	}
	return decimal.Zero, "", false
}

var ivaWord = regexp.MustCompile(`\biva\b|i\.v\.a`)

type buckets struct {
	neto, subtotal, iva, total             decimal.Decimal
	hasNeto, hasSubtotal, hasIVA, hasTotal bool
}

func collectBuckets(text string) buckets {
	var b buckets
	for _, line := range lines(text) {
		l := strings.ToLower(line)
		d, ok := lineAmount(l)
		if !ok {
			continue
		}
		switch {
		case containsAny(l, "importe neto", "neto gravado"):
			if !b.hasNeto && !d.LessThan(MinAmount) {
				b.neto, b.hasNeto = d, true
			}
		case containsAny(l, "subtotal", "sub total", "sub-total"):
			if !b.hasSubtotal && !d.LessThan(MinAmount) {
				b.subtotal, b.hasSubtotal = d, true
			}
		case ivaWord.MatchString(l):
			// A total line mentioning iva is the VAT line, never the total.
			if !b.hasIVA {
				b.iva, b.hasIVA = d, true
			}
		case strings.Contains(l, "total"):
			if !b.hasTotal && !d.LessThan(MinAmount) {
				b.total, b.hasTotal = d, true
			}
		}
	}
	return b
}

// bucketAmount is tiers 2 and 3: line buckets and the net-vs-VAT decision.
func bucketAmount(text string) (decimal.Decimal, bool) {
	b := collectBuckets(text)

	if b.hasNeto && (!b.hasIVA || b.neto.GreaterThan(b.iva.Mul(two))) {
		return b.neto, true
	}
	if b.hasSubtotal && b.hasIVA {
		ratio := b.iva.Div(b.subtotal)
		if !ratio.LessThan(minVATRatio) && !ratio.GreaterThan(maxVATRatio) {
			return b.subtotal, true
		}
	}
	if b.hasSubtotal {
		return b.subtotal, true
	}
	if b.hasTotal && (!b.hasIVA || b.total.GreaterThan(b.iva.Mul(two))) {
		return b.total, true
	}
	return decimal.Zero, false
}

var currencySymbol = regexp.MustCompile(`(?i)(?:u\$s|us\$|ars\s*\$?|\$)\s*(\d[\d.,]*)`)

const contextRadius = 40

// currencySymbolAmount is tier 4: symbol-prefixed numbers scored by context.
func currencySymbolAmount(text string) (decimal.Decimal, bool) {
	var (
		best      decimal.Decimal
		bestScore = -1
	)
	for _, loc := range currencySymbol.FindAllStringSubmatchIndex(text, -1) {
		d, ok := numeric.Clean(text[loc[2]:loc[3]])
		if !ok || d.LessThan(MinAmount) {
			continue
		}
		ctx := strings.ToLower(text[max(0, loc[0]-contextRadius):min(len(text), loc[1]+contextRadius)])
		score, ok := contextScore(ctx)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && d.GreaterThan(best)) {
			best, bestScore = d, score
		}
	}
	return best, bestScore >= 0
}

func contextScore(ctx string) (int, bool) {
	if ivaWord.MatchString(ctx) || containsAny(ctx, "descuento", "discount", "anticipo", "advance") {
		return 0, false
	}
	score := 1
	switch {
	case strings.Contains(ctx, "importe neto"):
		score += 3
	case strings.Contains(ctx, "subtotal"):
		score += 2
	case strings.Contains(ctx, "total"):
		score++
	}
	return score, true
}

var currencyWord = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*(?:pesos|ars|usd)\b`)

// currencyWordAmount is the first half of tier 5.
func currencyWordAmount(text string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, m := range currencyWord.FindAllStringSubmatch(text, -1) {
		if d, ok := plausible(m); ok && d.GreaterThan(best) {
			best, found = d, true
		}
	}
	return best, found
}

var (
	afipNumberToken = regexp.MustCompile(`\b\d{4,5}-\d{8}\b`)
	longInteger     = regexp.MustCompile(`^\d{8,}$`)
)

// largestAmount is the last resort: the largest number that is not an
// identifier and stays under MaxAmount.
func largestAmount(text string) (decimal.Decimal, bool) {
	text = scrub(text, cuitToken, dateToken, afipNumberToken, percentToken)
	var best decimal.Decimal
	found := false
	for _, tok := range numberToken.FindAllString(text, -1) {
		if longInteger.MatchString(tok) {
			continue
		}
		d, ok := numeric.Clean(tok)
		if !ok || d.LessThan(MinAmount) || !d.LessThan(MaxAmount) {
			continue
		}
		if d.GreaterThan(best) {
			best, found = d, true
		}
	}
	return best, found
}
