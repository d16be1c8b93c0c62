package fields

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SyntheticPrefix marks numbers generated when nothing in the text matched.
const SyntheticPrefix = "SN-"

var (
	moneyTail    = regexp.MustCompile(`[.,]\d{2}$`)
	letterBox    = regexp.MustCompile(`(?m)^\s*([ABCEM])\s*$`)
	facturaClass = regexp.MustCompile(`(?i)factura\s+([ABCEM])\b`)
)

var numberRules = Table[string]{
	{
		Name:     "keyword-afip",
		Priority: 10,
		Pattern:  regexp.MustCompile(`(?i)(?:factura|comprobante)[^\n\d]{0,30}?\b([ABCEM])?\s*(?:n[°º]|nro\.?|n[uú]mero)?\s*[:#]?\s*(\d{4,5})\s*-\s*(\d{8})\b`),
		Accept: func(m []string) (string, bool) {
			return joinAFIP(m[1], m[2], m[3]), true
		},
	},
	{
		Name:     "keyword-generic",
		Priority: 20,
		Pattern:  regexp.MustCompile(`(?i)(?:factura|comprobante)\s*(?:n[°º]|nro\.?|n[uú]mero|#)\s*[:.]?\s*([a-z0-9][a-z0-9/.,-]*)`),
		Accept: func(m []string) (string, bool) {
			tok := strings.TrimRight(m[1], ".,-")
			if moneyTail.MatchString(tok) || !strings.ContainsAny(tok, "0123456789") {
				return "", false
			}
			return strings.ToUpper(tok), true
		},
	},
	{
		Name:     "afip",
		Priority: 30,
		Pattern:  regexp.MustCompile(`\b([ABCEM])\s*-?\s*(\d{4,5})\s*-\s*(\d{8})\b`),
		Accept: func(m []string) (string, bool) {
			return joinAFIP(m[1], m[2], m[3]), true
		},
	},
	{
		Name:     "punto-de-venta",
		Priority: 40,
		Pattern:  regexp.MustCompile(`(?i)punto\s+de\s+venta\s*:?\s*(\d{4,5})\s+comp(?:robante)?\.?\s*n(?:ro\.?|[°º])\s*:?\s*(\d{8})\b`),
		Accept: func(m []string) (string, bool) {
			return joinAFIP("", m[1], m[2]), true
		},
	},
	{
		Name:     "afip-unlettered",
		Priority: 50,
		Pattern:  regexp.MustCompile(`\b(\d{4,5})-(\d{8})\b`),
		Accept: func(m []string) (string, bool) {
			return joinAFIP("", m[1], m[2]), true
		},
	},
	{
		Name:     "long-digits",
		Priority: 60,
		// The surrounding characters are consumed so CUIT middles are skipped.
		Pattern: regexp.MustCompile(`(?:^|[^\d-])(\d{8,})(?:$|[^\d-])`),
		Accept: func(m []string) (string, bool) {
			return "FAC-" + m[1], true
		},
	},
}

// ExtractNumber returns the invoice number. It never returns an empty
// string: when no rule matches a synthetic number is built from the clock.
func ExtractNumber(text string) string {
	n, rule, ok := numberRules.First(text)
	if !ok {
		return SyntheticNumber()
	}
	if rule == "punto-de-venta" || rule == "afip-unlettered" {
		if letter := invoiceLetter(text); letter != "" {
			n = letter + "-" + n
		}
	}
	return n
}

// IsSynthetic reports whether number was generated by ExtractNumber's fallback.
func IsSynthetic(number string) bool {
	return strings.HasPrefix(number, SyntheticPrefix)
}

// SyntheticNumber builds a placeholder number from the clock's last 8 digits.
func SyntheticNumber() string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 10)
	return SyntheticPrefix + ts[len(ts)-8:]
}

func joinAFIP(letter, pv, num string) string {
	if len(pv) < 4 {
		pv = strings.Repeat("0", 4-len(pv)) + pv
	}
	if letter == "" {
		return pv + "-" + num
	}
	return strings.ToUpper(letter) + "-" + pv + "-" + num
}

// invoiceLetter finds the class letter printed in the header box.
func invoiceLetter(text string) string {
	if m := facturaClass.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := letterBox.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
