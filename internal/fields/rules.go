// Package fields holds the heuristics that pull invoice fields out of noisy
// OCR text: amount, date, invoice number, tax lines, type and category.
//
// Every extractor is an ordered table of rules. A rule pairs a pattern with a
// priority and an Accept function that validates and converts one match.
// Rules are tried in ascending priority and the first accepted match wins,
// so each rule can be tested alone and reordered without touching the rest.
package fields

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
)

// Rule is one entry of an extraction table.
type Rule[T any] struct {
	Name     string
	Priority int
	Pattern  *regexp.Regexp
	// Accept validates a submatch slice and converts it. Returning false
	// moves on to the next match of the same pattern.
	Accept func(m []string) (T, bool)
}

// Match applies the rule to text and returns the first accepted value.
func (r Rule[T]) Match(text string) (T, bool) {
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		if v, ok := r.Accept(m); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Table is an ordered rule set.
type Table[T any] []Rule[T]

// Sorted returns a copy of the table in evaluation order.
func (t Table[T]) Sorted() Table[T] {
	out := make(Table[T], len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// First evaluates the rules in priority order and reports which rule matched.
func (t Table[T]) First(text string) (T, string, bool) {
	for _, r := range t.Sorted() {
		if v, ok := r.Match(text); ok {
			return v, r.Name, true
		}
	}
	var zero T
	return zero, "", false
}

var (
	numberToken  = regexp.MustCompile(`\d[\d.,]*\d|\d`)
	percentToken = regexp.MustCompile(`\d{1,2}(?:[.,]\d{1,2})?\s*%`)
	cuitToken    = regexp.MustCompile(`\b\d{2}-\d{8}-\d\b`)
	dateToken    = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
)

// lineAmount returns the last usable number on a line, ignoring
// percentages, CUITs and dates.
func lineAmount(line string) (decimal.Decimal, bool) {
	line = scrub(line, percentToken, cuitToken, dateToken)
	tokens := numberToken.FindAllString(line, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if d, ok := numeric.Clean(tokens[i]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func scrub(s string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, " ")
	}
	return s
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
