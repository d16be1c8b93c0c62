package invoice

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"facturas/internal/logger"
	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// ToleranceRatio is the relative difference accepted between the printed
// VAT and the VAT implied by the net amount and the printed rate.
var ToleranceRatio = decimal.NewFromFloat(0.05)

// AmountCheck cross-checks a record's net amount against its VAT lines.
type AmountCheck struct {
	log zerolog.Logger
}

// NewAmountCheck creates a new amount check
func NewAmountCheck() *AmountCheck {
	return &AmountCheck{
		log: logger.WithComponent("amount-check"),
	}
}

// Check returns warnings for VAT that does not fit the net amount. The net
// is the base of all VAT lines together, so the summed VAT is compared with
// the net at the printed rates. With mixed rates the split of the net is
// unknown and the sum only has to fall between the lowest and highest rate.
func (ac *AmountCheck) Check(rec models.InvoiceRecord) []string {
	net, ok := numeric.Clean(rec.Amount)
	if !ok {
		return nil
	}

	var warnings []string
	vatTotal, rated := decimal.Zero, decimal.Zero
	var minRate, maxRate float64
	var names []string
	for _, t := range rec.Taxes {
		if t.Type != models.TaxIVA {
			continue
		}
		vatTotal = vatTotal.Add(t.Amount)
		if t.Rate <= 0 {
			continue
		}
		rated = rated.Add(t.Amount)
		if len(names) == 0 || t.Rate < minRate {
			minRate = t.Rate
		}
		if len(names) == 0 || t.Rate > maxRate {
			maxRate = t.Rate
		}
		names = append(names, t.Name)
	}

	if len(names) > 0 {
		hundred := decimal.NewFromInt(100)
		low := net.Mul(decimal.NewFromFloat(minRate)).Div(hundred)
		high := net.Mul(decimal.NewFromFloat(maxRate)).Div(hundred)

		var msg string
		switch {
		case minRate == maxRate:
			if calculateDiscrepancy(low, rated).GreaterThan(ToleranceRatio) {
				msg = fmt.Sprintf("%s: %s no coincide con el %s%% del neto (%s esperado)",
					strings.Join(names, " + "), rated.StringFixed(2), decimal.NewFromFloat(minRate).String(), low.StringFixed(2))
			}
		case outside(rated, low, high):
			msg = fmt.Sprintf("%s: %s no coincide con alícuotas entre %s%% y %s%% del neto (entre %s y %s esperado)",
				strings.Join(names, " + "), rated.StringFixed(2),
				decimal.NewFromFloat(minRate).String(), decimal.NewFromFloat(maxRate).String(),
				low.StringFixed(2), high.StringFixed(2))
		}
		if msg != "" {
			warnings = append(warnings, msg)
			ac.log.Debug().
				Str("number", rec.Number).
				Str("low", low.StringFixed(2)).
				Str("high", high.StringFixed(2)).
				Str("printed", rated.StringFixed(2)).
				Msg("VAT discrepancy")
		}
	}

	if vatTotal.IsPositive() && !net.GreaterThan(vatTotal.Mul(decimal.NewFromInt(2))) {
		warnings = append(warnings, "El importe registrado no supera el doble del IVA; podría ser el IVA y no el neto")
	}
	return warnings
}

// outside reports whether v lies outside [low, high] by more than the tolerance.
func outside(v, low, high decimal.Decimal) bool {
	one := decimal.NewFromInt(1)
	return v.LessThan(low.Mul(one.Sub(ToleranceRatio))) || v.GreaterThan(high.Mul(one.Add(ToleranceRatio)))
}

// calculateDiscrepancy returns |a-b| relative to the larger of the two.
func calculateDiscrepancy(a, b decimal.Decimal) decimal.Decimal {
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(larger)
}
