package fields_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/fields"
)

var _ = Describe("ExtractAmount", func() {
	It("prefers the net amount over VAT and total", func() {
		Expect(fields.ExtractAmount(facturaA)).To(Equal("15000.00"))
	})

	It("returns the net amount when only net and VAT are printed", func() {
		text := "Importe Neto: $15.000,00\nIVA 21%: $3.150,00"
		Expect(fields.ExtractAmount(text)).To(Equal("15000.00"))
	})

	It("falls back to subtotal and then importe total labels", func() {
		Expect(fields.ExtractAmount("Subtotal: 8.500,00\nIVA: 1.785,00")).To(Equal("8500.00"))
		Expect(fields.ExtractAmount("Importe Total: 12.100,00")).To(Equal("12100.00"))
	})

	It("ignores label values below the minimum amount", func() {
		d, tier, ok := fields.FindAmount("Subtotal: 12\nTOTAL A PAGAR 4.200,00")
		Expect(ok).To(BeTrue())
		Expect(tier).To(Equal(fields.TierLines))
		Expect(d.StringFixed(2)).To(Equal("4200.00"))
	})

	Context("line buckets", func() {
		It("never takes a total line that mentions iva", func() {
			text := "Neto gravado 10.000,00\nTotal IVA 2.100,00\nTotal 12.100,00"
			d, tier, ok := fields.FindAmount(text)
			Expect(ok).To(BeTrue())
			Expect(tier).To(Equal(fields.TierLines))
			Expect(d.StringFixed(2)).To(Equal("10000.00"))
		})

		It("rejects a net bucket that is not larger than twice the VAT", func() {
			text := "Neto gravado 2.100,00\nIVA 10.000,00\nTotal 12.100,00"
			d, _, ok := fields.FindAmount(text)
			Expect(ok).To(BeTrue())
			Expect(d.StringFixed(2)).To(Equal("12100.00"))
		})

		It("uses the total when nothing else is printed", func() {
			d, tier, ok := fields.FindAmount("TOTAL A PAGAR 7.260,00")
			Expect(ok).To(BeTrue())
			Expect(tier).To(Equal(fields.TierLines))
			Expect(d.StringFixed(2)).To(Equal("7260.00"))
		})
	})

	Context("currency symbol candidates", func() {
		It("skips amounts near iva, discount and advance wording", func() {
			filler := "Detalle de la prestacion realizada en el mes"
			text := "Abonado $ 5.000,00 en concepto de anticipo\n" + filler + "\n" +
				"Cargo por servicio $ 2.300,00\n" + filler + "\n" +
				"Descuento aplicado $ 9.999,00"
			d, tier, ok := fields.FindAmount(text)
			Expect(ok).To(BeTrue())
			Expect(tier).To(Equal(fields.TierCurrency))
			Expect(d.StringFixed(2)).To(Equal("2300.00"))
		})
	})

	Context("last resort tiers", func() {
		It("uses amounts followed by currency words", func() {
			d, tier, ok := fields.FindAmount("Son 4.500,00 pesos por el trabajo realizado")
			Expect(ok).To(BeTrue())
			Expect(tier).To(Equal(fields.TierWords))
			Expect(d.StringFixed(2)).To(Equal("4500.00"))
		})

		It("picks the largest number that is not an identifier or a date", func() {
			text := "Cliente 20345678\nEmitido 10/01/2024\nConcepto varios 1.250,50\nCant 3"
			d, tier, ok := fields.FindAmount(text)
			Expect(ok).To(BeTrue())
			Expect(tier).To(Equal(fields.TierLargest))
			Expect(d.StringFixed(2)).To(Equal("1250.50"))
		})
	})

	It("returns the zero sentinel when nothing is plausible", func() {
		Expect(fields.ExtractAmount("Recibo sin importes legibles 12 34")).To(Equal("0.00"))
		Expect(fields.ExtractAmount("")).To(Equal("0.00"))
	})
})
