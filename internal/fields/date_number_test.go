package fields_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/fields"
)

var _ = Describe("ExtractDate", func() {
	It("expands two digit years and reads day before month", func() {
		Expect(fields.ExtractDate("Fecha: 05/03/24")).To(Equal("2024-03-05"))
	})

	It("prefers a fecha-labelled date over an earlier bare date", func() {
		text := "Vto CAE 30-04-2024\nFecha de emisión: 1-4-2024"
		Expect(fields.ExtractDate(text)).To(Equal("2024-04-01"))
	})

	It("accepts bare dates with dashes", func() {
		Expect(fields.ExtractDate("Emitida el 15-11-2023 en CABA")).To(Equal("2023-11-15"))
	})

	It("skips impossible calendar dates", func() {
		Expect(fields.ExtractDate("31/02/2024 y luego 28/02/2024")).To(Equal("2024-02-28"))
	})

	It("falls back to today", func() {
		Expect(fields.ExtractDate("sin fecha")).To(Equal(fields.Today()))
	})
})

var _ = Describe("ExtractNumber", func() {
	It("normalizes AFIP numbers anchored to the factura keyword", func() {
		n := fields.ExtractNumber("Factura A 0001-00012345")
		Expect(n).To(Equal("A-0001-00012345"))
		Expect(n).To(ContainSubstring("A"))
		Expect(n).To(ContainSubstring("0001"))
		Expect(n).To(ContainSubstring("00012345"))
	})

	It("reads the full sample invoice", func() {
		Expect(fields.ExtractNumber(facturaA)).To(Equal("A-0001-00012345"))
	})

	It("accepts generic numbers after a comprobante label", func() {
		Expect(fields.ExtractNumber("Comprobante Nro: X-778/B")).To(Equal("X-778/B"))
	})

	It("rejects keyword matches that look like money", func() {
		n := fields.ExtractNumber("Factura N° 12.345,00\nB 0003-00000077")
		Expect(n).To(Equal("B-0003-00000077"))
	})

	It("combines punto de venta and comprobante numbers", func() {
		text := "FACTURA\nC\nPunto de Venta: 00002 Comp. Nro: 00000456"
		Expect(fields.ExtractNumber(text)).To(Equal("C-00002-00000456"))
	})

	It("prefixes long digit runs and skips CUIT middles", func() {
		Expect(fields.ExtractNumber("CUIT 20-12345678-9 ref 987654321")).To(Equal("FAC-987654321"))
	})

	It("never returns an empty number", func() {
		n := fields.ExtractNumber("nada legible")
		Expect(n).NotTo(BeEmpty())
		Expect(fields.IsSynthetic(n)).To(BeTrue())
		Expect(n).To(HaveLen(len(fields.SyntheticPrefix) + 8))
	})
})
