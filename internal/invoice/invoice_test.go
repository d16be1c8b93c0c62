package invoice_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"facturas/internal/fields"
	"facturas/internal/invoice"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

func TestInvoice(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Invoice Suite")
}

var _ = BeforeSuite(func() {
	logger.Silence()
})

const serviceInvoice = `ESTUDIO CONTABLE DEMO
FACTURA
Factura B 0004-00000321
Fecha: 12/08/2024
Honorarios por servicio de asesoría
Importe Neto: $40.000,00
IVA 21%: $8.400,00
Importe Total: $48.400,00
`

var _ = Describe("Builder", func() {
	var builder *invoice.Builder

	BeforeEach(func() {
		builder = invoice.NewBuilder(nil)
	})

	It("composes every extracted field", func() {
		p := builder.Build(serviceInvoice, invoice.BuildOptions{SourceFile: "b.pdf"})
		rec := p.Record

		Expect(rec.ID).NotTo(BeEmpty())
		Expect(rec.Number).To(Equal("B-0004-00000321"))
		Expect(rec.Date).To(Equal("2024-08-12"))
		Expect(rec.Amount).To(Equal("40000.00"))
		Expect(rec.Type).To(Equal(models.TypeIncome))
		Expect(rec.Category).To(Equal("Servicios"))
		Expect(rec.Description).To(Equal("ESTUDIO CONTABLE DEMO"))
		Expect(rec.Taxes).To(HaveLen(1))
		Expect(rec.Processed).To(BeTrue())
		Expect(rec.SourceFile).To(Equal("b.pdf"))
		Expect(rec.ContentHash).To(Equal(invoice.ContentHash(serviceInvoice)))
		Expect(p.AmountTier).To(Equal(fields.TierLabel))
		Expect(p.Warnings).To(BeEmpty())
	})

	It("lets the explicit type win over the classifier", func() {
		p := builder.Build(serviceInvoice, invoice.BuildOptions{Type: models.TypeExpense})
		Expect(p.Record.Type).To(Equal(models.TypeExpense))
		Expect(p.Record.Category).To(BeElementOf("Sueldos", "Impuestos", "Gastos Operativos", "Compras"))
	})

	It("warns instead of failing when the amount and number are missing", func() {
		p := builder.Build("texto ilegible", invoice.BuildOptions{})
		Expect(p.Record.Amount).To(Equal(models.ZeroAmount))
		Expect(p.Record.Processed).To(BeTrue())
		Expect(fields.IsSynthetic(p.Record.Number)).To(BeTrue())
		Expect(p.Warnings).To(HaveLen(2))
	})

	It("flags VAT that does not match the net amount", func() {
		text := "Importe Neto: $10.000,00\nIVA 21%: $4.000,00"
		p := builder.Build(text, invoice.BuildOptions{})
		Expect(p.Warnings).To(ContainElement(ContainSubstring("no coincide")))
	})

	It("accepts mixed VAT rates that together fit the net amount", func() {
		text := "Importe Neto: $10.000,00\nIVA 21%: $1.050,00\nIVA 10,5%: $525,00"
		p := builder.Build(text, invoice.BuildOptions{})
		Expect(p.Record.Taxes).To(HaveLen(2))
		Expect(p.Warnings).NotTo(ContainElement(ContainSubstring("no coincide")))
	})

	It("flags mixed VAT rates whose sum exceeds the highest rate", func() {
		check := invoice.NewAmountCheck()
		warnings := check.Check(models.InvoiceRecord{
			Amount: "10000.00",
			Taxes: []models.TaxLineItem{
				{Name: "IVA 21%", Type: models.TaxIVA, Rate: 21, Amount: decimal.RequireFromString("2100")},
				{Name: "IVA 10.5%", Type: models.TaxIVA, Rate: 10.5, Amount: decimal.RequireFromString("1050")},
			},
		})
		Expect(warnings).To(ContainElement(ContainSubstring("entre 10.5% y 21%")))
	})
})

var _ = Describe("Normalize", func() {
	record := func() models.InvoiceRecord {
		return models.InvoiceRecord{
			ID:          " abc ",
			Type:        "gasto",
			Number:      " a-0001-00000010 ",
			Date:        "05/03/24",
			Amount:      "1.234,5",
			Description: "  Compra   de insumos ",
			Category:    "Inexistente",
			Taxes: []models.TaxLineItem{
				{Name: " iva  21% ", Type: "iva", Rate: 21.004, Amount: decimal.RequireFromString("259.245"), ShouldCount: true},
				{Type: "percepcion", Amount: decimal.RequireFromString("-3"), ShouldCount: true},
			},
			Processed: true,
			Analysis: &models.AIAnalysis{
				IsDuplicateCopy: true,
				Confidence:      1.7,
				Warnings:        []string{"a", " a ", ""},
			},
		}
	}

	It("canonicalizes every field", func() {
		out := invoice.Normalize(record())
		Expect(out.ID).To(Equal("abc"))
		Expect(out.Type).To(Equal(models.TypeExpense))
		Expect(out.Number).To(Equal("A-0001-00000010"))
		Expect(out.Date).To(Equal("2024-03-05"))
		Expect(out.Amount).To(Equal("1234.50"))
		Expect(out.Description).To(Equal("Compra de insumos"))
		Expect(out.Category).To(Equal("Compras"))
		Expect(out.Taxes[0].Type).To(Equal(models.TaxIVA))
		Expect(out.Taxes[0].Name).To(Equal("iva 21%"))
		Expect(out.Taxes[0].Rate).To(Equal(21.0))
		Expect(out.Taxes[0].Amount.StringFixed(2)).To(Equal("259.25"))
		Expect(out.Taxes[1].Type).To(Equal(models.TaxPercepcion))
		Expect(out.Taxes[1].Name).To(Equal("Percepción"))
		Expect(out.Taxes[1].Amount.IsZero()).To(BeTrue())
		Expect(out.Analysis.Confidence).To(Equal(1.0))
		Expect(out.Analysis.IsDuplicate).To(BeTrue())
		Expect(out.Analysis.Warnings).To(Equal([]string{"a"}))
	})

	It("marks every tax of a duplicate copy as not counted", func() {
		out := invoice.Normalize(record())
		for _, t := range out.Taxes {
			Expect(t.ShouldCount).To(BeFalse())
		}
	})

	It("is idempotent", func() {
		once := invoice.Normalize(record())
		twice := invoice.Normalize(once)

		a, err := json.Marshal(once)
		Expect(err).NotTo(HaveOccurred())
		b, err := json.Marshal(twice)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(a))
	})

	It("fills an empty number and falls back to the zero amount", func() {
		out := invoice.Normalize(models.InvoiceRecord{Amount: "n/a"})
		Expect(out.Number).NotTo(BeEmpty())
		Expect(out.Amount).To(Equal(models.ZeroAmount))
		Expect(out.Taxes).NotTo(BeNil())
	})
})

var _ = Describe("Duplicate keys", func() {
	It("matches identical number, date and amount regardless of other fields", func() {
		a := models.CorpusEntry{ID: "1", Number: "A-0001-00000001", Date: "2024-01-02", Amount: "100.00", Type: models.TypeIncome}
		b := models.CorpusEntry{ID: "2", Number: "a-0001-00000001", Date: "02/01/2024", Amount: "100", Type: models.TypeExpense}
		Expect(invoice.KeyOf(a)).To(Equal(invoice.KeyOf(b)))

		dup, ok := invoice.FindDuplicate(b, []models.CorpusEntry{a})
		Expect(ok).To(BeTrue())
		Expect(dup.ID).To(Equal("1"))
	})

	It("does not match an entry against itself", func() {
		a := models.CorpusEntry{ID: "1", Number: "X1", Date: "2024-01-02", Amount: "100.00"}
		_, ok := invoice.FindDuplicate(a, []models.CorpusEntry{a})
		Expect(ok).To(BeFalse())
	})

	It("compares synthetic numbers by content hash", func() {
		hash := invoice.ContentHash("Recibo  sin numero\n500")
		a := models.CorpusEntry{ID: "1", Number: fields.SyntheticNumber(), Date: "2024-01-02", Amount: "500.00", ContentHash: hash}
		b := models.CorpusEntry{ID: "2", Number: fields.SyntheticPrefix + "00000000", Date: "2024-01-02", Amount: "500.00", ContentHash: invoice.ContentHash("recibo sin numero 500")}
		c := models.CorpusEntry{ID: "3", Number: fields.SyntheticPrefix + "11111111", Date: "2024-01-02", Amount: "500.00", ContentHash: invoice.ContentHash("otro recibo 500")}

		Expect(invoice.SameInvoice(a, b)).To(BeTrue())
		Expect(invoice.SameInvoice(a, c)).To(BeFalse())
	})
})
