package aivalidate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/aivalidate"
	"facturas/internal/invoice"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

func TestAIValidate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AIValidate Suite")
}

var _ = BeforeSuite(func() {
	logger.Silence()
})

const invoiceText = `COMERCIAL DEMO SA
Factura A 0001-00012345
Fecha de Emisión: 05/03/2024
Importe Neto: $15.000,00
IVA 21%: $3.150,00
Importe Total: $18.150,00
`

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

var _ = Describe("ParsePatch", func() {
	It("cuts the JSON object out of prose and code fences", func() {
		reply := "Este es mi análisis:\n```json\n{\"isValid\": true, \"confidence\": 0.9, \"correctedData\": {\"amount\": 12345.5}}\n```\nSaludos."
		patch, err := aivalidate.ParsePatch(reply)
		Expect(err).NotTo(HaveOccurred())
		Expect(patch.IsValid).To(BeTrue())
		Expect(*patch.Confidence).To(Equal(0.9))
		amount, ok := patch.CorrectedData.Amount.Decimal()
		Expect(ok).To(BeTrue())
		Expect(amount.String()).To(Equal("12345.5"))
	})

	It("accepts amounts as strings", func() {
		patch, err := aivalidate.ParsePatch(`{"isValid": false, "correctedData": {"amount": "1.500,00", "taxes": [{"amount": "315"}]}}`)
		Expect(err).NotTo(HaveOccurred())
		amount, ok := patch.CorrectedData.Amount.Decimal()
		Expect(ok).To(BeTrue())
		Expect(amount.StringFixed(2)).To(Equal("1500.00"))
		Expect(patch.CorrectedData.Taxes).To(HaveLen(1))
		Expect(patch.CorrectedData.Taxes[0].ShouldCount).To(BeNil())
	})

	It("reads numeric amounts as plain decimals", func() {
		patch, err := aivalidate.ParsePatch(`{"isValid": true, "correctedData": {"amount": 3150.125, "taxes": [{"amount": 1.5}]}}`)
		Expect(err).NotTo(HaveOccurred())
		amount, _ := patch.CorrectedData.Amount.Decimal()
		Expect(amount.String()).To(Equal("3150.125"))
		tax, _ := patch.CorrectedData.Taxes[0].Amount.Decimal()
		Expect(tax.String()).To(Equal("1.5"))
	})

	DescribeTable("rejects unusable replies",
		func(reply string) {
			_, err := aivalidate.ParsePatch(reply)
			Expect(errors.Is(err, aivalidate.ErrAIResponseUnparseable)).To(BeTrue())
		},
		Entry("no JSON", "No puedo analizar esta factura."),
		Entry("broken JSON", `{"isValid": true,`),
		Entry("missing verdict", `{"confidence": 0.4}`),
		Entry("wrong type", `{"isValid": "si"}`),
		Entry("confidence out of range", `{"isValid": true, "confidence": 250}`),
	)
})

var _ = Describe("Validator", func() {
	var (
		ctx  context.Context
		prov invoice.Provisional
	)

	BeforeEach(func() {
		ctx = context.Background()
		prov = invoice.NewBuilder(nil).Build(invoiceText, invoice.BuildOptions{SourceFile: "a.pdf"})
		Expect(prov.Record.Number).To(Equal("A-0001-00012345"))
		Expect(prov.Record.Taxes).To(HaveLen(1))
	})

	It("falls back to the heuristic record when the model fails", func() {
		gen := &fakeGenerator{err: errors.New("timeout")}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, nil)

		Expect(res.Degraded).To(BeTrue())
		Expect(res.Err).To(HaveOccurred())
		Expect(res.Analysis.Confidence).To(Equal(aivalidate.FallbackConfidence))
		Expect(res.Analysis.Warnings).To(ContainElement(ContainSubstring("IA")))
		Expect(res.Corrected.Number).To(Equal(prov.Record.Number))
		Expect(res.Corrected.Amount).To(Equal("15000.00"))
		Expect(res.Corrected.Analysis).NotTo(BeNil())
		Expect(res.Corrected.Taxes[0].ShouldCount).To(BeTrue())
	})

	It("falls back when the reply is unparseable", func() {
		gen := &fakeGenerator{reply: "Lo siento, no entiendo."}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, nil)
		Expect(res.Degraded).To(BeTrue())
		Expect(errors.Is(res.Err, aivalidate.ErrAIResponseUnparseable)).To(BeTrue())
	})

	It("falls back without a generator", func() {
		res := aivalidate.NewValidator(nil, nil).Validate(ctx, prov, invoiceText, nil)
		Expect(res.Degraded).To(BeTrue())
		Expect(errors.Is(res.Err, aivalidate.ErrNoGenerator)).To(BeTrue())
	})

	It("applies corrections and clears every tax of a copy", func() {
		gen := &fakeGenerator{reply: "```json\n" + `{
			"isValid": true,
			"isDuplicate": true,
			"isDuplicateCopy": true,
			"confidence": 0.8,
			"warnings": ["Factura escaneada dos veces"],
			"correctedData": {
				"amount": 15000,
				"description": "Comercial Demo SA",
				"taxes": [
					{"name": "IVA 21%", "type": "IVA", "rate": 21, "amount": "3150.00", "shouldCount": true},
					{"name": "Percepción IIBB", "type": "IIBB", "rate": "3", "amount": 450, "shouldCount": true}
				]
			}
		}` + "\n```"}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, nil)

		Expect(res.Degraded).To(BeFalse())
		Expect(res.Corrected.Amount).To(Equal("15000.00"))
		Expect(res.Corrected.Description).To(Equal("Comercial Demo SA"))
		Expect(res.Corrected.Taxes).To(HaveLen(2))
		Expect(res.Corrected.Taxes[1].Type).To(Equal(models.TaxIIBB))
		Expect(res.Corrected.Taxes[1].Rate).To(Equal(3.0))
		for _, t := range res.Corrected.Taxes {
			Expect(t.ShouldCount).To(BeFalse())
		}
		Expect(res.Analysis.Warnings).To(ContainElement("Factura escaneada dos veces"))
	})

	It("keeps the decimal point of numeric corrections", func() {
		gen := &fakeGenerator{reply: `{
			"isValid": true,
			"confidence": 0.9,
			"correctedData": {
				"amount": 3150.125,
				"taxes": [{"name": "IVA 21%", "type": "IVA", "rate": 21, "amount": 661.526, "shouldCount": true}]
			}
		}`}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, nil)

		Expect(res.Corrected.Amount).To(Equal("3150.13"))
		Expect(res.Corrected.Taxes).To(HaveLen(1))
		Expect(res.Corrected.Taxes[0].Amount.StringFixed(2)).To(Equal("661.53"))
	})

	It("marks an exact key match as a copy even when the model misses it", func() {
		corpus := []models.CorpusEntry{
			{ID: "orig-1", Number: "A-0001-00012345", Date: "2024-03-05", Amount: "15000.00", Type: models.TypeIncome},
		}
		gen := &fakeGenerator{reply: `{"isValid": true, "isDuplicate": false, "isDuplicateCopy": false, "confidence": 0.9}`}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, corpus)

		Expect(res.Analysis.IsDuplicate).To(BeTrue())
		Expect(res.Analysis.IsDuplicateCopy).To(BeTrue())
		Expect(res.Analysis.OriginalInvoiceID).To(Equal("orig-1"))
		Expect(res.Corrected.Taxes[0].ShouldCount).To(BeFalse())
	})

	It("marks an exact key match on the fallback path too", func() {
		corpus := []models.CorpusEntry{
			{ID: "orig-1", Number: "a-0001-00012345", Date: "05/03/2024", Amount: "15.000,00"},
		}
		res := aivalidate.NewValidator(nil, nil).Validate(ctx, prov, invoiceText, corpus)
		Expect(res.Analysis.IsDuplicateCopy).To(BeTrue())
		Expect(res.Corrected.Taxes[0].ShouldCount).To(BeFalse())
	})

	It("reads percentages as confidence ratios", func() {
		gen := &fakeGenerator{reply: `{"isValid": true, "confidence": 85}`}
		res := aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, nil)
		Expect(res.Analysis.Confidence).To(BeNumerically("~", 0.85, 1e-9))
	})

	It("sends only the most recent corpus entries", func() {
		corpus := make([]models.CorpusEntry, 60)
		for i := range corpus {
			corpus[i] = models.CorpusEntry{ID: fmt.Sprintf("id-%d", i), Number: fmt.Sprintf("X-%d", i), Date: "2024-01-01", Amount: "100.00"}
		}
		gen := &fakeGenerator{reply: `{"isValid": true}`}
		aivalidate.NewValidator(gen, nil).Validate(ctx, prov, invoiceText, corpus)

		Expect(gen.prompt).To(ContainSubstring("id-59 |"))
		Expect(gen.prompt).To(ContainSubstring("id-10 |"))
		Expect(gen.prompt).NotTo(ContainSubstring("id-9 |"))
		Expect(gen.prompt).To(ContainSubstring("A-0001-00012345"))
		Expect(gen.prompt).To(ContainSubstring("Importe Neto"))
	})
})
