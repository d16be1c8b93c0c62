package sheets_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"facturas/internal/logger"
	"facturas/internal/sheets"
	"facturas/pkg/models"
)

func TestSheets(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sheets Suite")
}

var _ = BeforeSuite(func() {
	logger.Silence()
})

type fakeRanges map[string][][]interface{}

func (f fakeRanges) ReadRange(_ context.Context, rangeSpec string) ([][]interface{}, error) {
	if v, ok := f[rangeSpec]; ok {
		return v, nil
	}
	return nil, errors.New("range not found: " + rangeSpec)
}

func sampleRecord() models.InvoiceRecord {
	return models.InvoiceRecord{
		ID:          "r1",
		Type:        models.TypeExpense,
		Number:      "A-0001-00000010",
		Date:        "2024-06-01",
		Amount:      "20000.00",
		Description: "Insumos",
		Category:    "Compras",
		Processed:   true,
		SourceFile:  "insumos.pdf",
		ContentHash: "abc",
		Taxes: []models.TaxLineItem{
			{Name: "IVA 21%", Type: models.TaxIVA, Rate: 21, Amount: decimal.RequireFromString("4200"), ShouldCount: true},
			{Name: "Percepción IIBB", Type: models.TaxIIBB, Rate: 3, Amount: decimal.RequireFromString("600"), ShouldCount: true},
			{Name: "IVA 10.5%", Type: models.TaxIVA, Rate: 10.5, Amount: decimal.RequireFromString("50"), ShouldCount: false},
		},
		Analysis: &models.AIAnalysis{Confidence: 0.92, Warnings: []string{"revisar fecha"}},
	}
}

var _ = Describe("ExtractSpreadsheetID", func() {
	It("reads the ID from a sheet URL", func() {
		id, err := sheets.ExtractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_E/edit#gid=0")
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("1AbC-d_E"))
	})

	It("rejects other URLs", func() {
		_, err := sheets.ExtractSpreadsheetID("https://example.com/file")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RecordRow", func() {
	It("sums only the counted taxes", func() {
		row := sheets.RecordRow(sampleRecord(), "01/06/2024 10:00:00")
		Expect(row).To(HaveLen(len(sheets.Headers)))
		Expect(row[7]).To(Equal("20000.00"))
		Expect(row[8]).To(Equal("4200.00"))
		Expect(row[9]).To(Equal("600.00"))
		Expect(row[12]).To(Equal("92%"))
		Expect(row[13]).To(Equal("OK"))
		Expect(row[14]).To(Equal("revisar fecha"))
	})

	It("records the error of a failed file", func() {
		rec := models.InvoiceRecord{ID: "f", Number: "SN-1", Amount: "0.00", Error: "archivo dañado"}
		row := sheets.RecordRow(rec, "")
		Expect(row[13]).To(Equal("Error"))
		Expect(row[14]).To(Equal("archivo dañado"))
	})

	It("routes records to the sheet of their type", func() {
		Expect(sheets.SheetFor(models.TypeExpense)).To(Equal(sheets.ExpenseSheet))
		Expect(sheets.SheetFor(models.TypeIncome)).To(Equal(sheets.IncomeSheet))
	})
})

var _ = Describe("CorpusReader", func() {
	It("reads processed rows back as corpus entries", func() {
		header := sheets.Headers
		ok := sheets.RecordRow(sampleRecord(), "")
		failed := sheets.RecordRow(models.InvoiceRecord{ID: "f", Number: "SN-1", Amount: "0.00", Error: "x"}, "")
		userEntered := []interface{}{"b.pdf", "r2", "C-0002-00000001", "5/6/2024", "income", "Ventas", "", "1.500,50"}

		reader := sheets.NewCorpusReader(fakeRanges{
			"Ingresos!A:Q": {header, userEntered},
			"Egresos!A:Q":  {header, ok, failed, {"short"}},
		})

		corpus, err := reader.ReadCorpus(context.Background(), "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(corpus).To(Equal([]models.CorpusEntry{
			{ID: "r2", Number: "C-0002-00000001", Date: "5/6/2024", Amount: "1500.50", Type: models.TypeIncome},
			{ID: "r1", Number: "A-0001-00000010", Date: "2024-06-01", Amount: "20000.00", Type: models.TypeExpense, ContentHash: "abc"},
		}))
	})

	It("treats empty sheets as no entries", func() {
		reader := sheets.NewCorpusReader(fakeRanges{"Ingresos!A:Q": {}, "Egresos!A:Q": {}})
		corpus, err := reader.ReadCorpus(context.Background(), "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(corpus).To(BeEmpty())
	})

	It("fails when a sheet cannot be read", func() {
		reader := sheets.NewCorpusReader(fakeRanges{})
		_, err := reader.ReadCorpus(context.Background(), "u1")
		Expect(err).To(HaveOccurred())
	})
})
