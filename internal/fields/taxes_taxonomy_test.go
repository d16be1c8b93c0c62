package fields_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/fields"
	"facturas/pkg/models"
)

var _ = Describe("ExtractTaxes", func() {
	It("reads IVA and IIBB lines and skips tax status lines", func() {
		taxes := fields.ExtractTaxes(facturaA)
		Expect(taxes).To(HaveLen(2))

		Expect(taxes[0].Type).To(Equal(models.TaxIVA))
		Expect(taxes[0].Name).To(Equal("IVA 21%"))
		Expect(taxes[0].Rate).To(Equal(21.0))
		Expect(taxes[0].Amount.StringFixed(2)).To(Equal("3150.00"))
		Expect(taxes[0].ShouldCount).To(BeTrue())

		Expect(taxes[1].Type).To(Equal(models.TaxIIBB))
		Expect(taxes[1].Rate).To(Equal(3.0))
		Expect(taxes[1].Amount.StringFixed(2)).To(Equal("450.00"))
	})

	It("defaults the IVA rate to 21 and keeps printed fractional rates", func() {
		taxes := fields.ExtractTaxes("I.V.A.: 2.100,00\nIVA 10,5%: 1.050,00")
		Expect(taxes).To(HaveLen(2))
		Expect(taxes[0].Rate).To(Equal(fields.DefaultIVARate))
		Expect(taxes[1].Rate).To(Equal(10.5))
		Expect(taxes[1].Name).To(Equal("IVA 10.5%"))
	})

	It("uses the fixed Ganancias rate and no rate for unqualified IIBB", func() {
		taxes := fields.ExtractTaxes("Retención Ganancias: 3.500,00\nIngresos Brutos: 700,00")
		Expect(taxes).To(HaveLen(2))
		Expect(taxes[0].Type).To(Equal(models.TaxGanancias))
		Expect(taxes[0].Rate).To(Equal(fields.GananciasRate))
		Expect(taxes[1].Type).To(Equal(models.TaxIIBB))
		Expect(taxes[1].Rate).To(BeZero())
	})

	It("classifies generic withholdings and collections", func() {
		taxes := fields.ExtractTaxes("Retención SUSS 1.200,00\nPercepción IVA 3%: 300,00")
		Expect(taxes).To(HaveLen(2))
		Expect(taxes[0].Type).To(Equal(models.TaxRetencion))
		Expect(taxes[1].Type).To(Equal(models.TaxPercepcion))
		Expect(taxes[1].Rate).To(Equal(3.0))
	})

	It("does not attribute the same amount twice", func() {
		taxes := fields.ExtractTaxes("Retención Ganancias: 1.000,00\nRetención: 1.000,00")
		Expect(taxes).To(HaveLen(1))
		Expect(taxes[0].Type).To(Equal(models.TaxGanancias))
	})

	It("ignores totals that mention iva", func() {
		Expect(fields.ExtractTaxes("Subtotal sin IVA 5.000,00\nTotal con IVA 6.050,00")).To(BeEmpty())
	})
})

var _ = Describe("Tax amounts", func() {
	It("ignores registration numbers printed next to a tax name", func() {
		text := "Ingresos Brutos: 901-123456-7\nIIBB 30712345678\nInicio de actividades: 01/03/2015\nIVA 21%: $2.100,00"
		taxes := fields.ExtractTaxes(text)
		Expect(taxes).To(HaveLen(1))
		Expect(taxes[0].Type).To(Equal(models.TaxIVA))
		Expect(taxes[0].Amount.StringFixed(2)).To(Equal("2100.00"))
	})

	It("requires cents on a tax amount printed without a currency sign", func() {
		Expect(fields.ExtractTaxes("Ingresos Brutos: 9011234")).To(BeEmpty())
		taxes := fields.ExtractTaxes("Percepción IIBB 3%: $ 450")
		Expect(taxes).To(HaveLen(1))
		Expect(taxes[0].Amount.StringFixed(2)).To(Equal("450.00"))
	})

	It("keeps equal amounts of the same family at different rates", func() {
		taxes := fields.ExtractTaxes("IVA 21%: $1.000,00\nIVA 10,5%: $1.000,00")
		Expect(taxes).To(HaveLen(2))
		Expect(taxes[0].Rate).To(Equal(21.0))
		Expect(taxes[1].Rate).To(Equal(10.5))
	})

	It("skips a line repeating an earlier tax", func() {
		taxes := fields.ExtractTaxes("IVA 21%: $1.000,00\nIVA 21%: $1.000,00")
		Expect(taxes).To(HaveLen(1))
	})
})

var _ = Describe("Taxonomy", func() {
	It("classifies by keyword counts with ties going to income", func() {
		Expect(fields.Classify("Factura de compra a proveedor")).To(Equal(models.TypeExpense))
		Expect(fields.Classify("Venta al cliente")).To(Equal(models.TypeIncome))
		Expect(fields.Classify("compra venta")).To(Equal(models.TypeIncome))
		Expect(fields.Classify("")).To(Equal(models.TypeIncome))
	})

	It("categorizes with first-match-wins within the type", func() {
		Expect(fields.Categorize("Servicio de mantenimiento", models.TypeIncome)).To(Equal("Servicios"))
		Expect(fields.Categorize("Venta de productos", models.TypeIncome)).To(Equal("Ventas"))
		Expect(fields.Categorize("Liquidación de sueldo y aguinaldo", models.TypeExpense)).To(Equal("Sueldos"))
		Expect(fields.Categorize("Factura luz Edenor", models.TypeExpense)).To(Equal("Gastos Operativos"))
		Expect(fields.Categorize("Compra de insumos", models.TypeExpense)).To(Equal("Compras"))
		Expect(fields.Categorize("Pago monotributo", models.TypeExpense)).To(Equal("Impuestos"))
	})

	It("does not read tax boilerplate as a tax payment", func() {
		text := `COMERCIAL DEMO SA
Condición frente al IVA: Responsable Monotributo
Ingresos Brutos: 901-123456-7
Compra de insumos de oficina
Retención Ganancias: no corresponde
Comprobante autorizado por AFIP. CAE: 74123456789012`
		Expect(fields.Categorize(text, models.TypeExpense)).To(Equal("Compras"))
		Expect(fields.Categorize("Ingresos Brutos: 901-123456-7\nAFIP", models.TypeExpense)).To(Equal("Gastos Operativos"))
	})

	It("falls back to the last category of the type", func() {
		Expect(fields.Categorize("xyz", models.TypeIncome)).To(Equal("Ventas"))
		Expect(fields.Categorize("xyz", models.TypeExpense)).To(Equal("Gastos Operativos"))
	})

	It("loads custom taxonomies and rejects incomplete ones", func() {
		t, err := fields.ParseTaxonomy([]byte("income:\n  - name: Cuotas\n    keywords: [cuota]\nexpense:\n  - name: Otros\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Categorize("cuota social", models.TypeIncome)).To(Equal("Cuotas"))
		Expect(t.Has(models.TypeExpense, "Otros")).To(BeTrue())

		_, err = fields.ParseTaxonomy([]byte("income: []\n"))
		Expect(err).To(HaveOccurred())
	})
})
