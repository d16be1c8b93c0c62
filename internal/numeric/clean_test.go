package numeric_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/numeric"
)

func TestNumeric(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Numeric Suite")
}

var _ = Describe("Clean", func() {
	DescribeTable("valid numbers",
		func(raw, want string) {
			d, ok := numeric.Clean(raw)
			Expect(ok).To(BeTrue())
			Expect(numeric.Format(d)).To(Equal(want))
		},
		Entry("argentine thousands and decimals", "1.234,56", "1234.56"),
		Entry("english thousands and decimals", "1,234.56", "1234.56"),
		Entry("comma decimal only", "150,50", "150.50"),
		Entry("dot decimal only", "150.50", "150.50"),
		Entry("dot thousands only", "15.000", "15000.00"),
		Entry("comma thousands only", "15,000", "15000.00"),
		Entry("repeated dot thousands", "1.234.567", "1234567.00"),
		Entry("repeated thousands with decimal tail", "1.234.567,8", "1234567.80"),
		Entry("currency symbol and spaces", " $ 3.150,00 ", "3150.00"),
		Entry("plain integer", "4500", "4500.00"),
		Entry("trailing separator", "100.", "100.00"),
	)

	DescribeTable("rejected values",
		func(raw string) {
			_, ok := numeric.Clean(raw)
			Expect(ok).To(BeFalse())
		},
		Entry("empty", ""),
		Entry("letters", "abc"),
		Entry("zero", "0,00"),
		Entry("negative", "-1.500,00"),
		Entry("negative with symbol", "$ -20"),
	)
})
