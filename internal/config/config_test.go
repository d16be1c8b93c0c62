package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"facturas/internal/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var keys = []string{
	"AI_PROVIDER", "AI_MAX_RETRIES", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_TEMPERATURE",
	"GEMINI_API_KEY", "GEMINI_MODEL", "OCR_ENGINE", "TESSERACT_LANGUAGE",
	"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_LOCATION", "DOCUMENT_AI_PROCESSOR_ID",
	"GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS",
	"INVOICE_DB_PATH", "GOOGLE_SHEET_URL", "CATEGORY_TAXONOMY_FILE",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_TIME_FORMAT", "LOG_OUTPUT",
}

func setenv(pairs map[string]string) {
	for k, v := range pairs {
		Expect(os.Setenv(k, v)).To(Succeed())
	}
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		saved := map[string]string{}
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok {
				saved[k] = v
			}
			os.Unsetenv(k)
		}
		DeferCleanup(func() {
			for _, k := range keys {
				os.Unsetenv(k)
			}
			setenv(saved)
		})
	})

	It("applies defaults", func() {
		setenv(map[string]string{"OPENAI_API_KEY": "sk-test"})

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.AIProvider).To(Equal("openai"))
		Expect(cfg.OCREngine).To(Equal("tesseract"))
		Expect(cfg.TesseractLanguage).To(Equal("spa"))
		Expect(cfg.AIMaxRetries).To(Equal(1))
		Expect(cfg.OpenAITemperature).To(BeNumerically("~", 0.1, 0.0001))
		Expect(cfg.InvoiceDBPath).To(Equal("facturas.db"))
		Expect(cfg.GetLoggerConfig().Output).To(Equal("stderr"))
	})

	It("requires the key of the selected provider", func() {
		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("OPENAI_API_KEY")))

		setenv(map[string]string{"AI_PROVIDER": "gemini"})
		_, err = config.Load()
		Expect(err).To(MatchError(ContainSubstring("GEMINI_API_KEY")))
	})

	It("runs without AI when the provider is none", func() {
		setenv(map[string]string{"AI_PROVIDER": "none", "OCR_ENGINE": "none"})
		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.GeneratorConfig().Provider).To(Equal("none"))
		Expect(cfg.EngineConfig().Engine).To(Equal("none"))
	})

	It("requires Document AI settings for that engine", func() {
		setenv(map[string]string{"AI_PROVIDER": "none", "OCR_ENGINE": "documentai", "GOOGLE_CLOUD_PROJECT": "p"})
		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("DOCUMENT_AI_PROCESSOR_ID")))
	})

	It("rejects unknown engines and malformed numbers", func() {
		setenv(map[string]string{"AI_PROVIDER": "none", "OCR_ENGINE": "abbyy"})
		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("OCR_ENGINE")))

		setenv(map[string]string{"OCR_ENGINE": "none", "AI_MAX_RETRIES": "dos"})
		_, err = config.Load()
		Expect(err).To(MatchError(ContainSubstring("AI_MAX_RETRIES")))
	})

	It("prefers inline credentials over the key file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "sa.json")
		Expect(os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600)).To(Succeed())
		setenv(map[string]string{
			"AI_PROVIDER":                    "none",
			"GOOGLE_CREDENTIALS":             `{"inline":true}`,
			"GOOGLE_APPLICATION_CREDENTIALS": path,
		})

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		data, err := cfg.GoogleCredentialsJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"inline":true}`))

		Expect(os.Unsetenv("GOOGLE_CREDENTIALS")).To(Succeed())
		cfg, err = config.Load()
		Expect(err).NotTo(HaveOccurred())
		data, err = cfg.GoogleCredentialsJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"type":"service_account"}`))
	})
})
