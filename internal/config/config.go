package config

import (
	"fmt"
	"os"
	"strconv"

	"facturas/internal/aivalidate"
	"facturas/internal/logger"
	"facturas/internal/textextract"
)

type Config struct {
	// AI Configuration
	AIProvider        string
	AIMaxRetries      int
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32
	GeminiAPIKey      string
	GeminiModel       string

	// OCR Configuration
	OCREngine         string
	TesseractLanguage string

	// Google Cloud Configuration
	GoogleCloudProject           string
	GoogleCloudLocation          string
	DocumentAIProcessorID        string
	GoogleCredentials            string
	GoogleApplicationCredentials string

	// Storage Configuration
	InvoiceDBPath  string
	GoogleSheetURL string

	// Category taxonomy override (YAML)
	CategoryTaxonomyFile string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		AIProvider:                   getEnv("AI_PROVIDER", aivalidate.ProviderOpenAI),
		OpenAIAPIKey:                 getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                  getEnv("OPENAI_MODEL", ""),
		GeminiAPIKey:                 getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                  getEnv("GEMINI_MODEL", aivalidate.DefaultGeminiModel),
		OCREngine:                    getEnv("OCR_ENGINE", textextract.EngineTesseract),
		TesseractLanguage:            getEnv("TESSERACT_LANGUAGE", "spa"),
		GoogleCloudProject:           getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:          getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:        getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleCredentials:            getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		InvoiceDBPath:                getEnv("INVOICE_DB_PATH", "facturas.db"),
		GoogleSheetURL:               getEnv("GOOGLE_SHEET_URL", ""),
		CategoryTaxonomyFile:         getEnv("CATEGORY_TAXONOMY_FILE", ""),
		LogLevel:                     getEnv("LOG_LEVEL", "info"),
		LogFormat:                    getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:                getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                    getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.OpenAITemperature, err = getFloat("OPENAI_TEMPERATURE", 0.1); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.AIMaxRetries, err = getInt("AI_MAX_RETRIES", 1); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.AIProvider {
	case aivalidate.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=%s", c.AIProvider)
		}
	case aivalidate.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=%s", c.AIProvider)
		}
	case aivalidate.ProviderNone:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of %s, %s, %s", aivalidate.ProviderOpenAI, aivalidate.ProviderGemini, aivalidate.ProviderNone)
	}

	switch c.OCREngine {
	case textextract.EngineTesseract, textextract.EngineNone, textextract.EngineVision:
	case textextract.EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when OCR_ENGINE=%s", c.OCREngine)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when OCR_ENGINE=%s", c.OCREngine)
		}
	default:
		return fmt.Errorf("OCR_ENGINE must be one of %s, %s, %s, %s",
			textextract.EngineTesseract, textextract.EngineVision, textextract.EngineDocumentAI, textextract.EngineNone)
	}

	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if c.AIMaxRetries < 0 {
		return fmt.Errorf("AI_MAX_RETRIES must not be negative")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// EngineConfig returns the OCR engine settings.
func (c *Config) EngineConfig() textextract.EngineConfig {
	return textextract.EngineConfig{
		Engine:            c.OCREngine,
		TesseractLanguage: c.TesseractLanguage,
		ProjectID:         c.GoogleCloudProject,
		Location:          c.GoogleCloudLocation,
		ProcessorID:       c.DocumentAIProcessorID,
		CredentialsJSON:   c.GoogleCredentials,
		CredentialsFile:   c.GoogleApplicationCredentials,
	}
}

// GeneratorConfig returns the AI provider settings.
func (c *Config) GeneratorConfig() aivalidate.GeneratorConfig {
	return aivalidate.GeneratorConfig{
		Provider:     c.AIProvider,
		Temperature:  c.OpenAITemperature,
		MaxRetries:   c.AIMaxRetries,
		OpenAIAPIKey: c.OpenAIAPIKey,
		OpenAIModel:  c.OpenAIModel,
		GeminiAPIKey: c.GeminiAPIKey,
		GeminiModel:  c.GeminiModel,
	}
}

// GoogleCredentialsJSON returns the service account key: the inline
// GOOGLE_CREDENTIALS when set, otherwise the GOOGLE_APPLICATION_CREDENTIALS file.
func (c *Config) GoogleCredentialsJSON() ([]byte, error) {
	if c.GoogleCredentials != "" {
		return []byte(c.GoogleCredentials), nil
	}
	if c.GoogleApplicationCredentials != "" {
		data, err := os.ReadFile(c.GoogleApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float32) (float32, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return float32(f), nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
