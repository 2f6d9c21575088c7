package ai

import "fmt"

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini" or "ollama"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	// Year the classifier assumes for appointment dates without one
	AssumeYear int
}

// NewClassifierService creates a ClassifierService based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewClassifierService(cfg Config) (ClassifierService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey, cfg.AssumeYear), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.AssumeYear), nil

	default:
		// Default to Gemini if API key is available, otherwise Ollama
		if cfg.GeminiAPIKey != "" {
			return NewGeminiService(cfg.GeminiAPIKey, cfg.AssumeYear), nil
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.AssumeYear), nil
	}
}
