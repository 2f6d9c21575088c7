package ai

import "context"

// ClassifierService is the interface for message classification.
// Implement this interface to add new AI providers (Gemini, Ollama, etc.).
//
// apiKeyOverride carries a per-user API key; providers that are keyed per
// server (Ollama) ignore it, Gemini prefers it over the server-wide key.
type ClassifierService interface {
	ClassifyMessage(ctx context.Context, text, apiKeyOverride string) (*Proposal, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
