package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaService implements ClassifierService using a local Ollama LLM
type OllamaService struct {
	baseURL    string
	model      string
	assumeYear int
}

// NewOllamaService creates a new Ollama classifier
func NewOllamaService(baseURL, model string, assumeYear int) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{
		baseURL:    baseURL,
		model:      model,
		assumeYear: assumeYear,
	}
}

// ClassifyMessage implements ClassifierService. Ollama is keyed per server,
// so the per-user key override is ignored.
func (o *OllamaService) ClassifyMessage(ctx context.Context, text, _ string) (*Proposal, error) {
	url := o.baseURL + "/api/generate"

	prompt := classifyPrompt(text, time.Now(), o.assumeYear)

	payload := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.2, // Lower temperature for more consistent JSON
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return ParseProposal(result.Response)
}
