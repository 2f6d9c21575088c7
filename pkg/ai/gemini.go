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

// GeminiService implements ClassifierService against the Generative
// Language API
type GeminiService struct {
	apiKey     string // server-wide default key
	assumeYear int
}

// NewGeminiService creates a new Gemini classifier
func NewGeminiService(apiKey string, assumeYear int) *GeminiService {
	return &GeminiService{apiKey: apiKey, assumeYear: assumeYear}
}

// ClassifyMessage asks Gemini for a structured proposal for one message.
// apiKeyOverride, when set, is the user's own key and takes precedence over
// the server key.
func (g *GeminiService) ClassifyMessage(ctx context.Context, text, apiKeyOverride string) (*Proposal, error) {
	key := g.apiKey
	if apiKeyOverride != "" {
		key = apiKeyOverride
	}
	if key == "" {
		return nil, fmt.Errorf("no Gemini API key configured")
	}

	// Use gemini-2.5-flash for fast classification
	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=" + key

	prompt := classifyPrompt(text, time.Now(), g.assumeYear)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}

	// Pull the generated text out of the candidates
	if c, ok := result["candidates"].([]interface{}); ok && len(c) > 0 {
		if cand, ok := c[0].(map[string]interface{}); ok {
			if content, ok := cand["content"].(map[string]interface{}); ok {
				if parts, ok := content["parts"].([]interface{}); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]interface{}); ok {
						if text, ok := part["text"].(string); ok {
							return ParseProposal(text)
						}
					}
				}
			}
		}
	}
	return nil, fmt.Errorf("no classification returned")
}
