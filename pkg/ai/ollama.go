package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaService implements SummarizerService using Ollama local LLM
type OllamaService struct {
	baseURL string
	model   string
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{baseURL: baseURL, model: model}
}

// AnalyzeThread implements SummarizerService
func (o *OllamaService) AnalyzeThread(ctx context.Context, threadText string) (*ThreadAnalysis, error) {
	text, err := o.generate(ctx, buildAnalysisPrompt(threadText), 800)
	if err != nil {
		return nil, err
	}
	return parseAnalysisResponse(text)
}

// GenerateSynonyms expands a search keyword into related CRM terms
func (o *OllamaService) GenerateSynonyms(ctx context.Context, word string) ([]string, error) {
	prompt := fmt.Sprintf(`List related concepts, specific examples and domain terms for the following keyword in a SALES CRM context: "%s"

Goal: broaden a search to words that are closely related in meaning or context, not only strict synonyms.

Rules:
1. Return a JSON array of strings.
2. Return ONLY the JSON array, no other text.
3. At most 15 of the most relevant words.`, word)

	text, err := o.generate(ctx, prompt, 200)
	if err != nil {
		return nil, err
	}
	return parseSynonymsResponse(text)
}

func (o *OllamaService) generate(ctx context.Context, prompt string, numPredict int) (string, error) {
	url := o.baseURL + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.2,
			"num_predict": numPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Response, nil
}
