package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

// GeminiService implements SummarizerService against the Gemini REST API
type GeminiService struct {
	ApiKey string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{ApiKey: apiKey}
}

// AnalyzeThread implements SummarizerService
func (g *GeminiService) AnalyzeThread(ctx context.Context, threadText string) (*ThreadAnalysis, error) {
	text, err := g.generate(ctx, buildAnalysisPrompt(threadText))
	if err != nil {
		return nil, err
	}
	return parseAnalysisResponse(text)
}

// GenerateSynonyms expands a search keyword into related CRM terms
func (g *GeminiService) GenerateSynonyms(ctx context.Context, word string) ([]string, error) {
	prompt := fmt.Sprintf(`List related concepts, specific examples and domain terms for the following keyword in a SALES CRM context: "%s"

Goal: broaden a search to words that are closely related in meaning or context, not only strict synonyms.

Example:
- Input "money" -> Output: ["invoice", "pricing", "payment", "billing", "budget", "cost", "discount", "renewal"]

Rules:
1. Return a JSON array of strings.
2. Return ONLY the JSON array, no other text.
3. At most 15 of the most relevant words.`, word)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseSynonymsResponse(text)
}

func (g *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	url := geminiEndpoint + "?key=" + g.ApiKey

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	if c, ok := result["candidates"].([]interface{}); ok && len(c) > 0 {
		if cand, ok := c[0].(map[string]interface{}); ok {
			if content, ok := cand["content"].(map[string]interface{}); ok {
				if parts, ok := content["parts"].([]interface{}); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]interface{}); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}
	return "", fmt.Errorf("no content returned")
}
