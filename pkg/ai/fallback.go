package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService implements smart AI provider routing with fallback
// - Thread analysis: Gemini first (better structured output), fallback to Ollama
// - Synonyms: Gemini first, fallback to Ollama
type FallbackService struct {
	gemini SummarizerService
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini SummarizerService, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// AnalyzeThread tries Gemini first (better structured JSON), falls back to
// Ollama on quota exhaustion or any other failure
func (f *FallbackService) AnalyzeThread(ctx context.Context, threadText string) (*ThreadAnalysis, error) {
	if f.gemini != nil {
		result, err := f.gemini.AnalyzeThread(ctx, threadText)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) {
			log.Printf("[AI] Gemini quota exhausted: %v, falling back to Ollama", err)
		} else {
			log.Printf("[AI] Gemini error: %v, falling back to Ollama", err)
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.AnalyzeThread(ctx, threadText)
		if err == nil {
			return result, nil
		}

		if isConnectionError(err) && f.gemini != nil {
			log.Printf("[AI] Ollama connection failed: %v, retrying Gemini", err)
			return f.gemini.AnalyzeThread(ctx, threadText)
		}

		return nil, fmt.Errorf("ollama thread analysis failed: %w", err)
	}

	return nil, fmt.Errorf("no AI provider available for thread analysis")
}

// GenerateSynonyms tries Gemini first, falls back to Ollama
func (f *FallbackService) GenerateSynonyms(ctx context.Context, word string) ([]string, error) {
	if f.gemini != nil {
		result, err := f.gemini.GenerateSynonyms(ctx, word)
		if err == nil {
			return result, nil
		}

		if isQuotaError(err) {
			log.Printf("[AI] Gemini quota exhausted for synonyms: %v, falling back to Ollama", err)
		} else {
			log.Printf("[AI] Gemini error for synonyms: %v, falling back to Ollama", err)
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.GenerateSynonyms(ctx, word)
		if err == nil {
			return result, nil
		}

		if isConnectionError(err) && f.gemini != nil {
			log.Printf("[AI] Ollama connection failed for synonyms: %v, retrying Gemini", err)
			return f.gemini.GenerateSynonyms(ctx, word)
		}

		return nil, fmt.Errorf("ollama synonyms generation failed: %w", err)
	}

	return nil, fmt.Errorf("no AI provider available for synonyms generation")
}
