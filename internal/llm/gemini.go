package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiModel     = "gemini-2.5-flash"
	geminiLiteModel = "gemini-2.5-flash-lite"
)

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion      = 0.30
	geminiOutputPricePerMillion     = 2.50
	geminiLiteInputPricePerMillion  = 0.10
	geminiLiteOutputPricePerMillion = 0.40
)

const suggestProductPrompt = `Analyze this photo of a garment that a merchant wants to sell in an online fashion catalog.

Respond in JSON format with these fields:
- name: A short product name suitable for the catalog (garment type, colour, notable detail). Do not include the brand.
- brand: The brand name if a logo or label is visible (empty string if unknown)
- description: One or two sentences describing material, fit and style

Example response:
{"name": "Kemeja Linen Lengan Pendek Putih", "brand": "Uniqlo", "description": "Kemeja linen ringan dengan potongan regular fit. Cocok untuk cuaca panas."}

Respond ONLY with the JSON object, no markdown or other text.`

const videoPromptPrompt = `Write a one-sentence prompt for an AI video generator that turns product photos into a short promotional clip.

Product name: %s
Brand: %s

The clip shows a model wearing the garment. Describe camera movement and setting. Respond with ONLY the prompt sentence, no quotes.`

// GeminiAnalyzer uses Google's Gemini API for product suggestions.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// SuggestProduct implements the Analyzer interface using Gemini.
func (g *GeminiAnalyzer) SuggestProduct(ctx context.Context, imageData []byte, mimeType string) (*SuggestionResult, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("no image provided")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(suggestProductPrompt),
		{InlineData: &genai.Blob{Data: imageData, MIMEType: mimeType}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	suggestion, err := parseProductSuggestion(result.Text())
	if err != nil {
		return nil, err
	}

	usage := usageFrom(result.UsageMetadata, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	log.Info().
		Str("model", geminiModel).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("product suggestion llm call")

	return &SuggestionResult{Suggestion: suggestion, Usage: usage}, nil
}

// SuggestVideoPrompt implements the Analyzer interface using Gemini Lite.
func (g *GeminiAnalyzer) SuggestVideoPrompt(ctx context.Context, name, brand string) (string, error) {
	prompt := fmt.Sprintf(videoPromptPrompt, name, brand)

	result, err := g.client.Models.GenerateContent(ctx, geminiLiteModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini lite call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini lite")
	}

	usage := usageFrom(result.UsageMetadata, geminiLiteInputPricePerMillion, geminiLiteOutputPricePerMillion)
	log.Info().
		Str("model", geminiLiteModel).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("video prompt llm call")

	return cleanPromptText(result.Text()), nil
}

func usageFrom(meta *genai.GenerateContentResponseUsageMetadata, inputPrice, outputPrice float64) Usage {
	if meta == nil {
		return Usage{}
	}
	usage := Usage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
		TotalTokens:  int64(meta.TotalTokenCount),
	}
	usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, inputPrice, outputPrice)
	return usage
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseProductSuggestion(text string) (*ProductSuggestion, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var s ProductSuggestion
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Brand = strings.TrimSpace(s.Brand)
	s.Description = strings.TrimSpace(s.Description)
	if s.Name == "" {
		return nil, fmt.Errorf("response has no product name: %s", jsonStr)
	}
	return &s, nil
}

func cleanPromptText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`\"'")
	return strings.TrimSpace(text)
}
