package llm

import "context"

// ProductSuggestion is a suggested listing for a garment photo.
type ProductSuggestion struct {
	Name        string `json:"name"`        // Product name suitable for the catalog
	Brand       string `json:"brand"`       // Empty if not identifiable
	Description string `json:"description"` // One or two sentences
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// SuggestionResult contains the suggestion and usage information.
type SuggestionResult struct {
	Suggestion *ProductSuggestion
	Usage      Usage
}

// Analyzer suggests product data from images.
type Analyzer interface {
	// SuggestProduct looks at a garment photo and suggests a name and brand.
	SuggestProduct(ctx context.Context, imageData []byte, mimeType string) (*SuggestionResult, error)
	// SuggestVideoPrompt writes a short prompt for a promotional video.
	SuggestVideoPrompt(ctx context.Context, name, brand string) (string, error)
}
