package main

import (
	"context"
	"fmt"
	"os"

	"github.com/raine/telegram-tryon-bot/config"
	"github.com/raine/telegram-tryon-bot/internal/images"
	"github.com/raine/telegram-tryon-bot/internal/llm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path-or-url>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required\n")
		os.Exit(1)
	}
	config.LoadEnvFile()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	blob, err := images.NewRefResolver(nil, nil).Fetch(ctx, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	analyzer, err := llm.NewGeminiAnalyzer(ctx, apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Gemini analyzer: %v\n", err)
		os.Exit(1)
	}

	res, err := analyzer.SuggestProduct(ctx, blob.Data, blob.ContentType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := res.Suggestion
	fmt.Printf("Name:        %s\n", s.Name)
	fmt.Printf("Brand:       %s\n", s.Brand)
	fmt.Printf("Description: %s\n", s.Description)
	fmt.Printf("\nTokens: %d in, %d out, $%.6f\n", res.Usage.InputTokens, res.Usage.OutputTokens, res.Usage.CostUSD)

	if s.Name != "" {
		prompt, err := analyzer.SuggestVideoPrompt(ctx, s.Name, s.Brand)
		if err == nil {
			fmt.Printf("Video prompt: %s\n", prompt)
		}
	}
}
