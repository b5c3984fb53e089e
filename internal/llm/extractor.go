package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/foodtruck-agent/internal/prompts"
)

// ExtractionResult is the decoded extractor answer.
type ExtractionResult struct {
	Data       map[string]any
	TokensUsed int
}

// Extractor turns page content into loosely-typed food truck data.
type Extractor struct {
	client          Client
	tier            ModelTier
	maxContentChars int
}

// NewExtractor creates an extractor. maxContentChars <= 0 disables truncation.
func NewExtractor(client Client, tier ModelTier, maxContentChars int) *Extractor {
	return &Extractor{client: client, tier: tier, maxContentChars: maxContentChars}
}

// Extract sends content to the model and decodes its JSON answer.
func (e *Extractor) Extract(ctx context.Context, content, sourceURL string) (*ExtractionResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ParseError{Message: "no content to extract from"}
	}
	if e.maxContentChars > 0 && len(content) > e.maxContentChars {
		content = truncateRunes(content, e.maxContentChars)
	}

	system := prompts.MustGet(prompts.ExtractionFile, prompts.KeyFoodTruckSys)
	prompt := prompts.Format(prompts.MustGet(prompts.ExtractionFile, prompts.KeyExtractTruck), map[string]string{
		"SourceURL": sourceURL,
		"Content":   content,
	})

	gen, err := e.client.GenerateJSON(ctx, system, prompt, e.tier)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(gen.Text), &data); err != nil {
		return nil, &ParseError{Message: "model answer is not a JSON object", Cause: err}
	}
	if len(data) == 0 {
		return nil, ErrEmptyExtraction
	}
	return &ExtractionResult{Data: data, TokensUsed: gen.TokensUsed}, nil
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
