package pipeline

import (
	"context"
	"errors"

	"github.com/jonathan/foodtruck-agent/internal/llm"
	"github.com/jonathan/foodtruck-agent/internal/schemas"
)

// Extractor turns content into loosely-typed food truck data.
type Extractor interface {
	Extract(ctx context.Context, content, sourceURL string) (*llm.ExtractionResult, error)
}

// ExtractOutput is the raw structured data handed to the Persist stage.
type ExtractOutput struct {
	Data      map[string]any `json:"data"`
	SourceURL string         `json:"source_url,omitempty"`
}

// ExtractStage runs the AI extractor over fetched content.
type ExtractStage struct {
	extractor Extractor
}

// NewExtractStage creates an ExtractStage.
func NewExtractStage(extractor Extractor) *ExtractStage {
	return &ExtractStage{extractor: extractor}
}

// Run executes the stage. Data is an *ExtractOutput on success. Schema drift in the
// answer is reported under the schema_warnings detail and does not fail the stage.
func (s *ExtractStage) Run(ctx context.Context, content, sourceURL string) StageResult {
	return timed(StageExtract, func() StageResult {
		res, err := s.extractor.Extract(ctx, content, sourceURL)
		if err != nil {
			return errorResult(StageExtract, err)
		}
		if res == nil || len(res.Data) == 0 {
			return errorResult(StageExtract, llm.ErrEmptyExtraction)
		}

		details := map[string]any{}
		if res.TokensUsed > 0 {
			details["tokens_used"] = res.TokensUsed
		}
		if err := schemas.ValidateExtraction(res.Data); err != nil {
			var ve *schemas.ValidationError
			if !errors.As(err, &ve) {
				return errorResult(StageExtract, err)
			}
			details["schema_warnings"] = ve.Messages()
		}

		return StageResult{
			Status:  StatusSuccess,
			Data:    &ExtractOutput{Data: res.Data, SourceURL: sourceURL},
			Details: details,
		}
	})
}
