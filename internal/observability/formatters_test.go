package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

func TestPrintPipelineResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	id := uuid.New()
	p.PrintPipelineResult(&pipeline.Result{
		FetchResult:   &pipeline.StageResult{Stage: pipeline.StageFetch, Status: pipeline.StatusSuccess, DurationMs: 120},
		ExtractResult: &pipeline.StageResult{Stage: pipeline.StageExtract, Status: pipeline.StatusSuccess, DurationMs: 900},
		PersistResult: &pipeline.StageResult{
			Stage:  pipeline.StagePersist,
			Status: pipeline.StatusSaved,
			Data:   &pipeline.PersistOutput{TruckID: &id, Action: dedup.ActionCreate, Payload: types.Truck{Name: "Taco Loco"}},
		},
		OverallStatus: pipeline.StatusSuccess,
	})
	output := buf.String()

	assert.Contains(t, output, "PIPELINE RESULT")
	assert.Contains(t, output, "fetch    Success (120ms)")
	assert.Contains(t, output, "Taco Loco")
	assert.Contains(t, output, id.String())
	assert.Contains(t, output, "create")
}

func TestPrintPipelineResult_Failure(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPipelineResult(&pipeline.Result{
		FetchResult:   &pipeline.StageResult{Stage: pipeline.StageFetch, Status: pipeline.StatusError, Error: "HTTP 404"},
		OverallStatus: pipeline.StatusError,
	})

	assert.Contains(t, buf.String(), "HTTP 404")
	assert.NotContains(t, buf.String(), "Action:")
}

func TestPrintDuplicateResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	matches := make([]dedup.Match, 7)
	for i := range matches {
		matches[i] = dedup.Match{
			Truck:          types.Truck{Name: fmt.Sprintf("Truck %d", i)},
			Similarity:     0.95,
			MatchedFields:  []string{dedup.FieldName, dedup.FieldLocation},
			Confidence:     dedup.ConfidenceHigh,
			Recommendation: dedup.RecommendMerge,
		}
	}
	p.PrintDuplicateResult(&dedup.Result{IsDuplicate: true, Matches: matches, Action: dedup.ActionMerge, Reason: "close"})
	output := buf.String()

	assert.Contains(t, output, "DUPLICATE CHECK")
	assert.Contains(t, output, "#1  Truck 0")
	assert.Contains(t, output, "95% high/merge")
	assert.Contains(t, output, "... and 2 more")
	assert.NotContains(t, output, "Truck 6")
}

func TestPrintDiscoveryResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDiscoveryResult(&discovery.Result{
		URLsDiscovered: 4,
		URLsStored:     1,
		URLsDuplicates: 3,
		StoredURLs:     []string{"https://tacoloco.com"},
		Errors:         []string{"search failed"},
	})
	output := buf.String()

	assert.Contains(t, output, "Discovered: 4")
	assert.Contains(t, output, "https://tacoloco.com")
	assert.Contains(t, output, "! search failed")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestNilInputsPrintNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintPipelineResult(nil)
	p.PrintDuplicateResult(nil)
	p.PrintDiscoveryResult(nil)
	assert.Empty(t, buf.String())
}
