// Package observability provides boxed, human-readable summaries for the CLI's --pretty mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/foodtruck-agent/internal/dedup"
	"github.com/jonathan/foodtruck-agent/internal/discovery"
	"github.com/jonathan/foodtruck-agent/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for pretty mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintPipelineResult outputs one line per stage followed by the persisted outcome.
func (p *Printer) PrintPipelineResult(result *pipeline.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for _, sr := range []*pipeline.StageResult{result.FetchResult, result.ExtractResult, result.PersistResult} {
		if sr == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("%-8s %s (%dms)\n", sr.Stage, sr.Status, sr.DurationMs))
		if sr.Error != "" {
			sb.WriteString(fmt.Sprintf("         %s\n", sr.Error))
		}
	}

	if out := result.Persisted(); out != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Truck:    %s\n", out.Payload.Name))
		sb.WriteString(fmt.Sprintf("Action:   %s\n", out.Action))
		if out.TruckID != nil {
			sb.WriteString(fmt.Sprintf("ID:       %s\n", out.TruckID))
		}
		if out.Reason != "" {
			sb.WriteString(fmt.Sprintf("Reason:   %s\n", out.Reason))
		}
	}
	sb.WriteString(fmt.Sprintf("\nOverall:  %s", result.OverallStatus))

	p.printBox("PIPELINE RESULT", sb.String())
}

// PrintDuplicateResult outputs the decision and the top matches with field scores.
func (p *Printer) PrintDuplicateResult(result *dedup.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Action:   %s\n", result.Action))
	sb.WriteString(fmt.Sprintf("Reason:   %s\n", result.Reason))

	if len(result.Matches) > 0 {
		sb.WriteString("\n")
		count := min(len(result.Matches), maxItemsToShow)
		for i := 0; i < count; i++ {
			m := result.Matches[i]
			sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, m.Truck.Name))
			sb.WriteString(fmt.Sprintf("    %.0f%% %s/%s\n", m.Similarity*100, m.Confidence, m.Recommendation))
			if len(m.MatchedFields) > 0 {
				sb.WriteString(fmt.Sprintf("    Fields: %s\n", strings.Join(m.MatchedFields, ", ")))
			}
		}
		if len(result.Matches) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(result.Matches)-maxItemsToShow))
		}
	}

	p.printBox("DUPLICATE CHECK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDiscoveryResult outputs run counters, the first stored URLs and any errors.
func (p *Printer) PrintDiscoveryResult(result *discovery.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Discovered: %d\n", result.URLsDiscovered))
	sb.WriteString(fmt.Sprintf("Stored:     %d\n", result.URLsStored))
	sb.WriteString(fmt.Sprintf("Duplicates: %d\n", result.URLsDuplicates))

	if len(result.StoredURLs) > 0 {
		sb.WriteString("\nNew URLs:\n")
		count := min(len(result.StoredURLs), maxItemsToShow)
		for _, u := range result.StoredURLs[:count] {
			sb.WriteString(fmt.Sprintf("  • %s\n", u))
		}
		if len(result.StoredURLs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.StoredURLs)-maxItemsToShow))
		}
	}

	if len(result.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\nErrors (%d):\n", len(result.Errors)))
		count := min(len(result.Errors), 3)
		for _, e := range result.Errors[:count] {
			sb.WriteString(fmt.Sprintf("  ! %s\n", e))
		}
	}

	p.printBox("DISCOVERY RUN", strings.TrimSuffix(sb.String(), "\n"))
}
