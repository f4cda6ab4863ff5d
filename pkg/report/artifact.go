// Package report writes the artifacts of a wpdriver run and prints its
// progress to the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/wpdriver/pkg/browser"
)

// Status values of a run.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// RunSummary is everything recorded about one run
type RunSummary struct {
	RunID   string               `json:"run_id"`
	Job     string               `json:"job"`
	Site    string               `json:"site"`
	Status  string               `json:"status"`
	Result  browser.ActionResult `json:"result"`
	LogPath string               `json:"log_path,omitempty"`

	// AuditPDF is set when screenshots were bundled
	AuditPDF string `json:"audit_pdf,omitempty"`
}

// StatusOf classifies a result.
func StatusOf(r browser.ActionResult) string {
	switch {
	case r.Success:
		return StatusSuccess
	case r.Partial():
		return StatusPartialSuccess
	default:
		return StatusFailed
	}
}

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteAll writes result.json and summary.md
func (w *ArtifactWriter) WriteAll(summary *RunSummary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteResultJSON(summary); err != nil {
		return fmt.Errorf("failed to write result JSON: %w", err)
	}

	if err := w.WriteSummaryMarkdown(summary); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}

	return nil
}

// WriteResultJSON writes the full run summary as JSON
func (w *ArtifactWriter) WriteResultJSON(summary *RunSummary) error {
	path := filepath.Join(w.outputDir, "result.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write result JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *RunSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")
	r := summary.Result

	var md strings.Builder

	md.WriteString("# wpdriver Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Job:** %s\n\n", summary.Job))
	md.WriteString(fmt.Sprintf("**Site:** %s\n\n", summary.Site))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", r.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", r.Duration.Round(time.Millisecond)))

	md.WriteString("## Result\n\n")
	if r.Error != nil {
		md.WriteString(fmt.Sprintf("❌ **Error (%s):** %s\n\n", r.Error.Kind, r.Error.Error()))
	} else if r.Success {
		md.WriteString(fmt.Sprintf("✅ **Success:** %s\n\n", r.Message))
	} else {
		md.WriteString(fmt.Sprintf("⚠️ **Partial:** %s\n\n", r.Message))
	}
	if r.URL != "" {
		md.WriteString(fmt.Sprintf("- **Screen:** %s\n", r.URL))
	}
	if r.Editor != browser.EditorUnknown {
		md.WriteString(fmt.Sprintf("- **Editor:** %s\n", r.Editor))
	}
	if r.Screenshot != "" {
		md.WriteString(fmt.Sprintf("- **Screenshot:** `%s`\n", r.Screenshot))
	}
	if r.DOMSnapshot != "" {
		md.WriteString(fmt.Sprintf("- **DOM Snapshot:** `%s`\n", r.DOMSnapshot))
	}
	if summary.AuditPDF != "" {
		md.WriteString(fmt.Sprintf("- **Audit PDF:** `%s`\n", summary.AuditPDF))
	}
	md.WriteString("\n")

	if r.Fields != nil && len(r.Fields.Fields) > 0 {
		md.WriteString("## Fields\n\n")
		for _, f := range r.Fields.Fields {
			status := "✅"
			if !f.Applied {
				status = "❌"
			}
			md.WriteString(fmt.Sprintf("%s `%s`", status, f.Field.Label()))
			if f.Applied && !f.Changed {
				md.WriteString(" (unchanged)")
			}
			md.WriteString("\n")
			if f.Error != nil {
				md.WriteString(fmt.Sprintf("   %s: %s\n", f.Error.Kind, f.Error.Message))
			}
		}
		md.WriteString("\n")
	}

	if len(r.Skipped) > 0 {
		md.WriteString("## Skipped Actions\n\n")
		for _, name := range r.Skipped {
			md.WriteString(fmt.Sprintf("- %s (already in place)\n", name))
		}
		md.WriteString("\n")
	}

	if len(r.Console) > 0 {
		md.WriteString("## Browser Console\n\n")
		for _, c := range r.Console {
			md.WriteString(fmt.Sprintf("- [%s] %s\n", c.Type, c.Text))
		}
		md.WriteString("\n")
	}

	if summary.LogPath != "" {
		md.WriteString(fmt.Sprintf("Log: `%s`\n", summary.LogPath))
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}
