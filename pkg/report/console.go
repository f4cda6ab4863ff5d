package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/entrhq/wpdriver/pkg/browser"
	"github.com/entrhq/wpdriver/pkg/logging"
)

// Printer writes run progress and the final summary to a terminal
type Printer struct {
	level  logging.Level
	writer io.Writer
	color  bool

	stepCount int
}

// ANSI color codes
const (
	colorReset     = "\033[0m"
	colorCyan      = "\033[36m"
	colorSalmon    = "\033[38;5;217m"
	colorYellow    = "\033[33m"
	colorRed       = "\033[31m"
	colorGray      = "\033[90m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
	colorBoldWhite = "\033[1;37m"
)

// NewPrinter creates a printer writing colored output to stdout
func NewPrinter(level logging.Level) *Printer {
	return &Printer{level: level, writer: os.Stdout, color: true}
}

// NewPlainPrinter writes to w without color codes
func NewPlainPrinter(level logging.Level, w io.Writer) *Printer {
	return &Printer{level: level, writer: w}
}

func (p *Printer) c(code string) string {
	if !p.color {
		return ""
	}
	return code
}

// Header prints a prominent header message
func (p *Printer) Header(message string) {
	if p.level >= logging.LevelNormal {
		rule := strings.Repeat("=", 70)
		fmt.Fprintf(p.writer, "\n%s%s%s\n", p.c(colorBoldWhite), rule, p.c(colorReset))
		fmt.Fprintf(p.writer, "%s  %s%s\n", p.c(colorBoldWhite), message, p.c(colorReset))
		fmt.Fprintf(p.writer, "%s%s%s\n", p.c(colorBoldWhite), rule, p.c(colorReset))
	}
}

// Step prints a numbered step
func (p *Printer) Step(message string) {
	if p.level >= logging.LevelNormal {
		p.stepCount++
		fmt.Fprintf(p.writer, "\n%s[%d] %s%s\n", p.c(colorCyan), p.stepCount, message, p.c(colorReset))
	}
}

// Successf prints a success message with checkmark
func (p *Printer) Successf(format string, args ...interface{}) {
	if p.level >= logging.LevelNormal {
		fmt.Fprintf(p.writer, "%s✓ %s%s\n", p.c(colorBoldGreen), fmt.Sprintf(format, args...), p.c(colorReset))
	}
}

// Infof prints an informational message
func (p *Printer) Infof(format string, args ...interface{}) {
	if p.level >= logging.LevelNormal {
		fmt.Fprintf(p.writer, "%s%s%s\n", p.c(colorSalmon), fmt.Sprintf(format, args...), p.c(colorReset))
	}
}

// Warningf prints a warning message
func (p *Printer) Warningf(format string, args ...interface{}) {
	fmt.Fprintf(p.writer, "%s⚠ Warning: %s%s\n", p.c(colorYellow), fmt.Sprintf(format, args...), p.c(colorReset))
}

// Errorf prints an error message
func (p *Printer) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(p.writer, "%s✗ Error: %s%s\n", p.c(colorBoldRed), fmt.Sprintf(format, args...), p.c(colorReset))
}

// Verbosef prints detailed information (only in verbose mode)
func (p *Printer) Verbosef(format string, args ...interface{}) {
	if p.level >= logging.LevelVerbose {
		fmt.Fprintf(p.writer, "%s→ %s%s\n", p.c(colorGray), fmt.Sprintf(format, args...), p.c(colorReset))
	}
}

// Summary prints the final run summary. It is shown at every level.
func (p *Printer) Summary(summary *RunSummary) {
	r := summary.Result
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(p.writer)
	fmt.Fprintf(p.writer, "%s%s%s\n", p.c(colorBoldWhite), rule, p.c(colorReset))
	fmt.Fprintf(p.writer, "%s  RUN SUMMARY%s\n", p.c(colorBoldWhite), p.c(colorReset))
	fmt.Fprintf(p.writer, "%s%s%s\n", p.c(colorBoldWhite), rule, p.c(colorReset))

	fmt.Fprint(p.writer, "  Status: ")
	switch summary.Status {
	case StatusSuccess:
		fmt.Fprintf(p.writer, "%s✓ SUCCESS%s\n", p.c(colorBoldGreen), p.c(colorReset))
	case StatusPartialSuccess:
		fmt.Fprintf(p.writer, "%s⚠ PARTIAL SUCCESS%s\n", p.c(colorYellow), p.c(colorReset))
	default:
		fmt.Fprintf(p.writer, "%s✗ FAILED%s\n", p.c(colorBoldRed), p.c(colorReset))
	}

	fmt.Fprintf(p.writer, "  Job: %s\n", summary.Job)
	fmt.Fprintf(p.writer, "  Message: %s\n", r.Message)
	fmt.Fprintf(p.writer, "  Duration: %s\n", r.Duration.Round(time.Millisecond))
	if r.Screenshot != "" {
		fmt.Fprintf(p.writer, "  Screenshot: %s\n", r.Screenshot)
	}
	if r.DOMSnapshot != "" {
		fmt.Fprintf(p.writer, "  DOM snapshot: %s\n", r.DOMSnapshot)
	}

	p.printFields(r)

	if r.Error != nil && p.level >= logging.LevelVerbose {
		fmt.Fprintln(p.writer)
		fmt.Fprintf(p.writer, "%s  Error Details:%s\n", p.c(colorBoldRed), p.c(colorReset))
		fmt.Fprintf(p.writer, "%s    [%s] %s%s\n", p.c(colorRed), r.Error.Kind, r.Error.Error(), p.c(colorReset))
	}

	fmt.Fprintf(p.writer, "%s%s%s\n", p.c(colorBoldWhite), rule, p.c(colorReset))
	fmt.Fprintln(p.writer)
}

func (p *Printer) printFields(r browser.ActionResult) {
	if r.Fields == nil || len(r.Fields.Fields) == 0 {
		return
	}

	fmt.Fprintf(p.writer, "\n  Fields: %d applied, %d failed\n", r.Fields.Applied, r.Fields.Failed)
	for _, f := range r.Fields.Fields {
		if f.Applied {
			if p.level >= logging.LevelVerbose {
				fmt.Fprintf(p.writer, "%s    ✓ %s%s\n", p.c(colorBoldGreen), f.Field.Label(), p.c(colorReset))
			}
			continue
		}
		fmt.Fprintf(p.writer, "%s    ✗ %s%s\n", p.c(colorBoldRed), f.Field.Label(), p.c(colorReset))
		if f.Error != nil {
			fmt.Fprintf(p.writer, "%s      %s%s\n", p.c(colorGray), f.Error.Message, p.c(colorReset))
		}
	}
}
