// Package main provides the wpdriver CLI. It runs one admin job against a
// WordPress site through a headless browser and writes the run artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/entrhq/wpdriver/pkg/admin"
	"github.com/entrhq/wpdriver/pkg/browser"
	"github.com/entrhq/wpdriver/pkg/config"
	"github.com/entrhq/wpdriver/pkg/logging"
	"github.com/entrhq/wpdriver/pkg/report"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	JobFile     string
	OutputDir   string
	Verbosity   string
	Timeout     time.Duration
	PDF         bool
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("wpdriver v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	c := &CLIConfig{}

	flag.StringVar(&c.ConfigFile, "config", "wpdriver.yaml", "Path to configuration file (YAML)")
	flag.StringVar(&c.JobFile, "job", "", "Path to job file (YAML, required)")
	flag.StringVar(&c.OutputDir, "output", "", "Directory for result.json and summary.md (overrides artifacts.output_dir)")
	flag.StringVar(&c.Verbosity, "verbosity", "", "Logging verbosity: quiet, normal, verbose or debug")
	flag.DurationVar(&c.Timeout, "timeout", 5*time.Minute, "Overall run timeout")
	flag.BoolVar(&c.PDF, "pdf", false, "Bundle screenshots into audit.pdf")
	flag.BoolVar(&c.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "wpdriver - WordPress admin automation through a headless browser\n\n")
		fmt.Fprintf(os.Stderr, "Usage: wpdriver -job <file> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %s, %s, %s, %s\n\n", config.EnvBaseURL, config.EnvUsername, config.EnvAppPassword, config.EnvHeadless)
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Activate a plugin\n")
		fmt.Fprintf(os.Stderr, "  wpdriver -job jobs/activate-akismet.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Publish a page and keep an audit PDF\n")
		fmt.Fprintf(os.Stderr, "  wpdriver -config site.yaml -job jobs/about-page.yaml -pdf\n\n")
	}

	flag.Parse()
	return c
}

// run executes a single job
//
//nolint:gocyclo
func run(ctx context.Context, cliConfig *CLIConfig) error {
	cfg, err := loadConfig(cliConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return fmt.Errorf("invalid configuration: %w", validationErr)
	}

	if cliConfig.JobFile == "" {
		return fmt.Errorf("-job is required")
	}
	job, err := admin.LoadJob(cliConfig.JobFile)
	if err != nil {
		return err
	}
	req, err := job.BuildRequest()
	if err != nil {
		return err
	}

	printer := report.NewPrinter(cfg.LogLevel())
	printer.Header(fmt.Sprintf("wpdriver v%s", version))
	printer.Infof("Job: %s (%s)", job.Name, job.Kind)
	printer.Infof("Site: %s", cfg.Site.BaseURL)

	logger, logErr := logging.NewLogger("wpdriver", cfg.LoggerOptions())
	if logErr != nil {
		printer.Warningf("%v", logErr)
	}
	defer logger.Close()
	printer.Verbosef("Log file: %s", logger.LogPath())

	driver := browser.NewPlaywrightDriver(logger)
	manager := browser.NewSessionManager(driver, cfg.SessionConfig(), logger)
	manager.SetMaxSessions(1)
	defer func() {
		if shutdownErr := manager.Shutdown(); shutdownErr != nil {
			logger.Warnf("shutdown: %v", shutdownErr)
		}
	}()

	printer.Step("Starting browser")
	if initErr := driver.Initialize(); initErr != nil {
		return fmt.Errorf("failed to start playwright: %w", initErr)
	}

	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	printer.Step(fmt.Sprintf("Running %s", req.Entity))
	recorder := browser.NewRecorder(cfg.Artifacts.ScreenshotDir, cfg.Timeouts.Screenshot)
	engine := browser.NewEngine(manager, recorder, logger)
	result := engine.Execute(ctx, req)

	summary := &report.RunSummary{
		RunID:   logger.RunID(),
		Job:     job.Name,
		Site:    cfg.Site.BaseURL,
		Status:  report.StatusOf(result),
		Result:  result,
		LogPath: logger.LogPath(),
	}

	switch summary.Status {
	case report.StatusSuccess:
		printer.Successf("%s", result.Message)
	case report.StatusPartialSuccess:
		printer.Warningf("%s", result.Message)
	default:
		printer.Errorf("%s", result.Message)
	}
	for _, entry := range result.Console {
		printer.Verbosef("console %s: %s", entry.Type, entry.Text)
	}

	printer.Step("Writing artifacts")
	if cliConfig.PDF || cfg.Artifacts.PDFBundle {
		pdfPath, pdfErr := report.BundleScreenshots(
			[]string{result.Screenshot},
			filepath.Join(cfg.Artifacts.OutputDir, "audit.pdf"),
		)
		if pdfErr != nil {
			printer.Warningf("audit PDF skipped: %v", pdfErr)
		} else {
			summary.AuditPDF = pdfPath
			printer.Verbosef("Audit PDF: %s", pdfPath)
		}
	}

	writer := report.NewArtifactWriter(cfg.Artifacts.OutputDir)
	if writeErr := writer.WriteAll(summary); writeErr != nil {
		printer.Warningf("failed to write artifacts: %v", writeErr)
	} else {
		printer.Verbosef("Artifacts: %s", cfg.Artifacts.OutputDir)
	}

	printer.Summary(summary)

	if summary.Status != report.StatusSuccess {
		return fmt.Errorf("job %s finished with status %s", job.Name, summary.Status)
	}
	return nil
}

// loadConfig reads the config file, then applies environment and flag
// overrides. A missing default config file is not an error.
func loadConfig(cliConfig *CLIConfig) (*config.Config, error) {
	path := cliConfig.ConfigFile
	if path == "wpdriver.yaml" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if envErr := cfg.ApplyEnv(); envErr != nil {
		return nil, envErr
	}

	if cliConfig.OutputDir != "" {
		cfg.Artifacts.OutputDir = cliConfig.OutputDir
	}
	if cliConfig.Verbosity != "" {
		cfg.Logging.Verbosity = cliConfig.Verbosity
	}
	return cfg, nil
}
