package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// BundleScreenshots packs screenshots, one per page, into outFile. Missing
// images are skipped; it fails when none are left.
func BundleScreenshots(screenshots []string, outFile string) (string, error) {
	var images []string
	for _, path := range screenshots {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		images = append(images, path)
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no screenshots to bundle")
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	// ImportImagesFile appends to an existing file
	if err := os.Remove(outFile); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to replace %s: %w", outFile, err)
	}

	if err := api.ImportImagesFile(images, outFile, pdfcpu.DefaultImportConfig(), nil); err != nil {
		return "", fmt.Errorf("failed to build audit PDF: %w", err)
	}
	return outFile, nil
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}
