package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	mergeOutputName    = "merged.pdf"
	compressOutputName = "compressed.pdf"
)

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// mergePDF concatenates the pages of every input, in input order
func mergePDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, mergeOutputName)
	if err := api.MergeCreateFile(inputPaths, output, false, pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge PDFs: %w", err)
	}
	Logger.Debug("PDFs merged", "files", len(inputPaths))
	return []string{output}, nil
}

// splitPDF writes each page of the input to its own page_<n>.pdf, counting from 1
func splitPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	input := inputPaths[0]
	conf := pdfcpuConfig()
	pageCount, err := api.PageCountFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	outputs := make([]string, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		output := filepath.Join(workDir, "page_"+strconv.Itoa(page)+".pdf")
		if err := api.TrimFile(input, output, []string{strconv.Itoa(page)}, conf); err != nil {
			return nil, fmt.Errorf("failed to split PDF at page %d: %w", page, err)
		}
		outputs = append(outputs, output)
		Logger.Debug("Page extracted", "page", page)
	}
	return outputs, nil
}

// compressPDF rewrites the input without unused objects and with compressed streams
func compressPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, compressOutputName)
	if err := api.OptimizeFile(inputPaths[0], output, pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("failed to compress PDF: %w", err)
	}
	Logger.Debug("PDF compressed")
	return []string{output}, nil
}
