package converter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

var ghostscriptPDFAArgs = []string{
	"-dPDFA=1",
	"-dBATCH",
	"-dNOPAUSE",
	"-dNOOUTERSAVE",
	"-dUseCIEColor",
	"-sProcessColorModel=DeviceRGB",
	"-sDEVICE=pdfwrite",
	"-sColorConversionStrategy=UseDeviceIndependentColor",
	"-dPDFACompatibilityPolicy=1",
}

// pdfToPDFA runs each input through Ghostscript, producing <stem>_pdfa.pdf per input.
// The first failing input fails the whole conversion.
type pdfToPDFA struct {
	ghostscriptPath string
}

func (p *pdfToPDFA) Convert(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	if p.ghostscriptPath == "" {
		return nil, errors.New("failed to convert to PDF/A: Ghostscript is not installed")
	}

	outputs := make([]string, 0, len(inputPaths))
	for _, input := range inputPaths {
		stem, _ := splitExt(filepath.Base(input))
		output := filepath.Join(workDir, stem+"_pdfa.pdf")

		cmd := exec.CommandContext(ctx, p.ghostscriptPath, ghostscriptArgs(input, output)...)
		combined, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s to PDF/A: %w: %s", filepath.Base(input), err, lastLine(combined))
		}
		outputs = append(outputs, output)
		Logger.Debug("PDF/A created", "file", filepath.Base(input))
	}
	return outputs, nil
}

func ghostscriptArgs(input, output string) []string {
	if !filepath.IsAbs(input) {
		input = "./" + input // never let a file name read as an option
	}
	args := append([]string(nil), ghostscriptPDFAArgs...)
	return append(args, "-sOutputFile="+output, input)
}

// lastLine is the final non-empty line of a tool's output
func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
