package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const textOutputName = "text_to_pdf.pdf"

// txtToPDF lays a UTF-8 text file out on Letter pages. A file that cannot be read produces a PDF
// carrying the error message instead of failing the conversion.
func txtToPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, textOutputName)
	canvas := newTextCanvas()
	canvas.setFont("", textFontSize)

	if err := drawTextFile(canvas, inputPaths[0], maxCharsFor(7)); err != nil {
		canvas.drawString(canvas.y-20, "Error reading file: "+err.Error())
		Logger.Error("Unable to read text file", "file", filepath.Base(inputPaths[0]), "error", err)
	} else {
		Logger.Debug("Text converted to PDF", "file", filepath.Base(inputPaths[0]))
	}

	if err := canvas.save(output); err != nil {
		return nil, fmt.Errorf("failed to write text PDF: %w", err)
	}
	return []string{output}, nil
}

func drawTextFile(canvas *textCanvas, path string, maxChars int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return errors.New("file is not valid UTF-8 text")
	}

	for _, line := range textLines(string(data)) {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		for _, chunk := range wrapText(line, maxChars) {
			canvas.y = canvas.pageBreak(canvas.y)
			canvas.drawString(canvas.y, chunk)
			canvas.y -= textLineSpacing
		}
	}
	return nil
}

// textLines splits content on any newline convention. A trailing newline does not start another line.
func textLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
