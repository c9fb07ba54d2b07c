package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

const wordOutputName = "word_to_pdf.pdf"

var documentBanner = strings.Repeat("=", 60)

// docxContent is the top level text of a Word document: paragraphs first, then tables as rows of cell text
type docxContent struct {
	paragraphs []string
	tables     [][][]string
}

// wordToPDF lays out one or more Word documents in a single PDF. Every document after the first
// starts on a new page under a banner with the name it was uploaded as.
func wordToPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, wordOutputName)
	canvas := newTextCanvas()
	canvas.setFont("", 11)
	maxChars := maxCharsFor(6)

	for i, input := range inputPaths {
		content, err := readDocx(input)
		if err != nil {
			return nil, fmt.Errorf("failed to convert Word to PDF: %s: %w", filepath.Base(input), err)
		}

		if i > 0 {
			canvas.showPage()
			canvas.setFont("B", 12)
			canvas.drawString(canvas.y, documentBanner)
			canvas.y -= 20
			canvas.drawString(canvas.y, "Document: "+sourceName(ctx, input))
			canvas.y -= 20
			canvas.drawString(canvas.y, documentBanner)
			canvas.y -= 30
			canvas.setFont("", 11)
		}

		for _, paragraph := range content.paragraphs {
			if strings.TrimSpace(paragraph) == "" {
				continue
			}
			for _, line := range wrapText(paragraph, maxChars) {
				canvas.y = canvas.pageBreak(canvas.y)
				canvas.drawString(canvas.y, line)
				canvas.y -= 20
			}
		}

		for _, table := range content.tables {
			canvas.y -= 10
			canvas.y = canvas.pageBreak(canvas.y - 50)
			canvas.setFont("", 9)
			for _, row := range table {
				canvas.y = canvas.pageBreak(canvas.y)
				canvas.drawString(canvas.y, tableRowText(row))
				canvas.y -= 15
			}
			canvas.y -= 10
			canvas.setFont("", 11)
		}
		Logger.Debug("Word document converted", "file", filepath.Base(input))
	}

	if err := canvas.save(output); err != nil {
		return nil, fmt.Errorf("failed to write Word PDF: %w", err)
	}
	return []string{output}, nil
}

func tableRowText(cells []string) string {
	return ellipsize(strings.Join(cells, " | "), 100, 97)
}

func readDocx(path string) (*docxContent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	doc, err := docx.Parse(file, info.Size())
	if err != nil {
		return nil, err
	}

	content := &docxContent{}
	for _, item := range doc.Document.Body.Items {
		switch element := item.(type) {
		case *docx.Paragraph:
			content.paragraphs = append(content.paragraphs, element.String())
		case *docx.Table:
			var rows [][]string
			for _, row := range element.TableRows {
				cells := make([]string, 0, len(row.TableCells))
				for _, cell := range row.TableCells {
					texts := make([]string, 0, len(cell.Paragraphs))
					for _, paragraph := range cell.Paragraphs {
						texts = append(texts, paragraph.String())
					}
					cells = append(cells, strings.Join(texts, " "))
				}
				rows = append(rows, cells)
			}
			content.tables = append(content.tables, rows)
		}
	}
	return content, nil
}

// pdfToWord extracts the text of a PDF into an editable .docx, one paragraph per line,
// with an empty paragraph between pages
func pdfToWord(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	input := inputPaths[0]
	stem, _ := splitExt(filepath.Base(input))
	output := filepath.Join(workDir, stem+".docx")

	pages, err := extractPageText(input)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to Word: %w", filepath.Base(input), err)
	}

	doc := docx.New().WithDefaultTheme()
	for i, text := range pages {
		if i > 0 {
			doc.AddParagraph()
		}
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			doc.AddParagraph().AddText(line)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	if _, err := doc.WriteTo(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write Word document: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	Logger.Debug("PDF converted to Word", "file", filepath.Base(input), "pages", len(pages))
	return []string{output}, nil
}

// extractPageText returns the plain text of every page, in order. Pages without content yield "".
func extractPageText(path string) ([]string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fonts := make(map[string]*pdf.Font)
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
