package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const excelOutputName = "excel_to_pdf.pdf"

// excelToPDF prints every sheet of a workbook as " | " separated rows under a sheet header.
// A workbook that cannot be read produces a PDF carrying the error message.
func excelToPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, excelOutputName)
	canvas := newTextCanvas()
	canvas.setFont("", 10)

	if err := drawWorkbook(canvas, inputPaths[0], maxCharsFor(6)); err != nil {
		canvas.drawString(canvas.y-20, "Error reading spreadsheet: "+err.Error())
		Logger.Error("Unable to read spreadsheet", "file", filepath.Base(inputPaths[0]), "error", err)
	} else {
		Logger.Debug("Spreadsheet converted to PDF", "file", filepath.Base(inputPaths[0]))
	}

	if err := canvas.save(output); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet PDF: %w", err)
	}
	return []string{output}, nil
}

func drawWorkbook(canvas *textCanvas, path string, maxChars int) error {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	for i, sheet := range sheets {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}

		canvas.drawString(canvas.y, "--- Sheet: "+sheet+" ---")
		canvas.y -= 20

		for _, line := range sheetLines(rows, maxChars) {
			canvas.y = canvas.pageBreak(canvas.y)
			canvas.drawString(canvas.y, line)
			canvas.y -= 15
		}
		canvas.y -= 30

		if canvas.y < textMargin && i != len(sheets)-1 {
			canvas.showPage()
		}
	}
	return nil
}

// sheetLines pads every row to the sheet's widest row, joins the cells and truncates long lines
func sheetLines(rows [][]string, maxChars int) []string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, width)
		copy(cells, row)
		lines = append(lines, ellipsize(strings.Join(cells, " | "), maxChars, maxChars))
	}
	return lines
}
