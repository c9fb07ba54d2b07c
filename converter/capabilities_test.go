package converter

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/xuri/excelize/v2"
)

func pageCount(t *testing.T, path string) int {
	t.Helper()
	count, err := api.PageCountFile(path)
	if err != nil {
		t.Fatalf("Failed to count pages of %s: %v", filepath.Base(path), err)
	}
	return count
}

func singleOutput(t *testing.T, outputs []string, err error, name string) string {
	t.Helper()
	if err != nil {
		t.Fatalf("Conversion failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("Expected one output, got %d", len(outputs))
	}
	if filepath.Base(outputs[0]) != name {
		t.Errorf("Expected output %s, got %s", name, filepath.Base(outputs[0]))
	}
	return outputs[0]
}

func TestMergePDF(t *testing.T) {
	dir := t.TempDir()
	first := writePDF(t, filepath.Join(dir, "a.pdf"), 2, "first")
	second := writePDF(t, filepath.Join(dir, "b.pdf"), 3, "second")

	outputs, err := mergePDF(context.Background(), []string{first, second}, dir)
	merged := singleOutput(t, outputs, err, "merged.pdf")
	if got := pageCount(t, merged); got != 5 {
		t.Errorf("Expected 5 merged pages, got %d", got)
	}
}

func TestMergePDFRejectsCorruptInput(t *testing.T) {
	dir := t.TempDir()
	good := writePDF(t, filepath.Join(dir, "a.pdf"), 1, "good")
	bad := filepath.Join(dir, "b.pdf")
	if err := os.WriteFile(bad, []byte("not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mergePDF(context.Background(), []string{good, bad}, dir); err == nil {
		t.Error("Expected merging a corrupt PDF to fail")
	}
}

func TestSplitPDF(t *testing.T) {
	dir := t.TempDir()
	input := writePDF(t, filepath.Join(dir, "in.pdf"), 3, "split me")

	outputs, err := splitPDF(context.Background(), []string{input}, dir)
	if err != nil {
		t.Fatalf("splitPDF failed: %v", err)
	}
	if len(outputs) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(outputs))
	}
	for i, output := range outputs {
		want := "page_" + string(rune('1'+i)) + ".pdf"
		if filepath.Base(output) != want {
			t.Errorf("Expected %s, got %s", want, filepath.Base(output))
		}
		if got := pageCount(t, output); got != 1 {
			t.Errorf("%s: expected 1 page, got %d", want, got)
		}
	}
}

func TestCompressPDF(t *testing.T) {
	dir := t.TempDir()
	input := writePDF(t, filepath.Join(dir, "in.pdf"), 2, "compress me")

	outputs, err := compressPDF(context.Background(), []string{input}, dir)
	compressed := singleOutput(t, outputs, err, "compressed.pdf")
	if got := pageCount(t, compressed); got != 2 {
		t.Errorf("Expected 2 pages after compression, got %d", got)
	}
}

func TestImagesToPDF(t *testing.T) {
	dir := t.TempDir()
	wide := writeImage(t, filepath.Join(dir, "wide.png"), 200, 100, color.NRGBA{R: 255, A: 128})
	tall := writeImage(t, filepath.Join(dir, "tall.jpg"), 80, 160, color.NRGBA{B: 255, A: 255})
	gray := writeGrayImage(t, filepath.Join(dir, "gray.png"), 50, 50)

	outputs, err := imagesToPDF(context.Background(), []string{wide, tall, gray}, dir)
	result := singleOutput(t, outputs, err, "images_to_pdf.pdf")

	dims, err := api.PageDimsFile(result)
	if err != nil {
		t.Fatalf("Failed to read page sizes: %v", err)
	}
	if len(dims) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(dims))
	}
	want := [][2]float64{{200, 100}, {80, 160}, {50, 50}}
	for i, dim := range dims {
		if int(dim.Width+0.5) != int(want[i][0]) || int(dim.Height+0.5) != int(want[i][1]) {
			t.Errorf("Page %d: expected %vx%v, got %vx%v", i+1, want[i][0], want[i][1], dim.Width, dim.Height)
		}
	}
}

func TestImagesToPDFRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := imagesToPDF(context.Background(), []string{bad}, dir); err == nil {
		t.Error("Expected an error for a file that is not an image")
	}
}

func TestFlattenRGBCompositesOntoWhite(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	flat := flattenRGB(transparent)
	r, g, b, a := flat.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("Expected opaque white, got %d %d %d %d", r, g, b, a)
	}
}

func TestTxtToPDF(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = "line of text"
	}
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	outputs, err := txtToPDF(context.Background(), []string{input}, dir)
	result := singleOutput(t, outputs, err, "text_to_pdf.pdf")
	// 47 lines fit between the margins at 15pt spacing
	if got := pageCount(t, result); got != 5 {
		t.Errorf("Expected 5 pages, got %d", got)
	}
}

func TestTxtToPDFWritesReadErrorIntoDocument(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "binary.txt")
	if err := os.WriteFile(input, []byte{0xff, 0xfe, 0x00, 0x80}, 0600); err != nil {
		t.Fatal(err)
	}

	outputs, err := txtToPDF(context.Background(), []string{input}, dir)
	result := singleOutput(t, outputs, err, "text_to_pdf.pdf")
	text, err := extractPageText(result)
	if err != nil {
		t.Fatalf("Failed to extract text: %v", err)
	}
	if len(text) != 1 || !strings.Contains(text[0], "Error reading file") {
		t.Errorf("Expected the read error in the document, got %q", text)
	}
}

func TestExcelToPDF(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "book.xlsx")

	workbook := excelize.NewFile()
	workbook.SetCellValue("Sheet1", "A1", "Name")
	workbook.SetCellValue("Sheet1", "B1", "Qty")
	workbook.SetCellValue("Sheet1", "A2", "Widget")
	workbook.SetCellValue("Sheet1", "B2", 4)
	if _, err := workbook.NewSheet("Totals"); err != nil {
		t.Fatalf("Failed to add sheet: %v", err)
	}
	workbook.SetCellValue("Totals", "A1", "Sum")
	if err := workbook.SaveAs(input); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	workbook.Close()

	outputs, err := excelToPDF(context.Background(), []string{input}, dir)
	result := singleOutput(t, outputs, err, "excel_to_pdf.pdf")
	text, err := extractPageText(result)
	if err != nil {
		t.Fatalf("Failed to extract text: %v", err)
	}
	joined := strings.Join(text, "\n")
	for _, want := range []string{"Sheet1", "Totals", "Widget"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in the output text", want)
		}
	}
}

func TestExcelToPDFWritesReadErrorIntoDocument(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.xlsx")
	if err := os.WriteFile(input, []byte("not a workbook"), 0600); err != nil {
		t.Fatal(err)
	}

	outputs, err := excelToPDF(context.Background(), []string{input}, dir)
	result := singleOutput(t, outputs, err, "excel_to_pdf.pdf")
	if got := pageCount(t, result); got != 1 {
		t.Errorf("Expected a single error page, got %d", got)
	}
}

func TestReadDocx(t *testing.T) {
	path := writeDocx(t, filepath.Join(t.TempDir(), "doc.docx"), "First paragraph", "Second paragraph")
	content, err := readDocx(path)
	if err != nil {
		t.Fatalf("readDocx failed: %v", err)
	}
	if len(content.paragraphs) != 2 || content.paragraphs[0] != "First paragraph" || content.paragraphs[1] != "Second paragraph" {
		t.Errorf("Unexpected paragraphs: %q", content.paragraphs)
	}
}

func TestWordToPDF(t *testing.T) {
	dir := t.TempDir()
	first := writeDocx(t, filepath.Join(dir, "first.docx"), "Opening paragraph", strings.Repeat("wrapped words ", 20))
	second := writeDocx(t, filepath.Join(dir, "second.docx"), "Closing paragraph")

	var files []UploadedFile
	for _, upload := range []struct{ name, path string }{
		{"Quarterly Report.docx", first},
		{"Budget (final).docx", second},
	} {
		data, err := os.ReadFile(upload.path)
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, memFile{name: upload.name, data: data})
	}

	scope := acquireScope(t)
	outputs, err := NewDispatcher(registryOf(t, CapabilityFunc(wordToPDF))).Dispatch(context.Background(), "word-to-pdf", files, scope)
	result := singleOutput(t, outputs, err, "word_to_pdf.pdf")
	if got := pageCount(t, result); got != 2 {
		t.Fatalf("Expected each document on its own page, got %d pages", got)
	}

	pages, err := extractPageText(result)
	if err != nil {
		t.Fatalf("Failed to extract text: %v", err)
	}
	if strings.Contains(pages[0], "Document:") || strings.Contains(pages[0], documentBanner) {
		t.Errorf("First document should not have a banner, got %q", pages[0])
	}
	if !strings.Contains(pages[0], "Opening paragraph") {
		t.Errorf("Expected the first document on page 1, got %q", pages[0])
	}

	title := strings.Index(pages[1], "Document: Budget (final).docx")
	if title < 0 {
		t.Fatalf("Expected a banner with the uploaded name on page 2, got %q", pages[1])
	}
	above := strings.Index(pages[1], documentBanner)
	below := strings.LastIndex(pages[1], documentBanner)
	if above < 0 || above > title || below < title {
		t.Errorf("Expected the name between two rules of %d '=', got %q", len(documentBanner), pages[1])
	}
	if closing := strings.Index(pages[1], "Closing paragraph"); closing < below {
		t.Errorf("Expected the document text after the banner, got %q", pages[1])
	}
}

func TestWordToPDFRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.docx")
	if err := os.WriteFile(bad, []byte("not a document"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := wordToPDF(context.Background(), []string{bad}, dir); err == nil {
		t.Error("Expected an error for a corrupt document")
	}
}

func TestPDFToWord(t *testing.T) {
	dir := t.TempDir()
	input := writePDF(t, filepath.Join(dir, "letter.pdf"), 2, "Hello World")

	outputs, err := pdfToWord(context.Background(), []string{input}, dir)
	result := singleOutput(t, outputs, err, "letter.docx")

	content, err := readDocx(result)
	if err != nil {
		t.Fatalf("Failed to read generated document: %v", err)
	}
	joined := strings.Join(content.paragraphs, "\n")
	if strings.Count(joined, "Hello") != 2 {
		t.Errorf("Expected the text of both pages, got %q", joined)
	}
}

type stubRenderer struct {
	pages []image.Image
}

func (s *stubRenderer) RenderPDF(path string) ([]image.Image, error) { return s.pages, nil }
func (s *stubRenderer) Close() error                                 { return nil }

func TestPDFToImages(t *testing.T) {
	dir := t.TempDir()
	renderer := &stubRenderer{pages: []image.Image{
		image.NewRGBA(image.Rect(0, 0, 10, 10)),
		image.NewRGBA(image.Rect(0, 0, 10, 10)),
	}}

	outputs, err := (&pdfToImages{renderer: renderer}).Convert(context.Background(), []string{filepath.Join(dir, "in.pdf")}, dir)
	if err != nil {
		t.Fatalf("pdfToImages failed: %v", err)
	}
	if len(outputs) != 2 || filepath.Base(outputs[0]) != "page_1.png" || filepath.Base(outputs[1]) != "page_2.png" {
		t.Fatalf("Unexpected outputs: %v", outputs)
	}
	for _, output := range outputs {
		if _, err := os.Stat(output); err != nil {
			t.Errorf("Expected %s to exist: %v", output, err)
		}
	}
}

func TestPDFToPDFA(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Ghostscript test in short mode")
	}
	gs, err := exec.LookPath("gs")
	if err != nil {
		t.Skip("Ghostscript not installed")
	}

	dir := t.TempDir()
	first := writePDF(t, filepath.Join(dir, "a.pdf"), 1, "archive")
	second := writePDF(t, filepath.Join(dir, "b.pdf"), 2, "archive")

	outputs, err := (&pdfToPDFA{ghostscriptPath: gs}).Convert(context.Background(), []string{first, second}, dir)
	if err != nil {
		t.Fatalf("pdfToPDFA failed: %v", err)
	}
	if len(outputs) != 2 || filepath.Base(outputs[0]) != "a_pdfa.pdf" || filepath.Base(outputs[1]) != "b_pdfa.pdf" {
		t.Fatalf("Unexpected outputs: %v", outputs)
	}
}

func TestPDFToPDFAWithoutGhostscript(t *testing.T) {
	_, err := (&pdfToPDFA{}).Convert(context.Background(), []string{"a.pdf"}, t.TempDir())
	if err == nil {
		t.Error("Expected an error when Ghostscript is not configured")
	}
}

func TestGhostscriptArgs(t *testing.T) {
	args := ghostscriptArgs("-dangerous.pdf", "/tmp/out.pdf")
	if args[len(args)-1] != "./-dangerous.pdf" {
		t.Errorf("Expected a relative input to be prefixed, got %s", args[len(args)-1])
	}
	if args[len(args)-2] != "-sOutputFile=/tmp/out.pdf" {
		t.Errorf("Unexpected output argument %s", args[len(args)-2])
	}
	if args[0] != "-dPDFA=1" {
		t.Errorf("Unexpected first argument %s", args[0])
	}
}
