package converter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"
)

// memFile is an in-memory upload
type memFile struct {
	name string
	data []byte
}

func (m memFile) Name() string { return m.name }

func (m memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func uploads(names ...string) []UploadedFile {
	files := make([]UploadedFile, 0, len(names))
	for _, name := range names {
		files = append(files, memFile{name: name, data: []byte("content of " + name)})
	}
	return files
}

// recordingCapability remembers the inputs of every call and writes one output per input
type recordingCapability struct {
	calls  [][]string
	err    error
	output func(workDir string) []string
}

func (r *recordingCapability) Convert(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	r.calls = append(r.calls, append([]string(nil), inputPaths...))
	if r.err != nil {
		return nil, r.err
	}
	if r.output != nil {
		return r.output(workDir), nil
	}
	outputs := make([]string, 0, len(inputPaths))
	for _, input := range inputPaths {
		output := filepath.Join(workDir, "out_"+filepath.Base(input))
		if err := os.WriteFile(output, []byte("converted"), 0600); err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

func registryOf(t *testing.T, capability Capability) *Registry {
	t.Helper()
	capabilities := make(map[OperationID]Capability)
	for _, id := range Operations() {
		capabilities[id] = capability
	}
	registry, err := NewRegistryWith(capabilities)
	if err != nil {
		t.Fatalf("NewRegistryWith failed: %v", err)
	}
	return registry
}

// writePDF writes a Letter PDF with one line of text per page
func writePDF(t *testing.T, path string, pages int, text string) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Text(50, 80, text)
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write PDF %s: %v", path, err)
	}
	return path
}

func writeImage(t *testing.T, path string, width, height int, fill color.Color) string {
	t.Helper()
	img := imaging.New(width, height, fill)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("Failed to write image %s: %v", path, err)
	}
	return path
}

func writeGrayImage(t *testing.T, path string, width, height int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 255)
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("Failed to write image %s: %v", path, err)
	}
	return path
}

func writeDocx(t *testing.T, path string, paragraphs ...string) string {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	for _, paragraph := range paragraphs {
		doc.AddParagraph().AddText(paragraph)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if _, err := doc.WriteTo(file); err != nil {
		t.Fatalf("Failed to write docx %s: %v", path, err)
	}
	return path
}
