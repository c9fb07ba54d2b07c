package engine

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/drummonds/localpdf/converter"
)

// ZipFilename is the download name used when a conversion returns more than one file
const ZipFilename = "converted_files.zip"

// Payload is a conversion result held entirely in memory, ready to send
type Payload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AssemblePayload reads the outputs into memory. A single output is returned as is, several are zipped flat.
// Nothing in the payload refers to disk once it returns, so the scope may be released.
func AssemblePayload(outputs []string) (*Payload, error) {
	switch len(outputs) {
	case 0:
		return nil, converter.ErrEmptyOutput
	case 1:
		body, err := os.ReadFile(outputs[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read conversion output: %w", err)
		}
		name := filepath.Base(outputs[0])
		return &Payload{Filename: name, ContentType: contentTypeFor(name), Body: body}, nil
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	for _, output := range outputs {
		if err := addToZip(archive, output); err != nil {
			return nil, err
		}
	}
	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return &Payload{Filename: ZipFilename, ContentType: "application/zip", Body: buf.Bytes()}, nil
}

func addToZip(archive *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read conversion output: %w", err)
	}
	defer file.Close()

	entry, err := archive.CreateHeader(&zip.FileHeader{Name: filepath.Base(path), Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s to zip: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("failed to add %s to zip: %w", filepath.Base(path), err)
	}
	return nil
}

func contentTypeFor(name string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
