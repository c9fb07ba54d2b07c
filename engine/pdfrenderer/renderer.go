package pdfrenderer

import (
	"fmt"
	"image"
)

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF rasterizes every page of a PDF file, in page order
	RenderPDF(filename string) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates the renderer named by kind ("pdfium" or "fitz") rendering at dpi
func NewRenderer(kind string, dpi float64) (Renderer, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid render resolution: %v", dpi)
	}
	switch kind {
	case "", "pdfium":
		r, err := NewPDFiumRenderer(dpi)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "fitz":
		r, err := NewFitzRenderer(dpi)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown PDF renderer: %s", kind)
	}
}
