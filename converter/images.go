package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"

	"github.com/drummonds/localpdf/engine/pdfrenderer"
)

const imagesOutputName = "images_to_pdf.pdf"

// pdfToImages rasterizes every page of a PDF to page_<n>.png, counting from 1
type pdfToImages struct {
	renderer pdfrenderer.Renderer
}

func (p *pdfToImages) Convert(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	if p.renderer == nil {
		return nil, errors.New("failed to convert PDF to images: no PDF renderer available")
	}
	pages, err := p.renderer.RenderPDF(inputPaths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to convert PDF to images: %w", err)
	}

	outputs := make([]string, 0, len(pages))
	for i, page := range pages {
		output := filepath.Join(workDir, "page_"+strconv.Itoa(i+1)+".png")
		if err := imaging.Save(page, output); err != nil {
			return nil, fmt.Errorf("failed to save page %d: %w", i+1, err)
		}
		outputs = append(outputs, output)
		Logger.Debug("Page rendered to image", "page", i+1)
	}
	return outputs, nil
}

// imagesToPDF places each image on its own page, sized to the image at 72 DPI, in input order.
// Transparency and non-RGB color models are flattened onto white.
func imagesToPDF(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	output := filepath.Join(workDir, imagesOutputName)
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: fpdf.SizeType{Wd: pageWidth, Ht: pageHeight}})
	doc.SetAutoPageBreak(false, 0)
	options := fpdf.ImageOptions{ImageType: "PNG"}

	for i, input := range inputPaths {
		img, err := imaging.Open(input, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to convert images to PDF: %s: %w", filepath.Base(input), err)
		}
		rgb := flattenRGB(img)

		var encoded bytes.Buffer
		if err := imaging.Encode(&encoded, rgb, imaging.PNG); err != nil {
			return nil, fmt.Errorf("failed to convert images to PDF: %s: %w", filepath.Base(input), err)
		}

		name := "image_" + strconv.Itoa(i+1)
		width, height := float64(rgb.Bounds().Dx()), float64(rgb.Bounds().Dy())
		doc.RegisterImageOptionsReader(name, options, &encoded)
		doc.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
		doc.ImageOptions(name, 0, 0, width, height, false, options, 0, "")
		Logger.Debug("Image processed", "file", filepath.Base(input))
	}

	if err := doc.OutputFileAndClose(output); err != nil {
		return nil, fmt.Errorf("failed to convert images to PDF: %w", err)
	}
	Logger.Debug("PDF created from images", "images", len(inputPaths))
	return []string{output}, nil
}

// flattenRGB draws img over an opaque white background
func flattenRGB(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}
