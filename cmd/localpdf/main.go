package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	config "github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/converter"
	engine "github.com/drummonds/localpdf/engine"
	"github.com/drummonds/localpdf/engine/pdfrenderer"
	"github.com/drummonds/localpdf/scratch"
)

// diskFile feeds a local file to the dispatcher as if it had been uploaded
type diskFile struct {
	path string
}

func (f diskFile) Name() string { return filepath.Base(f.path) }

func (f diskFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: localpdf -tool <tool> [-out path] file...\n\nTools:\n")
	for _, id := range converter.Operations() {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-14s %s, accepts %s\n", id, id.Arity(), strings.Join(id.Accepts(), ", "))
	}
	fmt.Fprintln(flag.CommandLine.Output())
	flag.PrintDefaults()
}

func main() {
	tool := flag.String("tool", "", "Conversion tool to run")
	out := flag.String("out", "", "Where to write the result (default: the result's own name in the current directory)")
	flag.Usage = usage
	flag.Parse()

	if err := run(*tool, *out, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "localpdf:", err)
		os.Exit(1)
	}
}

func run(tool, out string, paths []string) error {
	logger := config.SetupLogging()
	config.Logger = logger
	converter.Logger = logger
	scratch.Logger = logger
	engine.Logger = logger

	cfg := config.LoadServerConfig()

	files := make([]converter.UploadedFile, 0, len(paths))
	for _, path := range paths {
		files = append(files, diskFile{path: path})
	}
	if err := converter.ValidateUploads(files, cfg.AllowedExtensionSet()); err != nil {
		return err
	}

	var renderer pdfrenderer.Renderer
	if id, err := converter.ParseOperationID(tool); err == nil && id == converter.PDFToImages {
		if renderer, err = pdfrenderer.NewRenderer(cfg.RendererType, cfg.RenderDPI()); err != nil {
			return fmt.Errorf("PDF renderer unavailable: %w", err)
		}
		defer renderer.Close()
	}
	dispatcher := converter.NewDispatcher(converter.NewRegistry(cfg.ConversionConfig, renderer))

	scope, err := scratch.Acquire(cfg.ScratchPath)
	if err != nil {
		return err
	}
	defer scope.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outputs, err := dispatcher.Dispatch(ctx, tool, files, scope)
	if err != nil {
		return err
	}
	payload, err := engine.AssemblePayload(outputs)
	if err != nil {
		return err
	}

	if out == "" {
		out = payload.Filename
	}
	if err := os.WriteFile(out, payload.Body, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", out, len(payload.Body))
	return nil
}
