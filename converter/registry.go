package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Capability performs one format conversion. It reads inputPaths, writes its results into workDir
// and returns their paths in order. A capability keeps no state between calls.
type Capability interface {
	Convert(ctx context.Context, inputPaths []string, workDir string) ([]string, error)
}

// CapabilityFunc adapts a plain function to Capability
type CapabilityFunc func(ctx context.Context, inputPaths []string, workDir string) ([]string, error)

// Convert calls f
func (f CapabilityFunc) Convert(ctx context.Context, inputPaths []string, workDir string) ([]string, error) {
	return f(ctx, inputPaths, workDir)
}

// Registry maps every OperationID to its capability. It is built once and never modified.
type Registry struct {
	capabilities map[OperationID]Capability
}

// ToolInfo describes one registry entry for listings
type ToolInfo struct {
	ID      OperationID `json:"id"`
	Arity   Arity       `json:"arity"`
	Accepts []string    `json:"accepts"`
}

// NewRegistry wires the production capabilities
func NewRegistry(cfg config.ConversionConfig, renderer pdfrenderer.Renderer) *Registry {
	registry, err := NewRegistryWith(map[OperationID]Capability{
		PDFToImages: &pdfToImages{renderer: renderer},
		ImagesToPDF: CapabilityFunc(imagesToPDF),
		MergePDF:    CapabilityFunc(mergePDF),
		SplitPDF:    CapabilityFunc(splitPDF),
		CompressPDF: CapabilityFunc(compressPDF),
		PDFToPDFA:   &pdfToPDFA{ghostscriptPath: cfg.GhostscriptPath},
		WordToPDF:   CapabilityFunc(wordToPDF),
		ExcelToPDF:  CapabilityFunc(excelToPDF),
		TxtToPDF:    CapabilityFunc(txtToPDF),
		PDFToWord:   CapabilityFunc(pdfToWord),
	})
	if err != nil {
		panic(err) // the table above covers every operation
	}
	return registry
}

// NewRegistryWith builds a registry from explicit capabilities. Every operation must be present.
func NewRegistryWith(capabilities map[OperationID]Capability) (*Registry, error) {
	table := make(map[OperationID]Capability, len(operations))
	for _, id := range operations {
		capability, ok := capabilities[id]
		if !ok || capability == nil {
			return nil, fmt.Errorf("no capability registered for %s", id)
		}
		table[id] = capability
	}
	if len(capabilities) != len(operations) {
		return nil, fmt.Errorf("registry given %d capabilities for %d operations", len(capabilities), len(operations))
	}
	return &Registry{capabilities: table}, nil
}

// Lookup resolves a tool name to its operation and capability
func (r *Registry) Lookup(tool string) (OperationID, Capability, error) {
	id, err := ParseOperationID(tool)
	if err != nil {
		return "", nil, err
	}
	return id, r.capabilities[id], nil
}

// Tools lists the registry in display order
func (r *Registry) Tools() []ToolInfo {
	tools := make([]ToolInfo, 0, len(operations))
	for _, id := range operations {
		tools = append(tools, ToolInfo{ID: id, Arity: id.Arity(), Accepts: id.Accepts()})
	}
	return tools
}
