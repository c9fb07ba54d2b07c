package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/drummonds/localpdf/metrics"
	"github.com/drummonds/localpdf/scratch"
)

// ErrOutputOutsideScope means a capability returned a path its scope does not own
var ErrOutputOutsideScope = errors.New("conversion output outside of scope directory")

// IsInternal reports whether err is a broken capability contract rather than a conversion failure
func IsInternal(err error) bool {
	return errors.Is(err, ErrEmptyOutput) || errors.Is(err, ErrOutputOutsideScope)
}

// Dispatcher routes a tool name and its uploads to the matching capability
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a dispatcher over registry
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Registry is the table the dispatcher routes through
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs tool over files inside scope and returns the output paths, all under scope.Dir().
// Single-arity tools only see files[0]. The capability is not cancelled if ctx is.
func (d *Dispatcher) Dispatch(ctx context.Context, tool string, files []UploadedFile, scope *scratch.Scope) ([]string, error) {
	id, capability, err := d.registry.Lookup(tool)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFilesProvided
	}

	selected := files
	if id.Arity() == Single {
		selected = files[:1]
	}

	inputs, err := persistUploads(selected, scope.Dir())
	if err != nil {
		return nil, &ConversionFailedError{Operation: id, Cause: err}
	}

	Logger.Info("Starting conversion", "tool", id, "files", len(inputs), "scope", scope.Dir())
	start := time.Now()
	names := make(map[string]string, len(inputs))
	for i, input := range inputs {
		names[input] = selected[i].Name()
	}
	outputs, err := capability.Convert(withSourceNames(context.WithoutCancel(ctx), names), inputs, scope.Dir())
	metrics.ObserveConversion(string(id), err, time.Since(start))
	if err != nil {
		Logger.Error("Conversion failed", "tool", id, "error", err)
		return nil, &ConversionFailedError{Operation: id, Cause: err}
	}
	if len(outputs) == 0 {
		Logger.Error("Capability returned no outputs", "tool", id)
		return nil, ErrEmptyOutput
	}
	for _, output := range outputs {
		if !insideDir(scope.Dir(), output) {
			Logger.Error("Capability returned a path outside its scope", "tool", id, "path", output)
			return nil, fmt.Errorf("%w: %s", ErrOutputOutsideScope, output)
		}
	}
	Logger.Info("Conversion complete", "tool", id, "outputs", len(outputs), "elapsed", time.Since(start))
	return outputs, nil
}

type sourceNamesKey struct{}

// withSourceNames attaches the uploaded name of each persisted input path
func withSourceNames(ctx context.Context, names map[string]string) context.Context {
	return context.WithValue(ctx, sourceNamesKey{}, names)
}

// sourceName is the name path was uploaded under, or its base name when ctx does not know it
func sourceName(ctx context.Context, path string) string {
	if names, ok := ctx.Value(sourceNamesKey{}).(map[string]string); ok {
		if name, ok := names[path]; ok && name != "" {
			return name
		}
	}
	return filepath.Base(path)
}

// persistUploads copies each upload into dir under a sanitized, unique name, preserving order
func persistUploads(files []UploadedFile, dir string) ([]string, error) {
	used := make(map[string]bool, len(files))
	paths := make([]string, 0, len(files))
	for i, file := range files {
		name := uniqueName(sanitizeFilename(file.Name()), extension(file.Name()), i+1, used)
		path := filepath.Join(dir, name)
		if err := persistUpload(file, path); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", file.Name(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func persistUpload(file UploadedFile, path string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename keeps the base name of an uploaded filename, reduced to ASCII letters, digits, '.', '_' and '-'.
// Whitespace runs become '_' and leading or trailing dots and underscores are trimmed.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(name))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// uniqueName resolves empty and repeated names within one dispatch
func uniqueName(name, ext string, position int, used map[string]bool) string {
	if name == "" {
		name = "upload_" + strconv.Itoa(position)
		if ext != "" {
			name += "." + ext
		}
	}
	candidate := name
	stem, suffix := splitExt(name)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		candidate = stem + "_" + strconv.Itoa(n) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// splitExt splits "report.pdf" into "report" and ".pdf"
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
