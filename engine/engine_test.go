package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/converter"
	"github.com/drummonds/localpdf/database"
)

type testServer struct {
	handler *ServerHandler
	echo    *echo.Echo
	scratch string
	db      *database.BunDB
}

// fakeCapabilities answers every tool without touching real converters
func fakeCapabilities() map[converter.OperationID]converter.Capability {
	echoInputs := converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		out := filepath.Join(workDir, "out_"+filepath.Base(inputs[0]))
		data, err := os.ReadFile(inputs[0])
		if err != nil {
			return nil, err
		}
		return []string{out}, os.WriteFile(out, data, 0600)
	})

	capabilities := make(map[converter.OperationID]converter.Capability)
	for _, id := range converter.Operations() {
		capabilities[id] = echoInputs
	}
	capabilities[converter.MergePDF] = converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		var merged []byte
		for _, input := range inputs {
			data, err := os.ReadFile(input)
			if err != nil {
				return nil, err
			}
			merged = append(merged, data...)
		}
		out := filepath.Join(workDir, "merged.pdf")
		return []string{out}, os.WriteFile(out, merged, 0600)
	})
	capabilities[converter.SplitPDF] = converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		var outputs []string
		for i, page := range []string{"first page", "second page"} {
			out := filepath.Join(workDir, "page_"+string(rune('1'+i))+".pdf")
			if err := os.WriteFile(out, []byte(page), 0600); err != nil {
				return nil, err
			}
			outputs = append(outputs, out)
		}
		return outputs, nil
	})
	capabilities[converter.CompressPDF] = converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		return nil, errors.New("pdf: malformed xref table")
	})
	capabilities[converter.TxtToPDF] = converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		return nil, nil
	})
	capabilities[converter.ExcelToPDF] = converter.CapabilityFunc(func(ctx context.Context, inputs []string, workDir string) ([]string, error) {
		panic("sheet index out of range")
	})
	return capabilities
}

func newTestServer(t *testing.T, maxUpload string) *testServer {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	registry, err := converter.NewRegistryWith(fakeCapabilities())
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	dir := t.TempDir()
	cfg := config.ServerConfig{
		DatabaseType:      "sqlite",
		DatabaseDbname:    filepath.Join(dir, "jobs.sqlite"),
		JobRetentionHours: 1,
		ConversionConfig: config.ConversionConfig{
			MaxUploadSize:        maxUpload,
			AllowedExtensions:    config.DefaultAllowedExtensions,
			ScratchPath:          filepath.Join(dir, "scratch"),
			ScratchMaxAge:        60,
			RendererType:         "pdfium",
			ResolutionMultiplier: 2,
		},
	}
	db, err := database.NewRepository(cfg)
	if err != nil {
		t.Fatalf("Failed to open job log: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := echo.New()
	handler := NewServerHandler(e, cfg, db, converter.NewDispatcher(registry))
	handler.RegisterRoutes()
	if err := handler.StartupChecks(); err != nil {
		t.Fatalf("Startup checks failed: %v", err)
	}
	return &testServer{handler: handler, echo: e, scratch: cfg.ScratchPath, db: db}
}

// convertRequest builds a multipart POST /convert; an empty tool omits the field
func convertRequest(t *testing.T, tool string, files map[string]string, order ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range order {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		io.WriteString(part, files[name])
	}
	if tool != "" {
		writer.WriteField("tool", tool)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not a JSON error (%q): %v", rec.Body.String(), err)
	}
	return body["error"]
}

func (s *testServer) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.scratch)
	if err != nil {
		t.Fatalf("Failed to read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected every scope to be released, found %d entries", len(entries))
	}
}

func TestConvertSingleOutput(t *testing.T) {
	s := newTestServer(t, "100M")
	files := map[string]string{"a.pdf": "alpha", "b.pdf": "beta"}

	rec := s.do(convertRequest(t, "merge-pdf", files, "a.pdf", "b.pdf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename=merged.pdf" {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/pdf" {
		t.Errorf("Unexpected Content-Type %q", got)
	}
	if rec.Body.String() != "alphabeta" {
		t.Errorf("Expected inputs merged in upload order, got %q", rec.Body.String())
	}
	if rec.Header().Get(HeaderJobID) == "" {
		t.Error("Expected a job ID header")
	}
	s.assertScratchEmpty(t)
}

func TestConvertSingleArityUsesFirstFile(t *testing.T) {
	s := newTestServer(t, "100M")
	files := map[string]string{"first.docx": "one", "second.docx": "two"}

	rec := s.do(convertRequest(t, "pdf-to-word", files, "first.docx", "second.docx"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename=out_first.docx" {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if rec.Body.String() != "one" {
		t.Errorf("Expected only the first upload converted, got %q", rec.Body.String())
	}
}

func TestConvertMultipleOutputsZipped(t *testing.T) {
	s := newTestServer(t, "100M")

	rec := s.do(convertRequest(t, "split-pdf", map[string]string{"doc.pdf": "pages"}, "doc.pdf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != "attachment; filename="+ZipFilename {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/zip" {
		t.Errorf("Unexpected Content-Type %q", got)
	}

	archive, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("Response is not a zip archive: %v", err)
	}
	contents := map[string]string{}
	for _, entry := range archive.File {
		r, err := entry.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", entry.Name, err)
		}
		data, _ := io.ReadAll(r)
		r.Close()
		contents[entry.Name] = string(data)
	}
	if len(contents) != 2 || contents["page_1.pdf"] != "first page" || contents["page_2.pdf"] != "second page" {
		t.Errorf("Unexpected zip contents %v", contents)
	}
	s.assertScratchEmpty(t)
}

func TestConvertValidationErrors(t *testing.T) {
	s := newTestServer(t, "100M")

	tests := []struct {
		name    string
		req     func() *http.Request
		message string
	}{
		{
			name:    "no files",
			req:     func() *http.Request { return convertRequest(t, "merge-pdf", nil) },
			message: "No files provided",
		},
		{
			name: "not multipart",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"tool":"merge-pdf"}`))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				return req
			},
			message: "No files provided",
		},
		{
			name:    "disallowed extension",
			req:     func() *http.Request { return convertRequest(t, "merge-pdf", map[string]string{"run.exe": "x"}, "run.exe") },
			message: "Disallowed extension: run.exe",
		},
		{
			name:    "leading file without a name",
			req:     func() *http.Request { return convertRequest(t, "merge-pdf", map[string]string{"": "x", "a.pdf": "x"}, "", "a.pdf") },
			message: "No file selected",
		},
		{
			name:    "later file without a name",
			req:     func() *http.Request { return convertRequest(t, "merge-pdf", map[string]string{"a.pdf": "x", "": "x"}, "a.pdf", "") },
			message: "Disallowed extension: ",
		},
		{
			name:    "unknown tool",
			req:     func() *http.Request { return convertRequest(t, "shred-pdf", map[string]string{"a.pdf": "x"}, "a.pdf") },
			message: "Unsupported tool: shred-pdf",
		},
		{
			name:    "missing tool",
			req:     func() *http.Request { return convertRequest(t, "", map[string]string{"a.pdf": "x"}, "a.pdf") },
			message: "Unsupported tool: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.req())
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := errorBody(t, rec); got != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, got)
			}
		})
	}

	jobs, err := s.db.GetRecentJobs(10, 0)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("Rejected requests should not be logged, found %d jobs", len(jobs))
	}
	s.assertScratchEmpty(t)
}

func TestConvertUploadTooLarge(t *testing.T) {
	s := newTestServer(t, "1K")
	big := strings.Repeat("x", 4096)

	rec := s.do(convertRequest(t, "merge-pdf", map[string]string{"big.pdf": big}, "big.pdf"))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := errorBody(t, rec); got != "File too large. Limit: 1K" {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestConvertFailures(t *testing.T) {
	s := newTestServer(t, "100M")

	t.Run("capability error surfaces verbatim", func(t *testing.T) {
		rec := s.do(convertRequest(t, "compress-pdf", map[string]string{"a.pdf": "x"}, "a.pdf"))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", rec.Code)
		}
		if got := errorBody(t, rec); got != "pdf: malformed xref table" {
			t.Errorf("Unexpected message %q", got)
		}
	})

	t.Run("empty output is generic", func(t *testing.T) {
		rec := s.do(convertRequest(t, "txt-to-pdf", map[string]string{"a.txt": "x"}, "a.txt"))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", rec.Code)
		}
		if got := errorBody(t, rec); got != "Internal server error" {
			t.Errorf("Unexpected message %q", got)
		}
	})

	jobs, err := s.db.GetRecentJobs(10, 0)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 logged jobs, got %d", len(jobs))
	}
	messages := []string{jobs[0].Error, jobs[1].Error}
	sort.Strings(messages)
	if messages[0] != "Internal server error" || messages[1] != "pdf: malformed xref table" {
		t.Errorf("Unexpected job errors %v", messages)
	}
	for _, job := range jobs {
		if job.Status != database.JobStatusFailed {
			t.Errorf("Expected failed status, got %s", job.Status)
		}
	}
	s.assertScratchEmpty(t)
}

func TestConvertPanicFailsJob(t *testing.T) {
	s := newTestServer(t, "100M")
	s.echo.Use(middleware.Recover())

	rec := s.do(convertRequest(t, "excel-to-pdf", map[string]string{"book.xlsx": "x"}, "book.xlsx"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Internal server error" {
		t.Errorf("Unexpected message %q", got)
	}

	jobs, err := s.db.GetRecentJobs(10, 0)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != database.JobStatusFailed {
		t.Fatalf("Expected one failed job, got %+v", jobs)
	}
	active, err := s.db.GetActiveJobs()
	if err != nil {
		t.Fatalf("Failed to list active jobs: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active jobs after a panic, got %d", len(active))
	}
	s.assertScratchEmpty(t)
}

func TestJobsAPI(t *testing.T) {
	s := newTestServer(t, "100M")

	rec := s.do(convertRequest(t, "merge-pdf", map[string]string{"a.pdf": "alpha"}, "a.pdf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Conversion failed: %d %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get(HeaderJobID)

	t.Run("get job", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var job database.Job
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("Failed to decode job: %v", err)
		}
		if job.Tool != "merge-pdf" || job.Status != database.JobStatusCompleted || job.OutputName != "merged.pdf" {
			t.Errorf("Unexpected job %+v", job)
		}
		if job.InputCount != 1 || job.OutputBytes != 5 {
			t.Errorf("Unexpected counts %+v", job)
		}
	})

	t.Run("recent jobs", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs?limit=500", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var jobs []database.Job
		json.Unmarshal(rec.Body.Bytes(), &jobs)
		if len(jobs) != 1 || jobs[0].ID.String() != id {
			t.Errorf("Unexpected jobs %+v", jobs)
		}
	})

	t.Run("no active jobs", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/active", nil))
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("Expected empty list, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-ulid", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

func TestJobsAPIWithoutJobLog(t *testing.T) {
	s := newTestServer(t, "100M")
	s.handler.DB = nil

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Job log unavailable" {
		t.Errorf("Unexpected message %q", got)
	}

	// conversions still work
	rec = s.do(convertRequest(t, "merge-pdf", map[string]string{"a.pdf": "alpha"}, "a.pdf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(HeaderJobID) != "" {
		t.Error("Expected no job ID header without a job log")
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 20, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=101", 100, 0},
		{"limit=0&offset=-3", 20, 0},
		{"limit=abc&offset=xyz", 20, 0},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs?"+tt.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			limit, offset := pagination(c)
			if limit != tt.limit || offset != tt.offset {
				t.Errorf("Expected %d/%d, got %d/%d", tt.limit, tt.offset, limit, offset)
			}
		})
	}
}

func TestAPIRoutes(t *testing.T) {
	s := newTestServer(t, "100M")

	t.Run("tools", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/tools", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var tools []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &tools); err != nil {
			t.Fatalf("Failed to decode tools: %v", err)
		}
		if len(tools) != len(converter.Operations()) {
			t.Errorf("Expected %d tools, got %d", len(converter.Operations()), len(tools))
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
			t.Errorf("Unexpected health response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("about", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/about", nil))
		var about map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &about); err != nil {
			t.Fatalf("Failed to decode about: %v", err)
		}
		if about["jobLogEnabled"] != true || about["maxUploadSize"] != "100M" {
			t.Errorf("Unexpected about info %v", about)
		}
	})

	t.Run("unknown api path is JSON", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rec.Code)
		}
		if got := errorBody(t, rec); got != "Not Found" {
			t.Errorf("Unexpected message %q", got)
		}
	})

	t.Run("unknown page is HTML", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "404 - Page Not Found") {
			t.Errorf("Expected the HTML not-found page, got %s", rec.Body.String())
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/convert", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", rec.Code)
		}
	})
}

func TestAssemblePayload(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}

	if _, err := AssemblePayload(nil); !errors.Is(err, converter.ErrEmptyOutput) {
		t.Errorf("Expected ErrEmptyOutput, got %v", err)
	}

	single, err := AssemblePayload([]string{write("page_1.png", "png")})
	if err != nil {
		t.Fatalf("AssemblePayload failed: %v", err)
	}
	if single.Filename != "page_1.png" || single.ContentType != "image/png" || string(single.Body) != "png" {
		t.Errorf("Unexpected single payload %+v", single)
	}

	odd, err := AssemblePayload([]string{write("notes.zzz", "?")})
	if err != nil {
		t.Fatalf("AssemblePayload failed: %v", err)
	}
	if odd.ContentType != "application/octet-stream" {
		t.Errorf("Expected octet-stream fallback, got %q", odd.ContentType)
	}

	if _, err := AssemblePayload([]string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Error("Expected an error for a missing output")
	}
}

func TestScratchDirectoryChecks(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "scratch")
	if err := scratchDirectoryChecks(root); err != nil {
		t.Fatalf("Expected the directory to be created: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("Scratch directory missing after checks: %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, nil, 0600)
	if err := scratchDirectoryChecks(file); err == nil {
		t.Error("Expected an error when the scratch path is a file")
	}
	if err := scratchDirectoryChecks(""); err == nil {
		t.Error("Expected an error for an empty scratch path")
	}
}
