package engine

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/drummonds/localpdf/converter"
	"github.com/drummonds/localpdf/database"
	"github.com/drummonds/localpdf/metrics"
	"github.com/drummonds/localpdf/scratch"
)

// HeaderJobID carries the job log ID of a successful conversion
const HeaderJobID = "X-Job-ID"

// spooledFile is one "files" part of a request, written to disk in arrival order
type spooledFile struct {
	name string
	path string
	size int64
}

func (f spooledFile) Name() string { return f.name }

func (f spooledFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// uploadRequest holds the parts of a conversion request that Convert reads
type uploadRequest struct {
	files []converter.UploadedFile
	tool  string
}

// Convert runs one conversion over the uploaded files and returns the result as an attachment
// @Summary Convert files
// @Description Run a conversion tool over one or more uploaded files. A single output is returned as is, several as a zip archive.
// @Tags Conversion
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param files formData file true "Files to convert (repeatable)"
// @Param tool formData string true "Conversion tool, see /api/tools"
// @Success 200 {file} binary "Converted file or converted_files.zip"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Failure 500 {object} map[string]interface{} "Conversion failed"
// @Router /convert [post]
func (serverHandler *ServerHandler) Convert(c echo.Context) (err error) {
	spool, err := scratch.Acquire(serverHandler.ServerConfig.ScratchPath)
	if err != nil {
		Logger.Error("Unable to create upload spool", "error", err)
		return err
	}
	defer spool.Release()

	upload, err := readUploads(c, spool)
	if err != nil {
		return err
	}
	if err := converter.ValidateUploads(upload.files, serverHandler.allowedExtensions); err != nil {
		return err
	}
	tool := upload.tool
	if _, err := converter.ParseOperationID(tool); err != nil {
		return err
	}

	scope, err := scratch.Acquire(serverHandler.ServerConfig.ScratchPath)
	if err != nil {
		Logger.Error("Unable to create scratch scope", "error", err)
		return err
	}
	defer scope.Release()

	start := time.Now()
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	job := serverHandler.startJob(tool, requestID, upload.files)
	completed := false
	defer func() {
		if completed {
			return
		}
		if r := recover(); r != nil {
			serverHandler.failJob(job, fmt.Errorf("conversion panicked: %v", r), time.Since(start))
			panic(r)
		}
		serverHandler.failJob(job, err, time.Since(start))
	}()

	outputs, err := serverHandler.Dispatcher.Dispatch(c.Request().Context(), tool, upload.files, scope)
	if err != nil {
		return err
	}
	payload, err := AssemblePayload(outputs)
	if err != nil {
		return err
	}
	if err := scope.Release(); err != nil {
		Logger.Warn("Unable to remove scratch scope", "scope", scope.Dir(), "error", err)
	}

	serverHandler.completeJob(job, payload, len(outputs), time.Since(start))
	completed = true
	metrics.OutputBytes.WithLabelValues(tool).Observe(float64(len(payload.Body)))
	Logger.Info("Conversion returned", "tool", tool, "file", payload.Filename, "bytes", len(payload.Body), "requestID", requestID)

	if id := jobID(job); id != "" {
		c.Response().Header().Set(HeaderJobID, id)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+payload.Filename)
	return c.Blob(http.StatusOK, payload.ContentType, payload.Body)
}

// readUploads reads the request parts in order. Every "files" part is an upload, including one sent
// without a filename. A body that is not a multipart form has no files.
func readUploads(c echo.Context, spool *scratch.Scope) (*uploadRequest, error) {
	upload := &uploadRequest{}
	reader, err := c.Request().MultipartReader()
	if err != nil {
		Logger.Debug("Request is not a multipart form", "error", err)
		return upload, nil
	}

	toolSeen := false
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return upload, nil
		}
		if err != nil {
			return nil, uploadError(err)
		}

		switch part.FormName() {
		case "files":
			file, err := spoolPart(part, spool.Path(fmt.Sprintf("upload-%d", len(upload.files)+1)))
			if err != nil {
				part.Close()
				return nil, uploadError(err)
			}
			upload.files = append(upload.files, file)
		case "tool":
			value, err := io.ReadAll(io.LimitReader(part, maxToolLength))
			if err != nil {
				part.Close()
				return nil, uploadError(err)
			}
			if !toolSeen {
				upload.tool = string(value)
				toolSeen = true
			}
		}
		part.Close()
	}
}

// maxToolLength bounds the tool field; real tool names are far shorter
const maxToolLength = 256

func spoolPart(part *multipart.Part, path string) (spooledFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return spooledFile{}, err
	}
	size, err := io.Copy(file, part)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return spooledFile{}, err
	}
	return spooledFile{name: part.FileName(), path: path, size: size}, nil
}

// uploadError maps a failed body read to 413 when the body limit was hit, otherwise to "No files provided"
func uploadError(err error) error {
	var httpErr *echo.HTTPError
	var maxBytes *http.MaxBytesError
	if (errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge) || errors.As(err, &maxBytes) {
		return echo.ErrStatusRequestEntityTooLarge
	}
	Logger.Debug("Request is not a readable multipart form", "error", err)
	return converter.ErrNoFilesProvided
}

// startJob records the conversion in the job log. The job log is best effort and never fails a request.
func (serverHandler *ServerHandler) startJob(tool, requestID string, files []converter.UploadedFile) *database.Job {
	if serverHandler.DB == nil {
		return nil
	}
	var inputBytes int64
	for _, file := range files {
		if f, ok := file.(spooledFile); ok {
			inputBytes += f.size
		}
	}
	job, err := serverHandler.DB.CreateJob(database.JobSpec{
		Tool:       tool,
		RequestID:  requestID,
		InputCount: len(files),
		InputBytes: inputBytes,
	})
	if err != nil {
		Logger.Warn("Unable to record conversion job", "tool", tool, "error", err)
		return nil
	}
	return job
}

func (serverHandler *ServerHandler) completeJob(job *database.Job, payload *Payload, outputCount int, elapsed time.Duration) {
	if job == nil {
		return
	}
	err := serverHandler.DB.CompleteJob(job.ID, database.JobResult{
		OutputName:  payload.Filename,
		OutputCount: outputCount,
		OutputBytes: int64(len(payload.Body)),
		Elapsed:     elapsed,
	})
	if err != nil {
		Logger.Warn("Unable to complete conversion job", "jobID", job.ID, "error", err)
	}
}

func (serverHandler *ServerHandler) failJob(job *database.Job, cause error, elapsed time.Duration) {
	if job == nil {
		return
	}
	if err := serverHandler.DB.FailJob(job.ID, errorMessage(cause), elapsed); err != nil {
		Logger.Warn("Unable to fail conversion job", "jobID", job.ID, "error", err)
	}
}

// jobID is the job's ULID as text, or "" when the job log is unavailable
func jobID(job *database.Job) string {
	if job == nil {
		return ""
	}
	return job.ID.String()
}
