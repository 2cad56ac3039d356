package web

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for boundaries and part headers on top
// of the two files of an upload.
const multipartOverhead = 1 << 20

// UploadedFile is one CSV returned by the upload endpoint.
type UploadedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

// UploadResponse is the body returned by POST /api/upload.
type UploadResponse struct {
	Success bool                    `json:"success"`
	Files   map[string]UploadedFile `json:"files"`
}

// handleUpload accepts the two CSV files of a comparison as multipart fields
// file1 and file2 and echoes their contents back for preview and compare.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxFile := s.cfg.Upload.MaxFileSize.Int64()
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxFile+multipartOverhead)

	if err := r.ParseMultipartForm(maxFile); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respondError(w, r, errors.Mark(errors.Wrap(err, "parse upload"), core.ErrFileTooLarge))
			return
		}
		respondError(w, r, errors.Mark(errors.Wrap(err, "parse upload"), core.ErrInvalidRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	resp := UploadResponse{Success: true, Files: make(map[string]UploadedFile, 2)}
	for _, field := range []string{"file1", "file2"} {
		f, err := s.readUpload(r, field, maxFile)
		if err != nil {
			respondError(w, r, err)
			return
		}
		resp.Files[field] = *f
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) readUpload(r *http.Request, field string, maxFile int64) (*UploadedFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(core.ErrNoFile, "field %s", field), "Both CSV files are required")
	}
	defer file.Close()

	if !isCSVUpload(header) {
		return nil, errors.Wrapf(core.ErrNotCSV, "%s: %s", field, header.Filename)
	}
	if header.Size > maxFile {
		return nil, errors.WithHintf(errors.Wrapf(core.ErrFileTooLarge, "%s is %d bytes", field, header.Size),
			"Each file is limited to %s", s.cfg.Upload.MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxFile+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", field)
	}
	if int64(len(data)) > maxFile {
		return nil, errors.WithHintf(errors.Wrapf(core.ErrFileTooLarge, "%s", field),
			"Each file is limited to %s", s.cfg.Upload.MaxFileSize)
	}

	return &UploadedFile{
		Name: filepath.Base(header.Filename),
		Size: int64(len(data)),
		Data: string(data),
	}, nil
}

// isCSVUpload accepts a .csv extension or a text/csv content type.
func isCSVUpload(h *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(h.Filename), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(h.Header.Get("Content-Type"))
	return err == nil && mt == "text/csv"
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	CSVData string `json:"csvData"`
	MaxRows int    `json:"maxRows,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(w, r, s.cfg.Upload.MaxRequestSize.Int64(), &req); err != nil {
		respondError(w, r, err)
		return
	}

	preview, err := s.service.Preview(r.Context(), req.CSVData, req.MaxRows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req core.CompareRequest
	if err := decodeJSON(w, r, s.cfg.Upload.MaxRequestSize.Int64(), &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.service.Compare(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Result(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleExportRun downloads the missing rows (default) or the matches of a
// cached run as CSV.
func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	file, err := s.service.ExportRun(chi.URLParam(r, "runID"), r.URL.Query().Get("set"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeCSVAttachment(w, file)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req core.ExportRequest
	if err := decodeJSON(w, r, s.cfg.Upload.MaxRequestSize.Int64(), &req); err != nil {
		respondError(w, r, err)
		return
	}

	file, err := s.service.Export(req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeCSVAttachment(w, file)
}

func writeCSVAttachment(w http.ResponseWriter, file *core.ExportFile) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
