package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/metrics"
)

// Import request errors.
const (
	msgNotMultipart   = "Request must be multipart/form-data with a file."
	msgUnreadableBody = "Failed to read request body."
	msgNoFile         = "No file provided. Use field name 'file' or 'csv'."
)

// importFields are the form fields an import file may arrive in, in order of preference.
var importFields = []string{"file", "csv"}

// handleImport validates an uploaded file and stores its valid rows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.serveImport(w, r, false)
}

// handleImportPreview runs the same validation without storing anything.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	s.serveImport(w, r, true)
}

func (s *Server) serveImport(w http.ResponseWriter, r *http.Request, preview bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	file, err := s.readImportFile(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	metrics.ImportsActive.Inc()
	start := time.Now()
	var result *core.ImportResult
	if preview {
		result, err = s.service.PreviewImport(r.Context(), actor.OrganizationID, file)
	} else {
		result, err = s.service.ImportAssets(r.Context(), actor.OrganizationID, file)
	}
	metrics.ImportsActive.Dec()
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordImport(preview, metrics.ImportError, 0, 0, elapsed)
		respondError(w, r, err)
		return
	}
	metrics.RecordImport(preview, metrics.ImportResult(result.Imported, result.Failed), result.Imported, result.Failed, elapsed)

	w.Header().Set("X-Import-ID", result.ImportID)
	writeJSONStatus(w, result.Status(), result)
}

// readImportFile pulls the uploaded file out of a multipart body.
func (s *Server) readImportFile(r *http.Request) (core.ImportFile, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return core.ImportFile{}, malformed(msgNotMultipart, nil)
	}

	if err := r.ParseMultipartForm(s.service.Options().MaxFileSize); err != nil {
		return core.ImportFile{}, s.bodyError(err)
	}
	defer r.MultipartForm.RemoveAll()

	var (
		f      multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range importFields {
		f, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if err != nil {
		return core.ImportFile{}, malformed(msgNoFile, err)
	}
	defer f.Close()

	if header.Size > s.service.Options().MaxFileSize {
		return core.ImportFile{}, s.service.FileTooLargeError()
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return core.ImportFile{}, s.bodyError(err)
	}
	return core.ImportFile{Name: header.Filename, Data: data}, nil
}

// bodyError maps a failure reading the request body. Hitting the body cap
// is reported like any other oversized file.
func (s *Server) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return s.service.FileTooLargeError()
	}
	return malformed(msgUnreadableBody, err)
}

func malformed(msg string, err error) *core.Error {
	return &core.Error{Kind: core.KindMalformed, Message: msg, Err: err}
}
