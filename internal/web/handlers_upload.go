package web

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/custingest/internal/core"
	mw "github.com/JonMunkholm/custingest/internal/web/middleware"
)

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Message string             `json:"message"`
	Summary core.UploadSummary `json:"summary"`
}

// handleUploadCSV ingests the multipart field "file" on behalf of the
// caller named by the identity header. Rows are streamed to the store in
// batches; the response arrives once the whole file is processed.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	src, err := openUpload(r, s.cfg.Upload.MaxMemory)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx := r.Context()
	if s.cfg.Upload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()
	}

	summary, err := s.ingester.Ingest(ctx, src, mw.UserIDFromContext(r.Context()))
	if err != nil {
		respondIngestError(w, r, err, summary)
		return
	}

	writeJSON(w, UploadResponse{
		Message: "File processed successfully",
		Summary: summary,
	})
}

// openUpload returns the uploaded file, or nil when the request carries
// none. A missing file is not an error here so the coordinator can reject
// an unauthenticated caller first. Only an oversized body fails early.
func openUpload(r *http.Request, maxMemory int64) (io.ReadCloser, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		return nil, nil
	}
	return &formFile{File: file, form: r.MultipartForm}, nil
}

// formFile closes the part and deletes any temp files the form spilled to
// disk.
type formFile struct {
	multipart.File
	form *multipart.Form
}

func (f *formFile) Close() error {
	return errors.Join(f.File.Close(), f.form.RemoveAll())
}
