package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"scontrino/internal/core"
	"scontrino/internal/upload"
)

// maxUploadBytes caps how much of a multipart body is read into memory.
const maxUploadBytes = 16 << 20 // 16MB

// uploadResultView backs the upload result partial.
type uploadResultView struct {
	Success bool
	Message string

	// Populated on success with the parsed receipt.
	Store     string
	Date      string
	Total     string
	ItemCount int
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, "upload.html", nil)
}

// handleUploadScan accepts a receipt photo or scan and submits it for parsing.
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.scanUploads, upload.ModeScan)
}

// handleUploadEmail accepts an exported order-confirmation email (.eml).
func (s *Server) handleUploadEmail(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.emailUploads, upload.ModeEmail)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, d *upload.Dispatcher, mode upload.Mode) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	filename, data, err := readUploadedFile(r)
	if err != nil {
		slog.WarnContext(r.Context(), "Upload read failed", "error", err, "mode", string(mode))
		s.renderUploadResult(w, r, http.StatusBadRequest, uploadResultView{
			Message: "Please choose a file to upload.",
		})
		return
	}

	if err := d.Select(mode, filename, data); err != nil {
		slog.WarnContext(r.Context(), "Upload rejected", "error", err, "mode", string(mode), "filename", filename)
		s.renderUploadResult(w, r, statusForUploadError(err), uploadResultView{
			Message: uploadErrorMessage(err),
		})
		return
	}

	if err := d.Submit(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Upload submission failed", "error", err, "mode", string(mode), "filename", filename)
		s.renderUploadResult(w, r, statusForUploadError(err), uploadResultView{
			Message: submitFailureMessage(d, err),
		})
		return
	}

	receipt, ok := d.Result()
	if !ok {
		s.renderUploadResult(w, r, http.StatusBadGateway, uploadResultView{
			Message: "Upload failed. Please try again.",
		})
		return
	}

	s.structured.LogUploadAccepted(r.Context(), filename, len(data), string(receipt.SourceType))

	s.renderUploadResult(w, r, http.StatusCreated, uploadResultView{
		Success:   true,
		Message:   "Receipt processed.",
		Store:     receipt.StoreName,
		Date:      core.FormatDate(receipt.PurchaseDate),
		Total:     core.FormatAmount(receipt.TotalAmount),
		ItemCount: receipt.ItemCount(),
	})
}

// readUploadedFile extracts the first file from a multipart form.
func readUploadedFile(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func (s *Server) renderUploadResult(w http.ResponseWriter, r *http.Request, status int, view uploadResultView) {
	w.WriteHeader(status)
	s.renderTemplate(w, r, "upload_result.html", view)
}

// submitFailureMessage picks the message for a failed submission. The
// dispatcher's message belongs to the attempt it ran; when the submission
// was rejected before running (another one in flight, or the slot was
// re-selected underneath it), that message is absent or stale, so the
// error itself decides.
func submitFailureMessage(d *upload.Dispatcher, err error) string {
	if errors.Is(err, upload.ErrSubmissionInFlight) || errors.Is(err, upload.ErrNotValidated) {
		return uploadErrorMessage(err)
	}
	if msg := d.Message(); msg != "" {
		return msg
	}
	return uploadErrorMessage(err)
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrNoFile):
		return "Please choose a file to upload."
	case errors.Is(err, upload.ErrNotImage):
		return "Scan uploads must be image files."
	case errors.Is(err, upload.ErrNotEmailExport):
		return "Email uploads must be .eml exports."
	case errors.Is(err, upload.ErrSubmissionInFlight):
		return "An upload is already in progress. Please wait."
	default:
		return "Upload failed. Please try again."
	}
}

func statusForUploadError(err error) int {
	switch {
	case errors.Is(err, upload.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, upload.ErrNoFile),
		errors.Is(err, upload.ErrNotImage),
		errors.Is(err, upload.ErrNotEmailExport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
