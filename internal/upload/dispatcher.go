// Package upload drives a single receipt-upload attempt through its state
// machine: idle, validating, submitting, then success or error.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"scontrino/internal/api"
	"scontrino/internal/core"
)

const (
	ModeScan  Mode = "scan"
	ModeEmail Mode = "email"

	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// genericFailure is shown when the server gives no message of its own.
const genericFailure = "Upload failed. Please try again."

type (
	Mode   string
	Status string
)

var (
	ErrNoFile             = errors.New("no file selected")
	ErrNotImage           = errors.New("file is not an image")
	ErrNotEmailExport     = errors.New("file is not a .eml mail export")
	ErrInvalidMode        = errors.New("invalid upload mode")
	ErrNotValidated       = errors.New("no validated file to submit")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// Dispatcher tracks one upload attempt slot. Selecting a file starts a
// brand-new attempt; at most one submission is outstanding at any time and
// a submission, once started, runs to completion (no cancellation).
//
// Validation is local and advisory: the server performs the authoritative
// checks. A file that fails the local check never reaches the network.
type Dispatcher struct {
	uploader api.ReceiptUploader

	mu       sync.Mutex
	mode     Mode
	status   Status
	filename string
	data     []byte
	result   core.Receipt
	message  string
	err      error
}

func New(uploader api.ReceiptUploader) *Dispatcher {
	return &Dispatcher{uploader: uploader, status: StatusIdle}
}

// Select starts a new attempt for the given mode, discarding any previous
// terminal attempt. It validates the candidate locally: scan mode requires
// sniffed image content, email mode a .eml filename. A selection while a
// submission is in flight is rejected.
func (d *Dispatcher) Select(mode Mode, filename string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}

	// Fresh attempt: previous status and result are gone.
	d.mode = mode
	d.filename = filename
	d.data = data
	d.result = core.Receipt{}
	d.message = ""
	d.err = nil
	d.status = StatusValidating

	if err := validate(mode, filename, data); err != nil {
		d.status = StatusError
		d.err = err
		d.message = err.Error()
		slog.Debug("Upload candidate rejected locally",
			"mode", string(mode), "filename", filename, "error", err)
		return err
	}
	return nil
}

func validate(mode Mode, filename string, data []byte) error {
	if len(data) == 0 {
		return ErrNoFile
	}
	switch mode {
	case ModeScan:
		detected := mimetype.Detect(data)
		if !strings.HasPrefix(detected.String(), "image/") {
			return fmt.Errorf("%w (detected %s)", ErrNotImage, detected.String())
		}
	case ModeEmail:
		if !strings.HasSuffix(strings.ToLower(filename), ".eml") {
			return ErrNotEmailExport
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

// Submit sends the validated file to the server. Exactly one submission may
// be outstanding; once started it cannot be aborted and settles in success
// or error.
func (d *Dispatcher) Submit(ctx context.Context) error {
	d.mu.Lock()
	switch d.status {
	case StatusSubmitting:
		d.mu.Unlock()
		return ErrSubmissionInFlight
	case StatusValidating:
		// Validated and ready to go.
	default:
		d.mu.Unlock()
		return ErrNotValidated
	}
	d.status = StatusSubmitting
	mode, filename, data := d.mode, d.filename, d.data
	d.mu.Unlock()

	var (
		receipt core.Receipt
		err     error
	)
	switch mode {
	case ModeScan:
		receipt, err = d.uploader.UploadScan(ctx, filename, data)
	case ModeEmail:
		receipt, err = d.uploader.UploadEmail(ctx, filename, data)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.status = StatusError
		d.err = err
		d.message = api.ServerMessage(err, genericFailure)
		slog.Warn("Upload failed", "mode", string(mode), "filename", filename, "error", err)
		return err
	}

	d.status = StatusSuccess
	d.result = receipt
	d.message = ""
	slog.Info("Upload succeeded",
		"mode", string(mode), "filename", filename,
		"receipt_id", receipt.ID, "store", receipt.StoreName)
	return nil
}

// Status returns the attempt's current state.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Mode returns the attempt's source mode.
func (d *Dispatcher) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Result returns the created receipt after a successful attempt.
func (d *Dispatcher) Result() (core.Receipt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != StatusSuccess {
		return core.Receipt{}, false
	}
	return d.result, true
}

// Message returns the user-facing failure message for an errored attempt:
// the server's words when it gave any, a generic fallback otherwise.
func (d *Dispatcher) Message() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.message
}

// Err returns the underlying error of an errored attempt.
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Reset returns the slot to idle, discarding a terminal attempt. A slot
// mid-submission cannot be reset.
func (d *Dispatcher) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}
	d.mode = ""
	d.status = StatusIdle
	d.filename = ""
	d.data = nil
	d.result = core.Receipt{}
	d.message = ""
	d.err = nil
	return nil
}
