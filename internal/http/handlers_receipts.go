package http

import (
	"errors"
	"log/slog"
	"net/http"

	"scontrino/internal/api"
	"scontrino/internal/core"
	"scontrino/internal/receipts"
)

// receiptListView backs the receipt list partial.
type receiptListView struct {
	Term    string
	Store   string
	Stores  []string
	Rows    []receiptRow
	Message string
}

type receiptRow struct {
	ID        int64
	Store     string
	Date      string
	Total     string
	Tax       string
	ItemCount int
	Source    string
	Expanded  bool
	Deleting  bool
	// PendingToken carries a delete confirmation token when this row is
	// awaiting the user's decision.
	PendingToken string
	Items        []itemRow
}

type itemRow struct {
	Name     string
	Quantity string
	Price    string
	Category string
}

// handleReceiptsPage loads a fresh collection from the backend and renders
// the receipts page.
func (s *Server) handleReceiptsPage(w http.ResponseWriter, r *http.Request) {
	if err := s.receipts.Load(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Receipt load failed", "error", err)
		s.renderTemplate(w, r, "receipts.html", receiptListView{
			Message: "Could not load receipts. Please try again.",
		})
		return
	}
	s.renderTemplate(w, r, "receipts.html", s.listView(r, "", ""))
}

// handleReceiptList renders the filtered list partial.
func (s *Server) handleReceiptList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !s.receipts.Loaded() {
		if err := s.receipts.Load(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Receipt load failed", "error", err)
			s.renderTemplate(w, r, "receipt_list.html", receiptListView{
				Message: "Could not load receipts. Please try again.",
			})
			return
		}
	}
	term, store := searchParams(r)
	s.renderTemplate(w, r, "receipt_list.html", s.listView(r, term, store))
}

// handleDeleteRequest starts the two-step delete flow for one receipt.
// Nothing is removed yet; the row re-renders in its confirmation state.
func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseReceiptID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.receipts.RequestDelete(id)
	if err != nil {
		s.renderListError(w, r, err)
		return
	}

	term, store := searchParams(r)
	view := s.listView(r, term, store)
	for i := range view.Rows {
		if view.Rows[i].ID == id {
			view.Rows[i].PendingToken = token
		}
	}
	s.renderTemplate(w, r, "receipt_list.html", view)
}

// handleDeleteConfirm performs the server deletion, then removes the receipt
// locally only after the server confirmed.
func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := parseReceiptID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Snapshot the receipt before the server removes it, for the audit log.
	rec, known := s.receipts.Get(id)

	token := sanitizeInput(r.FormValue("token"))
	if err := s.receipts.ConfirmDelete(r.Context(), token); err != nil {
		slog.WarnContext(r.Context(), "Receipt delete failed", "error", err, "receipt_id", id)
		s.renderListError(w, r, err)
		return
	}

	if known {
		s.structured.LogReceiptDeleted(r.Context(), rec.ID, rec.StoreName, rec.TotalAmount, rec.ItemCount())
	}
	term, store := searchParams(r)
	s.renderTemplate(w, r, "receipt_list.html", s.listView(r, term, store))
}

// handleDeleteCancel abandons a pending delete with no side effects.
func (s *Server) handleDeleteCancel(w http.ResponseWriter, r *http.Request) {
	if _, err := parseReceiptID(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.receipts.CancelDelete(sanitizeInput(r.FormValue("token")))

	term, store := searchParams(r)
	s.renderTemplate(w, r, "receipt_list.html", s.listView(r, term, store))
}

// handleExpand opens one receipt's item detail, collapsing any other.
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	id, err := parseReceiptID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.receipts.Expand(id); err != nil {
		s.renderListError(w, r, err)
		return
	}

	term, store := searchParams(r)
	s.renderTemplate(w, r, "receipt_list.html", s.listView(r, term, store))
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	s.receipts.Collapse()
	term, store := searchParams(r)
	s.renderTemplate(w, r, "receipt_list.html", s.listView(r, term, store))
}

// listView snapshots the manager state into template rows, applying the
// current search filters.
func (s *Server) listView(r *http.Request, term, store string) receiptListView {
	view := receiptListView{
		Term:   term,
		Store:  store,
		Stores: s.receipts.Stores(),
	}

	matched := s.receipts.Search(term, store)
	expandedID, hasExpanded := s.receipts.Expanded()

	for _, rec := range matched {
		row := receiptRow{
			ID:        rec.ID,
			Store:     rec.StoreName,
			Date:      core.FormatDate(rec.PurchaseDate),
			Total:     core.FormatAmount(rec.TotalAmount),
			Tax:       core.FormatAmount(rec.TaxAmount),
			ItemCount: rec.ItemCount(),
			Source:    string(rec.SourceType),
			Deleting:  s.receipts.Deleting(rec.ID),
		}
		if hasExpanded && rec.ID == expandedID {
			row.Expanded = true
			for _, it := range rec.Items {
				row.Items = append(row.Items, itemRow{
					Name:     it.Name,
					Quantity: core.FormatAmount(it.Quantity),
					Price:    core.FormatAmount(it.TotalPrice),
					Category: it.Category,
				})
			}
		}
		view.Rows = append(view.Rows, row)
	}

	if len(view.Rows) == 0 && (term != "" || store != "") {
		view.Message = "No receipts match the current filters."
	}

	return view
}

// renderListError re-renders the list with a user-facing message derived
// from the failure.
func (s *Server) renderListError(w http.ResponseWriter, r *http.Request, err error) {
	term, store := searchParams(r)
	view := s.listView(r, term, store)

	switch {
	case errors.Is(err, receipts.ErrNotLoaded):
		view.Message = "Receipts are not loaded yet."
	case errors.Is(err, receipts.ErrUnknownReceipt):
		view.Message = "That receipt is no longer in the collection."
	case errors.Is(err, receipts.ErrUnknownToken):
		view.Message = "The delete confirmation expired. Please try again."
	case errors.Is(err, receipts.ErrDeleteInFlight):
		view.Message = "A delete is already in progress for this receipt."
	default:
		view.Message = api.ServerMessage(err, "Delete failed. Please try again.")
	}

	s.renderTemplate(w, r, "receipt_list.html", view)
}
