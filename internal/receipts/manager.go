// Package receipts manages the loaded receipt collection: faceted search,
// expand/collapse UI state and the two-step deletion protocol.
package receipts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"scontrino/internal/api"
	"scontrino/internal/core"
)

var (
	ErrNotLoaded      = errors.New("receipt collection not loaded")
	ErrUnknownReceipt = errors.New("unknown receipt id")
	ErrUnknownToken   = errors.New("unknown confirmation token")
	ErrDeleteInFlight = errors.New("delete already in flight for this receipt")
)

// Manager owns the client-side receipt collection. It is the single source
// of truth for list/search/delete; the dashboard's snapshot is fetched
// independently and never reconciled against it.
//
// The collection is loaded up to a fixed page bound and searched with a
// linear scan. Both are accepted scale ceilings at the assumed volume of
// hundreds of receipts.
type Manager struct {
	lister     api.ReceiptLister
	deleter    api.ReceiptDeleter
	fetchLimit int

	mu         sync.Mutex
	loaded     bool
	collection []core.Receipt
	stores     []string
	pending    map[string]int64
	deleting   map[int64]bool
	expandedID int64
	expanded   bool
}

func New(lister api.ReceiptLister, deleter api.ReceiptDeleter, fetchLimit int) *Manager {
	if fetchLimit <= 0 {
		fetchLimit = 100
	}
	return &Manager{
		lister:     lister,
		deleter:    deleter,
		fetchLimit: fetchLimit,
		pending:    make(map[string]int64),
		deleting:   make(map[int64]bool),
	}
}

// Load fetches the collection once and derives the distinct store facet in
// order of first occurrence. Reloading replaces everything, including any
// pending confirmations and UI state.
func (m *Manager) Load(ctx context.Context) error {
	receipts, err := m.lister.ListReceipts(ctx, m.fetchLimit)
	if err != nil {
		return fmt.Errorf("load receipts: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection = receipts
	m.stores = deriveStores(receipts)
	m.loaded = true
	m.pending = make(map[string]int64)
	m.deleting = make(map[int64]bool)
	m.expanded = false

	slog.DebugContext(ctx, "Receipt collection loaded",
		"receipts", len(receipts), "stores", len(m.stores), "limit", m.fetchLimit)
	return nil
}

func deriveStores(receipts []core.Receipt) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range receipts {
		if _, ok := seen[r.StoreName]; ok {
			continue
		}
		seen[r.StoreName] = struct{}{}
		out = append(out, r.StoreName)
	}
	return out
}

// Loaded reports whether Load has completed successfully.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Receipts returns a copy of the full collection in load order.
func (m *Manager) Receipts() []core.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Receipt(nil), m.collection...)
}

// Stores returns the distinct store-name facet, order of first occurrence.
func (m *Manager) Stores() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stores...)
}

// Search filters the in-memory collection: a receipt matches when term is
// empty or case-insensitively contained in the store name or any item name,
// and the store filter is empty or equals the store name exactly. Pure and
// recomputed on every call.
func (m *Manager) Search(term, storeFilter string) []core.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Receipt, 0, len(m.collection))
	for _, r := range m.collection {
		if matches(r, term, storeFilter) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r core.Receipt, term, storeFilter string) bool {
	if storeFilter != "" && r.StoreName != storeFilter {
		return false
	}
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.StoreName), needle) {
		return true
	}
	for _, it := range r.Items {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			return true
		}
	}
	return false
}

// Get returns the receipt with the given id.
func (m *Manager) Get(id int64) (core.Receipt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.collection {
		if r.ID == id {
			return r, true
		}
	}
	return core.Receipt{}, false
}

// RequestDelete starts the deletion protocol for id, returning a
// confirmation token. Nothing is deleted until ConfirmDelete; CancelDelete
// aborts with no side effect.
func (m *Manager) RequestDelete(id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return "", ErrNotLoaded
	}
	if !m.containsLocked(id) {
		return "", ErrUnknownReceipt
	}
	if m.deleting[id] {
		return "", ErrDeleteInFlight
	}

	token := uuid.NewString()
	m.pending[token] = id
	return token, nil
}

// CancelDelete discards a pending confirmation. Unknown tokens are ignored:
// cancel must never have a side effect.
func (m *Manager) CancelDelete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, token)
}

// ConfirmDelete issues the delete request for the token's receipt. The
// local collection is only mutated after the server confirms, so a failure
// needs no rollback. Deletes of distinct ids run independently; only the id
// under deletion is marked busy.
func (m *Manager) ConfirmDelete(ctx context.Context, token string) error {
	m.mu.Lock()
	id, ok := m.pending[token]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownToken
	}
	delete(m.pending, token)
	if m.deleting[id] {
		m.mu.Unlock()
		return ErrDeleteInFlight
	}
	m.deleting[id] = true
	m.mu.Unlock()

	err := m.deleter.DeleteReceipt(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deleting, id)

	if err != nil {
		slog.WarnContext(ctx, "Receipt delete failed", "id", id, "error", err)
		return fmt.Errorf("delete receipt %d: %w", id, err)
	}

	m.removeLocked(id)
	slog.InfoContext(ctx, "Receipt deleted", "id", id, "remaining", len(m.collection))
	return nil
}

// Deleting reports whether a delete is in flight for id, so a view can show
// a per-row busy indicator without blocking other rows.
func (m *Manager) Deleting(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleting[id]
}

// Expand marks a receipt's detail view open. At most one receipt is
// expanded at a time; expanding another collapses the previous one.
func (m *Manager) Expand(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return ErrNotLoaded
	}
	if !m.containsLocked(id) {
		return ErrUnknownReceipt
	}
	m.expandedID = id
	m.expanded = true
	return nil
}

// Collapse closes any open detail view.
func (m *Manager) Collapse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expanded = false
}

// Expanded returns the currently expanded receipt id, if any.
func (m *Manager) Expanded() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.expanded {
		return 0, false
	}
	return m.expandedID, true
}

func (m *Manager) containsLocked(id int64) bool {
	for _, r := range m.collection {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (m *Manager) removeLocked(id int64) {
	for i, r := range m.collection {
		if r.ID == id {
			m.collection = append(m.collection[:i], m.collection[i+1:]...)
			break
		}
	}
	// The facet is re-derived: the deleted receipt may have been the only
	// one for its store.
	m.stores = deriveStores(m.collection)
	if m.expanded && m.expandedID == id {
		m.expanded = false
	}
}
