package receipts

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"scontrino/internal/core"
)

type fakeLister struct {
	receipts []core.Receipt
	err      error
	gotLimit int
}

func (f *fakeLister) ListReceipts(_ context.Context, limit int) ([]core.Receipt, error) {
	f.gotLimit = limit
	return f.receipts, f.err
}

type fakeDeleter struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]error
	gates map[int64]chan struct{}
}

func (f *fakeDeleter) DeleteReceipt(_ context.Context, id int64) error {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	gate := f.gates[id]
	err := f.fail[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeDeleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testCorpus() []core.Receipt {
	date := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	return []core.Receipt{
		{
			ID: 1, StoreName: "Acme Mart", PurchaseDate: date,
			TotalAmount: 6.42, TaxAmount: 0.42, SourceType: core.SourceScan,
			Items: []core.LineItem{{Name: "Milk", Quantity: 2, UnitPrice: 3.00, TotalPrice: 6.00}},
		},
		{
			ID: 2, StoreName: "Corner Grocer", PurchaseDate: date.AddDate(0, 0, -4),
			TotalAmount: 11.30, SourceType: core.SourceEmail,
			Items: []core.LineItem{{Name: "Eggs", Quantity: 1, UnitPrice: 4.20, TotalPrice: 4.20}},
		},
		{
			ID: 3, StoreName: "Acme Mart", PurchaseDate: date.AddDate(0, -1, 0),
			TotalAmount: 8.75, SourceType: core.SourceScan,
			Items: []core.LineItem{{Name: "Oat Milk", Quantity: 1, UnitPrice: 2.90, TotalPrice: 2.90}},
		},
	}
}

func loadedManager(t *testing.T, deleter *fakeDeleter) *Manager {
	t.Helper()
	if deleter == nil {
		deleter = &fakeDeleter{}
	}
	m := New(&fakeLister{receipts: testCorpus()}, deleter, 100)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoadDerivesStoreFacet(t *testing.T) {
	lister := &fakeLister{receipts: testCorpus()}
	m := New(lister, &fakeDeleter{}, 100)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lister.gotLimit != 100 {
		t.Fatalf("fetch limit=%d, want 100", lister.gotLimit)
	}
	want := []string{"Acme Mart", "Corner Grocer"}
	if got := m.Stores(); !reflect.DeepEqual(got, want) {
		t.Fatalf("facet=%v, want %v (first occurrence order)", got, want)
	}
}

func TestLoadFailurePropagates(t *testing.T) {
	m := New(&fakeLister{err: errors.New("boom")}, &fakeDeleter{}, 50)
	if err := m.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if m.Loaded() {
		t.Fatal("manager must not report loaded after failure")
	}
}

func TestSearchTermMatchesStoreAndItemNames(t *testing.T) {
	m := loadedManager(t, nil)

	// Case-insensitive substring on item name.
	got := m.Search("milk", "")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("search(milk) = %v", ids(got))
	}

	// Substring on store name.
	if got := m.Search("corner", ""); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("search(corner) = %v", ids(got))
	}

	// Empty term matches everything.
	if got := m.Search("", ""); len(got) != 3 {
		t.Fatalf("search empty = %v", ids(got))
	}
}

func TestSearchStoreFilterIsExact(t *testing.T) {
	m := loadedManager(t, nil)

	got := m.Search("", "Acme Mart")
	if len(got) != 2 {
		t.Fatalf("exact store filter = %v", ids(got))
	}
	for _, r := range got {
		if r.StoreName != "Acme Mart" {
			t.Fatalf("filter leaked store %q", r.StoreName)
		}
	}

	// Exact means exact: no substring, no case folding.
	if got := m.Search("", "Acme"); len(got) != 0 {
		t.Fatalf("substring store filter should match nothing, got %v", ids(got))
	}
	if got := m.Search("", "acme mart"); len(got) != 0 {
		t.Fatalf("case-insensitive store filter should match nothing, got %v", ids(got))
	}
	if got := m.Search("", "Other Store"); len(got) != 0 {
		t.Fatalf("unknown store filter should match nothing, got %v", ids(got))
	}
}

func TestSearchScenarioAcmeMilk(t *testing.T) {
	lister := &fakeLister{receipts: []core.Receipt{{
		ID: 1, StoreName: "Acme Mart",
		PurchaseDate: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		TotalAmount:  6.42, TaxAmount: 0.42, SourceType: core.SourceScan,
		Items: []core.LineItem{{Name: "Milk", Quantity: 2, UnitPrice: 3.00, TotalPrice: 6.00}},
	}}}
	m := New(lister, &fakeDeleter{}, 100)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := m.Search("milk", "")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("search(milk) = %v, want exactly the Acme Mart receipt", ids(got))
	}
	if got := m.Search("", "Other Store"); len(got) != 0 {
		t.Fatalf("search(\"\", Other Store) = %v, want empty", ids(got))
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	m := loadedManager(t, nil)
	first := m.Search("milk", "Acme Mart")
	second := m.Search("milk", "Acme Mart")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-applied search differs: %v vs %v", ids(first), ids(second))
	}
}

func TestUnloadedManagerRejectsMutations(t *testing.T) {
	m := New(&fakeLister{}, &fakeDeleter{}, 100)

	if _, err := m.RequestDelete(1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("RequestDelete before Load: got %v, want ErrNotLoaded", err)
	}
	if err := m.Expand(1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Expand before Load: got %v, want ErrNotLoaded", err)
	}
}

func TestRequestDeleteUnknownIDFailsWithoutMutation(t *testing.T) {
	deleter := &fakeDeleter{}
	m := loadedManager(t, deleter)

	if _, err := m.RequestDelete(99); !errors.Is(err, ErrUnknownReceipt) {
		t.Fatalf("expected ErrUnknownReceipt, got %v", err)
	}
	if len(m.Receipts()) != 3 {
		t.Fatal("collection mutated by failed request")
	}
	if deleter.callCount() != 0 {
		t.Fatal("no network call may happen before confirmation")
	}
}

func TestCancelDeleteHasNoSideEffect(t *testing.T) {
	deleter := &fakeDeleter{}
	m := loadedManager(t, deleter)

	token, err := m.RequestDelete(1)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	m.CancelDelete(token)

	if len(m.Receipts()) != 3 || deleter.callCount() != 0 {
		t.Fatal("cancel must leave everything untouched")
	}
	// The token is spent: confirming it now fails.
	if err := m.ConfirmDelete(context.Background(), token); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken after cancel, got %v", err)
	}
}

func TestConfirmDeleteRemovesReceiptAndCollapses(t *testing.T) {
	deleter := &fakeDeleter{}
	m := loadedManager(t, deleter)

	if err := m.Expand(2); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	token, err := m.RequestDelete(2)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if err := m.ConfirmDelete(context.Background(), token); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}

	if _, ok := m.Get(2); ok {
		t.Fatal("receipt 2 still present after confirmed delete")
	}
	if _, ok := m.Expanded(); ok {
		t.Fatal("deleting the expanded receipt must collapse it")
	}
	// Corner Grocer had a single receipt: the facet drops it.
	if got := m.Stores(); !reflect.DeepEqual(got, []string{"Acme Mart"}) {
		t.Fatalf("facet after delete = %v", got)
	}
}

func TestDeleteFailureLeavesCollectionUntouched(t *testing.T) {
	deleter := &fakeDeleter{fail: map[int64]error{1: errors.New("server unavailable")}}
	m := loadedManager(t, deleter)

	token, _ := m.RequestDelete(1)
	if err := m.ConfirmDelete(context.Background(), token); err == nil {
		t.Fatal("expected delete failure")
	}
	if len(m.Receipts()) != 3 {
		t.Fatal("failed delete must not mutate the collection")
	}
	if m.Deleting(1) {
		t.Fatal("busy flag must clear after failure")
	}
}

func TestConcurrentDeletesOfDistinctIDsAreIndependent(t *testing.T) {
	gate := make(chan struct{})
	deleter := &fakeDeleter{gates: map[int64]chan struct{}{1: gate}}
	m := loadedManager(t, deleter)

	tokenA, _ := m.RequestDelete(1)
	tokenB, _ := m.RequestDelete(2)

	done := make(chan error, 1)
	go func() { done <- m.ConfirmDelete(context.Background(), tokenA) }()

	// Wait until A is actually in flight.
	for i := 0; !m.Deleting(1); i++ {
		if i > 1000 {
			t.Fatal("delete of id 1 never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	// B completes while A is still blocked.
	if err := m.ConfirmDelete(context.Background(), tokenB); err != nil {
		t.Fatalf("delete of id 2 blocked by id 1: %v", err)
	}
	if _, ok := m.Get(2); ok {
		t.Fatal("receipt 2 should be gone")
	}
	if !m.Deleting(1) {
		t.Fatal("id 1 should still be busy")
	}
	if m.Deleting(2) {
		t.Fatal("id 2 busy flag should be clear")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("delete of id 1: %v", err)
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("receipt 1 should be gone after gate release")
	}
}

func TestExpandIsMutuallyExclusive(t *testing.T) {
	m := loadedManager(t, nil)

	if err := m.Expand(99); !errors.Is(err, ErrUnknownReceipt) {
		t.Fatalf("expanding unknown id: %v", err)
	}
	if err := m.Expand(1); err != nil {
		t.Fatalf("Expand(1): %v", err)
	}
	if err := m.Expand(3); err != nil {
		t.Fatalf("Expand(3): %v", err)
	}
	if id, ok := m.Expanded(); !ok || id != 3 {
		t.Fatalf("expanded=%d,%v; want 3", id, ok)
	}
	m.Collapse()
	if _, ok := m.Expanded(); ok {
		t.Fatal("still expanded after Collapse")
	}
}

func ids(rs []core.Receipt) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
