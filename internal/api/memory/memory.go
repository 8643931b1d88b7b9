// Package memory is an in-process stand-in for the tracker backend, used by
// tests and for running the client without a live server. It mimics the
// server's payload semantics on a small receipt corpus.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"scontrino/internal/api"
	"scontrino/internal/core"
)

var categoryColors = map[string]string{
	"Produce":   "#4CAF50",
	"Meat":      "#F44336",
	"Dairy":     "#FFF9C4",
	"Bakery":    "#D7CCC8",
	"Snacks":    "#FF9800",
	"Beverages": "#2196F3",
	"Frozen":    "#B3E5FC",
	"Household": "#E91E63",
	"Pantry":    "#795548",
	"Other":     "#9E9E9E",
}

func colorFor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return categoryColors["Other"]
}

type Store struct {
	mu       sync.Mutex
	nextID   int64
	receipts []core.Receipt
}

func New(seed []core.Receipt) *Store {
	s := &Store{nextID: 1}
	for _, r := range seed {
		r.ID = s.nextID
		s.nextID++
		s.receipts = append(s.receipts, r)
	}
	return s
}

// NewWithSampleData seeds a handful of receipts so the client has something
// to render when no backend is configured.
func NewWithSampleData() *Store {
	now := time.Now()
	return New([]core.Receipt{
		{
			StoreName:    "Acme Mart",
			PurchaseDate: now.AddDate(0, 0, -3),
			TotalAmount:  23.17,
			TaxAmount:    1.43,
			SourceType:   core.SourceScan,
			Items: []core.LineItem{
				{Name: "Milk", Quantity: 2, UnitPrice: 3.00, TotalPrice: 6.00, Category: "Dairy"},
				{Name: "Bread", Quantity: 1, UnitPrice: 2.80, TotalPrice: 2.80, Category: "Bakery"},
				{Name: "Apples", Quantity: 1.2, UnitPrice: 2.50, TotalPrice: 3.00, Category: "Produce"},
				{Name: "Coffee", Quantity: 1, UnitPrice: 9.94, TotalPrice: 9.94, Category: "Beverages"},
			},
		},
		{
			StoreName:    "Corner Grocer",
			PurchaseDate: now.AddDate(0, 0, -10),
			TotalAmount:  11.30,
			TaxAmount:    0.70,
			SourceType:   core.SourceEmail,
			Items: []core.LineItem{
				{Name: "Milk", Quantity: 1, UnitPrice: 3.10, TotalPrice: 3.10, Category: "Dairy"},
				{Name: "Eggs", Quantity: 1, UnitPrice: 4.20, TotalPrice: 4.20, Category: "Dairy"},
				{Name: "Pasta", Quantity: 2, UnitPrice: 1.65, TotalPrice: 3.30, Category: "Pantry"},
			},
		},
		{
			StoreName:    "Acme Mart",
			PurchaseDate: now.AddDate(0, -1, -2),
			TotalAmount:  8.75,
			TaxAmount:    0.55,
			SourceType:   core.SourceScan,
			Items: []core.LineItem{
				{Name: "Bananas", Quantity: 1.5, UnitPrice: 1.50, TotalPrice: 2.25, Category: "Produce"},
				{Name: "Yogurt", Quantity: 4, UnitPrice: 1.25, TotalPrice: 5.00, Category: "Dairy"},
			},
		},
	})
}

func (s *Store) snapshot() []core.Receipt {
	out := make([]core.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// ListReceipts returns at most limit receipts, newest first.
func (s *Store) ListReceipts(_ context.Context, limit int) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.After(out[j].PurchaseDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteReceipt(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.receipts {
		if r.ID == id {
			s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
			return nil
		}
	}
	return &api.Error{StatusCode: http.StatusNotFound, Message: "receipt not found"}
}

// UploadScan accepts any payload and synthesizes a parsed receipt, the way
// the real server would after OCR.
func (s *Store) UploadScan(ctx context.Context, filename string, data []byte) (core.Receipt, error) {
	return s.addUpload(ctx, filename, data, core.SourceScan)
}

func (s *Store) UploadEmail(ctx context.Context, filename string, data []byte) (core.Receipt, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".eml") {
		return core.Receipt{}, &api.Error{StatusCode: http.StatusBadRequest, Message: "Only .eml files are supported"}
	}
	return s.addUpload(ctx, filename, data, core.SourceEmail)
}

func (s *Store) addUpload(_ context.Context, filename string, data []byte, src core.SourceType) (core.Receipt, error) {
	if len(data) == 0 {
		return core.Receipt{}, &api.Error{StatusCode: http.StatusBadRequest, Message: "No file provided"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := core.Receipt{
		ID:           s.nextID,
		StoreName:    "Unknown",
		PurchaseDate: time.Now(),
		TotalAmount:  4.50,
		TaxAmount:    0.28,
		SourceType:   src,
		SourceFile:   filename,
		CreatedAt:    time.Now(),
		Items: []core.LineItem{
			{Name: "Parsed item", Quantity: 1, UnitPrice: 4.50, TotalPrice: 4.50, Category: "Other"},
		},
	}
	s.nextID++
	s.receipts = append(s.receipts, r)
	return r, nil
}

func (s *Store) Summary(_ context.Context) (api.SummaryPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := api.SummaryPayload{TotalReceipts: len(s.receipts), MostCommonCategory: "N/A"}
	if len(s.receipts) == 0 {
		return out, nil
	}

	var mostExpensive *api.ExpensiveItem
	categoryCounts := map[string]int{}
	first, last := s.receipts[0].PurchaseDate, s.receipts[0].PurchaseDate
	for _, r := range s.receipts {
		out.TotalSpent += r.TotalAmount
		if r.PurchaseDate.Before(first) {
			first = r.PurchaseDate
		}
		if r.PurchaseDate.After(last) {
			last = r.PurchaseDate
		}
		for _, it := range r.Items {
			out.TotalItems += int(it.Quantity)
			categoryCounts[orOther(it.Category)]++
			if mostExpensive == nil || it.TotalPrice > mostExpensive.Price {
				mostExpensive = &api.ExpensiveItem{
					Name:  it.Name,
					Price: it.TotalPrice,
					Date:  r.PurchaseDate.Format(time.RFC3339),
					Store: r.StoreName,
				}
			}
		}
	}
	out.AverageReceipt = out.TotalSpent / float64(len(s.receipts))
	out.FirstReceiptDate = first.Format(time.RFC3339)
	out.LastReceiptDate = last.Format(time.RFC3339)
	out.MostExpensiveItem = mostExpensive

	best := 0
	for cat, n := range categoryCounts {
		if n > best {
			best, out.MostCommonCategory = n, cat
		}
	}
	return out, nil
}

func (s *Store) MonthlyTrends(_ context.Context, months int) (api.MonthlyTrendsPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if months <= 0 {
		months = 12
	}
	cutoff := time.Now().AddDate(0, 0, -months*30)

	type bucket struct {
		total float64
		count int
	}
	buckets := map[string]*bucket{}
	var keys []string
	for _, r := range s.receipts {
		if r.PurchaseDate.Before(cutoff) {
			continue
		}
		key := r.PurchaseDate.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.total += r.TotalAmount
		b.count++
	}
	sort.Strings(keys)

	var out api.MonthlyTrendsPayload
	for _, key := range keys {
		t, _ := time.Parse("2006-01", key)
		b := buckets[key]
		out.Trends = append(out.Trends, api.TrendPoint{
			Year:           t.Year(),
			Month:          int(t.Month()),
			MonthName:      t.Month().String(),
			Label:          fmt.Sprintf("%s %d", t.Month().String()[:3], t.Year()),
			TotalSpent:     b.total,
			ReceiptCount:   b.count,
			AverageReceipt: b.total / float64(b.count),
		})
		out.TotalPeriodSpend += b.total
	}
	if len(out.Trends) > 0 {
		out.AverageMonthlySpend = out.TotalPeriodSpend / float64(len(out.Trends))
	}
	return out, nil
}

func (s *Store) CategoryBreakdown(_ context.Context) (api.CategoryBreakdownPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := map[string]float64{}
	counts := map[string]int{}
	for _, r := range s.receipts {
		for _, it := range r.Items {
			cat := orOther(it.Category)
			totals[cat] += it.TotalPrice
			counts[cat]++
		}
	}

	var out api.CategoryBreakdownPayload
	for cat, amount := range totals {
		out.TotalSpend += amount
		out.Categories = append(out.Categories, api.CategoryShare{
			Category:   cat,
			TotalSpent: amount,
			ItemCount:  counts[cat],
			Color:      colorFor(cat),
		})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].TotalSpent > out.Categories[j].TotalSpent
	})
	for i := range out.Categories {
		if out.TotalSpend > 0 {
			out.Categories[i].Percentage = out.Categories[i].TotalSpent / out.TotalSpend * 100
		}
	}
	return out, nil
}

func (s *Store) TopItems(_ context.Context, limit int) (api.TopItemsPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type agg struct {
		total    float64
		count    int
		sum      float64
		min, max float64
		category string
	}
	byName := map[string]*agg{}
	var names []string
	for _, r := range s.receipts {
		for _, it := range r.Items {
			a, ok := byName[it.Name]
			if !ok {
				a = &agg{min: it.UnitPrice, max: it.UnitPrice, category: orOther(it.Category)}
				byName[it.Name] = a
				names = append(names, it.Name)
			}
			a.total += it.TotalPrice
			a.count++
			a.sum += it.UnitPrice
			if it.UnitPrice < a.min {
				a.min = it.UnitPrice
			}
			if it.UnitPrice > a.max {
				a.max = it.UnitPrice
			}
		}
	}

	var out api.TopItemsPayload
	for _, name := range names {
		a := byName[name]
		out.Items = append(out.Items, api.TopItem{
			Name:          name,
			TotalSpent:    a.total,
			PurchaseCount: a.count,
			AveragePrice:  a.sum / float64(a.count),
			MinPrice:      a.min,
			MaxPrice:      a.max,
			Category:      a.category,
		})
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].TotalSpent > out.Items[j].TotalSpent })
	if limit > 0 && len(out.Items) > limit {
		out.Items = out.Items[:limit]
	}
	return out, nil
}

func (s *Store) StoreComparison(_ context.Context) (api.StoreComparisonPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type agg struct {
		total, tax float64
		visits     int
	}
	byStore := map[string]*agg{}
	var names []string
	for _, r := range s.receipts {
		a, ok := byStore[r.StoreName]
		if !ok {
			a = &agg{}
			byStore[r.StoreName] = a
			names = append(names, r.StoreName)
		}
		a.total += r.TotalAmount
		a.tax += r.TaxAmount
		a.visits++
	}

	var out api.StoreComparisonPayload
	for _, name := range names {
		a := byStore[name]
		out.TotalSpend += a.total
		out.Stores = append(out.Stores, api.StoreStat{
			StoreName:      name,
			TotalSpent:     a.total,
			VisitCount:     a.visits,
			AverageReceipt: a.total / float64(a.visits),
			TotalTax:       a.tax,
		})
	}
	for i := range out.Stores {
		if out.TotalSpend > 0 {
			out.Stores[i].Percentage = out.Stores[i].TotalSpent / out.TotalSpend * 100
		}
	}
	sort.Slice(out.Stores, func(i, j int) bool { return out.Stores[i].TotalSpent > out.Stores[j].TotalSpent })
	return out, nil
}

func (s *Store) ShoppingFrequency(_ context.Context) (api.FrequencyPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.receipts) == 0 {
		return api.FrequencyPayload{ShoppingFrequency: "N/A"}, nil
	}

	dates := make([]time.Time, 0, len(s.receipts))
	for _, r := range s.receipts {
		dates = append(dates, r.PurchaseDate)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var gaps []float64
	for i := 1; i < len(dates); i++ {
		gap := dates[i].Sub(dates[i-1]).Hours() / 24
		if gap >= 1 {
			gaps = append(gaps, gap)
		}
	}
	var avg float64
	for _, g := range gaps {
		avg += g
	}
	if len(gaps) > 0 {
		avg /= float64(len(gaps))
	}

	freq := "Infrequent"
	switch {
	case avg <= 3:
		freq = "Very Frequent (Multiple times/week)"
	case avg <= 7:
		freq = "Weekly"
	case avg <= 14:
		freq = "Bi-weekly"
	case avg <= 30:
		freq = "Monthly"
	}
	return api.FrequencyPayload{
		AverageDaysBetweenTrips: avg,
		ShoppingFrequency:       freq,
		TotalTrips:              len(s.receipts),
	}, nil
}

func (s *Store) WasteInsights(_ context.Context) (api.WasteInsightsPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type agg struct {
		count int
		qty   float64
		total float64
	}
	byName := map[string]*agg{}
	var names []string
	for _, r := range s.receipts {
		for _, it := range r.Items {
			a, ok := byName[it.Name]
			if !ok {
				a = &agg{}
				byName[it.Name] = a
				names = append(names, it.Name)
			}
			a.count++
			a.qty += it.Quantity
			a.total += it.TotalPrice
		}
	}

	var out api.WasteInsightsPayload
	for _, name := range names {
		a := byName[name]
		avgQty := a.qty / float64(a.count)
		if a.count > 3 && avgQty <= 2 {
			out.Insights = append(out.Insights, api.WasteInsight{
				ItemName:          name,
				PurchaseFrequency: a.count,
				AverageQuantity:   avgQty,
				TotalSpent:        a.total,
				Suggestion:        "Consider buying in bulk to save money",
			})
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func orOther(category string) string {
	if strings.TrimSpace(category) == "" {
		return "Other"
	}
	return category
}
