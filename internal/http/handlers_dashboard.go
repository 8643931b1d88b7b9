package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"scontrino/internal/core"
	"scontrino/internal/dashboard"
)

// dashboardView is the template-facing shape of a snapshot, with monetary
// values pre-formatted for display.
type dashboardView struct {
	TotalSpent     string
	TotalReceipts  int
	AverageReceipt string
	TotalItems     int

	MostExpensiveName  string
	MostExpensivePrice string
	MostCommonCategory string

	Trend      []trendRow
	Categories []categoryRow
	Stores     []storeRow
	TopItems   []topItemRow

	FrequencyLabel string
	DaysBetween    string
	TotalTrips     int

	Insights []insightRow
}

type trendRow struct {
	Label  string
	Amount string
	Width  int
}

type categoryRow struct {
	Label   string
	Amount  string
	Color   string
	Percent int
}

type storeRow struct {
	Label  string
	Amount string
	Visits int
	Width  int
}

type topItemRow struct {
	Name     string
	Spent    string
	Count    int
	Category string
}

type insightRow struct {
	Item       string
	Suggestion string
	Spent      string
}

// handleDashboard activates the aggregation controller and renders the full
// dashboard partial. Any fetch failure yields the error state with a retry
// affordance; partial data is never shown.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	snap, err := s.dash.Activate(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard activation failed", "error", err)
		s.renderTemplate(w, r, "dashboard_error.html", nil)
		return
	}

	if snap.Empty() {
		s.renderTemplate(w, r, "dashboard_empty.html", nil)
		return
	}

	s.renderTemplate(w, r, "dashboard.html", buildDashboardView(snap))
}

// handleTrendData serves the spending line chart data as JSON.
func (s *Server) handleTrendData(w http.ResponseWriter, r *http.Request) {
	s.serveChartData(w, r, func(snap *dashboard.Snapshot) any { return snap.TimeSeries })
}

// handleCategoryData serves the category proportion chart data as JSON.
func (s *Server) handleCategoryData(w http.ResponseWriter, r *http.Request) {
	s.serveChartData(w, r, func(snap *dashboard.Snapshot) any { return snap.CategoryShares })
}

// handleStoreData serves the store comparison chart data as JSON.
func (s *Server) handleStoreData(w http.ResponseWriter, r *http.Request) {
	s.serveChartData(w, r, func(snap *dashboard.Snapshot) any { return snap.StoreBars })
}

func (s *Server) serveChartData(w http.ResponseWriter, r *http.Request, pick func(*dashboard.Snapshot) any) {
	snap, err := s.dash.Activate(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Chart data fetch failed", "error", err, "url", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "analytics unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pick(snap)); err != nil {
		slog.ErrorContext(r.Context(), "Chart data encoding failed", "error", err, "url", r.URL.Path)
	}
}

func buildDashboardView(snap *dashboard.Snapshot) dashboardView {
	v := dashboardView{
		TotalSpent:         core.FormatAmount(snap.Summary.TotalSpent),
		TotalReceipts:      snap.Summary.TotalReceipts,
		AverageReceipt:     core.FormatAmount(snap.Summary.AverageReceipt),
		TotalItems:         snap.Summary.TotalItems,
		MostCommonCategory: snap.Summary.MostCommonCategory,
		FrequencyLabel:     snap.Frequency.ShoppingFrequency,
		DaysBetween:        core.FormatAmount(snap.Frequency.AverageDaysBetweenTrips),
		TotalTrips:         snap.Frequency.TotalTrips,
	}

	if top := snap.Summary.MostExpensiveItem; top != nil {
		v.MostExpensiveName = top.Name
		v.MostExpensivePrice = core.FormatAmount(top.Price)
	}

	var maxTrend float64
	for _, p := range snap.TimeSeries {
		if p.Amount > maxTrend {
			maxTrend = p.Amount
		}
	}
	for _, p := range snap.TimeSeries {
		v.Trend = append(v.Trend, trendRow{
			Label:  p.Label,
			Amount: core.FormatAmount(p.Amount),
			Width:  barWidth(p.Amount, maxTrend),
		})
	}

	var totalCat float64
	for _, c := range snap.CategoryShares {
		totalCat += c.Value
	}
	for _, c := range snap.CategoryShares {
		percent := 0
		if totalCat > 0 {
			percent = int((c.Value*100 + totalCat/2) / totalCat)
		}
		v.Categories = append(v.Categories, categoryRow{
			Label:   c.Label,
			Amount:  core.FormatAmount(c.Value),
			Color:   c.Color,
			Percent: percent,
		})
	}

	var maxStore float64
	for _, st := range snap.StoreBars {
		if st.Value > maxStore {
			maxStore = st.Value
		}
	}
	for _, st := range snap.StoreBars {
		v.Stores = append(v.Stores, storeRow{
			Label:  st.Label,
			Amount: core.FormatAmount(st.Value),
			Visits: st.Visits,
			Width:  barWidth(st.Value, maxStore),
		})
	}

	for _, it := range snap.TopItems {
		v.TopItems = append(v.TopItems, topItemRow{
			Name:     it.Name,
			Spent:    core.FormatAmount(it.TotalSpent),
			Count:    it.PurchaseCount,
			Category: it.Category,
		})
	}

	for _, in := range snap.Insights {
		v.Insights = append(v.Insights, insightRow{
			Item:       in.ItemName,
			Suggestion: in.Suggestion,
			Spent:      core.FormatAmount(in.TotalSpent),
		})
	}

	return v
}

// barWidth scales a value to a rounded percent of the maximum, keeping very
// small non-zero values visible.
func barWidth(value, max float64) int {
	if max <= 0 || value <= 0 {
		return 0
	}
	width := int((value*100 + max/2) / max)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
