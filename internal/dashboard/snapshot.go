package dashboard

import (
	"time"

	"scontrino/internal/api"
)

type (
	// TimePoint is one label/amount pair of the spending line chart.
	TimePoint struct {
		Label  string  `json:"label"`
		Amount float64 `json:"amount"`
	}

	// CategorySlice is one slice of the category proportion chart. Color is
	// server-assigned and carried opaquely.
	CategorySlice struct {
		Label string  `json:"label"`
		Value float64 `json:"value"`
		Color string  `json:"color"`
	}

	// StoreBar is one bar of the store comparison chart.
	StoreBar struct {
		Label  string  `json:"label"`
		Value  float64 `json:"value"`
		Visits int     `json:"visits"`
	}

	// Snapshot is the composed set of view models backing the dashboard.
	// It is rebuilt fully on every activation and never reconciled against
	// the receipt collection.
	Snapshot struct {
		Summary        api.SummaryPayload
		TimeSeries     []TimePoint
		CategoryShares []CategorySlice
		StoreBars      []StoreBar
		TopItems       []api.TopItem
		Frequency      api.FrequencyPayload
		Insights       []api.WasteInsight
		FetchedAt      time.Time
	}
)

// Empty reports whether the corpus has no receipts at all. This is the
// empty-state signal, distinct from a fetch failure.
func (s *Snapshot) Empty() bool {
	return s.Summary.TotalReceipts == 0
}

func compose(
	summary api.SummaryPayload,
	trends api.MonthlyTrendsPayload,
	categories api.CategoryBreakdownPayload,
	topItems api.TopItemsPayload,
	stores api.StoreComparisonPayload,
	frequency api.FrequencyPayload,
	insights api.WasteInsightsPayload,
) *Snapshot {
	snap := &Snapshot{
		Summary:   summary,
		TopItems:  topItems.Items,
		Frequency: frequency,
		Insights:  insights.Insights,
		FetchedAt: time.Now(),
	}

	snap.TimeSeries = make([]TimePoint, 0, len(trends.Trends))
	for _, p := range trends.Trends {
		snap.TimeSeries = append(snap.TimeSeries, TimePoint{Label: p.Label, Amount: p.TotalSpent})
	}

	snap.CategoryShares = make([]CategorySlice, 0, len(categories.Categories))
	for _, c := range categories.Categories {
		snap.CategoryShares = append(snap.CategoryShares, CategorySlice{
			Label: c.Category,
			Value: c.TotalSpent,
			Color: c.Color,
		})
	}

	snap.StoreBars = make([]StoreBar, 0, len(stores.Stores))
	for _, st := range stores.Stores {
		snap.StoreBars = append(snap.StoreBars, StoreBar{
			Label:  st.StoreName,
			Value:  st.TotalSpent,
			Visits: st.VisitCount,
		})
	}

	return snap
}
