package api

import (
	"context"

	"scontrino/internal/core"
)

// Ports for the tracker backend. The server owns parsing, persistence and
// analytics computation; the client consumes results through these
// interfaces and never re-validates the numbers.
type (
	AnalyticsReader interface {
		Summary(ctx context.Context) (SummaryPayload, error)
		MonthlyTrends(ctx context.Context, months int) (MonthlyTrendsPayload, error)
		CategoryBreakdown(ctx context.Context) (CategoryBreakdownPayload, error)
		TopItems(ctx context.Context, limit int) (TopItemsPayload, error)
		StoreComparison(ctx context.Context) (StoreComparisonPayload, error)
		ShoppingFrequency(ctx context.Context) (FrequencyPayload, error)
		WasteInsights(ctx context.Context) (WasteInsightsPayload, error)
	}

	ReceiptLister interface {
		// ListReceipts returns at most limit receipts, newest first.
		ListReceipts(ctx context.Context, limit int) ([]core.Receipt, error)
	}

	ReceiptDeleter interface {
		DeleteReceipt(ctx context.Context, id int64) error
	}

	ReceiptUploader interface {
		UploadScan(ctx context.Context, filename string, data []byte) (core.Receipt, error)
		UploadEmail(ctx context.Context, filename string, data []byte) (core.Receipt, error)
	}

	// Pinger reports whether the backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
