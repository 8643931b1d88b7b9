package api

import (
	"time"

	"scontrino/internal/core"
)

// Wire payloads for the analytics endpoints. Field names follow the server's
// JSON; all monetary values are decimal numbers formatted client-side for
// display only.

type SummaryPayload struct {
	TotalSpent         float64        `json:"total_spent"`
	TotalReceipts      int            `json:"total_receipts"`
	AverageReceipt     float64        `json:"average_receipt"`
	TotalItems         int            `json:"total_items"`
	FirstReceiptDate   string         `json:"first_receipt_date"`
	LastReceiptDate    string         `json:"last_receipt_date"`
	MostExpensiveItem  *ExpensiveItem `json:"most_expensive_item"`
	MostCommonCategory string         `json:"most_common_category"`
}

type ExpensiveItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Date  string  `json:"date"`
	Store string  `json:"store"`
}

type TrendPoint struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	MonthName      string  `json:"month_name"`
	Label          string  `json:"label"`
	TotalSpent     float64 `json:"total_spent"`
	ReceiptCount   int     `json:"receipt_count"`
	AverageReceipt float64 `json:"average_receipt"`
}

type MonthlyTrendsPayload struct {
	Trends              []TrendPoint `json:"trends"`
	TotalPeriodSpend    float64      `json:"total_period_spend"`
	AverageMonthlySpend float64      `json:"average_monthly_spend"`
}

type CategoryShare struct {
	Category   string  `json:"category"`
	TotalSpent float64 `json:"total_spent"`
	Percentage float64 `json:"percentage"`
	ItemCount  int     `json:"item_count"`
	// Color is a server-assigned display attribute, carried opaquely.
	Color string `json:"color"`
}

type CategoryBreakdownPayload struct {
	Categories []CategoryShare `json:"categories"`
	TotalSpend float64         `json:"total_spend"`
}

type TopItem struct {
	Name          string  `json:"name"`
	TotalSpent    float64 `json:"total_spent"`
	PurchaseCount int     `json:"purchase_count"`
	AveragePrice  float64 `json:"average_price"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	Category      string  `json:"category"`
}

type TopItemsPayload struct {
	Items []TopItem `json:"items"`
}

type StoreStat struct {
	StoreName      string  `json:"store_name"`
	TotalSpent     float64 `json:"total_spent"`
	VisitCount     int     `json:"visit_count"`
	AverageReceipt float64 `json:"average_receipt"`
	TotalTax       float64 `json:"total_tax"`
	Percentage     float64 `json:"percentage"`
}

type StoreComparisonPayload struct {
	Stores     []StoreStat `json:"stores"`
	TotalSpend float64     `json:"total_spend"`
}

type FrequencyPayload struct {
	AverageDaysBetweenTrips float64 `json:"average_days_between_trips"`
	ShoppingFrequency       string  `json:"shopping_frequency"`
	TotalTrips              int     `json:"total_trips"`
}

type WasteInsight struct {
	ItemName          string  `json:"item_name"`
	PurchaseFrequency int     `json:"purchase_frequency"`
	AverageQuantity   float64 `json:"average_quantity"`
	TotalSpent        float64 `json:"total_spent"`
	Suggestion        string  `json:"suggestion"`
}

type WasteInsightsPayload struct {
	Insights []WasteInsight `json:"insights"`
}

// receiptPayload is the wire shape of a receipt.
type receiptPayload struct {
	ID           int64         `json:"id"`
	StoreName    string        `json:"store_name"`
	PurchaseDate string        `json:"purchase_date"`
	TotalAmount  float64       `json:"total_amount"`
	TaxAmount    float64       `json:"tax_amount"`
	SourceType   string        `json:"source_type"`
	SourceFile   string        `json:"source_file"`
	CreatedAt    string        `json:"created_at"`
	Items        []itemPayload `json:"items"`
}

type itemPayload struct {
	ID         int64   `json:"id"`
	ReceiptID  int64   `json:"receipt_id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Category   string  `json:"category"`
}

type receiptListPayload struct {
	Receipts []receiptPayload `json:"receipts"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// uploadEnvelope wraps a freshly created receipt.
type uploadEnvelope struct {
	Success bool           `json:"success"`
	Receipt receiptPayload `json:"receipt"`
	Message string         `json:"message"`
}

type deleteEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (p receiptPayload) toCore() core.Receipt {
	purchase, err := core.ParseDate(p.PurchaseDate)
	if err != nil {
		purchase = time.Time{}
	}
	created, err := core.ParseDate(p.CreatedAt)
	if err != nil {
		created = time.Time{}
	}
	items := make([]core.LineItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, core.LineItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
			Category:   it.Category,
		})
	}
	return core.Receipt{
		ID:           p.ID,
		StoreName:    p.StoreName,
		PurchaseDate: purchase,
		TotalAmount:  p.TotalAmount,
		TaxAmount:    p.TaxAmount,
		SourceType:   core.SourceType(p.SourceType),
		SourceFile:   p.SourceFile,
		CreatedAt:    created,
		Items:        items,
	}
}
