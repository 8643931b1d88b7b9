package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SourceScan  SourceType = "scan"
	SourceEmail SourceType = "email"
)

type (
	// SourceType says how a receipt entered the system.
	SourceType string

	// LineItem is one purchased product entry within a receipt.
	LineItem struct {
		Name       string
		Quantity   float64
		UnitPrice  float64
		TotalPrice float64
		Category   string
	}

	// Receipt is one purchase transaction. Amounts are server-computed and
	// trusted as-is; the client only formats them for display.
	Receipt struct {
		ID           int64
		StoreName    string
		PurchaseDate time.Time
		TotalAmount  float64
		TaxAmount    float64
		SourceType   SourceType
		SourceFile   string
		CreatedAt    time.Time
		Items        []LineItem
	}
)

var (
	ErrEmptyStoreName   = errors.New("empty store name")
	ErrInvalidSource    = errors.New("invalid source type")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrZeroPurchaseDate = errors.New("purchase date cannot be zero")
)

func (s SourceType) Validate() error {
	switch s {
	case SourceScan, SourceEmail:
		return nil
	}
	return ErrInvalidSource
}

func (r Receipt) Validate() error {
	if strings.TrimSpace(r.StoreName) == "" {
		return ErrEmptyStoreName
	}
	if r.PurchaseDate.IsZero() {
		return ErrZeroPurchaseDate
	}
	if r.TotalAmount < 0 || r.TaxAmount < 0 {
		return ErrNegativeAmount
	}
	return r.SourceType.Validate()
}

// ItemCount returns the number of line items on the receipt.
func (r Receipt) ItemCount() int {
	return len(r.Items)
}
