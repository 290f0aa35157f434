// Package salesorder implements the transactional sales engine: atomic
// conversion of batch quantity into sold line items with per-line discounts
// and profit.
package salesorder

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/pricing"
)

// SalesOrder is a multi-line sales transaction. Once locked by a profit
// share execution it becomes immutable and cannot be deleted.
type SalesOrder struct {
	ID           int64           `json:"id"`
	DocNumber    string          `json:"docNumber"`
	OrderDate    time.Time       `json:"orderDate"`
	CustomerName *string         `json:"customerName,omitempty"`
	IsLocked     bool            `json:"isLocked"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
	CreatedAt    time.Time       `json:"createdAt"`
	Lines        []LineItem      `json:"lineItems"`
}

// LineItem is one product line within a sales order. All monetary figures
// are captured at creation time; later edits to the batch never change them.
type LineItem struct {
	ID                  int64                `json:"id"`
	SalesOrderID        int64                `json:"salesOrderId"`
	BatchID             int64                `json:"batchId"`
	BatchCode           string               `json:"batchCode"`
	Quantity            int                  `json:"quantitySold"`
	SellingPricePerUnit decimal.Decimal      `json:"sellingPricePerUnit"`
	DiscountType        pricing.DiscountType `json:"discountType"`
	DiscountValue       decimal.Decimal      `json:"discountValue"`
	FinalPricePerUnit   decimal.Decimal      `json:"finalPricePerUnit"`
	Subtotal            decimal.Decimal      `json:"subtotal"`
	LineProfit          decimal.Decimal      `json:"lineProfit"`
	LineOrder           int                  `json:"lineOrder"`
}

// CreateLineInput describes one requested order line.
type CreateLineInput struct {
	BatchID             int64
	Quantity            int
	SellingPricePerUnit decimal.Decimal
	Discount            pricing.Discount
}

// CreateInput describes a sales order creation request.
type CreateInput struct {
	CustomerName   *string
	OrderDate      time.Time
	IdempotencyKey string
	Lines          []CreateLineInput
}

// ListFilter narrows order listings to an order-date range.
type ListFilter struct {
	From *time.Time
	To   *time.Time
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("sales order: not found")
	// ErrLocked indicates a mutation attempt on a locked order.
	ErrLocked = errors.New("sales order: locked by profit share execution")
	// ErrInvalidInput indicates malformed order data.
	ErrInvalidInput = errors.New("sales order: invalid input")
)
