// Package batch owns inventory batch records and their quantity invariants.
package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Batch is an inventory lot of a product with its own cost basis and
// remaining quantity.
type Batch struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	ProductName     string          `json:"productName"`
	PurchaseDate    time.Time       `json:"purchaseDate"`
	CostPerUnit     decimal.Decimal `json:"costPerUnit"`
	SellingPrice    decimal.Decimal `json:"sellingPrice"`
	InitialQuantity int             `json:"initialQuantity"`
	CurrentQuantity int             `json:"currentQuantity"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsDepleted reports whether the batch has no remaining quantity.
func (b Batch) IsDepleted() bool {
	return b.CurrentQuantity == 0
}

// StockValue returns the cost value of the remaining quantity.
func (b Batch) StockValue() decimal.Decimal {
	return b.CostPerUnit.Mul(decimal.NewFromInt(int64(b.CurrentQuantity)))
}

// CreateInput describes an inventory intake request.
type CreateInput struct {
	Code            string
	ProductName     string
	PurchaseDate    time.Time
	CostPerUnit     decimal.Decimal
	SellingPrice    decimal.Decimal
	InitialQuantity int
}

var (
	// ErrNotFound indicates the referenced batch does not exist.
	ErrNotFound = errors.New("batch: not found")
	// ErrDuplicateCode indicates the batch code is already taken.
	ErrDuplicateCode = errors.New("batch: code already exists")
	// ErrInUse indicates the batch is referenced by at least one order line.
	ErrInUse = errors.New("batch: referenced by sales order lines")
	// ErrInvalidInput indicates malformed intake data.
	ErrInvalidInput = errors.New("batch: invalid input")
	// ErrRestoreExceedsInitial flags a restore that would push the current
	// quantity above the initial quantity. Restores only ever reverse
	// previous deductions, so hitting this is a bug, not a user error.
	ErrRestoreExceedsInitial = errors.New("batch: restore exceeds initial quantity")
)

// InsufficientStockError reports a deduction larger than the remaining
// quantity. It names the batch and what was available at check time.
type InsufficientStockError struct {
	BatchID   int64
	Code      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("batch %s: insufficient stock: requested %d, available %d", e.Code, e.Requested, e.Available)
}
