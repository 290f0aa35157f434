// Package profitshare executes the month-end owner distribution. Execution is
// a one-way door: it freezes every order in the period and can run at most
// once per calendar month.
package profitshare

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetainedRatio is the share of monthly profit kept by the business. The
// remainder is split equally across owners.
var RetainedRatio = decimal.NewFromFloat(0.5)

// ProfitShare is the persisted record of one executed distribution.
type ProfitShare struct {
	ID             int64           `json:"id"`
	Reference      uuid.UUID       `json:"reference"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	TotalProfit    decimal.Decimal `json:"totalProfit"`
	OwnerCount     int             `json:"ownerCount"`
	AmountPerOwner decimal.Decimal `json:"amountPerOwner"`
	ExecutedAt     time.Time       `json:"executedAt"`
}

var (
	// ErrAlreadyExecuted indicates the period has an executed distribution.
	ErrAlreadyExecuted = errors.New("profitshare: period already executed")
	// ErrNotFound indicates no distribution exists for the period.
	ErrNotFound = errors.New("profitshare: not found")
	// ErrInvalidOwnerCount indicates a non-positive owner count.
	ErrInvalidOwnerCount = errors.New("profitshare: owner count must be at least 1")
)
