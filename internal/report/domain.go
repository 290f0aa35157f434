// Package report computes inventory valuation snapshots and calendar-month
// profit summaries. Reports are pure reads and never mutate state.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/batch"
)

// InventoryRow is one batch in the valuation snapshot.
type InventoryRow struct {
	Batch      batch.Batch     `json:"batch"`
	IsDepleted bool            `json:"isDepleted"`
	StockValue decimal.Decimal `json:"stockValue"`
}

// InventoryReport is a point-in-time valuation of all (optionally filtered)
// batches.
type InventoryReport struct {
	Rows       []InventoryRow  `json:"rows"`
	TotalValue decimal.Decimal `json:"totalValue"`
	AsOf       time.Time       `json:"asOf"`
}

// MonthlySummary aggregates profit across one calendar month. It is computed
// on demand and never persisted.
type MonthlySummary struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	TotalProfit    decimal.Decimal `json:"totalProfit"`
	NumberOfOrders int             `json:"numberOfOrders"`
	PeriodStart    time.Time       `json:"periodStart"`
	PeriodEnd      time.Time       `json:"periodEnd"`
}
