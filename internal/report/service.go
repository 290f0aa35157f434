package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/shared"
)

// RepositoryPort abstracts the read queries behind reports.
type RepositoryPort interface {
	ListBatches(ctx context.Context, productFilter string) ([]batch.Batch, error)
	SumProfitBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error)
}

// Service computes reports over the batch store and sales orders.
type Service struct {
	repo     RepositoryPort
	cache    *Cache
	location *time.Location
	collator *collate.Collator
}

// NewService builds Service. Cache may be nil; location defaults to the
// local calendar.
func NewService(repo RepositoryPort, cache *Cache, location *time.Location) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		location: location,
		collator: collate.New(language.Indonesian, collate.IgnoreCase),
	}
}

// InventorySnapshot values all batches at this instant. The optional filter
// matches product names by substring.
func (s *Service) InventorySnapshot(ctx context.Context, productFilter string) (InventoryReport, error) {
	batches, err := s.repo.ListBatches(ctx, productFilter)
	if err != nil {
		return InventoryReport{}, err
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if cmp := s.collator.CompareString(batches[i].ProductName, batches[j].ProductName); cmp != 0 {
			return cmp < 0
		}
		return batches[i].Code < batches[j].Code
	})

	rows := make([]InventoryRow, 0, len(batches))
	total := decimal.Zero
	for _, b := range batches {
		value := b.StockValue()
		rows = append(rows, InventoryRow{Batch: b, IsDepleted: b.IsDepleted(), StockValue: value})
		total = total.Add(value)
	}
	return InventoryReport{Rows: rows, TotalValue: total, AsOf: time.Now()}, nil
}

// MonthlySummary aggregates profit and order count over one calendar month.
// An empty month yields zero profit and zero orders, not an error.
func (s *Service) MonthlySummary(ctx context.Context, month, year int) (MonthlySummary, error) {
	if err := shared.ValidatePeriod(month, year); err != nil {
		return MonthlySummary{}, err
	}
	return s.cache.FetchSummary(ctx, month, year, func(ctx context.Context) (MonthlySummary, error) {
		return s.computeSummary(ctx, month, year)
	})
}

func (s *Service) computeSummary(ctx context.Context, month, year int) (MonthlySummary, error) {
	start, end := shared.MonthBounds(month, year, s.location)
	total, count, err := s.repo.SumProfitBetween(ctx, start, end)
	if err != nil {
		return MonthlySummary{}, err
	}
	return MonthlySummary{
		Month:          month,
		Year:           year,
		TotalProfit:    total,
		NumberOfOrders: count,
		PeriodStart:    start,
		PeriodEnd:      end.Add(-time.Nanosecond),
	}, nil
}
