package profitshare

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]ProfitShare, error)
}

// TxRepository exposes the transactional operations execution composes into a
// single atomic unit of work.
type TxRepository interface {
	SumProfitBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	InsertShare(ctx context.Context, share ProfitShare) (ProfitShare, error)
	LockOrdersBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SummaryInvalidator drops the cached monthly summary after execution.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, month, year int) error
}

// Service executes and lists owner profit distributions.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	invalidator SummaryInvalidator
	location    *time.Location
}

// NewService builds Service. Audit and invalidator are optional; location
// defaults to the local calendar.
func NewService(repo RepositoryPort, audit AuditPort, invalidator SummaryInvalidator, location *time.Location) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{repo: repo, audit: audit, invalidator: invalidator, location: location}
}

// Execute distributes one calendar month's profit across owners and locks
// every order in that month. The unique (month, year) constraint makes the
// distribution run at most once per period even under concurrent requests.
func (s *Service) Execute(ctx context.Context, month, year, ownerCount int) (ProfitShare, error) {
	if err := shared.ValidatePeriod(month, year); err != nil {
		return ProfitShare{}, err
	}
	if ownerCount < 1 {
		return ProfitShare{}, ErrInvalidOwnerCount
	}

	start, end := shared.MonthBounds(month, year, s.location)

	var executed ProfitShare
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		total, err := tx.SumProfitBetween(ctx, start, end)
		if err != nil {
			return err
		}

		pot := total.Sub(total.Mul(RetainedRatio))
		perOwner := pot.Div(decimal.NewFromInt(int64(ownerCount))).Round(2)

		executed, err = tx.InsertShare(ctx, ProfitShare{
			Reference:      uuid.New(),
			Month:          month,
			Year:           year,
			TotalProfit:    total,
			OwnerCount:     ownerCount,
			AmountPerOwner: perOwner,
		})
		if err != nil {
			return err
		}

		_, err = tx.LockOrdersBetween(ctx, start, end)
		return err
	})
	if err != nil {
		return ProfitShare{}, err
	}

	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx, month, year)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "profitshare:execute",
			Entity:   "profit_share",
			EntityID: executed.Reference.String(),
			Meta: map[string]any{
				"period":           strconv.Itoa(year) + "-" + strconv.Itoa(month),
				"owner_count":      ownerCount,
				"total_profit":     executed.TotalProfit,
				"amount_per_owner": executed.AmountPerOwner,
			},
		})
	}
	return executed, nil
}

// List returns every executed distribution, newest first.
func (s *Service) List(ctx context.Context) ([]ProfitShare, error) {
	return s.repo.List(ctx)
}
