package salesorder

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/pricing"
	"github.com/tokoledger/tokoledger/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (SalesOrder, error)
	List(ctx context.Context, filter ListFilter) ([]SalesOrder, error)
}

// TxRepository exposes the transactional operations the engine composes into
// a single atomic unit of work.
type TxRepository interface {
	GetBatchForUpdate(ctx context.Context, id int64) (batch.Batch, error)
	DeductBatch(ctx context.Context, id int64, qty int) (batch.Batch, error)
	RestoreBatch(ctx context.Context, id int64, qty int) (batch.Batch, error)
	NextDocNumber(ctx context.Context, date time.Time) (string, error)
	InsertOrder(ctx context.Context, order SalesOrder) (int64, error)
	InsertLines(ctx context.Context, orderID int64, lines []LineItem) error
	GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error)
	GetLines(ctx context.Context, orderID int64) ([]LineItem, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SummaryInvalidator drops cached monthly summaries after order writes.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, month, year int) error
}

// Service orchestrates creation and deletion of sales orders.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	invalidator SummaryInvalidator
	location    *time.Location
}

// NewService builds Service. Audit, idempotency and invalidator are optional;
// location defaults to the local calendar.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, invalidator SummaryInvalidator, location *time.Location) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, invalidator: invalidator, location: location}
}

// Create validates every line, deducts stock and persists the order with its
// lines and computed profit as one atomic unit. A failure on any line leaves
// every batch untouched.
func (s *Service) Create(ctx context.Context, input CreateInput) (SalesOrder, error) {
	if len(input.Lines) == 0 {
		return SalesOrder{}, fmt.Errorf("%w: at least one line item required", ErrInvalidInput)
	}
	for i, line := range input.Lines {
		if line.BatchID <= 0 {
			return SalesOrder{}, fmt.Errorf("%w: line %d: batch id required", ErrInvalidInput, i+1)
		}
		if line.Quantity < 1 {
			return SalesOrder{}, fmt.Errorf("%w: line %d: quantity must be positive", ErrInvalidInput, i+1)
		}
		if line.SellingPricePerUnit.IsNegative() {
			return SalesOrder{}, fmt.Errorf("%w: line %d: selling price must be >= 0", ErrInvalidInput, i+1)
		}
		if !line.Discount.Type.Valid() {
			return SalesOrder{}, fmt.Errorf("%w: line %d: unknown discount type %q", ErrInvalidInput, i+1, line.Discount.Type)
		}
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "salesorder"); err != nil {
			return SalesOrder{}, err
		}
		insertedKey = true
	}

	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Lock every touched batch in ascending id order so concurrent
		// orders cannot deadlock on each other.
		requested := map[int64]int{}
		ids := make([]int64, 0, len(input.Lines))
		for _, line := range input.Lines {
			if _, seen := requested[line.BatchID]; !seen {
				ids = append(ids, line.BatchID)
			}
			requested[line.BatchID] += line.Quantity
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked := make(map[int64]batch.Batch, len(ids))
		for _, id := range ids {
			b, err := tx.GetBatchForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = b
		}

		// Whole-order validation: every line checked and priced before any
		// quantity is touched.
		for id, qty := range requested {
			if b := locked[id]; qty > b.CurrentQuantity {
				return &batch.InsufficientStockError{BatchID: b.ID, Code: b.Code, Available: b.CurrentQuantity, Requested: qty}
			}
		}

		lines := make([]LineItem, 0, len(input.Lines))
		totalProfit := decimal.Zero
		for i, line := range input.Lines {
			b := locked[line.BatchID]
			finalUnit, subtotal, err := pricing.Apply(line.SellingPricePerUnit, line.Quantity, line.Discount)
			if err != nil {
				return fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i+1, err)
			}
			lineProfit := finalUnit.Sub(b.CostPerUnit).Mul(decimal.NewFromInt(int64(line.Quantity)))
			discountValue := line.Discount.Value
			if line.Discount.Type == pricing.DiscountNone {
				discountValue = decimal.Zero
			}
			lines = append(lines, LineItem{
				BatchID:             b.ID,
				BatchCode:           b.Code,
				Quantity:            line.Quantity,
				SellingPricePerUnit: line.SellingPricePerUnit.Round(2),
				DiscountType:        line.Discount.Type,
				DiscountValue:       discountValue,
				FinalPricePerUnit:   finalUnit,
				Subtotal:            subtotal,
				LineProfit:          lineProfit,
				LineOrder:           i + 1,
			})
			totalProfit = totalProfit.Add(lineProfit)
		}

		for _, id := range ids {
			if _, err := tx.DeductBatch(ctx, id, requested[id]); err != nil {
				return err
			}
		}

		docNumber, err := tx.NextDocNumber(ctx, orderDate)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}

		id, err := tx.InsertOrder(ctx, SalesOrder{
			DocNumber:    docNumber,
			OrderDate:    orderDate,
			CustomerName: input.CustomerName,
			TotalProfit:  totalProfit,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = id
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return SalesOrder{}, err
	}

	created, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return SalesOrder{}, err
	}

	s.invalidateMonth(ctx, created.OrderDate)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "salesorder:create",
			Entity:   "sales_order",
			EntityID: created.DocNumber,
			Meta: map[string]any{
				"line_count":   len(created.Lines),
				"total_profit": created.TotalProfit,
			},
		})
	}
	return created, nil
}

// Delete restores every line's quantity to its batch and removes the order
// and its lines atomically. Locked orders cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var deleted SalesOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.IsLocked {
			return ErrLocked
		}
		lines, err := tx.GetLines(ctx, id)
		if err != nil {
			return err
		}

		restore := map[int64]int{}
		ids := make([]int64, 0, len(lines))
		for _, line := range lines {
			if _, seen := restore[line.BatchID]; !seen {
				ids = append(ids, line.BatchID)
			}
			restore[line.BatchID] += line.Quantity
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, batchID := range ids {
			if _, err := tx.GetBatchForUpdate(ctx, batchID); err != nil {
				return err
			}
			if _, err := tx.RestoreBatch(ctx, batchID, restore[batchID]); err != nil {
				return err
			}
		}

		deleted = order
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateMonth(ctx, deleted.OrderDate)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "salesorder:delete",
			Entity:   "sales_order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"doc_number": deleted.DocNumber},
		})
	}
	return nil
}

// Get returns a single order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders filtered by order-date range, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	return s.repo.List(ctx, filter)
}

// invalidateMonth drops the cached summary for the order's calendar month in
// the reporting timezone, which may differ from the scanned timestamp's zone.
func (s *Service) invalidateMonth(ctx context.Context, at time.Time) {
	if s.invalidator == nil {
		return
	}
	at = at.In(s.location)
	_ = s.invalidator.Invalidate(ctx, int(at.Month()), at.Year())
}
