package batch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tokoledger/tokoledger/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, b Batch) (Batch, error)
	Get(ctx context.Context, id int64) (Batch, error)
	List(ctx context.Context) ([]Batch, error)
	ListAvailable(ctx context.Context) ([]Batch, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates batch intake and lookup.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a new inventory batch.
func (s *Service) Create(ctx context.Context, input CreateInput) (Batch, error) {
	if input.Code == "" {
		return Batch{}, fmt.Errorf("%w: code required", ErrInvalidInput)
	}
	if input.ProductName == "" {
		return Batch{}, fmt.Errorf("%w: product name required", ErrInvalidInput)
	}
	if input.CostPerUnit.IsNegative() {
		return Batch{}, fmt.Errorf("%w: cost per unit must be >= 0", ErrInvalidInput)
	}
	if input.SellingPrice.IsNegative() {
		return Batch{}, fmt.Errorf("%w: selling price must be >= 0", ErrInvalidInput)
	}
	if input.InitialQuantity < 1 {
		return Batch{}, fmt.Errorf("%w: initial quantity must be positive", ErrInvalidInput)
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = time.Now()
	}

	created, err := s.repo.Insert(ctx, Batch{
		Code:            input.Code,
		ProductName:     input.ProductName,
		PurchaseDate:    purchaseDate,
		CostPerUnit:     input.CostPerUnit.Round(2),
		SellingPrice:    input.SellingPrice.Round(2),
		InitialQuantity: input.InitialQuantity,
		CurrentQuantity: input.InitialQuantity,
	})
	if err != nil {
		return Batch{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "batch:create",
			Entity:   "batch",
			EntityID: created.Code,
			Meta: map[string]any{
				"product_name":  created.ProductName,
				"initial_qty":   created.InitialQuantity,
				"cost_per_unit": created.CostPerUnit,
			},
		})
	}
	return created, nil
}

// Get returns a single batch.
func (s *Service) Get(ctx context.Context, id int64) (Batch, error) {
	return s.repo.Get(ctx, id)
}

// List returns every batch ordered by product name then code.
func (s *Service) List(ctx context.Context) ([]Batch, error) {
	return s.repo.List(ctx)
}

// ListAvailable returns batches with remaining quantity, for order entry.
func (s *Service) ListAvailable(ctx context.Context) ([]Batch, error) {
	return s.repo.ListAvailable(ctx)
}

// Delete removes a batch that is not referenced by any order line.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "batch:delete",
			Entity:   "batch",
			EntityID: strconv.FormatInt(id, 10),
		})
	}
	return nil
}
