package batch

import (
	"context"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	batches map[int64]Batch
	inUse   map[int64]bool
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: make(map[int64]Batch), inUse: make(map[int64]bool)}
}

func (r *memoryRepo) Insert(ctx context.Context, b Batch) (Batch, error) {
	for _, existing := range r.batches {
		if existing.Code == b.Code {
			return Batch{}, ErrDuplicateCode
		}
	}
	r.nextID++
	b.ID = r.nextID
	r.batches[b.ID] = b
	return b, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Batch, error) {
	out := make([]Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *memoryRepo) ListAvailable(ctx context.Context) ([]Batch, error) {
	all, _ := r.List(ctx)
	out := []Batch{}
	for _, b := range all {
		if b.CurrentQuantity > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.batches[id]; !ok {
		return ErrNotFound
	}
	if r.inUse[id] {
		return ErrInUse
	}
	delete(r.batches, id)
	return nil
}

func TestCreateBatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Code:            "BTH-001",
		ProductName:     "Kopi Arabika 1kg",
		CostPerUnit:     decimal.NewFromInt(100),
		SellingPrice:    decimal.NewFromInt(150),
		InitialQuantity: 50,
	})
	require.NoError(t, err)
	require.Equal(t, 50, created.CurrentQuantity)
	require.Equal(t, 50, created.InitialQuantity)
	require.False(t, created.IsDepleted())
	require.True(t, created.StockValue().Equal(decimal.NewFromInt(5000)))

	_, err = svc.Create(ctx, CreateInput{
		Code:            "BTH-001",
		ProductName:     "Kopi Arabika 1kg",
		CostPerUnit:     decimal.NewFromInt(100),
		SellingPrice:    decimal.NewFromInt(150),
		InitialQuantity: 10,
	})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateBatchValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	cases := []CreateInput{
		{ProductName: "X", CostPerUnit: decimal.NewFromInt(1), InitialQuantity: 1},
		{Code: "B", CostPerUnit: decimal.NewFromInt(1), InitialQuantity: 1},
		{Code: "B", ProductName: "X", CostPerUnit: decimal.NewFromInt(-1), InitialQuantity: 1},
		{Code: "B", ProductName: "X", SellingPrice: decimal.NewFromInt(-1), InitialQuantity: 1},
		{Code: "B", ProductName: "X", CostPerUnit: decimal.NewFromInt(1), InitialQuantity: 0},
	}
	for _, input := range cases {
		_, err := svc.Create(ctx, input)
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestListAvailableSkipsDepleted(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Code: "A-1", ProductName: "Beras", CostPerUnit: decimal.NewFromInt(10), InitialQuantity: 5})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateInput{Code: "B-1", ProductName: "Gula", CostPerUnit: decimal.NewFromInt(8), InitialQuantity: 3})
	require.NoError(t, err)

	depleted := repo.batches[b.ID]
	depleted.CurrentQuantity = 0
	repo.batches[b.ID] = depleted

	available, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, a.ID, available[0].ID)
}

func TestDeleteBatchInUse(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: "C-1", ProductName: "Teh", CostPerUnit: decimal.NewFromInt(5), InitialQuantity: 2})
	require.NoError(t, err)

	repo.inUse[created.ID] = true
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrInUse)

	repo.inUse[created.ID] = false
	require.NoError(t, svc.Delete(ctx, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}
