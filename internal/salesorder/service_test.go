package salesorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/pricing"
)

type memoryRepo struct {
	batches     map[int64]batch.Batch
	orders      map[int64]SalesOrder
	lines       map[int64][]LineItem
	nextOrderID int64
	nextLineID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		batches: make(map[int64]batch.Batch),
		orders:  make(map[int64]SalesOrder),
		lines:   make(map[int64][]LineItem),
	}
}

func (r *memoryRepo) addBatch(id int64, code string, cost int64, qty int) {
	r.batches[id] = batch.Batch{
		ID:              id,
		Code:            code,
		ProductName:     code,
		CostPerUnit:     decimal.NewFromInt(cost),
		InitialQuantity: qty,
		CurrentQuantity: qty,
	}
}

// memoryTx mutates a deep copy; WithTx only publishes it when fn succeeds,
// mirroring transaction rollback.
type memoryTx struct {
	repo *memoryRepo
	snap *memoryRepo
}

func (r *memoryRepo) clone() *memoryRepo {
	c := newMemoryRepo()
	c.nextOrderID = r.nextOrderID
	c.nextLineID = r.nextLineID
	for id, b := range r.batches {
		c.batches[id] = b
	}
	for id, o := range r.orders {
		c.orders[id] = o
	}
	for id, ls := range r.lines {
		c.lines[id] = append([]LineItem(nil), ls...)
	}
	return c
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.clone()
	if err := fn(ctx, &memoryTx{repo: r, snap: snap}); err != nil {
		return err
	}
	*r = *snap
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (SalesOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return SalesOrder{}, ErrNotFound
	}
	order.Lines = append([]LineItem(nil), r.lines[id]...)
	return order, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	out := []SalesOrder{}
	for id := range r.orders {
		order, _ := r.Get(ctx, id)
		if filter.From != nil && order.OrderDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && order.OrderDate.After(*filter.To) {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (tx *memoryTx) GetBatchForUpdate(ctx context.Context, id int64) (batch.Batch, error) {
	b, ok := tx.snap.batches[id]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	return b, nil
}

func (tx *memoryTx) DeductBatch(ctx context.Context, id int64, qty int) (batch.Batch, error) {
	b, ok := tx.snap.batches[id]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	if qty > b.CurrentQuantity {
		return batch.Batch{}, &batch.InsufficientStockError{BatchID: b.ID, Code: b.Code, Available: b.CurrentQuantity, Requested: qty}
	}
	b.CurrentQuantity -= qty
	tx.snap.batches[id] = b
	return b, nil
}

func (tx *memoryTx) RestoreBatch(ctx context.Context, id int64, qty int) (batch.Batch, error) {
	b, ok := tx.snap.batches[id]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	if b.CurrentQuantity+qty > b.InitialQuantity {
		return batch.Batch{}, batch.ErrRestoreExceedsInitial
	}
	b.CurrentQuantity += qty
	tx.snap.batches[id] = b
	return b, nil
}

func (tx *memoryTx) NextDocNumber(ctx context.Context, date time.Time) (string, error) {
	return fmt.Sprintf("SO-%s-%04d", date.Format("200601"), tx.snap.nextOrderID+1), nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order SalesOrder) (int64, error) {
	tx.snap.nextOrderID++
	order.ID = tx.snap.nextOrderID
	order.CreatedAt = time.Now()
	tx.snap.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, orderID int64, lines []LineItem) error {
	for _, line := range lines {
		tx.snap.nextLineID++
		line.ID = tx.snap.nextLineID
		line.SalesOrderID = orderID
		tx.snap.lines[orderID] = append(tx.snap.lines[orderID], line)
	}
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error) {
	order, ok := tx.snap.orders[id]
	if !ok {
		return SalesOrder{}, ErrNotFound
	}
	return order, nil
}

func (tx *memoryTx) GetLines(ctx context.Context, orderID int64) ([]LineItem, error) {
	return append([]LineItem(nil), tx.snap.lines[orderID]...), nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := tx.snap.orders[id]; !ok {
		return ErrNotFound
	}
	delete(tx.snap.orders, id)
	delete(tx.snap.lines, id)
	return nil
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateOrderComputesProfit(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	repo.addBatch(2, "B", 80, 20)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 10, SellingPricePerUnit: dec("150"), Discount: pricing.Discount{Type: pricing.DiscountPercent, Value: dec("10")}},
			{BatchID: 2, Quantity: 5, SellingPricePerUnit: dec("120"), Discount: pricing.None()},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)

	line1 := order.Lines[0]
	require.True(t, line1.FinalPricePerUnit.Equal(dec("135")), "final=%s", line1.FinalPricePerUnit)
	require.True(t, line1.Subtotal.Equal(dec("1350")), "subtotal=%s", line1.Subtotal)
	require.True(t, line1.LineProfit.Equal(dec("350")), "profit=%s", line1.LineProfit)

	line2 := order.Lines[1]
	require.True(t, line2.Subtotal.Equal(dec("600")), "subtotal=%s", line2.Subtotal)
	require.True(t, line2.LineProfit.Equal(dec("200")), "profit=%s", line2.LineProfit)

	require.True(t, order.TotalProfit.Equal(dec("550")), "total=%s", order.TotalProfit)
	require.Equal(t, 40, repo.batches[1].CurrentQuantity)
	require.Equal(t, 15, repo.batches[2].CurrentQuantity)

	sum := decimal.Zero
	for _, line := range order.Lines {
		sum = sum.Add(line.LineProfit)
		require.True(t, line.FinalPricePerUnit.Mul(decimal.NewFromInt(int64(line.Quantity))).Equal(line.Subtotal))
	}
	require.True(t, order.TotalProfit.Equal(sum))
}

func TestCreateOrderInsufficientStockLeavesBatchesUntouched(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	repo.addBatch(2, "B", 80, 20)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 10, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
			{BatchID: 2, Quantity: 21, SellingPricePerUnit: dec("120"), Discount: pricing.None()},
		},
	})
	var stockErr *batch.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(2), stockErr.BatchID)
	require.Equal(t, 20, stockErr.Available)
	require.Equal(t, 21, stockErr.Requested)

	require.Equal(t, 50, repo.batches[1].CurrentQuantity)
	require.Equal(t, 20, repo.batches[2].CurrentQuantity)
	require.Empty(t, repo.orders)
}

func TestCreateOrderAggregatesLinesOnSameBatch(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 10)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 6, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
			{BatchID: 1, Quantity: 5, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
		},
	})
	var stockErr *batch.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 11, stockErr.Requested)
	require.Equal(t, 10, repo.batches[1].CurrentQuantity)
}

func TestCreateOrderValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateInput{Lines: []CreateLineInput{
		{BatchID: 1, Quantity: 0, SellingPricePerUnit: dec("10"), Discount: pricing.None()},
	}})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateInput{Lines: []CreateLineInput{
		{BatchID: 99, Quantity: 1, SellingPricePerUnit: dec("10"), Discount: pricing.None()},
	}})
	require.ErrorIs(t, err, batch.ErrNotFound)
	require.Empty(t, repo.orders)

	_, err = svc.Create(ctx, CreateInput{Lines: []CreateLineInput{
		{BatchID: 1, Quantity: 1, SellingPricePerUnit: dec("10"), Discount: pricing.Discount{Type: pricing.DiscountPercent, Value: dec("150")}},
	}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, 50, repo.batches[1].CurrentQuantity)
}

func TestDeleteOrderRestoresStockExactly(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	repo.addBatch(2, "B", 80, 20)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 10, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
			{BatchID: 2, Quantity: 5, SellingPricePerUnit: dec("120"), Discount: pricing.None()},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 40, repo.batches[1].CurrentQuantity)
	require.Equal(t, 15, repo.batches[2].CurrentQuantity)

	require.NoError(t, svc.Delete(ctx, order.ID))
	require.Equal(t, 50, repo.batches[1].CurrentQuantity)
	require.Equal(t, 20, repo.batches[2].CurrentQuantity)

	_, err = svc.Get(ctx, order.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLockedOrderFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 5, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
		},
	})
	require.NoError(t, err)

	locked := repo.orders[order.ID]
	locked.IsLocked = true
	repo.orders[order.ID] = locked

	require.ErrorIs(t, svc.Delete(ctx, order.ID), ErrLocked)
	require.Equal(t, 45, repo.batches[1].CurrentQuantity)
	_, err = svc.Get(ctx, order.ID)
	require.NoError(t, err)
}

func TestDeleteUnknownOrder(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil, time.UTC)
	require.ErrorIs(t, svc.Delete(context.Background(), 123), ErrNotFound)
}

type recordingInvalidator struct {
	calls [][2]int
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, month, year int) error {
	r.calls = append(r.calls, [2]int{month, year})
	return nil
}

func TestCreateOrderInvalidatesMonthInReportingTimezone(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	inv := &recordingInvalidator{}
	jakarta := time.FixedZone("WIB", 7*3600)
	svc := NewService(repo, nil, nil, inv, jakarta)
	ctx := context.Background()

	// 23:30 UTC on 29 Feb is already 1 Mar in the reporting timezone.
	_, err := svc.Create(ctx, CreateInput{
		OrderDate: time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC),
		Lines: []CreateLineInput{
			{BatchID: 1, Quantity: 1, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
		},
	})
	require.NoError(t, err)
	require.Equal(t, [][2]int{{3, 2024}}, inv.calls)
}

func TestListFiltersByDateRange(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBatch(1, "A", 100, 50)
	svc := NewService(repo, nil, nil, nil, time.UTC)
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{jan, feb} {
		_, err := svc.Create(ctx, CreateInput{
			OrderDate: at,
			Lines: []CreateLineInput{
				{BatchID: 1, Quantity: 1, SellingPricePerUnit: dec("150"), Discount: pricing.None()},
			},
		})
		require.NoError(t, err)
	}

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	orders, err := svc.List(ctx, ListFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, feb, orders[0].OrderDate)

	orders, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
}
