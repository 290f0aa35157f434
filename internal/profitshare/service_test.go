package profitshare

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tokoledger/tokoledger/internal/shared"
)

type memoryOrder struct {
	orderDate time.Time
	profit    decimal.Decimal
	locked    bool
}

type memoryRepo struct {
	orders []memoryOrder
	shares []ProfitShare
	nextID int64
}

func (m *memoryRepo) clone() *memoryRepo {
	cp := &memoryRepo{nextID: m.nextID}
	cp.orders = append([]memoryOrder{}, m.orders...)
	cp.shares = append([]ProfitShare{}, m.shares...)
	return cp
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := m.clone()
	if err := fn(ctx, &memoryTx{repo: snap}); err != nil {
		return err
	}
	*m = *snap
	return nil
}

func (m *memoryRepo) List(ctx context.Context) ([]ProfitShare, error) {
	out := append([]ProfitShare{}, m.shares...)
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) SumProfitBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range t.repo.orders {
		if !o.orderDate.Before(from) && o.orderDate.Before(to) {
			total = total.Add(o.profit)
		}
	}
	return total, nil
}

func (t *memoryTx) InsertShare(ctx context.Context, share ProfitShare) (ProfitShare, error) {
	for _, existing := range t.repo.shares {
		if existing.Month == share.Month && existing.Year == share.Year {
			return ProfitShare{}, ErrAlreadyExecuted
		}
	}
	t.repo.nextID++
	share.ID = t.repo.nextID
	share.ExecutedAt = time.Now()
	t.repo.shares = append(t.repo.shares, share)
	return share, nil
}

func (t *memoryTx) LockOrdersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var locked int64
	for i := range t.repo.orders {
		o := &t.repo.orders[i]
		if !o.locked && !o.orderDate.Before(from) && o.orderDate.Before(to) {
			o.locked = true
			locked++
		}
	}
	return locked, nil
}

type recordingInvalidator struct {
	calls [][2]int
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, month, year int) error {
	r.calls = append(r.calls, [2]int{month, year})
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestExecuteSplitsHalfAcrossOwners(t *testing.T) {
	repo := &memoryRepo{orders: []memoryOrder{
		{orderDate: date(2024, 2, 10), profit: dec("350.00")},
		{orderDate: date(2024, 2, 20), profit: dec("200.00")},
		{orderDate: date(2024, 3, 1), profit: dec("999.00")},
	}}
	inv := &recordingInvalidator{}
	svc := NewService(repo, nil, inv, time.UTC)

	share, err := svc.Execute(context.Background(), 2, 2024, 2)
	require.NoError(t, err)
	require.True(t, dec("550.00").Equal(share.TotalProfit))
	require.Equal(t, 2, share.OwnerCount)
	require.True(t, dec("137.50").Equal(share.AmountPerOwner))
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", share.Reference.String())

	require.True(t, repo.orders[0].locked)
	require.True(t, repo.orders[1].locked)
	require.False(t, repo.orders[2].locked, "orders outside the period stay unlocked")

	require.Equal(t, [][2]int{{2, 2024}}, inv.calls)
}

func TestExecuteRoundsPerOwnerAmount(t *testing.T) {
	repo := &memoryRepo{orders: []memoryOrder{
		{orderDate: date(2024, 5, 3), profit: dec("100.00")},
	}}
	svc := NewService(repo, nil, nil, time.UTC)

	// 100 * 0.5 / 3 = 16.666..., rounded half-up to 16.67.
	share, err := svc.Execute(context.Background(), 5, 2024, 3)
	require.NoError(t, err)
	require.True(t, dec("16.67").Equal(share.AmountPerOwner))
}

func TestExecuteTwiceFailsAndKeepsFirst(t *testing.T) {
	repo := &memoryRepo{orders: []memoryOrder{
		{orderDate: date(2024, 2, 10), profit: dec("550.00")},
	}}
	svc := NewService(repo, nil, nil, time.UTC)

	first, err := svc.Execute(context.Background(), 2, 2024, 2)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), 2, 2024, 5)
	require.ErrorIs(t, err, ErrAlreadyExecuted)

	shares, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 1)
	require.Equal(t, first.ID, shares[0].ID)
	require.Equal(t, 2, shares[0].OwnerCount)
	require.True(t, repo.orders[0].locked, "orders stay locked after a rejected re-run")
}

func TestExecuteEmptyMonthDistributesZero(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil, time.UTC)

	share, err := svc.Execute(context.Background(), 6, 2024, 4)
	require.NoError(t, err)
	require.True(t, share.TotalProfit.IsZero())
	require.True(t, share.AmountPerOwner.IsZero())
}

func TestExecuteValidatesInput(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil, time.UTC)

	_, err := svc.Execute(context.Background(), 0, 2024, 2)
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)

	_, err = svc.Execute(context.Background(), 3, 2019, 2)
	require.ErrorIs(t, err, shared.ErrInvalidPeriod)

	_, err = svc.Execute(context.Background(), 3, 2024, 0)
	require.ErrorIs(t, err, ErrInvalidOwnerCount)
}

func TestListNewestFirst(t *testing.T) {
	repo := &memoryRepo{orders: []memoryOrder{
		{orderDate: date(2024, 1, 5), profit: dec("10.00")},
		{orderDate: date(2024, 2, 5), profit: dec("20.00")},
	}}
	svc := NewService(repo, nil, nil, time.UTC)

	_, err := svc.Execute(context.Background(), 1, 2024, 1)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), 2, 2024, 1)
	require.NoError(t, err)

	shares, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 2)
	require.Equal(t, 2, shares[0].Month)
	require.Equal(t, 1, shares[1].Month)
}
