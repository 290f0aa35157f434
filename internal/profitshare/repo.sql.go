package profitshare

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/platform/db"
)

const shareColumns = `id, reference, month, year, total_profit, owner_count, amount_per_owner, executed_at`

// Repository persists profit shares in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) List(ctx context.Context) ([]ProfitShare, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shareColumns+` FROM profit_shares ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := []ProfitShare{}
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *txRepository) SumProfitBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(total_profit), 0)
FROM sales_orders WHERE order_date >= $1 AND order_date < $2`, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// InsertShare persists the distribution. The unique (month, year) constraint
// resolves concurrent executions of the same period to exactly one winner.
func (r *txRepository) InsertShare(ctx context.Context, share ProfitShare) (ProfitShare, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO profit_shares (reference, month, year, total_profit, owner_count, amount_per_owner, executed_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
RETURNING `+shareColumns, share.Reference, share.Month, share.Year, share.TotalProfit, share.OwnerCount, share.AmountPerOwner)
	inserted, err := scanShare(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ProfitShare{}, ErrAlreadyExecuted
		}
		return ProfitShare{}, err
	}
	return inserted, nil
}

func (r *txRepository) LockOrdersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE sales_orders SET is_locked = true
WHERE order_date >= $1 AND order_date < $2 AND is_locked = false`, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanShare(row pgx.Row) (ProfitShare, error) {
	var share ProfitShare
	err := row.Scan(&share.ID, &share.Reference, &share.Month, &share.Year, &share.TotalProfit, &share.OwnerCount, &share.AmountPerOwner, &share.ExecutedAt)
	return share, err
}
