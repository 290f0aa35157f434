package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/batch"
)

// Repository runs the read-only report queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListBatches(ctx context.Context, productFilter string) ([]batch.Batch, error) {
	query := `SELECT id, code, product_name, purchase_date, cost_per_unit, selling_price, initial_quantity, current_quantity, created_at, updated_at
FROM batches`
	args := []any{}
	if productFilter != "" {
		query += ` WHERE product_name ILIKE '%' || $1 || '%'`
		args = append(args, productFilter)
	}
	query += ` ORDER BY product_name ASC, code ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []batch.Batch{}
	for rows.Next() {
		var b batch.Batch
		if err := rows.Scan(&b.ID, &b.Code, &b.ProductName, &b.PurchaseDate, &b.CostPerUnit, &b.SellingPrice, &b.InitialQuantity, &b.CurrentQuantity, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *Repository) SumProfitBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	var total decimal.Decimal
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_profit), 0), COUNT(*)
FROM sales_orders WHERE order_date >= $1 AND order_date < $2`, from, to).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}
