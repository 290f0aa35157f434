package salesorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/platform/db"
	"github.com/tokoledger/tokoledger/internal/pricing"
)

const orderColumns = `id, doc_number, order_date, customer_name, is_locked, total_profit, created_at`

const lineColumns = `id, sales_order_id, batch_id, batch_code, quantity, selling_price_per_unit, discount_type, discount_value, final_price_per_unit, subtotal, line_profit, line_order`

// Repository persists sales orders in PostgreSQL.
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

func (r *Repository) Get(ctx context.Context, id int64) (SalesOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesOrder{}, ErrNotFound
		}
		return SalesOrder{}, err
	}
	lines, err := queryLines(ctx, r.pool, id)
	if err != nil {
		return SalesOrder{}, err
	}
	order.Lines = lines
	return order, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]SalesOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM sales_orders
WHERE order_date >= COALESCE($1, '-infinity'::timestamptz)
  AND order_date <= COALESCE($2, 'infinity'::timestamptz)
ORDER BY order_date DESC, id DESC`, nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []SalesOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		lines, err := queryLines(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (r *txRepository) GetBatchForUpdate(ctx context.Context, id int64) (batch.Batch, error) {
	return batch.GetForUpdateTx(ctx, r.tx, id)
}

func (r *txRepository) DeductBatch(ctx context.Context, id int64, qty int) (batch.Batch, error) {
	return batch.DeductTx(ctx, r.tx, id, qty)
}

func (r *txRepository) RestoreBatch(ctx context.Context, id int64, qty int) (batch.Batch, error) {
	return batch.RestoreTx(ctx, r.tx, id, qty)
}

// NextDocNumber issues SO-{YYYYMM}-{SEQ} numbers scoped to the order month.
// The unique constraint on doc_number turns a lost race into a retryable
// conflict instead of a duplicate.
func (r *txRepository) NextDocNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := fmt.Sprintf("SO-%s-", date.Format("200601"))
	var count int64
	if err := r.tx.QueryRow(ctx, `SELECT count(*) FROM sales_orders WHERE doc_number LIKE $1 || '%'`, prefix).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (r *txRepository) InsertOrder(ctx context.Context, order SalesOrder) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_orders (doc_number, order_date, customer_name, is_locked, total_profit, created_at)
VALUES ($1,$2,$3,false,$4,NOW()) RETURNING id`, order.DocNumber, order.OrderDate, order.CustomerName, order.TotalProfit).Scan(&id)
	if err != nil {
		return 0, docNumberConflict(err)
	}
	return id, nil
}

// docNumberConflict maps a doc_number unique violation onto the retryable
// conflict error. Two creates in the same month read the same sequence count
// before either commits; the constraint picks the winner and the loser is
// safe to retry.
func docNumberConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "sales_orders_doc_number_key" {
		return fmt.Errorf("%w: doc number already issued", db.ErrConcurrencyConflict)
	}
	return err
}

func (r *txRepository) InsertLines(ctx context.Context, orderID int64, lines []LineItem) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sales_order_lines (sales_order_id, batch_id, batch_code, quantity, selling_price_per_unit, discount_type, discount_value, final_price_per_unit, subtotal, line_profit, line_order)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			orderID, line.BatchID, line.BatchCode, line.Quantity, line.SellingPricePerUnit, string(line.DiscountType), line.DiscountValue, line.FinalPricePerUnit, line.Subtotal, line.LineProfit, line.LineOrder); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (SalesOrder, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id=$1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesOrder{}, ErrNotFound
		}
		return SalesOrder{}, err
	}
	return order, nil
}

func (r *txRepository) GetLines(ctx context.Context, orderID int64) ([]LineItem, error) {
	return queryLines(ctx, r.tx, orderID)
}

func (r *txRepository) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM sales_order_lines WHERE sales_order_id=$1`, id); err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales_orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, orderID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM sales_order_lines WHERE sales_order_id=$1 ORDER BY line_order ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []LineItem{}
	for rows.Next() {
		var line LineItem
		var discountType string
		if err := rows.Scan(&line.ID, &line.SalesOrderID, &line.BatchID, &line.BatchCode, &line.Quantity, &line.SellingPricePerUnit, &discountType, &line.DiscountValue, &line.FinalPricePerUnit, &line.Subtotal, &line.LineProfit, &line.LineOrder); err != nil {
			return nil, err
		}
		line.DiscountType = pricing.DiscountType(discountType)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanOrder(row pgx.Row) (SalesOrder, error) {
	var order SalesOrder
	err := row.Scan(&order.ID, &order.DocNumber, &order.OrderDate, &order.CustomerName, &order.IsLocked, &order.TotalProfit, &order.CreatedAt)
	return order, err
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}
