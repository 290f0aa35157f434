package batch

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const batchColumns = `id, code, product_name, purchase_date, cost_per_unit, selling_price, initial_quantity, current_quantity, created_at, updated_at`

// Repository persists batches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, b Batch) (Batch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO batches (code, product_name, purchase_date, cost_per_unit, selling_price, initial_quantity, current_quantity, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
RETURNING `+batchColumns, b.Code, b.ProductName, b.PurchaseDate, b.CostPerUnit, b.SellingPrice, b.InitialQuantity, b.CurrentQuantity)
	created, err := scanBatch(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Batch{}, ErrDuplicateCode
		}
		return Batch{}, err
	}
	return created, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id=$1`, id)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrNotFound
		}
		return Batch{}, err
	}
	return b, nil
}

func (r *Repository) List(ctx context.Context) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY product_name ASC, code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func (r *Repository) ListAvailable(ctx context.Context) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM batches WHERE current_quantity > 0 ORDER BY product_name ASC, code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM batches WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUpdateTx loads a batch inside the caller's transaction, taking a row
// lock so concurrent stock checks serialize.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (Batch, error) {
	row := tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id=$1 FOR UPDATE`, id)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrNotFound
		}
		return Batch{}, err
	}
	return b, nil
}

// DeductTx decrements the remaining quantity inside the caller's transaction.
// The row must already be locked via GetForUpdateTx; the WHERE guard keeps the
// quantity from ever going negative regardless.
func DeductTx(ctx context.Context, tx pgx.Tx, id int64, qty int) (Batch, error) {
	row := tx.QueryRow(ctx, `UPDATE batches SET current_quantity = current_quantity - $2, updated_at = NOW()
WHERE id=$1 AND current_quantity >= $2
RETURNING `+batchColumns, id, qty)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, lookupErr := GetForUpdateTx(ctx, tx, id)
			if lookupErr != nil {
				return Batch{}, lookupErr
			}
			return Batch{}, &InsufficientStockError{BatchID: current.ID, Code: current.Code, Available: current.CurrentQuantity, Requested: qty}
		}
		return Batch{}, err
	}
	return b, nil
}

// RestoreTx reverses a previous deduction inside the caller's transaction.
func RestoreTx(ctx context.Context, tx pgx.Tx, id int64, qty int) (Batch, error) {
	row := tx.QueryRow(ctx, `UPDATE batches SET current_quantity = current_quantity + $2, updated_at = NOW()
WHERE id=$1 AND current_quantity + $2 <= initial_quantity
RETURNING `+batchColumns, id, qty)
	b, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, lookupErr := GetForUpdateTx(ctx, tx, id); lookupErr != nil {
				return Batch{}, lookupErr
			}
			return Batch{}, ErrRestoreExceedsInitial
		}
		return Batch{}, err
	}
	return b, nil
}

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.Code, &b.ProductName, &b.PurchaseDate, &b.CostPerUnit, &b.SellingPrice, &b.InitialQuantity, &b.CurrentQuantity, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func collectBatches(rows pgx.Rows) ([]Batch, error) {
	batches := []Batch{}
	for rows.Next() {
		var b Batch
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
