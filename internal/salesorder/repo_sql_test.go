package salesorder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/tokoledger/tokoledger/internal/platform/db"
)

func TestDocNumberConflictIsRetryable(t *testing.T) {
	lost := &pgconn.PgError{Code: "23505", ConstraintName: "sales_orders_doc_number_key"}

	err := docNumberConflict(lost)
	require.ErrorIs(t, err, db.ErrConcurrencyConflict)

	wrapped := docNumberConflict(fmt.Errorf("insert order: %w", lost))
	require.ErrorIs(t, wrapped, db.ErrConcurrencyConflict)
}

func TestDocNumberConflictLeavesOtherErrorsAlone(t *testing.T) {
	otherConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_keys_pkey"}
	require.NotErrorIs(t, docNumberConflict(otherConstraint), db.ErrConcurrencyConflict)

	otherCode := &pgconn.PgError{Code: "23503", ConstraintName: "sales_orders_doc_number_key"}
	require.NotErrorIs(t, docNumberConflict(otherCode), db.ErrConcurrencyConflict)

	plain := errors.New("connection reset")
	require.Equal(t, plain, docNumberConflict(plain))
}
