package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreateErrorMapsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("scan: %w", &pgconn.PgError{Code: "23505", ConstraintName: "tasks_pending_idempotency_key"})
	if err := createError(wrapped); !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}

	other := &pgconn.PgError{Code: "23503"}
	err := createError(other)
	if errors.Is(err, ErrDuplicatePending) {
		t.Fatal("a foreign key violation is not a duplicate")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		t.Fatalf("expected the original error to stay wrapped, got %v", err)
	}
}
