package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"serialization", "40001", domain.ErrConcurrencyConflict},
		{"deadlock", "40P01", domain.ErrConcurrencyConflict},
		{"unique", "23505", domain.ErrDuplicate},
		{"ledger trigger", "LL001", domain.ErrProtocolViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("op", &pgconn.PgError{Code: tt.code, Message: "boom"})
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "op")
		})
	}

	t.Run("otro código conserva el error original", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42P01"}
		err := mapError("op", pgErr)
		var got *pgconn.PgError
		assert.True(t, errors.As(err, &got))
		assert.Equal(t, "42P01", got.Code)
	})

	assert.NoError(t, mapError("op", nil))
}

func TestMovementWhere(t *testing.T) {
	where, args := movementWhere(entity.MovementFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	store := entity.Store()
	where, args = movementWhere(entity.MovementFilter{PartID: "p1", Location: &store})
	assert.Equal(t, " WHERE part_id = $1 AND van_stock_id IS NULL", where)
	assert.Equal(t, []any{"p1"}, args)

	van := entity.Van("v9")
	where, args = movementWhere(entity.MovementFilter{PartID: "p1", Location: &van})
	assert.Equal(t, " WHERE part_id = $1 AND van_stock_id = $2", where)
	assert.Equal(t, []any{"p1", "v9"}, args)
}

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	assert.NoError(t, err)
	assert.Equal(t, []string{"migrations/001_liquid_ledger.sql"}, names)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/ledger", redactDSN("postgres://app:secret@db:5432/ledger"))
}
