package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"no rows", pgx.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("find user: %w", pgx.ErrNoRows), ErrCodeNotFound},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrCodeConflict},
		{"check violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, ErrCodeValidation},
		{"not null violation", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, ErrCodeValidation},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, ErrCodeStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.err)
			assert.Equal(t, tt.want, GetCode(mapped))
			assert.ErrorIs(t, mapped, tt.err)
		})
	}
}

func TestMapDBErrorPassesThroughForeignErrors(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Equal(t, plain, MapDBError(plain))
	assert.NoError(t, MapDBError(nil))
}
