package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custingest/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"string too long", &pgconn.PgError{Code: "22001"}, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"wrapped pg error", fmt.Errorf("copy: %w", &pgconn.PgError{Code: "23505"}), false},
		{"network", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.unavailable, errors.Is(err, core.ErrStoreUnavailable))
		})
	}
}

func TestCustomerRow(t *testing.T) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	rec := core.CandidateRecord{
		Name: "Alice", Email: "a@x.com", Phone: "1234567890",
		Company: "Acme", Location: "NY", OwnerUserID: "admin",
	}

	got := customerRow(rec, id)
	require.Len(t, got, len(customerColumns))
	require.Equal(t, []any{"Alice", "a@x.com", "1234567890", "Acme", "NY", []string{}, "admin", id}, got)
}

func TestUploadUUID(t *testing.T) {
	require.False(t, uploadUUID(context.Background()).Valid)

	id := uuid.New()
	got := uploadUUID(core.ContextWithUploadID(context.Background(), id))
	require.True(t, got.Valid)
	require.Equal(t, [16]byte(id), got.Bytes)
}
