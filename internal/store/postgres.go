// Package store persists customers in PostgreSQL using pgx.
//
// Expected tables:
//
//	users(id TEXT PRIMARY KEY, is_admin BOOLEAN NOT NULL)
//	customers(name, email UNIQUE, phone, company, location, tags TEXT[],
//	          user_id TEXT, upload_id UUID)
//
// The unique constraint on customers.email is the last line of defence
// against duplicates from concurrent uploads.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/custingest/internal/core"
)

const (
	findEmailsSQL = `SELECT email FROM customers WHERE email = ANY($1)`
	insertOneSQL  = `INSERT INTO customers (name, email, phone, company, location, tags, user_id, upload_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	findUserSQL = `SELECT is_admin FROM users WHERE id = $1`
)

var customerColumns = []string{"name", "email", "phone", "company", "location", "tags", "user_id", "upload_id"}

// Postgres implements core.CustomerStore and core.RowInserter.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ core.CustomerStore = (*Postgres)(nil)
	_ core.RowInserter   = (*Postgres)(nil)
)

// New wraps an open pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// FindExistingEmails returns the emails already stored, in one query.
func (s *Postgres) FindExistingEmails(ctx context.Context, emails []string) (core.EmailSet, error) {
	rows, err := s.pool.Query(ctx, findEmailsSQL, emails)
	if err != nil {
		return nil, classify("find existing emails", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify("find existing emails", err)
	}
	return core.NewEmailSet(found...), nil
}

// InsertMany copies records into customers in one transaction. Either every
// record is stored or none is.
func (s *Postgres) InsertMany(ctx context.Context, records []core.CandidateRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	uploadID := uploadUUID(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classify("begin", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"customers"}, customerColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return customerRow(records[i], uploadID), nil
		}))
	if err != nil {
		return 0, classify("copy customers", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify("commit", err)
	}
	return int(n), nil
}

// InsertOne stores a single record. It backs the per-row insert policy.
func (s *Postgres) InsertOne(ctx context.Context, rec core.CandidateRecord) error {
	if _, err := s.pool.Exec(ctx, insertOneSQL, customerRow(rec, uploadUUID(ctx))...); err != nil {
		return classify("insert customer", err)
	}
	return nil
}

// FindUser returns nil, nil for an unknown id.
func (s *Postgres) FindUser(ctx context.Context, userID string) (*core.User, error) {
	var isAdmin bool
	err := s.pool.QueryRow(ctx, findUserSQL, userID).Scan(&isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find user", err)
	}
	return &core.User{ID: userID, IsAdmin: isAdmin}, nil
}

// Ping checks connectivity for the health endpoint.
func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func customerRow(rec core.CandidateRecord, uploadID pgtype.UUID) []any {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{rec.Name, rec.Email, rec.Phone, rec.Company, rec.Location, tags, rec.OwnerUserID, uploadID}
}

func uploadUUID(ctx context.Context) pgtype.UUID {
	id := core.UploadIDFromContext(ctx)
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

// classify separates rows the server refused from a server we could not
// talk to. A *pgconn.PgError is a rejection unless its SQLSTATE class says
// the connection or the server itself is in trouble.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && !unavailableClass(pgErr.Code) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return core.Unavailable(op, err)
}

// unavailableClass reports SQLSTATE classes that mean "try again later":
// 08 connection exception, 53 insufficient resources, 57 operator
// intervention (shutdown, cancel).
func unavailableClass(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "53", "57":
		return true
	}
	return false
}
