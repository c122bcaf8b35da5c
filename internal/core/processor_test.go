package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func validRows(n int) []RawRow {
	rows := make([]RawRow, n)
	for i := range rows {
		rows[i] = row(i+2, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), "5551234567", "Acme", "NY")
	}
	return rows
}

func TestProcessBatch(t *testing.T) {
	store := newFakeStore()
	store.emails = NewEmailSet("known@x.com")
	p := NewBatchProcessor(store, PolicyBatch, DefaultBatchTimeout)

	rows := []RawRow{
		row(2, "Alice", "a@x.com", "1234567890", "Acme", "NY", "lead"),
		row(3, "Bob", "bad-email", "1234567890", "Acme", "NY"),
		row(4, "Alice Again", "A@X.com", "1234567890", "Acme", "NY"),
		row(5, "Known", "known@x.com", "1234567890", "Acme", "NY"),
		row(6, "NoPhone", "np@x.com", "", "Acme", "NY"),
		row(7, "Carol", "c@x.com", "12345", "Acme", "NY"),
	}
	res, err := p.ProcessBatch(context.Background(), rows, "admin")
	require.NoError(t, err)

	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 3, res.SkippedValidation)
	require.Equal(t, 2, res.SkippedDuplicate)
	require.Zero(t, res.FailedInsert)
	require.Equal(t, len(rows), res.Rows())
	require.Equal(t, 1, res.Reasons[ReasonInvalidEmail])
	require.Equal(t, 1, res.Reasons[ReasonMissingField])
	require.Equal(t, 1, res.Reasons[ReasonInvalidPhone])

	require.Equal(t, 1, store.findCalls)
	require.Equal(t, []string{"a@x.com", "known@x.com"}, store.lookups[0])
	require.Equal(t, 1, store.insertCalls)

	stored := store.stored()
	require.Len(t, stored, 1)
	require.Equal(t, "Alice", stored[0].Name)
	require.Equal(t, "admin", stored[0].OwnerUserID)
	require.Equal(t, []string{"lead"}, stored[0].Tags)
}

func TestProcessBatchNothingToInsert(t *testing.T) {
	store := newFakeStore()
	p := NewBatchProcessor(store, PolicyBatch, 0)

	res, err := p.ProcessBatch(context.Background(), []RawRow{row(2, "Bob", "bad-email")}, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, res.SkippedValidation)
	require.Zero(t, store.findCalls, "no candidates means no lookup")
	require.Zero(t, store.insertCalls)
}

func TestProcessBatchInsertRejected(t *testing.T) {
	tests := []struct {
		name         string
		store        func(*fakeStore) CustomerStore
		policy       InsertPolicy
		wantInserted int
		wantFailed   int
	}{
		{
			name:       "batch policy counts every row",
			store:      func(s *fakeStore) CustomerStore { return s },
			policy:     PolicyBatch,
			wantFailed: 50,
		},
		{
			name:         "per-row policy isolates the bad row",
			store:        func(s *fakeStore) CustomerStore { return s },
			policy:       PolicyPerRow,
			wantInserted: 49,
			wantFailed:   1,
		},
		{
			name:       "per-row policy without single inserts",
			store:      func(s *fakeStore) CustomerStore { return bulkOnly{s} },
			policy:     PolicyPerRow,
			wantFailed: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeStore()
			fake.rejected = NewEmailSet("user7@example.com")
			p := NewBatchProcessor(tt.store(fake), tt.policy, DefaultBatchTimeout)

			res, err := p.ProcessBatch(context.Background(), validRows(50), "admin")
			require.NoError(t, err)
			require.Equal(t, tt.wantInserted, res.Inserted)
			require.Equal(t, tt.wantFailed, res.FailedInsert)
			require.Equal(t, 50, res.Rows())
		})
	}
}

func TestProcessBatchPartialInsertCount(t *testing.T) {
	store := newFakeStore()
	store.forceInserted = 8
	p := NewBatchProcessor(store, PolicyBatch, 0)

	res, err := p.ProcessBatch(context.Background(), validRows(10), "admin")
	require.NoError(t, err)
	require.Equal(t, 8, res.Inserted)
	require.Equal(t, 2, res.FailedInsert)
}

func TestProcessBatchStoreUnavailable(t *testing.T) {
	t.Run("duplicate check", func(t *testing.T) {
		store := newFakeStore()
		store.findErr = errors.New("dial tcp: connection refused")
		p := NewBatchProcessor(store, PolicyBatch, 0)

		res, err := p.ProcessBatch(context.Background(), validRows(3), "admin")
		require.ErrorIs(t, err, ErrStoreUnavailable)
		require.Zero(t, res.Rows())
		require.Zero(t, store.insertCalls, "a failed lookup must not fall through to insert")
	})

	t.Run("insert", func(t *testing.T) {
		store := newFakeStore()
		store.insertErr = Unavailable("insert customers", errors.New("conn closed"))
		p := NewBatchProcessor(store, PolicyPerRow, 0)

		res, err := p.ProcessBatch(context.Background(), validRows(3), "admin")
		require.ErrorIs(t, err, ErrStoreUnavailable)
		require.Zero(t, res.Rows())
		require.Zero(t, store.insertOnes, "unavailability is not retried row by row")
	})
}

func TestProcessBatchLedger(t *testing.T) {
	store := newFakeStore()
	p := NewBatchProcessor(store, PolicyBatch, 0)
	ledger := newEmailLedger()
	ledger.claim([]string{"user1@example.com"})

	res, err := p.process(context.Background(), validRows(3), "admin", ledger)
	require.NoError(t, err)
	require.Equal(t, 2, res.Inserted)
	require.Equal(t, 1, res.SkippedDuplicate)
	require.Equal(t, []string{"user0@example.com", "user2@example.com"}, store.lookups[0])
}
