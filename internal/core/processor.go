package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/custingest/internal/logging"
	"github.com/JonMunkholm/custingest/internal/metrics"
)

// DefaultBatchTimeout bounds the store round-trips of one batch.
const DefaultBatchTimeout = 30 * time.Second

// maxLoggedRejections caps the rejected rows logged per batch.
const maxLoggedRejections = 5

// BatchProcessor validates, deduplicates and inserts one batch of rows.
type BatchProcessor struct {
	store   CustomerStore
	dups    *DuplicateFilter
	policy  InsertPolicy
	timeout time.Duration
}

// NewBatchProcessor creates a processor. A non-positive timeout disables the
// per-batch bound.
func NewBatchProcessor(store CustomerStore, policy InsertPolicy, timeout time.Duration) *BatchProcessor {
	if policy == "" {
		policy = PolicyBatch
	}
	return &BatchProcessor{
		store:   store,
		dups:    NewDuplicateFilter(store),
		policy:  policy,
		timeout: timeout,
	}
}

// ProcessBatch handles one batch and returns its counters. Validation and
// duplicate outcomes are counted, never returned as errors. The only error
// is a store failure wrapped in ErrStoreUnavailable, in which case the
// returned result is empty and must not be folded.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, rows []RawRow, ownerUserID string) (BatchResult, error) {
	return p.process(ctx, rows, ownerUserID, nil)
}

func (p *BatchProcessor) process(ctx context.Context, rows []RawRow, ownerUserID string, ledger *emailLedger) (BatchResult, error) {
	start := time.Now()
	res, err := p.run(ctx, rows, ownerUserID, ledger)
	if err != nil {
		metrics.ObserveBatch(time.Since(start), "error")
		return BatchResult{}, err
	}
	metrics.ObserveBatch(time.Since(start), "ok")
	return res, nil
}

func (p *BatchProcessor) run(ctx context.Context, rows []RawRow, ownerUserID string, ledger *emailLedger) (BatchResult, error) {
	var res BatchResult
	logger := logging.FromContext(ctx)

	// 1. Validate, then keep the first occurrence of each email.
	candidates := make([]CandidateRecord, 0, len(rows))
	seen := make(EmailSet, len(rows))
	for _, row := range rows {
		out := ValidateRow(row, ownerUserID)
		if !out.Valid() {
			res.SkippedValidation++
			res.Reasons[out.Reason]++
			if res.SkippedValidation <= maxLoggedRejections {
				logger.Debug("row rejected", "line", row.Line, "reason", out.Reason.String())
			}
			continue
		}
		if seen.Has(out.Record.Email) {
			res.SkippedDuplicate++
			continue
		}
		seen[out.Record.Email] = struct{}{}
		candidates = append(candidates, out.Record)
	}

	// 2. Emails taken by another batch of the same upload.
	if ledger != nil && len(candidates) > 0 {
		emails := emailsOf(candidates)
		won := ledger.claim(emails)
		kept := candidates[:0]
		for i, c := range candidates {
			if !won[i] {
				res.SkippedDuplicate++
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}
	if len(candidates) == 0 {
		return res, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	// 3. Emails already persisted.
	existing, err := p.dups.FindDuplicates(ctx, emailsOf(candidates))
	if err != nil {
		return BatchResult{}, err
	}
	if len(existing) > 0 {
		kept := candidates[:0]
		for _, c := range candidates {
			if existing.Has(c.Email) {
				res.SkippedDuplicate++
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}
	if len(candidates) == 0 {
		return res, nil
	}

	// 4. One bulk insert.
	inserted, failed, err := p.insert(ctx, candidates)
	if err != nil {
		return BatchResult{}, err
	}
	if failed > 0 {
		logger.Warn("insert rejected rows", "first_line", rows[0].Line, "failed", failed, "policy", string(p.policy))
	}
	res.Inserted += inserted
	res.FailedInsert += failed
	return res, nil
}

// insert stores the survivors and splits them into inserted and failed.
func (p *BatchProcessor) insert(ctx context.Context, records []CandidateRecord) (inserted, failed int, err error) {
	n, err := p.store.InsertMany(ctx, records)
	if err == nil {
		if n > len(records) {
			n = len(records)
		}
		return n, len(records) - n, nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return 0, 0, err
	}

	one, ok := p.store.(RowInserter)
	if p.policy != PolicyPerRow || !ok {
		return 0, len(records), nil
	}

	for _, rec := range records {
		if err := one.InsertOne(ctx, rec); err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return 0, 0, fmt.Errorf("per-row insert: %w", err)
			}
			failed++
			continue
		}
		inserted++
	}
	return inserted, failed, nil
}

func emailsOf(records []CandidateRecord) []string {
	emails := make([]string, len(records))
	for i, r := range records {
		emails[i] = r.Email
	}
	return emails
}
