package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/custingest/internal/logging"
	"github.com/JonMunkholm/custingest/internal/metrics"
)

// maxLoggedFormatErrors caps the malformed rows logged per upload.
const maxLoggedFormatErrors = 10

// Options configures a Coordinator.
type Options struct {
	BatchSize    int           // rows per batch (default 1000)
	Workers      int           // concurrent batch workers (default 1, sequential)
	BatchTimeout time.Duration // bound on one batch's store calls
	Policy       InsertPolicy  // accounting of failed bulk inserts
	Limiter      *IngestLimiter
}

// Coordinator drives one upload from byte stream to summary.
//
// Every call to Ingest owns its tally, accumulator and email ledger; nothing
// is shared between concurrent uploads except the store and the limiter.
type Coordinator struct {
	store     CustomerStore
	processor *BatchProcessor
	opts      Options
}

// NewCoordinator creates a coordinator over store.
func NewCoordinator(store CustomerStore, opts Options) *Coordinator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = PolicyBatch
	}
	return &Coordinator{
		store:     store,
		processor: NewBatchProcessor(store, opts.Policy, opts.BatchTimeout),
		opts:      opts,
	}
}

// Ingest authorizes the caller, streams src through the batch pipeline and
// returns the summary.
//
// src is closed on every path, including authorization failures, so any
// temp file behind it is released. A non-admin caller gets ErrForbidden
// before a single byte is read. When ctx ends mid-stream the error wraps
// ErrAborted and the summary covers the batches that completed. A store
// failure wraps ErrStoreUnavailable; batches folded before it still count.
func (c *Coordinator) Ingest(ctx context.Context, src io.ReadCloser, requestingUserID string) (UploadSummary, error) {
	if src != nil {
		defer func() {
			if err := src.Close(); err != nil {
				logging.FromContext(ctx).Warn("release upload source", "error", err)
			}
		}()
	}

	if err := c.authorize(ctx, requestingUserID); err != nil {
		return UploadSummary{}, err
	}
	if src == nil {
		return UploadSummary{}, ErrNoFile
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Acquire(ctx); err != nil {
			return UploadSummary{}, err
		}
		defer c.opts.Limiter.Release()
	}

	uploadID := uuid.New()
	ctx = ContextWithUploadID(ctx, uploadID)
	logger := logging.WithFields(ctx,
		"upload_id", uploadID.String(),
		"user_id", requestingUserID,
	)
	ctx = logging.NewContext(ctx, logger)
	logger.Info("upload started",
		"batch_size", c.opts.BatchSize,
		"workers", c.opts.Workers,
		"insert_policy", string(c.opts.Policy),
	)

	metrics.UploadStarted()
	start := time.Now()
	tally := &Tally{}
	bytesRead, err := c.run(ctx, src, requestingUserID, tally, logger)

	summary := tally.Summary()
	result := tally.Result()
	metrics.AddRows(metrics.OutcomeInserted, result.Inserted)
	metrics.AddRows(metrics.OutcomeValidation, result.SkippedValidation)
	metrics.AddRows(metrics.OutcomeDuplicate, result.SkippedDuplicate)
	metrics.AddRows(metrics.OutcomeFailed, result.FailedInsert)
	metrics.AddRows(metrics.OutcomeInvalidFormat, result.InvalidFormat)

	attrs := []any{
		"rows", result.Rows(),
		"inserted", result.Inserted,
		"skipped", summary.TotalSkipped,
		"failed", summary.TotalFailed,
		"missing_field", result.Reasons[ReasonMissingField],
		"invalid_email", result.Reasons[ReasonInvalidEmail],
		"invalid_phone", result.Reasons[ReasonInvalidPhone],
		"bytes", bytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
		metrics.UploadFinished("ok", bytesRead)
		logger.Info("upload completed", attrs...)
	case errors.Is(err, ErrAborted):
		metrics.UploadFinished("aborted", bytesRead)
		logger.Warn("upload aborted", append(attrs, "error", err)...)
	default:
		metrics.UploadFinished("error", bytesRead)
		logger.Error("upload failed", append(attrs, "error", err)...)
	}
	return summary, err
}

// authorize allows only known administrators. It never touches the stream.
func (c *Coordinator) authorize(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	user, err := c.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return fmt.Errorf("find user: %w", err)
		}
		return Unavailable("find user", err)
	}
	if user == nil || !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// run is the producer loop. Rows are parsed on this goroutine; batches are
// handed to at most opts.Workers workers and folded into tally as they
// finish.
func (c *Coordinator) run(ctx context.Context, src io.Reader, owner string, tally *Tally, logger *slog.Logger) (int64, error) {
	stream, counter := WrapForStreaming(src)
	rows, err := NewRowReader(stream)
	if err != nil {
		return counter.BytesRead(), err
	}

	var ledger *emailLedger
	if c.opts.Workers > 1 {
		ledger = newEmailLedger()
	}

	// Batches already handed out finish even if the client goes away; the
	// batch timeout still bounds them.
	workCtx := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	dispatch := func(batch []RawRow) {
		g.Go(func() error {
			// A batch still waiting for a slot when the upload fails or is
			// aborted is dropped.
			if gctx.Err() != nil {
				return nil
			}
			res, err := c.processor.process(workCtx, batch, owner, ledger)
			if err != nil {
				return fmt.Errorf("batch at line %d: %w", batch[0].Line, err)
			}
			tally.Fold(res)
			return nil
		})
	}

	acc := NewAccumulator(c.opts.BatchSize)
	formatErrors := 0
	var readErr error
	for gctx.Err() == nil {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		var rfe *RowFormatError
		if errors.As(err, &rfe) {
			var bad BatchResult
			bad.InvalidFormat = 1
			bad.Reasons[ReasonInvalidFormat] = 1
			tally.Fold(bad)
			if formatErrors++; formatErrors <= maxLoggedFormatErrors {
				logger.Debug("malformed csv row", "line", rfe.Line, "error", rfe.Err)
			}
			continue
		}
		if err != nil {
			readErr = err
			break
		}
		if batch, full := acc.Add(row); full {
			dispatch(batch)
		}
	}

	if readErr == nil && gctx.Err() == nil {
		if batch := acc.Flush(); batch != nil {
			dispatch(batch)
		}
	}

	werr := g.Wait()
	switch {
	case werr != nil:
		return counter.BytesRead(), werr
	case ctx.Err() != nil:
		return counter.BytesRead(), fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	case readErr != nil:
		return counter.BytesRead(), readErr
	}
	return counter.BytesRead(), nil
}
