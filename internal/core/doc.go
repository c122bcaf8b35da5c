// Package core implements bulk customer ingestion from CSV.
//
// The package holds the domain logic only; the HTTP handler, the CLI and
// the tests all drive it through a [Coordinator] and a [CustomerStore].
//
// # Pipeline
//
// One upload flows through five stages:
//
//  1. [Coordinator.Ingest] authorizes the caller (known administrator) and
//     takes a slot from the [IngestLimiter].
//  2. [RowReader] parses the stream lazily. Columns are matched by header
//     name; a malformed record is counted and skipped.
//  3. [Accumulator] groups rows into batches of [DefaultBatchSize].
//  4. [BatchProcessor] validates each row ([ValidateRow]), drops emails seen
//     earlier in the upload, asks the [DuplicateFilter] once for emails
//     already stored, and inserts the survivors in one call.
//  5. Batch results are folded into a [Tally] and returned as an
//     [UploadSummary].
//
// Memory stays O(batch size) regardless of file size. With more than one
// worker, batches run concurrently and an in-memory ledger keeps two
// batches of the same upload from inserting the same email.
//
// # Accounting
//
// Every data row lands in exactly one bucket: inserted, skipped (validation
// or duplicate) or failed (rejected insert or malformed record). The
// summary's three totals therefore add up to the rows read.
//
// # Error Handling
//
// Per-row problems never surface as errors. Structural failures are
// sentinels ([ErrUnauthorized], [ErrForbidden], [ErrNoFile], [ErrParse],
// [ErrStoreUnavailable], [ErrAborted], [ErrTooManyUploads]) and [MapError]
// turns them into user messages with support codes.
package core
