package core

import (
	"context"
	"sync"
)

// Canonical column positions. The row parser reorders every CSV record into
// this order, whatever order the header names the columns in.
const (
	ColName = iota
	ColEmail
	ColPhone
	ColCompany
	ColLocation
	ColTags
	numColumns
)

// Columns lists the header names in canonical order.
var Columns = [numColumns]string{"name", "email", "phone", "company", "location", "tags"}

// requiredColumns must be present in the header; tags is optional.
var requiredColumns = []int{ColName, ColEmail, ColPhone, ColCompany, ColLocation}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// RawRow is one parsed CSV record in canonical column order.
type RawRow struct {
	Line   int      // 1-based line number where the record starts
	Fields []string // len == numColumns
}

// Field returns the value of a canonical column, or "" if absent.
func (r RawRow) Field(col int) string {
	if col < 0 || col >= len(r.Fields) {
		return ""
	}
	return r.Fields[col]
}

// CandidateRecord is a validated, normalized customer ready for insertion.
type CandidateRecord struct {
	Name        string
	Email       string // trimmed and lower-cased
	Phone       string
	Company     string
	Location    string
	Tags        []string // lower-cased, unique, first-seen order
	OwnerUserID string
}

// User is the subset of the user record the ingester needs.
type User struct {
	ID      string
	IsAdmin bool
}

// CustomerStore is the persistence collaborator for ingestion.
//
// Implementations must wrap transport-level failures (network, timeout,
// closed pool) with ErrStoreUnavailable. Any other error returned from
// InsertMany is treated as a rejection of the attempted records.
type CustomerStore interface {
	// FindExistingEmails returns the subset of emails already stored.
	FindExistingEmails(ctx context.Context, emails []string) (EmailSet, error)

	// InsertMany inserts records in one call and returns how many were stored.
	InsertMany(ctx context.Context, records []CandidateRecord) (int, error)

	// FindUser returns nil, nil when the user does not exist.
	FindUser(ctx context.Context, userID string) (*User, error)
}

// RowInserter is implemented by stores that can insert a single record.
// It backs the per-row insert policy.
type RowInserter interface {
	InsertOne(ctx context.Context, record CandidateRecord) error
}

// InsertPolicy controls how a failed bulk insert is accounted.
type InsertPolicy string

const (
	// PolicyBatch counts the whole attempted set as failed when the bulk insert fails.
	PolicyBatch InsertPolicy = "batch"
	// PolicyPerRow retries each record individually after a bulk failure.
	PolicyPerRow InsertPolicy = "per-row"
)

// ParseInsertPolicy converts a config string to an InsertPolicy.
func ParseInsertPolicy(s string) (InsertPolicy, bool) {
	switch InsertPolicy(s) {
	case PolicyBatch, "":
		return PolicyBatch, true
	case PolicyPerRow:
		return PolicyPerRow, true
	default:
		return "", false
	}
}

// BatchResult counts the outcomes of one batch. Results merge by addition.
type BatchResult struct {
	Inserted          int
	SkippedValidation int
	SkippedDuplicate  int
	FailedInsert      int
	InvalidFormat     int

	// Reasons breaks SkippedValidation (and InvalidFormat) down by code.
	Reasons [numReasons]int
}

// Add merges other into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Inserted += other.Inserted
	r.SkippedValidation += other.SkippedValidation
	r.SkippedDuplicate += other.SkippedDuplicate
	r.FailedInsert += other.FailedInsert
	r.InvalidFormat += other.InvalidFormat
	for i := range r.Reasons {
		r.Reasons[i] += other.Reasons[i]
	}
}

// Rows returns the number of data rows this result accounts for.
func (r BatchResult) Rows() int {
	return r.Inserted + r.SkippedValidation + r.SkippedDuplicate + r.FailedInsert + r.InvalidFormat
}

// ErrorSummary breaks down rows that were not inserted.
type ErrorSummary struct {
	Validation int `json:"validation"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// UploadSummary is the final outcome of one ingestion.
//
// TotalProcessed counts inserted rows, TotalSkipped counts validation and
// duplicate rejects, TotalFailed counts insert failures and malformed CSV
// rows. The three totals add up to the number of data rows read.
type UploadSummary struct {
	TotalProcessed int          `json:"totalProcessed"`
	TotalSkipped   int          `json:"totalSkipped"`
	TotalFailed    int          `json:"totalFailed"`
	ErrorSummary   ErrorSummary `json:"errorSummary"`
}

// Tally is the running result of one ingestion. It is safe for concurrent
// use by batch workers.
type Tally struct {
	mu     sync.Mutex
	result BatchResult
}

// Fold merges one batch result into the tally.
func (t *Tally) Fold(r BatchResult) {
	t.mu.Lock()
	t.result.Add(r)
	t.mu.Unlock()
}

// Result returns a copy of the accumulated counters.
func (t *Tally) Result() BatchResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Summary builds the UploadSummary from the accumulated counters.
func (t *Tally) Summary() UploadSummary {
	r := t.Result()
	failed := r.FailedInsert + r.InvalidFormat
	return UploadSummary{
		TotalProcessed: r.Inserted,
		TotalSkipped:   r.SkippedValidation + r.SkippedDuplicate,
		TotalFailed:    failed,
		ErrorSummary: ErrorSummary{
			Validation: r.SkippedValidation,
			Duplicates: r.SkippedDuplicate,
			Failed:     failed,
		},
	}
}
