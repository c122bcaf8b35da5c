package core

import (
	"context"
	"sync"
)

// EmailSet is a set of normalized email addresses.
type EmailSet map[string]struct{}

// NewEmailSet builds a set from a list of emails.
func NewEmailSet(emails ...string) EmailSet {
	s := make(EmailSet, len(emails))
	for _, e := range emails {
		s[e] = struct{}{}
	}
	return s
}

// Has reports whether email is in the set.
func (s EmailSet) Has(email string) bool {
	_, ok := s[email]
	return ok
}

// DuplicateFilter finds candidate emails that are already persisted.
type DuplicateFilter struct {
	store CustomerStore
}

// NewDuplicateFilter creates a filter backed by store.
func NewDuplicateFilter(store CustomerStore) *DuplicateFilter {
	return &DuplicateFilter{store: store}
}

// FindDuplicates returns the subset of emails already in the store, using
// exactly one store lookup. An empty input does not touch the store.
//
// A store failure is returned wrapped in ErrStoreUnavailable; it is never
// reported as "no duplicates".
func (f *DuplicateFilter) FindDuplicates(ctx context.Context, emails []string) (EmailSet, error) {
	if len(emails) == 0 {
		return EmailSet{}, nil
	}

	existing, err := f.store.FindExistingEmails(ctx, emails)
	if err != nil {
		return nil, Unavailable("find existing emails", err)
	}

	// Only report emails that were asked about.
	asked := NewEmailSet(emails...)
	found := make(EmailSet, len(existing))
	for e := range existing {
		if asked.Has(e) {
			found[e] = struct{}{}
		}
	}
	return found, nil
}

// emailLedger records the emails claimed by batches of a single upload. It
// serializes the check-then-insert sequence per email when batches of the
// same upload run concurrently.
type emailLedger struct {
	mu      sync.Mutex
	claimed EmailSet
}

func newEmailLedger() *emailLedger {
	return &emailLedger{claimed: make(EmailSet)}
}

// claim marks each email as taken and reports, per position, whether this
// call won it.
func (l *emailLedger) claim(emails []string) []bool {
	won := make([]bool, len(emails))
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range emails {
		if l.claimed.Has(e) {
			continue
		}
		l.claimed[e] = struct{}{}
		won[i] = true
	}
	return won
}
