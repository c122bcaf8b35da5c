package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var errUniqueViolation = errors.New(`duplicate key value violates unique constraint "customers_email_key"`)

// fakeStore is an in-memory CustomerStore. Like the real table it enforces
// a unique email, and a bulk insert is all-or-nothing.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*User
	rows     []CandidateRecord
	emails   EmailSet
	rejected EmailSet // emails the store refuses to insert

	findCalls   int
	insertCalls int
	insertOnes  int
	lookups     [][]string

	findErr       error // returned by FindExistingEmails
	insertErr     error // returned by InsertMany
	userErr       error // returned by FindUser
	failInsertAt  int   // 1-based InsertMany call that is rejected
	forceInserted int   // if > 0, InsertMany reports this count
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*User{
			"admin": {ID: "admin", IsAdmin: true},
			"user":  {ID: "user", IsAdmin: false},
		},
		emails:   make(EmailSet),
		rejected: make(EmailSet),
	}
}

func (s *fakeStore) FindExistingEmails(_ context.Context, emails []string) (EmailSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	s.lookups = append(s.lookups, append([]string(nil), emails...))
	if s.findErr != nil {
		return nil, s.findErr
	}
	found := make(EmailSet)
	for _, e := range emails {
		if s.emails.Has(e) {
			found[e] = struct{}{}
		}
	}
	return found, nil
}

func (s *fakeStore) InsertMany(_ context.Context, records []CandidateRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if s.failInsertAt == s.insertCalls {
		return 0, errUniqueViolation
	}
	for _, r := range records {
		if s.emails.Has(r.Email) || s.rejected.Has(r.Email) {
			return 0, errUniqueViolation
		}
	}
	for _, r := range records {
		s.emails[r.Email] = struct{}{}
		s.rows = append(s.rows, r)
	}
	if s.forceInserted > 0 {
		return s.forceInserted, nil
	}
	return len(records), nil
}

func (s *fakeStore) InsertOne(_ context.Context, r CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertOnes++
	if s.insertErr != nil && errors.Is(s.insertErr, ErrStoreUnavailable) {
		return s.insertErr
	}
	if s.emails.Has(r.Email) || s.rejected.Has(r.Email) {
		return errUniqueViolation
	}
	s.emails[r.Email] = struct{}{}
	s.rows = append(s.rows, r)
	return nil
}

func (s *fakeStore) FindUser(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return nil, s.userErr
	}
	return s.users[id], nil
}

func (s *fakeStore) stored() []CandidateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CandidateRecord(nil), s.rows...)
}

// bulkOnly hides InsertOne so the per-row policy has nothing to fall back to.
type bulkOnly struct{ CustomerStore }

// trackingSource is an upload stream that records reads and Close.
type trackingSource struct {
	r      *strings.Reader
	mu     sync.Mutex
	reads  int
	closed int
}

func newSource(data string) *trackingSource {
	return &trackingSource{r: strings.NewReader(data)}
}

func (s *trackingSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.r.Read(p)
}

func (s *trackingSource) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

const csvHeader = "name,email,phone,company,location,tags\n"

// customersCSV builds n valid rows with unique emails user<i>@example.com.
func customersCSV(n int) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "User %d,user%d@example.com,5551234567,Acme,NY,lead\n", i, i)
	}
	return b.String()
}

func row(line int, fields ...string) RawRow {
	f := make([]string, numColumns)
	copy(f, fields)
	return RawRow{Line: line, Fields: f}
}
