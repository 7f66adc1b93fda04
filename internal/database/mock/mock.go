// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
)

type dayKey struct {
	identityID int64
	date       string
}

// MockStore is an in-memory implementation of database.Store.
type MockStore struct {
	mu         sync.Mutex
	identities map[string]database.Identity
	entries    []database.AttendanceEntry
	marked     map[dayKey]struct{}
	nextID     int64
	nextEntry  int64
	closed     bool

	// Error injection
	MarkError  error
	ViewError  error
	CountError error
	ListError  error
	GetError   error
	SaveError  error

	// MarkCalls counts every Mark invocation, including failed ones.
	MarkCalls int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[string]database.Identity),
		marked:     make(map[dayKey]struct{}),
	}
}

// AddIdentity adds an identity and returns its assigned ID.
func (m *MockStore) AddIdentity(roll, name, phone, email string) int64 {
	id, _ := m.SaveIdentity(context.Background(), database.Identity{Roll: roll, Name: name, Phone: phone, Email: email})
	return id
}

// SaveIdentity stores id, replacing an identity with the same roll.
func (m *MockStore) SaveIdentity(ctx context.Context, id database.Identity) (int64, error) {
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	if id.Roll == "" {
		return 0, fmt.Errorf("identity roll is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[id.Roll]; ok {
		id.ID = existing.ID
	} else {
		m.nextID++
		id.ID = m.nextID
	}
	m.identities[id.Roll] = id
	return id.ID, nil
}

// GetIdentity returns the identity with roll or nil.
func (m *MockStore) GetIdentity(ctx context.Context, roll string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[roll]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// ListIdentities returns all identities ordered by roll.
func (m *MockStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Identity, 0, len(m.identities))
	for _, id := range m.identities {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b database.Identity) int { return cmp.Compare(a.Roll, b.Roll) })
	return out, nil
}

// Mark records attendance. The lookup and insert run under one lock.
func (m *MockStore) Mark(ctx context.Context, req database.MarkRequest) (database.MarkOutcome, error) {
	m.mu.Lock()
	m.MarkCalls++
	m.mu.Unlock()

	if m.MarkError != nil {
		return 0, m.MarkError
	}
	req, err := req.Normalize()
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.identities[req.Roll]
	if !ok {
		return database.UnknownIdentity, nil
	}
	key := dayKey{identityID: id.ID, date: req.Date}
	if _, dup := m.marked[key]; dup {
		return database.DuplicateSkipped, nil
	}

	m.nextEntry++
	m.entries = append(m.entries, database.AttendanceEntry{
		ID:         m.nextEntry,
		IdentityID: id.ID,
		Date:       req.Date,
		Time:       req.Time,
		Status:     req.Status,
	})
	m.marked[key] = struct{}{}
	return database.Inserted, nil
}

// AttendanceView returns the join view ordered by date, time and id, newest first.
func (m *MockStore) AttendanceView(ctx context.Context) ([]database.AttendanceRow, error) {
	if m.ViewError != nil {
		return nil, m.ViewError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[int64]database.Identity, len(m.identities))
	for _, id := range m.identities {
		byID[id.ID] = id
	}

	entries := slices.Clone(m.entries)
	slices.SortFunc(entries, func(a, b database.AttendanceEntry) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Time, a.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	rows := make([]database.AttendanceRow, 0, len(entries))
	for _, e := range entries {
		id := byID[e.IdentityID]
		rows = append(rows, database.AttendanceRow{
			Date:   e.Date,
			Time:   e.Time,
			Roll:   id.Roll,
			Name:   id.Name,
			Phone:  id.Phone,
			Email:  id.Email,
			Status: e.Status,
		})
	}
	return rows, nil
}

// CountForRoll returns the number of entries for roll.
func (m *MockStore) CountForRoll(ctx context.Context, roll string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[roll]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, e := range m.entries {
		if e.IdentityID == id.ID {
			n++
		}
	}
	return n, nil
}

// Entries returns a copy of the stored entries in insertion order.
func (m *MockStore) Entries() []database.AttendanceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ database.Store = (*MockStore)(nil)
