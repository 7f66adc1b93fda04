package database

import (
	"context"
)

// Ledger records attendance with at most one entry per identity per date.
type Ledger interface {
	// Mark records attendance for req.Roll on req.Date. The check and the
	// insert happen atomically, so concurrent callers cannot double-mark.
	Mark(ctx context.Context, req MarkRequest) (MarkOutcome, error)
	// AttendanceView returns every entry joined with its identity, ordered by
	// date DESC, time DESC, id DESC.
	AttendanceView(ctx context.Context) ([]AttendanceRow, error)
	// CountForRoll returns the number of entries recorded for roll.
	CountForRoll(ctx context.Context, roll string) (int, error)
}

// IdentityReader provides read-only access to enrolled identities.
type IdentityReader interface {
	// ListIdentities returns all identities ordered by roll.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// GetIdentity returns the identity with roll, or nil if none exists.
	GetIdentity(ctx context.Context, roll string) (*Identity, error)
}

// IdentityWriter adds identities. Used by seeding tools and tests; the
// attendance core never writes identities.
type IdentityWriter interface {
	IdentityReader
	SaveIdentity(ctx context.Context, id Identity) (int64, error)
}

// Store bundles the ledger and identity access of one backend.
type Store interface {
	Ledger
	IdentityWriter
	Close() error
}
