package database

import (
	"errors"
	"fmt"
	"time"
)

// Stamp layouts used by the attendance table and the join view.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// DefaultStatus is recorded when a mark carries no status.
	DefaultStatus = "Present"
)

// ErrInvalidStamp is returned when a mark has a malformed date or time.
var ErrInvalidStamp = errors.New("invalid attendance stamp")

// Identity is an enrolled person. Roll is the unique label used by the matcher.
type Identity struct {
	ID    int64
	Roll  string
	Name  string
	Phone string
	Email string
}

// AttendanceEntry is one stored attendance record.
type AttendanceEntry struct {
	ID         int64
	IdentityID int64
	Date       string
	Time       string
	Status     string
}

// AttendanceRow is one row of the reporting join view.
type AttendanceRow struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Roll   string `json:"roll"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// MarkRequest asks the ledger to record attendance for Roll on Date.
type MarkRequest struct {
	Roll   string
	Date   string
	Time   string
	Status string
}

// NewMarkRequest stamps a mark for roll at t in local time.
func NewMarkRequest(roll string, t time.Time) MarkRequest {
	date, clock := Stamp(t)
	return MarkRequest{Roll: roll, Date: date, Time: clock, Status: DefaultStatus}
}

// Stamp formats t as the ledger's date and time strings.
func Stamp(t time.Time) (date, clock string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// Normalize validates the stamp and fills in the default status.
func (r MarkRequest) Normalize() (MarkRequest, error) {
	if r.Roll == "" {
		return r, fmt.Errorf("%w: empty roll", ErrInvalidStamp)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return r, fmt.Errorf("%w: date %q", ErrInvalidStamp, r.Date)
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return r, fmt.Errorf("%w: time %q", ErrInvalidStamp, r.Time)
	}
	if r.Status == "" {
		r.Status = DefaultStatus
	}
	return r, nil
}

// MarkOutcome classifies the result of a Mark call.
type MarkOutcome int

const (
	Inserted MarkOutcome = iota
	DuplicateSkipped
	UnknownIdentity
)

func (o MarkOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case DuplicateSkipped:
		return "duplicate_skipped"
	case UnknownIdentity:
		return "unknown_identity"
	default:
		return fmt.Sprintf("MarkOutcome(%d)", int(o))
	}
}
