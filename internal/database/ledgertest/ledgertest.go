// Package ledgertest runs the same ledger checks against every backend.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Run exercises the daily mark contract. newStore must return an empty store
// for every call.
func Run(t *testing.T, newStore func(t *testing.T) database.Store) {
	t.Helper()

	t.Run("DuplicateSameDay", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed(t, s, "S01")

		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-01", Time: "09:00:00"}, database.Inserted)
		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-01", Time: "09:05:00"}, database.DuplicateSkipped)

		rows, err := s.AttendanceView(ctx)
		if err != nil {
			t.Fatalf("AttendanceView failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0].Time != "09:00:00" {
			t.Errorf("expected first time to be kept, got %s", rows[0].Time)
		}
	})

	t.Run("DistinctDates", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S01")

		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-01", Time: "09:00:00"}, database.Inserted)
		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-02", Time: "09:00:00"}, database.Inserted)

		if n := count(t, s, "S01"); n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}
	})

	t.Run("UnknownIdentity", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S01")

		mustMark(t, s, database.MarkRequest{Roll: "ghost", Date: "2025-01-01", Time: "09:00:00"}, database.UnknownIdentity)

		if n := count(t, s, "ghost"); n != 0 {
			t.Errorf("expected 0 entries for unknown roll, got %d", n)
		}
		rows, err := s.AttendanceView(context.Background())
		if err != nil {
			t.Fatalf("AttendanceView failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected empty view, got %d rows", len(rows))
		}
	})

	t.Run("InvalidStamp", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S01")

		for _, req := range []database.MarkRequest{
			{Roll: "S01", Date: "2025/01/01", Time: "09:00:00"},
			{Roll: "S01", Date: "2025-01-01", Time: "nine"},
			{Roll: "", Date: "2025-01-01", Time: "09:00:00"},
		} {
			if _, err := s.Mark(context.Background(), req); !errors.Is(err, database.ErrInvalidStamp) {
				t.Errorf("Mark(%+v) error = %v, want ErrInvalidStamp", req, err)
			}
		}
		if n := count(t, s, "S01"); n != 0 {
			t.Errorf("expected no writes, got %d", n)
		}
	})

	t.Run("StatusDefaultAndExplicit", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S01")
		seed(t, s, "S02")

		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-01", Time: "09:00:00"}, database.Inserted)
		mustMark(t, s, database.MarkRequest{Roll: "S02", Date: "2025-01-01", Time: "08:00:00", Status: "Late"}, database.Inserted)

		rows, err := s.AttendanceView(context.Background())
		if err != nil {
			t.Fatalf("AttendanceView failed: %v", err)
		}
		status := map[string]string{}
		for _, r := range rows {
			status[r.Roll] = r.Status
		}
		if status["S01"] != database.DefaultStatus {
			t.Errorf("expected default status for S01, got %q", status["S01"])
		}
		if status["S02"] != "Late" {
			t.Errorf("expected Late for S02, got %q", status["S02"])
		}
	})

	t.Run("ViewShapeAndOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.SaveIdentity(ctx, database.Identity{Roll: "S01", Name: "Ana", Phone: "555-0101", Email: "ana@example.com"}); err != nil {
			t.Fatalf("SaveIdentity failed: %v", err)
		}
		seed(t, s, "S02")
		seed(t, s, "S03")

		mustMark(t, s, database.MarkRequest{Roll: "S02", Date: "2025-01-01", Time: "08:00:00"}, database.Inserted)
		mustMark(t, s, database.MarkRequest{Roll: "S01", Date: "2025-01-02", Time: "07:00:00"}, database.Inserted)
		mustMark(t, s, database.MarkRequest{Roll: "S03", Date: "2025-01-01", Time: "10:00:00"}, database.Inserted)

		rows, err := s.AttendanceView(ctx)
		if err != nil {
			t.Fatalf("AttendanceView failed: %v", err)
		}
		wantOrder := []string{"S01", "S03", "S02"}
		if len(rows) != len(wantOrder) {
			t.Fatalf("expected %d rows, got %d", len(wantOrder), len(rows))
		}
		for i, roll := range wantOrder {
			if rows[i].Roll != roll {
				t.Errorf("row %d: expected roll %s, got %s", i, roll, rows[i].Roll)
			}
		}

		want := database.AttendanceRow{
			Date: "2025-01-02", Time: "07:00:00", Roll: "S01",
			Name: "Ana", Phone: "555-0101", Email: "ana@example.com", Status: "Present",
		}
		if rows[0] != want {
			t.Errorf("row 0 = %+v, want %+v", rows[0], want)
		}
	})

	t.Run("ConcurrentMarks", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S01")

		const workers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			inserted int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := s.Mark(context.Background(), database.MarkRequest{Roll: "S01", Date: "2025-01-01", Time: "09:00:00"})
				if err != nil {
					t.Errorf("Mark failed: %v", err)
					return
				}
				if out == database.Inserted {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if inserted != 1 {
			t.Errorf("expected exactly one Inserted, got %d", inserted)
		}
		if n := count(t, s, "S01"); n != 1 {
			t.Errorf("expected 1 entry, got %d", n)
		}
	})

	t.Run("ListIdentities", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, "S02")
		seed(t, s, "S01")

		ids, err := s.ListIdentities(context.Background())
		if err != nil {
			t.Fatalf("ListIdentities failed: %v", err)
		}
		if len(ids) != 2 || ids[0].Roll != "S01" || ids[1].Roll != "S02" {
			t.Errorf("ListIdentities = %+v, want S01, S02", ids)
		}

		got, err := s.GetIdentity(context.Background(), "missing")
		if err != nil {
			t.Fatalf("GetIdentity failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing roll, got %+v", got)
		}
	})
}

func seed(t *testing.T, s database.Store, roll string) {
	t.Helper()
	if _, err := s.SaveIdentity(context.Background(), database.Identity{Roll: roll, Name: "Name " + roll}); err != nil {
		t.Fatalf("SaveIdentity(%s) failed: %v", roll, err)
	}
}

func mustMark(t *testing.T, s database.Store, req database.MarkRequest, want database.MarkOutcome) {
	t.Helper()
	got, err := s.Mark(context.Background(), req)
	if err != nil {
		t.Fatalf("Mark(%+v) failed: %v", req, err)
	}
	if got != want {
		t.Fatalf("Mark(%+v) = %s, want %s", req, got, want)
	}
}

func count(t *testing.T, s database.Store, roll string) int {
	t.Helper()
	n, err := s.CountForRoll(context.Background(), roll)
	if err != nil {
		t.Fatalf("CountForRoll(%s) failed: %v", roll, err)
	}
	return n
}
