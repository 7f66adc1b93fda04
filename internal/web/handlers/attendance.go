package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler serves the attendance join view.
type AttendanceHandler struct {
	ledger database.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(ledger database.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

// List returns every attendance row, newest first. Optional query parameters
// date (YYYY-MM-DD) and roll narrow the result without changing its order.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	roll := r.URL.Query().Get("roll")
	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	rows, err := h.ledger.AttendanceView(r.Context())
	if err != nil {
		slog.Error("failed to load attendance view", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}

	out := make([]database.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		if date != "" && row.Date != date {
			continue
		}
		if roll != "" && row.Roll != roll {
			continue
		}
		out = append(out, row)
	}

	slog.Debug("attendance listed", "rows", len(out), "roll", sanitizeForLog(roll), "date", date)
	respondJSON(w, http.StatusOK, out)
}
