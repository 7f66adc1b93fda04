package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// StudentsHandler serves enrolled identities.
type StudentsHandler struct {
	identities database.IdentityReader
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(identities database.IdentityReader) *StudentsHandler {
	return &StudentsHandler{identities: identities}
}

type studentResponse struct {
	Roll  string `json:"roll"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func toStudentResponse(id database.Identity) studentResponse {
	return studentResponse{Roll: id.Roll, Name: id.Name, Phone: id.Phone, Email: id.Email}
}

// List returns all identities ordered by roll.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.identities.ListIdentities(r.Context())
	if err != nil {
		slog.Error("failed to list students", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	out := make([]studentResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, toStudentResponse(id))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one identity by roll.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	roll := chi.URLParam(r, "roll")
	id, err := h.identities.GetIdentity(r.Context(), roll)
	if err != nil {
		slog.Error("failed to get student", "roll", sanitizeForLog(roll), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get student")
		return
	}
	if id == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	respondJSON(w, http.StatusOK, toStudentResponse(*id))
}
