package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Ledger)
	studentsHandler := handlers.NewStudentsHandler(s.deps.Identities)
	pipelineHandler := handlers.NewPipelineHandler(s.deps.Pipeline)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Get("/attendance", attendanceHandler.List)

		r.Get("/students", studentsHandler.List)
		r.Get("/students/{roll}", studentsHandler.Get)

		r.Get("/pipeline", pipelineHandler.Status)
	})
}
