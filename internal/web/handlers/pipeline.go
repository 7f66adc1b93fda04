package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

// PipelineStatus is implemented by a running scheduler.
type PipelineStatus interface {
	State() pipeline.State
	Stats() pipeline.Stats
	RunID() string
}

// PipelineHandler reports live scheduler counters.
type PipelineHandler struct {
	status PipelineStatus
}

// NewPipelineHandler creates a new pipeline handler. status may be nil when
// the server runs without a scheduler.
func NewPipelineHandler(status PipelineStatus) *PipelineHandler {
	return &PipelineHandler{status: status}
}

type pipelineResponse struct {
	RunID        string `json:"run_id"`
	State        string `json:"state"`
	Iterations   int    `json:"iterations"`
	Processed    int    `json:"processed"`
	Faces        int    `json:"faces"`
	Recognized   int    `json:"recognized"`
	Unknown      int    `json:"unknown"`
	Inserted     int    `json:"inserted"`
	Duplicates   int    `json:"duplicates"`
	Unenrolled   int    `json:"unenrolled"`
	DetectErrors int    `json:"detect_errors"`
	LedgerErrors int    `json:"ledger_errors"`
	RenderErrors int    `json:"render_errors"`
}

// Status returns the scheduler state and counters.
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusNotFound, "pipeline not running in this process")
		return
	}
	st := h.status.Stats()
	respondJSON(w, http.StatusOK, pipelineResponse{
		RunID:        h.status.RunID(),
		State:        h.status.State().String(),
		Iterations:   st.Iterations,
		Processed:    st.Processed,
		Faces:        st.Faces,
		Recognized:   st.Recognized,
		Unknown:      st.Unknown,
		Inserted:     st.Inserted,
		Duplicates:   st.Duplicates,
		Unenrolled:   st.Unenrolled,
		DetectErrors: st.DetectErrors,
		LedgerErrors: st.LedgerErrors,
		RenderErrors: st.RenderErrors,
	})
}
