package handle

import (
	"net/http"

	"equity-lens/api/internal/analysis"
)

type normalizeReq struct {
	RawText        string `json:"rawText"`
	AssignmentText string `json:"assignmentText"`
}

type normalizeResp struct {
	Analysis       analysis.Record   `json:"analysis"`
	Strategy       analysis.Strategy `json:"strategy"`
	Failure        analysis.Failure  `json:"failure,omitempty"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
}

// Normalize runs a stored completion through the normalizer without calling a model.
func (h *Handle) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeReq
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, out := h.norm.Inspect(req.RawText, req.AssignmentText)
	writeJSON(w, http.StatusOK, normalizeResp{
		Analysis:       rec,
		Strategy:       out.Strategy,
		Failure:        out.Failure,
		FallbackReason: out.FallbackReason,
	})
}
