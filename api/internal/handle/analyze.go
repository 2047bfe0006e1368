package handle

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"equity-lens/api/internal/analysis"
	"equity-lens/api/internal/analyzer"
)

type analyzeReq struct {
	AssignmentText string `json:"assignmentText"`
	LLMName        string `json:"llm_name"`
	GradeLevel     string `json:"gradeLevel"`
	Subject        string `json:"subject"`
	StudentContext string `json:"studentContext"`
	IncludeRewrite bool   `json:"includeRewrite"`
}

type analyzeResp struct {
	Analysis analysis.Record `json:"analysis"`
	Engine   string          `json:"engine"`
	Model    string          `json:"model"`
	Cached   bool            `json:"cached"`
}

func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout(r))
	defer cancel()

	res, err := h.svc.Analyze(ctx, analyzer.Request{
		AssignmentText: req.AssignmentText,
		LLMName:        req.LLMName,
		GradeLevel:     req.GradeLevel,
		Subject:        req.Subject,
		StudentContext: req.StudentContext,
		IncludeRewrite: req.IncludeRewrite,
	})
	if err != nil {
		code := statusFor(err)
		h.log.Warn("analyze failed", zap.Int("status", code), zap.Error(err))
		writeError(w, code, "analyze error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analyzeResp{
		Analysis: res.Record,
		Engine:   res.Engine,
		Model:    res.Model,
		Cached:   res.Cached,
	})
}
