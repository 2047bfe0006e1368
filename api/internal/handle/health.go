package handle

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"equity-lens/api/internal/analysis"
)

type dimensionsResp struct {
	Dimensions []analysis.FallbackDimension `json:"dimensions"`
}

func (h *Handle) Dimensions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dimensionsResp{Dimensions: analysis.FallbackDimensions()})
}

type healthResp struct {
	Status  string   `json:"status"`
	Engines []string `json:"engines"`
	Cache   string   `json:"cache,omitempty"`
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResp{Status: "ok", Engines: h.svc.Engines().Available()}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ready(ctx); err != nil {
		h.log.Warn("cache ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Cache = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
