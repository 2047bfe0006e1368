package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"equity-lens/api/internal/analysis"
	"equity-lens/api/internal/analyzer"
	"equity-lens/api/internal/llm"
)

// maxTimeout caps client-requested deadlines.
const maxTimeout = 10 * time.Minute

// maxBodyBytes bounds a JSON request body.
const maxBodyBytes = 1 << 20

type Handle struct {
	svc            *analyzer.Service
	norm           *analysis.Normalizer
	defaultTimeout time.Duration
	log            *zap.Logger
}

func New(svc *analyzer.Service, norm *analysis.Normalizer, defaultTimeout time.Duration, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	if norm == nil {
		norm = analysis.NewNormalizer()
	}
	return &Handle{
		svc:            svc,
		norm:           norm,
		defaultTimeout: defaultTimeout,
		log:            log,
	}
}

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads at most maxBodyBytes from the body into v and writes the
// error response itself. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.FormatInt(tooBig.Limit, 10)+" bytes")
		return false
	}
	writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
	return false
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResp{Error: msg})
}

// statusClientClosed is nginx's "client closed request".
const statusClientClosed = 499

// statusFor maps service errors onto HTTP codes. Provider failures are 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrInvalidRequest), errors.Is(err, llm.ErrUnknownEngine):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	default:
		return http.StatusBadGateway
	}
}

// requestTimeout reads X-Request-Timeout or ?timeoutSec= (seconds).
func (h *Handle) requestTimeout(r *http.Request) time.Duration {
	raw := strings.TrimSpace(r.Header.Get("X-Request-Timeout"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("timeoutSec"))
	}
	if raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil && sec > 0 {
			d := time.Duration(sec) * time.Second
			if d > maxTimeout {
				d = maxTimeout
			}
			return d
		}
	}
	if h.defaultTimeout > 0 {
		return h.defaultTimeout
	}
	return 180 * time.Second
}
