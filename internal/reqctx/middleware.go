package reqctx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/tenant"
)

// StatusFor maps an assembly error onto an HTTP status.
func StatusFor(err error) int {
	var re *tenant.ResolutionError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, identity.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.As(err, &re):
		return re.Status()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every assembly failure.
type errorBody struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Middleware assembles the RequestContext for route and stores it on the
// request.  Failures are answered directly and the next handler never
// runs.
func Middleware(asm *Assembler, route Route, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.Or(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc, err := asm.Assemble(r.Context(), r, route)
			if err != nil {
				writeError(w, r, err, log)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), rc)))
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, log *zap.Logger) {
	status := StatusFor(err)
	body := errorBody{Error: http.StatusText(status)}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		body.RequestID = info.RequestID
	}

	var re *tenant.ResolutionError
	switch {
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	case errors.As(err, &re):
		body.Reason = string(re.Reason)
	case status == http.StatusServiceUnavailable:
		log.Info("request cancelled during context assembly",
			zap.String("path", r.URL.Path),
			zap.String("request_id", body.RequestID),
			zap.Error(err))
	default:
		log.Error("context assembly failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", body.RequestID),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
