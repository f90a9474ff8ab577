// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the chain, before rate limiting and request
context assembly.  For every request it captures a *RequestInfo, echoes
the request id on the response, and stores the value in request.Context
under an unexported key, so later middleware and handlers can read it
without reparsing.

Instrumentation
---------------
At DEBUG each invocation logs the client IP, country, browser, device,
bot flag, request id, and path.

Notes
-----
  • All look-ups are read-only, so the middleware is safe under heavy
    concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/logger"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *RequestInfo and forwards.
func Enrich(opts Options, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.Or(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := Capture(r, opts)
			w.Header().Set(HeaderRequestID, info.RequestID)

			if ce := log.Check(zap.DebugLevel, "request info"); ce != nil {
				ce.Write(
					zap.Stringer("ip", info.IP),
					zap.String("country", info.Geo.CountryISO),
					zap.String("browser", info.UA.Browser),
					zap.String("device", info.UA.Device),
					zap.Bool("bot", info.UA.IsBot),
					zap.String("request_id", info.RequestID),
					zap.String("path", info.Path),
				)
			}

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}
