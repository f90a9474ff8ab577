// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// HostChecker reports whether host belongs to a storefront we serve.
type HostChecker func(host string) bool

// ForceHTTPS returns middleware that issues a 308 Permanent Redirect to
// the HTTPS version of the URL when the request is plain HTTP, the host is
// not "localhost", and known confirms the host is a storefront.  Requests
// a TLS-terminating proxy already marked with X-Forwarded-Proto: https
// pass through.
func ForceHTTPS(known HostChecker) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := stripPort(r.Host)
			if r.TLS != nil || host == "localhost" ||
				strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				h.ServeHTTP(w, r)
				return
			}

			// Only redirect if the host is a storefront.
			if known != nil && known(host) {
				target := "https://" + r.Host + r.URL.RequestURI()
				http.Redirect(w, r, target, http.StatusPermanentRedirect)
				return
			}

			// Unknown host → keep normal flow (likely 404 later).
			h.ServeHTTP(w, r)
		})
	}
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}
