//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (client IP, headers, client id, request id, trace handle, user-agent
//  fingerprint, geolocation, and timestamp).  These structs are inert.
//  They contain no pointers to database handles or large buffers, so they
//  are safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//  • go.opentelemetry.io/otel          (W3C trace context)
//

package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Header names read by Capture.
const (
	HeaderRequestID  = "X-Request-Id"
	HeaderClientID   = "X-Client-Id"
	HeaderApolloName = "Apollographql-Client-Name"
)

// TraceHandle identifies the caller's distributed trace, when one was
// propagated.  Zero value means "no trace".
type TraceHandle struct {
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
	Sampled bool   `json:"sampled,omitempty"`
}

// Valid reports whether a trace id was propagated.
func (t TraceHandle) Valid() bool { return t.TraceID != "" }

// RequestInfo is captured once per request and never modified.
type RequestInfo struct {
	IP        net.IP      `json:"ip"`
	Headers   http.Header `json:"-"` // deep copy; see RedactedHeaders
	ClientID  string      `json:"client_id,omitempty"`
	RequestID string      `json:"request_id"`
	Trace     TraceHandle `json:"trace"`
	UA        UA          `json:"ua"`
	Geo       Geo         `json:"geo"`
	Host      string      `json:"host"`
	Path      string      `json:"path"`
	Timestamp time.Time   `json:"timestamp"`
}

// Options tune Capture.
type Options struct {
	// TrustProxy enables X-Forwarded-For and X-Real-Ip for requests whose
	// peer is an internal address.  Leave it off when the server is
	// reachable without a proxy in front.
	TrustProxy bool
}

// Capture reads r.  It performs no I/O apart from the in-memory GeoIP
// lookup.
func Capture(r *http.Request, opts Options) *RequestInfo {
	ip := clientIP(r, opts.TrustProxy)

	reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
	if reqID == "" {
		reqID = uuid.NewString()
	}

	return &RequestInfo{
		IP:        ip,
		Headers:   r.Header.Clone(),
		ClientID:  clientID(r.Header),
		RequestID: reqID,
		Trace:     traceHandle(r),
		UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
		Geo:       lookupGeo(ip),
		Host:      r.Host,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	}
}

var sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

// RedactedHeaders returns a copy of Headers with credentials masked.
func (ri *RequestInfo) RedactedHeaders() http.Header {
	h := ri.Headers.Clone()
	for _, k := range sensitiveHeaders {
		if _, ok := h[k]; ok {
			h[k] = []string{"[redacted]"}
		}
	}
	return h
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// WithInfo stores ri in ctx.
func WithInfo(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// clientIP returns r.RemoteAddr unless proxies are trusted and the peer
// itself is an internal hop.  X-Forwarded-For is then walked right to
// left, skipping internal hops; the first public address is the client.
// Entries left of it were written by the client and are ignored.
func clientIP(r *http.Request, trustProxy bool) net.IP {
	peer := remoteIP(r.RemoteAddr)
	if !trustProxy || !internalHop(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		var nearest net.IP
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !internalHop(ip) {
				return ip
			}
			nearest = ip
		}
		if nearest != nil {
			return nearest
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}

func remoteIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

// internalHop reports whether ip is a loopback, private, or link-local
// address, i.e. one of our own proxies.
func internalHop(ip net.IP) bool {
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast())
}

// clientID prefers our own header, then the name Apollo clients send.
func clientID(h http.Header) string {
	if v := strings.TrimSpace(h.Get(HeaderClientID)); v != "" {
		return v
	}
	return strings.TrimSpace(h.Get(HeaderApolloName))
}

// traceHandle extracts a W3C traceparent without starting a span.
func traceHandle(r *http.Request) TraceHandle {
	ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return TraceHandle{}
	}
	return TraceHandle{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
		Sampled: sc.IsSampled(),
	}
}
