package tenant

import (
	"net"
	"strings"
)

// stripPort removes :port from a Host header when present.  IPv6 literals
// keep their brackets stripped as well.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return strings.Trim(h, "[]")
}

// subdomainLabel returns "acme" for "acme.shop.test" when base is
// "shop.test".  Only a single label is accepted; "a.b.shop.test" and the
// bare base domain return "".
func subdomainLabel(host, base string) string {
	if base == "" {
		return ""
	}
	host = strings.ToLower(stripPort(host))
	suffix := "." + strings.ToLower(strings.Trim(base, "."))
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	label := strings.TrimSuffix(host, suffix)
	if label == "" || strings.Contains(label, ".") {
		return ""
	}
	return label
}
