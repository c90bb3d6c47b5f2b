package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust decides whether forwarding headers on a request can be believed.
type ProxyTrust struct {
	nets []*net.IPNet
}

// NewProxyTrust parses trusted proxy CIDRs. Bare IPs are accepted as
// single-host networks; invalid entries are logged and skipped.
func NewProxyTrust(cidrs []string) *ProxyTrust {
	pt := &ProxyTrust{}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			pt.nets = append(pt.nets, network)
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil {
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			pt.nets = append(pt.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		slog.Warn("realip: invalid trusted proxy CIDR, skipping", "cidr", cidr, "error", err)
	}
	return pt
}

// Trusted reports whether addr (ip or host:port) is a trusted proxy.
func (pt *ProxyTrust) Trusted(addr string) bool {
	ip := extractIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range pt.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address for r. Forwarding headers are only
// honored when the connection comes from a trusted proxy: X-Real-IP first,
// then the first entry of X-Forwarded-For. Invalid header values are ignored.
func (pt *ProxyTrust) ClientIP(r *http.Request) string {
	if !pt.Trusted(r.RemoteAddr) {
		return r.RemoteAddr
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		if ip := net.ParseIP(strings.TrimSpace(rip)); ip != nil {
			return ip.String()
		}
	} else if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		candidate, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
			return ip.String()
		}
	}
	return r.RemoteAddr
}

// TrustedRealIP rewrites RemoteAddr with ClientIP so rate limiting and run
// logging see the real client. Untrusted clients cannot spoof it with headers.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	pt := NewProxyTrust(trustedCIDRs)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.RemoteAddr = pt.ClientIP(r)
			next.ServeHTTP(w, r)
		})
	}
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
