package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver derives the client address of a request. X-Forwarded-For and
// X-Real-IP are honoured only when the socket peer is a trusted proxy.
// A nil resolver trusts nobody.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses proxies given as CIDR blocks or bare addresses.
func NewIPResolver(proxies []string) (*IPResolver, error) {
	res := &IPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid proxy address %q", p)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			p = fmt.Sprintf("%s/%d", ip, bits)
		}
		_, block, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy range %q: %w", p, err)
		}
		res.trusted = append(res.trusted, block)
	}
	return res, nil
}

// ClientIP returns the address rate limiting and login throttling key on.
// Behind trusted proxies it is the right-most X-Forwarded-For entry that is
// not itself a trusted proxy.
func (res *IPResolver) ClientIP(r *http.Request) string {
	peer := ClientIP(r)
	if res == nil || !res.isTrusted(peer) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !res.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (res *IPResolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, block := range res.trusted {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the host of the socket peer.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
