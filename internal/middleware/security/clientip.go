package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver trusts X-Forwarded-For and X-Real-IP only when the
// direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// DefaultTrustedProxies are loopback and the private ranges.
var DefaultTrustedProxies = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

func NewClientIPResolver(cidrs ...string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %s: %w", c, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil || !c.isTrusted(ip) {
		return direct
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

func (c *ClientIPResolver) isTrusted(ip net.IP) bool {
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
