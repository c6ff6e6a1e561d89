package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver determines the client address used for rate-limit keys
// and token IP binding. Forwarding headers are only honored when the
// immediate peer is a trusted proxy.
type ClientIPResolver struct {
	trustedNets []*net.IPNet
}

func NewClientIPResolver(trustedCIDRs []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}

	for _, raw := range trustedCIDRs {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if ip := net.ParseIP(value); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			resolver.trustedNets = append(resolver.trustedNets, &net.IPNet{
				IP:   ip,
				Mask: net.CIDRMask(bits, bits),
			})
			continue
		}

		_, network, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		resolver.trustedNets = append(resolver.trustedNets, network)
	}

	return resolver, nil
}

func (r *ClientIPResolver) Resolve(req *http.Request) string {
	peer := parseHostIP(req.RemoteAddr)
	if peer == nil {
		return "unknown"
	}

	if r.isTrusted(peer) {
		for _, part := range strings.Split(req.Header.Get("X-Forwarded-For"), ",") {
			if ip := parseHostIP(part); ip != nil {
				return ip.String()
			}
		}
		if ip := parseHostIP(req.Header.Get("X-Real-IP")); ip != nil {
			return ip.String()
		}
	}

	return peer.String()
}

func (r *ClientIPResolver) isTrusted(ip net.IP) bool {
	for _, network := range r.trustedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// parseHostIP accepts a bare IP or a host:port pair.
func parseHostIP(value string) net.IP {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if ip := net.ParseIP(value); ip != nil {
		return ip
	}

	host, _, err := net.SplitHostPort(value)
	if err != nil {
		return nil
	}
	return net.ParseIP(strings.Trim(host, "[]"))
}
