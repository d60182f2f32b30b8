// Package urlguard rejects attacker-supplied URLs that point at internal
// infrastructure before anything is fetched.
package urlguard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"PosterIntake/internal/domain"
)

var blockedPrefixes []netip.Prefix

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10", // CGNAT
		"127.0.0.0/8",
		"169.254.0.0/16", // link-local, cloud metadata
		"172.16.0.0/12",
		"192.168.0.0/16",
		"::1/128",
		"::/128",
		"fc00::/7",  // ULA
		"fe80::/10", // link-local
	} {
		blockedPrefixes = append(blockedPrefixes, netip.MustParsePrefix(cidr))
	}
}

var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"metadata":                 {},
	"metadata.google.internal": {},
	"instance-data":            {},
}

var blockedSuffixes = []string{
	".localhost",
	".local",
	".internal",
	".intranet",
	".lan",
	".corp",
	".home.arpa",
}

// Validate parses raw and returns it when it is an http(s) URL whose host is not
// internal. It never touches the network.
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", domain.ErrInvalidURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing hostname", domain.ErrInvalidURL)
	}
	if IsForbiddenHost(host) {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbiddenHost, host)
	}
	return parsed, nil
}

// IsForbiddenHost reports whether host names loopback, private, link-local or
// metadata infrastructure.
func IsForbiddenHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if _, ok := blockedHostnames[host]; ok {
		return true
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return IsForbiddenAddr(addr)
	}
	return false
}

// IsForbiddenAddr reports whether addr falls into any blocked range.
func IsForbiddenAddr(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// NewSafeTransport returns a transport whose dialer re-checks resolved addresses,
// closing the DNS-rebinding gap that a hostname check alone leaves open.
func NewSafeTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("safe dialer: invalid address %q: %w", addr, err)
			}
			ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
			if err != nil {
				return nil, fmt.Errorf("safe dialer: lookup %s: %w", host, err)
			}
			if len(ips) == 0 {
				return nil, fmt.Errorf("safe dialer: no addresses for %s", host)
			}
			for _, ip := range ips {
				if IsForbiddenAddr(ip) {
					return nil, fmt.Errorf("safe dialer: %s resolves to %s: %w", host, ip, domain.ErrForbiddenHost)
				}
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].Unmap().String(), port))
		},
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
