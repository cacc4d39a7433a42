// Package probe determines the host's public IPv4 address via external
// lookup services.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// response bodies are one short line; anything bigger is not an IP.
const maxBodySize = 256

// HTTPProber asks plain-text IP echo services, primary first, one fallback.
type HTTPProber struct {
	endpoints []string
	client    *http.Client
}

// NewHTTPProber creates a prober over the given primary and fallback
// endpoints. timeout bounds each attempt individually.
func NewHTTPProber(primary, fallback string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		endpoints: []string{primary, fallback},
		client:    &http.Client{Timeout: timeout},
	}
}

// PublicIP returns the first well-formed IPv4 address any endpoint reports.
// The error carries the last failure when every endpoint was exhausted.
func (p *HTTPProber) PublicIP(ctx context.Context) (string, error) {
	var lastErr error
	for _, endpoint := range p.endpoints {
		ip, err := p.fetch(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		return ip, nil
	}
	return "", fmt.Errorf("all IP lookup services failed: %w", lastErr)
}

func (p *HTTPProber) fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup %s: HTTP %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("lookup %s: read body: %w", endpoint, err)
	}

	raw := strings.TrimSpace(string(body))
	ip := net.ParseIP(raw)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("lookup %s: malformed response %q", endpoint, raw)
	}
	return ip.String(), nil
}
