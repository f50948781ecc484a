package realtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a socket
type OriginPolicy struct {
	allowed  map[string]struct{}
	allowAll bool
	logger   *slog.Logger
}

// NewOriginPolicy normalizes the configured origins. "*" allows every origin.
func NewOriginPolicy(origins []string, logger *slog.Logger) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}), logger: logger}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("Ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}

	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// Check is used as the websocket upgrader CheckOrigin. Requests without an
// Origin header are same-origin by definition and pass.
func (p *OriginPolicy) Check(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		p.logger.Warn("Blocked websocket connection with malformed origin", "origin", originHeader)
		return false
	}

	if p.allowAll {
		return true
	}
	if _, exists := p.allowed[normalized]; exists {
		return true
	}

	// same host as the request itself
	if strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(normalized, "https://"), "http://"), r.Host) {
		return true
	}

	p.logger.Warn("Blocked websocket connection from disallowed origin", "origin", originHeader)
	return false
}
