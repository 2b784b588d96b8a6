package util

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeVideoURL checks an out-of-band video location. Scheme-less input is taken as https;
// only http, https and file locations are accepted. Empty input stays empty.
func NormalizeVideoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme == "" && u.Host == "" {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("invalid video URL %q", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("invalid video URL %q: missing host", raw)
		}
	case "file":
		if u.Path == "" {
			return "", fmt.Errorf("invalid video URL %q: missing path", raw)
		}
	default:
		return "", fmt.Errorf("unsupported video URL %q: only http, https and file locations are supported", raw)
	}
	return u.String(), nil
}
