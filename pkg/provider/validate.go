package provider

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks a provider configuration before a factory consumes it.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("provider %q: type is required", c.Name)
	}
	if c.BaseURL != "" {
		if err := checkBaseURL(c.BaseURL, c.AllowPrivateBaseURL); err != nil {
			return fmt.Errorf("provider %q: %w", c.Name, err)
		}
	}
	return nil
}

// checkBaseURL is intentionally conservative: it rejects userinfo, query,
// and fragment components and, unless explicitly allowed, hosts in
// loopback/private/link-local ranges (common SSRF targets).
func checkBaseURL(raw string, allowPrivate bool) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("invalid base_url scheme %q (must be http or https)", u.Scheme)
	case u.Hostname() == "":
		return fmt.Errorf("invalid base_url host %q", u.Host)
	case u.User != nil:
		return fmt.Errorf("base_url must not contain userinfo")
	case u.RawQuery != "":
		return fmt.Errorf("base_url must not contain query")
	case u.Fragment != "":
		return fmt.Errorf("base_url must not contain fragment")
	}

	if !allowPrivate && privateHost(u.Hostname()) {
		return fmt.Errorf("base_url host %q is private/loopback (set allow_private_base_url to override)", u.Hostname())
	}
	return nil
}

func privateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}

	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return !ip.IsGlobalUnicast()
}
