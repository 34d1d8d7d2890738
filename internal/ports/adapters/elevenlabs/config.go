package elevenlabs

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// DefaultAllowedHosts are the ElevenLabs API hosts accepted when
// ELEVENLABS_ALLOWED_HOSTS is unset.
var DefaultAllowedHosts = []string{
	"api.elevenlabs.io",
	"api.us.elevenlabs.io",
	"api.eu.residency.elevenlabs.io",
}

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "scribe_v1"
)

// Config is filled from the ELEVENLABS_* environment.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// AllowedHosts replaces DefaultAllowedHosts when non-empty. Entries may
	// carry a scheme, port or trailing slash.
	AllowedHosts []string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = defaultModel
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	var hosts []string
	for _, h := range c.AllowedHosts {
		if h = hostOnly(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	c.AllowedHosts = hosts
	return c
}

// Validate requires an API key and an absolute https base URL without
// userinfo, query or fragment on an allowed host.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("ELEVENLABS_API_KEY is required for the elevenlabs provider (set it in .env)")
	}
	_, err := c.withDefaults().endpoint()
	return err
}

// endpoint returns the speech-to-text URL under BaseURL. c must have its
// defaults applied.
func (c Config) endpoint() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ELEVENLABS_BASE_URL: %w", err)
	}
	bad := func(reason string) error {
		return fmt.Errorf("invalid ELEVENLABS_BASE_URL %q: %s", c.BaseURL, reason)
	}
	switch {
	case !u.IsAbs() || u.Host == "":
		return nil, bad("absolute URL with host is required")
	case u.User != nil:
		return nil, bad("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return nil, bad("query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return nil, bad("https is required")
	}
	if host := strings.ToLower(u.Hostname()); !slices.Contains(c.AllowedHosts, host) {
		return nil, bad(fmt.Sprintf("host %q is not in ELEVENLABS_ALLOWED_HOSTS", host))
	}
	return u.JoinPath("v1", "speech-to-text"), nil
}

// ParseAllowedHosts splits a comma separated ELEVENLABS_ALLOWED_HOSTS value.
func ParseAllowedHosts(v string) []string {
	var out []string
	for _, h := range strings.Split(v, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func hostOnly(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "https://")
	h = strings.Trim(h, "/")
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	return h
}
