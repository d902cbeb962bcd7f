package hearth

import (
	"net/http"
	"time"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// WithBaseURL sets the hearthd address. Defaults to the local listener.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTimeout bounds each request. Ignored when a custom HTTP client is
// supplied.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}
