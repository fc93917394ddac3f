package transport

import "net/http"

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithToken sets the bearer token used for API-mode requests.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller owns
// timeout configuration when using this.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPageLimit caps how many pagination cursors Fetch will follow.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}
