package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default client configuration constants.
const (
	transactionsPath = "/iclock/api/transactions/"
	tokenPath        = "/api-token-auth/"
	timeLayout       = "2006-01-02 15:04:05"
	defaultPageLimit = 100 // pagination safety cap
	defaultTimeout   = 30 * time.Second
	probeTimeout     = 5 * time.Second
)

// Client is the HTTP API-mode transport for ZKTeco attendance servers.
// It authenticates with a bearer token and follows cursor pagination.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageLimit  int
}

// New creates an API client for the given base URL, e.g. "http://10.0.0.5:8081".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		pageLimit:  defaultPageLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// page mirrors the response envelopes seen across firmware versions:
// {"data": [...]}, {"results": [...]}, {"transactions": [...]} or a bare
// list. Next carries the cursor URL when the server paginates.
type page struct {
	punches []RawPunch
	next    string
}

// Fetch retrieves every transaction in the window, following pagination up
// to the configured page cap.
func (c *Client) Fetch(ctx context.Context, w Window) ([]RawPunch, error) {
	first, err := url.Parse(c.baseURL + transactionsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	q := first.Query()
	q.Set("start_time", w.Start.Format(timeLayout))
	q.Set("end_time", w.End.Format(timeLayout))
	first.RawQuery = q.Encode()

	var all []RawPunch
	current := first.String()
	for i := 0; i < c.pageLimit && current != ""; i++ {
		p, err := c.getPage(ctx, current)
		if err != nil {
			return nil, err
		}
		all = append(all, p.punches...)
		current = p.next
	}
	return all, nil
}

func (c *Client) getPage(ctx context.Context, rawURL string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page{}, fmt.Errorf("%w: unexpected status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return parsePage(body)
}

// parsePage accepts the known envelope shapes and a bare transaction list.
func parsePage(body []byte) (page, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return page{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch v := decoded.(type) {
	case []any:
		punches, err := toPunches(v)
		if err != nil {
			return page{}, err
		}
		return page{punches: punches}, nil
	case map[string]any:
		var items []any
		for _, key := range []string{"data", "results", "transactions"} {
			if raw, ok := v[key].([]any); ok {
				items = raw
				break
			}
		}
		punches, err := toPunches(items)
		if err != nil {
			return page{}, err
		}
		next, _ := v["next"].(string)
		return page{punches: punches, next: next}, nil
	default:
		return page{}, fmt.Errorf("%w: unexpected payload shape %T", ErrMalformedPayload, decoded)
	}
}

func toPunches(items []any) ([]RawPunch, error) {
	punches := make([]RawPunch, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: transaction entry is %T, want object", ErrMalformedPayload, item)
		}
		punches = append(punches, RawPunch(m))
	}
	return punches, nil
}

// RegisterToken obtains a bearer token from the server and stores it on the
// client for subsequent fetches.
func (c *Client) RegisterToken(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %d", ErrUnreachable, resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: token missing from response", ErrMalformedPayload)
	}
	c.token = out.Token
	return out.Token, nil
}

// Probe checks TCP reachability of a device address ("host:port") and
// returns the connect latency. It needs no token and works for device-mode
// ports too.
func Probe(ctx context.Context, addr string) (time.Duration, error) {
	d := net.Dialer{Timeout: probeTimeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	latency := time.Since(start)
	_ = conn.Close()
	return latency, nil
}
