// Package simulator drives the dashboard the way the spreadsheet automation
// does: it reads the current apartments and pushes signed status changes to
// the webhook.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/realty-dashboard/internal/domain"
	"github.com/tbourn/realty-dashboard/internal/webhooksig"
)

// Update is the webhook payload. Status carries the ingress literal.
type Update struct {
	ApartmentID string   `json:"apartment_id" yaml:"id"`
	Agency      string   `json:"agency"       yaml:"agency"`
	Area        *float64 `json:"area"         yaml:"area"`
	Price       *float64 `json:"price"        yaml:"price"`
	Status      string   `json:"status"       yaml:"status"`
}

// UpdateFrom builds an Update for a with the given status.
func UpdateFrom(a domain.Apartment, st domain.Status) Update {
	return Update{
		ApartmentID: a.ID,
		Agency:      a.Agency,
		Area:        a.Area,
		Price:       a.Price,
		Status:      st.Literal(),
	}
}

// StatusError is returned when the server answered with a non-2xx status.
// Such responses are never retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Client talks to a running dashboard backend.
type Client struct {
	// BaseURL is the API root, e.g. "http://localhost:5000/api".
	BaseURL string
	Secret  []byte
	HTTP    *http.Client

	// Retries is the number of extra attempts after a connection failure.
	Retries int
	Backoff time.Duration

	// Now stamps outgoing webhooks; nil means time.Now.
	Now func() time.Time
}

// NewClient returns a client with a 10s request timeout and two retries.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  []byte(secret),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Retries: 2,
		Backoff: 500 * time.Millisecond,
	}
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// List fetches the current snapshot.
func (c *Client) List(ctx context.Context) ([]domain.Apartment, error) {
	resp, err := c.do(ctx, http.MethodGet, "/apartments", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []domain.Apartment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode apartments: %w", err)
	}
	return out, nil
}

// Push signs u and posts it to the webhook.
func (c *Client) Push(ctx context.Context, u Update) error {
	body, err := json.Marshal(u)
	if err != nil {
		return err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	resp, err := c.do(ctx, http.MethodPost, "/update-sheet", body, func(h http.Header) {
		// Re-stamped per attempt so a retry after backoff stays fresh.
		ts := webhooksig.Timestamp(now())
		h.Set("Content-Type", "application/json")
		h.Set(webhooksig.HeaderTimestamp, ts)
		h.Set(webhooksig.HeaderSignature, webhooksig.Sign(c.Secret, ts, body))
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// do sends one request, retrying only when no response was received. A
// non-2xx response is returned as *StatusError with the body drained.
func (c *Client) do(ctx context.Context, method, path string, body []byte, header func(http.Header)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Backoff):
			}
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
		if err != nil {
			return nil, err
		}
		if header != nil {
			header(req.Header)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%s %s: %w", method, path, lastErr)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
