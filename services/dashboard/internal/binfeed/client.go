package binfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/httputil"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// ErrUnexpectedStatus is returned for any non-2xx reply.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client fetches bin snapshots from the backend. It performs exactly one
// request per call: no retries, no deduplication.
type Client struct {
	http    httputil.HTTPClient
	url     string
	variant models.Variant
}

// NewClient builds a feed client for the given endpoint URL and wire variant.
func NewClient(httpClient httputil.HTTPClient, url string, variant models.Variant) (*Client, error) {
	if _, ok := decoders[variant]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{http: httpClient, url: url, variant: variant}, nil
}

// URL returns the endpoint the client polls.
func (c *Client) URL() string {
	return c.url
}

// FetchSnapshot retrieves and decodes the current fleet state.
func (c *Client) FetchSnapshot(ctx context.Context) (models.BinSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return models.BinSnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.BinSnapshot{}, fmt.Errorf("request bins: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.BinSnapshot{}, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.BinSnapshot{}, fmt.Errorf("read bins body: %w", err)
	}

	return Decode(c.variant, body)
}
