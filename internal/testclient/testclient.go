// Package testclient is a small RESTCONF HTTP client for exercising a
// Gateway end to end from tests: build a request, set the negotiated
// headers, issue it, and hand back the status and body (Get alone reports
// a non-200 status as an error). It mirrors
// the request-building shape of a hand-rolled RESTCONF client, scaled
// down to what the test suite needs.
package testclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/freeconf/restconf"
)

// Client issues RESTCONF requests against one base URL (typically an
// httptest.Server wrapping a Gateway).
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client using http.DefaultClient.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// Do issues method against path (already including the /restconf/data or
// /api mount point) with body as the JSON payload (nil for none), and
// returns the status code, the raw response body, and any transport
// error. A non-2xx status is not itself an error — callers that care
// about RESTCONF error documents inspect the status and body directly.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (status int, respBody []byte, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", string(restconf.YangDataJsonMimeType1))
	if body != nil {
		req.Header.Set("Content-Type", string(restconf.YangDataJsonMimeType1))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// Get is shorthand for Do(ctx, http.MethodGet, path, nil), returning an
// error when the response status isn't 200.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	status, body, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, status, body)
	}
	return body, nil
}
