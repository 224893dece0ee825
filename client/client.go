// Package client talks to the API of a remote server: REST fetch functions and websocket change notifications
// that plug into realtime bindings.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
)

const apiPrefix = "/v1"

// APIError is a non-2xx response of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	api     func(ctx context.Context, req rest.Request) (*rest.Response, error) // mockable
}

// New returns a Client of the API served at baseURL (eg. "https://chantiers.example.com"), authenticated by a JWT.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		api:     rest.SendWithContext,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Get decodes the JSON response of GET `path` (relative to /v1) into dest.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, dest interface{}) error {
	req := rest.Request{
		Method:      rest.Get,
		BaseURL:     c.baseURL + apiPrefix + "/" + strings.TrimPrefix(path, "/"),
		Headers:     c.headers(),
		QueryParams: query,
	}
	resp, err := c.api(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if err = json.Unmarshal([]byte(resp.Body), dest); err != nil {
		return errors.Wrapf(err, "decoding GET %s", path)
	}
	return nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

func responseError(resp *rest.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

// Fetch returns a FetchFunc listing `collection`, optionally filtered by `query` (eg. {"status": "actif"}).
func Fetch[T any](c *Client, collection string, query map[string]string) realtime.FetchFunc[T] {
	return func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := c.Get(ctx, collection, query, &rows); err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []T{}
		}
		return rows, nil
	}
}
