// Package remote is the HTTP client for the backend collections API. Every
// endpoint answers with the whole collection as {"items": [...]}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 5 * time.Second

// Authenticator supplies the bearer credential for a tenant.
type Authenticator interface {
	Token(ctx context.Context, tenant string) (string, error)
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// ErrMalformedPayload marks a 2xx response whose body is not a valid collection.
var ErrMalformedPayload = errors.New("malformed collection payload")

type HTTPClient struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	timeout    time.Duration
	validator  *payloadValidator
}

func NewHTTPClient(baseURL string, auth Authenticator, timeout time.Duration, httpClient *http.Client) (*HTTPClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	v, err := newPayloadValidator()
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		auth:       auth,
		httpClient: httpClient,
		timeout:    timeout,
		validator:  v,
	}, nil
}

func (c *HTTPClient) List(ctx context.Context, tenant, resource string) ([]json.RawMessage, error) {
	return c.do(ctx, tenant, http.MethodGet, "/"+resource, nil)
}

func (c *HTTPClient) Put(ctx context.Context, tenant, resource, id string, record any) ([]json.RawMessage, error) {
	return c.do(ctx, tenant, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), record)
}

func (c *HTTPClient) Delete(ctx context.Context, tenant, resource, id string) ([]json.RawMessage, error) {
	return c.do(ctx, tenant, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) do(ctx context.Context, tenant, method, path string, body any) ([]json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, errors.New("remote base url not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(ctx, req, tenant); err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		msg := errPayload.Message
		if msg == "" {
			msg = errPayload.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}

	return c.decodeItems(payload)
}

func (c *HTTPClient) setHeaders(ctx context.Context, req *http.Request, tenant string) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", tenant)
	if c.auth == nil {
		return nil
	}
	token, err := c.auth.Token(ctx, tenant)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *HTTPClient) decodeItems(payload []byte) ([]json.RawMessage, error) {
	if err := c.validator.validate(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if envelope.Items == nil {
		envelope.Items = []json.RawMessage{}
	}
	return envelope.Items, nil
}
