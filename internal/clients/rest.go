package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/middleware"
)

// restClient is the JSON-over-HTTP plumbing shared by the storefront and admin clients.
type restClient struct {
	service    string
	baseURL    string
	httpClient *http.Client
	creds      CredentialProvider
}

// newRESTClient falls back to the configured service token when creds is nil.
func newRESTClient(service string, cfg config.ServiceConfig, creds CredentialProvider) *restClient {
	if creds == nil {
		creds = StaticCredentials(cfg.APIKey)
	}
	return &restClient{
		service: service,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		creds: creds,
	}
}

func (c *restClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstream(c.service, op, start, resp, err)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.UpstreamError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// setHeaders propagates the request id and caller credentials to upstream services.
func (c *restClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if token := c.creds.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}

// readDetail extracts a human readable message from an error body. The backend
// answers {"detail": "..."}; anything else is returned trimmed.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return string(bytes.TrimSpace(raw))
	}

	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Detail) > 0 {
		// Request validation errors carry a list here.
		return string(body.Detail)
	}
	return ""
}
