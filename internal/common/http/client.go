// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"
)

// Client is the outbound HTTP client used for lead delivery. Webhook calls
// are one-shot POSTs to a single automation endpoint, so the pool is kept
// small.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext binds the request to ctx so an abandoned capture session
// cancels its in-flight delivery.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}
