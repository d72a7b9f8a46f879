package gateway

import (
	"context"
	"net/http"
	"net/url"
)

var forwardedHeaders = []string{"Content-Type", "Accept", "X-Request-Id"}

// ServiceProxy forwards requests to one backend service.
type ServiceProxy struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewServiceProxy(name, baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		name:    name,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *ServiceProxy) Name() string {
	return p.name
}

// ForwardRequest sends r to path on the backend, keeping the query string.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target, err := url.Parse(p.baseURL + path)
	if err != nil {
		return nil, err
	}
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}

	for _, h := range forwardedHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	return p.client.Do(req)
}
