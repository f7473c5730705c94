package upstream

import (
	"net/http"
	"time"
)

// HeaderTransport sets fixed headers on every outgoing request.
type HeaderTransport struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewHTTPClient returns a client with the given timeout that identifies
// itself with userAgent.
func NewHTTPClient(userAgent string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &HeaderTransport{
			Transport: http.DefaultTransport,
			Headers:   map[string]string{"User-Agent": userAgent},
		},
	}
}
