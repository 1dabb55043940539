package remotefetcher

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// FetcherOption is a function that configures a fetcher.
type FetcherOption func(*FetcherConfig)

// FetcherConfig holds the configuration for a fetcher.
type FetcherConfig struct {
	HTTPClient *http.Client
	UserAgent  string
}

// WithHTTPClient sets the HTTP client for the fetcher.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(cfg *FetcherConfig) {
		cfg.HTTPClient = client
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) FetcherOption {
	return func(cfg *FetcherConfig) {
		cfg.UserAgent = strings.TrimSpace(userAgent)
	}
}

// NewHTTPClient returns a client whose dialer gives up after connectionTimeout
// and which waits at most socketTimeout for response headers.
// Zero values leave the respective limit unset.
func NewHTTPClient(connectionTimeout, socketTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectionTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = socketTimeout

	return &http.Client{Transport: transport}
}
