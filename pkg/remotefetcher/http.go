package remotefetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// StatusError is returned for any response status other than 200 and 304.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status: %s", e.Status)
}

type HTTPFetcher struct {
	HTTPClient *http.Client
	config     FetcherConfig
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with the provided options.
func NewHTTPFetcher(options ...FetcherOption) *HTTPFetcher {
	cfg := &FetcherConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	// Initialize HTTP client if not provided
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &HTTPFetcher{HTTPClient: cfg.HTTPClient, config: *cfg}
}

// Fetch retrieves the configuration document from source
func (h *HTTPFetcher) Fetch(ctx context.Context, source string, validators *Validators) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, http.NoBody)
	if err != nil {
		return FetchResult{Outcome: Failed, Err: errors.Wrap(err, "building request")}
	}
	setConditionalHeaders(req, validators)
	if h.config.UserAgent != "" {
		req.Header.Set("User-Agent", h.config.UserAgent)
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return FetchResult{Outcome: Failed, Err: errors.Wrapf(err, "requesting %s", source)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{Outcome: Failed, Err: errors.Wrap(err, "reading response body")}
		}
		return FetchResult{
			Outcome:    Fresh,
			Body:       body,
			Validators: validatorsFromResponse(resp),
		}
	case http.StatusNotModified:
		return FetchResult{Outcome: NotModified}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return FetchResult{
			Outcome: Failed,
			Err:     &StatusError{StatusCode: resp.StatusCode, Status: resp.Status},
		}
	}
}

func setConditionalHeaders(req *http.Request, validators *Validators) {
	if validators == nil {
		return
	}
	if validators.ETag != "" {
		req.Header.Set("If-None-Match", validators.ETag)
	}
	if validators.LastModified != "" {
		req.Header.Set("If-Modified-Since", validators.LastModified)
	}
}

func validatorsFromResponse(resp *http.Response) *Validators {
	v := &Validators{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if v.IsZero() {
		return nil
	}
	return v
}
