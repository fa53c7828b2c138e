package infrastructure

import (
	"fmt"
	"net/http"
	"time"

	"github.com/excreal/soaper-dl-v8/internal/domain"
)

// headerTransport injects the headers every site request needs. The
// resolver rejects requests without a browser user agent and a referer
// bound to the originating page, so this lives below everything else.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// retryTransport retries transport-level failures and 5xx responses with a
// fixed delay between attempts. Retry lives here, at the HTTP layer, so the
// orchestrator only ever sees exhausted results.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	delay    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt < t.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(t.delay):
			}
			// The previous attempt consumed the body; rewind it.
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}
		}

		resp, err = t.base.RoundTrip(req)
		if err != nil {
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			err = fmt.Errorf("server returned %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, err
}

// NewSiteClient builds the HTTP client shared by the locator, resolver,
// fetcher and scraper: browser headers, bounded retry, request timeout.
func NewSiteClient(site *domain.SiteConfig, dl *domain.DownloadConfig) *http.Client {
	attempts := dl.SegmentRetries
	if attempts < 1 {
		attempts = 1
	}

	return &http.Client{
		Timeout: site.Timeout,
		Transport: &retryTransport{
			base: &headerTransport{
				base:      http.DefaultTransport,
				userAgent: site.UserAgent,
			},
			attempts: attempts,
			delay:    dl.RetryDelay,
		},
	}
}
