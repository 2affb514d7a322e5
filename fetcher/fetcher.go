// Package fetcher turns a marketplace search URL into a parsed document.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricecompare/utils"
)

// Fetcher performs one GET and returns the parsed page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// FetchError is a transport-level failure: either the request never
// completed (Err set) or the server answered with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *FetchError) Retryable() bool {
	if e.Err != nil {
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type HTTPFetcher struct {
	client   *http.Client
	minDelay time.Duration
	maxDelay time.Duration
}

type HTTPOptions struct {
	// Timeout of zero leaves the transport defaults in charge.
	Timeout  time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewHTTPFetcher builds a fetcher with its own transport.
//
// Certificate verification is off for this transport only: both marketplace
// domains have failed chain validation behind some corporate proxies. The
// relaxation never touches http.DefaultClient.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &HTTPFetcher{
		client:   &http.Client{Transport: transport, Timeout: opts.Timeout},
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := utils.RandomDelay(ctx, f.minDelay, f.maxDelay); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", utils.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	utils.Debug("GET %s → %d in %v", url, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse body: %w", err)}
	}
	return doc, nil
}
