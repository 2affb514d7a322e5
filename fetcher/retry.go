package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricecompare/utils"
)

// Retrying wraps a Fetcher with exponential backoff. Only retryable
// FetchErrors (connection failures, 429, 5xx) are attempted again.
type Retrying struct {
	Next       Fetcher
	MaxRetries int
	Backoff    time.Duration
}

func (r *Retrying) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := utils.Retry(ctx, r.MaxRetries, r.Backoff, isRetryable, func() error {
		var err error
		doc, err = r.Next.Fetch(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func isRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable()
}
