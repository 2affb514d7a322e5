// Package poshmark scrapes Poshmark search result pages.
package poshmark

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricecompare/fetcher"
	"pricecompare/models"
	"pricecompare/scraper"
	"pricecompare/utils"
)

const Name = "poshmark"

const (
	cardSelector    = "div.card.card--small"
	detailsSelector = "div.item__details"
	priceSelector   = "span.p--t--1.fw--bold"
)

type Scraper struct {
	baseURL string
	fetcher fetcher.Fetcher
	policy  scraper.PricePolicy
}

func NewScraper(baseURL string, f fetcher.Fetcher, policy scraper.PricePolicy) *Scraper {
	return &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: f,
		policy:  policy,
	}
}

func (s *Scraper) Name() string {
	return Name
}

// SearchURL keeps the trailing encoded space the site's own search box sends.
func (s *Scraper) SearchURL(query string) string {
	return s.baseURL + "/search?query=" + url.QueryEscape(strings.TrimSpace(query)) + "%20&type=listings&src=dir"
}

func (s *Scraper) ListListings(ctx context.Context, query string) (models.Batch, error) {
	doc, err := s.fetcher.Fetch(ctx, s.SearchURL(query))
	if err != nil {
		return models.Batch{}, err
	}
	return s.Parse(doc)
}

// Parse extracts listings from a fetched results page. Poshmark cards carry
// no condition, so the batch leaves that column to reconciliation.
func (s *Scraper) Parse(doc *goquery.Document) (models.Batch, error) {
	batch := models.Batch{
		Source:  Name,
		HomeURL: s.baseURL + "/",
		Fields:  []string{models.ColTitle, models.ColPrice, models.ColURL, models.ColImage},
	}

	var abortErr error
	doc.Find(cardSelector).EachWithBreak(func(i int, card *goquery.Selection) bool {
		listing, err := s.parseCard(i, card)
		if err == nil {
			batch.Listings = append(batch.Listings, listing)
			return true
		}

		var pe *scraper.PriceError
		if errors.As(err, &pe) && s.policy == scraper.PolicyAbort {
			abortErr = fmt.Errorf("poshmark card %d: %w", i, err)
			return false
		}
		utils.Debug("poshmark: %v", err)
		batch.Skipped++
		return true
	})
	if abortErr != nil {
		return models.Batch{}, abortErr
	}

	return batch, nil
}

func (s *Scraper) parseCard(i int, card *goquery.Selection) (models.Listing, error) {
	img, ok := scraper.ImageSource(card.Find("img").First())
	if !ok {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "image"}
	}

	details := card.Find(detailsSelector).First()
	if details.Length() == 0 {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "details"}
	}

	rawPrice := details.Find(priceSelector).First().Text()
	if strings.TrimSpace(rawPrice) == "" {
		rawPrice, _ = card.Attr("data-post-price")
	}
	if strings.TrimSpace(rawPrice) == "" {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "price"}
	}
	price, err := scraper.ParsePrice(rawPrice)
	if err != nil {
		return models.Listing{}, err
	}

	link := details.Find("a").First()
	title := scraper.Collapse(link.Text())
	if t, ok := link.Attr("title"); ok && strings.TrimSpace(t) != "" {
		title = scraper.Collapse(t)
	}
	if title == "" {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "title"}
	}

	listingURL := s.baseURL + "/"
	if href, ok := link.Attr("href"); ok {
		if u := scraper.CanonicalURL(s.baseURL, href); u != "" {
			listingURL = u
		}
	}

	return models.Listing{
		Title: title,
		Price: price,
		URL:   listingURL,
		Image: img,
	}, nil
}
