// Package ebay scrapes eBay search result pages.
package ebay

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

const Name = "ebay"

// Selectors for the parallel tag collections on a results page. The first
// entry of each collection belongs to a hidden template card, not a listing.
const (
	titleSelector     = ".s-item__title"
	priceSelector     = ".s-item__price"
	imageSelector     = ".s-item__image"
	secondarySelector = ".SECONDARY_INFO"
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

func (s *Scraper) SearchURL(query string) string {
	return s.baseURL + "/sch/" + url.PathEscape(strings.TrimSpace(query))
}

func (s *Scraper) ListListings(ctx context.Context, query string) (models.Batch, error) {
	doc, err := s.fetcher.Fetch(ctx, s.SearchURL(query))
	if err != nil {
		return models.Batch{}, err
	}
	return s.Parse(doc)
}

// Parse extracts listings from a fetched results page.
func (s *Scraper) Parse(doc *goquery.Document) (models.Batch, error) {
	batch := models.Batch{
		Source:  Name,
		HomeURL: s.baseURL + "/",
		Fields:  []string{models.ColTitle, models.ColPrice, models.ColURL, models.ColImage, models.ColCondition},
	}

	titles := doc.Find(titleSelector)
	prices := doc.Find(priceSelector)
	images := doc.Find(imageSelector)
	secondary := doc.Find(secondarySelector)

	if titles.Length() != prices.Length() || titles.Length() != images.Length() {
		utils.Debug("ebay: uneven collections titles=%d prices=%d images=%d",
			titles.Length(), prices.Length(), images.Length())
	}

	for i := 1; i < titles.Length(); i++ {
		listing, err := s.parseRecord(i, titles.Eq(i), prices, images, secondary)
		if err == nil {
			batch.Listings = append(batch.Listings, listing)
			continue
		}

		var pe *scraper.PriceError
		if errors.As(err, &pe) && s.policy == scraper.PolicyAbort {
			return models.Batch{}, fmt.Errorf("ebay record %d: %w", i, err)
		}
		utils.Debug("ebay: %v", err)
		batch.Skipped++
	}

	return batch, nil
}

func (s *Scraper) parseRecord(i int, title, prices, images, secondary *goquery.Selection) (models.Listing, error) {
	name := scraper.Collapse(title.Text())
	if name == "" {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "title"}
	}
	if i >= prices.Length() {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "price"}
	}
	if i >= images.Length() {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "image"}
	}

	price, err := scraper.ParsePrice(prices.Eq(i).Text())
	if err != nil {
		return models.Listing{}, err
	}

	wrapper := images.Eq(i)
	img, ok := scraper.ImageSource(wrapper.Find("img").First())
	if !ok {
		return models.Listing{}, &scraper.ParseError{Source: Name, Index: i, Field: "image"}
	}

	link := s.baseURL + "/"
	if href, ok := wrapper.Find("a").First().Attr("href"); ok {
		if u := scraper.CanonicalURL(s.baseURL, href); u != "" {
			link = u
		}
	}

	condition := models.UnknownCondition
	if i < secondary.Length() {
		if c := scraper.Collapse(secondary.Eq(i).Text()); c != "" {
			condition = c
			name = name + " (" + c + ")"
		}
	}

	return models.Listing{
		Title:     name,
		Price:     price,
		URL:       link,
		Image:     img,
		Condition: condition,
	}, nil
}
