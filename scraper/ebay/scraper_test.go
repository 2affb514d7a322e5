package ebay

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecompare/fetcher"
	"pricecompare/models"
	"pricecompare/scraper"
	"pricecompare/utils"
)

func TestMain(m *testing.M) {
	utils.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type pageFetcher struct {
	html string
	err  error
	urls []string
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

func item(href, img, title, price, secondary string) string {
	var b strings.Builder
	b.WriteString(`<li class="s-item"><div class="s-item__image">`)
	if href != "" {
		b.WriteString(`<a href="` + href + `">`)
	}
	b.WriteString(img)
	if href != "" {
		b.WriteString(`</a>`)
	}
	b.WriteString(`</div><div class="s-item__info">`)
	b.WriteString(`<div class="s-item__title"><span>` + title + `</span></div>`)
	b.WriteString(`<span class="s-item__price">` + price + `</span>`)
	if secondary != "" {
		b.WriteString(`<span class="SECONDARY_INFO">` + secondary + `</span>`)
	}
	b.WriteString(`</div></li>`)
	return b.String()
}

func page(items ...string) string {
	return `<html><body><ul class="srp-results">` + strings.Join(items, "") + `</ul></body></html>`
}

var header = item("https://www.ebay.com/", `<img src="https://ir.ebaystatic.com/header.png">`, "Shop on eBay", "$20.00", "Brand New")

func TestSearchURL(t *testing.T) {
	s := NewScraper("https://www.ebay.com/", nil, scraper.PolicySkip)

	assert.Equal(t, "https://www.ebay.com/sch/shirt", s.SearchURL("shirt"))
	assert.Equal(t, "https://www.ebay.com/sch/red%20shirt%2Fxl", s.SearchURL(" red shirt/xl "))
}

func TestListListings(t *testing.T) {
	f := &pageFetcher{html: page(
		header,
		item("https://www.ebay.com/itm/111?hash=item1a&amdata=x",
			`<img src="https://i.ebayimg.com/111.jpg">`, "Blue  Oxford Shirt", "$12.99", "Pre-owned"),
		item("https://www.ebay.com/itm/222",
			`<img data-src="https://i.ebayimg.com/222.jpg">`, "Plain Tee", "$3.50/ea", "Brand New"),
	)}
	s := NewScraper("https://www.ebay.com", f, scraper.PolicyAbort)

	batch, err := s.ListListings(context.Background(), "shirt")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.ebay.com/sch/shirt"}, f.urls)
	assert.Equal(t, Name, batch.Source)
	assert.Equal(t, models.Columns, batch.Fields)
	assert.Zero(t, batch.Skipped)
	require.Len(t, batch.Listings, 2, "header entry at index 0 must be skipped")

	assert.Equal(t, models.Listing{
		Title:     "Blue Oxford Shirt (Pre-owned)",
		Price:     12.99,
		URL:       "https://www.ebay.com/itm/111",
		Image:     "https://i.ebayimg.com/111.jpg",
		Condition: "Pre-owned",
	}, batch.Listings[0])
	assert.Equal(t, 3.50, batch.Listings[1].Price)
	assert.Equal(t, "https://i.ebayimg.com/222.jpg", batch.Listings[1].Image)
}

func TestListListingsFetchError(t *testing.T) {
	fe := &fetcher.FetchError{URL: "https://www.ebay.com/sch/shirt", StatusCode: 503}
	s := NewScraper("https://www.ebay.com", &pageFetcher{err: fe}, scraper.PolicySkip)

	_, err := s.ListListings(context.Background(), "shirt")

	var got *fetcher.FetchError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 503, got.StatusCode)
}

func TestParseIncompleteRecords(t *testing.T) {
	t.Run("missing image is skipped", func(t *testing.T) {
		f := &pageFetcher{html: page(
			header,
			item("https://www.ebay.com/itm/1", `<img alt="no source">`, "No Photo", "$4.00", "New"),
			item("https://www.ebay.com/itm/2", `<img src="https://i.ebayimg.com/2.jpg">`, "Has Photo", "$6.00", "New"),
		)}
		batch, err := NewScraper("https://www.ebay.com", f, scraper.PolicyAbort).ListListings(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Skipped)
		require.Len(t, batch.Listings, 1)
		assert.Equal(t, "Has Photo (New)", batch.Listings[0].Title)
	})

	t.Run("titles without matching prices", func(t *testing.T) {
		html := page(
			header,
			item("https://www.ebay.com/itm/1", `<img src="https://i.ebayimg.com/1.jpg">`, "Priced", "$9.00", "Used"),
		)
		// A trailing title with no price, image or secondary info.
		html = strings.Replace(html, "</ul>", `<li><div class="s-item__title">Orphan</div></li></ul>`, 1)

		batch, err := NewScraper("https://www.ebay.com", &pageFetcher{html: html}, scraper.PolicyAbort).
			ListListings(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Skipped)
		require.Len(t, batch.Listings, 1)
		assert.Equal(t, 9.00, batch.Listings[0].Price)
	})

	t.Run("missing secondary info and link", func(t *testing.T) {
		f := &pageFetcher{html: page(
			header,
			item("", `<img src="https://i.ebayimg.com/1.jpg">`, "Bare", "$2.00", ""),
		)}
		batch, err := NewScraper("https://www.ebay.com", f, scraper.PolicyAbort).ListListings(context.Background(), "x")
		require.NoError(t, err)
		require.Len(t, batch.Listings, 1)
		assert.Equal(t, "Bare", batch.Listings[0].Title)
		assert.Equal(t, models.UnknownCondition, batch.Listings[0].Condition)
		assert.Equal(t, "https://www.ebay.com/", batch.Listings[0].URL)
	})

	t.Run("empty page", func(t *testing.T) {
		batch, err := NewScraper("https://www.ebay.com", &pageFetcher{html: page()}, scraper.PolicyAbort).
			ListListings(context.Background(), "x")
		require.NoError(t, err)
		assert.Empty(t, batch.Listings)
	})
}

func TestPricePolicy(t *testing.T) {
	html := page(
		header,
		item("https://www.ebay.com/itm/1", `<img src="https://i.ebayimg.com/1.jpg">`, "Free Thing", "Free", "Used"),
		item("https://www.ebay.com/itm/2", `<img src="https://i.ebayimg.com/2.jpg">`, "Paid Thing", "$1.00", "Used"),
	)

	t.Run("abort", func(t *testing.T) {
		_, err := NewScraper("https://www.ebay.com", &pageFetcher{html: html}, scraper.PolicyAbort).
			ListListings(context.Background(), "x")
		require.Error(t, err)
		var pe *scraper.PriceError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, "Free", pe.Raw)
	})

	t.Run("skip", func(t *testing.T) {
		batch, err := NewScraper("https://www.ebay.com", &pageFetcher{html: html}, scraper.PolicySkip).
			ListListings(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Skipped)
		require.Len(t, batch.Listings, 1)
		assert.Equal(t, "Paid Thing (Used)", batch.Listings[0].Title)
	})
}
