package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pricecompare/models"
)

func TestGenerateReport(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		report := GenerateReport(&Result{Query: "shirt", Table: models.NewTable(nil)})
		assert.Zero(t, report.TotalListings)
		assert.Zero(t, report.MinPrice)
		assert.Empty(t, report.ListingsByMarketplace)
	})

	t.Run("prices and marketplaces", func(t *testing.T) {
		res := &Result{
			Query: "shirt",
			Table: models.NewTable([]models.Listing{
				{Title: "Tee", Price: 3.5, URL: "https://www.ebay.com/itm/2"},
				{Title: "Linen", Price: 5, URL: "https://poshmark.com/listing/b"},
				{Title: "Oxford", Price: 12.5, URL: "https://www.ebay.com/itm/1"},
			}),
			Skipped:  2,
			Failures: []SourceFailure{{Source: "other", Err: errors.New("down")}},
		}

		report := GenerateReport(res)
		assert.Equal(t, 3, report.TotalListings)
		assert.InDelta(t, 7.0, report.AveragePrice, 1e-9)
		assert.Equal(t, 3.5, report.MinPrice)
		assert.Equal(t, 12.5, report.MaxPrice)
		assert.Equal(t, "Tee", report.Cheapest.Title)
		assert.Equal(t, "Oxford", report.MostExpensive.Title)
		assert.Equal(t, map[string]int{"ebay.com": 2, "poshmark.com": 1}, report.ListingsByMarketplace)
		assert.Equal(t, 2, report.Skipped)
		assert.Equal(t, []string{"other"}, report.FailedSources)
	})
}

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "$12.99    Blue Shirt", FormatRow(models.Listing{Title: "Blue Shirt", Price: 12.99}))
	assert.Equal(t, "$1299.00  Coat", FormatRow(models.Listing{Title: "Coat", Price: 1299}))
}
