package services

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"pricecompare/models"
)

type Report struct {
	Query                 string
	TotalListings         int
	AveragePrice          float64
	MinPrice              float64
	MaxPrice              float64
	Cheapest              models.Listing
	MostExpensive         models.Listing
	ListingsByMarketplace map[string]int
	Cached                bool
	Skipped               int
	FailedSources         []string
}

// GenerateReport summarizes a result. Listings are attributed to a
// marketplace by the host of their link, which survives the cache.
func GenerateReport(res *Result) Report {
	report := Report{
		Query:                 res.Query,
		TotalListings:         res.Table.Len(),
		ListingsByMarketplace: make(map[string]int),
		Cached:                res.Cached,
		Skipped:               res.Skipped,
	}
	for _, f := range res.Failures {
		report.FailedSources = append(report.FailedSources, f.Source)
	}

	if report.TotalListings == 0 {
		return report
	}

	var (
		priceSum float64
		maxPrice = -1.0
		minPrice = math.MaxFloat64
	)

	for _, l := range res.Table.Rows {
		report.ListingsByMarketplace[marketplaceOf(l.URL)]++

		priceSum += l.Price
		if l.Price > maxPrice {
			maxPrice = l.Price
			report.MostExpensive = l
		}
		if l.Price < minPrice {
			minPrice = l.Price
			report.Cheapest = l
		}
	}

	report.AveragePrice = priceSum / float64(report.TotalListings)
	report.MinPrice = minPrice
	report.MaxPrice = maxPrice

	return report
}

func PrintReport(report Report) {
	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────────────────────┐")
	fmt.Printf("│ %-60s │\n", truncateText("Price comparison: "+report.Query, 60))
	fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
	fmt.Printf("│ %-29s │ %-28d │\n", "Total Listings", report.TotalListings)
	fmt.Printf("│ %-29s │ %-28t │\n", "From Cache", report.Cached)
	fmt.Printf("│ %-29s │ %-28d │\n", "Skipped Records", report.Skipped)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Average Price", report.AveragePrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Minimum Price", report.MinPrice)
	fmt.Printf("│ %-29s │ %-28.2f │\n", "Maximum Price", report.MaxPrice)
	if len(report.FailedSources) > 0 {
		fmt.Printf("│ %-29s │ %-28s │\n", "Failed Sources", truncateText(strings.Join(report.FailedSources, ", "), 28))
	}
	fmt.Println("└───────────────────────────────┴──────────────────────────────┘")

	if report.Cheapest.Title != "" {
		fmt.Println()
		fmt.Printf("Cheapest: $%.2f %s\n", report.Cheapest.Price, report.Cheapest.Title)
		fmt.Printf("          %s\n", report.Cheapest.URL)
	}

	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────┬───────────────┐")
	fmt.Println("│ Listings per Marketplace                     │ Count         │")
	fmt.Println("├──────────────────────────────────────────────┼───────────────┤")
	for _, m := range sortedKeys(report.ListingsByMarketplace) {
		fmt.Printf("│ %-44s │ %-13d │\n", m, report.ListingsByMarketplace[m])
	}
	fmt.Println("└──────────────────────────────────────────────┴───────────────┘")
}

// PrintTable prints up to limit rows the way the result list shows them:
// price padded to ten columns, then the title.
func PrintTable(table models.Table, limit int) {
	fmt.Println()
	fmt.Printf("%-10s%s\n", "price", "item")
	for i, l := range table.Rows {
		if limit > 0 && i >= limit {
			fmt.Printf("... %d more\n", table.Len()-limit)
			break
		}
		fmt.Println(FormatRow(l))
	}
}

func FormatRow(l models.Listing) string {
	return fmt.Sprintf("%-10s%s", fmt.Sprintf("$%.2f", l.Price), l.Title)
}

func marketplaceOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
