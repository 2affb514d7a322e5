// Package scraper holds what every marketplace adapter shares: the Adapter
// contract, price and link normalization, and the typed extraction errors.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricecompare/models"
)

// Adapter turns a query into listings for one marketplace.
type Adapter interface {
	Name() string
	ListListings(ctx context.Context, query string) (models.Batch, error)
}

// PricePolicy decides what happens to a record whose price cannot be parsed.
type PricePolicy string

const (
	PolicySkip  PricePolicy = "skip"
	PolicyAbort PricePolicy = "abort"
)

// ParsePolicy maps a config value onto a PricePolicy, defaulting to skip.
func ParsePolicy(s string) PricePolicy {
	if PricePolicy(strings.ToLower(strings.TrimSpace(s))) == PolicyAbort {
		return PolicyAbort
	}
	return PolicySkip
}

// ParseError reports a listing whose expected markup was missing.
type ParseError struct {
	Source string
	Index  int
	Field  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: record %d: missing %s", e.Source, e.Index, e.Field)
}

// PriceError reports price text that did not normalize to a number.
type PriceError struct {
	Raw string
	Err error
}

func (e *PriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid price %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("invalid price %q", e.Raw)
}

func (e *PriceError) Unwrap() error {
	return e.Err
}

var currencyStripper = strings.NewReplacer("$", " ", "€", " ", "£", " ", ",", "")

// ParsePrice normalizes marketplace price text: "$12.99" → 12.99,
// "$3.50/ea" → 3.50, "$10.00 to $20.00" → 10.00.
func ParsePrice(raw string) (float64, error) {
	fields := strings.Fields(currencyStripper.Replace(raw))
	if len(fields) == 0 {
		return 0, &PriceError{Raw: raw}
	}

	token := fields[0]
	if i := strings.IndexByte(token, '/'); i >= 0 {
		token = token[:i]
	}
	if !isDecimal(token) {
		return 0, &PriceError{Raw: raw}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, &PriceError{Raw: raw, Err: err}
	}
	return v, nil
}

// isDecimal accepts digits with at most one '.', so ParseFloat never sees
// exponents, hex floats, signs or words like "Inf".
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// CanonicalURL resolves href against base and drops any query string.
// It returns "" when href is empty or unparseable.
func CanonicalURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// ImageSource prefers src and falls back to the lazy-load data-src.
func ImageSource(img *goquery.Selection) (string, bool) {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Collapse trims and squeezes internal whitespace.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
