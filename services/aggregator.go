package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"pricecompare/config"
	"pricecompare/models"
	"pricecompare/scraper"
	"pricecompare/storage"
	"pricecompare/utils"
)

// Cache stores finished tables per normalized query.
type Cache interface {
	Get(key string) (models.Table, bool, error)
	Put(key string, table models.Table) error
	Invalidate(key string) error
}

// Archiver keeps a history of fetched tables. Optional.
type Archiver interface {
	Archive(ctx context.Context, query string, table models.Table) error
}

// SourceFailure records a marketplace that produced no listings for a query.
type SourceFailure struct {
	Source string
	Err    error
}

// AggregateError is returned when the query as a whole failed: every source
// failed, or any source failed while fail-fast is on.
type AggregateError struct {
	Query    string
	Failures []SourceFailure
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Source, f.Err))
	}
	return fmt.Sprintf("query %q failed: %s", e.Query, strings.Join(parts, "; "))
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Result is a unified table plus how it was obtained.
type Result struct {
	Query    string
	Table    models.Table
	Cached   bool
	Failures []SourceFailure
	Skipped  int
}

type Aggregator struct {
	cfg     *config.Config
	pool    *scraper.WorkerPool
	cache   Cache
	archive Archiver
	flights singleflight.Group
}

func NewAggregator(cfg *config.Config, pool *scraper.WorkerPool, cache Cache) *Aggregator {
	return &Aggregator{cfg: cfg, pool: pool, cache: cache}
}

// SetArchiver enables the price history. Pass nil to disable it.
func (a *Aggregator) SetArchiver(archive Archiver) {
	a.archive = archive
}

// CreateMergedTable is the read entry point for presentation code.
func (a *Aggregator) CreateMergedTable(ctx context.Context, query string, useCache bool) (models.Table, error) {
	res, err := a.Aggregate(ctx, query, useCache)
	if err != nil {
		return models.Table{}, err
	}
	return res.Table, nil
}

// Aggregate returns the price-sorted listings of every source for query.
// A valid cache entry is served directly; otherwise concurrent callers for
// the same key share one live fetch, whatever their cache mode.
func (a *Aggregator) Aggregate(ctx context.Context, query string, useCache bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		query = a.cfg.DefaultQuery
	}
	key := storage.NormalizeKey(query)

	if useCache {
		if res, ok := a.cached(query, key); ok {
			return res, nil
		}
	}

	// The fetch is detached from the caller that started it so one
	// disconnecting client does not fail everyone waiting on the key.
	ch := a.flights.DoChan(key, func() (interface{}, error) {
		return a.fetch(context.WithoutCancel(ctx), query, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := r.Val.(*Result)
		if r.Shared {
			cp := *res
			cp.Query = query
			cp.Table.Rows = append([]models.Listing{}, res.Table.Rows...)
			return &cp, nil
		}
		return res, nil
	}
}

// Invalidate forgets the cached table for query.
func (a *Aggregator) Invalidate(query string) error {
	return a.cache.Invalidate(storage.NormalizeKey(query))
}

func (a *Aggregator) cached(query, key string) (*Result, bool) {
	table, ok, err := a.cache.Get(key)
	switch {
	case err != nil:
		utils.Warn("Cache read failed for %q, fetching live: %v", key, err)
		return nil, false
	case !ok:
		return nil, false
	}
	utils.Info("Cache hit for %q (%d listings)", key, table.Len())
	return &Result{Query: query, Table: table, Cached: true}, true
}

func (a *Aggregator) fetch(ctx context.Context, query, key string) (*Result, error) {
	res := &Result{Query: query}
	var batches []models.Batch
	for _, r := range a.pool.Run(ctx, query) {
		if r.Err != nil {
			utils.Warn("%s returned no listings: %v", r.Source, r.Err)
			res.Failures = append(res.Failures, SourceFailure{Source: r.Source, Err: r.Err})
			continue
		}
		batches = append(batches, r.Batch)
		res.Skipped += r.Batch.Skipped
	}

	if len(res.Failures) > 0 && (a.cfg.FailFast || len(batches) == 0) {
		return nil, &AggregateError{Query: query, Failures: res.Failures}
	}

	res.Table = Reconcile(batches, a.cfg.PlaceholderImageURL)
	SortByPrice(res.Table.Rows)

	switch {
	case len(res.Failures) > 0:
		utils.Warn("Not caching partial result for %q", key)
	case res.Table.Len() == 0:
		utils.Warn("No listings for %q, not caching", key)
	default:
		if err := a.cache.Put(key, res.Table); err != nil {
			utils.Warn("Could not cache %q: %v", key, err)
		}
	}

	if a.archive != nil {
		if err := a.archive.Archive(ctx, key, res.Table); err != nil {
			utils.Warn("Could not archive %q: %v", key, err)
		}
	}

	return res, nil
}

// Reconcile merges batches into one table in batch order. Columns a batch
// does not provide, and empty values, get defaults: the placeholder image,
// "unknown" condition and the marketplace home page as link.
func Reconcile(batches []models.Batch, placeholderImage string) models.Table {
	union := fieldUnion(batches)
	for _, b := range batches {
		if len(b.Fields) != len(union) {
			utils.Warn("Schema mismatch: %s provides %v, merged schema is %v; filling defaults",
				b.Source, b.Fields, union)
		}
	}

	var rows []models.Listing
	for _, b := range batches {
		for _, l := range b.Listings {
			if !b.Has(models.ColImage) || l.Image == "" {
				l.Image = placeholderImage
			}
			if !b.Has(models.ColCondition) || l.Condition == "" {
				l.Condition = models.UnknownCondition
			}
			if !b.Has(models.ColURL) || l.URL == "" {
				l.URL = b.HomeURL
			}
			if !b.Has(models.ColTitle) {
				l.Title = ""
			}
			rows = append(rows, l)
		}
	}
	return models.NewTable(rows)
}

// fieldUnion lists every field any batch provides, in canonical column order.
func fieldUnion(batches []models.Batch) []string {
	var union []string
	for _, col := range models.Columns {
		for _, b := range batches {
			if b.Has(col) {
				union = append(union, col)
				break
			}
		}
	}
	return union
}

// SortByPrice orders rows cheapest first; equal prices keep their order.
func SortByPrice(rows []models.Listing) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Price < rows[j].Price
	})
}
