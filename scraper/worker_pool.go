package scraper

import (
	"context"
	"sync"

	"pricecompare/models"
	"pricecompare/utils"
)

// SourceResult is the outcome of one adapter run.
type SourceResult struct {
	Source string
	Batch  models.Batch
	Err    error
}

type job struct {
	index   int
	adapter Adapter
}

// WorkerPool runs adapters for a query. With one worker the sources are
// fetched one after another; results always come back in adapter order.
type WorkerPool struct {
	adapters   []Adapter
	maxWorkers int
}

func NewWorkerPool(adapters []Adapter, maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{adapters: adapters, maxWorkers: maxWorkers}
}

func (p *WorkerPool) Adapters() []Adapter {
	return p.adapters
}

func (p *WorkerPool) Run(ctx context.Context, query string) []SourceResult {
	results := make([]SourceResult, len(p.adapters))
	if len(p.adapters) == 0 {
		return results
	}

	workerCount := p.maxWorkers
	if len(p.adapters) < workerCount {
		workerCount = len(p.adapters)
	}

	jobs := make(chan job, len(p.adapters))
	for i, a := range p.adapters {
		jobs <- job{index: i, adapter: a}
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 1; i <= workerCount; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each index is written by exactly one worker.
				results[j.index] = p.runOne(ctx, j.adapter, query)
			}
		}()
	}
	wg.Wait()

	return results
}

func (p *WorkerPool) runOne(ctx context.Context, a Adapter, query string) SourceResult {
	res := SourceResult{Source: a.Name()}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	utils.Info("Searching %s for %q", a.Name(), query)
	batch, err := a.ListListings(ctx, query)
	if err != nil {
		res.Err = err
		return res
	}
	if batch.Source == "" {
		batch.Source = a.Name()
	}
	res.Batch = batch

	if batch.Skipped > 0 {
		utils.Warn("%s: skipped %d incomplete listings", a.Name(), batch.Skipped)
	}
	utils.Success("%s: %d listings", a.Name(), len(batch.Listings))
	return res
}
