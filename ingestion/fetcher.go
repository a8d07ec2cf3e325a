// Package ingestion executes fetch jobs: one provider call and one
// atomic batch write per (company, source) work item.
package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/search"
	"github.com/coreybb/newsfeeds/storage"
)

// ArticleFetcher runs the fetch-normalize-persist pipeline for a single
// work item. Every error it returns is recoverable: the queue decides
// whether to retry or dead-letter.
type ArticleFetcher struct {
	provider search.Provider
	store    storage.ArticleStore
	limit    int
}

// NewArticleFetcher creates a fetcher requesting at most limit results
// per provider call.
func NewArticleFetcher(provider search.Provider, store storage.ArticleStore, limit int) *ArticleFetcher {
	return &ArticleFetcher{provider: provider, store: store, limit: limit}
}

// Fetch calls the provider, assembles an ArticleBatch stamped with the
// current time, and writes it through the store. An empty provider result
// is a success and still writes (an empty batch replaces the prior one).
// On provider or store failure nothing is written and the error
// propagates so the queue can apply its retry policy.
func (f *ArticleFetcher) Fetch(ctx context.Context, item models.WorkItem) error {
	articles, err := f.provider.Search(ctx, item.Company, item.Source, f.limit)
	if err != nil {
		return fmt.Errorf("provider call failed for %s: %w", item, err)
	}
	if articles == nil {
		articles = []models.Article{}
	}

	batch := models.ArticleBatch{
		Company:   item.Company,
		Source:    item.Source,
		FetchedAt: time.Now().UTC(),
		Articles:  articles,
	}

	if err := f.store.Put(ctx, item.Company, item.Source, &batch); err != nil {
		return fmt.Errorf("storage write failed for %s: %w", item, err)
	}

	log.Printf("INFO (Fetcher): Stored %d articles for %s", len(articles), item)
	return nil
}
