package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreybb/newsfeeds/models"
)

func testBatch(company, source string, titles ...string) *models.ArticleBatch {
	articles := make([]models.Article, 0, len(titles))
	for _, title := range titles {
		articles = append(articles, models.Article{
			Title: title,
			URL:   "https://example.com/" + title,
		})
	}
	return &models.ArticleBatch{
		Company:   company,
		Source:    source,
		FetchedAt: time.Now().UTC(),
		Articles:  articles,
	}
}

func TestLocalStorePutGetRoundTrip(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "Airbus", "Financial Times", testBatch("Airbus", "Financial Times", "a1", "a2")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	batch, err := store.Get(ctx, "Airbus", "Financial Times")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if batch.Company != "Airbus" || batch.Source != "Financial Times" {
		t.Errorf("unexpected batch identity: %s/%s", batch.Company, batch.Source)
	}
	if len(batch.Articles) != 2 {
		t.Errorf("expected 2 articles, got %d", len(batch.Articles))
	}
}

func TestLocalStoreGetNormalizedSourceVariant(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "Airbus", "Financial Times", testBatch("Airbus", "Financial Times", "a1")); err != nil {
		t.Fatal(err)
	}

	// Different spellings of the same source resolve to the same key.
	batch, err := store.Get(ctx, "Airbus", "FINANCIAL_TIMES")
	if err != nil {
		t.Fatalf("Get with variant spelling returned error: %v", err)
	}
	if len(batch.Articles) != 1 {
		t.Errorf("expected 1 article, got %d", len(batch.Articles))
	}
}

func TestLocalStorePutOverwrites(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "Airbus", "BBC", testBatch("Airbus", "BBC", "old1", "old2", "old3")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "Airbus", "BBC", testBatch("Airbus", "BBC", "new1")); err != nil {
		t.Fatal(err)
	}

	batch, err := store.Get(ctx, "Airbus", "BBC")
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Articles) != 1 || batch.Articles[0].Title != "new1" {
		t.Errorf("expected single replaced article, got %v", batch.Articles)
	}
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())

	_, err := store.Get(context.Background(), "Nobody", "Nowhere")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestLocalStoreListing(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())
	ctx := context.Background()

	pairs := []struct{ company, source string }{
		{"Airbus", "BBC"},
		{"Airbus", "Financial Times"},
		{"Boeing", "Reuters"},
	}
	for _, p := range pairs {
		if err := store.Put(ctx, p.company, p.source, testBatch(p.company, p.source, "t")); err != nil {
			t.Fatal(err)
		}
	}

	companies, err := store.ListCompanies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(companies) != 2 || companies[0] != "Airbus" || companies[1] != "Boeing" {
		t.Errorf("unexpected companies: %v", companies)
	}

	sources, err := store.ListSources(ctx, "Airbus")
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 || sources[0] != "Bbc" || sources[1] != "Financial Times" {
		t.Errorf("unexpected sources: %v", sources)
	}

	batches, err := store.GetCompanyBatches(ctx, "Airbus")
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Errorf("expected 2 batches, got %d", len(batches))
	}
}

func TestLocalStoreListingsEmptyWhenNothingStored(t *testing.T) {
	store := NewLocalArticleStore(t.TempDir())
	ctx := context.Background()

	companies, err := store.ListCompanies(ctx)
	if err != nil || len(companies) != 0 {
		t.Fatalf("expected no companies, got %v (err %v)", companies, err)
	}
	sources, err := store.ListSources(ctx, "Airbus")
	if err != nil || len(sources) != 0 {
		t.Fatalf("expected no sources, got %v (err %v)", sources, err)
	}
}
