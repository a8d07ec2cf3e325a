package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coreybb/newsfeeds/models"
)

const defaultLocalBasePath = "_output"

// LocalArticleStore implements ArticleStore on the local file system,
// mirroring the object key layout (<Company>/<source>.json) under a base
// directory. It exists for development and offline runs where no
// S3-compatible endpoint is available.
type LocalArticleStore struct {
	basePath string
}

// NewLocalArticleStore creates a store rooted at basePath, defaulting to
// "_output" when empty.
func NewLocalArticleStore(basePath string) *LocalArticleStore {
	if basePath == "" {
		basePath = defaultLocalBasePath
	}
	return &LocalArticleStore{basePath: basePath}
}

// Put writes the batch as JSON to the derived path, overwriting any
// existing file.
func (s *LocalArticleStore) Put(_ context.Context, company, source string, batch *models.ArticleBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize article batch for %s/%s: %w", company, source, err)
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(ObjectKey(company, source)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		log.Printf("ERROR (ArticleStore): Failed to create directory for %s: %v", fullPath, err)
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		log.Printf("ERROR (ArticleStore): Failed to write batch to %s: %v", fullPath, err)
		return fmt.Errorf("failed to write article batch: %w", err)
	}
	return nil
}

// Get returns the stored batch for the pair, or ErrBatchNotFound.
func (s *LocalArticleStore) Get(_ context.Context, company, source string) (*models.ArticleBatch, error) {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(ObjectKey(company, source)))
	return s.readBatch(fullPath)
}

func (s *LocalArticleStore) readBatch(fullPath string) (*models.ArticleBatch, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}

	var batch models.ArticleBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode article batch at %s: %w", fullPath, err)
	}
	return &batch, nil
}

// ListCompanies enumerates top-level directories under the base path.
func (s *LocalArticleStore) ListCompanies(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	var companies []string
	for _, entry := range entries {
		if entry.IsDir() {
			companies = append(companies, entry.Name())
		}
	}
	sort.Strings(companies)
	return companies, nil
}

// ListSources enumerates source display names stored for a company.
func (s *LocalArticleStore) ListSources(_ context.Context, company string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, company))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sources for %s: %w", company, err)
	}

	var sources []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		sources = append(sources, DisplaySourceName(strings.TrimSuffix(name, ".json")))
	}
	sort.Strings(sources)
	return sources, nil
}

// GetCompanyBatches retrieves every stored batch for a company.
func (s *LocalArticleStore) GetCompanyBatches(ctx context.Context, company string) ([]*models.ArticleBatch, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, company))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list batches for %s: %w", company, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	batches := make([]*models.ArticleBatch, 0, len(names))
	for _, name := range names {
		batch, err := s.readBatch(filepath.Join(s.basePath, company, name))
		if err != nil {
			if errors.Is(err, ErrBatchNotFound) {
				continue
			}
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
