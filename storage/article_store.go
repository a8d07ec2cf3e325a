package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/coreybb/newsfeeds/models"
)

// ErrBatchNotFound signals that no batch has been written for the
// requested (company, source) pair.
var ErrBatchNotFound = errors.New("article batch not found")

// ArticleStore defines the interface for persisting and retrieving
// article batches. Writes fully replace the prior object for the same
// key: last write wins, never append or merge.
type ArticleStore interface {
	Put(ctx context.Context, company, source string, batch *models.ArticleBatch) error
	Get(ctx context.Context, company, source string) (*models.ArticleBatch, error)
	ListCompanies(ctx context.Context) ([]string, error)
	ListSources(ctx context.Context, company string) ([]string, error)
	GetCompanyBatches(ctx context.Context, company string) ([]*models.ArticleBatch, error)
}

// ObjectStoreConfig holds connection settings for the S3-compatible store.
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinioArticleStore implements ArticleStore against any S3-compatible
// endpoint (MinIO locally, S3 in production).
type MinioArticleStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioArticleStore creates a store client and ensures the bucket
// exists, creating it when necessary. The ensure is idempotent so
// concurrent first writers do not conflict.
func NewMinioArticleStore(ctx context.Context, cfg ObjectStoreConfig) (*MinioArticleStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	store := &MinioArticleStore{client: client, bucket: cfg.Bucket, region: cfg.Region}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *MinioArticleStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		// Another writer may have created it between the check and here.
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}

	log.Printf("INFO (ArticleStore): Created bucket %q", s.bucket)
	return nil
}

// Put serializes the batch and writes it under the derived key,
// overwriting any existing object.
func (s *MinioArticleStore) Put(ctx context.Context, company, source string, batch *models.ArticleBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize article batch for %s/%s: %w", company, source, err)
	}

	key := ObjectKey(company, source)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to write article batch to %s: %w", key, err)
	}
	return nil
}

// Get returns the most recently written batch for the pair, or
// ErrBatchNotFound when no object exists at the derived key.
func (s *MinioArticleStore) Get(ctx context.Context, company, source string) (*models.ArticleBatch, error) {
	key := ObjectKey(company, source)
	return s.getByKey(ctx, key)
}

func (s *MinioArticleStore) getByKey(ctx context.Context, key string) (*models.ArticleBatch, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	var batch models.ArticleBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode article batch at %s: %w", key, err)
	}
	return &batch, nil
}

// ListCompanies enumerates distinct top-level prefixes in the bucket.
func (s *MinioArticleStore) ListCompanies(ctx context.Context) ([]string, error) {
	var companies []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list companies: %w", info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			companies = append(companies, strings.TrimSuffix(info.Key, "/"))
		}
	}
	sort.Strings(companies)
	return companies, nil
}

// ListSources enumerates source display names stored under a company
// prefix. Names are de-normalized for presentation; the stored key
// remains the canonical identity.
func (s *MinioArticleStore) ListSources(ctx context.Context, company string) ([]string, error) {
	seen := map[string]bool{}
	var sources []string

	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: company + "/", Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list sources for %s: %w", company, info.Err)
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		stem := strings.TrimSuffix(info.Key[strings.LastIndex(info.Key, "/")+1:], ".json")
		name := DisplaySourceName(stem)
		if !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}

	sort.Strings(sources)
	return sources, nil
}

// GetCompanyBatches retrieves every stored batch for a company across all
// of its sources.
func (s *MinioArticleStore) GetCompanyBatches(ctx context.Context, company string) ([]*models.ArticleBatch, error) {
	var keys []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: company + "/", Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list batches for %s: %w", company, info.Err)
		}
		if strings.HasSuffix(info.Key, ".json") {
			keys = append(keys, info.Key)
		}
	}
	sort.Strings(keys)

	batches := make([]*models.ArticleBatch, 0, len(keys))
	for _, key := range keys {
		batch, err := s.getByKey(ctx, key)
		if err != nil {
			if errors.Is(err, ErrBatchNotFound) {
				continue // deleted between list and get
			}
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
