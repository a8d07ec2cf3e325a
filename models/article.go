package models

import "time"

// Article is a single normalized search result from the external provider.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	PublishedAt string `json:"published_at"`
	Sentiment   string `json:"sentiment,omitempty"` // provider-specific, passed through
}

// ArticleBatch is the full set of articles fetched for one
// (company, source) pair at one point in time. A batch is persisted as a
// single object; partial batches are never written.
type ArticleBatch struct {
	Company   string    `json:"company"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Articles  []Article `json:"articles"`
}
