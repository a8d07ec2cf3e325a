// Package enqueue implements manual job submission: one-off
// company/source pairs from the command line or a batch of pairs from
// a JSON config file.
package enqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/coreybb/newsfeeds/models"
	"github.com/coreybb/newsfeeds/queue"
)

// ParsePair parses a "Company:Source" argument into a work item. The
// first colon separates company from source, so a source name may itself
// contain colons ("Acme:BBC:World" is company "Acme", source "BBC:World").
func ParsePair(arg string) (models.WorkItem, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return models.WorkItem{}, fmt.Errorf("invalid pair %q: expected Company:Source", arg)
	}

	item := models.WorkItem{
		Company: strings.TrimSpace(parts[0]),
		Source:  strings.TrimSpace(parts[1]),
	}
	if err := item.Validate(); err != nil {
		return models.WorkItem{}, fmt.Errorf("invalid pair %q: %w", arg, err)
	}
	return item, nil
}

// LoadConfigPairs reads a JSON config file mapping company names to
// source lists and expands it into work items, ordered by company name
// for stable output.
func LoadConfigPairs(path string) ([]models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var config map[string][]string
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	companies := make([]string, 0, len(config))
	for company := range config {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	var items []models.WorkItem
	for _, company := range companies {
		for _, source := range config[company] {
			items = append(items, models.WorkItem{Company: company, Source: source})
		}
	}
	return items, nil
}

// Run validates and enqueues each work item, skipping invalid ones. It
// returns the number of jobs enqueued and the number of failures
// (invalid items plus enqueue errors).
func Run(ctx context.Context, q queue.Queue, items []models.WorkItem) (enqueued, failed int) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Printf("WARNING (Enqueue): Skipping invalid pair %s: %v", item, err)
			failed++
			continue
		}

		job := models.NewJob(item)
		if err := q.Enqueue(ctx, job); err != nil {
			log.Printf("ERROR (Enqueue): Failed to enqueue %s: %v", item, err)
			failed++
			continue
		}

		log.Printf("INFO (Enqueue): Enqueued job %s for %s", job.ID, item)
		enqueued++
	}
	return enqueued, failed
}
