package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestWorkItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    WorkItem
		wantErr bool
	}{
		{name: "Valid pair", item: WorkItem{Company: "Airbus", Source: "BBC"}},
		{name: "Empty company", item: WorkItem{Source: "BBC"}, wantErr: true},
		{name: "Empty source", item: WorkItem{Company: "Airbus"}, wantErr: true},
		{name: "Whitespace only", item: WorkItem{Company: "  ", Source: "BBC"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob(WorkItem{Company: "Airbus", Source: "BBC"})

	if job.ID == "" {
		t.Error("expected job ID to be set")
	}
	if job.Attempt != 1 {
		t.Errorf("expected first attempt to be 1, got %d", job.Attempt)
	}
	if job.State != JobStateQueued {
		t.Errorf("expected new job state %s, got %s", JobStateQueued, job.State)
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("expected enqueued_at to be stamped")
	}
}

func TestJobTransitions(t *testing.T) {
	tests := []struct {
		name string
		from JobState
		to   JobState
		ok   bool
	}{
		{"Queued to in-flight", JobStateQueued, JobStateInFlight, true},
		{"In-flight to completed", JobStateInFlight, JobStateCompleted, true},
		{"In-flight to retrying", JobStateInFlight, JobStateRetrying, true},
		{"In-flight to dead-lettered", JobStateInFlight, JobStateDeadLettered, true},
		{"Retrying to in-flight", JobStateRetrying, JobStateInFlight, true},
		{"Queued to completed", JobStateQueued, JobStateCompleted, false},
		{"Completed is terminal", JobStateCompleted, JobStateInFlight, false},
		{"Dead-lettered is terminal", JobStateDeadLettered, JobStateInFlight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}

			job := &Job{ID: "test", State: tt.from}
			err := job.Transition(tt.to)
			if tt.ok && err != nil {
				t.Errorf("Transition returned unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Transition(%s -> %s) should have been rejected", tt.from, tt.to)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	if !JobStateCompleted.IsTerminal() {
		t.Error("completed should be terminal")
	}
	if !JobStateDeadLettered.IsTerminal() {
		t.Error("dead_lettered should be terminal")
	}
	if JobStateInFlight.IsTerminal() {
		t.Error("in_flight should not be terminal")
	}
}

func TestArticleBatchRoundTrip(t *testing.T) {
	original := ArticleBatch{
		Company:   "Airbus",
		Source:    "Financial Times",
		FetchedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Articles: []Article{
			{Title: "A", URL: "https://example.com/a", Snippet: "first", PublishedAt: "2025-06-01T10:00:00Z", Sentiment: "positive"},
			{Title: "B", URL: "https://example.com/b", Snippet: "second", PublishedAt: "2025-06-01T09:00:00Z"},
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded ArticleBatch
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Company != original.Company || decoded.Source != original.Source {
		t.Errorf("identity fields changed across round trip: %+v", decoded)
	}
	if !decoded.FetchedAt.Equal(original.FetchedAt) {
		t.Errorf("fetched_at changed: got %v, want %v", decoded.FetchedAt, original.FetchedAt)
	}
	if len(decoded.Articles) != len(original.Articles) {
		t.Fatalf("article count changed: got %d, want %d", len(decoded.Articles), len(original.Articles))
	}
	for i := range original.Articles {
		if decoded.Articles[i] != original.Articles[i] {
			t.Errorf("article %d changed: got %+v, want %+v", i, decoded.Articles[i], original.Articles[i])
		}
	}
}
