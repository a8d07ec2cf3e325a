package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkItem identifies one unit of schedulable fetch work.
type WorkItem struct {
	Company string `json:"company"`
	Source  string `json:"source"`
}

// Validate checks that both halves of the pair are non-empty.
func (w WorkItem) Validate() error {
	if strings.TrimSpace(w.Company) == "" {
		return fmt.Errorf("work item company cannot be empty")
	}
	if strings.TrimSpace(w.Source) == "" {
		return fmt.Errorf("work item source cannot be empty")
	}
	return nil
}

func (w WorkItem) String() string {
	return w.Company + " / " + w.Source
}

// JobState defines the set of states a queued job moves through.
type JobState string

const (
	JobStateQueued       JobState = "queued"
	JobStateInFlight     JobState = "in_flight"
	JobStateRetrying     JobState = "retrying"
	JobStateCompleted    JobState = "completed"
	JobStateDeadLettered JobState = "dead_lettered"
)

// jobTransitions is the full set of legal state transitions:
// Queued -> InFlight -> (Completed | Retrying | DeadLettered),
// Retrying -> InFlight.
var jobTransitions = map[JobState][]JobState{
	JobStateQueued:   {JobStateInFlight},
	JobStateRetrying: {JobStateInFlight},
	JobStateInFlight: {JobStateCompleted, JobStateRetrying, JobStateDeadLettered},
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition. Completed and DeadLettered are terminal.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s JobState) IsTerminal() bool {
	return len(jobTransitions[s]) == 0
}

// Job is a queued, retry-tracked instance of work derived from a WorkItem.
// Attempt is the only field the queue mutates after enqueue.
type Job struct {
	ID         string    `json:"id"`
	WorkItem   WorkItem  `json:"work_item"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
	State      JobState  `json:"state"`
}

// NewJob creates a first-attempt job for the given pair.
func NewJob(item WorkItem) *Job {
	return &Job{
		ID:         uuid.NewString(),
		WorkItem:   item,
		EnqueuedAt: time.Now().UTC(),
		Attempt:    1,
		State:      JobStateQueued,
	}
}

// Transition moves the job to the next state, rejecting illegal moves.
func (j *Job) Transition(next JobState) error {
	if !j.State.CanTransitionTo(next) {
		return fmt.Errorf("illegal job transition %s -> %s for job %s", j.State, next, j.ID)
	}
	j.State = next
	return nil
}

// DeadLetterRecord is the terminal-failure entry kept for operator
// inspection after a job exhausts its retry budget.
type DeadLetterRecord struct {
	Company  string    `json:"company"`
	Source   string    `json:"source"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
