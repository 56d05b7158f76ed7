package domain

import (
	"sync"
)

// ModelResult is the render state of one model slot.
type ModelResult struct {
	// ModelName is the model identifier this slot belongs to.
	ModelName string `json:"modelName"`

	// ImageURL is the SVG data URL; nil while loading or after a failure.
	ImageURL *string `json:"imageUrl"`

	// IsLoading is true until the provider call settles.
	IsLoading bool `json:"isLoading"`
}

// Succeeded reports whether the slot settled with an image.
func (r ModelResult) Succeeded() bool {
	return !r.IsLoading && r.ImageURL != nil
}

// Completion is emitted by a finished provider call. SubmissionID and Index
// address the slot; exactly one of ImageURL and Err is meaningful.
type Completion struct {
	SubmissionID string
	Index        int
	Entry        ModelEntry
	ImageURL     string
	Err          error
}

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	SubmissionID string        `json:"submissionId"`
	Prompt       string        `json:"prompt"`
	Results      []ModelResult `json:"results"`
}

// Pending returns how many slots are still loading.
func (s Snapshot) Pending() int {
	n := 0
	for _, r := range s.Results {
		if r.IsLoading {
			n++
		}
	}
	return n
}

// ResultsStore holds the ResultsCollection of the active submission.
// Slots are addressed by index, never by model name.
type ResultsStore struct {
	mu           sync.RWMutex
	submissionID string
	prompt       string
	results      []ModelResult
}

// NewResultsStore creates an empty store.
func NewResultsStore() *ResultsStore {
	return &ResultsStore{results: make([]ModelResult, 0)}
}

// Reset replaces the whole collection with one loading slot per entry.
// Anything belonging to the previous submission is discarded.
func (s *ResultsStore) Reset(submissionID, prompt string, entries []ModelEntry) {
	results := make([]ModelResult, len(entries))
	for i, e := range entries {
		results[i] = ModelResult{ModelName: e.Model, IsLoading: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissionID = submissionID
	s.prompt = prompt
	s.results = results
}

// Apply moves the addressed slot to its terminal state. It returns false and
// leaves the store untouched when the completion belongs to another
// submission, points outside the collection, or targets a settled slot.
func (s *ResultsStore) Apply(c Completion) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.SubmissionID != s.submissionID {
		return false
	}
	if c.Index < 0 || c.Index >= len(s.results) {
		return false
	}
	slot := s.results[c.Index]
	if !slot.IsLoading {
		return false
	}

	next := ModelResult{ModelName: slot.ModelName}
	if c.Err == nil {
		url := c.ImageURL
		next.ImageURL = &url
	}
	s.results[c.Index] = next
	return true
}

// ActiveSubmission returns the id of the submission the store tracks.
func (s *ResultsStore) ActiveSubmission() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissionID
}

// Snapshot returns a deep copy of the current state.
func (s *ResultsStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]ModelResult, len(s.results))
	for i, r := range s.results {
		if r.ImageURL != nil {
			url := *r.ImageURL
			r.ImageURL = &url
		}
		results[i] = r
	}
	return Snapshot{
		SubmissionID: s.submissionID,
		Prompt:       s.prompt,
		Results:      results,
	}
}
