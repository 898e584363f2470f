// Package models defines the shared data types for the vessel scraper.
package models

import (
	"sort"
	"time"
)

// Category identifies one of the independent data facets fetched per vessel.
// Each category has its own dataset file and its own failed-id bookkeeping.
type Category string

// Known categories. Summary is the authoritative id source and is not
// scraped by the orchestrator itself.
const (
	CategorySummary     Category = "summary"
	CategoryParticulars Category = "particulars"
	CategoryDimensions  Category = "dimensions"
	CategoryTonnage     Category = "tonnage"
)

// Record is one row fetched for a vessel. Fields is category-specific and
// opaque to the engine; VesselID is always set, re-tagged from the request
// when the response omits it.
type Record struct {
	VesselID int64
	Fields   map[string]string
}

// Phase is the orchestrator state machine position, persisted between runs.
type Phase string

// Phases, in order. The machine only ever advances.
const (
	PhaseInitialScrape Phase = "initialScrape"
	PhaseRetryFailed   Phase = "retryFailedIds"
	PhaseComplete      Phase = "complete"
)

// ScrapeState is the checkpoint written after every batch and phase
// transition. The JSON shape matches the on-disk state file.
type ScrapeState struct {
	Phase            Phase                `json:"scrapeStatus"`
	RetriesCompleted int                  `json:"retriesCompleted"`
	FailedIDs        map[Category][]int64 `json:"failedIds"`
}

// NewScrapeState returns the default state for a fresh run.
func NewScrapeState() *ScrapeState {
	return &ScrapeState{
		Phase:     PhaseInitialScrape,
		FailedIDs: make(map[Category][]int64),
	}
}

// Normalize fills in fields missing from an older or partial state file.
func (s *ScrapeState) Normalize() {
	if s.Phase == "" {
		s.Phase = PhaseInitialScrape
	}
	if s.RetriesCompleted < 0 {
		s.RetriesCompleted = 0
	}
	if s.FailedIDs == nil {
		s.FailedIDs = make(map[Category][]int64)
	}
}

// FailedFor returns a sorted copy of the failed-id list for a category.
func (s *ScrapeState) FailedFor(cat Category) []int64 {
	ids := s.FailedIDs[cat]
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddFailed records newly failed ids for a category, keeping the list
// sorted and free of duplicates.
func (s *ScrapeState) AddFailed(cat Category, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	seen := make(map[int64]struct{}, len(s.FailedIDs[cat])+len(ids))
	merged := make([]int64, 0, len(s.FailedIDs[cat])+len(ids))
	for _, id := range s.FailedIDs[cat] {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	s.FailedIDs[cat] = merged
}

// RemoveFailed drops ids that have since succeeded from the failed list.
func (s *ScrapeState) RemoveFailed(cat Category, ids ...int64) {
	if len(ids) == 0 || len(s.FailedIDs[cat]) == 0 {
		return
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.FailedIDs[cat][:0]
	for _, id := range s.FailedIDs[cat] {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	s.FailedIDs[cat] = kept
}

// ScrapeReport summarises one orchestrator invocation.
type ScrapeReport struct {
	StartTime        time.Time
	EndTime          time.Time
	Phase            Phase
	RetriesCompleted int
	BatchesRun       int
	RowsAdded        map[Category]int
	FailedCounts     map[Category]int
}

// NewScrapeReport returns an empty report ready for accumulation.
func NewScrapeReport() *ScrapeReport {
	return &ScrapeReport{
		StartTime:    time.Now(),
		RowsAdded:    make(map[Category]int),
		FailedCounts: make(map[Category]int),
	}
}

// TotalRows sums rows added across categories.
func (r *ScrapeReport) TotalRows() int {
	total := 0
	for _, n := range r.RowsAdded {
		total += n
	}
	return total
}
