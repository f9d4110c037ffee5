package store

import (
	"sort"
	"sync"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// MemoryStore is a concurrency-safe in-memory implementation of coastal.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id (or coordinate key), value: series
	data map[string]*coastal.StationTimeSeries

	// latest issued generation per key
	generations map[string]uint64
	// newest generation whose result was applied (or cleared) per key; a result
	// is stale only when something at least as new already landed
	applied map[string]uint64

	assessment        *coastal.ThreatAssessment
	assessmentGen     uint64
	assessmentApplied uint64

	// max number of observations per key
	maxHistory int
}

var _ coastal.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore keeping at most maxHistory observations per key.
// If maxHistory is <= 0, coastal.DefaultHistoryLimit is used.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = coastal.DefaultHistoryLimit
	}
	return &MemoryStore{
		data:        make(map[string]*coastal.StationTimeSeries),
		generations: make(map[string]uint64),
		applied:     make(map[string]uint64),
		maxHistory:  maxHistory,
	}
}

// Get returns a copy of the series stored for key.
func (s *MemoryStore) Get(key string) (coastal.StationTimeSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[key]
	if !ok {
		return coastal.StationTimeSeries{}, coastal.ErrNotFound
	}
	return copySeries(*series), nil
}

// Merge appends incoming observations to the series for key and enforces the cap.
func (s *MemoryStore) Merge(key string, incoming coastal.StationTimeSeries) coastal.StationTimeSeries {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mergeLocked(key, incoming)
}

// Begin issues a new generation for key. Results of older generations are
// dropped once a newer one has been applied.
func (s *MemoryStore) Begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[key]++
	return s.generations[key]
}

// MergeIfLatest merges only when no result of gen or a newer generation has been
// applied to key, and no clear happened after gen was issued. Otherwise the stored
// series is returned unchanged together with false.
func (s *MemoryStore) MergeIfLatest(key string, gen uint64, incoming coastal.StationTimeSeries) (coastal.StationTimeSeries, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.applied[key] {
		if existing, ok := s.data[key]; ok {
			return copySeries(*existing), false
		}
		return coastal.StationTimeSeries{}, false
	}
	s.applied[key] = gen
	return s.mergeLocked(key, incoming), true
}

func (s *MemoryStore) mergeLocked(key string, incoming coastal.StationTimeSeries) coastal.StationTimeSeries {
	existing, ok := s.data[key]
	if !ok {
		series := copySeries(incoming)
		series.Observations = coastal.Tail(series.Observations, s.maxHistory)
		s.data[key] = &series
		return copySeries(series)
	}

	combined := make([]coastal.Observation, 0, len(existing.Observations)+len(incoming.Observations))
	combined = append(combined, existing.Observations...)
	combined = append(combined, incoming.Observations...)

	existing.Source = incoming.Source
	existing.StationInfo = incoming.StationInfo
	existing.Raw = incoming.Raw
	existing.Observations = coastal.Tail(combined, s.maxHistory)
	return copySeries(*existing)
}

// Clear removes the series for key and invalidates requests in flight for it.
func (s *MemoryStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	s.applied[key] = s.generations[key]
}

// ClearAll removes every series and the stored assessment, invalidating all
// requests in flight.
func (s *MemoryStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*coastal.StationTimeSeries)
	for key, gen := range s.generations {
		s.applied[key] = gen
	}
	s.assessment = nil
	s.assessmentApplied = s.assessmentGen
}

// Keys lists the keys that currently hold a series, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BeginAssessment issues a new generation for the threat assessment slot.
func (s *MemoryStore) BeginAssessment() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assessmentGen++
	return s.assessmentGen
}

// SetAssessmentIfLatest replaces the stored assessment unless an assessment of gen
// or a newer generation was already stored, or the slot was cleared after gen.
func (s *MemoryStore) SetAssessmentIfLatest(gen uint64, a coastal.ThreatAssessment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen <= s.assessmentApplied {
		return false
	}
	s.assessmentApplied = gen
	a.Threats = copyThreats(a.Threats)
	s.assessment = &a
	return true
}

// LatestAssessment returns the stored assessment.
func (s *MemoryStore) LatestAssessment() (coastal.ThreatAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.assessment == nil {
		return coastal.ThreatAssessment{}, coastal.ErrNotFound
	}
	a := *s.assessment
	a.Threats = copyThreats(a.Threats)
	return a, nil
}

func copySeries(in coastal.StationTimeSeries) coastal.StationTimeSeries {
	out := in
	out.Observations = coastal.Tail(in.Observations, 0)
	return out
}

func copyThreats(in []coastal.ThreatEvent) []coastal.ThreatEvent {
	out := make([]coastal.ThreatEvent, len(in))
	copy(out, in)
	return out
}
