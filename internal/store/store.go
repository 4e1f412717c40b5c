package store

import (
	"sort"
	"sync"
	"time"

	"repweeks/internal/model"
)

// Store holds named series in memory for the long-lived surfaces. The
// reduction pipeline itself never touches it.
type Store struct {
	mu     sync.RWMutex
	traces map[string]model.Trace // keyed by trace name, sorted by timestamp
}

func New() *Store {
	return &Store{
		traces: make(map[string]model.Trace),
	}
}

// Add merges points into the named trace, keeping stamp order.
func (s *Store) Add(name string, points model.Trace) {
	if len(points) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append(s.traces[name], points...)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	s.traces[name] = merged
}

// Names returns all trace names sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.traces))
	for name := range s.traces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trace returns a copy of the named trace.
func (s *Store) Trace(name string) model.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.traces[name]
	if len(points) == 0 {
		return nil
	}
	out := make(model.Trace, len(points))
	copy(out, points)
	return out
}

// PointCount returns the number of points in the named trace.
func (s *Store) PointCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.traces[name])
}

// Range returns the stamp range covered by the named trace.
func (s *Store) Range(name string) (model.Interval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.traces[name]
	if len(points) == 0 {
		return model.Interval{}, false
	}
	return model.Interval{
		Start: points[0].Timestamp,
		End:   points[len(points)-1].Timestamp,
	}, true
}

// GlobalRange returns the union of all trace ranges.
func (s *Store) GlobalRange() (model.Interval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, points := range s.traces {
		if len(points) == 0 {
			continue
		}
		pStart := points[0].Timestamp
		pEnd := points[len(points)-1].Timestamp

		if first || pStart.Before(start) {
			start = pStart
		}
		if first || pEnd.After(end) {
			end = pEnd
		}
		first = false
	}

	if first {
		return model.Interval{}, false
	}
	return model.Interval{Start: start, End: end}, true
}

// PointsInRange returns points with start < stamp <= end, the period-ending
// window convention used everywhere else.
func (s *Store) PointsInRange(name string, start, end time.Time) model.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.traces[name]
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp.After(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp.After(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make(model.Trace, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}
