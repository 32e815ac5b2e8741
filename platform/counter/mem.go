package counter

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

type memService struct {
	mu      sync.Mutex
	windows map[string]*window
}

// MemService returns a memory based Service implementation. Counters are
// local to the process, lost on restart and not shared across instances,
// which under-counts true traffic in multi-instance deployments.
func MemService() Service {
	return &memService{
		windows: map[string]*window{},
	}
}

func (s *memService) Incr(key string, windowSize time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{
			count:   1,
			resetAt: now.Add(windowSize),
		}
		s.windows[key] = w

		return w.count, w.resetAt, nil
	}

	w.count++

	return w.count, w.resetAt, nil
}

func (s *memService) Peek(key string) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return 0, time.Time{}, nil
	}

	if time.Now().After(w.resetAt) {
		delete(s.windows, key)

		return 0, time.Time{}, nil
	}

	return w.count, w.resetAt, nil
}
