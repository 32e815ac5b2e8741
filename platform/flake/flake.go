package flake

import (
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

var (
	mu     sync.Mutex
	flakes = map[string]*sonyflake.Sonyflake{}
)

// NextID returns the next safe to use ID for the given namespace. IDs are
// unique per process and sortable by creation time, which makes them fit for
// request correlation across log lines.
func NextID(namespace string) (uint64, error) {
	mu.Lock()

	f, ok := flakes[namespace]
	if !ok {
		var s sonyflake.Settings
		s.StartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		f = sonyflake.NewSonyflake(s)
		flakes[namespace] = f
	}

	mu.Unlock()

	return f.NextID()
}
