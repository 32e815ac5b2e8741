package limiter

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/ayoomidimeji/lariyu/platform/counter"
)

// SlowConfig carries the immutable parameters of one SlowDown stage.
type SlowConfig struct {
	BaseDelay time.Duration
	KeyFunc   KeyFunc
	MaxDelay  time.Duration
	Scope     string
	Threshold int
	Window    time.Duration
}

// SlowDown postpones requests instead of rejecting them. Hits beyond the
// free threshold pay an exponentially growing delay up to a hard ceiling.
// It counts hits under its own key scope, independent of admission quotas.
type SlowDown struct {
	cfg      SlowConfig
	counters counter.Service
	logger   log.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewSlowDown returns a SlowDown stage backed by the given counter Service.
func NewSlowDown(counters counter.Service, cfg SlowConfig, logger log.Logger) *SlowDown {
	return &SlowDown{
		cfg:      cfg,
		counters: counters,
		logger: log.With(logger,
			"limiter", cfg.Scope,
		),
		sleep: sleep,
	}
}

// Config returns the immutable configuration of the SlowDown stage.
func (s *SlowDown) Config() SlowConfig {
	return s.cfg
}

// Delay computes the pause for the given in-window hit count. It is
// monotonically non-decreasing in hits and never exceeds MaxDelay.
func (s *SlowDown) Delay(hits int) time.Duration {
	exceeded := hits - s.cfg.Threshold

	if exceeded <= 0 {
		return 0
	}

	shift := uint(exceeded - 1)
	if shift > 32 {
		return s.cfg.MaxDelay
	}

	d := s.cfg.BaseDelay << shift
	if d > s.cfg.MaxDelay || d < 0 {
		d = s.cfg.MaxDelay
	}

	return d
}

// Wait counts one hit for the request and suspends it for the computed
// delay. A store failure skips the delay, slowing down is best-effort and
// never turns into an outage.
func (s *SlowDown) Wait(ctx context.Context, r *Request) (time.Duration, error) {
	dimension, value, err := s.cfg.KeyFunc(r)
	if err != nil {
		return 0, err
	}

	key := FormatKey(s.cfg.Scope, dimension, value)

	hits, _, err := s.counters.Incr(string(key), s.cfg.Window)
	if err != nil {
		_ = s.logger.Log(
			"err", err,
			"level", "warn",
			"msg", "slowdown hit count unavailable, skipping delay",
		)

		return 0, nil
	}

	delay := s.Delay(hits)
	if delay == 0 {
		return 0, nil
	}

	if err := s.sleep(ctx, delay); err != nil {
		return delay, err
	}

	return delay, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
