package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/kit/log"

	"github.com/ayoomidimeji/lariyu/platform/counter"
)

func testPipeline(counters counter.Service, ipMax, emailMax int) *Pipeline {
	return NewPipeline(
		nil,
		[]string{"/health"},
		New(counters, Config{
			KeyFunc: ByAddr(),
			Max:     ipMax,
			Scope:   "signup",
			Window:  time.Minute,
		}, log.NewNopLogger()),
		New(counters, Config{
			KeyFunc: ByEmail(),
			Max:     emailMax,
			Scope:   "signup",
			Window:  time.Minute,
		}, log.NewNopLogger()),
	)
}

func TestPipelineAdmit(t *testing.T) {
	var (
		counters = counter.MemService()
		pipeline = testPipeline(counters, 5, 10)
		r        = &Request{
			Addr:  "203.0.113.7",
			Email: "user@example.com",
			Path:  "/api/signup",
		}
	)

	d, err := pipeline.Admit(context.Background(), r)
	if err != nil {
		t.Fatalf("admit failed: %s", err)
	}

	if !d.Admitted {
		t.Error("have rejected, want admitted")
	}

	// Both dimensions consumed one increment each.
	count, _, err := counters.Peek("signup:addr:203.0.113.7")
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	count, _, err = counters.Peek("signup:email:user@example.com")
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPipelineShortCircuit(t *testing.T) {
	var (
		counters = counter.MemService()
		pipeline = testPipeline(counters, 2, 10)
		r        = &Request{
			Addr:  "203.0.113.7",
			Email: "user@example.com",
			Path:  "/api/signup",
		}
	)

	for i := 0; i < 6; i++ {
		if _, err := pipeline.Admit(context.Background(), r); err != nil {
			t.Fatalf("admit failed: %s", err)
		}
	}

	// The address guard rejected attempts 3 through 6, none of which may
	// have touched the email quota.
	count, _, err := counters.Peek("signup:email:user@example.com")
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 2; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	d, err := pipeline.Admit(context.Background(), r)
	if err != nil {
		t.Fatalf("admit failed: %s", err)
	}

	if d.Admitted {
		t.Error("have admitted, want rejected")
	}

	if have, want := d.Scope, "signup"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := string(d.Key), "signup:addr:203.0.113.7"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPipelineReportsTightestQuota(t *testing.T) {
	var (
		counters = counter.MemService()
		pipeline = testPipeline(counters, 100, 3)
		r        = &Request{
			Addr:  "203.0.113.7",
			Email: "user@example.com",
		}
	)

	d, err := pipeline.Admit(context.Background(), r)
	if err != nil {
		t.Fatalf("admit failed: %s", err)
	}

	if have, want := d.Limit, 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := d.Remaining, 2; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestPipelineMissingInput(t *testing.T) {
	var (
		counters = counter.MemService()
		pipeline = testPipeline(counters, 5, 10)
	)

	_, err := pipeline.Admit(context.Background(), &Request{Addr: "203.0.113.7"})
	if !IsMissingKeyInput(err) {
		t.Errorf("have %v, want missing key input", err)
	}
}

func TestPipelineBypassed(t *testing.T) {
	pipeline := testPipeline(counter.MemService(), 5, 10)

	if !pipeline.Bypassed("/health") {
		t.Error("have guarded, want bypassed")
	}

	if pipeline.Bypassed("/api/signup") {
		t.Error("have bypassed, want guarded")
	}
}

func TestPipelineSlowDownIndependentScope(t *testing.T) {
	var (
		counters = counter.MemService()

		slow = NewSlowDown(counters, SlowConfig{
			BaseDelay: time.Millisecond,
			KeyFunc:   ByAddr(),
			MaxDelay:  2 * time.Millisecond,
			Scope:     "slowdown",
			Threshold: 100,
			Window:    time.Minute,
		}, log.NewNopLogger())

		pipeline = NewPipeline(
			slow,
			nil,
			New(counters, Config{
				KeyFunc: ByAddr(),
				Max:     5,
				Scope:   "signup",
				Window:  time.Minute,
			}, log.NewNopLogger()),
		)

		r = &Request{Addr: "203.0.113.7"}
	)

	for i := 0; i < 3; i++ {
		if _, err := pipeline.Admit(context.Background(), r); err != nil {
			t.Fatalf("admit failed: %s", err)
		}
	}

	slowCount, _, err := counters.Peek("slowdown:addr:203.0.113.7")
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	admitCount, _, err := counters.Peek("signup:addr:203.0.113.7")
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := slowCount, 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := admitCount, 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
