package counter

import (
	"sync"
	"testing"
	"time"
)

func TestMemServiceIncr(t *testing.T) {
	var (
		key     = "signup:ip:203.0.113.7"
		service = MemService()
		window  = time.Minute
	)

	for i := 1; i <= 5; i++ {
		count, _, err := service.Incr(key, window)
		if err != nil {
			t.Fatalf("incr failed: %s", err)
		}

		if have, want := count, i; have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func TestMemServiceIncrIndependentKeys(t *testing.T) {
	service := MemService()

	for i := 0; i < 3; i++ {
		if _, _, err := service.Incr("signup:ip:a", time.Minute); err != nil {
			t.Fatalf("incr failed: %s", err)
		}
	}

	count, _, err := service.Incr("signup:email:a", time.Minute)
	if err != nil {
		t.Fatalf("incr failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemServiceWindowReset(t *testing.T) {
	var (
		key     = "signup:ip:reset"
		service = MemService()
		window  = 50 * time.Millisecond
	)

	for i := 0; i < 4; i++ {
		if _, _, err := service.Incr(key, window); err != nil {
			t.Fatalf("incr failed: %s", err)
		}
	}

	time.Sleep(2 * window)

	count, _, err := service.Incr(key, window)
	if err != nil {
		t.Fatalf("incr failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemServiceIncrConcurrent(t *testing.T) {
	var (
		key     = "signup:global:all"
		rounds  = 100
		service = MemService()
		wg      sync.WaitGroup
	)

	for i := 0; i < rounds; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, _, err := service.Incr(key, time.Minute); err != nil {
				t.Errorf("incr failed: %s", err)
			}
		}()
	}

	wg.Wait()

	count, _, err := service.Peek(key)
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, rounds; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemServicePeek(t *testing.T) {
	var (
		key     = "signup:ip:peek"
		service = MemService()
	)

	count, resetAt, err := service.Peek(key)
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if !resetAt.IsZero() {
		t.Errorf("have %v, want zero time", resetAt)
	}

	if _, _, err := service.Incr(key, time.Minute); err != nil {
		t.Fatalf("incr failed: %s", err)
	}

	count, _, err = service.Peek(key)
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	count, _, err = service.Peek(key)
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestMemServicePeekExpired(t *testing.T) {
	var (
		key     = "signup:ip:expired"
		service = MemService()
		window  = 30 * time.Millisecond
	)

	if _, _, err := service.Incr(key, window); err != nil {
		t.Fatalf("incr failed: %s", err)
	}

	time.Sleep(2 * window)

	count, _, err := service.Peek(key)
	if err != nil {
		t.Fatalf("peek failed: %s", err)
	}

	if have, want := count, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
