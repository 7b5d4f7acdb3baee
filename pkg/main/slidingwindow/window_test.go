package slidingwindow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	lim := NewLimiter(time.Minute, 3)

	for i := range 3 {
		if ok, _ := lim.Allow(); !ok {
			t.Fatalf("call %d denied", i)
		}
	}
	ok, wait := lim.Allow()
	if ok {
		t.Fatal("fourth call allowed")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("unexpected wait %v", wait)
	}
}

func TestWindowRollsOver(t *testing.T) {
	lim := NewLimiter(30*time.Millisecond, 1)

	if ok, _ := lim.Allow(); !ok {
		t.Fatal("first call denied")
	}
	if ok, _ := lim.Allow(); ok {
		t.Fatal("second call allowed inside window")
	}
	time.Sleep(50 * time.Millisecond)
	if ok, _ := lim.Allow(); !ok {
		t.Fatal("call after window denied")
	}
}

func TestDisabledLimiter(t *testing.T) {
	lim := NewLimiter(time.Minute, 0)
	for range 100 {
		if ok, _ := lim.Allow(); !ok {
			t.Fatal("disabled limiter denied a call")
		}
	}

	var nilLim *Limiter
	if ok, _ := nilLim.Allow(); !ok {
		t.Fatal("nil limiter denied a call")
	}
}

func TestWaitTill(t *testing.T) {
	lim := NewLimiter(time.Minute, 10)
	lim.WaitTill(time.Now().Add(time.Hour))

	ok, wait := lim.Allow()
	if ok {
		t.Fatal("call allowed while blocked")
	}
	if wait < 59*time.Minute {
		t.Errorf("wait = %v, want about an hour", wait)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	lim := NewLimiter(time.Hour, 1)
	lim.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := lim.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestWaitReturnsAfterRollover(t *testing.T) {
	lim := NewLimiter(20*time.Millisecond, 1)
	lim.Allow()

	start := time.Now()
	if err := lim.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait returned before the window rolled over")
	}
}

func TestConcurrentAllowNeverExceedsMax(t *testing.T) {
	const (
		goroutines = 50
		iterations = 20
		max        = 7
	)
	lim := NewLimiter(time.Hour, max)

	var allowed int64
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				if ok, _ := lim.Allow(); ok {
					atomic.AddInt64(&allowed, 1)
				}
			}
		}()
	}
	wg.Wait()

	if allowed != max {
		t.Errorf("allowed %d events, want %d", allowed, max)
	}
}

func BenchmarkLimiter(b *testing.B) {
	limiter := NewLimiter(100*time.Millisecond, 10)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow()
		}
	})
}
