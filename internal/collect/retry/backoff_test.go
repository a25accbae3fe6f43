package retry

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Sequence(t *testing.T) {
	b := NewBackoff(60*time.Second, 3)

	// 60s -> 120s -> 240s
	d, ok := b.Next()
	if !ok || d != 60*time.Second {
		t.Errorf("expected 60s, got %v (ok=%v)", d, ok)
	}
	d, ok = b.Next()
	if !ok || d != 120*time.Second {
		t.Errorf("expected 120s, got %v (ok=%v)", d, ok)
	}
	d, ok = b.Next()
	if !ok || d != 240*time.Second {
		t.Errorf("expected 240s, got %v (ok=%v)", d, ok)
	}

	// Fourth consecutive rate limit exhausts the step budget.
	if _, ok := b.Next(); ok {
		t.Error("expected step budget exhausted")
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(60*time.Second, 3)
	b.Next()
	b.Next()
	b.Reset()

	d, ok := b.Next()
	if !ok || d != 60*time.Second {
		t.Errorf("expected 60s after reset, got %v (ok=%v)", d, ok)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	d, ok := b.Next()
	if !ok || d != DefaultInitialBackoff {
		t.Errorf("expected default initial backoff, got %v", d)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Wait(ctx, 10*time.Second)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly on cancel")
	}
}

func TestWait_Zero(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("zero wait failed: %v", err)
	}
}
