package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedLocksSerializeSameKey(t *testing.T) {
	k := newKeyedLocks()
	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.acquire(context.Background(), "s1")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			active++
			maxActive = max(maxActive, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxActive)
	}
	if k.size() != 0 {
		t.Fatalf("locks not released: %d", k.size())
	}
}

func TestKeyedLocksIndependentKeys(t *testing.T) {
	k := newKeyedLocks()
	r1, err := k.acquire(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := k.acquire(ctx, "b")
	if err != nil {
		t.Fatalf("different key should not block: %v", err)
	}
	r2()
}

func TestKeyedLocksContextCancel(t *testing.T) {
	k := newKeyedLocks()
	release, err := k.acquire(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := k.acquire(ctx, "s1"); err == nil {
		t.Fatal("expected context error while lock is held")
	}

	release()
	if k.size() != 0 {
		t.Fatalf("waiter refcount leaked: %d", k.size())
	}
}
