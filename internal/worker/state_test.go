package worker

import (
	"sync"
	"testing"
)

// --- State Tests ---

func TestStateSnapshot(t *testing.T) {
	s := NewState()
	s.SetThreadStatus("thread-2", "Crawling https://example.com")
	s.SetThreadStatus("thread-1", StatusWaiting)
	s.SetThreadStatus("thread-3", "Indexing https://example.org")
	s.IncrementURLs()
	s.IncrementURLs()

	count, active, threads := s.Snapshot()
	if count != 2 {
		t.Errorf("expected url count 2, got %d", count)
	}
	if active != 2 {
		t.Errorf("expected 2 active threads, got %d", active)
	}
	if len(threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(threads))
	}
	for i, want := range []string{"thread-1", "thread-2", "thread-3"} {
		if threads[i].ID != want {
			t.Errorf("expected sorted thread ids, got %v", threads)
			break
		}
	}
}

func TestStateStatusTransitions(t *testing.T) {
	s := NewState()
	s.SetThreadStatus("thread-1", StatusWaiting)
	s.SetThreadStatus("thread-1", "Crawling https://example.com")
	s.SetThreadStatus("thread-1", StatusIdle)

	_, active, threads := s.Snapshot()
	if active != 0 {
		t.Errorf("idle thread counted as active")
	}
	if threads[0].Status != StatusIdle {
		t.Errorf("expected latest status, got %q", threads[0].Status)
	}
}

func TestStateStandbyNotActive(t *testing.T) {
	s := NewState()
	s.SetThreadStatus("thread-1", StatusStandby)

	_, active, _ := s.Snapshot()
	if active != 0 {
		t.Error("standby thread must not count as active")
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.IncrementURLs()
			s.SetThreadStatus("thread-1", StatusWaiting)
			s.Snapshot()
		}()
	}
	wg.Wait()

	if got := s.URLCount(); got != 50 {
		t.Errorf("expected 50 increments, got %d", got)
	}
}
