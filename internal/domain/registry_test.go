package domain

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newJob(gid string, owner int64) *Job {
	return &Job{GID: gid, Owner: owner, Name: gid, Conversation: 1, State: StatePreparing}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry(5)

	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(newJob("g1", 2)); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("Register duplicate error = %v, want ErrDuplicateJob", err)
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry(5)

	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.Unregister("g1")
	if r.ActiveCount(1) != 0 {
		t.Errorf("ActiveCount after unregister = %d, want 0", r.ActiveCount(1))
	}

	// Second unregister is a no-op
	r.Unregister("g1")
	if r.ActiveCount(1) != 0 || r.Len() != 0 {
		t.Errorf("registry not back to prior state after double unregister")
	}

	// The slot is free again
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Errorf("Register after unregister error = %v", err)
	}
}

func TestRegistry_ReserveEnforcesLimit(t *testing.T) {
	r := NewRegistry(2)

	if err := r.Reserve(1); err != nil {
		t.Fatalf("first Reserve() error = %v", err)
	}
	if err := r.Reserve(1); err != nil {
		t.Fatalf("second Reserve() error = %v", err)
	}
	if err := r.Reserve(1); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("third Reserve() error = %v, want ErrLimitExceeded", err)
	}

	// A different owner is unaffected
	if err := r.Reserve(2); err != nil {
		t.Errorf("Reserve for other owner error = %v", err)
	}

	// Registering consumes the reservation, count stays at the limit
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Reserve(1); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("Reserve after register error = %v, want ErrLimitExceeded", err)
	}
}

func TestRegistry_ReleaseFreesSlot(t *testing.T) {
	r := NewRegistry(1)

	if err := r.Reserve(1); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if err := r.Reserve(1); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("Reserve at limit error = %v, want ErrLimitExceeded", err)
	}
	r.Release(1)
	if err := r.Reserve(1); err != nil {
		t.Errorf("Reserve after release error = %v", err)
	}
}

func TestRegistry_ConcurrentReserveNeverExceedsLimit(t *testing.T) {
	const limit = 5
	const attempts = 100
	r := NewRegistry(limit)

	var wg sync.WaitGroup
	granted := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Reserve(7); err != nil {
				return
			}
			gid := fmt.Sprintf("g%d", i)
			if err := r.Register(newJob(gid, 7)); err != nil {
				t.Errorf("Register(%s) error = %v", gid, err)
				return
			}
			granted <- gid
		}(i)
	}
	wg.Wait()
	close(granted)

	var count int
	for range granted {
		count++
	}
	if count != limit {
		t.Errorf("registered %d jobs under concurrent submit, want exactly %d", count, limit)
	}
	if r.ActiveCount(7) != limit {
		t.Errorf("ActiveCount = %d, want %d", r.ActiveCount(7), limit)
	}
}

func TestRegistry_ActiveReturnsSnapshots(t *testing.T) {
	r := NewRegistry(5)
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	jobs := r.Active(1)
	if len(jobs) != 1 {
		t.Fatalf("Active() returned %d jobs, want 1", len(jobs))
	}

	r.SetName("g1", "real-name.iso")
	if jobs[0].Name == "real-name.iso" {
		t.Error("snapshot observed a later mutation")
	}
	if got := r.Get("g1").Name; got != "real-name.iso" {
		t.Errorf("Get after SetName = %q, want %q", got, "real-name.iso")
	}
}

func TestRegistry_SetMessage(t *testing.T) {
	r := NewRegistry(5)
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.SetMessage("g1", MessageRef(7))
	if got := r.Get("g1").Message; got != 7 {
		t.Errorf("Message = %d, want 7", got)
	}

	r.SetMessage("absent", MessageRef(9))
}

func TestRegistry_SetStateTerminalAbsorbing(t *testing.T) {
	r := NewRegistry(5)
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	r.SetState("g1", StateActive)
	r.SetState("g1", StateCompleted)
	r.SetState("g1", StateActive)

	if got := r.Get("g1").State; got != StateCompleted {
		t.Errorf("State = %q, want terminal %q to absorb", got, StateCompleted)
	}
}

func TestRegistry_ClearAndFailedSet(t *testing.T) {
	r := NewRegistry(5)
	if err := r.Register(newJob("g1", 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.RecordFailure(newJob("g2", 1), "disk full")

	if len(r.FailedJobs()) != 1 {
		t.Fatalf("FailedJobs() = %d records, want 1", len(r.FailedJobs()))
	}

	r.Clear()
	r.ClearFailed()

	if r.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", r.Len())
	}
	if len(r.FailedJobs()) != 0 {
		t.Errorf("FailedJobs after ClearFailed = %d, want 0", len(r.FailedJobs()))
	}
}

func TestRegistry_RemoveFailed(t *testing.T) {
	r := NewRegistry(5)
	r.RecordFailure(newJob("g1", 1), "timeout")
	r.RemoveFailed("g1")
	if len(r.FailedJobs()) != 0 {
		t.Errorf("FailedJobs after RemoveFailed = %d, want 0", len(r.FailedJobs()))
	}
}
