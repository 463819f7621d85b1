package carstate

import (
	"context"
	"testing"
	"time"
)

func TestCreateInitializesClosedState(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	s, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if s.Status != StatusClosed {
		t.Errorf("initial Status = %q, want %q", s.Status, StatusClosed)
	}
	if s.CurrentFloor != "" || s.DestinationFloor != "" {
		t.Errorf("initial floors should be empty, got %+v", s)
	}
	if s.Generation != 0 {
		t.Errorf("initial Generation = %d, want 0", s.Generation)
	}
}

func TestOpenAttachesToExistingRegion(t *testing.T) {
	owner, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer owner.Unlink()

	attacher, err := Open(t.Name())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer attacher.Close()

	err = owner.WithLock(func(s *State) bool {
		s.CurrentFloor = "7"
		return true
	})
	if err != nil {
		t.Fatalf("WithLock error: %v", err)
	}

	got, err := attacher.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if got.CurrentFloor != "7" {
		t.Errorf("attacher sees CurrentFloor = %q, want 7", got.CurrentFloor)
	}
}

func TestWithLockBumpsGenerationOnlyWhenChanged(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	if err := r.WithLock(func(s *State) bool { return false }); err != nil {
		t.Fatalf("WithLock error: %v", err)
	}
	gen, err := r.Generation()
	if err != nil {
		t.Fatalf("Generation error: %v", err)
	}
	if gen != 0 {
		t.Errorf("Generation after no-op mutation = %d, want 0", gen)
	}

	if err := r.WithLock(func(s *State) bool {
		s.Status = StatusOpen
		return true
	}); err != nil {
		t.Fatalf("WithLock error: %v", err)
	}
	gen, err = r.Generation()
	if err != nil {
		t.Fatalf("Generation error: %v", err)
	}
	if gen != 1 {
		t.Errorf("Generation after material mutation = %d, want 1", gen)
	}
}

func TestWaitForChangeObservesMutation(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	startGen, err := r.Generation()
	if err != nil {
		t.Fatalf("Generation error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(20 * time.Millisecond)
		r.WithLock(func(s *State) bool {
			s.Status = StatusOpening
			return true
		})
	}()

	gen, changed := r.WaitForChange(context.Background(), startGen, time.Second)
	<-done

	if !changed {
		t.Fatal("expected WaitForChange to observe a change")
	}
	if gen == startGen {
		t.Errorf("WaitForChange returned unchanged generation %d", gen)
	}
}

func TestWaitForChangeTimesOut(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	startGen, _ := r.Generation()

	gen, changed := r.WaitForChange(context.Background(), startGen, 30*time.Millisecond)
	if changed {
		t.Error("expected WaitForChange to time out without a change")
	}
	if gen != startGen {
		t.Errorf("WaitForChange returned %d after timeout, want unchanged %d", gen, startGen)
	}
}

func TestWaitForChangeRespectsContextCancellation(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	startGen, _ := r.Generation()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, changed := r.WaitForChange(ctx, startGen, 5*time.Second)
	if changed {
		t.Error("expected no change on cancellation")
	}
	if time.Since(start) > time.Second {
		t.Error("WaitForChange did not return promptly after context cancellation")
	}
}

func TestUnlinkRemovesBackingFile(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	path := Path(t.Name())

	if err := r.Unlink(); err != nil {
		t.Fatalf("Unlink error: %v", err)
	}

	if _, err := Open(t.Name()); err == nil {
		t.Errorf("expected Open to fail after Unlink for path %s", path)
	}
}

func TestOperationsAfterCloseReturnErrClosed(t *testing.T) {
	r, err := Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	defer r.Unlink()

	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if _, err := r.Snapshot(); err != ErrClosed {
		t.Errorf("Snapshot after Close = %v, want ErrClosed", err)
	}
	if err := r.WithLock(func(s *State) bool { return false }); err != ErrClosed {
		t.Errorf("WithLock after Close = %v, want ErrClosed", err)
	}
}
