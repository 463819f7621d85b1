package safetymon

import (
	"testing"

	"github.com/liftgrid/liftgrid/internal/carstate"
)

func newTestMonitor(t *testing.T, lowest, highest int) (*Monitor, *carstate.Region) {
	t.Helper()
	region, err := carstate.Create(t.Name())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	t.Cleanup(func() { region.Unlink() })

	region.WithLock(func(s *carstate.State) bool {
		s.CurrentFloor = "3"
		s.DestinationFloor = "3"
		s.Status = carstate.StatusClosed
		return true
	})

	return New(region, lowest, highest), region
}

func TestTickServicesHeartbeatFromZero(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.SafetySystem = 0
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if s.SafetySystem != 1 {
		t.Errorf("SafetySystem = %d, want 1", s.SafetySystem)
	}
}

func TestTickLeavesElevatedHeartbeatCountAlone(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.SafetySystem = 2
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if s.SafetySystem != 2 {
		t.Errorf("SafetySystem = %d, want left at 2 (only reset from 0)", s.SafetySystem)
	}
}

func TestTickReopensOnObstructionWhileClosing(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.Status = carstate.StatusClosing
		s.DoorObstruction = true
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if s.Status != carstate.StatusOpening {
		t.Errorf("Status = %q, want Opening after obstruction", s.Status)
	}
}

func TestTickLatchesEmergencyOnEmergencyStop(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.EmergencyStop = true
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if !s.EmergencyMode {
		t.Error("expected EmergencyMode to be set")
	}
	if s.EmergencyStop {
		t.Error("expected EmergencyStop to be cleared")
	}
}

func TestTickLatchesEmergencyOnOverload(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.Overload = true
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if !s.EmergencyMode {
		t.Error("expected EmergencyMode to be set on overload")
	}
}

func TestTickLatchesEmergencyOnInvalidStatus(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.Status = "Bogus"
		return true
	})

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	s, _ := region.Snapshot()
	if !s.EmergencyMode {
		t.Error("expected EmergencyMode to be set on invalid status")
	}
}

func TestTickDoesNotRelatchWhileAlreadyEmergency(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.EmergencyMode = true
		s.Overload = true
		return true
	})

	genBefore, _ := region.Generation()
	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}
	genAfter, _ := region.Generation()

	// SafetySystem servicing still bumps the generation even though
	// emergency mode is already latched, so only check Overload is
	// left untouched rather than asserting no change at all.
	_ = genBefore
	_ = genAfter

	s, _ := region.Snapshot()
	if !s.Overload {
		t.Error("expected Overload to remain set once already in emergency mode")
	}
}

func TestTickNoChangeWhenNothingToDo(t *testing.T) {
	m, region := newTestMonitor(t, 1, 10)
	region.WithLock(func(s *carstate.State) bool {
		s.SafetySystem = 1
		return true
	})
	genBefore, _ := region.Generation()

	if err := m.tick(); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	genAfter, _ := region.Generation()
	if genAfter != genBefore {
		t.Errorf("generation changed from %d to %d with nothing to service", genBefore, genAfter)
	}
}
