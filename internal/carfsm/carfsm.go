// Package carfsm implements the car's five-state door/motion automaton:
// Opening, Open, Closing, Closed, and Between. It consumes the
// edge-triggered button flags and the destination floor written by the
// network agent, and advances the car's shared state under the region's
// mutex, broadcasting on every material change.
package carfsm

import (
	"context"
	"fmt"
	"time"

	"github.com/liftgrid/liftgrid/internal/carstate"
	"github.com/liftgrid/liftgrid/internal/floor"
)

const (
	// openPollInterval bounds how often the Open state re-checks its
	// hold timer; kept short to stay responsive to the open button.
	openPollInterval = 10 * time.Millisecond

	// closedWaitInterval bounds the idle wait while Closed with
	// nothing to do.
	closedWaitInterval = 50 * time.Millisecond
)

// Machine drives one car's shared-state region through its state
// machine. It is not safe for concurrent use by more than one goroutine;
// a car process runs exactly one Machine.
type Machine struct {
	region  *carstate.Region
	lowest  int
	highest int
	delay   time.Duration

	stateEnteredAt time.Time
	openStart      time.Time
}

// New returns a Machine bounded to [lowest, highest] on the floor axis,
// driving transitions at the given per-state delay.
func New(region *carstate.Region, lowest, highest int, delay time.Duration) *Machine {
	now := time.Now()
	return &Machine{
		region:         region,
		lowest:         lowest,
		highest:        highest,
		delay:          delay,
		stateEnteredAt: now,
		openStart:      now,
	}
}

// Init places a freshly created region into its initial state: Closed
// at lowestLabel, with current and destination floors equal.
func Init(region *carstate.Region, lowestLabel string) error {
	return region.WithLock(func(s *carstate.State) bool {
		s.CurrentFloor = lowestLabel
		s.DestinationFloor = lowestLabel
		s.Status = carstate.StatusClosed
		return true
	})
}

// Run drives the machine until ctx is canceled. Each pass ticks the
// state machine once, then waits on the region's broadcast substitute
// for a bounded interval so button and destination changes are
// observed promptly.
func (m *Machine) Run(ctx context.Context) error {
	lastGen, err := m.region.Generation()
	if err != nil {
		return fmt.Errorf("carfsm: read initial generation: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		status, err := m.tick(time.Now())
		if err != nil {
			return fmt.Errorf("carfsm: tick: %w", err)
		}

		wait := openPollInterval
		if status == carstate.StatusClosed {
			wait = closedWaitInterval
		}

		gen, _ := m.region.WaitForChange(ctx, lastGen, wait)
		lastGen = gen
	}
}

// tick runs one pass of the state machine and returns the status after
// the pass, for the caller's wait-interval selection.
func (m *Machine) tick(now time.Time) (string, error) {
	var status string

	err := m.region.WithLock(func(s *carstate.State) bool {
		changed := m.consumeButtons(s, now)
		if m.advanceState(s, now) {
			changed = true
		}
		status = s.Status
		return changed
	})

	return status, err
}

// consumeButtons applies the edge-triggered open/close button handling.
// Both buttons are cleared unconditionally; the status transition (or
// re-hold reset) only applies in the states the spec names.
func (m *Machine) consumeButtons(s *carstate.State, now time.Time) bool {
	changed := false

	if s.OpenButton {
		s.OpenButton = false
		changed = true
		switch s.Status {
		case carstate.StatusClosed, carstate.StatusClosing:
			m.enterState(s, carstate.StatusOpening, now)
		case carstate.StatusOpen:
			m.openStart = now
		}
	}

	if s.CloseButton {
		s.CloseButton = false
		changed = true
		if s.Status == carstate.StatusOpen {
			m.enterState(s, carstate.StatusClosing, now)
		}
	}

	return changed
}

// advanceState runs the per-state expiry/transition logic and reports
// whether it produced a material change.
func (m *Machine) advanceState(s *carstate.State, now time.Time) bool {
	switch s.Status {
	case carstate.StatusOpening:
		if now.Sub(m.stateEnteredAt) >= m.delay {
			m.openStart = now
			m.enterState(s, carstate.StatusOpen, now)
			return true
		}

	case carstate.StatusOpen:
		if now.Sub(m.openStart) >= m.delay {
			if s.IndividualServiceMode {
				return false
			}
			m.enterState(s, carstate.StatusClosing, now)
			return true
		}

	case carstate.StatusClosing:
		if now.Sub(m.stateEnteredAt) >= m.delay {
			m.enterState(s, carstate.StatusClosed, now)
			return true
		}

	case carstate.StatusClosed:
		return m.advanceClosed(s, now)

	case carstate.StatusBetween:
		if now.Sub(m.stateEnteredAt) >= m.delay {
			return m.advanceBetween(s, now)
		}
	}

	return false
}

// advanceClosed implements the Closed state's expiry rule: move to
// Between if a valid destination is pending, or snap an out-of-range
// destination back to the current floor.
func (m *Machine) advanceClosed(s *carstate.State, now time.Time) bool {
	cur, err := floor.Parse(s.CurrentFloor)
	if err != nil {
		return false
	}
	dst, err := floor.Parse(s.DestinationFloor)
	if err != nil {
		return false
	}

	if !floor.InRange(dst.Axis, m.lowest, m.highest) {
		if s.DestinationFloor == s.CurrentFloor {
			return false
		}
		s.DestinationFloor = s.CurrentFloor
		return true
	}

	if cur.Axis == dst.Axis || s.EmergencyMode {
		return false
	}

	m.enterState(s, carstate.StatusBetween, now)
	return true
}

// advanceBetween implements the Between state's expiry rule: step the
// current floor one unit towards the destination, and land in Opening
// or Closed depending on service mode once arrived.
func (m *Machine) advanceBetween(s *carstate.State, now time.Time) bool {
	cur, err := floor.Parse(s.CurrentFloor)
	if err != nil {
		return false
	}
	dst, err := floor.Parse(s.DestinationFloor)
	if err != nil {
		return false
	}

	next, err := floor.StepTowards(cur.Axis, dst.Axis, m.lowest, m.highest)
	if err != nil {
		return false
	}

	s.CurrentFloor = floor.Render(next, next < 0)

	if next == dst.Axis {
		if s.IndividualServiceMode {
			m.enterState(s, carstate.StatusClosed, now)
		} else {
			m.enterState(s, carstate.StatusOpening, now)
		}
	} else {
		m.stateEnteredAt = now
	}

	return true
}

// enterState sets s.Status and resets the local state-entry clock used
// to time the next expiry.
func (m *Machine) enterState(s *carstate.State, status string, now time.Time) {
	s.Status = status
	m.stateEnteredAt = now
}
