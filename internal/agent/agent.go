// Package agent implements the car's network agent (C6): it shadows the
// car's shared state to the dispatcher over a single TCP session,
// emitting status on change and applying dispatcher floor directives
// back into the shared region. It also carries the agent's half of the
// safety heartbeat protocol.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/liftgrid/liftgrid/internal/carstate"
	"github.com/liftgrid/liftgrid/internal/floor"
	"github.com/liftgrid/liftgrid/internal/wire"
)

// pollTimeout bounds how long a connected tick waits for an incoming
// FLOOR directive before moving on.
const pollTimeout = 10 * time.Millisecond

// Agent maintains the car's TCP session to the dispatcher. It is not
// safe for concurrent use; a car process runs exactly one Agent.
type Agent struct {
	region         *carstate.Region
	name           string
	lowest         string
	highest        string
	dispatcherAddr string
	delay          time.Duration

	conn     net.Conn
	lastSent string
}

// New returns an Agent for a car registered under name with floor range
// [lowest, highest], dialing dispatcherAddr on connect.
func New(region *carstate.Region, name, lowest, highest, dispatcherAddr string, delay time.Duration) *Agent {
	return &Agent{
		region:         region,
		name:           name,
		lowest:         lowest,
		highest:        highest,
		dispatcherAddr: dispatcherAddr,
		delay:          delay,
	}
}

// Run drives the agent until ctx is canceled, ticking at a cadence
// governed by the car's own delay via the region's broadcast
// substitute so a state change promptly wakes the next tick.
func (a *Agent) Run(ctx context.Context) error {
	defer a.closeConn()

	lastGen, err := a.region.Generation()
	if err != nil {
		return fmt.Errorf("agent: read initial generation: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		a.tick()

		gen, _ := a.region.WaitForChange(ctx, lastGen, a.delay)
		lastGen = gen
	}
}

// tick runs one connect/disconnect decision and, if connected, one
// status-emit/poll/heartbeat pass.
func (a *Agent) tick() {
	s, err := a.region.Snapshot()
	if err != nil {
		return
	}

	shouldConnect := s.SafetySystem > 0 && s.SafetySystem < 3 &&
		!s.IndividualServiceMode && !s.EmergencyMode

	switch {
	case shouldConnect && a.conn == nil:
		a.connect()
	case !shouldConnect && a.conn != nil:
		a.disconnect(s.IndividualServiceMode)
	}

	if a.conn == nil {
		return
	}

	a.emitStatus(s)
	a.pollFloorCommand()
	a.serviceHeartbeat()
}

// connect dials the dispatcher and registers the car. A dial failure
// leaves the agent disconnected; it retries on the next tick.
func (a *Agent) connect() {
	conn, err := net.Dial("tcp", a.dispatcherAddr)
	if err != nil {
		return
	}
	a.conn = conn
	a.lastSent = ""

	wire.Send(conn, wire.Render(wire.Register{Name: a.name, Lowest: a.lowest, Highest: a.highest}))
}

// disconnect closes the dispatcher session. If the reason is entry
// into individual service mode, it announces that before closing.
func (a *Agent) disconnect(serviceMode bool) {
	if serviceMode {
		wire.Send(a.conn, wire.Render(wire.ServiceNotice{}))
	}
	a.closeConn()
}

func (a *Agent) closeConn() {
	if a.conn == nil {
		return
	}
	a.conn.Close()
	a.conn = nil
}

// emitStatus composes the car's status line and transmits it only if
// it differs from the last one sent.
func (a *Agent) emitStatus(s carstate.State) {
	status := wire.Render(wire.Status{Status: s.Status, Current: s.CurrentFloor, Destination: s.DestinationFloor})
	if status == a.lastSent {
		return
	}
	if err := wire.Send(a.conn, status); err != nil {
		a.closeConn()
		return
	}
	a.lastSent = status
}

// pollFloorCommand waits briefly for an incoming FLOOR directive and
// applies it to the shared region. A transport failure disconnects
// immediately; a timeout with nothing to read is not an error.
func (a *Agent) pollFloorCommand() {
	if a.conn == nil {
		return
	}

	a.conn.SetReadDeadline(time.Now().Add(pollTimeout))
	payload, err := wire.Receive(a.conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		a.closeConn()
		return
	}

	msg, err := wire.Parse(payload)
	if err != nil {
		return
	}
	cmd, ok := msg.(wire.FloorCmd)
	if !ok {
		return
	}

	if _, err := floor.Parse(cmd.Label); err != nil {
		return
	}

	a.region.WithLock(func(s *carstate.State) bool {
		if s.Status == carstate.StatusBetween {
			return false
		}
		if cmd.Label == s.CurrentFloor {
			if s.Status == carstate.StatusClosed {
				s.Status = carstate.StatusOpening
				return true
			}
			return false
		}
		if s.DestinationFloor == cmd.Label {
			return false
		}
		s.DestinationFloor = cmd.Label
		return true
	})
}

// serviceHeartbeat increments the shared safety_system counter,
// saturating at 3. Reaching 3 means no safety monitor has serviced the
// region between two agent ticks: the agent declares emergency,
// notifies the dispatcher, and tears down its session.
func (a *Agent) serviceHeartbeat() {
	emergency := false

	a.region.WithLock(func(s *carstate.State) bool {
		if s.SafetySystem >= 3 {
			return false
		}
		s.SafetySystem++
		if s.SafetySystem >= 3 {
			s.EmergencyMode = true
			emergency = true
		}
		return true
	})

	if !emergency {
		return
	}

	if a.conn != nil {
		wire.Send(a.conn, wire.Render(wire.Emergency{}))
	}
	a.closeConn()
	fmt.Println("safety: disconnected, no monitor servicing this car")
}
