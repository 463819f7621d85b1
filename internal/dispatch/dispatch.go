package dispatch

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/liftgrid/liftgrid/internal/floor"
	"github.com/liftgrid/liftgrid/internal/logx"
	"github.com/liftgrid/liftgrid/internal/wire"
)

// Status literals mirror carstate's, as received over STATUS frames;
// the dispatcher never maps a car's floor region itself.
const (
	StatusOpening = "Opening"
	StatusOpen    = "Open"
	StatusClosing = "Closing"
	StatusClosed  = "Closed"
	StatusBetween = "Between"
)

// DefaultAddr is the dispatcher's listen address per the wire protocol
// spec.
const DefaultAddr = "127.0.0.1:3000"

// Metrics is the dispatcher's observability sink. It is defined here,
// at the point of use, so a caller can supply a no-op or a Prometheus
// implementation without this package depending on either.
type Metrics interface {
	SetRegisteredCars(n int)
	SetQueueDepth(car string, n int)
	IncCallsServed()
	IncCallsRejected()
}

// car is the dispatcher's fleet record for one registered car.
type car struct {
	name    string
	lowest  int
	highest int

	status      string
	current     int
	destination int

	connected bool
	conn      net.Conn

	queueAxis   []int
	queueLabels []string
}

// Dispatcher is the multi-client TCP server that tracks the fleet and
// routes passenger calls. A single mutex protects the car registry, all
// car entries, and all queues; client handlers run concurrently.
type Dispatcher struct {
	mu      sync.Mutex
	cars    map[string]*car
	addr    string
	metrics Metrics
}

// New returns a Dispatcher listening on addr. metrics may be nil; a nil
// Metrics means no observability overhead.
func New(addr string, metrics Metrics) *Dispatcher {
	return &Dispatcher{
		cars:    make(map[string]*car),
		addr:    addr,
		metrics: metrics,
	}
}

// ListenAndServe accepts connections until ctx is canceled. Each
// connection is handled by its own detached goroutine.
func (d *Dispatcher) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("dispatch: listen %s: %w", d.addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener until ctx is
// canceled. Tests use this to bind an ephemeral port directly.
func (d *Dispatcher) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("dispatch: accept: %w", err)
		}
		go d.handleConn(conn)
	}
}

// handleConn reads the first frame to determine the connection's role
// (a passenger call or a car registration) and dispatches accordingly.
func (d *Dispatcher) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	r := wire.NewReader(conn)

	payload, err := r.Receive()
	if err != nil {
		conn.Close()
		return
	}

	msg, err := wire.Parse(payload)
	if err != nil {
		wire.Send(conn, wire.Render(wire.Unavailable{}))
		conn.Close()
		return
	}

	switch m := msg.(type) {
	case wire.Register:
		d.serveCar(conn, r, m, connID)
	case wire.Call:
		defer conn.Close()
		d.serveCall(conn, m, connID)
	default:
		conn.Close()
	}
}

// serveCall handles a one-shot CALL connection: select a car, splice
// the request into its queue, and reply with the assignment.
func (d *Dispatcher) serveCall(conn net.Conn, call wire.Call, connID string) {
	src, err := floor.Parse(call.Source)
	if err != nil {
		wire.Send(conn, wire.Render(wire.Unavailable{}))
		d.incCallsRejected()
		return
	}
	dst, err := floor.Parse(call.Destination)
	if err != nil {
		wire.Send(conn, wire.Render(wire.Unavailable{}))
		d.incCallsRejected()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	chosen := d.findBestCarLocked(src.Axis, dst.Axis)
	if chosen == nil {
		d.incCallsRejectedLocked()
		logx.Info("call rejected", logx.ConnectionID(connID), logx.SourceFloor(call.Source), logx.DestFloor(call.Destination))
		wire.Send(conn, wire.Render(wire.Unavailable{}))
		return
	}

	d.spliceLocked(chosen, src.Axis, call.Source)
	d.spliceLocked(chosen, dst.Axis, call.Destination)
	d.incCallsServedLocked()

	logx.Info("call assigned", logx.ConnectionID(connID), logx.Car(chosen.name), logx.SourceFloor(call.Source), logx.DestFloor(call.Destination))
	wire.Send(conn, wire.Render(wire.CarAssigned{Name: chosen.name}))
}

// findBestCarLocked picks the connected car whose range covers both
// source and destination, minimizing ETA = |position - source| +
// queue length, tie-broken by smaller name. Callers must hold d.mu.
func (d *Dispatcher) findBestCarLocked(sourceAxis, destAxis int) *car {
	var best *car
	bestETA := 0

	names := make([]string, 0, len(d.cars))
	for name := range d.cars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := d.cars[name]
		if !c.connected {
			continue
		}
		if !floor.InRange(sourceAxis, c.lowest, c.highest) || !floor.InRange(destAxis, c.lowest, c.highest) {
			continue
		}

		pos := CarPosition(c.status, c.current, c.destination, c.lowest, c.highest)
		eta := abs(pos-sourceAxis) + len(c.queueAxis)

		if best == nil || eta < bestETA {
			best = c
			bestETA = eta
		}
	}

	return best
}

// spliceLocked inserts a floor into a car's queue and, if the head
// changed, sends the new FLOOR directive. Callers must hold d.mu.
func (d *Dispatcher) spliceLocked(c *car, floorAxis int, floorLabel string) {
	prevHead := ""
	if len(c.queueLabels) > 0 {
		prevHead = c.queueLabels[0]
	}

	pos := CarPosition(c.status, c.current, c.destination, c.lowest, c.highest)
	c.queueAxis, c.queueLabels = Insert(c.current, c.destination, pos, c.queueAxis, c.queueLabels, floorAxis, floorLabel)

	newHead := ""
	if len(c.queueLabels) > 0 {
		newHead = c.queueLabels[0]
	}

	if d.metrics != nil {
		d.metrics.SetQueueDepth(c.name, len(c.queueLabels))
	}

	if newHead != "" && newHead != prevHead && c.conn != nil {
		wire.Send(c.conn, wire.Render(wire.FloorCmd{Label: newHead}))
	}
}

// serveCar handles a car's registration connection for its lifetime:
// find-or-create its fleet entry, then loop reading STATUS/EMERGENCY/
// INDIVIDUAL SERVICE frames until the connection closes.
func (d *Dispatcher) serveCar(conn net.Conn, r *wire.Reader, reg wire.Register, connID string) {
	defer conn.Close()

	lowest, err := floor.Parse(reg.Lowest)
	if err != nil {
		return
	}
	highest, err := floor.Parse(reg.Highest)
	if err != nil {
		return
	}

	d.mu.Lock()
	c := &car{
		name:        reg.Name,
		lowest:      lowest.Axis,
		highest:     highest.Axis,
		status:      StatusClosed,
		current:     lowest.Axis,
		destination: lowest.Axis,
		connected:   true,
		conn:        conn,
	}
	d.cars[reg.Name] = c
	d.logRegistration(reg, connID)
	if d.metrics != nil {
		d.metrics.SetRegisteredCars(len(d.cars))
	}
	d.mu.Unlock()

	for {
		payload, err := r.Receive()
		if err != nil {
			d.markDisconnected(reg.Name)
			return
		}

		msg, err := wire.Parse(payload)
		if err != nil {
			continue
		}

		switch v := msg.(type) {
		case wire.Status:
			d.applyStatus(reg.Name, v)
		case wire.Emergency, wire.ServiceNotice:
			d.markDisconnected(reg.Name)
			return
		}
	}
}

// applyStatus updates a car's tracked fields and, if it just announced
// Opening at the queue head, pops the head and issues the next FLOOR.
func (d *Dispatcher) applyStatus(name string, st wire.Status) {
	current, err := floor.Parse(st.Current)
	if err != nil {
		return
	}
	destination, err := floor.Parse(st.Destination)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.cars[name]
	if !ok {
		return
	}

	c.status = st.Status
	c.current = current.Axis
	c.destination = destination.Axis

	if st.Status == StatusOpening && len(c.queueLabels) > 0 && c.queueLabels[0] == st.Current {
		c.queueAxis = c.queueAxis[1:]
		c.queueLabels = c.queueLabels[1:]

		if d.metrics != nil {
			d.metrics.SetQueueDepth(c.name, len(c.queueLabels))
		}

		if len(c.queueLabels) > 0 && c.conn != nil {
			wire.Send(c.conn, wire.Render(wire.FloorCmd{Label: c.queueLabels[0]}))
		}
	}
}

// markDisconnected marks a car disconnected and clears its queue,
// retaining its identity for re-registration.
func (d *Dispatcher) markDisconnected(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.cars[name]
	if !ok {
		return
	}
	c.connected = false
	c.conn = nil
	c.queueAxis = nil
	c.queueLabels = nil

	if d.metrics != nil {
		d.metrics.SetQueueDepth(c.name, 0)
	}
}

func (d *Dispatcher) logRegistration(reg wire.Register, connID string) {
	logx.Info("car registered", logx.ConnectionID(connID), logx.Car(reg.Name), logx.LowestFloor(reg.Lowest), logx.HighestFloor(reg.Highest))
}

func (d *Dispatcher) incCallsServedLocked() {
	if d.metrics != nil {
		d.metrics.IncCallsServed()
	}
}

func (d *Dispatcher) incCallsRejected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.incCallsRejectedLocked()
}

func (d *Dispatcher) incCallsRejectedLocked() {
	if d.metrics != nil {
		d.metrics.IncCallsRejected()
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
