// Package carstate implements the car's process-shared state region: the
// record the car state machine, the safety monitor, the network agent,
// and the manual-service tool all read and mutate.
//
// Go has no portable process-shared sync.Cond, so the region substitutes
// an flock(2)-guarded mutex and a generation counter that waiters poll
// after a bounded sleep, preserving a broadcast-on-change contract
// without a cross-process condvar.
package carstate

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by any operation on a Region after Close.
var ErrClosed = errors.New("carstate: region closed")

const (
	regionSize    = 64
	maxFloorBytes = 4
	maxStatusBytes = 8

	// pollInterval bounds how often WaitForChange re-checks the
	// generation counter against a bounded-deadline wait, not OS-level
	// wakeup latency.
	pollInterval = 5 * time.Millisecond
)

// Status literals for a car's state machine.
const (
	StatusOpening = "Opening"
	StatusOpen    = "Open"
	StatusClosing = "Closing"
	StatusClosed  = "Closed"
	StatusBetween = "Between"
)

// byte offsets within the fixed-size record.
const (
	offCurrentFloor     = 0
	offDestinationFloor = offCurrentFloor + maxFloorBytes
	offStatus           = offDestinationFloor + maxFloorBytes
	offOpenButton       = offStatus + maxStatusBytes
	offCloseButton      = offOpenButton + 1
	offDoorObstruction  = offCloseButton + 1
	offOverload         = offDoorObstruction + 1
	offEmergencyStop    = offOverload + 1
	offServiceMode      = offEmergencyStop + 1
	offEmergencyMode    = offServiceMode + 1
	offSafetySystem     = offEmergencyMode + 1
	offGeneration       = offSafetySystem + 1 // 8 bytes, aligned within regionSize
)

// State is the decoded mirror of the shared record. Callers read and
// mutate a State inside WithLock; Region handles (de)serialization and
// the generation bump.
type State struct {
	CurrentFloor          string
	DestinationFloor      string
	Status                string
	OpenButton            bool
	CloseButton           bool
	DoorObstruction       bool
	Overload              bool
	EmergencyStop         bool
	IndividualServiceMode bool
	EmergencyMode         bool
	SafetySystem          uint8
	Generation            uint64
}

// Region is a memory-mapped, flock-guarded shared record for one car.
type Region struct {
	path   string
	file   *os.File
	data   []byte
	owner  bool
	closed bool
}

// Path returns the filesystem path backing the shared region /car<name>
// is realized at: /dev/shm when available, otherwise $TMPDIR.
func Path(name string) string {
	dir := "/dev/shm"
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "car"+name)
}

// Create creates (or truncates) the shared region for a car and
// initializes it to the Closed state. The creating process owns the
// region's lifetime: it alone should call Unlink.
func Create(name string) (*Region, error) {
	path := Path(name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("carstate: create %s: %w", path, err)
	}
	if err := f.Truncate(regionSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("carstate: truncate %s: %w", path, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("carstate: mmap %s: %w", path, err)
	}

	r := &Region{path: path, file: f, data: data, owner: true}

	init := State{
		CurrentFloor:     "",
		DestinationFloor: "",
		Status:           StatusClosed,
	}
	r.encode(&init)

	return r, nil
}

// Open attaches to an existing region for a car, created by Create in
// another process. The safety monitor, the network agent, and the
// manual-service tool all attach this way.
func Open(name string) (*Region, error) {
	path := Path(name)

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("carstate: open %s: %w", path, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("carstate: mmap %s: %w", path, err)
	}

	return &Region{path: path, file: f, data: data, owner: false}, nil
}

// Close unmaps and closes the region's backing file without removing
// it. Non-owning attachers (safety monitor, agent, manual-service tool)
// call this; the owning car process calls Unlink instead.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("carstate: munmap: %w", err)
	}
	return r.file.Close()
}

// Unlink closes the region and removes its backing file. Only the
// owning car process should call this, on exit.
func (r *Region) Unlink() error {
	if err := r.Close(); err != nil {
		return err
	}
	return os.Remove(r.path)
}

// lock acquires the flock-based mutex over the region's file.
func (r *Region) lock() error {
	return unix.Flock(int(r.file.Fd()), unix.LOCK_EX)
}

// unlock releases the flock-based mutex.
func (r *Region) unlock() error {
	return unix.Flock(int(r.file.Fd()), unix.LOCK_UN)
}

// WithLock runs fn against the current state under the region's mutex.
// fn mutates the state in place and reports whether it materially
// changed it; on a material change the generation counter is bumped,
// which is this region's substitute for a condvar broadcast.
func (r *Region) WithLock(fn func(s *State) bool) error {
	if r.closed {
		return ErrClosed
	}
	if err := r.lock(); err != nil {
		return fmt.Errorf("carstate: lock: %w", err)
	}
	defer r.unlock()

	s := r.decode()
	changed := fn(&s)
	if changed {
		s.Generation++
	}
	r.encode(&s)

	return nil
}

// Snapshot returns a copy of the current state without mutating it.
func (r *Region) Snapshot() (State, error) {
	if r.closed {
		return State{}, ErrClosed
	}
	if err := r.lock(); err != nil {
		return State{}, fmt.Errorf("carstate: lock: %w", err)
	}
	defer r.unlock()

	return r.decode(), nil
}

// Generation returns the current broadcast generation without
// decoding the rest of the record.
func (r *Region) Generation() (uint64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if err := r.lock(); err != nil {
		return 0, fmt.Errorf("carstate: lock: %w", err)
	}
	defer r.unlock()

	return binary.LittleEndian.Uint64(r.data[offGeneration:]), nil
}

// WaitForChange polls the generation counter until it differs from
// lastGen, ctx is done, or timeout elapses. It returns the observed
// generation and whether a change was seen. This is the condvar
// timed-wait substitute for a region with no cross-process condvar.
func (r *Region) WaitForChange(ctx context.Context, lastGen uint64, timeout time.Duration) (uint64, bool) {
	deadline := time.Now().Add(timeout)

	for {
		gen, err := r.Generation()
		if err == nil && gen != lastGen {
			return gen, true
		}

		if time.Now().After(deadline) {
			return lastGen, false
		}

		select {
		case <-ctx.Done():
			return lastGen, false
		case <-time.After(pollInterval):
		}
	}
}

// decode reads the raw record into a State. Caller must hold the lock.
func (r *Region) decode() State {
	return State{
		CurrentFloor:          readCString(r.data[offCurrentFloor : offCurrentFloor+maxFloorBytes]),
		DestinationFloor:      readCString(r.data[offDestinationFloor : offDestinationFloor+maxFloorBytes]),
		Status:                readCString(r.data[offStatus : offStatus+maxStatusBytes]),
		OpenButton:            r.data[offOpenButton] != 0,
		CloseButton:           r.data[offCloseButton] != 0,
		DoorObstruction:       r.data[offDoorObstruction] != 0,
		Overload:              r.data[offOverload] != 0,
		EmergencyStop:         r.data[offEmergencyStop] != 0,
		IndividualServiceMode: r.data[offServiceMode] != 0,
		EmergencyMode:         r.data[offEmergencyMode] != 0,
		SafetySystem:          r.data[offSafetySystem],
		Generation:            binary.LittleEndian.Uint64(r.data[offGeneration:]),
	}
}

// encode writes a State into the raw record. Caller must hold the lock.
func (r *Region) encode(s *State) {
	writeCString(r.data[offCurrentFloor:offCurrentFloor+maxFloorBytes], s.CurrentFloor)
	writeCString(r.data[offDestinationFloor:offDestinationFloor+maxFloorBytes], s.DestinationFloor)
	writeCString(r.data[offStatus:offStatus+maxStatusBytes], s.Status)
	r.data[offOpenButton] = boolByte(s.OpenButton)
	r.data[offCloseButton] = boolByte(s.CloseButton)
	r.data[offDoorObstruction] = boolByte(s.DoorObstruction)
	r.data[offOverload] = boolByte(s.Overload)
	r.data[offEmergencyStop] = boolByte(s.EmergencyStop)
	r.data[offServiceMode] = boolByte(s.IndividualServiceMode)
	r.data[offEmergencyMode] = boolByte(s.EmergencyMode)
	r.data[offSafetySystem] = s.SafetySystem
	binary.LittleEndian.PutUint64(r.data[offGeneration:], s.Generation)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func readCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func writeCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}
