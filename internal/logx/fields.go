package logx

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently
// across car, dispatcher, and safety monitor log statements so the
// fields line up under log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // correlation id for request/connection tracking
	KeySpanID  = "span_id"  // sub-operation id within a trace

	// ========================================================================
	// Wire Protocol
	// ========================================================================
	KeyVerb      = "verb"       // wire message verb: CALL, CAR, STATUS, FLOOR, ...
	KeyStatus    = "status"     // car status string: Opening, Open, Closing, Closed, Between
	KeyStatusMsg = "status_msg" // human-readable status/reply message

	// ========================================================================
	// Car / Floor Domain
	// ========================================================================
	KeyCar             = "car"             // car name
	KeyFloor           = "floor"           // floor label, e.g. "7" or "B2"
	KeySourceFloor     = "source_floor"    // call origin floor
	KeyDestFloor       = "dest_floor"      // call destination floor
	KeyLowestFloor     = "lowest_floor"    // car's lowest serviceable floor
	KeyHighestFloor    = "highest_floor"   // car's highest serviceable floor
	KeyQueueLen        = "queue_len"       // dispatcher queue depth for a car
	KeyETA             = "eta"             // estimated stops-away for a call
	KeyGeneration      = "generation"      // shared-state broadcast generation counter
	KeyIndividualMode  = "service_mode"    // individual service mode flag
	KeyEmergency       = "emergency_mode"  // emergency mode flag
	KeyObstruction     = "obstruction"     // door obstruction flag
	KeyOverload        = "overload"        // overload flag
	KeySafetyHeartbeat = "safety_hb"       // safety_system heartbeat counter

	// ========================================================================
	// Client / Connection Identification
	// ========================================================================
	KeyClientIP     = "client_ip"     // remote address of a TCP peer
	KeyConnectionID = "connection_id" // per-connection correlation id (uuid)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyAttempt    = "attempt"     // retry attempt number
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for the correlation id.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for a sub-operation id.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Verb returns a slog.Attr for a wire message verb.
func Verb(v string) slog.Attr {
	return slog.String(KeyVerb, v)
}

// Status returns a slog.Attr for a car status string.
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// StatusMsg returns a slog.Attr for a human-readable status/reply message.
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// Car returns a slog.Attr for a car name.
func Car(name string) slog.Attr {
	return slog.String(KeyCar, name)
}

// Floor returns a slog.Attr for a floor label.
func Floor(label string) slog.Attr {
	return slog.String(KeyFloor, label)
}

// SourceFloor returns a slog.Attr for a call's origin floor.
func SourceFloor(label string) slog.Attr {
	return slog.String(KeySourceFloor, label)
}

// DestFloor returns a slog.Attr for a call's destination floor.
func DestFloor(label string) slog.Attr {
	return slog.String(KeyDestFloor, label)
}

// LowestFloor returns a slog.Attr for a car's lowest serviceable floor.
func LowestFloor(label string) slog.Attr {
	return slog.String(KeyLowestFloor, label)
}

// HighestFloor returns a slog.Attr for a car's highest serviceable floor.
func HighestFloor(label string) slog.Attr {
	return slog.String(KeyHighestFloor, label)
}

// QueueLen returns a slog.Attr for a car's dispatcher queue depth.
func QueueLen(n int) slog.Attr {
	return slog.Int(KeyQueueLen, n)
}

// ETA returns a slog.Attr for a call's estimated stops-away value.
func ETA(n int) slog.Attr {
	return slog.Int(KeyETA, n)
}

// Generation returns a slog.Attr for the shared-state broadcast generation.
func Generation(g uint64) slog.Attr {
	return slog.Uint64(KeyGeneration, g)
}

// IndividualServiceMode returns a slog.Attr for the individual service mode flag.
func IndividualServiceMode(on bool) slog.Attr {
	return slog.Bool(KeyIndividualMode, on)
}

// Emergency returns a slog.Attr for the emergency mode flag.
func Emergency(on bool) slog.Attr {
	return slog.Bool(KeyEmergency, on)
}

// Obstruction returns a slog.Attr for the door obstruction flag.
func Obstruction(on bool) slog.Attr {
	return slog.Bool(KeyObstruction, on)
}

// Overload returns a slog.Attr for the overload flag.
func Overload(on bool) slog.Attr {
	return slog.Bool(KeyOverload, on)
}

// SafetyHeartbeat returns a slog.Attr for the safety_system heartbeat counter.
func SafetyHeartbeat(n uint8) slog.Attr {
	return slog.Int(KeySafetyHeartbeat, int(n))
}

// ClientIP returns a slog.Attr for a remote peer address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ConnectionID returns a slog.Attr for a per-connection correlation id.
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
