package logx

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a dispatcher
// connection or a car agent tick.
type LogContext struct {
	TraceID   string    // per-connection correlation id (uuid)
	SpanID    string    // sub-operation id within a trace
	Car       string    // car name, when the context is scoped to one car
	Verb      string    // wire message verb currently being handled
	ClientIP  string    // remote address of the TCP peer
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Car:       lc.Car,
		Verb:      lc.Verb,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithCar returns a copy with the car name set
func (lc *LogContext) WithCar(car string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Car = car
	}
	return clone
}

// WithVerb returns a copy with the wire verb set
func (lc *LogContext) WithVerb(verb string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Verb = verb
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
