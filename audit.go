package goSnap

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// AuditEventType names the client operation an AuditEvent describes.
type AuditEventType string

const (
	AuditSignIn         AuditEventType = "sign_in"
	AuditRestoreSession AuditEventType = "restore_session"
	AuditSignOut        AuditEventType = "sign_out"
	AuditUpdateSession  AuditEventType = "update_session"
	AuditRegistration   AuditEventType = "registration_step"
	AuditSendSnap       AuditEventType = "send_snap"
	AuditLoadSnap       AuditEventType = "load_snap"
	AuditSendEvents     AuditEventType = "send_events"
)

// AuditEvent records the outcome of one client operation.
//
// Events never carry passwords, auth tokens, or the API secret. ErrorKind is
// the ErrorKind string of a failed operation and Detail the remote reason,
// when the service gave one.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType AuditEventType    `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Success   bool              `json:"success"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events on the client's audit goroutine. Emit runs
// serially; a slow sink backs up the audit buffer, never the caller.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// SinkFunc adapts a function to AuditSink.
type SinkFunc func(ctx context.Context, event AuditEvent)

func (f SinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to a consumer through a buffered channel. When
// the consumer falls behind, events are dropped and counted.
type ChannelSink struct {
	events  chan AuditEvent
	dropped atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(_ context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Events is the consumer side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// Dropped returns how many events found the channel full.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }

// JSONWriterSink writes events as newline-delimited JSON.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}
