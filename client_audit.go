package goSnap

import (
	"context"
	"errors"
)

// emitAudit records the outcome of op. metadata is only evaluated when
// auditing is enabled.
func (c *Client) emitAudit(ctx context.Context, eventType AuditEventType, username string, err error, metadata func() map[string]string) {
	if c == nil || c.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		Username:  username,
		Success:   err == nil,
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	if err != nil {
		event.ErrorKind = KindOf(err).String()
		var e *Error
		if errors.As(err, &e) {
			event.Detail = e.Detail
		}
	}
	c.audit.publish(ctx, event)
}
