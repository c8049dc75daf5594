package goSnap

import (
	"context"
	"time"

	"github.com/MrEthical07/goSnap/internal/flows"
)

// Event is a client event reported to the service.
type Event struct {
	Name      string
	Params    map[string]string
	Timestamp time.Time
}

// SnapInfo is the view state reported for one snap.
type SnapInfo struct {
	ViewedAt      time.Time
	SecondsViewed float64
	Screenshot    bool
	Replayed      bool
}

// SendEvents reports events and per-snap view state in one signed request.
// It requires SignedIn.
func (c *Client) SendEvents(ctx context.Context, events []Event, snapInfo map[string]SnapInfo) error {
	if c == nil {
		return ErrClientNotReady
	}

	fe := make([]flows.Event, 0, len(events))
	for _, e := range events {
		fe = append(fe, flows.Event{Name: e.Name, Params: e.Params, Timestamp: e.Timestamp.Unix()})
	}
	fi := make(map[string]flows.SnapInfo, len(snapInfo))
	for id, info := range snapInfo {
		si := flows.SnapInfo{
			Timestamp:     float64(info.ViewedAt.UnixMilli()) / 1000,
			SecondsViewed: info.SecondsViewed,
		}
		if info.Screenshot {
			si.Screenshot = 1
		}
		if info.Replayed {
			si.Replayed = 1
		}
		fi[id] = si
	}
	return c.sendEvents(ctx, "send_events", fe, fi)
}

func (c *Client) sendEvents(ctx context.Context, op string, events []flows.Event, info map[string]flows.SnapInfo) error {
	if !c.IsSignedIn() {
		return c.notAuthenticated(op)
	}
	params, err := flows.EventParams(events, info)
	if err != nil {
		return c.precondition(op, err)
	}

	username := c.Session().Username
	_, err = c.execute(ctx, op, RequestDescriptor{
		Endpoint:          EndpointUpdateSnaps,
		Params:            params,
		RequiresSignature: true,
		RequiresSession:   true,
	})
	if err == nil {
		c.metricInc(MetricEventsSent)
	}
	c.emitAudit(ctx, AuditSendEvents, username, err, func() map[string]string {
		return map[string]string{"op": op}
	})
	return err
}
