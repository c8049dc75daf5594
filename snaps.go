package goSnap

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goSnap/internal"
	"github.com/MrEthical07/goSnap/internal/flows"
	"github.com/MrEthical07/goSnap/transport"
)

// MediaKind classifies snap media.
type MediaKind int

const (
	MediaUnknown MediaKind = iota
	MediaImage
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Blob is snap media. Overlay is only set for videos carrying an overlay
// image.
type Blob struct {
	Kind    MediaKind
	Data    []byte
	Overlay []byte
}

// NewBlob classifies data by its leading bytes. A zip archive is split into
// its media and overlay parts.
func NewBlob(data []byte) (Blob, error) {
	if flows.DetectMedia(data) == flows.MediaZipped {
		media, overlay, err := flows.SplitZippedBlob(data)
		if err != nil {
			return Blob{}, err
		}
		kind := mediaKind(flows.DetectMedia(media))
		if kind == MediaUnknown {
			kind = MediaVideo
		}
		return Blob{Kind: kind, Data: media, Overlay: overlay}, nil
	}
	return Blob{Kind: mediaKind(flows.DetectMedia(data)), Data: data}, nil
}

// Zipped reports whether b is sent as a media+overlay archive.
func (b Blob) Zipped() bool {
	return len(b.Overlay) > 0
}

func mediaKind(k flows.MediaKind) MediaKind {
	switch k {
	case flows.MediaImage:
		return MediaImage
	case flows.MediaVideo:
		return MediaVideo
	default:
		return MediaUnknown
	}
}

func (k MediaKind) flow() flows.MediaKind {
	if k == MediaVideo {
		return flows.MediaVideo
	}
	return flows.MediaImage
}

// Snap references a received snap.
type Snap struct {
	ID        string
	Sender    string
	Timestamp time.Time
	Timer     time.Duration
}

// SnapOptions control a send.
type SnapOptions struct {
	Recipients []string
	Caption    string
	// Timer is how long recipients may view the snap. It must be > 0.
	Timer time.Duration
}

// SentSnap is one delivered copy of a sent snap.
type SentSnap struct {
	Recipient string
	ID        string
	Timestamp time.Time
}

// SnapResponse is the result of a send.
type SnapResponse struct {
	Success bool
	MediaID string
	Snaps   []SentSnap
}

// SendSnapTo is SendSnap with positional options.
func (c *Client) SendSnapTo(ctx context.Context, blob Blob, recipients []string, caption string, timer time.Duration) (SnapResponse, error) {
	return c.SendSnap(ctx, blob, SnapOptions{Recipients: recipients, Caption: caption, Timer: timer})
}

// SendSnap uploads blob and sends it to opts.Recipients in a single
// request. A non-positive timer, no recipients, or empty media fail with
// KindPreconditionViolation before any network activity.
func (c *Client) SendSnap(ctx context.Context, blob Blob, opts SnapOptions) (SnapResponse, error) {
	const op = "send_snap"
	if c == nil {
		return SnapResponse{}, ErrClientNotReady
	}

	if opts.Timer <= 0 {
		return SnapResponse{}, c.precondition(op, ErrInvalidTimer)
	}
	recipients := normalizeRecipients(opts.Recipients)
	if len(recipients) == 0 {
		return SnapResponse{}, c.precondition(op, ErrNoRecipients)
	}
	if len(blob.Data) == 0 {
		return SnapResponse{}, c.precondition(op, ErrEmptyMedia)
	}

	username := c.Session().Username
	if !c.IsSignedIn() {
		return SnapResponse{}, c.notAuthenticated(op)
	}

	mediaID := internal.NewMediaID(username)
	data := blob.Data
	if blob.Zipped() {
		archive, err := flows.ZipBlob(mediaID, blob.Data, blob.Overlay)
		if err != nil {
			return SnapResponse{}, c.precondition(op, err)
		}
		data = archive
	}
	params, err := flows.SendSnapParams(mediaID, recipients, opts.Caption, opts.Timer, blob.Kind.flow(), blob.Zipped())
	if err != nil {
		return SnapResponse{}, c.precondition(op, err)
	}

	payload, err := c.execute(ctx, op, RequestDescriptor{
		Endpoint:          EndpointSend,
		Params:            params,
		File:              &transport.File{Field: "data", Name: mediaID, Data: data},
		RequiresSignature: true,
		RequiresSession:   true,
	})
	if err != nil {
		c.emitAudit(ctx, AuditSendSnap, username, err, nil)
		return SnapResponse{}, err
	}

	resp := SnapResponse{Success: true, MediaID: mediaID}
	if len(bytes.TrimSpace(payload.Body)) > 0 {
		ok, sent, err := flows.ParseSnapResponse(payload.Body)
		if err != nil {
			err := remoteError(op, err)
			c.emitAudit(ctx, AuditSendSnap, username, err, nil)
			return SnapResponse{}, err
		}
		if !ok {
			err := &Error{Kind: KindRemoteRejected, Op: op, Detail: "snap rejected"}
			c.emitAudit(ctx, AuditSendSnap, username, err, nil)
			return SnapResponse{}, err
		}
		for _, s := range sent {
			resp.Snaps = append(resp.Snaps, SentSnap{
				Recipient: s.Recipient,
				ID:        s.ID,
				Timestamp: time.UnixMilli(s.Timestamp),
			})
		}
	}

	c.metricInc(MetricSnapSent)
	c.emitAudit(ctx, AuditSendSnap, username, nil, func() map[string]string {
		return map[string]string{"media_id": mediaID, "recipients": strings.Join(recipients, ",")}
	})
	return resp, nil
}

// MarkSnapViewed reports snap as viewed for secondsViewed seconds.
func (c *Client) MarkSnapViewed(ctx context.Context, snap Snap, secondsViewed uint) error {
	return c.markSnap(ctx, "mark_snap_viewed", snap, secondsViewed, false)
}

// MarkSnapScreenshot reports snap as viewed for secondsViewed seconds and
// screenshotted.
func (c *Client) MarkSnapScreenshot(ctx context.Context, snap Snap, secondsViewed uint) error {
	return c.markSnap(ctx, "mark_snap_screenshot", snap, secondsViewed, true)
}

func (c *Client) markSnap(ctx context.Context, op string, snap Snap, secondsViewed uint, screenshot bool) error {
	if c == nil {
		return ErrClientNotReady
	}
	if snap.ID == "" {
		return c.precondition(op, ErrMissingSnapID)
	}
	events, info := flows.ViewEvents(snap.ID, snap.Sender, secondsViewed, screenshot, c.now())
	return c.sendEvents(ctx, op, events, info)
}

// LoadSnap downloads the media of snap. Zipped media is split into its
// media and overlay parts.
func (c *Client) LoadSnap(ctx context.Context, snap Snap) (Blob, error) {
	const op = "load_snap"
	if c == nil {
		return Blob{}, ErrClientNotReady
	}
	if snap.ID == "" {
		return Blob{}, c.precondition(op, ErrMissingSnapID)
	}

	payload, err := c.execute(ctx, op, RequestDescriptor{
		Endpoint:          EndpointBlob,
		Params:            map[string]string{"id": snap.ID},
		RequiresSignature: true,
		RequiresSession:   true,
		Binary:            true,
	})
	username := c.Session().Username
	if err != nil {
		c.emitAudit(ctx, AuditLoadSnap, username, err, nil)
		return Blob{}, err
	}
	if len(payload.Body) == 0 {
		err := &Error{Kind: KindRemoteRejected, Op: op, Detail: "empty snap blob"}
		c.emitAudit(ctx, AuditLoadSnap, username, err, nil)
		return Blob{}, err
	}

	blob, err := NewBlob(payload.Body)
	if err != nil {
		err := remoteError(op, err)
		c.emitAudit(ctx, AuditLoadSnap, username, err, nil)
		return Blob{}, err
	}
	c.metricInc(MetricSnapLoaded)
	c.emitAudit(ctx, AuditLoadSnap, username, nil, func() map[string]string {
		return map[string]string{"snap_id": snap.ID, "kind": blob.Kind.String()}
	})
	return blob, nil
}

func normalizeRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
