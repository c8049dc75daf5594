package flows

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MediaKind is the flow-local media classification.
type MediaKind int

const (
	MediaUnknown MediaKind = iota
	MediaImage
	MediaVideo
	MediaZipped
)

var ErrInvalidBlobArchive = errors.New("blob archive is malformed")

const maxBlobPartSize = 64 << 20

// DetectMedia classifies data by its leading bytes.
func DetectMedia(data []byte) MediaKind {
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}),
		bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return MediaImage
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return MediaZipped
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return MediaVideo
	default:
		return MediaUnknown
	}
}

// SplitZippedBlob returns the media and overlay parts of a zipped snap.
// Parts are recognized by their "media" and "overlay" name prefixes.
func SplitZippedBlob(data []byte) (media, overlay []byte, err error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, ErrInvalidBlobArchive
	}
	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		var dst *[]byte
		switch {
		case strings.HasPrefix(name, "media"):
			dst = &media
		case strings.HasPrefix(name, "overlay"):
			dst = &overlay
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, ErrInvalidBlobArchive
		}
		part, err := io.ReadAll(io.LimitReader(rc, maxBlobPartSize))
		rc.Close()
		if err != nil {
			return nil, nil, ErrInvalidBlobArchive
		}
		*dst = part
	}
	if media == nil {
		return nil, nil, ErrInvalidBlobArchive
	}
	return media, overlay, nil
}

// SendSnapParams returns the body parameters of a send request.
func SendSnapParams(mediaID string, recipients []string, caption string, timer time.Duration, kind MediaKind, zipped bool) (map[string]string, error) {
	encoded, err := json.Marshal(recipients)
	if err != nil {
		return nil, err
	}
	mediaType := "0"
	if kind == MediaVideo {
		mediaType = "1"
	}
	params := map[string]string{
		"media_id":             mediaID,
		"recipients":           string(encoded),
		"time":                 strconv.FormatFloat(timer.Seconds(), 'f', -1, 64),
		"caption_text_display": caption,
		"type":                 mediaType,
		"zipped":               "0",
	}
	if zipped {
		params["zipped"] = "1"
	}
	return params, nil
}

// Event is the flow-local shape of a reported client event.
type Event struct {
	Name      string            `json:"eventName"`
	Params    map[string]string `json:"params"`
	Timestamp int64             `json:"ts"`
}

// SnapInfo describes a view/screenshot update for a single snap.
type SnapInfo struct {
	Timestamp     float64 `json:"t"`
	SecondsViewed float64 `json:"sv"`
	Screenshot    int     `json:"c,omitempty"`
	Replayed      int     `json:"replayed,omitempty"`
}

// ViewEvents returns the events and snap info reporting that snapID was
// viewed for secondsViewed seconds, optionally with a screenshot.
func ViewEvents(snapID, sender string, secondsViewed uint, screenshot bool, now time.Time) ([]Event, map[string]SnapInfo) {
	ts := now.Unix()
	params := map[string]string{"id": snapID, "sender": sender}

	events := []Event{
		{Name: "SNAP_VIEW", Params: params, Timestamp: ts - int64(secondsViewed)},
		{Name: "SNAP_EXPIRED", Params: params, Timestamp: ts},
	}
	info := SnapInfo{
		Timestamp:     float64(now.UnixMilli()) / 1000,
		SecondsViewed: float64(secondsViewed),
	}
	if screenshot {
		info.Screenshot = 1
		events = append(events, Event{Name: "SNAP_SCREENSHOT", Params: params, Timestamp: ts})
	}
	return events, map[string]SnapInfo{snapID: info}
}

// EventParams returns the body parameters of an update-snaps request.
func EventParams(events []Event, info map[string]SnapInfo) (map[string]string, error) {
	if events == nil {
		events = []Event{}
	}
	if info == nil {
		info = map[string]SnapInfo{}
	}
	encodedEvents, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}
	encodedInfo, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"events": string(encodedEvents),
		"json":   string(encodedInfo),
	}, nil
}

// SentSnap is the flow-local shape of one delivered snap.
type SentSnap struct {
	Recipient string
	ID        string
	Timestamp int64
}

type snapResponseEnvelope struct {
	SnapResponse struct {
		Success bool `json:"success"`
		Snaps   map[string]struct {
			ID        string `json:"id"`
			Timestamp int64  `json:"timestamp"`
		} `json:"snaps"`
	} `json:"snap_response"`
}

// ParseSnapResponse decodes a send body into its success flag and delivered
// snaps ordered by recipient.
func ParseSnapResponse(body []byte) (bool, []SentSnap, error) {
	var env snapResponseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, nil, ErrMalformedResponse
	}
	out := make([]SentSnap, 0, len(env.SnapResponse.Snaps))
	for recipient, s := range env.SnapResponse.Snaps {
		out = append(out, SentSnap{Recipient: recipient, ID: s.ID, Timestamp: s.Timestamp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Recipient < out[j].Recipient })
	return env.SnapResponse.Success, out, nil
}

// ZipBlob packs media and overlay into the archive layout SplitZippedBlob
// reads.
func ZipBlob(mediaID string, media, overlay []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, part := range []struct {
		name string
		data []byte
	}{
		{name: "media~" + mediaID, data: media},
		{name: "overlay~" + mediaID, data: overlay},
	} {
		f, err := w.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(part.data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
