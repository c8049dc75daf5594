package goSnap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSnap/internal"
	"github.com/MrEthical07/goSnap/internal/flows"
	"github.com/MrEthical07/goSnap/transport"
)

var (
	jpegData = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'f', 'i', 'f'}
	mp4Data  = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'}
)

func TestSendSnapPreconditionsBeforeDispatch(t *testing.T) {
	c, ft, _ := newTestClient(t)
	blob, _ := NewBlob(jpegData)

	tests := []struct {
		name string
		blob Blob
		opts SnapOptions
		want error
	}{
		{name: "zero timer", blob: blob, opts: SnapOptions{Recipients: []string{"bob"}}, want: ErrInvalidTimer},
		{name: "negative timer", blob: blob, opts: SnapOptions{Recipients: []string{"bob"}, Timer: -time.Second}, want: ErrInvalidTimer},
		{name: "no recipients", blob: blob, opts: SnapOptions{Recipients: []string{" "}, Timer: time.Second}, want: ErrNoRecipients},
		{name: "empty media", blob: Blob{}, opts: SnapOptions{Recipients: []string{"bob"}, Timer: time.Second}, want: ErrEmptyMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SendSnap(context.Background(), tt.blob, tt.opts)
			requireKind(t, err, KindPreconditionViolation)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if ft.count() != 0 {
		t.Fatalf("expected no network activity, got %d", ft.count())
	}
}

func TestSendSnapRequiresSignIn(t *testing.T) {
	c, ft, _ := newTestClient(t)
	blob, _ := NewBlob(jpegData)

	_, err := c.SendSnapTo(context.Background(), blob, []string{"bob"}, "", 3*time.Second)
	requireKind(t, err, KindNotAuthenticated)
	if ft.count() != 0 {
		t.Fatalf("expected no dispatch")
	}
}

func TestSendSnapSingleMultipartRequest(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointSend, http.StatusOK, `{"snap_response":{"success":true,"snaps":{
		"carol":{"id":"s2","timestamp":1700000000500},
		"bob":{"id":"s1","timestamp":1700000000000}
	}}}`)
	blob, err := NewBlob(jpegData)
	if err != nil || blob.Kind != MediaImage {
		t.Fatalf("new blob: %v %s", err, blob.Kind)
	}

	resp, err := c.SendSnapTo(context.Background(), blob, []string{"Bob", " carol", "bob"}, "hi", 3*time.Second)
	if err != nil {
		t.Fatalf("send snap: %v", err)
	}
	if len(ft.calls(EndpointSend)) != 1 {
		t.Fatalf("expected exactly one send request")
	}
	if !resp.Success || len(resp.Snaps) != 2 || resp.Snaps[0].Recipient != "bob" || resp.Snaps[0].ID != "s1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Snaps[0].Timestamp.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("unexpected timestamp %v", resp.Snaps[0].Timestamp)
	}

	req := ft.last(t, EndpointSend)
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		t.Fatalf("expected multipart body, got %s", req.Header.Get("Content-Type"))
	}
	params := requestParams(t, req)
	if params["recipients"] != `["bob","carol"]` || params["time"] != "3" || params["type"] != "0" || params["zipped"] != "0" {
		t.Fatalf("unexpected send params %v", params)
	}
	if params["@data"] != string(jpegData) {
		t.Fatalf("expected raw media upload")
	}
	owner, _, ok := internal.ParseMediaID(params["media_id"])
	if !ok || owner != "ALICE" || params["media_id"] != resp.MediaID {
		t.Fatalf("unexpected media id %q", params["media_id"])
	}
	if got := c.MetricsSnapshot().Counters[MetricSnapSent]; got != 1 {
		t.Fatalf("expected snap sent metric, got %d", got)
	}
}

func TestSendSnapZipsVideoOverlay(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointSend, http.StatusOK, ``)

	blob := Blob{Kind: MediaVideo, Data: mp4Data, Overlay: jpegData}
	resp, err := c.SendSnap(context.Background(), blob, SnapOptions{Recipients: []string{"bob"}, Timer: 1500 * time.Millisecond})
	if err != nil {
		t.Fatalf("send snap: %v", err)
	}
	if !resp.Success || len(resp.Snaps) != 0 {
		t.Fatalf("empty body must mean success, got %+v", resp)
	}

	params := requestParams(t, ft.last(t, EndpointSend))
	if params["zipped"] != "1" || params["type"] != "1" || params["time"] != "1.5" {
		t.Fatalf("unexpected params %v", params)
	}
	media, overlay, err := flows.SplitZippedBlob([]byte(params["@data"]))
	if err != nil {
		t.Fatalf("split upload: %v", err)
	}
	if string(media) != string(mp4Data) || string(overlay) != string(jpegData) {
		t.Fatalf("upload archive does not round-trip")
	}
}

func TestSendSnapRejectedResponse(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointSend, http.StatusOK, `{"snap_response":{"success":false}}`)
	blob, _ := NewBlob(jpegData)

	_, err := c.SendSnapTo(context.Background(), blob, []string{"bob"}, "", time.Second)
	requireKind(t, err, KindRemoteRejected)
}

func TestMarkSnapScreenshotReportsEvents(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointUpdateSnaps, http.StatusOK, ``)

	snap := Snap{ID: "s1", Sender: "bob"}
	if err := c.MarkSnapScreenshot(context.Background(), snap, 4); err != nil {
		t.Fatalf("mark screenshot: %v", err)
	}

	params := requestParams(t, ft.last(t, EndpointUpdateSnaps))
	var events []struct {
		Name   string            `json:"eventName"`
		Params map[string]string `json:"params"`
		TS     int64             `json:"ts"`
	}
	if err := json.Unmarshal([]byte(params["events"]), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != "SNAP_VIEW,SNAP_EXPIRED,SNAP_SCREENSHOT" {
		t.Fatalf("unexpected events %v", names)
	}
	if events[0].TS != testNow.Unix()-4 || events[0].Params["sender"] != "bob" {
		t.Fatalf("unexpected view event %+v", events[0])
	}

	var info map[string]map[string]float64
	if err := json.Unmarshal([]byte(params["json"]), &info); err != nil {
		t.Fatalf("decode snap info: %v", err)
	}
	if info["s1"]["c"] != 1 || info["s1"]["sv"] != 4 {
		t.Fatalf("unexpected snap info %v", info)
	}
}

func TestMarkSnapViewedRequiresID(t *testing.T) {
	c, ft, _ := signedInClient(t)
	before := ft.count()

	err := c.MarkSnapViewed(context.Background(), Snap{}, 1)
	requireKind(t, err, KindPreconditionViolation)
	if ft.count() != before {
		t.Fatalf("expected no dispatch")
	}
}

func TestSendEventsRequiresSignIn(t *testing.T) {
	c, ft, _ := newTestClient(t)

	err := c.SendEvents(context.Background(), []Event{{Name: "APP_OPEN", Timestamp: testNow}}, nil)
	requireKind(t, err, KindNotAuthenticated)
	if ft.count() != 0 {
		t.Fatalf("expected no dispatch")
	}
}

func TestSendEventsEncodesSnapInfo(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointUpdateSnaps, http.StatusOK, `{}`)

	err := c.SendEvents(context.Background(), nil, map[string]SnapInfo{
		"s9": {ViewedAt: testNow, SecondsViewed: 2.5, Replayed: true},
	})
	if err != nil {
		t.Fatalf("send events: %v", err)
	}
	params := requestParams(t, ft.last(t, EndpointUpdateSnaps))
	if params["events"] != "[]" {
		t.Fatalf("expected empty events array, got %s", params["events"])
	}
	var info map[string]map[string]float64
	if err := json.Unmarshal([]byte(params["json"]), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["s9"]["sv"] != 2.5 || info["s9"]["replayed"] != 1 {
		t.Fatalf("unexpected snap info %v", info)
	}
}

func TestLoadSnapSplitsZippedMedia(t *testing.T) {
	c, ft, _ := signedInClient(t)
	archive, err := flows.ZipBlob("ALICE~1", mp4Data, jpegData)
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	ft.handle(EndpointBlob, func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: archive}, nil
	})

	blob, err := c.LoadSnap(context.Background(), Snap{ID: "s1"})
	if err != nil {
		t.Fatalf("load snap: %v", err)
	}
	if blob.Kind != MediaVideo || !blob.Zipped() {
		t.Fatalf("expected zipped video, got %s zipped=%v", blob.Kind, blob.Zipped())
	}
	if string(blob.Data) != string(mp4Data) || string(blob.Overlay) != string(jpegData) {
		t.Fatalf("unexpected blob parts")
	}
	if got := requestParams(t, ft.last(t, EndpointBlob))["id"]; got != "s1" {
		t.Fatalf("unexpected blob id %q", got)
	}
}

func TestLoadSnapPlainImage(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.handle(EndpointBlob, func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: jpegData}, nil
	})

	blob, err := c.LoadSnap(context.Background(), Snap{ID: "s1"})
	if err != nil {
		t.Fatalf("load snap: %v", err)
	}
	if blob.Kind != MediaImage || blob.Zipped() {
		t.Fatalf("expected plain image, got %+v", blob.Kind)
	}
}

func TestLoadSnapEmptyBodyIsRemoteRejected(t *testing.T) {
	c, ft, _ := signedInClient(t)
	ft.respond(EndpointBlob, http.StatusOK, ``)

	_, err := c.LoadSnap(context.Background(), Snap{ID: "s1"})
	requireKind(t, err, KindRemoteRejected)
}
