package flows

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestDetectMedia(t *testing.T) {
	cases := map[string]MediaKind{
		"\xff\xd8\xff\xe0":         MediaImage,
		"\x89PNG\r\n":              MediaImage,
		"PK\x03\x04rest":           MediaZipped,
		"\x00\x00\x00\x18ftypmp42": MediaVideo,
		"hello":                    MediaUnknown,
	}
	for in, want := range cases {
		if got := DetectMedia([]byte(in)); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestSplitZippedBlob(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range map[string]string{"media~ABC": "video", "overlay~ABC": "png", "other": "x"} {
		f, _ := w.Create(name)
		_, _ = f.Write([]byte(data))
	}
	_ = w.Close()

	media, overlay, err := SplitZippedBlob(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if string(media) != "video" || string(overlay) != "png" {
		t.Fatalf("unexpected parts %q %q", media, overlay)
	}

	if _, _, err := SplitZippedBlob([]byte("PK")); err != ErrInvalidBlobArchive {
		t.Fatalf("expected ErrInvalidBlobArchive, got %v", err)
	}
}

func TestSendSnapParams(t *testing.T) {
	params, err := SendSnapParams("ALICE~1", []string{"bob", "carol"}, "hi", 2500*time.Millisecond, MediaVideo, true)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if params["recipients"] != `["bob","carol"]` || params["time"] != "2.5" || params["type"] != "1" || params["zipped"] != "1" {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestViewEventsScreenshot(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	events, info := ViewEvents("s1", "bob", 5, true, now)
	if len(events) != 3 || events[2].Name != "SNAP_SCREENSHOT" || events[0].Timestamp != now.Unix()-5 {
		t.Fatalf("unexpected events %+v", events)
	}
	if info["s1"].Screenshot != 1 || info["s1"].SecondsViewed != 5 {
		t.Fatalf("unexpected info %+v", info)
	}

	params, err := EventParams(events, info)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	var decoded map[string]SnapInfo
	if err := json.Unmarshal([]byte(params["json"]), &decoded); err != nil || decoded["s1"].Screenshot != 1 {
		t.Fatalf("unexpected json param %q", params["json"])
	}

	events, info = ViewEvents("s1", "bob", 5, false, now)
	if len(events) != 2 || info["s1"].Screenshot != 0 {
		t.Fatalf("unexpected view-only events %+v %+v", events, info)
	}
}

func TestParseSnapResponse(t *testing.T) {
	ok, snaps, err := ParseSnapResponse([]byte(`{"snap_response":{"success":true,"snaps":{"carol":{"id":"c1","timestamp":2},"bob":{"id":"b1","timestamp":1}}}}`))
	if err != nil || !ok {
		t.Fatalf("unexpected result %v %v", ok, err)
	}
	if len(snaps) != 2 || snaps[0].Recipient != "bob" || snaps[1].ID != "c1" {
		t.Fatalf("unexpected snaps %+v", snaps)
	}
}

func TestZipBlobRoundTrip(t *testing.T) {
	archive, err := ZipBlob("ALICE~1", []byte("video"), []byte("overlay"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if DetectMedia(archive) != MediaZipped {
		t.Fatal("expected zipped media")
	}
	media, overlay, err := SplitZippedBlob(archive)
	if err != nil || string(media) != "video" || string(overlay) != "overlay" {
		t.Fatalf("unexpected split %q %q %v", media, overlay, err)
	}
}
