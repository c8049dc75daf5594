package internal

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewMediaIDRoundTrip(t *testing.T) {
	id := NewMediaID("alice")

	owner, parsed, ok := ParseMediaID(id)
	if !ok {
		t.Fatalf("expected media id %q to parse", id)
	}
	if owner != "ALICE" {
		t.Fatalf("expected owner ALICE, got %q", owner)
	}
	if parsed == (uuid.UUID{}) {
		t.Fatal("expected non-zero uuid")
	}
}

func TestParseMediaIDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "ALICE", "~" + uuid.NewString(), "ALICE~not-a-uuid"} {
		if _, _, ok := ParseMediaID(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id := NewRequestID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("request id %q is not a uuid: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = struct{}{}
	}
}
