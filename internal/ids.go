package internal

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a random identifier attached to every outbound request.
func NewRequestID() string {
	return uuid.NewString()
}

// NewMediaID returns the media identifier for an upload by username:
// the uppercase username, a tilde, and an uppercase random UUID.
func NewMediaID(username string) string {
	return strings.ToUpper(username) + "~" + strings.ToUpper(uuid.NewString())
}

// ParseMediaID splits a media identifier into its owner and UUID parts.
func ParseMediaID(mediaID string) (string, uuid.UUID, bool) {
	owner, rest, ok := strings.Cut(mediaID, "~")
	if !ok || owner == "" {
		return "", uuid.UUID{}, false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return "", uuid.UUID{}, false
	}
	return owner, id, true
}
