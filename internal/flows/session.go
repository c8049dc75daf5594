package flows

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedResponse is returned when a success body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response body")

// ErrMissingAuthToken is returned when a sign-in response carries no auth token.
var ErrMissingAuthToken = errors.New("response carries no auth token")

// SessionUpdate is the flow-local shape of sign-in and update-session responses.
type SessionUpdate struct {
	Username      string
	AuthToken     string
	DeviceToken1i string
	DeviceToken1v string
	Email         string
	MobileNumber  string
	Score         int
	Received      int
	Sent          int
}

type updatesResponse struct {
	Username  string `json:"username"`
	AuthToken string `json:"auth_token"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Score     int    `json:"score"`
	Received  int    `json:"received"`
	Sent      int    `json:"sent"`
}

type sessionEnvelope struct {
	Updates       *updatesResponse `json:"updates_response"`
	AuthToken     string           `json:"auth_token"`
	DeviceToken1i string           `json:"device_token_1i"`
	DeviceToken1v string           `json:"device_token_1v"`
}

// ParseSessionUpdate decodes a sign-in, register-username, or update-session body.
func ParseSessionUpdate(body []byte) (SessionUpdate, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return SessionUpdate{}, ErrMalformedResponse
	}

	out := SessionUpdate{
		AuthToken:     env.AuthToken,
		DeviceToken1i: env.DeviceToken1i,
		DeviceToken1v: env.DeviceToken1v,
	}
	if u := env.Updates; u != nil {
		out.Username = strings.ToLower(u.Username)
		if u.AuthToken != "" {
			out.AuthToken = u.AuthToken
		}
		out.Email = u.Email
		out.MobileNumber = u.Mobile
		out.Score = u.Score
		out.Received = u.Received
		out.Sent = u.Sent
	}
	return out, nil
}

// SignInParams returns the body parameters of a sign-in request.
func SignInParams(username, password, deviceToken1i, deviceToken1v string) map[string]string {
	params := map[string]string{
		"username": strings.ToLower(strings.TrimSpace(username)),
		"password": password,
	}
	if deviceToken1i != "" {
		params["dtoken1i"] = deviceToken1i
	}
	if deviceToken1v != "" {
		params["dtoken1v"] = deviceToken1v
	}
	return params
}
