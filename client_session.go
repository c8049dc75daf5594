package goSnap

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSnap/internal/flows"
	"github.com/MrEthical07/goSnap/session"
)

// RestoreRequest carries a previously issued auth token.
type RestoreRequest struct {
	Username  string
	AuthToken string
	// IssuedAt is when AuthToken was issued. When zero it is read from the
	// token's iat claim.
	IssuedAt time.Time
	// FetchUpdates runs UpdateSession after restoring. A remote rejection
	// rolls the restore back.
	FetchUpdates bool
}

// SignIn clears the token cache, authenticates username and password, and
// installs the returned session. The session username is the lowercase form
// of username. On failure the client is left SignedOut and the cache is
// cleared again.
func (c *Client) SignIn(ctx context.Context, username, password string) (session.Session, error) {
	const op = "sign_in"
	if c == nil {
		return session.Session{}, ErrClientNotReady
	}

	uname := session.NormalizeUsername(username)
	if uname == "" || password == "" {
		err := c.precondition(op, ErrEmptyCredentials)
		c.emitAudit(ctx, AuditSignIn, uname, err, nil)
		return session.Session{}, err
	}

	token1i, token1v := c.deviceTokens()
	gen := c.beginLifecycle(StateAuthenticating)
	c.clearCache(ctx)
	c.logger.Debug("signing in", "username", uname)

	payload, err := c.execute(ctx, op, RequestDescriptor{
		Endpoint:          EndpointLogin,
		Params:            flows.SignInParams(uname, password, token1i, token1v),
		RequiresSignature: true,
	})
	c.clearCache(ctx)
	if err != nil {
		return session.Session{}, c.signInFailed(ctx, gen, uname, err)
	}

	update, perr := flows.ParseSessionUpdate(payload.Body)
	if perr == nil && update.AuthToken == "" {
		perr = flows.ErrMissingAuthToken
	}
	if perr != nil {
		return session.Session{}, c.signInFailed(ctx, gen, uname, remoteError(op, perr))
	}

	now := c.now()
	s := session.New(uname, update.AuthToken, now).
		WithDeviceTokens(token1i, token1v).
		WithDeviceTokens(update.DeviceToken1i, update.DeviceToken1v)
	s.Account = accountFromUpdate(update, now)

	if !c.commit(gen, s) {
		c.metricInc(MetricSupersededCommit)
		err := newError(KindCanceled, op, ErrSuperseded)
		c.emitAudit(ctx, AuditSignIn, uname, err, nil)
		return session.Session{}, err
	}

	c.metricInc(MetricSignInSuccess)
	c.logger.Debug("signed in", "username", uname)
	c.emitAudit(ctx, AuditSignIn, uname, nil, func() map[string]string {
		return map[string]string{"request_id": payload.RequestID}
	})
	return s, nil
}

func (c *Client) signInFailed(ctx context.Context, gen uint64, username string, err error) error {
	c.abandon(gen)
	c.metricInc(MetricSignInFailure)
	c.logger.Debug("sign in failed", "username", username, "kind", KindOf(err).String())
	c.emitAudit(ctx, AuditSignIn, username, err, nil)
	return err
}

// RestoreSession installs a stored auth token without a password round trip.
// The token cache is cleared first. A token older than
// Config.Session.RestoreFreshness fails with KindPreconditionViolation
// wrapping ErrSessionExpired and leaves the client SignedOut.
func (c *Client) RestoreSession(ctx context.Context, req RestoreRequest) error {
	const op = "restore_session"
	if c == nil {
		return ErrClientNotReady
	}

	uname := session.NormalizeUsername(req.Username)
	if uname == "" || req.AuthToken == "" {
		err := c.precondition(op, ErrEmptyCredentials)
		c.metricInc(MetricRestoreRejected)
		c.emitAudit(ctx, AuditRestoreSession, uname, err, nil)
		return err
	}

	gen := c.beginLifecycle(StateAuthenticating)
	c.clearCache(ctx)

	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		var err error
		issuedAt, err = session.IssuedAtFromToken(req.AuthToken)
		if err != nil {
			return c.restoreRejected(ctx, gen, uname, c.precondition(op, err))
		}
	}

	token1i, token1v := c.deviceTokens()
	s := session.New(uname, req.AuthToken, issuedAt).WithDeviceTokens(token1i, token1v)
	if !s.Fresh(c.now(), c.config.Session.RestoreFreshness) {
		return c.restoreRejected(ctx, gen, uname, c.precondition(op, ErrSessionExpired))
	}

	if !c.commit(gen, s) {
		c.metricInc(MetricSupersededCommit)
		err := newError(KindCanceled, op, ErrSuperseded)
		c.emitAudit(ctx, AuditRestoreSession, uname, err, nil)
		return err
	}
	c.metricInc(MetricRestoreSuccess)
	c.logger.Debug("session restored", "username", uname, "issued_at", issuedAt)

	if req.FetchUpdates {
		if err := c.UpdateSession(ctx); err != nil {
			switch KindOf(err) {
			case KindRemoteRejected, KindNotAuthenticated:
				c.abandon(gen)
				c.clearCache(ctx)
				c.emitAudit(ctx, AuditRestoreSession, uname, err, nil)
				return err
			}
			c.logger.Warn("session restored but update failed", "username", uname, "error", err)
		}
	}

	c.emitAudit(ctx, AuditRestoreSession, uname, nil, nil)
	return nil
}

func (c *Client) restoreRejected(ctx context.Context, gen uint64, username string, err error) error {
	c.abandon(gen)
	c.metricInc(MetricRestoreRejected)
	c.emitAudit(ctx, AuditRestoreSession, username, err, nil)
	return err
}

// SignOut clears the session and the token cache and leaves the client
// SignedOut. The remote logout notification is best effort: its failure is
// logged and never returned, so SignOut always returns nil.
func (c *Client) SignOut(ctx context.Context) error {
	const op = "sign_out"
	if c == nil {
		return nil
	}

	c.mu.Lock()
	c.generation++
	prev := c.session
	wasSignedIn := c.state == StateSignedIn && prev.Valid()
	c.session = session.Session{}
	c.state = StateSignedOut
	c.mu.Unlock()

	remote := "skipped"
	if wasSignedIn {
		view := func() flows.SessionView {
			return flows.SessionView{SignedIn: true, Username: prev.Username, AuthToken: prev.AuthToken}
		}
		_, err := c.executeAs(ctx, op, RequestDescriptor{
			Endpoint:          EndpointLogout,
			RequiresSignature: true,
			RequiresSession:   true,
		}, view)
		remote = "ok"
		if err != nil {
			remote = "failed"
			c.metricInc(MetricSignOutRemoteFailure)
			c.logger.Warn("remote sign out failed", "username", prev.Username, "error", err)
		}
	}
	c.clearCache(ctx)

	c.metricInc(MetricSignOut)
	c.logger.Debug("signed out", "username", prev.Username, "remote", remote)
	c.emitAudit(ctx, AuditSignOut, prev.Username, nil, func() map[string]string {
		return map[string]string{"remote": remote}
	})
	return nil
}

// UpdateSession requires SignedIn. It reports the screen geometry and
// refreshes the session's account fields, adopting a rotated auth token when
// the response carries one. The state does not change.
func (c *Client) UpdateSession(ctx context.Context) error {
	const op = "update_session"
	if c == nil {
		return ErrClientNotReady
	}

	c.mu.RLock()
	gen := c.generation
	signedIn := c.state == StateSignedIn
	username := c.session.Username
	geometry := c.geometry
	c.mu.RUnlock()
	if !signedIn {
		err := c.notAuthenticated(op)
		c.emitAudit(ctx, AuditUpdateSession, "", err, nil)
		return err
	}

	payload, err := c.execute(ctx, op, RequestDescriptor{
		Endpoint:          EndpointAllUpdates,
		Params:            geometryParams(geometry),
		RequiresSignature: true,
		RequiresSession:   true,
	})
	if err != nil {
		c.emitAudit(ctx, AuditUpdateSession, username, err, nil)
		return err
	}

	update, perr := flows.ParseSessionUpdate(payload.Body)
	if perr != nil {
		err := remoteError(op, perr)
		c.emitAudit(ctx, AuditUpdateSession, username, err, nil)
		return err
	}

	now := c.now()
	c.mu.Lock()
	if c.generation != gen || c.state != StateSignedIn {
		c.mu.Unlock()
		c.metricInc(MetricSupersededCommit)
		err := newError(KindCanceled, op, ErrSuperseded)
		c.emitAudit(ctx, AuditUpdateSession, username, err, nil)
		return err
	}
	c.session.Account = accountFromUpdate(update, now)
	if update.AuthToken != "" && update.AuthToken != c.session.AuthToken {
		c.session.AuthToken = update.AuthToken
		c.session.IssuedAt = now
	}
	c.session = c.session.WithDeviceTokens(update.DeviceToken1i, update.DeviceToken1v)
	c.mu.Unlock()

	c.metricInc(MetricSessionUpdate)
	c.emitAudit(ctx, AuditUpdateSession, username, nil, nil)
	return nil
}

// adoptSession installs a session returned outside SignIn, such as by
// username registration.
func (c *Client) adoptSession(ctx context.Context, username string, update flows.SessionUpdate) {
	gen := c.beginLifecycle(StateAuthenticating)
	c.clearCache(ctx)

	token1i, token1v := c.deviceTokens()
	now := c.now()
	s := session.New(username, update.AuthToken, now).
		WithDeviceTokens(token1i, token1v).
		WithDeviceTokens(update.DeviceToken1i, update.DeviceToken1v)
	s.Account = accountFromUpdate(update, now)
	if !c.commit(gen, s) {
		c.metricInc(MetricSupersededCommit)
		return
	}
	c.logger.Debug("session adopted", "username", s.Username)
}

func accountFromUpdate(u flows.SessionUpdate, now time.Time) session.Account {
	return session.Account{
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		Score:        u.Score,
		Received:     u.Received,
		Sent:         u.Sent,
		UpdatedAt:    now,
	}
}

func geometryParams(g session.Geometry) map[string]string {
	return map[string]string{
		"screen_width":     strconv.Itoa(g.ScreenSize.Width),
		"screen_height":    strconv.Itoa(g.ScreenSize.Height),
		"max_video_width":  strconv.Itoa(g.MaxVideoSize.Width),
		"max_video_height": strconv.Itoa(g.MaxVideoSize.Height),
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

var errBlankInput = errors.New("input must not be blank")
