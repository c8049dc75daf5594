package goSnap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/MrEthical07/goSnap/internal/flows"
)

// RegistrationStep is the outstanding step of a Registration.
type RegistrationStep int

const (
	RegistrationNotStarted RegistrationStep = iota
	RegistrationEmailRegistered
	RegistrationUsernameClaimed
	RegistrationPhoneSubmitted
	RegistrationCaptchaPending
	RegistrationVerified
)

func (s RegistrationStep) String() string {
	switch s {
	case RegistrationNotStarted:
		return "not_started"
	case RegistrationEmailRegistered:
		return "email_registered"
	case RegistrationUsernameClaimed:
		return "username_claimed"
	case RegistrationPhoneSubmitted:
		return "phone_submitted"
	case RegistrationCaptchaPending:
		return "captcha_pending"
	case RegistrationVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Verification channels of a submitted phone number.
const (
	ChannelSMS  = "sms"
	ChannelCall = "call"
)

// EmailRegistration is the result of RegisterEmail.
type EmailRegistration struct {
	Email               string
	PhoneHint           string
	UsernameSuggestions []string
}

// RegistrationState is a snapshot of a Registration. Fields are populated
// by the step that produced them and carried forward.
type RegistrationState struct {
	Step RegistrationStep

	// EmailRegistered
	Email               string
	PhoneHint           string
	UsernameSuggestions []string

	// UsernameClaimed
	Username string

	// PhoneSubmitted
	PhoneNumber         string
	VerificationChannel string

	// CaptchaPending
	CaptchaID     string
	CaptchaImages [][]byte
}

func (s RegistrationState) clone() RegistrationState {
	out := s
	out.UsernameSuggestions = append([]string(nil), s.UsernameSuggestions...)
	out.CaptchaImages = cloneImages(s.CaptchaImages)
	return out
}

func cloneImages(images [][]byte) [][]byte {
	if images == nil {
		return nil
	}
	out := make([][]byte, len(images))
	for i, img := range images {
		out[i] = append([]byte(nil), img...)
	}
	return out
}

// Registration sequences account creation against a Client. Steps must run
// in order and one at a time; an out-of-order or overlapping step fails with
// KindPreconditionViolation before any I/O. A failed step leaves the state
// unchanged so it can be retried.
type Registration struct {
	client *Client

	mu    sync.Mutex
	busy  bool
	state RegistrationState
}

// NewRegistration starts a registration in RegistrationNotStarted.
func (c *Client) NewRegistration() *Registration {
	return &Registration{client: c}
}

// State returns a copy of the registration state.
func (r *Registration) State() RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// begin claims the registration for op if the current step is one of
// allowed, returning a snapshot of the state.
func (r *Registration) begin(op string, allowed ...RegistrationStep) (RegistrationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return RegistrationState{}, r.client.precondition(op, ErrRegistrationBusy)
	}
	for _, step := range allowed {
		if r.state.Step == step {
			r.busy = true
			return r.state.clone(), nil
		}
	}
	return RegistrationState{}, r.client.precondition(op, fmt.Errorf("%w: %s is not valid from %s", ErrRegistrationOrder, op, r.state.Step))
}

// finish releases the registration, applying advance when the step succeeded.
func (r *Registration) finish(ctx context.Context, op string, err error, advance func(*RegistrationState)) {
	r.mu.Lock()
	if err == nil && advance != nil {
		advance(&r.state)
	}
	r.busy = false
	step := r.state.Step
	r.mu.Unlock()

	c := r.client
	if err != nil {
		c.metricInc(MetricRegistrationStepFailure)
	} else {
		c.metricInc(MetricRegistrationStepSuccess)
		c.logger.Debug("registration advanced", "op", op, "step", step.String())
	}
	c.emitAudit(ctx, AuditRegistration, "", err, func() map[string]string {
		return map[string]string{"op": op, "step": step.String()}
	})
}

// RegisterEmail is valid from RegistrationNotStarted. birthday is formatted
// YYYY-MM-DD. On success the registration moves to RegistrationEmailRegistered.
func (r *Registration) RegisterEmail(ctx context.Context, email, password, birthday string) (EmailRegistration, error) {
	const op = "register_email"
	c := r.client

	if _, err := r.begin(op, RegistrationNotStarted); err != nil {
		return EmailRegistration{}, err
	}

	var result EmailRegistration
	err := func() error {
		email = strings.TrimSpace(email)
		if email == "" || password == "" {
			return c.precondition(op, ErrEmptyCredentials)
		}
		age, err := flows.AgeOn(birthday, c.now())
		if err != nil {
			return c.precondition(op, err)
		}

		payload, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint: EndpointRegister,
			Params: map[string]string{
				"email":    email,
				"password": password,
				"birthday": birthday,
				"age":      strconv.Itoa(age),
			},
			RequiresSignature: true,
		})
		if err != nil {
			return err
		}
		parsed, err := flows.ParseEmailRegistration(payload.Body)
		if err != nil {
			return remoteError(op, err)
		}
		result = EmailRegistration{
			Email:               parsed.Email,
			PhoneHint:           parsed.PhoneHint,
			UsernameSuggestions: parsed.UsernameSuggestions,
		}
		if result.Email == "" {
			result.Email = email
		}
		return nil
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationEmailRegistered
		s.Email = result.Email
		s.PhoneHint = result.PhoneHint
		s.UsernameSuggestions = append([]string(nil), result.UsernameSuggestions...)
	})
	if err != nil {
		return EmailRegistration{}, err
	}
	return result, nil
}

// RegisterUsername is valid from RegistrationEmailRegistered. username is
// truncated to its first 15 characters before submission. email must match
// the registered email; an empty email uses it. When the response carries an
// auth token the client adopts the new account's session.
func (r *Registration) RegisterUsername(ctx context.Context, username, email, gmail, gmailPassword string) error {
	const op = "register_username"
	c := r.client

	state, err := r.begin(op, RegistrationEmailRegistered)
	if err != nil {
		return err
	}

	var claimed string
	err = func() error {
		if email = strings.TrimSpace(email); email == "" {
			email = state.Email
		}
		if !strings.EqualFold(email, state.Email) {
			return c.precondition(op, ErrEmailMismatch)
		}
		if isBlank(username) {
			return c.precondition(op, errBlankInput)
		}
		claimed = flows.TruncateUsername(strings.TrimSpace(username))

		params := map[string]string{
			"username":          claimed,
			"selected_username": claimed,
			"email":             email,
		}
		if gmail != "" {
			params["gmail"] = gmail
		}
		if gmailPassword != "" {
			params["gmail_password"] = gmailPassword
		}

		payload, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint:          EndpointRegisterUsername,
			Params:            params,
			RequiresSignature: true,
		})
		if err != nil {
			return err
		}
		update, err := flows.ParseSessionUpdate(payload.Body)
		if err != nil {
			return remoteError(op, err)
		}
		if update.AuthToken != "" {
			c.adoptSession(ctx, claimed, update)
		}
		return nil
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationUsernameClaimed
		s.Username = strings.ToLower(claimed)
	})
	return err
}

// SendPhoneVerification is valid from RegistrationUsernameClaimed, and from
// RegistrationPhoneSubmitted to resend a code. Formatting punctuation is
// stripped from mobile and a missing country code defaults to
// Config.Session.DefaultCountryCode. The service payload is returned as-is.
func (r *Registration) SendPhoneVerification(ctx context.Context, mobile string, viaSMS bool) (map[string]any, error) {
	const op = "send_phone_verification"
	c := r.client

	if _, err := r.begin(op, RegistrationUsernameClaimed, RegistrationPhoneSubmitted); err != nil {
		return nil, err
	}

	var (
		result  map[string]any
		phone   string
		channel = ChannelCall
	)
	if viaSMS {
		channel = ChannelSMS
	}
	err := func() error {
		countryCode, number, err := flows.NormalizePhone(mobile, c.config.Session.DefaultCountryCode)
		if err != nil {
			return c.precondition(op, err)
		}
		phone = "+" + countryCode + number

		action := "updatePhoneNumberWithCall"
		if viaSMS {
			action = "updatePhoneNumber"
		}
		payload, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint: EndpointPhoneVerify,
			Params: map[string]string{
				"action":           action,
				"phoneNumber":      number,
				"countryCode":      countryCode,
				"skipConfirmation": "true",
			},
			RequiresSignature: true,
			RequiresSession:   true,
		})
		if err != nil {
			return err
		}
		result, err = flows.ParseOpaque(payload.Body)
		if err != nil {
			return remoteError(op, err)
		}
		return nil
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationPhoneSubmitted
		s.PhoneNumber = phone
		s.VerificationChannel = channel
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyPhoneNumberWithCode is valid from RegistrationPhoneSubmitted and
// moves the registration to RegistrationVerified.
func (r *Registration) VerifyPhoneNumberWithCode(ctx context.Context, code string) error {
	const op = "verify_phone_number"
	c := r.client

	if _, err := r.begin(op, RegistrationPhoneSubmitted); err != nil {
		return err
	}

	err := func() error {
		code = strings.TrimSpace(code)
		if code == "" {
			return c.precondition(op, errBlankInput)
		}
		_, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint: EndpointPhoneVerify,
			Params: map[string]string{
				"action": "verifyPhoneNumber",
				"code":   code,
				"type":   "DEFAULT_TYPE",
			},
			RequiresSignature: true,
			RequiresSession:   true,
		})
		return err
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationVerified
	})
	return err
}

// GetCaptcha is valid from RegistrationUsernameClaimed, and from
// RegistrationCaptchaPending to fetch a new challenge. It returns the nine
// captcha images in order.
func (r *Registration) GetCaptcha(ctx context.Context) ([][]byte, error) {
	const op = "get_captcha"
	c := r.client

	if _, err := r.begin(op, RegistrationUsernameClaimed, RegistrationCaptchaPending); err != nil {
		return nil, err
	}

	var (
		images [][]byte
		id     string
	)
	err := func() error {
		payload, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint:          EndpointGetCaptcha,
			RequiresSignature: true,
			RequiresSession:   true,
			Binary:            true,
		})
		if err != nil {
			return err
		}
		id = flows.CaptchaIDFromDisposition(payload.Header.Get("Content-Disposition"))
		if id == "" {
			return &Error{Kind: KindRemoteRejected, Op: op, Detail: "captcha response carries no captcha id"}
		}
		images, err = flows.UnzipCaptcha(payload.Body)
		if err != nil {
			return remoteError(op, err)
		}
		return nil
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationCaptchaPending
		s.CaptchaID = id
		s.CaptchaImages = images
	})
	if err != nil {
		return nil, err
	}
	return cloneImages(images), nil
}

// SolveCaptchaWithSolution is valid from RegistrationCaptchaPending.
// solution has one character per captcha image: '1' flags the image and '0'
// leaves it. Acceptance moves the registration to RegistrationVerified.
func (r *Registration) SolveCaptchaWithSolution(ctx context.Context, solution string) (map[string]any, error) {
	const op = "solve_captcha"
	c := r.client

	state, err := r.begin(op, RegistrationCaptchaPending)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	err = func() error {
		if err := flows.ValidateCaptchaSolution(solution); err != nil {
			return c.precondition(op, err)
		}
		payload, err := c.execute(ctx, op, RequestDescriptor{
			Endpoint: EndpointSolveCaptcha,
			Params: map[string]string{
				"captcha_id":       state.CaptchaID,
				"captcha_solution": solution,
			},
			RequiresSignature: true,
			RequiresSession:   true,
		})
		if err != nil {
			return err
		}
		result, err = flows.ParseOpaque(payload.Body)
		if err != nil {
			return remoteError(op, err)
		}
		return nil
	}()

	r.finish(ctx, op, err, func(s *RegistrationState) {
		s.Step = RegistrationVerified
		s.CaptchaImages = nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
