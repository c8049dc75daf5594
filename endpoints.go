package goSnap

// Service endpoints, relative to Config.Endpoint.BaseURL.
const (
	EndpointLogin            = "/loq/login"
	EndpointLogout           = "/ph/logout"
	EndpointAllUpdates       = "/loq/all_updates"
	EndpointRegister         = "/loq/register"
	EndpointRegisterUsername = "/loq/register_username"
	EndpointPhoneVerify      = "/bq/phone_verify"
	EndpointGetCaptcha       = "/bq/get_captcha"
	EndpointSolveCaptcha     = "/bq/solve_captcha"
	EndpointSend             = "/loq/send"
	EndpointUpdateSnaps      = "/bq/update_snaps"
	EndpointBlob             = "/bq/blob"
)
