// Package apperrors holds the error taxonomy shared between the services and
// the HTTP layer. Services wrap these sentinels with context and controllers
// map them to status codes with errors.Is.
package apperrors

import (
	"errors"
)

var (
	// ErrConfiguration means OIDC is disabled or the stored configuration is
	// unusable. The feature is unavailable until an admin fixes it.
	ErrConfiguration = errors.New("oidc is not configured or enabled")

	// ErrDiscovery means the issuer metadata could not be fetched.
	ErrDiscovery = errors.New("issuer discovery failed")

	// ErrExchange covers token endpoint failures other than invalid_grant.
	ErrExchange = errors.New("code exchange failed")

	// ErrAuth covers login failures caused by the caller or an expired code:
	// invalid nonce, invalid/expired code, provisioning disabled.
	ErrAuth = errors.New("authentication failed")

	// ErrClaims means the provider never supplied an email for the subject.
	ErrClaims = errors.New("provider did not supply required claims")

	// ErrMissingIssParam is the classified failure for providers that omit
	// the iss parameter from the authorization response even though their
	// metadata advertises RFC 9207 support. It triggers exactly one direct
	// grant retry and never leaves the login service.
	ErrMissingIssParam = errors.New("iss missing from authorization response")

	// ErrMissingIDToken means the token response carried no id_token.
	ErrMissingIDToken = errors.New("id_token missing from token response")
)
