package service

import (
	"context"
	"fmt"
	"net/http"

	"oidcgate/internal/apperrors"
	"oidcgate/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderMetadata is the subset of the discovery document the service needs
// beyond what go-oidc exposes directly.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	IssParameterSupported bool   `json:"authorization_response_iss_parameter_supported"`
}

// ProviderClient binds one configuration snapshot to its discovered issuer.
// It is immutable once constructed, so concurrent logins can share an
// instance without locking even while the cache slot is being replaced.
type ProviderClient struct {
	fingerprint string
	provider    *oidc.Provider
	verifier    *oidc.IDTokenVerifier
	oauth       oauth2.Config
	metadata    ProviderMetadata
	httpClient  *http.Client
}

func (client *ProviderClient) Fingerprint() string {
	return client.fingerprint
}

func (client *ProviderClient) Metadata() ProviderMetadata {
	return client.metadata
}

// AuthCodeURL builds the authorization URL for a PKCE code flow. The caller
// supplies the raw verifier; the S256 challenge is derived here.
func (client *ProviderClient) AuthCodeURL(state string, nonce string, verifier string) string {
	return client.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce))
}

// Exchange validates the authorization response parameters and then performs
// the code exchange. When the provider advertises RFC 9207 support but the
// caller echoed no iss value, it fails with ErrMissingIssParam so the login
// service can fall back to a direct Grant call.
func (client *ProviderClient) Exchange(ctx context.Context, code string, verifier string, redirectURI string, iss string) (*oauth2.Token, error) {
	if err := client.validateAuthorizationResponse(iss); err != nil {
		return nil, err
	}
	return client.Grant(ctx, code, verifier, redirectURI)
}

// Grant calls the token endpoint directly with the authorization_code grant
// and the PKCE verifier, skipping authorization response validation.
func (client *ProviderClient) Grant(ctx context.Context, code string, verifier string, redirectURI string) (*oauth2.Token, error) {
	cfg := client.oauth
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return cfg.Exchange(client.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
}

func (client *ProviderClient) validateAuthorizationResponse(iss string) error {
	if iss == "" {
		if client.metadata.IssParameterSupported {
			return apperrors.ErrMissingIssParam
		}
		return nil
	}
	if iss != client.metadata.Issuer {
		return fmt.Errorf("%w: iss mismatch in authorization response", apperrors.ErrAuth)
	}
	return nil
}

// VerifyIDToken extracts the id_token from the token response and verifies
// its signature, issuer and audience against the discovered metadata.
func (client *ProviderClient) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*oidc.IDToken, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperrors.ErrMissingIDToken
	}
	return client.verifier.Verify(oidc.ClientContext(ctx, client.httpClient), raw)
}

// Userinfo fetches claims from the userinfo endpoint with the access token.
func (client *ProviderClient) Userinfo(ctx context.Context, token *oauth2.Token) (config.Claims, error) {
	var claims config.Claims

	info, err := client.provider.UserInfo(oidc.ClientContext(ctx, client.httpClient), oauth2.StaticTokenSource(token))
	if err != nil {
		return claims, err
	}

	if err := info.Claims(&claims); err != nil {
		return claims, err
	}

	return claims, nil
}

func (client *ProviderClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client.httpClient)
}
