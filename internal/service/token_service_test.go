package service_test

import (
	"path/filepath"
	"testing"
	"time"

	"oidcgate/internal/model"
	"oidcgate/internal/service"

	"gotest.tools/v3/assert"
)

func TestMintAndValidateToken(t *testing.T) {
	tokens := newTestTokenService(t)

	session, err := tokens.MintToken(model.User{
		ID:    42,
		Email: "jane@example.com",
		Name:  "Jane Doe",
		Roles: `["user","admin"]`,
	})
	assert.NilError(t, err)
	assert.Assert(t, session.Token != "")
	assert.Assert(t, session.Expires > time.Now().Unix())

	userContext, err := tokens.ValidateToken(session.Token)
	assert.NilError(t, err)
	assert.Equal(t, uint(42), userContext.UserID)
	assert.Equal(t, "jane@example.com", userContext.Email)
	assert.Equal(t, "Jane Doe", userContext.Name)
	assert.Assert(t, userContext.IsLoggedIn)
	assert.Assert(t, userContext.HasRole("user"))
	assert.Assert(t, userContext.HasRole("admin"))
	assert.Assert(t, !userContext.HasRole("root"))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	tokens := newTestTokenService(t)

	_, err := tokens.ValidateToken("not-a-token")
	assert.Assert(t, err != nil)
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	tokens := newTestTokenService(t)
	other := newTestTokenService(t)

	session, err := other.MintToken(model.User{ID: 1, Email: "jane@example.com", Roles: "[]"})
	assert.NilError(t, err)

	_, err = tokens.ValidateToken(session.Token)
	assert.Assert(t, err != nil)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	minter := service.NewTokenService(service.TokenServiceConfig{
		Issuer:        "https://other.example.com",
		SessionExpiry: 3600,
	})
	assert.NilError(t, minter.Init())

	session, err := minter.MintToken(model.User{ID: 1, Email: "jane@example.com", Roles: "[]"})
	assert.NilError(t, err)

	tokens := newTestTokenService(t)
	_, err = tokens.ValidateToken(session.Token)
	assert.Assert(t, err != nil)
}

func TestSigningKeyPersistsAcrossRestarts(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "session.pem")

	first := service.NewTokenService(service.TokenServiceConfig{
		Issuer:        "https://app.example.com",
		SessionExpiry: 3600,
		KeyPath:       keyPath,
	})
	assert.NilError(t, first.Init())

	session, err := first.MintToken(model.User{ID: 7, Email: "jane@example.com", Roles: `["user"]`})
	assert.NilError(t, err)

	second := service.NewTokenService(service.TokenServiceConfig{
		Issuer:        "https://app.example.com",
		SessionExpiry: 3600,
		KeyPath:       keyPath,
	})
	assert.NilError(t, second.Init())

	// Tokens minted before the restart are still valid after it.
	userContext, err := second.ValidateToken(session.Token)
	assert.NilError(t, err)
	assert.Equal(t, uint(7), userContext.UserID)
}

func TestMintTokenHandlesBrokenRoles(t *testing.T) {
	tokens := newTestTokenService(t)

	session, err := tokens.MintToken(model.User{ID: 3, Email: "jane@example.com", Roles: "not json"})
	assert.NilError(t, err)

	userContext, err := tokens.ValidateToken(session.Token)
	assert.NilError(t, err)
	assert.Equal(t, 0, len(userContext.Roles))
}
