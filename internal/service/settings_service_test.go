package service_test

import (
	"testing"

	"oidcgate/internal/config"
	"oidcgate/internal/model"
	"oidcgate/internal/service"

	"gotest.tools/v3/assert"
)

func TestGetOIDCConfigAbsent(t *testing.T) {
	databaseService := newTestDatabase(t)
	settings := service.NewSettingsService(databaseService.GetDatabase())

	cfg, err := settings.GetOIDCConfig()
	assert.NilError(t, err)
	assert.Assert(t, cfg == nil)
}

func TestSetAndGetOIDCConfig(t *testing.T) {
	databaseService := newTestDatabase(t)
	settings := service.NewSettingsService(databaseService.GetDatabase())

	stored := config.OIDCConfig{
		Enabled:       true,
		IssuerURL:     "https://idp.example.com",
		ClientID:      "client",
		ClientSecret:  "secret",
		RedirectURI:   "https://app.example.com/login",
		Scope:         "openid email",
		AutoProvision: true,
		DefaultRole:   "user",
		ProviderName:  "corp-sso",
		ButtonText:    "Sign in with Corp SSO",
	}
	assert.NilError(t, settings.SetOIDCConfig(stored))

	cfg, err := settings.GetOIDCConfig()
	assert.NilError(t, err)
	assert.DeepEqual(t, stored, *cfg)
}

func TestSetOIDCConfigPatchesExistingRow(t *testing.T) {
	databaseService := newTestDatabase(t)
	database := databaseService.GetDatabase()
	settings := service.NewSettingsService(database)

	cfg := config.OIDCConfig{Enabled: true, IssuerURL: "https://idp.example.com"}
	assert.NilError(t, settings.SetOIDCConfig(cfg))

	cfg.IssuerURL = "https://other.example.com"
	assert.NilError(t, settings.SetOIDCConfig(cfg))

	loaded, err := settings.GetOIDCConfig()
	assert.NilError(t, err)
	assert.Equal(t, "https://other.example.com", loaded.IssuerURL)

	var count int64
	assert.NilError(t, database.Model(&model.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The descriptive columns survive a patch.
	var row model.Setting
	assert.NilError(t, database.Where("id = ?", config.OIDCSettingID).First(&row).Error)
	assert.Equal(t, "OIDC Configuration", row.Name)
}
