package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"oidcgate/internal/config"
	"oidcgate/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SettingsService owns the single OIDC configuration row. The meta column
// holds the configuration as JSON so the schema never changes when a field
// is added.

type SettingsService struct {
	database *gorm.DB
}

func NewSettingsService(database *gorm.DB) *SettingsService {
	return &SettingsService{
		database: database,
	}
}

// GetOIDCConfig returns the stored configuration or nil when none has been
// saved yet.
func (settings *SettingsService) GetOIDCConfig() (*config.OIDCConfig, error) {
	var row model.Setting

	err := settings.database.Where("id = ?", config.OIDCSettingID).First(&row).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load oidc settings: %w", err)
	}

	var cfg config.OIDCConfig

	if err := json.Unmarshal([]byte(row.Meta), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse oidc settings: %w", err)
	}

	return &cfg, nil
}

// SetOIDCConfig inserts or patches the configuration row.
func (settings *SettingsService) SetOIDCConfig(cfg config.OIDCConfig) error {
	meta, err := json.Marshal(cfg)

	if err != nil {
		return fmt.Errorf("failed to serialize oidc settings: %w", err)
	}

	var existing model.Setting

	err = settings.database.Where("id = ?", config.OIDCSettingID).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := model.Setting{
			ID:          config.OIDCSettingID,
			Name:        "OIDC Configuration",
			Description: "OpenID Connect authentication configuration",
			Meta:        string(meta),
		}
		if err := settings.database.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create oidc settings: %w", err)
		}
		log.Info().Msg("Created OIDC configuration")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to load oidc settings: %w", err)
	}

	err = settings.database.Model(&model.Setting{}).Where("id = ?", config.OIDCSettingID).Update("meta", string(meta)).Error

	if err != nil {
		return fmt.Errorf("failed to update oidc settings: %w", err)
	}

	log.Info().Msg("Updated OIDC configuration")
	return nil
}
