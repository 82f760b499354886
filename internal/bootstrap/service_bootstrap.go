package bootstrap

import (
	"oidcgate/internal/service"
)

type Services struct {
	databaseService *service.DatabaseService
	settingsService *service.SettingsService
	clientService   *service.OIDCClientService
	tokenService    *service.TokenService
	loginService    *service.LoginService
}

func (app *BootstrapApp) initServices() (Services, error) {
	services := Services{}

	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: app.config.DatabasePath,
	})

	err := databaseService.Init()

	if err != nil {
		return Services{}, err
	}

	services.databaseService = databaseService

	settingsService := service.NewSettingsService(databaseService.GetDatabase())
	services.settingsService = settingsService

	clientService := service.NewOIDCClientService(settingsService)
	services.clientService = clientService

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		Issuer:        app.config.AppURL,
		SessionExpiry: app.config.SessionExpiry,
		KeyPath:       app.config.JWTKeyPath,
	})

	err = tokenService.Init()

	if err != nil {
		return Services{}, err
	}

	services.tokenService = tokenService

	loginService := service.NewLoginService(clientService, settingsService, tokenService, databaseService.GetDatabase())
	services.loginService = loginService

	return services, nil
}
