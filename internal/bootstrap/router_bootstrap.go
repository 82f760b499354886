package bootstrap

import (
	"fmt"
	"strings"

	"oidcgate/internal/controller"
	"oidcgate/internal/middleware"

	"github.com/gin-gonic/gin"
)

func (app *BootstrapApp) setupRouter() (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if len(app.config.TrustedProxies) > 0 {
		err := engine.SetTrustedProxies(strings.Split(app.config.TrustedProxies, ","))

		if err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	contextMiddleware := middleware.NewContextMiddleware(middleware.ContextMiddlewareConfig{}, app.services.tokenService)

	err := contextMiddleware.Init()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize context middleware: %w", err)
	}

	engine.Use(contextMiddleware.Middleware())

	zerologMiddleware := middleware.NewZerologMiddleware()

	err = zerologMiddleware.Init()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize zerolog middleware: %w", err)
	}

	engine.Use(zerologMiddleware.Middleware())

	apiRouter := engine.Group("/api")

	oidcController := controller.NewOIDCController(controller.OIDCControllerConfig{}, apiRouter, app.services.settingsService, app.services.clientService, app.services.loginService)
	oidcController.SetupRoutes()

	userController := controller.NewUserController(apiRouter)
	userController.SetupRoutes()

	healthController := controller.NewHealthController(apiRouter)
	healthController.SetupRoutes()

	return engine, nil
}
