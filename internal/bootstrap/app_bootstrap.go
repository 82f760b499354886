package bootstrap

import (
	"fmt"

	"oidcgate/internal/config"

	"github.com/gin-gonic/gin"
)

type BootstrapApp struct {
	config   config.Config
	services Services
	router   *gin.Engine
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

func (app *BootstrapApp) Setup() error {
	services, err := app.initServices()

	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	router, err := app.setupRouter()

	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	app.router = router
	return nil
}

func (app *BootstrapApp) Start() error {
	return app.router.Run(fmt.Sprintf("%s:%d", app.config.Address, app.config.Port))
}

func (app *BootstrapApp) Router() *gin.Engine {
	return app.router
}
