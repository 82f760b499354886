package controller

import (
	"errors"

	"oidcgate/internal/apperrors"
	"oidcgate/internal/config"
	"oidcgate/internal/service"
	"oidcgate/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OIDCControllerConfig struct{}

type OIDCController struct {
	config   OIDCControllerConfig
	router   *gin.RouterGroup
	settings *service.SettingsService
	clients  *service.OIDCClientService
	login    *service.LoginService
}

func NewOIDCController(config OIDCControllerConfig, router *gin.RouterGroup, settings *service.SettingsService, clients *service.OIDCClientService, login *service.LoginService) *OIDCController {
	return &OIDCController{
		config:   config,
		router:   router,
		settings: settings,
		clients:  clients,
		login:    login,
	}
}

func (controller *OIDCController) SetupRoutes() {
	oidcGroup := controller.router.Group("/oidc")
	oidcGroup.GET("/config", controller.configHandler)
	oidcGroup.PUT("/config", controller.updateConfigHandler)
	oidcGroup.POST("/test", controller.testConfigHandler)
	oidcGroup.GET("/authorize", controller.authorizeHandler)
	oidcGroup.POST("/callback", controller.callbackHandler)
}

// configHandler returns the public subset of the configuration, never the
// client secret.
func (controller *OIDCController) configHandler(c *gin.Context) {
	cfg, err := controller.settings.GetOIDCConfig()

	if err != nil {
		log.Error().Err(err).Msg("Failed to load OIDC configuration")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	if cfg == nil || !cfg.Enabled {
		c.JSON(200, gin.H{
			"enabled": false,
		})
		return
	}

	providerName := cfg.ProviderName
	if providerName == "" {
		providerName = "OIDC"
	}

	buttonText := cfg.ButtonText
	if buttonText == "" {
		buttonText = "Sign in with " + utils.Capitalize(providerName)
	}

	c.JSON(200, gin.H{
		"enabled":       true,
		"provider_name": providerName,
		"button_text":   buttonText,
	})
}

func (controller *OIDCController) updateConfigHandler(c *gin.Context) {
	if controller.requireAdmin(c) == nil {
		return
	}

	var cfg config.OIDCConfig

	if err := c.ShouldBindJSON(&cfg); err != nil {
		log.Error().Err(err).Msg("Failed to bind OIDC configuration")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	if cfg.Enabled && missingRequiredFields(cfg) {
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Missing required OIDC configuration fields",
		})
		return
	}

	if err := controller.settings.SetOIDCConfig(cfg); err != nil {
		log.Error().Err(err).Msg("Failed to store OIDC configuration")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	controller.clients.Invalidate()

	cfg.ClientSecret = ""

	c.JSON(200, gin.H{
		"status":  200,
		"message": "OK",
		"config":  cfg,
	})
}

// testConfigHandler runs discovery for a candidate configuration without
// persisting anything.
func (controller *OIDCController) testConfigHandler(c *gin.Context) {
	if controller.requireAdmin(c) == nil {
		return
	}

	var cfg config.OIDCConfig

	if err := c.ShouldBindJSON(&cfg); err != nil {
		log.Error().Err(err).Msg("Failed to bind OIDC configuration")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	if missingRequiredFields(cfg) {
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Missing required OIDC configuration fields",
		})
		return
	}

	metadata, err := controller.clients.Test(c.Request.Context(), cfg)

	if err != nil {
		log.Warn().Err(err).Str("issuer", cfg.IssuerURL).Msg("OIDC configuration test failed")
		c.JSON(400, gin.H{
			"status":  400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"status":    200,
		"message":   "OK",
		"endpoints": metadata,
	})
}

func (controller *OIDCController) authorizeHandler(c *gin.Context) {
	attempt, err := controller.clients.BeginAuthorization(c.Request.Context())

	if err != nil {
		controller.handleError(c, err)
		return
	}

	c.JSON(200, attempt)
}

func (controller *OIDCController) callbackHandler(c *gin.Context) {
	var req service.CallbackRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Missing required callback parameters",
		})
		return
	}

	token, err := controller.login.HandleCallback(c.Request.Context(), req)

	if err != nil {
		controller.handleError(c, err)
		return
	}

	c.JSON(200, token)
}

func (controller *OIDCController) requireAdmin(c *gin.Context) *config.UserContext {
	ctxAny, exists := c.Get("context")

	if !exists {
		c.JSON(401, gin.H{
			"status":  401,
			"message": "Unauthorized",
		})
		return nil
	}

	userContext, ok := ctxAny.(*config.UserContext)

	if !ok || !userContext.IsLoggedIn {
		c.JSON(401, gin.H{
			"status":  401,
			"message": "Unauthorized",
		})
		return nil
	}

	if !userContext.HasRole("admin") {
		c.JSON(403, gin.H{
			"status":  403,
			"message": "Forbidden",
		})
		return nil
	}

	return userContext
}

func (controller *OIDCController) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrConfiguration):
		log.Warn().Err(err).Msg("OIDC request while not configured")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "OIDC is not properly configured",
		})
	case errors.Is(err, apperrors.ErrAuth):
		log.Warn().Err(err).Msg("OIDC login rejected")
		c.JSON(401, gin.H{
			"status":  401,
			"message": err.Error(),
		})
	case errors.Is(err, apperrors.ErrDiscovery), errors.Is(err, apperrors.ErrExchange), errors.Is(err, apperrors.ErrClaims):
		log.Error().Err(err).Msg("OIDC provider error")
		c.JSON(502, gin.H{
			"status":  502,
			"message": err.Error(),
		})
	default:
		log.Error().Err(err).Msg("OIDC callback error")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
	}
}

func missingRequiredFields(cfg config.OIDCConfig) bool {
	return cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == ""
}
