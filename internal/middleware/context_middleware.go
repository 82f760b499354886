package middleware

import (
	"strings"

	"oidcgate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ContextMiddlewareConfig struct{}

// ContextMiddleware resolves the bearer session token into a user context
// for downstream handlers. Requests without a valid token simply continue
// without a context; handlers that need one enforce it themselves.
type ContextMiddleware struct {
	config ContextMiddlewareConfig
	tokens *service.TokenService
}

func NewContextMiddleware(config ContextMiddlewareConfig, tokens *service.TokenService) *ContextMiddleware {
	return &ContextMiddleware{
		config: config,
		tokens: tokens,
	}
}

func (m *ContextMiddleware) Init() error {
	return nil
}

func (m *ContextMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}

		userContext, err := m.tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))

		if err != nil {
			log.Debug().Err(err).Msg("Invalid session token")
			c.Next()
			return
		}

		c.Set("context", userContext)
		c.Next()
	}
}
