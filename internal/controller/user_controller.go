package controller

import (
	"oidcgate/internal/config"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	router *gin.RouterGroup
}

func NewUserController(router *gin.RouterGroup) *UserController {
	return &UserController{
		router: router,
	}
}

func (controller *UserController) SetupRoutes() {
	controller.router.GET("/user", controller.userHandler)
}

// userHandler returns the user context resolved from the session token.
func (controller *UserController) userHandler(c *gin.Context) {
	ctxAny, exists := c.Get("context")

	if !exists {
		c.JSON(401, gin.H{
			"status":  401,
			"message": "Unauthorized",
		})
		return
	}

	userContext, ok := ctxAny.(*config.UserContext)

	if !ok || !userContext.IsLoggedIn {
		c.JSON(401, gin.H{
			"status":  401,
			"message": "Unauthorized",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  200,
		"message": "OK",
		"user": gin.H{
			"id":    userContext.UserID,
			"email": userContext.Email,
			"name":  userContext.Name,
			"roles": userContext.Roles,
		},
	})
}
