package controller

import (
	"github.com/gin-gonic/gin"
)

type HealthController struct {
	router *gin.RouterGroup
}

func NewHealthController(router *gin.RouterGroup) *HealthController {
	return &HealthController{
		router: router,
	}
}

func (controller *HealthController) SetupRoutes() {
	controller.router.GET("/healthcheck", controller.healthcheckHandler)
	controller.router.HEAD("/healthcheck", controller.healthcheckHandler)
}

func (controller *HealthController) healthcheckHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  200,
		"message": "OK",
	})
}
