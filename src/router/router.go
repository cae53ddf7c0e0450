package router

import (
	"capsule-service/src/controller"
	"capsule-service/src/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter sets up the gin engine for the capsule service: the flip-challenge
// routes, a health probe, and the swagger UI.
func NewRouter(sc *controller.SessionController, limiter *middleware.SampleRateLimiter, log *logrus.Logger) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	flip := router.Group("/flip")
	{
		flip.POST("/sessions", sc.StartSession)
		flip.POST("/sessions/:id/samples", limiter.Middleware(), sc.IngestSample)
		flip.GET("/sessions/:id", sc.GetStatus)
		flip.DELETE("/sessions/:id", func(c *gin.Context) {
			sc.EndSession(c)
			limiter.Forget(c.Param("id"))
		})
		flip.POST("/capabilities", sc.CheckCapabilities)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Info("Registered flip challenge routes")
	return router
}
