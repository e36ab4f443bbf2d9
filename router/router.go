// Package router wires handlers and middleware into the Gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/risiti/risiti-backend/config"
	"github.com/risiti/risiti-backend/handlers"
	"github.com/risiti/risiti-backend/middleware"
	"github.com/risiti/risiti-backend/store"
)

// Dependencies holds everything required to set up the routes.
type Dependencies struct {
	Config         *config.Config
	DeviceStore    store.DeviceStore
	ReceiptHandler *handlers.ReceiptHandler
	TasksHandler   *handlers.TasksHandler
	StreamHandler  *handlers.StreamHandler
	HealthHandler  *handlers.HealthHandler
	Logger         *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health", deps.HealthHandler.ReadinessCheck)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Device ingress.
	deviceRoutes := r.Group("")
	deviceRoutes.Use(middleware.DeviceAuth(deps.DeviceStore))
	{
		deviceRoutes.POST("/receipt", deps.ReceiptHandler.SubmitReceipt)
	}

	// External runner trigger, gated by the shared secret in the handler.
	r.GET("/tasks/run", deps.TasksHandler.RunTasks)

	// Live status stream.
	streamRoutes := r.Group("/events")
	streamRoutes.Use(middleware.SSEMiddleware(middleware.SSEConfig{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
	}))
	{
		streamRoutes.GET("/stream", deps.StreamHandler.StreamEvents)
	}

	return r
}
