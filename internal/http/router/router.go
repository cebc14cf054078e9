package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ignatzorin/freelance-contracts/internal/config"
	"github.com/ignatzorin/freelance-contracts/internal/http/middleware"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-contracts/internal/service"
)

const serviceName = "freelance-contracts"

func SetupRouter(
	cfg *config.Config,
	log logrus.FieldLogger,
	contractHandler *handler.ContractHandler,
	orderHandler *handler.OrderHandler,
	disputeHandler *handler.DisputeHandler,
	healthHandler *handler.HealthHandler,
	tokenManager *service.TokenManager,
	rateStore limiter.Store,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokenManager))
	api.Use(middleware.RateLimitMiddleware(rateStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		api.POST("/contracts", contractHandler.CreateContract)
		api.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.GetContract)
		api.GET("/contracts/:id/events", middleware.UUIDValidator("id"), contractHandler.ListEvents)
		api.POST("/contracts/:id/accept", middleware.UUIDValidator("id"), contractHandler.AcceptContract)
		api.POST("/contracts/:id/reject", middleware.UUIDValidator("id"), contractHandler.RejectContract)
		api.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), contractHandler.CancelContract)
		api.POST("/contracts/:id/repair", middleware.UUIDValidator("id"), middleware.RequireAdmin(), contractHandler.RepairOrder)

		api.POST("/orders", orderHandler.PlaceOrder)
		api.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.GetOrder)
		api.GET("/orders/:id/events", middleware.UUIDValidator("id"), orderHandler.ListEvents)
		api.POST("/orders/:id/accept", middleware.UUIDValidator("id"), orderHandler.AcceptOrder)
		api.POST("/orders/:id/reject", middleware.UUIDValidator("id"), orderHandler.RejectOrder)
		api.POST("/orders/:id/deliveries", middleware.UUIDValidator("id"), orderHandler.SubmitDelivery)
		api.POST("/orders/:id/deliveries/:deliverableId/accept", middleware.UUIDValidator("id", "deliverableId"), orderHandler.AcceptDelivery)
		api.POST("/orders/:id/revisions", middleware.UUIDValidator("id"), orderHandler.RequestRevision)
		api.POST("/orders/:id/cancel", middleware.UUIDValidator("id"), orderHandler.CancelOrder)
	}

	// Служебные ручки подсистемы споров
	internal := r.Group("/internal")
	internal.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		internal.POST("/orders/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.EnterDispute)
		internal.POST("/orders/:id/disputes/:disputeId/resolve", middleware.UUIDValidator("id", "disputeId"), disputeHandler.ResolveDispute)
	}

	return r
}
