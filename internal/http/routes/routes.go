package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-webhook/internal/http/handlers"
	"github.com/phambaophuc/image-webhook/internal/http/middleware"
	"go.uber.org/zap"
)

const WebhookPath = "/webhook"

type Router struct {
	webhookHandler *handlers.WebhookHandler
	logger         *zap.Logger
}

func NewRouter(
	webhookHandler *handlers.WebhookHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		webhookHandler: webhookHandler,
		logger:         logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))

	// Every method is routed so the gate can answer 405 itself.
	router.Any(WebhookPath, middleware.WebhookGate(), r.webhookHandler.HandleWebhook)

	// Methods outside the standard set never reach the gate.
	router.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
	})

	return router
}
