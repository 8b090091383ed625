package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-webhook/internal/errorlog"
	"github.com/phambaophuc/image-webhook/internal/models"
	"go.uber.org/zap"
)

const responseOK = "OK"

// FormProcessor consumes one multipart submission.
type FormProcessor interface {
	Process(ctx context.Context, r *multipart.Reader) models.Outcome
}

type WebhookHandler struct {
	processor   FormProcessor
	errors      *errorlog.Store
	logger      *zap.Logger
	maxBodySize int64
}

func NewWebhookHandler(
	processor FormProcessor,
	errors *errorlog.Store,
	logger *zap.Logger,
	maxBodySize int64,
) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		errors:      errors,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// HandleWebhook always answers 200 "OK". Callers cannot tell a saved image
// from a rejected one; rejections and failures land in the error log.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	// Once the gate has passed, processing outlives a client disconnect.
	ctx := context.WithoutCancel(c.Request.Context())

	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}

	var outcome models.Outcome
	reader, err := c.Request.MultipartReader()
	if err != nil {
		outcome = models.Failed(nil, fmt.Errorf("invalid multipart request: %w", err))
	} else {
		outcome = h.processor.Process(ctx, reader)
	}

	if outcome.Recordable() {
		h.errors.Record(ctx, errorlog.KeyProcessForm, outcome.Message)
	}

	h.logger.Debug("Webhook processed", zap.Stringer("outcome", outcome.Kind))

	c.String(http.StatusOK, responseOK)
}
