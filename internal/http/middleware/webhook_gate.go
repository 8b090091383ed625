package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const multipartFormData = "multipart/form-data"

// WebhookGate rejects anything that is not a multipart POST before the body
// is touched: 405 for other methods, 400 for a missing or foreign
// Content-Type. Both answers carry an empty body.
func WebhookGate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost {
			ctx.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}

		// Substring match, the boundary parameter is not inspected here.
		if !strings.Contains(ctx.GetHeader("Content-Type"), multipartFormData) {
			ctx.AbortWithStatus(http.StatusBadRequest)
			return
		}

		ctx.Next()
	}
}
