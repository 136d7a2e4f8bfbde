package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benasque-conf/participants/pkg/apperr"
)

// Body is the envelope for responses that carry only a status and message.
// Payload fields are merged next to success/message by OK.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OK sends a 200 JSON response. Payload keys are flattened into the envelope.
func OK(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		if k == "success" {
			continue
		}
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// BadRequest sends 400 with a message. Every failure uses this status.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Message: message})
}

// Error maps err to a failure envelope. Known kinds keep their message; anything else
// is logged and reported with fallback so store internals do not leak to clients.
func Error(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	if msg, ok := apperr.Message(err); ok {
		BadRequest(c, msg)
		return
	}
	if logger != nil {
		logger.Error(fallback, zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	BadRequest(c, fallback)
}
