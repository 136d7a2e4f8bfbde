package registrations

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/response"
)

// ImportRequest is the body for POST /api/registrations/import.
type ImportRequest struct {
	Registrations []models.RegistrationRecord `json:"registrations"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /api/registrations?status=&q=. Stats always cover the whole table.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.ValidRegistrationStatus(status) {
		response.BadRequest(c, "Invalid status filter")
		return
	}
	all, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load registrations")
		return
	}
	response.OK(c, "", gin.H{
		"registrations": directory.FilterRegistrations(all, status, c.Query("q")),
		"stats":         directory.RegistrationStats(all),
	})
}

// Import handles POST /api/registrations/import.
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid JSON input: "+err.Error())
		return
	}
	if req.Registrations == nil {
		response.BadRequest(c, "Missing or invalid registrations array")
		return
	}
	ctx := c.Request.Context()
	res, err := h.repo.ImportBatch(ctx, req.Registrations)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to import registrations")
		return
	}
	all, err := h.repo.List(ctx)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load registrations")
		return
	}
	h.logger.Info("registrations imported",
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)),
		zap.Int("total", res.TotalProcessed),
	)
	response.OK(c, "", gin.H{
		"updated":         res.Updated,
		"errors":          res.Errors,
		"total_processed": res.TotalProcessed,
		"stats":           directory.RegistrationStats(all),
	})
}
