package talks

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/internal/realtime"
	"github.com/benasque-conf/participants/pkg/response"
)

// EventStatusChanged is published on realtime.TopicTalks after each successful decision.
const EventStatusChanged = "talk_status_changed"

// StatusRequest is the form for POST /api/talks/status.
// Acceptance values are "1", "0" or "" (pending).
type StatusRequest struct {
	Email      string `form:"email" binding:"required"`
	Accepted   string `form:"talk_contributed_accepted"`
	Expected   string `form:"expected_contributed_accepted"`
	SnapshotAt string `form:"snapshot_at"`
}

// Publisher fans events out to connected admin views.
type Publisher interface {
	Publish(topic, event string, payload interface{})
}

// Handler handles talk HTTP endpoints.
type Handler struct {
	repo   *Repository
	pub    Publisher
	logger *zap.Logger
}

// NewHandler creates a talks handler. pub may be nil.
func NewHandler(repo *Repository, pub Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, pub: pub, logger: logger}
}

// UpdateStatus handles POST /api/talks/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Email is required")
		return
	}
	value, err := models.ParseAcceptance(req.Accepted)
	if err != nil {
		response.BadRequest(c, "Invalid contributed acceptance status value")
		return
	}
	expected, err := models.ParseAcceptance(req.Expected)
	if err != nil {
		response.BadRequest(c, "Invalid expected acceptance status value")
		return
	}
	var snapshot int64
	if s := strings.TrimSpace(req.SnapshotAt); s != "" {
		if snapshot, err = strconv.ParseInt(s, 10, 64); err != nil {
			response.BadRequest(c, "Invalid snapshot_at")
			return
		}
	}
	email := strings.TrimSpace(req.Email)

	res, err := h.repo.UpdateContributedStatus(c.Request.Context(), email, value, expected, snapshot)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to update talk status")
		return
	}
	h.logger.Info("contributed talk status changed",
		zap.String("email", email),
		zap.Stringer("from", expected),
		zap.Stringer("to", value),
		zap.Bool("reload_needed", res.ReloadNeeded))
	if h.pub != nil {
		h.pub.Publish(realtime.TopicTalks, EventStatusChanged, models.TalkStatusEvent{
			Email:                   email,
			TalkContributedAccepted: value,
			ChangedAt:               res.ChangedAt,
		})
	}
	response.OK(c, "Talk status updated successfully", gin.H{
		"reload_needed": res.ReloadNeeded,
		"changed_at":    res.ChangedAt,
	})
}

// List handles GET /api/talks?filter=&sort=.
func (h *Handler) List(c *gin.Context) {
	filter := c.DefaultQuery("filter", directory.TalkFilterAll)
	if !directory.ValidTalkFilter(filter) {
		response.BadRequest(c, "Unknown filter")
		return
	}
	snapshot := h.repo.Now()
	all, err := h.repo.ListSubmissions(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load talks")
		return
	}
	response.OK(c, "", gin.H{
		"talks":       directory.FilterTalks(all, filter, c.DefaultQuery("sort", directory.TalkSortName)),
		"stats":       directory.ComputeTalkStats(all),
		"snapshot_at": snapshot,
	})
}

// ExportCSV handles GET /api/talks/export.csv?filter=&sort=.
func (h *Handler) ExportCSV(c *gin.Context) {
	filter := c.DefaultQuery("filter", directory.TalkFilterAll)
	if !directory.ValidTalkFilter(filter) {
		response.BadRequest(c, "Unknown filter")
		return
	}
	all, err := h.repo.ListSubmissions(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load talks")
		return
	}
	talks := directory.FilterTalks(all, filter, c.DefaultQuery("sort", directory.TalkSortName))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="talks.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Last Name", "First Name", "Email", "Flash Talk", "Contributed Talk", "Title", "Abstract"})
	for _, p := range talks {
		_ = w.Write([]string{
			p.LastName, p.FirstName, p.Email,
			yesNo(p.TalkFlash), contributedLabel(&p),
			p.TalkTitle, p.TalkAbstract,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.Warn("write talks csv", zap.Error(err))
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func contributedLabel(p *models.Participant) string {
	if !p.TalkContributed {
		return "No"
	}
	return "Yes (" + p.TalkContributedAccepted.String() + ")"
}
