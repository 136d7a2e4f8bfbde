package participants

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/pkg/response"
)

// SaveRequest is the multipart form for POST /api/participants. Flags are "1", "true",
// "on" or "yes" when set; arxiv_links is a JSON array of URLs or {url, title} objects.
type SaveRequest struct {
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	Email           string `form:"email"`
	EmailPublic     string `form:"email_public"`
	Interests       string `form:"interests"`
	Description     string `form:"description"`
	ArxivLinks      string `form:"arxiv_links"`
	TalkFlash       string `form:"talk_flash"`
	TalkContributed string `form:"talk_contributed"`
	TalkTitle       string `form:"talk_title"`
	TalkAbstract    string `form:"talk_abstract"`
	IsEdit          string `form:"is_edit"`
	OriginalEmail   string `form:"original_email"`
}

// DeleteRequest is the form for POST /api/participants/delete.
type DeleteRequest struct {
	Email string `form:"email"`
}

// TitleResolver fills in missing arXiv titles.
type TitleResolver interface {
	Complete(ctx context.Context, links []models.ArxivLink) []models.ArxivLink
}

// PhotoUploader validates and stores an uploaded photo, returning its reference.
type PhotoUploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader) (string, error)
}

// PhotoJanitor removes photos that are no longer referenced.
type PhotoJanitor interface {
	Remove(ctx context.Context, ref string)
	Discard(ctx context.Context, ref string)
}

// Handler handles participant HTTP endpoints.
type Handler struct {
	repo     *Repository
	calendar directory.Calendar
	titles   TitleResolver
	uploader PhotoUploader
	janitor  PhotoJanitor
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a participants handler. titles may be nil to skip arXiv lookups.
func NewHandler(repo *Repository, cal directory.Calendar, titles TitleResolver, uploader PhotoUploader, janitor PhotoJanitor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, calendar: cal, titles: titles, uploader: uploader, janitor: janitor, logger: logger, now: time.Now}
}

func formFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// List handles GET /api/participants?q=&interest=&day=&week=&only_week=&sort=&seed=.
func (h *Handler) List(c *gin.Context) {
	q := directory.Query{
		Text:     c.Query("q"),
		Interest: c.Query("interest"),
		Day:      c.Query("day"),
		OnlyWeek: formFlag(c.Query("only_week")),
		Sort:     c.DefaultQuery("sort", directory.SortFirstName),
	}
	if v := c.Query("week"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(c, "Invalid week")
			return
		}
		q.Week = n
	}
	if v := c.Query("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid seed")
			return
		}
		q.Seed = seed
	}

	snapshot := h.now().UnixMilli()
	all, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load participants")
		return
	}
	list, err := directory.Filter(all, q, h.calendar)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to filter participants")
		return
	}
	tags, err := h.repo.AllInterestTags(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load interests")
		return
	}
	weeks := h.calendar.Weeks()
	labels := make([]gin.H, 0, len(weeks))
	for _, w := range weeks {
		labels = append(labels, gin.H{
			"number": w.Number,
			"start":  w.Start.Format("2006-01-02"),
			"end":    w.End.Format("2006-01-02"),
			"label":  w.Label(),
		})
	}
	response.OK(c, "", gin.H{
		"participants": list,
		"total":        len(all),
		"interests":    tags,
		"weeks":        labels,
		"snapshot_at":  snapshot,
	})
}

// Get handles GET /api/participants/:email.
func (h *Handler) Get(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if !ValidEmail(email) {
		response.BadRequest(c, "Invalid email format")
		return
	}
	p, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load participant")
		return
	}
	response.OK(c, "", gin.H{"participant": p})
}

// Interests handles GET /api/interests.
func (h *Handler) Interests(c *gin.Context) {
	tags, err := h.repo.AllInterestTags(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err, "Failed to load interests")
		return
	}
	response.OK(c, "", gin.H{"interests": tags})
}

// Save handles POST /api/participants for both new profiles and edits.
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid form data")
		return
	}
	ctx := c.Request.Context()

	var links models.ArxivLinks
	if raw := strings.TrimSpace(req.ArxivLinks); raw != "" {
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			response.BadRequest(c, "Invalid arXiv links format")
			return
		}
	}
	p := &models.Participant{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		EmailPublic:     formFlag(req.EmailPublic),
		Interests:       req.Interests,
		Description:     req.Description,
		TalkFlash:       formFlag(req.TalkFlash),
		TalkContributed: formFlag(req.TalkContributed),
		TalkTitle:       req.TalkTitle,
		TalkAbstract:    req.TalkAbstract,
	}
	isEdit := formFlag(req.IsEdit) && strings.TrimSpace(req.OriginalEmail) != ""
	// Check the required fields before any upload or lookup work.
	check := *p
	if isEdit {
		check.Email = strings.TrimSpace(req.OriginalEmail)
	}
	if err := normalize(&check); err != nil {
		response.Error(c, h.logger, err, "Failed to save participant data")
		return
	}

	links = links.Compact().Cap(h.repo.maxLinks)
	if h.titles != nil {
		links = h.titles.Complete(ctx, links)
	}
	p.ArxivLinks = links

	var newPhoto string
	if fh, err := c.FormFile("photo"); err == nil && h.uploader != nil {
		ref, err := h.uploader.Upload(ctx, fh)
		if err != nil {
			response.Error(c, h.logger, err, "Failed to upload photo")
			return
		}
		newPhoto = ref
		p.PhotoPath = &newPhoto
	}

	if isEdit {
		prev, err := h.repo.Update(ctx, req.OriginalEmail, p)
		if err != nil {
			h.discardUpload(ctx, newPhoto)
			response.Error(c, h.logger, err, "Failed to save participant data")
			return
		}
		if newPhoto != "" && h.janitor != nil && prev.PhotoPath != nil && *prev.PhotoPath != newPhoto {
			h.janitor.Discard(ctx, *prev.PhotoPath)
		}
		h.logger.Info("participant updated", zap.String("email", p.Email))
		response.OK(c, "Participant updated successfully", gin.H{"email": p.Email})
		return
	}

	if err := h.repo.Create(ctx, p); err != nil {
		h.discardUpload(ctx, newPhoto)
		response.Error(c, h.logger, err, "Failed to save participant data")
		return
	}
	h.logger.Info("participant added", zap.String("email", p.Email))
	response.OK(c, "Participant added successfully", gin.H{"email": p.Email})
}

func (h *Handler) discardUpload(ctx context.Context, ref string) {
	if ref != "" && h.janitor != nil {
		h.janitor.Remove(ctx, ref)
	}
}

// Delete handles POST /api/participants/delete. The photo goes first, then the row.
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid form data")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		response.BadRequest(c, "Email is required")
		return
	}
	if !ValidEmail(email) {
		response.BadRequest(c, "Invalid email format")
		return
	}
	ctx := c.Request.Context()
	p, err := h.repo.Get(ctx, email)
	if err != nil {
		response.Error(c, h.logger, err, "Failed to delete profile")
		return
	}
	if p.PhotoPath != nil && h.janitor != nil {
		h.janitor.Remove(ctx, *p.PhotoPath)
	}
	if err := h.repo.Delete(ctx, email); err != nil {
		response.Error(c, h.logger, err, "Failed to delete profile")
		return
	}
	h.logger.Info("participant deleted", zap.String("email", email))
	response.OK(c, "Profile deleted successfully", nil)
}
