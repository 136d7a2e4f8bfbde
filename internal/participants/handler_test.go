package participants

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/models"
)

type fakeUploader struct{ n int }

func (u *fakeUploader) Upload(_ context.Context, fh *multipart.FileHeader) (string, error) {
	u.n++
	return "uploads/" + fh.Filename, nil
}

type fakeJanitor struct{ removed, discarded []string }

func (j *fakeJanitor) Remove(_ context.Context, ref string)  { j.removed = append(j.removed, ref) }
func (j *fakeJanitor) Discard(_ context.Context, ref string) { j.discarded = append(j.discarded, ref) }

type stubTitles struct{}

func (stubTitles) Complete(_ context.Context, links []models.ArxivLink) []models.ArxivLink {
	title := "Resolved"
	out := make([]models.ArxivLink, len(links))
	for i, l := range links {
		out[i] = l
		if l.Title == nil {
			out[i].Title = &title
		}
	}
	return out
}

type handlerFixture struct {
	repo    *Repository
	router  *gin.Engine
	janitor *fakeJanitor
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := newRepo(t)
	cal := directory.NewCalendar(
		time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC),
	)
	j := &fakeJanitor{}
	h := NewHandler(repo, cal, stubTitles{}, &fakeUploader{}, j, nil)
	h.now = func() time.Time { return time.UnixMilli(42_000) }

	r := gin.New()
	r.GET("/api/participants", h.List)
	r.GET("/api/participants/:email", h.Get)
	r.POST("/api/participants", h.Save)
	r.POST("/api/participants/delete", h.Delete)
	r.GET("/api/interests", h.Interests)
	return &handlerFixture{repo: repo, router: r, janitor: j}
}

func (f *handlerFixture) do(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func (f *handlerFixture) save(t *testing.T, fields map[string]string, photo string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != "" {
		fw, err := mw.CreateFormFile("photo", photo)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("image bytes"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/participants", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.do(req)
}

func adaFields() map[string]string {
	return map[string]string{
		"first_name":       "Ada",
		"last_name":        "Lovelace",
		"email":            "ada@example.org",
		"email_public":     "1",
		"interests":        "gravity, cosmology",
		"arxiv_links":      `["https://arxiv.org/abs/2301.12345", {"url": "hep-th/9901001", "title": "Kept"}]`,
		"talk_contributed": "1",
		"talk_title":       "Engines",
	}
}

func TestSaveCreatesParticipant(t *testing.T) {
	f := newHandlerFixture(t)

	w, body := f.save(t, adaFields(), "ada.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Participant added successfully", body["message"])

	p, err := f.repo.Get(context.Background(), "ada@example.org")
	require.NoError(t, err)
	assert.True(t, p.EmailPublic)
	assert.True(t, p.TalkContributed)
	assert.Equal(t, models.Pending, p.TalkContributedAccepted)
	require.NotNil(t, p.PhotoPath)
	assert.Equal(t, "uploads/ada.png", *p.PhotoPath)
	require.Len(t, p.ArxivLinks, 2)
	assert.Equal(t, "Resolved", *p.ArxivLinks[0].Title)
	assert.Equal(t, "Kept", *p.ArxivLinks[1].Title)
}

func TestSaveDuplicateRemovesUploadedPhoto(t *testing.T) {
	f := newHandlerFixture(t)
	w, _ := f.save(t, adaFields(), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, body := f.save(t, adaFields(), "second.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "A participant with this email already exists", body["message"])
	assert.Equal(t, []string{"uploads/second.png"}, f.janitor.removed)
}

func TestSaveRejectsBadInput(t *testing.T) {
	f := newHandlerFixture(t)

	fields := adaFields()
	fields["arxiv_links"] = "{not json"
	_, body := f.save(t, fields, "")
	assert.Equal(t, "Invalid arXiv links format", body["message"])

	fields = adaFields()
	delete(fields, "first_name")
	_, body = f.save(t, fields, "photo.png")
	assert.Equal(t, "Field 'first_name' is required", body["message"])
	assert.Empty(t, f.janitor.removed)

	fields = adaFields()
	fields["email"] = "nope"
	_, body = f.save(t, fields, "")
	assert.Equal(t, "Invalid email format", body["message"])
}

func TestSaveEditReplacesPhoto(t *testing.T) {
	f := newHandlerFixture(t)
	w, _ := f.save(t, adaFields(), "old.png")
	require.Equal(t, http.StatusOK, w.Code)

	fields := adaFields()
	fields["is_edit"] = "1"
	fields["original_email"] = "ada@example.org"
	fields["email"] = "other@example.org"
	fields["description"] = "Analyst"
	w, body := f.save(t, fields, "new.png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Participant updated successfully", body["message"])
	assert.Equal(t, []string{"uploads/old.png"}, f.janitor.discarded)

	p, err := f.repo.Get(context.Background(), "ada@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Analyst", p.Description)
	assert.Equal(t, "uploads/new.png", *p.PhotoPath)
}

func TestSaveEditUnknownParticipant(t *testing.T) {
	f := newHandlerFixture(t)
	fields := adaFields()
	fields["is_edit"] = "1"
	fields["original_email"] = "ghost@example.org"
	w, _ := f.save(t, fields, "x.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"uploads/x.png"}, f.janitor.removed)
}

func TestListGetAndInterests(t *testing.T) {
	f := newHandlerFixture(t)
	_, _ = f.save(t, adaFields(), "")
	grace := adaFields()
	grace["first_name"], grace["last_name"], grace["email"] = "Grace", "Hopper", "grace@example.org"
	grace["interests"] = "compilers"
	_, _ = f.save(t, grace, "")

	w, body := f.do(httptest.NewRequest(http.MethodGet, "/api/participants?interest=cosmology&week=1", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := body["participants"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "Ada", list[0].(map[string]interface{})["first_name"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(42_000), body["snapshot_at"])
	weeks := body["weeks"].([]interface{})
	require.Len(t, weeks, 2)
	assert.Equal(t, "Week 1 (Jul 21 - Jul 25)", weeks[0].(map[string]interface{})["label"])

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/api/participants?week=9", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/api/participants?day=tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(httptest.NewRequest(http.MethodGet, "/api/participants/"+url.PathEscape("grace@example.org"), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hopper", body["participant"].(map[string]interface{})["last_name"])

	w, body = f.do(httptest.NewRequest(http.MethodGet, "/api/participants/missing@example.org", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])

	_, body = f.do(httptest.NewRequest(http.MethodGet, "/api/interests", nil))
	assert.Equal(t, []interface{}{"compilers", "cosmology", "gravity"}, body["interests"])
}

func TestDeleteRemovesPhotoThenRow(t *testing.T) {
	f := newHandlerFixture(t)
	_, _ = f.save(t, adaFields(), "ada.png")

	post := func(email string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/api/participants/delete",
			strings.NewReader(url.Values{"email": {email}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return f.do(req)
	}

	w, body := post("ada@example.org")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile deleted successfully", body["message"])
	assert.Equal(t, []string{"uploads/ada.png"}, f.janitor.removed)

	w, _ = post("ada@example.org")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, body = post("")
	assert.Equal(t, "Email is required", body["message"])
}

func TestDeleteRejectsUnreadableForm(t *testing.T) {
	f := newHandlerFixture(t)
	_, _ = f.save(t, adaFields(), "")

	req := httptest.NewRequest(http.MethodPost, "/api/participants/delete", strings.NewReader("email=ada@example.org"))
	req.Header.Set("Content-Type", "multipart/form-data")
	w, body := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid form data", body["message"])

	_, err := f.repo.Get(context.Background(), "ada@example.org")
	assert.NoError(t, err)
}

func TestSaveDropsBlankLinksWithoutResolver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newRepo(t)
	h := NewHandler(repo, directory.Calendar{}, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/api/participants", h.Save)
	f := &handlerFixture{repo: repo, router: r, janitor: &fakeJanitor{}}

	fields := adaFields()
	fields["arxiv_links"] = `["", {"url": "  "}, " https://arxiv.org/abs/2301.12345 "]`
	w, _ := f.save(t, fields, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := repo.Get(context.Background(), "ada@example.org")
	require.NoError(t, err)
	require.Len(t, p.ArxivLinks, 1)
	assert.Equal(t, "https://arxiv.org/abs/2301.12345", p.ArxivLinks[0].URL)
	assert.Nil(t, p.ArxivLinks[0].Title)
}
