package registrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benasque-conf/participants/internal/directory"
	"github.com/benasque-conf/participants/internal/models"
	"github.com/benasque-conf/participants/internal/testutil"
)

func record(email, status string) models.RegistrationRecord {
	return models.RegistrationRecord{
		Email:       email,
		FirstName:   "Emmy",
		LastName:    "Noether",
		Status:      status,
		Affiliation: "Erlangen",
		StartDate:   "Jul 20",
		EndDate:     "Aug 02",
	}
}

func TestImportBatchCollectsErrors(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	res, err := repo.ImportBatch(ctx, []models.RegistrationRecord{
		record("emmy@example.org", models.StatusAccepted),
		record("bad-email", models.StatusAccepted),
		record("x@example.org", "REJECTED"),
		{Email: "y@example.org", Status: models.StatusInvited},
		record(" paul@example.org ", models.StatusInvited),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 5, res.TotalProcessed)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "Invalid email format: bad-email", res.Errors[0])
	assert.Equal(t, "Invalid status 'REJECTED' for x@example.org", res.Errors[1])
	assert.True(t, strings.HasPrefix(res.Errors[2], "Missing required fields for registration: "))

	reg, err := repo.GetByEmail(ctx, "paul@example.org")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvited, reg.Status)
	assert.False(t, reg.CreatedAt.IsZero())
	assert.False(t, reg.UpdatedAt.IsZero())
}

func TestImportBatchUpserts(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	_, err := repo.ImportBatch(ctx, []models.RegistrationRecord{record("emmy@example.org", models.StatusInvited)})
	require.NoError(t, err)

	updated := record("emmy@example.org", models.StatusCancelled)
	updated.Affiliation = "Bryn Mawr"
	res, err := repo.ImportBatch(ctx, []models.RegistrationRecord{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusCancelled, list[0].Status)
	assert.Equal(t, "Bryn Mawr", list[0].Affiliation)

	assert.Equal(t, map[string]int{"TOTAL": 1, "ACCEPTED": 0, "INVITED": 0, "CANCELLED": 1}, directory.RegistrationStats(list))
}

func TestListOrder(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()
	a := record("a@example.org", models.StatusInvited)
	b := record("b@example.org", models.StatusAccepted)
	b.LastName = "Zermelo"
	c := record("c@example.org", models.StatusAccepted)
	c.LastName = "Artin"
	_, err := repo.ImportBatch(ctx, []models.RegistrationRecord{a, b, c})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	var emails []string
	for _, r := range list {
		emails = append(emails, r.Email)
	}
	assert.Equal(t, []string{"c@example.org", "b@example.org", "a@example.org"}, emails)

	_, err = repo.GetByEmail(ctx, "none@example.org")
	assert.Error(t, err)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewRepository(testutil.NewDB(t)), nil)
	r := gin.New()
	r.GET("/api/registrations", h.List)
	r.POST("/api/registrations/import", h.Import)
	return r
}

func call(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestImportEndpoint(t *testing.T) {
	r := newRouter(t)

	olga := record("olga@example.org", models.StatusInvited)
	olga.FirstName, olga.LastName, olga.Affiliation = "Olga", "Taussky", "Vienna"
	payload, _ := json.Marshal(ImportRequest{Registrations: []models.RegistrationRecord{
		record("emmy@example.org", models.StatusAccepted),
		olga,
		record("nope", models.StatusInvited),
	}})
	w, body := call(r, http.MethodPost, "/api/registrations/import", string(payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["updated"])
	assert.Equal(t, float64(3), body["total_processed"])
	assert.Len(t, body["errors"], 1)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["TOTAL"])

	w, body = call(r, http.MethodGet, "/api/registrations?status=INVITED", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["registrations"], 1)

	w, body = call(r, http.MethodGet, "/api/registrations?q=emmy", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["registrations"], 1)

	w, _ = call(r, http.MethodGet, "/api/registrations?status=REJECTED", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportEndpointRejectsBadBody(t *testing.T) {
	r := newRouter(t)

	w, body := call(r, http.MethodPost, "/api/registrations/import", "{oops")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(body["message"].(string), "Invalid JSON input"))

	_, body = call(r, http.MethodPost, "/api/registrations/import", `{"other": []}`)
	assert.Equal(t, "Missing or invalid registrations array", body["message"])
}
