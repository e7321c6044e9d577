package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentflow/internal/auth"
	"contentflow/internal/config"
	"contentflow/internal/db/dbtest"
	"contentflow/internal/handler"
	"contentflow/internal/policy"
	"contentflow/internal/repository"
	"contentflow/internal/service"
)

const bossEmail = "boss@example.com"

type apiFixture struct {
	e *echo.Echo
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gormDB := dbtest.New(t)

	profileRepo := repository.NewProfileRepository(gormDB)
	engine := policy.NewEngine(profileRepo, nil, 0)
	profileService := service.NewProfileService(profileRepo, engine, bossEmail, nil)
	contentService := service.NewContentService(repository.NewContentRepository(gormDB), repository.NewContentEventRepository(gormDB), profileRepo, time.UTC, nil)

	jwtService := auth.NewJWTService("test-secret")
	authService := service.NewAuthService(
		repository.NewCredentialRepository(gormDB),
		jwtService,
		auth.NewTokenStore(nil),
		profileService.Provision,
	)

	e := echo.New()
	Register(e, &config.Config{RequestTimeout: 5 * time.Second}, jwtService, profileService, engine, Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Profile: handler.NewProfileHandler(profileService),
		Content: handler.NewContentHandler(contentService),
	})
	return &apiFixture{e: e}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns an access token and the profile id.
func (f *apiFixture) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		Profile     struct {
			ID string `json:"id"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.Profile.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type contentResp struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	RejectionNotes *string `json:"rejection_notes"`
	Archived       bool    `json:"archived"`
}

type errorResp struct {
	Code string `json:"code"`
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/content", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_BootstrapAdminAndDuplicates(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": bossEmail, "password": "password123", "name": "Boss",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, true, profile["is_admin"])
	assert.Equal(t, "Boss", profile["display_name"])

	rec = api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": bossEmail, "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResp](t, rec).Code)
}

func TestContentWorkflow(t *testing.T) {
	api := newAPI(t)
	adminToken, _ := api.signup(t, bossEmail)
	clientToken, clientID := api.signup(t, "client@example.com")
	otherToken, _ := api.signup(t, "other@example.com")

	// clients cannot create
	rec := api.do(t, http.MethodPost, "/api/content", clientToken, map[string]any{
		"caption": "x", "content_type": "post", "schedule_date": "2099-01-01", "assigned_to": clientID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a submitted status is ignored
	rec = api.do(t, http.MethodPost, "/api/content", adminToken, map[string]any{
		"caption": "launch", "content_type": "reel", "schedule_date": "2099-01-01",
		"assigned_to": clientID, "status": "approved",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[contentResp](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.False(t, created.Archived)

	rec = api.do(t, http.MethodPost, "/api/content", adminToken, map[string]any{
		"caption": "bad", "content_type": "podcast", "schedule_date": "2099-01-01", "assigned_to": clientID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// visibility
	rec = api.do(t, http.MethodGet, "/api/content", clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]contentResp](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/content", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]contentResp](t, rec))

	rec = api.do(t, http.MethodGet, "/api/content/"+created.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/content/"+created.ID+"/approve", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// the assignee may not edit the caption
	rec = api.do(t, http.MethodPatch, "/api/content/"+created.ID, clientToken, map[string]any{"caption": "changed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// rejection needs notes
	rec = api.do(t, http.MethodPost, "/api/content/"+created.ID+"/reject", clientToken, map[string]any{"notes": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REJECTION_NOTES_REQUIRED", decode[errorResp](t, rec).Code)

	rec = api.do(t, http.MethodPost, "/api/content/"+created.ID+"/reject", clientToken, map[string]any{"notes": "wrong logo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rejected := decode[contentResp](t, rec)
	assert.Equal(t, "rejected", rejected.Status)
	require.NotNil(t, rejected.RejectionNotes)
	assert.Equal(t, "wrong logo", *rejected.RejectionNotes)

	// rejected is terminal
	rec = api.do(t, http.MethodPost, "/api/content/"+created.ID+"/approve", clientToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorResp](t, rec).Code)

	rec = api.do(t, http.MethodGet, "/api/content/"+created.ID+"/history", clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]map[string]any](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "pending", history[0]["to_status"])
	assert.Equal(t, "rejected", history[1]["to_status"])

	rec = api.do(t, http.MethodGet, "/api/content/"+created.ID+"/history", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentList_FilterValidation(t *testing.T) {
	api := newAPI(t)
	adminToken, _ := api.signup(t, bossEmail)

	rec := api.do(t, http.MethodGet, "/api/content?view=sideways", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/content?from=01-02-2026", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/content/not-a-uuid", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/content?view=all&status=pending", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfiles_ScopedToCaller(t *testing.T) {
	api := newAPI(t)
	adminToken, _ := api.signup(t, bossEmail)
	clientToken, clientID := api.signup(t, "client@example.com")
	_, otherID := api.signup(t, "other@example.com")

	rec := api.do(t, http.MethodGet, "/api/profiles", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 3)

	rec = api.do(t, http.MethodGet, "/api/profiles", clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/profiles/"+otherID, clientToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/me", clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clientID, decode[map[string]any](t, rec)["id"])
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newAPI(t)
	api.signup(t, "client@example.com")

	rec := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "client@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[errorResp](t, rec).Code)
}
