package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlinkuae/site-backend/config"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
	"github.com/nextlinkuae/site-backend/services/servicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse"

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type memorySubmissions struct {
	mu   sync.Mutex
	rows []models.ContactSubmission
}

func (m *memorySubmissions) Add(_ context.Context, s *models.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, *s)
	return nil
}

func (m *memorySubmissions) List(_ context.Context, kind string) ([]models.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContactSubmission
	for i := len(m.rows) - 1; i >= 0; i-- {
		if kind == "" || m.rows[i].Kind == kind {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

type testEnv struct {
	handler   http.Handler
	store     *servicetest.Store
	uploadDir string
}

func newTestEnv(t *testing.T, mutate ...func(*config.Settings, *Dependencies)) *testEnv {
	t.Helper()

	auth, err := services.NewAdminAuth("", testPassword, "test-secret", time.Hour)
	require.NoError(t, err)

	store := servicetest.New()
	uploadDir := t.TempDir()
	settings := config.Settings{AcceptedOrigins: []string{"https://site.example"}}
	deps := Dependencies{
		DB:        fakePinger{},
		Projects:  services.NewProjectService(store, services.DefaultSlugMaxAttempts),
		Contacts:  services.NewContactService(&memorySubmissions{}, nil, ""),
		Uploader:  services.NewImageUploader(services.NewLocalImageStore(uploadDir, "")),
		Auth:      auth,
		StaticDir: filepath.Join(uploadDir, "images"),
	}
	for _, m := range mutate {
		m(&settings, &deps)
	}

	router, err := newRouter(deps, withSettings(settings), withStartupTime(time.Now()))
	require.NoError(t, err)
	return &testEnv{handler: router, store: store, uploadDir: uploadDir}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func smartOffice() map[string]any {
	return map[string]any{
		"title":       "Smart Office",
		"description": "Lighting and climate",
		"location":    "Dubai",
		"category":    "commercial",
		"gallery": []map[string]any{
			{"url": "/images/projects/smart-office/a.jpg"},
			{"url": "/images/projects/smart-office/b.jpg", "position": 5},
		},
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/projects", token, smartOffice())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	created := decodeData[models.ProjectWithImages](t, rec)
	require.NotNil(t, created.Slug)
	assert.Equal(t, "smart-office", *created.Slug)
	require.Len(t, created.Images, 2)
	assert.Equal(t, 0, created.Images[0].Position)
	assert.Equal(t, 5, created.Images[1].Position)

	rec = env.do(t, http.MethodPost, "/api/projects", token, smartOffice())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "smart-office-2", *decodeData[models.ProjectWithImages](t, rec).Slug)

	byID := env.do(t, http.MethodGet, "/api/projects/1", "", nil)
	bySlug := env.do(t, http.MethodGet, "/api/projects/smart-office", "", nil)
	bySlugRoute := env.do(t, http.MethodGet, "/api/projects/slug/smart-office", "", nil)
	byQuery := env.do(t, http.MethodGet, "/api/projects?slug=smart-office", "", nil)
	require.Equal(t, http.StatusOK, byID.Code)
	assert.JSONEq(t, byID.Body.String(), bySlug.Body.String())
	assert.JSONEq(t, byID.Body.String(), bySlugRoute.Body.String())
	assert.JSONEq(t, byID.Body.String(), byQuery.Body.String())

	rec = env.do(t, http.MethodPut, "/api/projects/1", token, map[string]any{"location": "Abu Dhabi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[models.ProjectWithImages](t, rec)
	assert.Equal(t, "Abu Dhabi", updated.Location)
	assert.Equal(t, "Smart Office", updated.Title)
	assert.Len(t, updated.Images, 2, "absent gallery keeps images")

	rec = env.do(t, http.MethodPut, "/api/projects/1", token, map[string]any{"gallery": []any{}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[models.ProjectWithImages](t, rec).Images)

	rec = env.do(t, http.MethodDelete, "/api/projects/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/projects/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/projects/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	for _, p := range []map[string]any{
		{"title": "Villa", "description": "d", "location": "l", "category": "residential"},
		{"title": "Tower", "description": "d", "location": "l", "category": "commercial"},
	} {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/projects", token, p).Code)
	}

	rec := env.do(t, http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeData[[]models.Project](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, "Tower", all[0].Title, "newest first")

	rec = env.do(t, http.MethodGet, "/api/projects?category=residential", "", nil)
	filtered := decodeData[[]models.Project](t, rec)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Villa", filtered[0].Title)

	rec = env.do(t, http.MethodGet, "/api/projects?category=industrial", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/projects?slug=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjects_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/projects", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestProjectWrites_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/projects", "", smartOffice())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authorization", decodeError(t, rec).Field)

	rec = env.do(t, http.MethodPut, "/api/projects/1", "forged.token.value", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/projects/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.store.ProjectCount())
}

func TestProjectWrites_RejectBadInput(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"title": "Only title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "description", decodeError(t, rec).Field)

	rec = env.do(t, http.MethodPost, "/api/projects", token, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/projects/smart-office", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "updates take numeric ids only")

	rec = env.do(t, http.MethodDelete, "/api/projects/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/projects/42", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	big := `{"title":"` + strings.Repeat("a", maxJSONBodySize) + `"}`
	rec = env.do(t, http.MethodPost, "/api/projects", token, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProjectCreate_GalleryFailureReturns500AndStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	env.store.FailImageInsertAt = 2

	rec := env.do(t, http.MethodPost, "/api/projects", token, smartOffice())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, decodeError(t, rec).Cause, "server side causes stay in the log")
	assert.Zero(t, env.store.ProjectCount())
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", "", LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := env.login(t)
	rec = env.do(t, http.MethodGet, "/api/admin/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeData[services.AdminSession](t, rec)
	assert.Equal(t, "admin", session.Subject)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	rec = env.do(t, http.MethodGet, "/api/admin/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLegacyProjectRedirect(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/projects", token, smartOffice()).Code)
	legacy := env.store.Seed(models.Project{Title: "Old Palm Villa", Description: "d", Location: "l", Category: models.CategoryLuxury})

	rec := env.do(t, http.MethodGet, "/projects/1", "", nil)
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/projects/smart-office", rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/projects/2", "", nil)
	require.Equal(t, legacy.ID, uint(2))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/projects/old-palm-villa", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/projects/99", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/projects/smart-office", "", nil).Code)
}

func TestContactForms(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/contact", "", map[string]any{
		"name": "Aisha", "email": "aisha@example.com", "message": "Need a quote",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, models.SubmissionStatusNew, created.Data.Status)

	rec = env.do(t, http.MethodPost, "/api/start-project", "", map[string]any{
		"name": "Layla", "email": "layla@example.com", "city": "Sharjah", "services": []string{"Lighting"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/contact", "", map[string]any{"name": "No email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/contact", "", nil).Code)

	token := env.login(t)
	rec = env.do(t, http.MethodGet, "/api/contact", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]models.ContactSubmission](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/contact?kind=start_project", token, nil)
	submissions := decodeData[[]models.ContactSubmission](t, rec)
	require.Len(t, submissions, 1)
	assert.Equal(t, "Layla", submissions[0].Name)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/contact?kind=spam", token, nil).Code)
}

func TestContactForms_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings, _ *Dependencies) {
		s.FormRateLimit = "2-M"
	})

	form := map[string]any{"name": "Omar", "email": "omar@example.com", "message": "Hi"}
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/contact", "", form).Code)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/contact", "", form).Code)

	rec := env.do(t, http.MethodPost, "/api/contact", "", form)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "rate limit")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/projects", "", nil).Code, "reads are not limited")
}

func TestNewRouter_RejectsBadRateLimit(t *testing.T) {
	auth, err := services.NewAdminAuth("", testPassword, "s", time.Hour)
	require.NoError(t, err)

	_, err = newRouter(Dependencies{Auth: auth}, withSettings(config.Settings{FormRateLimit: "lots"}))
	assert.Error(t, err)
}

func multipartUpload(t *testing.T, slug string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if slug != "" {
		require.NoError(t, mw.WriteField("projectSlug", slug))
	}
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadProjectImages(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	body, contentType := multipartUpload(t, "Smart Office", map[string]string{"front.png": "image/png"})
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/project-images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var result services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "smart-office", result.Slug)
	require.Len(t, result.URLs, 1)
	assert.True(t, strings.HasPrefix(result.URLs[0], "/images/projects/smart-office/"))

	written, err := os.ReadFile(filepath.Join(env.uploadDir, filepath.FromSlash(result.URLs[0])))
	require.NoError(t, err)
	assert.Equal(t, "bytes of front.png", string(written))

	served := env.do(t, http.MethodGet, result.URLs[0], "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "bytes of front.png", served.Body.String())
}

func TestUploadProjectImages_Rejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	send := func(body *bytes.Buffer, contentType, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/uploads/project-images", body)
		req.Header.Set("Content-Type", contentType)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	body, contentType := multipartUpload(t, "villa", map[string]string{"a.png": "image/png"})
	assert.Equal(t, http.StatusUnauthorized, send(body, contentType, "").Code)

	body, contentType = multipartUpload(t, "villa", map[string]string{"notes.txt": "text/plain"})
	assert.Equal(t, http.StatusUnsupportedMediaType, send(body, contentType, token).Code)

	body, contentType = multipartUpload(t, "villa", nil)
	assert.Equal(t, http.StatusBadRequest, send(body, contentType, token).Code)

	assert.Equal(t, http.StatusUnsupportedMediaType, send(bytes.NewBufferString("{}"), "application/json", token).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Uptime)

	down := newTestEnv(t, func(_ *config.Settings, d *Dependencies) {
		d.DB = fakePinger{err: errors.New("connection refused")}
	})
	rec = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "unreachable", health.Database)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "https://site.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://site.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/projects", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/projects", "", nil)

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `site_http_request_duration_seconds_count{method="GET",route="/api/projects",status="200"}`)
}
