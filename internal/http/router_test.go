package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/auth"
	"github.com/geocoder89/speakup/internal/config"
	apphttp "github.com/geocoder89/speakup/internal/http"
	"github.com/geocoder89/speakup/internal/http/middlewares"
	"github.com/geocoder89/speakup/internal/notifications"
	"github.com/geocoder89/speakup/internal/observability"
	"github.com/geocoder89/speakup/internal/repo/memory"
	"github.com/geocoder89/speakup/internal/security"
	"github.com/geocoder89/speakup/internal/storage"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1nPassw0rd"
	userPassword  = "Passw0rdOK"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// outbox captures emails instead of sending them.
type outbox struct {
	mu    sync.Mutex
	mails []notifications.Email
}

func (o *outbox) Send(_ context.Context, e notifications.Email) error {
	o.mu.Lock()
	o.mails = append(o.mails, e)
	o.mu.Unlock()
	return nil
}

// lastLink returns the link embedded in the most recent email.
func (o *outbox) lastLink(t *testing.T) *url.URL {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()

	require.NotEmpty(t, o.mails)
	for _, line := range strings.Split(o.mails[len(o.mails)-1].Body, "\n") {
		if strings.HasPrefix(line, "http") {
			u, err := url.Parse(strings.TrimSpace(line))
			require.NoError(t, err)
			return u
		}
	}
	t.Fatal("no link in email")
	return nil
}

type testServer struct {
	handler http.Handler
	clock   *clock
	outbox  *outbox
	storage *storage.MemoryStorage
	cfg     config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Defaults()
	cfg.CORSOrigins = []string{"http://localhost:5173"}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	tokens, err := auth.NewManager(cfg.JWT, clk.Now)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	box := &outbox{}
	mailer := notifications.NewAccountMailer(notifications.LinkBuilder{
		APIBaseURL:  cfg.AppBaseURL,
		FrontendURL: cfg.FrontendURL,
	}, box, prom)

	objects := storage.NewMemoryStorage("http://minio.local")

	svc, err := account.NewService(account.Deps{
		Store:   memory.NewUsersRepo(),
		Hasher:  security.NewBcryptHasher(cfg.BcryptCost),
		Tokens:  tokens,
		Mailer:  mailer,
		Storage: objects,
		Metrics: prom,
		Logger:  log,
		Clock:   clk.Now,
	}, account.SettingsFrom(cfg))
	require.NoError(t, err)

	created, err := svc.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	router := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Logger:   log,
		Accounts: svc,
		Prom:     prom,
		Gatherer: reg,
	})

	return &testServer{handler: router, clock: clk, outbox: box, storage: objects, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, target, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, target, token, "application/json", bytes.NewReader(b))
}

func (s *testServer) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{"username": {email}, "password": {password}}
	return s.do(t, http.MethodPost, "/auth/login", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (s *testServer) token(t *testing.T, email, password string) string {
	t.Helper()

	w := s.login(t, email, password)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp account.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// signUp registers email and follows the confirmation link.
func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()

	w := s.json(t, http.MethodPost, "/auth/register", "", map[string]any{"email": email, "password": userPassword})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	link := s.outbox.lastLink(t)
	w = s.do(t, http.MethodGet, link.RequestURI(), "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return s.token(t, email, userPassword)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestRegisterConfirmLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.json(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":       "ana@example.com",
		"password":    userPassword,
		"displayName": "Ana",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// pending accounts cannot log in
	w = s.login(t, "ana@example.com", userPassword)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_not_activated", errorCode(t, w))

	w = s.json(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "ana@example.com", "password": userPassword})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_already_registered", errorCode(t, w))

	link := s.outbox.lastLink(t)
	assert.Equal(t, "/auth/confirm-email", link.Path)
	assert.Equal(t, "ana@example.com", link.Query().Get("email"))

	w = s.json(t, http.MethodPost, "/auth/confirm-email", "", map[string]any{"email": "ana@example.com", "token": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token_mismatch", errorCode(t, w))

	w = s.do(t, http.MethodGet, link.RequestURI(), "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, link.RequestURI(), "", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_activated", errorCode(t, w))

	token := s.token(t, "ana@example.com", userPassword)

	w = s.do(t, http.MethodGet, "/auth/me", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	me := decode(t, w)
	assert.Equal(t, "ana@example.com", me["email"])
	assert.Equal(t, "Ana", me["displayName"])
	assert.Equal(t, "active", me["status"])
	assert.Equal(t, false, me["isAdmin"])
	assert.NotContains(t, w.Body.String(), "assword")
	assert.NotContains(t, w.Body.String(), "Token")
}

func TestRegister_WeakPasswordRejected(t *testing.T) {
	s := newTestServer(t)

	w := s.json(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "ana@example.com", "password": "password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.outbox.mails)
}

func TestConfirmEmail_Expired(t *testing.T) {
	s := newTestServer(t)

	w := s.json(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "ana@example.com", "password": userPassword})
	require.Equal(t, http.StatusCreated, w.Code)

	s.clock.Advance(31 * time.Minute)

	w = s.do(t, http.MethodGet, s.outbox.lastLink(t).RequestURI(), "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token_expired", errorCode(t, w))
}

func TestLogin_DoesNotRevealWhichPartWasWrong(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ana@example.com")

	unknown := s.login(t, "nobody@example.com", userPassword)
	wrong := s.login(t, "ana@example.com", "Wr0ngPassword")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, errorCode(t, unknown), errorCode(t, wrong))
	assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
}

func TestLogin_AcceptsJSON(t *testing.T) {
	s := newTestServer(t)

	w := s.json(t, http.MethodPost, "/auth/login", "", map[string]any{"username": adminEmail, "password": adminPassword})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSlidingRenewal(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "ana@example.com")

	w := s.do(t, http.MethodGet, "/auth/me", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middlewares.NewTokenHeader))

	// four minutes left, below the five minute threshold
	s.clock.Advance(s.cfg.JWT.AccessTTL - 4*time.Minute)

	w = s.do(t, http.MethodGet, "/auth/me", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	renewed := w.Header().Get(middlewares.NewTokenHeader)
	require.NotEmpty(t, renewed)
	assert.NotEqual(t, token, renewed)

	// the presented token is not revoked
	w = s.do(t, http.MethodGet, "/auth/me", token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.clock.Advance(5 * time.Minute)

	w = s.do(t, http.MethodGet, "/auth/me", token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/auth/me", renewed, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(middlewares.NewTokenHeader))
}

func TestPasswordChangeAndReset(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "ana@example.com")

	w := s.json(t, http.MethodPost, "/auth/change-password", token, map[string]any{
		"oldPassword": "Wr0ngPassword",
		"newPassword": "Chang3dPassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.json(t, http.MethodPost, "/auth/change-password", token, map[string]any{
		"oldPassword": userPassword,
		"newPassword": "Chang3dPassword",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.login(t, "ana@example.com", userPassword).Code)
	s.token(t, "ana@example.com", "Chang3dPassword")

	w = s.json(t, http.MethodPost, "/auth/forgot-password", "", map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.json(t, http.MethodPost, "/auth/forgot-password", "", map[string]any{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	link := s.outbox.lastLink(t)
	assert.Equal(t, "/reset-password", link.Path)
	resetToken := link.Query().Get("token")

	w = s.json(t, http.MethodPost, "/auth/reset-password", "", map[string]any{
		"email":       "ana@example.com",
		"token":       resetToken,
		"newPassword": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "weak_password", errorCode(t, w))

	w = s.json(t, http.MethodPost, "/auth/reset-password", "", map[string]any{
		"email":       "ana@example.com",
		"token":       resetToken,
		"newPassword": "R3setPassword",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// single use
	w = s.json(t, http.MethodPost, "/auth/reset-password", "", map[string]any{
		"email":       "ana@example.com",
		"token":       resetToken,
		"newPassword": "An0therPassword",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.token(t, "ana@example.com", "R3setPassword")
}

func TestUpdateProfileWithAvatar(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp(t, "ana@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("displayName", "Ana B"))
	require.NoError(t, mw.WriteField("location", "Lisbon"))
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := s.do(t, http.MethodPatch, "/auth/update", token, mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decode(t, w)
	assert.Equal(t, "Ana B", view["displayName"])
	assert.Equal(t, "Lisbon", view["location"])

	avatar, _ := view["avatarPath"].(string)
	require.True(t, strings.HasPrefix(avatar, "http://minio.local/avatars/"), avatar)
	assert.True(t, strings.HasSuffix(avatar, ".png"))
	assert.Equal(t, 1, s.storage.Len())

	body.Reset()
	mw = multipart.NewWriter(&body)
	part, err = mw.CreateFormFile("avatar", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w = s.do(t, http.MethodPatch, "/auth/update", token, mw.FormDataContentType(), &body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorCode(t, w))
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signUp(t, "ana@example.com")
	adminToken := s.token(t, adminEmail, adminPassword)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/users", "", "", nil).Code)

	w := s.do(t, http.MethodGet, "/users", userToken, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", errorCode(t, w))

	w = s.json(t, http.MethodPost, "/users", adminToken, map[string]any{
		"email":    "bob@example.com",
		"password": userPassword,
		"isAdmin":  false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bob := decode(t, w)
	assert.Equal(t, "active", bob["status"])
	bobID := bob["id"].(string)

	// admin-created accounts can log in straight away
	s.token(t, "bob@example.com", userPassword)

	w = s.do(t, http.MethodGet, "/users", adminToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	w = s.json(t, http.MethodPatch, "/users/"+bobID, adminToken, map[string]any{"email": "ana@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.json(t, http.MethodPatch, "/users/"+bobID, adminToken, map[string]any{"displayName": "Bob", "isAdmin": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["isAdmin"])

	w = s.do(t, http.MethodGet, "/auth/me", adminToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	adminID := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodDelete, "/users/"+adminID, adminToken, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "self_delete_forbidden", errorCode(t, w))

	w = s.do(t, http.MethodDelete, "/users/"+bobID, adminToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/users/"+bobID, adminToken, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signUp(t, "ana@example.com")
	adminToken := s.token(t, adminEmail, adminPassword)

	w := s.do(t, http.MethodGet, "/auth/me", userToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["id"].(string)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/users/"+id, adminToken, "", nil).Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/auth/me", userToken, "", nil).Code)
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.token(t, adminEmail, adminPassword)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", "", nil).Code)

	w := s.do(t, http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `speakup_auth_events_total{event="login",result="ok"} 1`)
	assert.Contains(t, w.Body.String(), "speakup_http_requests_total")
}
