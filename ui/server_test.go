package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"rubik/app"
	"rubik/internal/media"
	"rubik/internal/session"
	"rubik/internal/testkit"
	"rubik/models"
	"rubik/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testPassword = "s3cret-pass!"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t        *testing.T
	store    *testkit.MemoryIdentityStore
	sessions *session.MemoryStore
	provider *testkit.FakeSearchProvider
	server   *Server
	cookie   string
}

func newHarness(t *testing.T, csrf bool) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := testkit.NewMemoryIdentityStore()
	blobs, err := media.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://result%d.com", i+1)
	}
	provider := &testkit.FakeSearchProvider{URLs: urls}
	opts := ports.SearchOptions{NumResults: 20, Lang: "en", Stop: 20, Pause: time.Second}

	services := Services{
		Auth:         app.NewAuthService(store, logger),
		Registration: app.NewRegistrationService(store, logger),
		Approval:     app.NewApprovalService(store, logger),
		Profile:      app.NewProfileService(store, blobs, logger),
		Search:       app.NewSearchService(provider, &testkit.FakeTitleFetcher{}, opts, logger),
	}
	memStore := session.NewMemoryStore()
	server, err := NewServer(services, session.NewManager(memStore, time.Hour, logger), Options{CSRFEnabled: csrf}, logger)
	require.NoError(t, err)

	return &harness{t: t, store: store, sessions: memStore, provider: provider, server: server}
}

func (h *harness) seed(username string, active, staff bool) *models.Account {
	h.t.Helper()
	hash, err := app.HashPassword(testPassword)
	require.NoError(h.t, err)
	acct := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     active,
		IsStaff:      staff,
		DateJoined:   time.Now().Add(-time.Hour),
	}
	require.NoError(h.t, app.SaveAccount(context.Background(), h.store, acct))
	return acct
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	if h.cookie != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: h.cookie})
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sessionid" {
			h.cookie = c.Value
		}
	}
	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) login(username string) {
	h.t.Helper()
	rec := h.post("/login/", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(h.t, http.StatusFound, rec.Code)
}

func (h *harness) session() *session.Session {
	h.t.Helper()
	sess, err := h.sessions.Load(context.Background(), h.cookie)
	require.NoError(h.t, err)
	return sess
}

func TestGuardsRedirectToLogin(t *testing.T) {
	h := newHarness(t, false)

	tests := []struct {
		path string
		want string
	}{
		{"/admin_dashboard/", "/login/?next=/admin_dashboard/"},
		{"/profile/", "/login/?next=/profile/"},
		{"/", "/login/?next=/"},
		{"/search/?page=2", "/login/?next=/search/%3Fpage%3D2"},
		{"/approve/1/", "/login/?next=/approve/1/"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := h.get(tt.path)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestStaffGuardRejectsRegularAccounts(t *testing.T) {
	h := newHarness(t, false)
	h.seed("member", true, false)
	h.login("member")

	rec := h.get("/admin_dashboard/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=/admin_dashboard/", rec.Header().Get("Location"))
}

func TestRegisterCreatesInactiveAccount(t *testing.T) {
	h := newHarness(t, false)

	rec := h.post("/register/", url.Values{
		"username":  {"newuser"},
		"email":     {"newuser@example.com"},
		"password1": {"complexpassword123"},
		"password2": {"complexpassword123"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pending_approval/", rec.Header().Get("Location"))

	acct, err := h.store.Accounts().GetByUsername(context.Background(), "newuser")
	require.NoError(t, err)
	assert.False(t, acct.IsActive)
	assert.Equal(t, 1, h.store.ProfileCount(acct.ID))

	assert.Equal(t, http.StatusOK, h.get("/pending_approval/").Code)
}

func TestRegisterInvalidRerendersForm(t *testing.T) {
	h := newHarness(t, false)

	rec := h.post("/register/", url.Values{
		"username":  {""},
		"email":     {"not-an-email"},
		"password1": {"complexpassword123"},
		"password2": {"different123456"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, `value="not-an-email"`)
	assert.Equal(t, 0, h.store.AccountCount())
}

func TestLoginRefusesInactiveAccount(t *testing.T) {
	h := newHarness(t, false)
	h.seed("waiting", false, false)

	rec := h.post("/login/", url.Values{"username": {"waiting"}, "password": {testPassword}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), app.MsgInvalidLogin)
	assert.Equal(t, http.StatusFound, h.get("/").Code)
}

func TestLoginRedirectByRole(t *testing.T) {
	h := newHarness(t, false)
	h.seed("boss", true, true)

	rec := h.post("/login/", url.Values{"username": {"boss"}, "password": {testPassword}})
	assert.Equal(t, "/login_redirect/", rec.Header().Get("Location"))
	assert.Equal(t, "/admin_dashboard/", h.get("/login_redirect/").Header().Get("Location"))

	other := newHarness(t, false)
	other.seed("member", true, false)
	other.login("member")
	assert.Equal(t, "/", other.get("/login_redirect/").Header().Get("Location"))
}

func TestLoginHonoursLocalNextOnly(t *testing.T) {
	h := newHarness(t, false)
	h.seed("member", true, false)

	rec := h.post("/login/", url.Values{"username": {"member"}, "password": {testPassword}, "next": {"/profile/"}})
	assert.Equal(t, "/profile/", rec.Header().Get("Location"))

	h.cookie = ""
	rec = h.post("/login/", url.Values{"username": {"member"}, "password": {testPassword}, "next": {"//evil.example.com/"}})
	assert.Equal(t, "/login_redirect/", rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t, false)
	h.seed("member", true, false)
	h.login("member")
	require.Equal(t, http.StatusOK, h.get("/").Code)

	rec := h.get("/logout/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusFound, h.get("/").Code)
}

func TestDashboardFiltersAndSorts(t *testing.T) {
	h := newHarness(t, false)
	h.seed("boss", true, true)
	h.seed("alice", false, false)
	h.seed("bob", false, false)
	h.seed("carol", true, false)
	h.login("boss")

	rec := h.get("/admin_dashboard/?q=ali")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "bob@example.com")

	rec = h.get("/admin_dashboard/?sort=username&order=desc")
	body := rec.Body.String()
	assert.NotContains(t, body, "carol@example.com")
	assert.Less(t, strings.Index(body, "bob@example.com"), strings.Index(body, "alice@example.com"))
}

func TestApproveAndReject(t *testing.T) {
	h := newHarness(t, false)
	h.seed("boss", true, true)
	pending := h.seed("pendinguser", false, false)
	other := h.seed("rejectme", false, false)
	h.login("boss")
	ctx := context.Background()

	rec := h.get(fmt.Sprintf("/approve/%d/", pending.ID))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin_dashboard/", rec.Header().Get("Location"))
	approved, err := h.store.Accounts().GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsActive)

	rec = h.post(fmt.Sprintf("/reject/%d/", other.ID), url.Values{})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 0, h.store.ProfileCount(other.ID))

	assert.Equal(t, http.StatusNotFound, h.get(fmt.Sprintf("/reject/%d/", other.ID)).Code)
	assert.Equal(t, http.StatusNotFound, h.get(fmt.Sprintf("/approve/%d/", other.ID)).Code)
	assert.Equal(t, http.StatusNotFound, h.get("/approve/abc/").Code)
}

func TestDashboardExport(t *testing.T) {
	h := newHarness(t, false)
	h.seed("boss", true, true)
	h.seed("alice", false, false)
	h.seed("bob", false, false)
	h.login("boss")

	rec := h.get("/admin_dashboard/export/?sort=username")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Pending")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "bob", rows[2][1])
}

func TestSearchPaginationKeepsSessionState(t *testing.T) {
	h := newHarness(t, false)
	h.seed("member", true, false)
	h.login("member")

	rec := h.post("/search/", url.Values{"query": {"golang"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Title of http://result5.com")
	assert.NotContains(t, body, "Title of http://result6.com")
	assert.Contains(t, body, "Page 1 of 2")
	assert.Equal(t, "golang", h.session().GetString(session.KeySearchQuery))
	assert.Equal(t, "1", h.session().GetString(session.KeyPage))

	rec = h.get("/search/?page=2")
	body = rec.Body.String()
	assert.Contains(t, body, "Title of http://result6.com")
	assert.Contains(t, body, "Page 2 of 2")
	assert.Equal(t, "2", h.session().GetString(session.KeyPage))

	rec = h.get("/search/?page=99")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2")
	assert.Equal(t, "2", h.session().GetString(session.KeyPage))
}

func TestSearchEmptyQuery(t *testing.T) {
	h := newHarness(t, false)
	h.seed("member", true, false)
	h.login("member")

	rec := h.post("/search/", url.Values{"query": {"   "}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), app.MsgEmptyQuery)
	assert.Equal(t, 0, h.provider.Calls())
	assert.False(t, h.session().Has(session.KeySearchQuery))
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t, false)
	acct := h.seed("profileuser", true, false)
	h.login("profileuser")

	rec := h.get("/profile/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="profileuser"`)

	rec = h.post("/profile/", url.Values{
		"username":   {"profileuserupdated"},
		"email":      {"profileupdated@example.com"},
		"first_name": {"Profile"},
		"last_name":  {"User"},
		"bio":        {"This is my **updated** bio."},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/", rec.Header().Get("Location"))

	updated, err := h.store.Accounts().GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "profileuserupdated", updated.Username)
	assert.Equal(t, "Profile", updated.FirstName)
	profile, err := h.store.Profiles().GetByAccountID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "This is my **updated** bio.", profile.Bio)

	body := h.get("/profile/").Body.String()
	assert.Contains(t, body, "Your profile has been updated successfully!")
	assert.Contains(t, body, "<strong>updated</strong>")
}

func TestProfileInvalidSubmissionSavesNothing(t *testing.T) {
	h := newHarness(t, false)
	acct := h.seed("profileuser", true, false)
	h.login("profileuser")

	rec := h.post("/profile/", url.Values{
		"username": {""},
		"email":    {"invalid-email"},
		"bio":      {"Attempted bio"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "Enter a valid email address.")
	assert.Contains(t, body, "Please correct the errors below.")

	unchanged, err := h.store.Accounts().GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "profileuser", unchanged.Username)
	profile, err := h.store.Profiles().GetByAccountID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Bio)
}

func TestProfileRejectsNonImageUpload(t *testing.T) {
	h := newHarness(t, false)
	h.seed("profileuser", true, false)
	h.login("profileuser")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("username", "profileuser"))
	require.NoError(t, w.WriteField("email", "profileuser@example.com"))
	part, err := w.CreateFormFile("picture", "notes.png")
	require.NoError(t, err)
	_, err = io.WriteString(part, "definitely not an image")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := h.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a valid image.")
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestCSRFProtectsPosts(t *testing.T) {
	h := newHarness(t, true)

	form := url.Values{
		"username":  {"newuser"},
		"email":     {"newuser@example.com"},
		"password1": {"complexpassword123"},
		"password2": {"complexpassword123"},
	}
	assert.Equal(t, http.StatusForbidden, h.post("/register/", form).Code)

	page := h.get("/register/")
	m := csrfPattern.FindStringSubmatch(page.Body.String())
	require.Len(t, m, 2)

	form.Set("csrf_token", m[1])
	rec := h.post("/register/", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestStaticAndFavicon(t *testing.T) {
	h := newHarness(t, false)

	rec := h.get("/favicon.ico")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/static/favicon.ico", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, h.get("/static/css/app.css").Code)
	assert.Equal(t, http.StatusOK, h.get("/static/favicon.ico").Code)
	assert.Equal(t, http.StatusNotFound, h.get("/nowhere/").Code)
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out := string(renderMarkdown("hello <script>alert(1)</script> *there*"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<em>there</em>")
	assert.Empty(t, string(renderMarkdown("  ")))
}

func TestSafeNext(t *testing.T) {
	tests := map[string]bool{
		"/profile/":            true,
		"/search/?page=2":      true,
		"":                     false,
		"https://evil.example": false,
		"//evil.example":       false,
		"/\\evil.example":      false,
		"profile/":             false,
	}
	for in, ok := range tests {
		_, got := safeNext(in)
		assert.Equal(t, ok, got, in)
	}
}
