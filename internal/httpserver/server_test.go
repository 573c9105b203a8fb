package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/audit"
	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/notify"
	"citizenconnect/webclient/internal/routes"
	"citizenconnect/webclient/internal/session"
	"citizenconnect/webclient/internal/storage"
	"citizenconnect/webclient/internal/store"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	handler http.Handler
	session *session.Session
	local   *storage.MemoryStore
	store   *store.Store
	audit   *recordingAudit
}

func newFixture(t *testing.T, signedIn *domain.User, backend http.Handler) *fixture {
	t.Helper()
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)
	return newFixtureAt(t, signedIn, api.URL+"/api")
}

func newFixtureAt(t *testing.T, signedIn *domain.User, baseURL string) *fixture {
	t.Helper()
	local := storage.NewMemoryStore()
	sess, err := session.New(local)
	if err != nil {
		t.Fatalf("session.New() error: %v", err)
	}
	if signedIn != nil {
		if err := sess.Establish("tok", *signedIn); err != nil {
			t.Fatalf("Establish() error: %v", err)
		}
	}
	history := routes.NewHistory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := apiclient.New(apiclient.Options{
		BaseURL: baseURL,
		Middleware: []apiclient.Middleware{
			apiclient.WithRequestID(),
			apiclient.WithBearer(sess),
			apiclient.WithUnauthorized(sess, history, routes.LoginPath, logger),
		},
	})
	if err != nil {
		t.Fatalf("apiclient.New() error: %v", err)
	}
	st, err := store.New(store.API{Auth: client.Auth, Issues: client.Issues, Updates: client.Updates}, sess, store.Options{Logger: logger})
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	table, err := routes.Default()
	if err != nil {
		t.Fatalf("routes.Default() error: %v", err)
	}
	rec := &recordingAudit{}

	h := NewHandler(Deps{
		Store:   st,
		API:     client,
		Routes:  table,
		History: history,
		Toasts:  notify.NewQueue(0),
		Audit:   rec,
		Logger:  logger,
	})
	return &fixture{
		handler: loggingMiddleware(logger, h),
		session: sess,
		local:   local,
		store:   st,
		audit:   rec,
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func envelope(w http.ResponseWriter, status int, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"success":true,"message":"ok","data":`+data+`}`)
}

func rejectWith(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"success":false,"message":"`+message+`","data":null}`)
}

type pageResponse struct {
	Route  string            `json:"route"`
	Page   string            `json:"page"`
	Params map[string]string `json:"params"`
	Viewer struct {
		Authenticated bool         `json:"authenticated"`
		User          *domain.User `json:"user"`
		Initials      string       `json:"initials"`
	} `json:"viewer"`
	Nav    []routes.Link              `json:"nav"`
	Data   map[string]json.RawMessage `json:"data"`
	Toasts []notify.Toast             `json:"toasts"`
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 page, got %d: %s", rec.Code, rec.Body.String())
	}
	var out pageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return out
}

type actionResponse struct {
	Redirect string          `json:"redirect"`
	Data     json.RawMessage `json:"data"`
	Toasts   []notify.Toast  `json:"toasts"`
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) actionResponse {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var out actionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode action: %v", err)
	}
	return out
}

func expectToast(t *testing.T, toasts []notify.Toast, level notify.Level, message string) {
	t.Helper()
	for _, toast := range toasts {
		if toast.Level == level && toast.Message == message {
			return
		}
	}
	t.Fatalf("expected %s toast %q, got %+v", level, message, toasts)
}

var (
	citizen    = &domain.User{ID: 1, FullName: "Ann Citizen", Email: "ann@example.com", Role: domain.RoleCitizen}
	politician = &domain.User{ID: 9, FullName: "Pat Politician", Email: "pat@example.com", Role: domain.RolePolitician}
	admin      = &domain.User{ID: 2, FullName: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin}
)

func TestHealthAndInfoEndpoints(t *testing.T) {
	f := newFixture(t, nil, http.NewServeMux())

	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected readyz 200, got %d", rec.Code)
	}
	rec := f.do(http.MethodGet, "/v1/info", "")
	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info["service"] != "citizenconnect-webclient" || !strings.HasSuffix(info["api"], "/api") {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestReadyzWithoutWiring(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestGuardRedirects(t *testing.T) {
	tests := []struct {
		name     string
		viewer   *domain.User
		path     string
		location string
	}{
		{name: "guest on protected page", path: "/dashboard", location: "/login"},
		{name: "unknown route", path: "/nowhere", location: "/"},
		{name: "signed in on guest page", viewer: citizen, path: "/login", location: "/dashboard"},
		{name: "wrong role", viewer: citizen, path: "/admin", location: "/dashboard"},
		{name: "citizen on create update", viewer: citizen, path: "/updates/create", location: "/dashboard"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.viewer, http.NewServeMux())
			rec := f.do(http.MethodGet, tc.path, "")
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303, got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tc.location {
				t.Fatalf("expected redirect to %q, got %q", tc.location, got)
			}
		})
	}
}

func TestDeniedRouteIsAudited(t *testing.T) {
	f := newFixture(t, nil, http.NewServeMux())
	f.do(http.MethodGet, "/profile", "")
	f.do(http.MethodGet, "/nowhere", "")

	got := f.audit.actions()
	if len(got) != 1 || got[0] != audit.ActionRouteDenied {
		t.Fatalf("expected one route.denied event, got %v", got)
	}
}

func TestPublicPageRendersNavForGuest(t *testing.T) {
	f := newFixture(t, nil, http.NewServeMux())
	page := decodePage(t, f.do(http.MethodGet, "/", ""))
	if page.Page != "home" || page.Viewer.Authenticated {
		t.Fatalf("unexpected page %+v", page)
	}
	if len(page.Nav) != 5 || page.Nav[3].Path != "/login" {
		t.Fatalf("expected guest nav, got %+v", page.Nav)
	}
}

func TestLoginActionSignsIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds apiclient.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "ann@example.com" || creds.Password != "secret1" {
			rejectWith(w, http.StatusBadRequest, "unexpected credentials")
			return
		}
		envelope(w, http.StatusOK, `{"token":"jwt-1","tokenType":"Bearer","user":{"id":1,"fullName":"Ann Citizen","email":"ann@example.com","role":"CITIZEN"}}`)
	})
	f := newFixture(t, nil, mux)

	res := decodeAction(t, f.do(http.MethodPost, "/actions/login", `{"email":" ann@example.com ","password":"secret1"}`), http.StatusOK)
	if res.Redirect != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %q", res.Redirect)
	}
	expectToast(t, res.Toasts, notify.LevelSuccess, "Login successful! Welcome back.")

	if token, _ := f.local.Get(session.TokenKey); token != "jwt-1" {
		t.Fatalf("expected persisted token, got %q", token)
	}
	if !f.store.Snapshot().Auth.IsAuthenticated {
		t.Fatalf("expected authenticated store")
	}
	if rec := f.do(http.MethodGet, "/login", ""); rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected signed-in viewer to leave login page")
	}
}

func TestLoginActionRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusUnauthorized, "Invalid email or password")
	})
	f := newFixture(t, nil, mux)

	res := decodeAction(t, f.do(http.MethodPost, "/actions/login", `{"email":"ann@example.com","password":"wrong"}`), http.StatusUnauthorized)
	if res.Redirect != "" {
		t.Fatalf("expected no redirect, got %q", res.Redirect)
	}
	expectToast(t, res.Toasts, notify.LevelError, "Invalid email or password")
	if f.store.Snapshot().Auth.Error != "Invalid email or password" {
		t.Fatalf("expected auth error in store, got %q", f.store.Snapshot().Auth.Error)
	}

	page := decodePage(t, f.do(http.MethodGet, "/login", ""))
	if len(page.Toasts) != 0 {
		t.Fatalf("expected rejected login toasts to be consumed, got %+v", page.Toasts)
	}
	var shown string
	_ = json.Unmarshal(page.Data["error"], &shown)
	if shown != "Invalid email or password" {
		t.Fatalf("expected login page to show the error, got %q", shown)
	}
	if f.store.Snapshot().Auth.Error != "" {
		t.Fatalf("expected error to be cleared once shown")
	}
}

func TestLoginActionValidation(t *testing.T) {
	f := newFixture(t, nil, http.NewServeMux())
	res := decodeAction(t, f.do(http.MethodPost, "/actions/login", `{"email":"","password":""}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "Email and password are required")
}

func TestRegisterAction(t *testing.T) {
	var calls int
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		var req apiclient.RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Role != domain.RoleCitizen {
			rejectWith(w, http.StatusBadRequest, "role missing")
			return
		}
		envelope(w, http.StatusCreated, `{"id":3,"fullName":"New Person","email":"new@example.com","role":"CITIZEN"}`)
	})
	f := newFixture(t, nil, mux)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "mismatch", body: `{"fullName":"New Person","email":"new@example.com","password":"secret1","confirmPassword":"secret2"}`, want: "Passwords do not match"},
		{name: "too short", body: `{"fullName":"New Person","email":"new@example.com","password":"abc","confirmPassword":"abc"}`, want: "Password must be at least 6 characters"},
		{name: "missing name", body: `{"email":"new@example.com","password":"secret1","confirmPassword":"secret1"}`, want: "Please fill in all required fields"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := decodeAction(t, f.do(http.MethodPost, "/actions/register", tc.body), http.StatusBadRequest)
			expectToast(t, res.Toasts, notify.LevelError, tc.want)
		})
	}
	if calls != 0 {
		t.Fatalf("expected no register request for invalid forms, got %d", calls)
	}

	res := decodeAction(t, f.do(http.MethodPost, "/actions/register",
		`{"fullName":"New Person","email":"new@example.com","password":"secret1","confirmPassword":"secret1"}`), http.StatusOK)
	if res.Redirect != "/login" {
		t.Fatalf("expected redirect to login, got %q", res.Redirect)
	}
	expectToast(t, res.Toasts, notify.LevelSuccess, "Registration successful! Please login.")
	if f.session.Authenticated() {
		t.Fatalf("expected no session without a credential")
	}
}

func TestCitizenDashboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/my-issues", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			rejectWith(w, http.StatusBadRequest, "missing bearer")
			return
		}
		envelope(w, http.StatusOK, `[{"id":1,"title":"A","status":"OPEN"},{"id":2,"title":"B","status":"IN_PROGRESS"},{"id":3,"title":"C","status":"RESOLVED"}]`)
	})
	mux.HandleFunc("GET /api/updates", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `[{"id":4,"title":"Town hall","content":"Friday"}]`)
	})
	f := newFixture(t, citizen, mux)

	page := decodePage(t, f.do(http.MethodGet, "/dashboard", ""))
	if page.Viewer.Initials != "AC" {
		t.Fatalf("expected viewer initials AC, got %q", page.Viewer.Initials)
	}
	var counts issueCounts
	if err := json.Unmarshal(page.Data["counts"], &counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if counts != (issueCounts{Total: 3, Pending: 2, Resolved: 1}) {
		t.Fatalf("unexpected counts %+v", counts)
	}
	var kind string
	_ = json.Unmarshal(page.Data["kind"], &kind)
	if kind != "citizen" {
		t.Fatalf("expected citizen dashboard, got %q", kind)
	}
	if snap := f.store.Snapshot(); len(snap.Issues.Issues) != 3 || len(snap.Updates.Updates) != 1 {
		t.Fatalf("expected store slices to be filled, got %+v", snap)
	}
}

func TestIssuesPageFiltersLocally(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/assigned", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `[
			{"id":1,"title":"Road repair","description":"Main street","status":"OPEN"},
			{"id":2,"title":"Broken light","description":"Road corner","status":"RESOLVED"},
			{"id":3,"title":"Water leak","description":"Park","status":"RESOLVED"}
		]`)
	})
	f := newFixture(t, politician, mux)

	page := decodePage(t, f.do(http.MethodGet, "/issues?q=road&status=resolved", ""))
	var issues []domain.Issue
	if err := json.Unmarshal(page.Data["issues"], &issues); err != nil {
		t.Fatalf("decode issues: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != 2 {
		t.Fatalf("expected only issue 2, got %+v", issues)
	}
}

func TestIssueDetailFailureReturnsToList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusNotFound, "Issue not found")
	})
	mux.HandleFunc("GET /api/issues/my-issues", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `[]`)
	})
	f := newFixture(t, citizen, mux)

	rec := f.do(http.MethodGet, "/issues/5", "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/issues" {
		t.Fatalf("expected redirect to /issues, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	page := decodePage(t, f.do(http.MethodGet, "/issues", ""))
	expectToast(t, page.Toasts, notify.LevelError, "Failed to load issue details")
}

func TestIssueDetailForAssignedPolitician(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":5,"title":"Pothole","status":"IN_PROGRESS","assignedPoliticianId":9,"createdAt":"2024-01-02T10:00:00"}`)
	})
	mux.HandleFunc("GET /api/comments/issue/5", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `[{"id":1,"issueId":5,"userName":"Ann","userRole":"CITIZEN","content":"Still there"}]`)
	})
	f := newFixture(t, politician, mux)

	page := decodePage(t, f.do(http.MethodGet, "/issues/5", ""))
	if page.Params["id"] != "5" {
		t.Fatalf("expected id param, got %+v", page.Params)
	}
	var canRespond bool
	_ = json.Unmarshal(page.Data["canRespond"], &canRespond)
	if !canRespond {
		t.Fatalf("expected assigned politician to be able to respond")
	}
	current := f.store.Snapshot().Issues.CurrentIssue
	if current == nil || current.ID != 5 {
		t.Fatalf("expected current issue 5, got %+v", current)
	}
}

func TestCanRespond(t *testing.T) {
	assigned := int64(9)
	other := int64(10)
	tests := []struct {
		name  string
		issue domain.Issue
		user  *domain.User
		want  bool
	}{
		{name: "assigned and open", issue: domain.Issue{Status: domain.StatusOpen, AssignedPoliticianID: &assigned}, user: politician, want: true},
		{name: "resolved", issue: domain.Issue{Status: domain.StatusResolved, AssignedPoliticianID: &assigned}, user: politician},
		{name: "closed", issue: domain.Issue{Status: domain.StatusClosed, AssignedPoliticianID: &assigned}, user: politician},
		{name: "someone else", issue: domain.Issue{Status: domain.StatusOpen, AssignedPoliticianID: &other}, user: politician},
		{name: "unassigned", issue: domain.Issue{Status: domain.StatusOpen}, user: politician},
		{name: "citizen", issue: domain.Issue{Status: domain.StatusOpen, AssignedPoliticianID: &assigned}, user: citizen},
		{name: "guest", issue: domain.Issue{Status: domain.StatusOpen, AssignedPoliticianID: &assigned}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := canRespond(tc.issue, tc.user); got != tc.want {
				t.Fatalf("canRespond() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUnauthorizedPageLoadForcesLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/my-issues", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusUnauthorized, "Token expired")
	})
	f := newFixture(t, citizen, mux)

	rec := f.do(http.MethodGet, "/issues", "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected forced redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if f.session.Authenticated() || f.store.Snapshot().Auth.IsAuthenticated {
		t.Fatalf("expected session and auth slice to be cleared")
	}
	if keys := storedKeys(f.local); len(keys) != 0 {
		t.Fatalf("expected local storage cleared, got %v", keys)
	}
	got := f.audit.actions()
	if len(got) == 0 || got[len(got)-1] != audit.ActionForcedLogout {
		t.Fatalf("expected forced logout event, got %v", got)
	}
}

func TestCreateIssueAction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/issues", func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.CreateIssueRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		envelope(w, http.StatusCreated, `{"id":11,"title":"`+req.Title+`","status":"OPEN"}`)
	})
	f := newFixture(t, citizen, mux)

	res := decodeAction(t, f.do(http.MethodPost, "/actions/issues", `{"title":"Pothole","description":"Deep","category":"Infrastructure"}`), http.StatusOK)
	if res.Redirect != "/issues" {
		t.Fatalf("expected redirect to /issues, got %q", res.Redirect)
	}
	expectToast(t, res.Toasts, notify.LevelSuccess, "Issue reported successfully!")
	issues := f.store.Snapshot().Issues.Issues
	if len(issues) != 1 || issues[0].ID != 11 {
		t.Fatalf("expected created issue at head of list, got %+v", issues)
	}

	res = decodeAction(t, f.do(http.MethodPost, "/actions/issues", `{"title":"","description":"x","category":"Other"}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "Please fill in all required fields")
}

func TestActionRoleAndSignInGuards(t *testing.T) {
	f := newFixture(t, politician, http.NewServeMux())
	res := decodeAction(t, f.do(http.MethodPost, "/actions/issues", `{"title":"x","description":"y","category":"Other"}`), http.StatusForbidden)
	if len(res.Toasts) != 1 || res.Toasts[0].Level != notify.LevelError {
		t.Fatalf("expected permission toast, got %+v", res.Toasts)
	}

	guest := newFixture(t, nil, http.NewServeMux())
	res = decodeAction(t, guest.do(http.MethodPost, "/actions/feedback", `{"politicianId":9,"rating":4}`), http.StatusUnauthorized)
	if res.Redirect != "/login" {
		t.Fatalf("expected redirect to /login, got %q", res.Redirect)
	}
}

func TestFeedbackAction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusBadRequest, "You already rated this politician")
	})
	f := newFixture(t, citizen, mux)

	res := decodeAction(t, f.do(http.MethodPost, "/actions/feedback", `{"politicianId":9,"rating":0}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "Please select a politician and rating")

	res = decodeAction(t, f.do(http.MethodPost, "/actions/feedback", `{"politicianId":9,"rating":4}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "You already rated this politician")
}

func TestRespondAndResolveActions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":5,"status":"IN_PROGRESS","assignedPoliticianId":9}`)
	})
	mux.HandleFunc("PUT /api/issues/5/respond", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":5,"status":"IN_PROGRESS","response":"On it","assignedPoliticianId":9}`)
	})
	mux.HandleFunc("PUT /api/issues/5/resolve", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":5,"status":"RESOLVED","resolutionNotes":"Fixed","assignedPoliticianId":9}`)
	})
	f := newFixture(t, politician, mux)

	res := decodeAction(t, f.do(http.MethodPut, "/actions/issues/5/respond", `{"response":"On it"}`), http.StatusOK)
	expectToast(t, res.Toasts, notify.LevelSuccess, "Response submitted")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/issues/5/resolve", `{"resolutionNotes":"Fixed"}`), http.StatusOK)
	expectToast(t, res.Toasts, notify.LevelSuccess, "Issue marked as resolved")
	if current := f.store.Snapshot().Issues.CurrentIssue; current == nil || current.Status != domain.StatusResolved {
		t.Fatalf("expected resolved current issue, got %+v", current)
	}

	res = decodeAction(t, f.do(http.MethodPut, "/actions/issues/abc/respond", `{"response":"x"}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "Invalid issue")
}

func TestRespondAndResolveRequireAssignedOpenIssue(t *testing.T) {
	var writes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues/5", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":5,"status":"OPEN","assignedPoliticianId":7}`)
	})
	mux.HandleFunc("GET /api/issues/6", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":6,"status":"RESOLVED","assignedPoliticianId":9}`)
	})
	mux.HandleFunc("GET /api/issues/8", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusNotFound, "Issue not found")
	})
	mux.HandleFunc("PUT /api/issues/{id}/{op}", func(w http.ResponseWriter, r *http.Request) {
		writes.Add(1)
		envelope(w, http.StatusOK, `{"id":5,"status":"IN_PROGRESS","assignedPoliticianId":9}`)
	})
	f := newFixture(t, politician, mux)

	res := decodeAction(t, f.do(http.MethodPut, "/actions/issues/5/respond", `{"response":"Mine now"}`), http.StatusForbidden)
	expectToast(t, res.Toasts, notify.LevelError, "You can only respond to open issues assigned to you")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/issues/5/resolve", `{"resolutionNotes":"Done"}`), http.StatusForbidden)
	expectToast(t, res.Toasts, notify.LevelError, "You can only resolve open issues assigned to you")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/issues/6/resolve", ""), http.StatusForbidden)
	expectToast(t, res.Toasts, notify.LevelError, "You can only resolve open issues assigned to you")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/issues/8/respond", `{"response":"Hello"}`), http.StatusNotFound)
	expectToast(t, res.Toasts, notify.LevelError, "Issue not found")

	if got := writes.Load(); got != 0 {
		t.Fatalf("expected no respond or resolve calls to reach the API, got %d", got)
	}
	if current := f.store.Snapshot().Issues.CurrentIssue; current != nil {
		t.Fatalf("expected current issue untouched, got %+v", current)
	}

	denied := 0
	f.audit.mu.Lock()
	for _, e := range f.audit.events {
		if e.Outcome == audit.OutcomeDenied && (e.Action == audit.ActionIssueRespond || e.Action == audit.ActionIssueResolve) {
			denied++
		}
	}
	f.audit.mu.Unlock()
	if denied != 3 {
		t.Fatalf("expected 3 denied audit events, got %d", denied)
	}
}

func TestProfileUpdatePersistsUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/users/1", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, `{"id":1,"fullName":"Ann Updated","email":"ann@example.com","role":"CITIZEN"}`)
	})
	f := newFixture(t, citizen, mux)

	res := decodeAction(t, f.do(http.MethodPut, "/actions/profile", `{"fullName":"Ann Updated"}`), http.StatusOK)
	expectToast(t, res.Toasts, notify.LevelSuccess, "Profile updated successfully!")
	if u := f.session.User(); u == nil || u.FullName != "Ann Updated" {
		t.Fatalf("expected session user updated, got %+v", u)
	}
	if u := f.store.Snapshot().Auth.User; u == nil || u.FullName != "Ann Updated" {
		t.Fatalf("expected store user updated, got %+v", u)
	}
}

func TestAdminActionsReportServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/users/4/toggle-status", func(w http.ResponseWriter, r *http.Request) {
		rejectWith(w, http.StatusNotFound, "User not found")
	})
	mux.HandleFunc("PUT /api/users/4/role", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("role") != "MODERATOR" {
			rejectWith(w, http.StatusBadRequest, "bad role")
			return
		}
		envelope(w, http.StatusOK, `{"id":4,"fullName":"Mo","role":"MODERATOR"}`)
	})
	f := newFixture(t, admin, mux)

	res := decodeAction(t, f.do(http.MethodPut, "/actions/admin/users/4/toggle-status", ""), http.StatusNotFound)
	expectToast(t, res.Toasts, notify.LevelError, "User not found")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/admin/users/4/role", `{"role":"moderator"}`), http.StatusOK)
	expectToast(t, res.Toasts, notify.LevelSuccess, "Role updated successfully")

	res = decodeAction(t, f.do(http.MethodPut, "/actions/admin/users/4/role", `{"role":"EMPEROR"}`), http.StatusBadRequest)
	expectToast(t, res.Toasts, notify.LevelError, "Invalid role")
}

func TestNetworkFailureShowsGenericToast(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL + "/api"
	dead.Close()
	f := newFixtureAt(t, admin, base)

	res := decodeAction(t, f.do(http.MethodDelete, "/actions/admin/users/4", ""), http.StatusBadGateway)
	expectToast(t, res.Toasts, notify.LevelError, notify.GenericFailure)
	if !f.session.Authenticated() {
		t.Fatalf("expected network failure to keep the session")
	}
}

func TestUploadAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/files/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			rejectWith(w, http.StatusBadRequest, "no file")
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		envelope(w, http.StatusOK, `{"filename":"`+header.Filename+`","fileDownloadUri":"/api/files/download/x","fileType":"text/plain","size":"`+strconv.Itoa(len(data))+`"}`)
	})
	mux.HandleFunc("GET /api/files/download/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})
	f := newFixture(t, citizen, mux)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "photo.txt")
	_, _ = part.Write(bytes.Repeat([]byte("a"), 2048))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/actions/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	res := decodeAction(t, rec, http.StatusOK)
	var uploaded uploadView
	if err := json.Unmarshal(res.Data, &uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if uploaded.Filename != "photo.txt" || uploaded.HumanSize != "2.0 kB" {
		t.Fatalf("unexpected upload view %+v", uploaded)
	}

	down := f.do(http.MethodGet, "/files/photo.png", "")
	if down.Code != http.StatusOK || down.Body.String() != "png-bytes" || down.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected download %d %q %q", down.Code, down.Header().Get("Content-Type"), down.Body.String())
	}
}

func TestRequestIDReachesAPI(t *testing.T) {
	var mu sync.Mutex
	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/updates", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Header.Get(apiclient.RequestIDHeader)
		mu.Unlock()
		envelope(w, http.StatusOK, `[]`)
	})
	f := newFixture(t, nil, mux)

	req := httptest.NewRequest(http.MethodGet, "/updates", nil)
	req.Header.Set(apiclient.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Header().Get(apiclient.RequestIDHeader) != "req-123" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(apiclient.RequestIDHeader))
	}
	mu.Lock()
	defer mu.Unlock()
	if seen != "req-123" {
		t.Fatalf("expected request id forwarded to api, got %q", seen)
	}
}

func TestLogoutAction(t *testing.T) {
	f := newFixture(t, citizen, http.NewServeMux())
	res := decodeAction(t, f.do(http.MethodPost, "/actions/logout", ""), http.StatusOK)
	if res.Redirect != "/login" {
		t.Fatalf("expected redirect to /login, got %q", res.Redirect)
	}
	if f.session.Authenticated() || f.store.Snapshot().Auth.IsAuthenticated {
		t.Fatalf("expected signed out")
	}
	got := f.audit.actions()
	if len(got) != 1 || got[0] != audit.ActionLogout {
		t.Fatalf("expected logout event, got %v", got)
	}
}

func TestClientIPPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Real-IP", "10.0.0.2")
	if got := clientIP(req); got != "10.0.0.2" {
		t.Fatalf("expected real ip, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}
}

func storedKeys(s storage.Store) []string {
	var present []string
	for _, k := range []string{session.TokenKey, session.UserKey} {
		if _, err := s.Get(k); err == nil {
			present = append(present, k)
		}
	}
	return present
}
