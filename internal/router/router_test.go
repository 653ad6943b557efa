package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/team-presence/internal/config"
	"github.com/iliyamo/team-presence/internal/database"
	"github.com/iliyamo/team-presence/internal/handler"
	"github.com/iliyamo/team-presence/internal/middleware"
	"github.com/iliyamo/team-presence/internal/queue"
	"github.com/iliyamo/team-presence/internal/realtime"
	"github.com/iliyamo/team-presence/internal/repository"
	"github.com/iliyamo/team-presence/internal/service"
)

const testSecret = "router-test-secret"

type api struct {
	e      *echo.Echo
	mu     sync.Mutex
	events []queue.ChangeEvent
}

func (a *api) eventCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// newAPI wires the full route table over SQLite with the clock fixed at
// Tuesday 2025-06-10 10:00 UTC.  Redis is absent, so the cache and the
// limiter pass requests through.
func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWith(t, func(local func(queue.ChangeEvent)) service.Notifier {
		return queue.NewLocalNotifier(local)
	})
}

// newAPIWith is newAPI with the notifier built around the recording
// handler by wrap.
func newAPIWith(t *testing.T, wrap func(local func(queue.ChangeEvent)) service.Notifier) *api {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "presence.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	a := &api{e: echo.New()}
	notifier := wrap(func(ev queue.ChangeEvent) {
		a.mu.Lock()
		a.events = append(a.events, ev)
		a.mu.Unlock()
	})
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}

	users := repository.NewUserRepo(db)
	checkins := repository.NewCheckinRepo(db)
	clock := service.FixedClock(time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC))
	policy := service.NewPolicy(service.DefaultElevatedGroups...)
	ledger := service.NewLedger(repository.NewLocationRepo(db), users, notifier)
	machine := service.NewMachine(checkins, policy, notifier, clock)
	presence := handler.NewPresenceHandler(users, service.NewPresence(ledger, checkins, policy, clock))

	limiter := middleware.NewTokenBucket(config.RateLimitConfig{}, nil)
	cache := middleware.NewRedisCache(config.CacheConfig{}, nil)

	RegisterRoutes(a.e, handler.Health(db, nil))
	RegisterAuth(a.e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)), testSecret, limiter)
	RegisterEmployee(a.e, EmployeeHandlers{
		Locations: handler.NewLocationHandler(users, ledger, clock),
		Checkins:  handler.NewCheckinHandler(users, machine),
		Presence:  presence,
		Stream:    handler.NewWSHandler(users, realtime.NewHub()),
	}, testSecret, limiter, cache)
	RegisterAdmin(a.e, handler.NewAdminHandler(users), presence, testSecret, limiter)
	return a
}

func (a *api) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (a *api) doList(t *testing.T, path, token string) (int, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out []map[string]any
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("GET %s: decode %q: %v", path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

type account struct {
	id      uint64
	access  string
	refresh string
	role    string
}

func (a *api) register(t *testing.T, email, name string) account {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": email, "password": "password123", "full_name": name,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s = %d %v", email, code, body)
	}
	user := body["user"].(map[string]any)
	return account{
		id:      uint64(user["id"].(float64)),
		role:    user["role"].(string),
		access:  body["access"].(map[string]any)["token"].(string),
		refresh: body["refresh"].(map[string]any)["token"].(string),
	}
}

func wantStatus(t *testing.T, label string, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = %d, want %d (%v)", label, got, want, body)
	}
}

func wantError(t *testing.T, label string, body map[string]any, code string) {
	t.Helper()
	if body["error"] != code {
		t.Fatalf("%s error = %v, want %q", label, body["error"], code)
	}
}

func TestRegisterBootstrapsAdminAndRejectsDuplicates(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	first := a.register(t, "ana@example.com", "Ana")
	second := a.register(t, "bruno@example.com", "Bruno")
	if first.role != "ADMIN" || second.role != "EMPLOYEE" {
		t.Fatalf("roles = %s, %s; want ADMIN, EMPLOYEE", first.role, second.role)
	}

	code, body := a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "ANA@example.com", "password": "password123", "full_name": "Again",
	})
	wantStatus(t, "duplicate register", code, http.StatusConflict, body)
	wantError(t, "duplicate register", body, "email_exists")

	code, body = a.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "carla@example.com", "password": "short", "full_name": "Carla",
	})
	wantStatus(t, "short password", code, http.StatusBadRequest, body)
	wantError(t, "short password", body, "validation")
}

func TestLoginRefreshAndLogout(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	acct := a.register(t, "ana@example.com", "Ana")

	code, body := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong-password"})
	wantStatus(t, "bad login", code, http.StatusUnauthorized, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": " Ana@Example.com ", "password": "password123"})
	wantStatus(t, "login", code, http.StatusOK, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": acct.refresh})
	wantStatus(t, "refresh", code, http.StatusOK, body)
	rotated := body["refresh"].(map[string]any)["token"].(string)

	code, body = a.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": acct.refresh})
	wantStatus(t, "reuse rotated refresh", code, http.StatusUnauthorized, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/refresh-access", "", map[string]string{"refresh_token": rotated})
	wantStatus(t, "refresh access", code, http.StatusOK, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/logout", acct.access, nil)
	wantStatus(t, "logout all", code, http.StatusNoContent, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/refresh-access", "", map[string]string{"refresh_token": rotated})
	wantStatus(t, "refresh after logout", code, http.StatusUnauthorized, body)

	code, body = a.do(t, http.MethodGet, "/v1/me", acct.access, nil)
	wantStatus(t, "me", code, http.StatusOK, body)
	if body["email"] != "ana@example.com" {
		t.Fatalf("me = %v", body)
	}
}

func TestSelfProfileEdit(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	admin := a.register(t, "root@example.com", "Root")
	ana := a.register(t, "ana@example.com", "Ana")

	code, body := a.do(t, http.MethodPatch, "/v1/me", ana.access, map[string]any{
		"full_name": "  Ana Souza ", "job_function": "Designer",
	})
	wantStatus(t, "edit own profile", code, http.StatusOK, body)
	if body["full_name"] != "Ana Souza" || body["job_function"] != "Designer" {
		t.Fatalf("profile = %v", body)
	}

	code, body = a.do(t, http.MethodPatch, "/v1/me", ana.access, map[string]any{"full_name": "  "})
	wantStatus(t, "blank name", code, http.StatusBadRequest, body)
	wantError(t, "blank name", body, "validation")

	// a lead may validate others without a check-in of their own
	code, body = a.do(t, http.MethodPatch, "/v1/me", ana.access, map[string]any{"resource_group": "lead"})
	wantStatus(t, "self-promote group", code, http.StatusForbidden, body)
	wantError(t, "self-promote group", body, "forbidden")

	code, body = a.do(t, http.MethodPatch, "/v1/me", ana.access, map[string]any{"resource_group": "equipe"})
	wantStatus(t, "unchanged group", code, http.StatusOK, body)

	code, body = a.do(t, http.MethodGet, "/v1/me", ana.access, nil)
	wantStatus(t, "me", code, http.StatusOK, body)
	if body["resource_group"] != "equipe" || body["full_name"] != "Ana Souza" {
		t.Fatalf("me = %v", body)
	}

	code, body = a.do(t, http.MethodPatch, "/v1/me", admin.access, map[string]any{"resource_group": "head"})
	wantStatus(t, "admin sets own group", code, http.StatusOK, body)
	if body["resource_group"] != "head" {
		t.Fatalf("admin profile = %v", body)
	}

	code, body = a.do(t, http.MethodPatch, "/v1/me", "", map[string]any{"full_name": "Nobody"})
	wantStatus(t, "anonymous edit", code, http.StatusUnauthorized, body)
}

func TestLocationEndpoints(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	ana := a.register(t, "ana@example.com", "Ana")

	code, body := a.do(t, http.MethodPut, "/v1/locations/2025-06-10", ana.access, map[string]any{
		"status": "office", "arrival_time": "09:00", "departure_time": "18:00", "notes": "<b>standup</b>",
	})
	wantStatus(t, "put office", code, http.StatusOK, body)
	if body["notes"] != "standup" || body["arrival_time"] != "09:00" {
		t.Fatalf("stored = %v", body)
	}

	code, body = a.do(t, http.MethodPut, "/v1/locations/2025-06-09", ana.access, map[string]any{"status": "office"})
	wantStatus(t, "put past day", code, http.StatusForbidden, body)
	wantError(t, "put past day", body, "forbidden")

	code, body = a.do(t, http.MethodPut, "/v1/locations/2025-06-11", ana.access, map[string]any{"status": "beach"})
	wantStatus(t, "put unknown status", code, http.StatusBadRequest, body)
	wantError(t, "put unknown status", body, "validation")

	code, body = a.do(t, http.MethodGet, "/v1/locations?from=2025-06-09&to=2025-06-15", ana.access, nil)
	wantStatus(t, "list", code, http.StatusOK, body)
	users := body["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("users = %v", users)
	}

	code, body = a.do(t, http.MethodGet, "/v1/locations?from=2025-01-01&to=2025-12-31", ana.access, nil)
	wantStatus(t, "list too wide", code, http.StatusBadRequest, body)

	code, body = a.do(t, http.MethodDelete, "/v1/locations/2025-06-10", ana.access, nil)
	wantStatus(t, "delete", code, http.StatusNoContent, body)
	code, body = a.do(t, http.MethodDelete, "/v1/locations/2025-06-10", ana.access, nil)
	wantStatus(t, "delete again", code, http.StatusNoContent, body)

	// insert then delete; the repeated delete and rejected writes are silent
	if n := a.eventCount(); n != 2 {
		t.Fatalf("events = %d, want 2", n)
	}
}

// brokerStub stands in for the RabbitMQ publisher and records how many
// events the instance had already applied when each forward happened.
type brokerStub struct {
	a         *api
	mu        sync.Mutex
	forwarded []queue.ChangeEvent
	appliedAt []int
}

func (b *brokerStub) Publish(_ context.Context, ev queue.ChangeEvent) error {
	applied := b.a.eventCount()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarded = append(b.forwarded, ev)
	b.appliedAt = append(b.appliedAt, applied)
	return nil
}

func TestWriteIsAppliedLocallyBeforeResponse(t *testing.T) {
	t.Parallel()
	broker := &brokerStub{}
	a := newAPIWith(t, func(local func(queue.ChangeEvent)) service.Notifier {
		return queue.NewRelay("node-a", local, broker)
	})
	broker.a = a
	ana := a.register(t, "ana@example.com", "Ana")

	code, body := a.do(t, http.MethodPut, "/v1/locations/2025-06-10", ana.access, map[string]any{"status": "home_office"})
	wantStatus(t, "put", code, http.StatusOK, body)

	// the invalidation ran on this instance before the response was written
	if n := a.eventCount(); n != 1 {
		t.Fatalf("applied = %d, want 1 once the write returned", n)
	}
	broker.mu.Lock()
	defer broker.mu.Unlock()
	if len(broker.forwarded) != 1 || broker.appliedAt[0] != 1 {
		t.Fatalf("forwarded = %d (applied before forward: %v), want 1 after local apply", len(broker.forwarded), broker.appliedAt)
	}
	if broker.forwarded[0].Origin != "node-a" {
		t.Fatalf("origin = %q, want node-a", broker.forwarded[0].Origin)
	}
}

func TestCheckinEndpoints(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	admin := a.register(t, "root@example.com", "Root")
	ana := a.register(t, "ana@example.com", "Ana")
	bruno := a.register(t, "bruno@example.com", "Bruno")

	code, body := a.do(t, http.MethodPost, "/v1/checkins", ana.access, nil)
	wantStatus(t, "check in", code, http.StatusCreated, body)
	checkinID := uint64(body["id"].(float64))
	if body["status"] != "pending" || body["date"] != "2025-06-10" {
		t.Fatalf("check-in = %v", body)
	}

	code, body = a.do(t, http.MethodPost, "/v1/checkins", ana.access, map[string]string{"date": "2025-06-10"})
	wantStatus(t, "duplicate check in", code, http.StatusConflict, body)
	wantError(t, "duplicate check in", body, "duplicate_checkin")

	validate := fmt.Sprintf("/v1/checkins/%d/validate", checkinID)
	code, body = a.do(t, http.MethodPost, validate, ana.access, map[string]uint64{"user_id": ana.id})
	wantStatus(t, "self validate", code, http.StatusForbidden, body)
	wantError(t, "self validate", body, "self_validation")

	code, body = a.do(t, http.MethodPost, validate, bruno.access, map[string]uint64{"user_id": ana.id})
	wantStatus(t, "peer without check-in", code, http.StatusForbidden, body)
	wantError(t, "peer without check-in", body, "forbidden")

	code, list := a.doList(t, "/v1/checkins?from=2025-06-10&to=2025-06-10", admin.access)
	if code != http.StatusOK || len(list) != 1 || list[0]["can_validate"] != true {
		t.Fatalf("admin list = %d %v", code, list)
	}

	code, body = a.do(t, http.MethodPost, validate, admin.access, map[string]uint64{"user_id": ana.id})
	wantStatus(t, "admin validate", code, http.StatusOK, body)
	if body["status"] != "validated" {
		t.Fatalf("validated = %v", body)
	}

	code, body = a.do(t, http.MethodPost, validate, admin.access, map[string]uint64{"user_id": ana.id})
	wantStatus(t, "validate twice", code, http.StatusConflict, body)
	wantError(t, "validate twice", body, "invalid_state")

	code, body = a.do(t, http.MethodDelete, "/v1/checkins/2025-06-10", ana.access, nil)
	wantStatus(t, "cancel validated", code, http.StatusConflict, body)
	wantError(t, "cancel validated", body, "invalid_state")

	code, body = a.do(t, http.MethodPost, "/v1/checkins", bruno.access, map[string]string{"date": "2025-06-11"})
	wantStatus(t, "check in tomorrow", code, http.StatusBadRequest, body)

	code, body = a.do(t, http.MethodPost, "/v1/checkins", bruno.access, nil)
	wantStatus(t, "bruno check in", code, http.StatusCreated, body)
	code, body = a.do(t, http.MethodDelete, "/v1/checkins/2025-06-10", bruno.access, nil)
	wantStatus(t, "cancel pending", code, http.StatusNoContent, body)
}

func TestPresenceViews(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	ana := a.register(t, "ana@example.com", "Ana")
	bruno := a.register(t, "bruno@example.com", "Bruno")

	a.do(t, http.MethodPut, "/v1/locations/2025-06-10", ana.access, map[string]any{"status": "office"})
	a.do(t, http.MethodPost, "/v1/checkins", ana.access, nil)

	code, body := a.do(t, http.MethodGet, "/v1/presence/week", bruno.access, nil)
	wantStatus(t, "week", code, http.StatusOK, body)
	rows := body["rows"].([]any)
	if len(rows) != 2 || uint64(rows[0].(map[string]any)["id"].(float64)) != bruno.id {
		t.Fatalf("week rows = %v", rows)
	}

	code, body = a.do(t, http.MethodGet, "/v1/presence/month?grouped=true&offset=-1", bruno.access, nil)
	wantStatus(t, "month", code, http.StatusOK, body)
	if body["from"] != "2025-05-01" {
		t.Fatalf("month from = %v", body["from"])
	}
	code, body = a.do(t, http.MethodGet, "/v1/presence/month?grouped=maybe", bruno.access, nil)
	wantStatus(t, "month bad flag", code, http.StatusBadRequest, body)

	code, body = a.do(t, http.MethodGet, "/v1/presence/daily", bruno.access, nil)
	wantStatus(t, "daily", code, http.StatusOK, body)
	if body["counts"].(map[string]any)["office"].(float64) != 1 {
		t.Fatalf("daily = %v", body)
	}

	code, office := a.doList(t, "/v1/presence/office", bruno.access)
	if code != http.StatusOK || len(office) != 1 || office[0]["checkin"] != "pending" {
		t.Fatalf("office = %d %v", code, office)
	}
}

func TestAdminEndpoints(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	admin := a.register(t, "root@example.com", "Root")
	bruno := a.register(t, "bruno@example.com", "Bruno")

	code, body := a.do(t, http.MethodGet, "/v1/reports/monthly?month=2025-06", bruno.access, nil)
	wantStatus(t, "employee report", code, http.StatusForbidden, body)

	code, body = a.do(t, http.MethodGet, "/v1/reports/monthly?month=2025-06", admin.access, nil)
	wantStatus(t, "report", code, http.StatusOK, body)
	if body["working_days"].(float64) != 21 {
		t.Fatalf("report = %v", body)
	}
	if totals, ok := body["totals"].(map[string]any); !ok || totals["office"].(float64) != 0 || body["total"].(float64) != 0 {
		t.Fatalf("report totals = %v / %v", body["totals"], body["total"])
	}

	code, users := a.doList(t, "/v1/admin/users", admin.access)
	if code != http.StatusOK || len(users) != 2 {
		t.Fatalf("users = %d %v", code, users)
	}

	path := fmt.Sprintf("/v1/admin/users/%d", admin.id)
	code, body = a.do(t, http.MethodPatch, path, admin.access, map[string]any{"is_active": false})
	wantStatus(t, "deactivate self", code, http.StatusBadRequest, body)

	path = fmt.Sprintf("/v1/admin/users/%d", bruno.id)
	code, body = a.do(t, http.MethodPatch, path, admin.access, map[string]any{"resource_group": "squad"})
	wantStatus(t, "bad group", code, http.StatusBadRequest, body)

	code, body = a.do(t, http.MethodPatch, path, admin.access, map[string]any{"resource_group": "lead", "job_function": "QA"})
	wantStatus(t, "update", code, http.StatusOK, body)
	if body["resource_group"] != "lead" || body["job_function"] != "QA" {
		t.Fatalf("updated = %v", body)
	}

	code, body = a.do(t, http.MethodPatch, "/v1/admin/users/999", admin.access, map[string]any{"job_function": "x"})
	wantStatus(t, "update missing", code, http.StatusNotFound, body)

	code, body = a.do(t, http.MethodPatch, path, admin.access, map[string]any{"is_active": false})
	wantStatus(t, "deactivate", code, http.StatusOK, body)

	// the token is still valid but the account is not
	code, body = a.do(t, http.MethodGet, "/v1/me", bruno.access, nil)
	wantStatus(t, "disabled me", code, http.StatusUnauthorized, body)
	code, body = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "bruno@example.com", "password": "password123"})
	wantStatus(t, "disabled login", code, http.StatusUnauthorized, body)

	code, body = a.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", admin.id), admin.access, map[string]string{"role": "EMPLOYEE"})
	wantStatus(t, "demote self", code, http.StatusBadRequest, body)
}

func TestAdminDemotionTakesEffectImmediately(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	root := a.register(t, "root@example.com", "Root")
	second := a.register(t, "second@example.com", "Second")

	code, body := a.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", second.id), root.access, map[string]string{"role": "admin"})
	wantStatus(t, "promote", code, http.StatusOK, body)

	code, body = a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "second@example.com", "password": "password123"})
	wantStatus(t, "login as admin", code, http.StatusOK, body)
	adminToken := body["access"].(map[string]any)["token"].(string)

	code, body = a.do(t, http.MethodGet, "/v1/admin/users", adminToken, nil)
	wantStatus(t, "admin list", code, http.StatusOK, body)

	code, body = a.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/role", second.id), root.access, map[string]string{"role": "EMPLOYEE"})
	wantStatus(t, "demote", code, http.StatusOK, body)

	// the token still claims ADMIN; the stored role wins
	code, body = a.do(t, http.MethodGet, "/v1/admin/users", adminToken, nil)
	wantStatus(t, "demoted list", code, http.StatusForbidden, body)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	for _, path := range []string{"/v1/me", "/v1/presence/week", "/v1/checkins?from=2025-06-10&to=2025-06-10", "/v1/admin/users"} {
		code, body := a.do(t, http.MethodGet, path, "", nil)
		wantStatus(t, path, code, http.StatusUnauthorized, body)
	}

	code, body := a.do(t, http.MethodGet, "/healthz", "", nil)
	wantStatus(t, "healthz", code, http.StatusOK, body)
	if body["db"] != "ok" || body["redis"] != "disabled" {
		t.Fatalf("health = %v", body)
	}
}
