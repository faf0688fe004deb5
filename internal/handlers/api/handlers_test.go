package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/internal/auth"
	"github.com/fullpos/poscloud/internal/companies"
	"github.com/fullpos/poscloud/internal/database/dbtest"
	"github.com/fullpos/poscloud/internal/middlewares"
	"github.com/fullpos/poscloud/internal/override"
	"github.com/fullpos/poscloud/internal/store"
	"github.com/fullpos/poscloud/internal/users"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

const testOverrideKey = "terminal-key"

type testServer struct {
	app      *fiber.App
	db       *gorm.DB
	users    *users.UserService
	companyA uint
	companyB uint
}

func newTestServer(t *testing.T, verifyLimit int) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	srv := &testServer{
		db:       db,
		companyA: dbtest.SeedCompany(t, db, "Colmado A", "101000001"),
		companyB: dbtest.SeedCompany(t, db, "Colmado B", "101000002"),
	}

	userService := users.NewUserService(users.NewUserRepository(db))
	srv.users = userService
	seed := []users.CreateUserOptions{
		{CompanyID: srv.companyA, Username: "owner", Password: "password1", Role: model.RoleOwner},
		{CompanyID: srv.companyA, Username: "cashier", Password: "password1", Role: model.RoleCashier},
		{CompanyID: srv.companyB, Username: "ownerb", Password: "password1", Role: model.RoleOwner},
	}
	for _, opts := range seed {
		if _, err := userService.CreateUser(context.Background(), opts); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	storage := store.NewMemoryStorage()
	authService := auth.NewAuthService("test-secret", userService, store.New[auth.RefreshSession](storage, params.RefreshTokenKeyPrefix))
	auditService := audit.NewAuditService(audit.NewAuditLogRepository(db))
	overrideService := override.NewOverrideService(db, auditService)
	companyService := companies.NewCompanyService(db, auditService)

	srv.app = fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler})
	SetupRoutes(srv.app, NewAuthHandler(authService), NewOverrideHandler(overrideService, companyService, userService), RouteConfig{
		OverrideKey:      testOverrideKey,
		TokenParser:      authService,
		RateLimitStorage: storage,
		VerifyRateLimit:  verifyLimit,
		VerifyRateSpan:   time.Minute,
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded interface{}
	if resp.StatusCode != fiber.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode, decoded
}

func (s *testServer) login(t *testing.T, username string) map[string]string {
	t.Helper()
	status, body := s.do(t, "POST", "/api/auth/login", fiber.Map{"identifier": username, "password": "password1"}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("login %s: status %d %v", username, status, body)
	}
	token := body.(map[string]interface{})["accessToken"].(string)
	return map[string]string{"Authorization": "Bearer " + token}
}

var terminalHeaders = map[string]string{middlewares.HeaderOverrideKey: testOverrideKey}

func TestOverrideFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := srv.login(t, "owner")

	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyId":     srv.companyA,
		"actionCode":    "VOID_SALE",
		"resourceType":  "Sale",
		"resourceId":    "42",
		"requestedById": 7,
		"meta":          fiber.Map{"total": 1500.5},
	}, terminalHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("request: status %d %v", status, body)
	}
	created := body.(map[string]interface{})
	if created["status"] != model.OverrideStatusPending {
		t.Fatalf("unexpected request response %v", created)
	}

	status, body = srv.do(t, "POST", "/api/override/approve", fiber.Map{
		"requestId":        created["requestId"],
		"expiresInSeconds": 60,
	}, owner)
	if status != fiber.StatusOK {
		t.Fatalf("approve: status %d %v", status, body)
	}
	token := body.(map[string]interface{})["token"].(string)

	verify := fiber.Map{
		"companyId":    srv.companyA,
		"token":        token,
		"actionCode":   "VOID_SALE",
		"resourceType": "Sale",
		"usedById":     7,
	}
	status, body = srv.do(t, "POST", "/api/override/verify", verify, terminalHeaders)
	if status != fiber.StatusOK || body.(map[string]interface{})["ok"] != true {
		t.Fatalf("verify: status %d %v", status, body)
	}

	status, body = srv.do(t, "POST", "/api/override/verify", verify, terminalHeaders)
	result := body.(map[string]interface{})
	if status != fiber.StatusBadRequest || result["ok"] != false || result["message"] != "token already used" {
		t.Fatalf("second verify: status %d %v", status, body)
	}

	status, body = srv.do(t, "GET", "/api/audit", nil, owner)
	if status != fiber.StatusOK {
		t.Fatalf("audit: status %d %v", status, body)
	}
	if entries := body.([]interface{}); len(entries) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(entries))
	}

	status, body = srv.do(t, "GET", "/api/override/requests?status=APPROVED", nil, owner)
	if status != fiber.StatusOK {
		t.Fatalf("requests: status %d %v", status, body)
	}
	if requests := body.([]interface{}); len(requests) != 1 {
		t.Fatalf("expected 1 approved request, got %d", len(requests))
	}
}

func TestValidationErrorsAreItemized(t *testing.T) {
	srv := newTestServer(t, 100)

	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{"actionCode": "AB"}, terminalHeaders)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	resp := body.(map[string]interface{})
	if resp["message"] != "Validation error" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
	fields := map[string]bool{}
	for _, e := range resp["errors"].([]interface{}) {
		fields[e.(map[string]interface{})["field"].(string)] = true
	}
	for _, want := range []string{"companyId", "actionCode", "requestedById"} {
		if !fields[want] {
			t.Fatalf("missing field error for %s in %v", want, resp["errors"])
		}
	}

	status, _ = srv.do(t, "POST", "/api/override/verify", fiber.Map{"companyId": srv.companyA, "token": "abc", "actionCode": "VOID_SALE", "usedById": 1}, terminalHeaders)
	if status != fiber.StatusBadRequest {
		t.Fatalf("short token: status = %d, want 400", status)
	}
}

func TestMetaLimits(t *testing.T) {
	srv := newTestServer(t, 100)
	deep := fiber.Map{"a": fiber.Map{"b": fiber.Map{"c": fiber.Map{"d": fiber.Map{"e": 1}}}}}
	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyId":     srv.companyA,
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
		"meta":          deep,
	}, terminalHeaders)
	if status != fiber.StatusBadRequest {
		t.Fatalf("deep meta: status %d %v", status, body)
	}
}

func TestOverrideKeyRequired(t *testing.T) {
	srv := newTestServer(t, 100)
	status, _ := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyId":     srv.companyA,
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestSessionScopedReads(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := srv.login(t, "owner")

	status, _ := srv.do(t, "GET", "/api/override/audit?companyId="+itoa(srv.companyB), nil, owner)
	if status != fiber.StatusForbidden {
		t.Fatalf("foreign company: status = %d, want 403", status)
	}
	status, _ = srv.do(t, "GET", "/api/override/audit?companyId="+itoa(srv.companyA), nil, owner)
	if status != fiber.StatusOK {
		t.Fatalf("own company: status = %d, want 200", status)
	}
	status, _ = srv.do(t, "GET", "/api/override/requests?limit=0", nil, owner)
	if status != fiber.StatusBadRequest {
		t.Fatalf("limit 0: status = %d, want 400", status)
	}
	status, _ = srv.do(t, "GET", "/api/override/requests?limit=201", nil, owner)
	if status != fiber.StatusBadRequest {
		t.Fatalf("limit 201: status = %d, want 400", status)
	}
	status, _ = srv.do(t, "GET", "/api/override/requests", nil, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", status)
	}
}

func TestApproveScopedToSession(t *testing.T) {
	srv := newTestServer(t, 100)
	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyId":     srv.companyA,
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, terminalHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("request: status %d %v", status, body)
	}
	requestID := body.(map[string]interface{})["requestId"]

	status, _ = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID}, srv.login(t, "cashier"))
	if status != fiber.StatusForbidden {
		t.Fatalf("cashier approve: status = %d, want 403", status)
	}

	ownerB := srv.login(t, "ownerb")
	status, body = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID}, ownerB)
	if status != fiber.StatusBadRequest || body.(map[string]interface{})["message"] != "could not approve request" {
		t.Fatalf("foreign approve: status %d %v", status, body)
	}
	status, _ = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID, "companyId": srv.companyA}, ownerB)
	if status != fiber.StatusForbidden {
		t.Fatalf("explicit foreign company: status = %d, want 403", status)
	}

	status, _ = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID, "expiresInSeconds": 5}, srv.login(t, "owner"))
	if status != fiber.StatusBadRequest {
		t.Fatalf("ttl below bounds: status = %d, want 400", status)
	}
}

func TestVerifyRateLimited(t *testing.T) {
	srv := newTestServer(t, 2)
	verify := fiber.Map{"companyId": srv.companyA, "token": "ZZZZZZZZZZ", "actionCode": "VOID_SALE", "usedById": 7}
	for i, want := range []int{fiber.StatusBadRequest, fiber.StatusBadRequest, fiber.StatusTooManyRequests} {
		status, body := srv.do(t, "POST", "/api/override/verify", verify, terminalHeaders)
		if status != want {
			t.Fatalf("attempt %d: status %d %v, want %d", i+1, status, body, want)
		}
	}
}

func TestProvisionAndVerifyVirtualToken(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := srv.login(t, "owner")

	status, body := srv.do(t, "POST", "/api/override/virtual/provision", fiber.Map{"terminalId": "CAJA-01", "uid": "device-0001"}, owner)
	if status != fiber.StatusOK {
		t.Fatalf("provision: status %d %v", status, body)
	}
	secret := body.(map[string]interface{})["secret"].(string)

	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1})
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	status, body = srv.do(t, "POST", "/api/override/verify", fiber.Map{
		"companyId":  srv.companyA,
		"token":      code,
		"actionCode": "DISCOUNT",
		"usedById":   7,
		"terminalId": "CAJA-01",
	}, terminalHeaders)
	result := body.(map[string]interface{})
	if status != fiber.StatusOK || result["method"] != model.OverrideMethodVirtual {
		t.Fatalf("verify virtual: status %d %v", status, body)
	}

	status, _ = srv.do(t, "POST", "/api/override/virtual/provision", fiber.Map{"terminalId": "C1"}, owner)
	if status != fiber.StatusBadRequest {
		t.Fatalf("short terminal id: status = %d, want 400", status)
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	status, _ := srv.do(t, "POST", "/api/auth/login", fiber.Map{"identifier": "owner", "password": "wrong"}, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", status)
	}

	status, body := srv.do(t, "POST", "/api/auth/login", fiber.Map{"username": "owner", "password": "password1"}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("login: status %d %v", status, body)
	}
	refresh := body.(map[string]interface{})["refreshToken"].(string)

	status, body = srv.do(t, "POST", "/api/auth/refresh", fiber.Map{"refreshToken": refresh}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("refresh: status %d %v", status, body)
	}
	status, _ = srv.do(t, "POST", "/api/auth/refresh", fiber.Map{"refreshToken": refresh}, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("reused refresh: status = %d, want 401", status)
	}

	rotated := body.(map[string]interface{})["refreshToken"].(string)
	status, _ = srv.do(t, "POST", "/api/auth/logout", fiber.Map{"refreshToken": rotated}, nil)
	if status != fiber.StatusNoContent {
		t.Fatalf("logout: status = %d, want 204", status)
	}
}

func TestTerminalAddressesCompanyByRNCOrCloudID(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := srv.login(t, "owner")

	var company model.Company
	if err := srv.db.First(&company, srv.companyA).Error; err != nil {
		t.Fatalf("load company: %v", err)
	}

	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyRnc":    "1-01-00000-1",
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, terminalHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("request by rnc: status %d %v", status, body)
	}
	requestID := body.(map[string]interface{})["requestId"]

	status, body = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID}, owner)
	if status != fiber.StatusOK {
		t.Fatalf("approve request made by rnc: status %d %v", status, body)
	}
	token := body.(map[string]interface{})["token"].(string)

	status, body = srv.do(t, "POST", "/api/override/verify", fiber.Map{
		"companyCloudId": company.CloudID,
		"token":          token,
		"actionCode":     "VOID_SALE",
		"usedById":       7,
	}, terminalHeaders)
	if status != fiber.StatusOK || body.(map[string]interface{})["ok"] != true {
		t.Fatalf("verify by cloud id: status %d %v", status, body)
	}

	status, body = srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyRnc":    "999999999",
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, terminalHeaders)
	if status != fiber.StatusBadRequest || body.(map[string]interface{})["message"] != "company not found" {
		t.Fatalf("unknown rnc: status %d %v", status, body)
	}

	status, _ = srv.do(t, "POST", "/api/override/request", fiber.Map{
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, terminalHeaders)
	if status != fiber.StatusBadRequest {
		t.Fatalf("no company at all: status = %d, want 400", status)
	}
}

func TestDisabledApproverLosesRights(t *testing.T) {
	srv := newTestServer(t, 100)
	owner := srv.login(t, "owner")

	status, body := srv.do(t, "POST", "/api/override/request", fiber.Map{
		"companyId":     srv.companyA,
		"actionCode":    "VOID_SALE",
		"requestedById": 7,
	}, terminalHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("request: status %d %v", status, body)
	}
	requestID := body.(map[string]interface{})["requestId"]

	user, err := srv.users.GetUserByUsernameOrEmail(context.Background(), "owner")
	if err != nil {
		t.Fatalf("load owner: %v", err)
	}
	if err := srv.users.SetDisabled(context.Background(), user.ID, true); err != nil {
		t.Fatalf("disable owner: %v", err)
	}

	status, _ = srv.do(t, "POST", "/api/override/approve", fiber.Map{"requestId": requestID}, owner)
	if status != fiber.StatusForbidden {
		t.Fatalf("approve by disabled owner: status = %d, want 403", status)
	}
	status, _ = srv.do(t, "POST", "/api/override/virtual/provision", fiber.Map{"terminalId": "CAJA-01"}, owner)
	if status != fiber.StatusForbidden {
		t.Fatalf("provision by disabled owner: status = %d, want 403", status)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
