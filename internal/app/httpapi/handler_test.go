package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/services/auth"
	"github.com/R3E-Network/classledger/internal/logging"
	"github.com/R3E-Network/classledger/internal/middleware"
	"github.com/R3E-Network/classledger/pkg/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type testServer struct {
	t       *testing.T
	app     *app.Application
	handler http.Handler
	clock   *testutil.MockClock
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	clock := testutil.NewMockClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	log := logging.NewDiscard("test")

	application, err := app.New(testutil.NewStore(t), app.Settings{
		Auth:     auth.Settings{Secret: "test-secret"},
		Location: time.UTC,
		Now:      clock.Now,
	}, log)
	require.NoError(t, err)

	created, err := application.Auth.EnsureBootstrapAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	require.True(t, created)

	opts.Logger = log
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	return &testServer{t: t, app: application, handler: NewHandler(application, opts), clock: clock}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", map[string]interface{}{"username": username, "password": password}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	decodeData(s.t, rec, &res)
	require.NotEmpty(s.t, res.Token)
	return res.Token
}

func (s *testServer) createUser(adminToken, username, password, role string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/register", map[string]interface{}{
		"username":  username,
		"password":  password,
		"role":      role,
		"real_name": username,
	}, adminToken)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestPublicEndpointsAndAuthRequired(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodGet, "/students", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/no-such-route", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginCookieAndLogout(t *testing.T) {
	s := newTestServer(t, Options{CookieSecure: true})

	rec := s.do(http.MethodPost, "/auth/login", map[string]interface{}{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"username": "admin"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", map[string]interface{}{"username": "admin", "password": "admin123", "rememberMe": true}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res auth.LoginResult
	decodeData(t, rec, &res)
	assert.Equal(t, "7d", res.ExpiresIn)
	assert.Equal(t, "admin", res.User.Username)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, res.Token, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.AddCookie(cookie)
	verify := httptest.NewRecorder()
	s.handler.ServeHTTP(verify, req)
	assert.Equal(t, http.StatusOK, verify.Code)

	rec = s.do(http.MethodPost, "/auth/logout", nil, res.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/auth/verify", nil, res.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeEnvelope(t, rec).Error)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t, Options{})
	admin := s.login("admin", "admin123")
	s.createUser(admin, "olga", "olga1234", "operator")
	s.createUser(admin, "tom", "teach123", "teacher")
	operator := s.login("olga", "olga1234")
	teacher := s.login("tom", "teach123")

	rec := s.do(http.MethodPost, "/students", map[string]interface{}{"name": "Ann", "phone": "13800000001"}, operator)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/students/1/recharge", map[string]interface{}{"amount": 500, "hours": 5}, operator)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/students/1/consume", map[string]interface{}{"hours_used": 1}, operator)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodPost, "/students/1/consume", map[string]interface{}{"hours_used": 1}, teacher)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/students/1", "/income/1"} {
		rec = s.do(http.MethodDelete, path, nil, teacher)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	rec = s.do(http.MethodGet, "/auth/users", nil, operator)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodGet, "/system/status", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/auth/users/2/status", map[string]interface{}{"is_active": false}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/students", nil, operator)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deactivation revokes sessions")
}

func TestStudentLedgerAndProfitFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	admin := s.login("admin", "admin123")

	rec := s.do(http.MethodPost, "/deduction-configs", map[string]interface{}{
		"name": "Registration fee", "type": "fixed", "value": 50, "frequency": "once",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/deduction-configs", map[string]interface{}{
		"name": "Platform share", "type": "percentage", "value": 10, "frequency": "multiple",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/students", map[string]interface{}{"name": "Ann", "phone": "13800000001"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID                int64             `json:"id"`
		AppliedDeductions []json.RawMessage `json:"applied_deductions"`
	}
	decodeData(t, rec, &created)
	assert.Len(t, created.AppliedDeductions, 1)

	rec = s.do(http.MethodPost, "/students", map[string]interface{}{"name": "Dup", "phone": "13800000001"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	base := fmt.Sprintf("/students/%d", created.ID)
	rec = s.do(http.MethodPost, base+"/deductions", map[string]interface{}{"deduction_ids": []int64{1, 2}}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/recharge", map[string]interface{}{"amount": 1000, "hours": 10}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recharge struct {
		IncomeID       int64 `json:"income_id"`
		RemainingHours int   `json:"remaining_hours"`
	}
	decodeData(t, rec, &recharge)
	assert.Equal(t, 10, recharge.RemainingHours)

	rec = s.do(http.MethodPost, base+"/consume", map[string]interface{}{"hours_used": 30}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INSUFFICIENT_HOURS", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodPost, base+"/consume", map[string]interface{}{"hours_used": 3}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var consumed struct {
		ClassID        int64 `json:"class_id"`
		RemainingHours int   `json:"remaining_hours"`
	}
	decodeData(t, rec, &consumed)
	assert.Equal(t, 7, consumed.RemainingHours)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/income/%d", recharge.IncomeID), nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "LATER_CLASSES", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodPost, base+"/deduction-details", map[string]interface{}{
		"deduction_type":   "teacher_fee",
		"amount":           30,
		"date":             "2024-03-15",
		"related_class_id": consumed.ClassID,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var detail struct {
		Operator string `json:"operator"`
	}
	decodeData(t, rec, &detail)
	assert.Equal(t, "admin", detail.Operator)

	rec = s.do(http.MethodGet, "/deduction-details?limit=1&page=1", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		List       []json.RawMessage `json:"list"`
		Pagination struct {
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	decodeData(t, rec, &page)
	assert.Len(t, page.List, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	rec = s.do(http.MethodGet, base+"/profit", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profit struct {
		TotalIncome     float64 `json:"total_income"`
		TotalDeductions float64 `json:"total_deductions"`
		Profit          float64 `json:"profit"`
		ProfitRate      float64 `json:"profit_rate"`
	}
	decodeData(t, rec, &profit)
	assert.Equal(t, 1000.0, profit.TotalIncome)
	assert.Equal(t, 180.0, profit.TotalDeductions)
	assert.Equal(t, 820.0, profit.Profit)
	assert.Equal(t, 82.0, profit.ProfitRate)

	rec = s.do(http.MethodGet, "/stats?period=month", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		TotalIncome    float64 `json:"total_income"`
		TotalHoursUsed int64   `json:"total_hours_used"`
	}
	decodeData(t, rec, &summary)
	assert.Equal(t, 1000.0, summary.TotalIncome)
	assert.Equal(t, int64(3), summary.TotalHoursUsed)

	rec = s.do(http.MethodGet, "/stats?period=decade", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/operation-logs?operation_type=ADD_INCOME", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []struct {
		TargetID *int64 `json:"target_id"`
		UserID   *int64 `json:"user_id"`
	}
	decodeData(t, rec, &logs)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].TargetID)
	assert.Equal(t, recharge.IncomeID, *logs[0].TargetID)
	require.NotNil(t, logs[0].UserID)

	rec = s.do(http.MethodGet, "/operation-logs?operation_type=ADD_CLASS", nil, admin)
	decodeData(t, rec, &logs)
	assert.Len(t, logs, 1, "failed consume is not logged")

	rec = s.do(http.MethodPost, base+"/delete", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, base, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, Options{})
	admin := s.login("admin", "admin123")

	for _, path := range []string{"/students/abc", "/students/0", "/students/-2"} {
		rec := s.do(http.MethodGet, path, nil, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := s.do(http.MethodPost, "/students", `{bad`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/stats/income-trend?months=abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/stats/hours-trend?months=3", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, page := range []string{"9223372036854775807", "99999999999999999999"} {
		rec = s.do(http.MethodGet, "/deduction-details?page="+page, nil, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, page)
	}
}

func TestLoginLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute, logging.NewDiscard("test"))
	s := newTestServer(t, Options{LoginLimiter: limiter})

	body := map[string]interface{}{"username": "admin", "password": "wrong-pass1"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", body, "").Code)

	rec := s.do(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginThrottleKeysOnSocketAddress(t *testing.T) {
	s := newTestServer(t, Options{})

	attempt := func(i int) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			bytes.NewBufferString(`{"username":"admin","password":"wrong-pass1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i))
		req.RemoteAddr = "192.0.2.10:40000"
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, attempt(i), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, attempt(5))
	assert.Equal(t, http.StatusTooManyRequests, attempt(6))
}

func TestLoginThrottleBehindTrustedProxy(t *testing.T) {
	resolver, err := middleware.NewIPResolver([]string{"192.0.2.10"})
	require.NoError(t, err)
	s := newTestServer(t, Options{IPResolver: resolver})

	attempt := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			bytes.NewBufferString(`{"username":"admin","password":"wrong-pass1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		req.RemoteAddr = "192.0.2.10:40000"
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, attempt("203.0.113.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.2"), "other clients behind the proxy are unaffected")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})
	req := httptest.NewRequest(http.MethodOptions, "/students", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
