// Package httpapi exposes the application services as a JSON REST API.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/app/metrics"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/logging"
	"github.com/R3E-Network/classledger/internal/middleware"
)

func init() {
	// Money is rendered as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Target types recorded in the operation log.
const (
	targetStudent          = "student"
	targetIncome           = "income"
	targetClass            = "class"
	targetDeductionConfig  = "deduction_config"
	targetStudentDeduction = "student_deduction"
	targetDeductionDetail  = "deduction_detail"
	targetUser             = "user"
)

// publicPaths bypass authentication.
var publicPaths = []string{"/health", "/metrics", "/auth/login"}

// Options configure the HTTP surface.
type Options struct {
	Logger         *logging.Logger
	AllowedOrigins []string
	CookieSecure   bool
	// RateLimiter guards every request; LoginLimiter guards /auth/login only.
	// Nil disables the respective limiter.
	RateLimiter  *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter
	// IPResolver derives client addresses for login throttling. Nil uses
	// the socket address.
	IPResolver *middleware.IPResolver
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app          *app.Application
	log          *logging.Logger
	cookieSecure bool
	ips          *middleware.IPResolver
}

// NewHandler returns the complete HTTP handler: the middleware chain wrapped
// around the route table.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log, cookieSecure: opts.CookieSecure, ips: opts.IPResolver}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, r, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, string(svcerrors.CodeBadRequest), "method not allowed", nil)
	})
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.NewAuthMiddleware(application.Auth, log, publicPaths).Handler)

	rt := &routes{router: router, recorder: application.OpLog}
	h.mount(rt, opts.LoginLimiter)

	var chain http.Handler = router
	if opts.RateLimiter != nil {
		chain = opts.RateLimiter.Handler(chain)
	}
	chain = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(chain)
	chain = middleware.SecurityHeaders(chain)
	chain = middleware.NewTracingMiddleware(log).Handler(chain)
	return chain
}

type routes struct {
	router   *mux.Router
	recorder middleware.Recorder
}

// route describes one endpoint. An empty role leaves the endpoint public.
type route struct {
	method string
	path   string
	role   user.Role
	op     string
	target string
	fn     http.HandlerFunc
	wrap   []func(http.Handler) http.Handler
}

func (rt *routes) add(r route) {
	var next http.Handler = r.fn
	if r.op != "" {
		next = middleware.Audit(rt.recorder, r.op, r.target)(next)
	}
	if r.role != "" {
		next = middleware.RequireRole(r.role)(next)
	}
	for i := len(r.wrap) - 1; i >= 0; i-- {
		next = r.wrap[i](next)
	}
	rt.router.Handle(r.path, next).Methods(r.method)
}

func (h *handler) mount(rt *routes, loginLimiter *middleware.RateLimiter) {
	var loginWrap []func(http.Handler) http.Handler
	if loginLimiter != nil {
		loginWrap = append(loginWrap, loginLimiter.Handler)
	}

	const (
		anyone   = user.RoleOperator
		operator = user.RoleOperator
		teacher  = user.RoleTeacher
		admin    = user.RoleAdmin
	)

	for _, r := range []route{
		{method: http.MethodGet, path: "/health", fn: h.health},
		{method: http.MethodGet, path: "/metrics", fn: metrics.Handler().ServeHTTP},

		{method: http.MethodPost, path: "/auth/login", op: oplog.Login, target: targetUser, fn: h.login, wrap: loginWrap},
		{method: http.MethodPost, path: "/auth/logout", role: anyone, op: oplog.Logout, target: targetUser, fn: h.logout},
		{method: http.MethodPost, path: "/auth/register", role: admin, op: oplog.RegisterUser, target: targetUser, fn: h.registerUser},
		{method: http.MethodGet, path: "/auth/profile", role: anyone, fn: h.profile},
		{method: http.MethodPut, path: "/auth/profile", role: anyone, fn: h.updateProfile},
		{method: http.MethodPost, path: "/auth/change-password", role: anyone, op: oplog.ChangePassword, target: targetUser, fn: h.changePassword},
		{method: http.MethodGet, path: "/auth/verify", role: anyone, fn: h.verify},
		{method: http.MethodGet, path: "/auth/users", role: admin, fn: h.listUsers},
		{method: http.MethodPut, path: "/auth/users/{id}/status", role: admin, op: oplog.UpdateUserStatus, target: targetUser, fn: h.setUserStatus},

		{method: http.MethodPost, path: "/students", role: operator, op: oplog.CreateStudent, target: targetStudent, fn: h.createStudent},
		{method: http.MethodGet, path: "/students", role: operator, fn: h.listStudents},
		{method: http.MethodGet, path: "/students/{id}", role: operator, fn: h.getStudent},
		{method: http.MethodPost, path: "/students/{id}/recharge", role: operator, op: oplog.AddIncome, target: targetIncome, fn: h.recharge},
		{method: http.MethodPost, path: "/students/{id}/consume", role: teacher, op: oplog.AddClass, target: targetClass, fn: h.consume},
		{method: http.MethodPost, path: "/students/{id}/delete", role: admin, op: oplog.DeleteStudent, target: targetStudent, fn: h.deleteStudent},
		{method: http.MethodDelete, path: "/students/{id}", role: admin, op: oplog.DeleteStudent, target: targetStudent, fn: h.deleteStudent},

		{method: http.MethodGet, path: "/stats", role: operator, fn: h.stats},
		{method: http.MethodGet, path: "/stats/income-trend", role: operator, fn: h.incomeTrend},
		{method: http.MethodGet, path: "/stats/hours-trend", role: operator, fn: h.hoursTrend},

		{method: http.MethodDelete, path: "/income/{id}", role: admin, op: oplog.DeleteIncome, target: targetIncome, fn: h.deleteIncome},

		{method: http.MethodPost, path: "/deduction-configs", role: admin, op: oplog.CreateDeductionConfig, target: targetDeductionConfig, fn: h.createConfig},
		{method: http.MethodGet, path: "/deduction-configs", role: operator, fn: h.listConfigs},
		{method: http.MethodPut, path: "/deduction-configs/{id}", role: admin, op: oplog.UpdateDeductionConfig, target: targetDeductionConfig, fn: h.updateConfig},
		{method: http.MethodGet, path: "/students/{id}/deductions", role: operator, fn: h.studentDeductions},
		{method: http.MethodPost, path: "/students/{id}/deductions", role: admin, op: oplog.CreateStudentDeduction, target: targetStudentDeduction, fn: h.setStudentDeductions},

		{method: http.MethodGet, path: "/students/{id}/profit", role: operator, fn: h.studentProfit},
		{method: http.MethodGet, path: "/profit", role: operator, fn: h.periodProfit},

		{method: http.MethodPost, path: "/students/{id}/deduction-details", role: admin, op: oplog.CreateDeductionDetail, target: targetDeductionDetail, fn: h.createDetail},
		{method: http.MethodGet, path: "/students/{id}/deduction-details", role: operator, fn: h.studentDetails},
		{method: http.MethodGet, path: "/deduction-details", role: operator, fn: h.listDetails},
		{method: http.MethodPut, path: "/deduction-details/{id}", role: admin, op: oplog.UpdateDeductionDetail, target: targetDeductionDetail, fn: h.updateDetail},
		{method: http.MethodDelete, path: "/deduction-details/{id}", role: admin, op: oplog.DeleteDeductionDetail, target: targetDeductionDetail, fn: h.deleteDetail},

		{method: http.MethodGet, path: "/operation-logs", role: admin, fn: h.operationLogs},
		{method: http.MethodGet, path: "/system/status", role: admin, fn: h.systemStatus},
	} {
		rt.add(r)
	}
}
