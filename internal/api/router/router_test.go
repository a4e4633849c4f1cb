package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/api/handler"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/service"
	"github.com/ahmed-sakil/asian-school/pkg/jwt"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        5000,
			BodyLimitMB: 1,
			CORS:        config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}},
			RateLimit:   60,
			RateWindow:  time.Minute,
		},
		Auth: config.AuthConfig{JWTSecret: "router-test-secret-0123", AccessTokenTTL: time.Hour},
	}
}

// setup 服务均为 nil：这里只覆盖在到达 Handler 之前就结束的路径
func setup(t *testing.T) (http.Handler, *jwt.Manager) {
	t.Helper()
	require.NoError(t, RegisterValidators())
	cfg := testConfig()
	mgr := jwt.NewManager(&cfg.Auth)
	h := handler.NewHandler(&service.Service{})
	return Setup(cfg, h, mgr, nil, metrics.New(), zap.NewNop()), mgr
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := setup(t)

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "school_http_requests_total")
}

func TestAPIRequiresToken(t *testing.T) {
	r, _ := setup(t)

	for _, p := range []string{"/api/v1/exams/final-result", "/api/v1/routines/section", "/api/v1/finance/ledger/x"} {
		w := do(r, http.MethodGet, p, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
}

func TestRoleGuards(t *testing.T) {
	r, mgr := setup(t)
	student, err := mgr.GenerateAccessToken("s-1", model.RoleStudent, "S-1")
	require.NoError(t, err)
	teacher, err := mgr.GenerateAccessToken("t-1", model.RoleTeacher, "T-1")
	require.NoError(t, err)

	cases := []struct {
		method, path, token string
	}{
		{http.MethodPost, "/api/v1/routines/update", student},
		{http.MethodPost, "/api/v1/routines/update", teacher},
		{http.MethodDelete, "/api/v1/routines/abc", teacher},
		{http.MethodPost, "/api/v1/courses/assign", teacher},
		{http.MethodPost, "/api/v1/exams/marks", student},
		{http.MethodGet, "/api/v1/attendance/report", student},
		{http.MethodPost, "/api/v1/finance/collect", teacher},
		{http.MethodPost, "/api/v1/finance/fees", student},
		{http.MethodGet, "/api/v1/routines/section/export", teacher},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, tc.token)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestValidationRunsBeforeService(t *testing.T) {
	r, mgr := setup(t)
	admin, err := mgr.GenerateAccessToken("a-1", model.RoleAdmin, "A-1")
	require.NoError(t, err)

	// 空请求体在绑定阶段即被拒绝，不会触达 nil 服务
	w := do(r, http.MethodPost, "/api/v1/routines/update", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
