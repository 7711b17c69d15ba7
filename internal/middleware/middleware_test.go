package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rtms-schedule-api/internal/models"
	"github.com/noah-isme/rtms-schedule-api/internal/service"
	appErrors "github.com/noah-isme/rtms-schedule-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUserIDKey)})
	})
	r.GET("/patients/:id", handlers...)
	return r
}

func TestJWT(t *testing.T) {
	r := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleNurse}}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/patients/p1", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"user":"u1"`)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	for _, tc := range []struct {
		role   models.UserRole
		status int
	}{
		{models.RoleDoctor, http.StatusOK},
		{models.RoleNurse, http.StatusForbidden},
	} {
		r := newRouter(
			JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: tc.role}}),
			RequireRoles(models.RoleAdmin, models.RoleDoctor),
		)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/patients/p1", nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, string(tc.role))
	}

	r := newRouter(RequireRoles(models.RoleAdmin))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/p1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/p1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/patients/:id",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "http_requests_total"))
}
