package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/rtms-schedule-api/internal/handler"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r.Group("/api/v1"), handlers{
		auth:        handler.NewAuthHandler(nil),
		patients:    handler.NewPatientHandler(nil),
		plans:       handler.NewPlanHandler(nil),
		sessions:    handler.NewSessionHandler(nil),
		tasks:       handler.NewTaskHandler(nil),
		assessments: handler.NewAssessmentHandler(nil),
		holidays:    handler.NewHolidayHandler(nil),
		adverse:     handler.NewAdverseEventHandler(nil),
	}, staticTokens{
		"nurse": {UserID: "n1", Role: models.RoleNurse},
	})
	return r
}

func TestRoutesRequireBearerToken(t *testing.T) {
	r := newTestEngine()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/tasks", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesRestrictHolidayWritesToAdmins(t *testing.T) {
	r := newTestEngine()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/holidays"},
		{http.MethodDelete, "/api/v1/holidays/2025-01-01"},
		{http.MethodPost, "/api/v1/users"},
		{http.MethodPost, "/api/v1/patients/p1/plan"},
		{http.MethodPost, "/api/v1/sessions/s1/adverse-events"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer nurse")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}
