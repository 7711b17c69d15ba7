package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rtms-schedule-api/internal/handler"
	"github.com/noah-isme/rtms-schedule-api/internal/middleware"
	"github.com/noah-isme/rtms-schedule-api/internal/models"
)

type handlers struct {
	auth        *handler.AuthHandler
	patients    *handler.PatientHandler
	plans       *handler.PlanHandler
	sessions    *handler.SessionHandler
	tasks       *handler.TaskHandler
	assessments *handler.AssessmentHandler
	holidays    *handler.HolidayHandler
	adverse     *handler.AdverseEventHandler
}

func registerRoutes(api *gin.RouterGroup, h handlers, tokens middleware.TokenValidator) {
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	admin := middleware.RequireRoles(models.RoleAdmin)
	clinician := middleware.RequireRoles(models.RoleAdmin, models.RoleDoctor)

	secured.GET("/auth/me", h.auth.Me)
	secured.POST("/users", admin, h.auth.CreateUser)

	secured.GET("/patients", h.patients.List)
	secured.POST("/patients", clinician, h.patients.Create)
	secured.GET("/patients/:id", h.patients.Get)
	secured.PATCH("/patients/:id/schedule", clinician, h.patients.UpdateSchedule)

	secured.GET("/patients/:id/plan/preview", h.plans.Preview)
	secured.POST("/patients/:id/plan", clinician, h.plans.Generate)
	secured.GET("/patients/:id/sessions", h.plans.Sessions)
	secured.GET("/patients/:id/sessions/lookup", h.plans.Lookup)

	secured.POST("/sessions/:id/skip", h.sessions.Skip)
	secured.POST("/sessions/:id/done", h.sessions.Done)
	secured.POST("/patients/:id/reschedule", h.sessions.Reschedule)
	secured.GET("/patients/:id/skips", h.sessions.Skips)
	secured.POST("/skips/:id/undo", h.sessions.Undo)
	secured.POST("/sessions/:id/adverse-events", clinician, h.adverse.Report)
	secured.GET("/patients/:id/adverse-events", h.adverse.List)

	secured.GET("/patients/:id/tasks", h.tasks.PatientTasks)
	secured.GET("/patients/:id/tasks/dashboard", h.tasks.PatientDashboard)
	secured.GET("/dashboard/tasks", h.tasks.Dashboard)

	secured.POST("/patients/:id/assessments", clinician, h.assessments.Create)
	secured.GET("/patients/:id/assessments/summary", h.assessments.Summary)
	secured.POST("/patients/:id/mappings", h.assessments.CreateMapping)

	secured.GET("/holidays", h.holidays.List)
	secured.POST("/holidays", admin, h.holidays.Save)
	secured.DELETE("/holidays/:date", admin, h.holidays.Delete)
}
