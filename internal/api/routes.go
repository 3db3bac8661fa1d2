package api

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP adapter calls into.
type Services struct {
	Exercises   service.ExerciseService
	Programmes  service.ProgrammeService
	Sets        service.ExerciseSetService
	Assignments service.AssignmentService
	Negotiation service.NegotiationService
}

// SetupRoutes registers every route. metrics may be nil to leave /metrics unmounted.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	services Services,
	metrics http.Handler,
	log *logger.Logger,
) {
	exerciseHandler := NewExerciseHandler(services.Exercises)
	programmeHandler := NewProgrammeHandler(services.Programmes, services.Sets)
	assignmentHandler := NewAssignmentHandler(services.Assignments, services.Negotiation)

	router.Use(RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	protected := router.Group("/api/v1")
	protected.Use(AuthMiddleware(jwtSecret))

	// --- Professional Routes ---
	pro := protected.Group("")
	pro.Use(RoleMiddleware(domain.RoleProfessional))
	{
		pro.POST("/library/exercises", exerciseHandler.CreateExercise)

		pro.POST("/blueprints", programmeHandler.CreateBlueprint)
		pro.GET("/blueprints", programmeHandler.ListBlueprints)
		pro.GET("/templates", programmeHandler.ListTemplates)
		pro.GET("/blueprints/:id", programmeHandler.GetBlueprint)
		pro.POST("/blueprints/:id/archive", programmeHandler.ArchiveBlueprint)
		pro.POST("/blueprints/:id/clone", programmeHandler.CloneTemplate)
		pro.POST("/blueprints/:id/versions", programmeHandler.CreateVersion)
		pro.GET("/blueprints/:id/versions", programmeHandler.ListVersions)

		pro.GET("/versions/:id", programmeHandler.GetVersion)
		pro.DELETE("/versions/:id", programmeHandler.DeleteVersion)
		pro.POST("/versions/:id/submit", programmeHandler.SubmitVersion)
		pro.POST("/versions/:id/activate", programmeHandler.ActivateVersion)
		pro.POST("/versions/:id/archive", programmeHandler.ArchiveVersion)
		pro.POST("/versions/:id/copy", programmeHandler.CopyVersion)

		// exercise sets
		pro.PUT("/versions/:id/exercises", programmeHandler.SetExercises)
		pro.POST("/versions/:id/exercises", programmeHandler.AddEntry)
		pro.GET("/versions/:id/exercises", programmeHandler.ListEntries)
		pro.GET("/versions/:id/sessions", programmeHandler.PreviewSessions)
		pro.PUT("/versions/:id/days/:day/order", programmeHandler.ReorderDay)
		pro.PATCH("/exercises/:id", programmeHandler.UpdateEntry)
		pro.DELETE("/exercises/:id", programmeHandler.DeleteEntry)

		pro.POST("/assignments", assignmentHandler.CreateAssignment)
		pro.GET("/pro/assignments", assignmentHandler.ListProAssignments)
		pro.POST("/assignments/:id/push-update", assignmentHandler.PushUpdate)
	}

	// --- Client Routes ---
	client := protected.Group("")
	client.Use(RoleMiddleware(domain.RoleClient))
	{
		client.GET("/client/assignments", assignmentHandler.GetMyAssignments)
		client.POST("/assignments/:id/accept", assignmentHandler.AcceptAssignment)
		client.POST("/assignments/:id/reject", assignmentHandler.RejectAssignment)
		client.POST("/assignments/:id/accept-update", assignmentHandler.AcceptUpdate)
		client.POST("/assignments/:id/decline-update", assignmentHandler.DeclineUpdate)
	}

	// --- Shared Routes ---
	{
		protected.GET("/library/exercises/:id", exerciseHandler.GetExercise)
		protected.GET("/assignments/:id", assignmentHandler.GetAssignment)
		protected.POST("/assignments/:id/status", assignmentHandler.ChangeStatus)
		protected.GET("/assignments/:id/events", assignmentHandler.GetAssignmentEvents)
		protected.GET("/client/events", assignmentHandler.GetMyEvents)
	}
}
