package routes

import (
	"writing-assessment-api/controllers"
	"writing-assessment-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API group
	api := router.Group("/api")
	{
		// Public routes
		public := api.Group("")
		{
			// Authentication
			public.POST("/student/auth/login", controllers.StudentLogin)
			public.POST("/auth/login", controllers.TeacherLogin)

			// Avatar grid login needs the roster before any session exists
			public.GET("/student/list", controllers.ListStudents)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Writing Assessment API is running",
				})
			})
		}

		// Student routes (composition surface)
		student := api.Group("/student")
		student.Use(middleware.AuthMiddleware(), middleware.RequireRole(middleware.RoleStudent))
		{
			student.GET("/me", controllers.GetMe)
			student.GET("/projects", controllers.ListAssignedProjects)
			student.GET("/projects/:projectId", controllers.GetAssignedProject)

			// Autosave + submit
			student.GET("/submissions/:projectId", controllers.GetSubmission)
			student.POST("/submissions/:projectId", controllers.SaveDraft)
			student.PUT("/submissions/:projectId/submit", controllers.SubmitSubmission)
		}

		// Teacher routes (dashboard + administration)
		teacher := api.Group("")
		teacher.Use(middleware.AuthMiddleware(), middleware.RequireRole(middleware.RoleTeacher))
		{
			submissions := teacher.Group("/submissions")
			{
				submissions.GET("/project/:projectId", controllers.ListProjectSubmissions)
				submissions.POST("/:submissionId/unlock", controllers.UnlockSubmission)
				submissions.GET("/export/:projectId", controllers.ExportSubmissions)
			}

			projects := teacher.Group("/projects")
			{
				projects.POST("", controllers.CreateProject)
				projects.GET("", controllers.ListProjects)
				projects.GET("/:projectId", controllers.GetProject)
				projects.PUT("/:projectId", controllers.UpdateProject)
				projects.DELETE("/:projectId", controllers.DeactivateProject)
			}

			teacher.POST("/roster/upload", controllers.UploadRoster)
		}

		// Dashboard push channel. Auth rides on whatever transport-level
		// session exists; all viewers receive all project events and filter
		// client-side.
		api.GET("/ws/dashboard", controllers.DashboardWS)
	}
}
