package main

import (
	"log"
	"os"

	"writing-assessment-api/config"
	"writing-assessment-api/controllers"
	"writing-assessment-api/middleware"
	"writing-assessment-api/models"
	"writing-assessment-api/routes"
	"writing-assessment-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	defaultTeacherUsername = "admin"
	defaultTeacherFullName = "Administrator"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logging
	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()
	config.MigrateDB()
	seedDefaultTeacher()

	// Wire the push channel and the lifecycle store
	hub := services.NewHub()
	submissionService := services.NewSubmissionService(config.DB, hub)
	controllers.Init(hub, submissionService)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// seedDefaultTeacher creates the initial teacher account on a fresh install
// so the dashboard is reachable before any roster exists.
func seedDefaultTeacher() {
	var count int64
	if err := config.DB.Model(&models.Teacher{}).Count(&count).Error; err != nil {
		log.Printf("Warning: failed to count teachers: %v", err)
		return
	}
	if count > 0 {
		return
	}

	password := os.Getenv("DEFAULT_TEACHER_PASSWORD")
	if password == "" {
		log.Println("No teachers exist and DEFAULT_TEACHER_PASSWORD is unset; skipping seed")
		return
	}

	hash, err := controllers.HashPassword(password)
	if err != nil {
		log.Printf("Warning: failed to hash default teacher password: %v", err)
		return
	}

	teacher := models.Teacher{
		Username:     defaultTeacherUsername,
		FullName:     defaultTeacherFullName,
		PasswordHash: hash,
	}
	if err := config.DB.Create(&teacher).Error; err != nil {
		log.Printf("Warning: failed to seed default teacher: %v", err)
		return
	}
	log.Printf("Seeded default teacher account %q", defaultTeacherUsername)
}
