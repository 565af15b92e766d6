package controllers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"writing-assessment-api/config"
	"writing-assessment-api/middleware"
	"writing-assessment-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type StudentLoginRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type TeacherLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string      `json:"token"`
	Role    string      `json:"role"`
	User    interface{} `json:"user"`
	Message string      `json:"message"`
}

// StudentLogin authenticates a student picked from the avatar grid
func StudentLogin(c *gin.Context) {
	var req StudentLoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var student models.Student
	if err := config.DB.Where("student_id = ?", req.StudentID).First(&student).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect student ID or password"})
		return
	}

	if !CheckPasswordHash(req.Password, student.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect student ID or password"})
		return
	}

	token, err := generateToken(student.StudentID, middleware.RoleStudent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		Role:    middleware.RoleStudent,
		User:    student,
		Message: "Login successful",
	})
}

// TeacherLogin authenticates a teacher account
func TeacherLogin(c *gin.Context) {
	var req TeacherLoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var teacher models.Teacher
	if err := config.DB.Where("username = ?", req.Username).First(&teacher).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if !CheckPasswordHash(req.Password, teacher.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := generateToken(teacher.TeacherID, middleware.RoleTeacher)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		Role:    middleware.RoleTeacher,
		User:    teacher,
		Message: "Login successful",
	})
}

// GetMe returns the authenticated student profile
func GetMe(c *gin.Context) {
	userID, _ := c.Get("userID")

	var student models.Student
	if err := config.DB.Where("student_id = ?", userID).First(&student).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	c.JSON(http.StatusOK, student)
}

// generateToken creates JWT token
func generateToken(userID, role string) (string, error) {
	// Get expiration hours from env
	expireHours, err := strconv.Atoi(os.Getenv("JWT_EXPIRE_HOURS"))
	if err != nil {
		expireHours = 24 // default 24 hours
	}

	claims := middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// HashPassword hashes password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares password with hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
