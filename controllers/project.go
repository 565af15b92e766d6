package controllers

import (
	"net/http"

	"writing-assessment-api/config"
	"writing-assessment-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type ProjectRequest struct {
	Title               string         `json:"title" binding:"required"`
	Genre               string         `json:"genre" binding:"required,oneof=NARRATIVE PERSUASIVE"`
	Instructions        string         `json:"instructions"`
	StimulusHTML        string         `json:"stimulus_html"`
	AssetPaths          datatypes.JSON `json:"asset_paths"`
	AssignedClassGroups datatypes.JSON `json:"assigned_class_groups" binding:"required"`
}

// CreateProject creates a new writing project
func CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		Title:               req.Title,
		Genre:               req.Genre,
		Instructions:        req.Instructions,
		StimulusHTML:        req.StimulusHTML,
		AssetPaths:          req.AssetPaths,
		AssignedClassGroups: req.AssignedClassGroups,
		IsActive:            true,
	}

	if err := config.DB.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListProjects returns all projects for the teacher's project list
func ListProjects(c *gin.Context) {
	var projects []models.Project
	if err := config.DB.Order("created_at DESC").Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

// GetProject returns one project
func GetProject(c *gin.Context) {
	projectID := c.Param("projectId")

	var project models.Project
	if err := config.DB.Where("project_id = ?", projectID).First(&project).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// UpdateProject updates project fields
func UpdateProject(c *gin.Context) {
	projectID := c.Param("projectId")

	var project models.Project
	if err := config.DB.Where("project_id = ?", projectID).First(&project).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project.Title = req.Title
	project.Genre = req.Genre
	project.Instructions = req.Instructions
	project.StimulusHTML = req.StimulusHTML
	project.AssetPaths = req.AssetPaths
	project.AssignedClassGroups = req.AssignedClassGroups

	if err := config.DB.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeactivateProject hides a project from students without deleting work
func DeactivateProject(c *gin.Context) {
	projectID := c.Param("projectId")

	res := config.DB.Model(&models.Project{}).
		Where("project_id = ?", projectID).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate project"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deactivated"})
}
