package controllers

import "writing-assessment-api/services"

var (
	dashboardHub *services.Hub
	submissions  *services.SubmissionService
)

// Init wires the shared hub and submission service. Called once from main;
// tests call it with their own database and a recording broadcaster.
func Init(hub *services.Hub, svc *services.SubmissionService) {
	dashboardHub = hub
	submissions = svc
}
