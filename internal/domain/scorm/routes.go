package scorm

import (
	"github.com/gin-gonic/gin"

	"scormhub/internal/middleware"
)

// RegisterRoutes registers SCORM routes under the protected group.
// Uploads and status changes are staff-only, deletion is admin-only.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	scorm := r.Group("/scorm")
	{
		scorm.POST("/upload", middleware.StaffOnly(), h.Upload)

		scorm.GET("/packages", h.ListPackages)
		scorm.GET("/packages/:id", h.GetPackage)
		scorm.PATCH("/packages/:id/status", middleware.StaffOnly(), h.UpdateStatus)
		scorm.DELETE("/packages/:id", middleware.AdminOnly(), h.DeletePackage)
		scorm.GET("/packages/:id/stats", middleware.StaffOnly(), h.GetStats)

		scorm.POST("/packages/:id/attempts", h.StartAttempt)
		scorm.GET("/packages/:id/attempts", h.ListAttempts)
		scorm.PUT("/attempts/:id", h.CommitAttempt)

		scorm.GET("/content/*path", h.Content)
	}
}
