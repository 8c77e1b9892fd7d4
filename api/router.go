package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API on r. The health check stays open; every
// other /api route requires the backend key when one is configured.
func SetupRoutes(r *gin.Engine, s *Server) {
	r.GET("/api/health", healthCheck)

	apiGroup := r.Group("/api", BackendKeyMiddleware(s.APIKey))
	{
		apiGroup.POST("/batch", s.batchHandler)
		apiGroup.POST("/personalized-sheet", s.personalizedSheetHandler)
		apiGroup.GET("/projects/:user_id", s.listProjectsHandler)
		apiGroup.GET("/project/:id", s.getProjectHandler)
		apiGroup.POST("/project", s.createProjectHandler)
		apiGroup.GET("/exports", s.listExportsHandler)
		apiGroup.GET("/keys", s.getKeysHandler)
		apiGroup.GET("/model", s.getModelHandler)
		apiGroup.POST("/model", s.setModelHandler)
	}

	if s.ExportDir != "" {
		r.Static("/exports", s.ExportDir)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
