package main

import (
	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/middleware"
)

// setupRouter wires the routes. limiter may be nil to disable rate limiting.
func setupRouter(api *API, auth *middleware.Authenticator, limiter gin.HandlerFunc, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter)
	}
	{
		// Analysis
		v1.POST("/analyze", api.analyzeVideo)

		// Reference content
		v1.GET("/guidance/:label", api.getGuidance)
		v1.GET("/disasters", api.getDisasterInfo)
		v1.GET("/first-aid", api.listFirstAid)
		v1.GET("/first-aid/:kind", api.getFirstAid)
		v1.GET("/contacts", api.getContacts)
		v1.GET("/overview", api.getOverview)
	}

	// Asynchronous analysis for partners
	partner := v1.Group("")
	partner.Use(auth.JWTAuth())
	{
		partner.POST("/uploads", api.createUploadURL)
		partner.POST("/jobs", api.createJob)
	}

	return router
}
