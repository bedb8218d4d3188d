package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"scormhub/internal/domain/scorm"
	"scormhub/internal/middleware"
	jwtsvc "scormhub/internal/pkg/jwt"
)

type routerDeps struct {
	JWT         *jwtsvc.Service
	SCORM       *scorm.Handler
	CORSOrigins []string
	Log         zerolog.Logger
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.CORS(d.CORSOrigins...))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/healthz", scorm.Health)

	v1 := r.Group("/api/v1")
	{
		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(d.JWT))
		{
			scorm.RegisterRoutes(protected, d.SCORM)
		}
	}
	return r
}
