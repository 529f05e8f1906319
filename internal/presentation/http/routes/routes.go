// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/container"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSAllowOrigins))

	// Initialize handlers
	trackHandlers := handlers.NewTrackHandlers(container.Registry, container.Logger, container.Metrics)
	leadHandlers := handlers.NewLeadHandlers(container.LeadReportService, container.AnalyticsService, container.Logger, container.Metrics)
	feedHandlers := handlers.NewFeedHandlers(container.LeadFeed, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.Registry, container.LeadFeed, container.Leads != nil)

	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// Browser tracking, keyed by the visitor cookie or header
	track := api.Group("/track")
	track.Use(middleware.VisitorMiddleware(container.Logger))
	{
		track.POST("/session", trackHandlers.PostSession)
		track.GET("/session", trackHandlers.GetSession)
		track.POST("/page", trackHandlers.PostPage)
		track.POST("/navigation", trackHandlers.PostNavigation)
		track.POST("/leisure", trackHandlers.PostLeisure)
		track.POST("/event", trackHandlers.PostEvent)
		track.POST("/dwell/:kind/start", trackHandlers.PostDwellStart)
		track.POST("/dwell/:kind/stop", trackHandlers.PostDwellStop)
		track.POST("/whatsapp", trackHandlers.PostWhatsApp)
		track.POST("/contact", trackHandlers.PostContact)
	}

	// Admin lead reports
	leads := api.Group("/leads")
	leads.Use(middleware.AdminMiddleware(config.AdminToken, container.Logger))
	{
		leads.GET("", leadHandlers.GetLeadsByCode)
		leads.GET("/recent", leadHandlers.GetRecentLeads)
		leads.GET("/events", leadHandlers.GetEventCounts)
		leads.GET("/feed", feedHandlers.GetFeed)
	}

	return r
}
