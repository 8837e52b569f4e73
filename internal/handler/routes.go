package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every view of the companion
type Handlers struct {
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Upload    *UploadHandler
	Vitals    *VitalsHandler
	Report    *ReportHandler
	Timeline  *TimelineHandler
	Health    *HealthHandler
	Audit     *AuditHandler
}

// RegisterRoutes installs the route table. Every route except the login, registration
// and health endpoints runs behind guard.
func RegisterRoutes(r gin.IRouter, h *Handlers, guard gin.HandlerFunc) {
	r.GET("/healthz", h.Health.GetHealth)
	r.GET("/login", h.Auth.GetLogin)
	r.POST("/login", h.Auth.PostLogin)
	r.POST("/register", h.Auth.PostRegister)

	protected := r.Group("/", guard)
	protected.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	protected.GET("/dashboard", h.Dashboard.GetDashboard)
	protected.GET("/me", h.Auth.GetMe)
	protected.POST("/logout", h.Auth.PostLogout)
	protected.GET("/audit", h.Audit.GetActivity)

	protected.POST("/upload", h.Upload.PostUpload)
	protected.POST("/upload/preview", h.Upload.PostPreview)
	protected.POST("/add-vitals", h.Vitals.PostAddVitals)

	protected.GET("/report/:id", h.Report.GetReport)
	protected.POST("/report/:id/delete", h.Report.PostDeleteReport)
	protected.POST("/report/:id/insight", h.Upload.PostRetryInsight)

	protected.GET("/timeline", h.Timeline.GetTimeline)
	protected.GET("/timeline/export.pdf", h.Timeline.GetTimelinePDF)
}
