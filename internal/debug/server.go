package debug

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"inbox-engine/internal/controller"
)

// NewRouter builds the local debug surface: health, metrics and, when
// enabled, a read-only snapshot of the inbox state.
func NewRouter(ctrl *controller.Controller, debugEnabled bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("inbox-engine"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerDebugRoutes(router, ctrl, debugEnabled)
	return router
}

func registerDebugRoutes(router *gin.Engine, ctrl *controller.Controller, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/inbox", func(c *gin.Context) {
		conversations := ctrl.Conversations()
		c.JSON(http.StatusOK, gin.H{
			"state":               ctrl.State(),
			"active_conversation": ctrl.ActiveConversationID(),
			"conversations":       len(conversations),
			"has_more":            ctrl.HasMoreConversations(),
			"unread_total":        ctrl.UnreadTotals(),
			"notifications":       ctrl.Notifications(),
		})
	})
}
