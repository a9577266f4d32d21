// internal/api/router.go
package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed static
var staticFiles embed.FS

// RouterOptions 路由依赖
type RouterOptions struct {
	Handler   *Handler
	Sessions  *workflow.Manager
	Metrics   *utils.Metrics
	Logger    logrus.FieldLogger
	DebugMode bool
}

// SetupRouter 配置HTTP路由
func SetupRouter(opts RouterOptions) (*gin.Engine, error) {
	if !opts.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(corsMiddleware())

	// 静态文件服务
	r.StaticFS("/static", http.FS(static))

	// 运维端点
	r.GET("/health", opts.Handler.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics.Handler())
	}

	h := opts.Handler
	withSession := SessionMiddleware(opts.Sessions)

	// ===============================
	// 页面与推送
	// ===============================
	r.GET("/", withSession, h.IndexPage)
	r.GET("/ws", withSession, h.PanelWebSocket)

	// ===============================
	// 面板路由组
	// ===============================
	ui := r.Group("/ui", withSession)
	{
		ui.POST("/ideas", h.GenerateIdeas)
		ui.POST("/draft", h.GenerateDraft)
		ui.POST("/specialize/:platform", h.Specialize)
		ui.POST("/specialize-all", h.SpecializeAll)
		ui.GET("/history", h.History)
		ui.GET("/state", h.State)
		ui.GET("/platforms", h.GetPlatforms)
	}

	return r, nil
}
