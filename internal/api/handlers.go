// internal/api/handlers.go
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/Corphon/CampaignDesk/internal/errors"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler 处理控制台的页面与面板请求
type Handler struct {
	Sessions    *workflow.Manager
	Platforms   *platform.Registry
	Render      render.Options
	Concurrency int // SpecializeAll 的并发上限

	WebSocketHandler *WebSocketHandler
	Hub              *WebSocketManager
	Response         *ResponseHelper
	log              logrus.FieldLogger
}

// HandlerOptions 构造 Handler 所需的依赖
type HandlerOptions struct {
	Sessions    *workflow.Manager
	Platforms   *platform.Registry
	Render      render.Options
	Concurrency int
	Hub         *WebSocketManager
	Logger      logrus.FieldLogger
}

// NewHandler 创建处理器
func NewHandler(opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Sessions:         opts.Sessions,
		Platforms:        opts.Platforms,
		Render:           opts.Render,
		Concurrency:      opts.Concurrency,
		WebSocketHandler: NewWebSocketHandler(opts.Hub, opts.Render, logger),
		Hub:              opts.Hub,
		Response:         NewResponseHelper(),
		log:              logger,
	}
}

// flexibleID 接受 JSON 数字、字符串或表单值形式的 ID
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type topicRequest struct {
	Topic string `form:"topic" json:"topic"`
}

type draftRequest struct {
	IdeaID   flexibleID `form:"idea_id" json:"idea_id"`
	IdeaText string     `form:"idea_text" json:"idea_text"`
	Topic    string     `form:"topic" json:"topic"`
}

// IndexPage 返回当前会话的完整页面
func (h *Handler) IndexPage(c *gin.Context) {
	page, err := render.Render(render.Page(currentSession(c).Snapshot(), h.Render))
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorRenderFailed, "page could not be rendered")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// GenerateIdeas 提交主题并返回想法面板；空主题不做任何事
func (h *Handler) GenerateIdeas(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBind(&req); err != nil {
		h.Response.BadRequest(c, "invalid request", err.Error())
		return
	}

	session := currentSession(c)
	err := session.GenerateIdeas(c.Request.Context(), req.Topic)
	if errors.Is(err, workflow.ErrEmptyTopic) {
		c.Status(http.StatusNoContent)
		return
	}

	h.panels(c, session, render.IdeasPanelID, render.DraftPanelID, render.SpecialistPanelID)
}

// GenerateDraft 为选中的想法生成草稿
func (h *Handler) GenerateDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBind(&req); err != nil {
		h.Response.BadRequest(c, "invalid request", err.Error())
		return
	}

	session := currentSession(c)
	err := session.GenerateDraft(c.Request.Context(), workflow.IdeaRef{
		ID:    string(req.IdeaID),
		Text:  req.IdeaText,
		Topic: req.Topic,
	})
	if apperrors.IsValidationError(err) {
		h.Response.FromError(c, err)
		return
	}

	h.panels(c, session, render.DraftPanelID, render.SpecialistPanelID)
}

// Specialize 生成单个平台版本
func (h *Handler) Specialize(c *gin.Context) {
	name := c.Param("platform")
	session := currentSession(c)

	err := session.Specialize(c.Request.Context(), name)
	if apperrors.IsValidationError(err) {
		h.Response.FromError(c, err)
		return
	}

	h.panels(c, session, render.ResultID(name))
}

// SpecializeAll 并发生成所有平台版本
func (h *Handler) SpecializeAll(c *gin.Context) {
	session := currentSession(c)
	if !session.Snapshot().Specialist.Ready() {
		h.Response.FromError(c, workflow.ErrNoDraft)
		return
	}

	session.SpecializeAll(c.Request.Context(), h.Concurrency)
	h.panels(c, session, render.SpecialistPanelID)
}

// History 加载历史记录面板
func (h *Handler) History(c *gin.Context) {
	session := currentSession(c)
	_ = session.LoadHistory(c.Request.Context())
	h.panels(c, session, render.HistoryPanelID)
}

// State 返回会话状态快照
func (h *Handler) State(c *gin.Context) {
	h.Response.Success(c, currentSession(c).Snapshot())
}

// GetPlatforms 返回平台表
func (h *Handler) GetPlatforms(c *gin.Context) {
	h.Response.Success(c, h.Platforms.All())
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	data := gin.H{
		"status":   "ok",
		"sessions": h.Sessions.Len(),
	}
	if h.Hub != nil {
		data["websockets"] = h.Hub.GetStatus()
	}
	c.JSON(http.StatusOK, data)
}

// PanelWebSocket 面板推送
func (h *Handler) PanelWebSocket(c *gin.Context) {
	h.WebSocketHandler.PanelWebSocket(c)
}

func (h *Handler) panels(c *gin.Context, session *workflow.Session, ids ...string) {
	frags, err := render.Fragments(session.Snapshot(), h.Render, ids...)
	if err != nil {
		h.log.WithError(err).WithField("panels", strings.Join(ids, ",")).Error("render failed")
		h.Response.Error(c, http.StatusInternalServerError, ErrorRenderFailed, "panels could not be rendered")
		return
	}
	h.Response.Panels(c, frags)
}
