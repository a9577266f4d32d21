// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/Corphon/CampaignDesk/internal/render"
	"github.com/Corphon/CampaignDesk/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// PanelMessage 会话面板变化时推送的消息
type PanelMessage struct {
	Type  string `json:"type"`
	Panel string `json:"panel"`
	HTML  string `json:"html"`
}

// WebSocketHandler 处理 WebSocket 相关的 HTTP 请求
type WebSocketHandler struct {
	hub    *WebSocketManager
	render render.Options
	log    logrus.FieldLogger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(hub *WebSocketManager, opts render.Options, logger logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, render: opts, log: logger}
}

// PanelWebSocket 推送当前会话的面板渲染更新
func (wh *WebSocketHandler) PanelWebSocket(c *gin.Context) {
	session := currentSession(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewWebSocketClient(conn, session.ID(), wh.log)
	wh.hub.Register(client)
	defer wh.hub.Unregister(client)

	updates := session.Subscribe()
	defer session.Unsubscribe(updates)

	go wh.handleWebSocketWrites(client)
	go wh.forwardUpdates(session, updates, client)

	client.SendMessage(map[string]interface{}{
		"type":       "connected",
		"session_id": session.ID(),
		"timestamp":  time.Now().Format(time.RFC3339),
	})

	// 阻塞读取直到连接关闭
	wh.handleWebSocketReads(client)
}

// forwardUpdates 每次变化都基于最新快照重新渲染面板，
// 浏览器最终总是显示最新状态
func (wh *WebSocketHandler) forwardUpdates(session *workflow.Session, updates <-chan workflow.PanelUpdate, client *WebSocketClient) {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			id := render.PanelID(u.Panel, u.Key)
			node := render.Fragment(session.Snapshot(), wh.render, id)
			if node == nil {
				continue
			}
			html, err := render.Render(node)
			if err != nil {
				wh.log.WithError(err).WithField("panel", id).Error("render panel failed")
				continue
			}
			client.SendMessage(PanelMessage{Type: "panel", Panel: id, HTML: html})
		case <-client.Done():
			return
		}
	}
}

// handleWebSocketReads 处理 WebSocket 读取
func (wh *WebSocketHandler) handleWebSocketReads(client *WebSocketClient) {
	defer client.Close()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.log.WithError(err).Debug("websocket read error")
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		var message map[string]interface{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			continue
		}
		if message["type"] == "ping" {
			client.SendMessage(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// handleWebSocketWrites 处理 WebSocket 写入
func (wh *WebSocketHandler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				wh.log.WithError(err).Debug("websocket write failed")
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Done():
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
