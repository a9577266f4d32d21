// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 控制台默认只在本地运行
		return true
	},
}

// WebSocketConnection 定义 WebSocket 连接的接口
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	conn      WebSocketConnection
	sessionID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closed    int32 // 0=开启，1=关闭
	lastPing  atomic.Int64
	createdAt time.Time
	log       logrus.FieldLogger
}

// NewWebSocketClient 包装一个已升级的连接
func NewWebSocketClient(conn WebSocketConnection, sessionID string, logger logrus.FieldLogger) *WebSocketClient {
	client := &WebSocketClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		log:       logger.WithField("session", sessionID),
	}
	client.UpdatePing()
	return client
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	client.closeOnce.Do(func() {
		atomic.StoreInt32(&client.closed, 1)
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	})
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// Done 在连接关闭时关闭
func (client *WebSocketClient) Done() <-chan struct{} { return client.done }

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// SendMessage 安全发送消息到客户端，队列满时丢弃
func (client *WebSocketClient) SendMessage(message interface{}) error {
	if client.IsClosed() {
		return nil
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.send <- msgBytes:
	case <-client.done:
	default:
		client.log.Warn("websocket send queue full, message dropped")
	}
	return nil
}

// WebSocketManager 管理所有 WebSocket 连接，按会话分组
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // 会话ID -> 客户端集合
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	stop        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	log         logrus.FieldLogger
	metrics     *utils.Metrics
}

// NewWebSocketManager 创建管理器，需调用 Run 启动
func NewWebSocketManager(logger logrus.FieldLogger, metrics *utils.Metrics) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		register:    make(chan *WebSocketClient, 256),
		unregister:  make(chan *WebSocketClient, 256),
		stop:        make(chan struct{}),
		pingTimeout: 2 * pongWait,
		log:         logger,
		metrics:     metrics,
	}
}

// Run 运行 WebSocket 管理器主循环，直到 Shutdown
func (manager *WebSocketManager) Run() {
	cleanupTicker := time.NewTicker(pingInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)

		case client := <-manager.unregister:
			manager.unregisterClient(client)

		case <-cleanupTicker.C:
			manager.cleanupExpiredConnections()

		case <-manager.stop:
			manager.shutdown()
			return
		}
	}
}

// Register 注册客户端，管理器已停止时立即关闭客户端
func (manager *WebSocketManager) Register(client *WebSocketClient) {
	select {
	case manager.register <- client:
	case <-manager.stop:
		client.Close()
	}
}

// Unregister 注销客户端
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	select {
	case manager.unregister <- client:
	case <-manager.stop:
		client.Close()
	case <-time.After(5 * time.Second):
		manager.log.Warn("websocket unregister timed out")
		client.Close()
	}
}

// Shutdown 关闭所有连接并停止主循环
func (manager *WebSocketManager) Shutdown() {
	manager.stopOnce.Do(func() { close(manager.stop) })
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.sessionID][client] = struct{}{}
	total := manager.countLocked()
	manager.mutex.Unlock()

	manager.setGauge(total)
	manager.log.WithField("session", client.sessionID).Debug("websocket client connected")
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	if client == nil {
		return
	}

	manager.mutex.Lock()
	if clients, exists := manager.connections[client.sessionID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}
	total := manager.countLocked()
	manager.mutex.Unlock()

	client.Close()
	manager.setGauge(total)
	manager.log.WithField("session", client.sessionID).Debug("websocket client disconnected")
}

// cleanupExpiredConnections 清理过期和死连接
func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	for sessionID, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(clients, client)
				client.Close()
			}
		}
		if len(clients) == 0 {
			delete(manager.connections, sessionID)
		}
	}
	total := manager.countLocked()
	manager.mutex.Unlock()

	manager.setGauge(total)
}

func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	manager.mutex.Unlock()

	manager.setGauge(0)
	manager.log.Info("websocket manager stopped")
}

func (manager *WebSocketManager) countLocked() int {
	total := 0
	for _, clients := range manager.connections {
		total += len(clients)
	}
	return total
}

func (manager *WebSocketManager) setGauge(total int) {
	if manager.metrics != nil {
		manager.metrics.ActiveWebSockets.Set(float64(total))
	}
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	return map[string]interface{}{
		"sessions":    len(manager.connections),
		"connections": manager.countLocked(),
	}
}
