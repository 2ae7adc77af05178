package messages

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/contact-desk/backend/internal/middleware"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/feed"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	subscriberBuffer = 16
)

// 实时推送的帧类型
const (
	FrameReady   = "ready"
	FrameMessage = "message"
)

// Frame 实时 websocket 上的一条 JSON 消息。
type Frame struct {
	Type string           `json:"type"`
	Data *contact.Message `json:"data,omitempty"`
}

// LiveHandler 通过 websocket 推送新收到的留言。
type LiveHandler struct {
	hub      *feed.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewLiveHandler 创建实时推送处理器
func NewLiveHandler(hub *feed.Hub, allowedOrigins []string, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// 非浏览器客户端不带 Origin。
		return origin == "" || set[origin]
	}
}

// ServeHTTP 升级连接并转发 hub 中的消息，直到客户端断开。
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("live feed upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(subscriberBuffer)
	defer cancel()

	operator := ""
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		operator = claims.Subject
	}
	logger := h.logger.With().Str("operator", operator).Logger()
	logger.Info().Msg("live feed subscriber connected")
	defer logger.Info().Msg("live feed subscriber disconnected")

	// 读协程只处理 pong 与关闭帧。
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, Frame{Type: FrameReady}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, Frame{Type: FrameMessage, Data: &msg}); err != nil {
				logger.Debug().Err(err).Msg("live feed write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) write(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
