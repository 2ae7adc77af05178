package messages

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	contactService "github.com/zhouzirui/contact-desk/backend/internal/service/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/feed"
	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

// Handler 运营侧留言查询的HTTP处理器，调用方需先经过令牌校验。
type Handler struct {
	svc    *contactService.Service
	hub    *feed.Hub
	live   *LiveHandler
	logger zerolog.Logger
}

// New 创建留言查询处理器。hub 为 nil 时不提供实时推送。
func New(svc *contactService.Service, hub *feed.Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	logger = logger.With().Str("component", "retrieval").Logger()
	h := &Handler{svc: svc, hub: hub, logger: logger}
	if hub != nil {
		h.live = NewLiveHandler(hub, allowedOrigins, logger)
	}
	return h
}

// RegisterRoutes 注册列表路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages", h.handleList)
}

// RegisterLiveRoutes 注册实时推送路由（websocket 与 SSE）
func (h *Handler) RegisterLiveRoutes(r chi.Router) {
	if h.live == nil {
		return
	}
	r.Get("/messages/live", h.live.ServeHTTP)
	r.Get("/messages/stream", h.handleStream)
}

// handleList 返回全部留言
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	messages, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list messages")
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}
