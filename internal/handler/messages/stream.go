package messages

import (
	"net/http"
	"time"

	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

const heartbeatPeriod = 15 * time.Second

// handleStream 以 SSE 推送新留言，供无法使用 websocket 的浏览器 EventSource 订阅。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, cancel := h.hub.Subscribe(subscriberBuffer)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, FrameReady, map[string]string{"status": "subscribed"}); err != nil {
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, FrameMessage, msg); err != nil {
				h.logger.Debug().Err(err).Msg("sse write failed")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
