package contact

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	contactService "github.com/zhouzirui/contact-desk/backend/internal/service/contact"
	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

// 公开接口的固定响应文案。
const (
	msgSuccess        = "Success"
	msgInvalidJSON    = "Invalid JSON"
	msgMissingFields  = "Missing required fields"
	msgInternalServer = "Internal Server Error"
)

// DefaultMaxBodyBytes 未配置时提交请求体的大小上限。
const DefaultMaxBodyBytes int64 = 64 << 10

// Handler 公开留言表单的HTTP处理器
type Handler struct {
	svc          *contactService.Service
	maxBodyBytes int64
	logger       zerolog.Logger
}

// New 创建留言处理器
func New(svc *contactService.Service, maxBodyBytes int64, logger zerolog.Logger) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With().Str("component", "intake").Logger(),
	}
}

// RegisterRoutes 注册留言路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/contact", h.handleSubmit)
	r.Options("/contact", handlePreflight)
}

// handleSubmit 接收一条留言
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.logger.Debug().Err(err).Msg("failed to read submission body")
		utils.RespondMessage(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	msg, err := h.svc.Submit(r.Context(), body)
	switch {
	case err == nil:
		h.logger.Debug().Str("id", msg.ID).Msg("submission accepted")
		utils.RespondMessage(w, http.StatusOK, msgSuccess)
	case errors.Is(err, contactService.ErrMalformedInput):
		utils.RespondMessage(w, http.StatusBadRequest, msgInvalidJSON)
	case errors.Is(err, contactService.ErrMissingField):
		utils.RespondMessage(w, http.StatusBadRequest, msgMissingFields)
	default:
		// 细节只写日志，不回显给调用方。
		h.logger.Error().Err(err).Msg("submission failed")
		utils.RespondMessage(w, http.StatusInternalServerError, msgInternalServer)
	}
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
