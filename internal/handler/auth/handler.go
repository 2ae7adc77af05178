package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/contact-desk/backend/internal/middleware"
	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

// MsgInvalidCredentials 登录被拒绝时返回的提示，控制台原样展示。
const MsgInvalidCredentials = "Incorrect username or password."

// Handler 运营登录相关的HTTP处理器
type Handler struct {
	svc    *identity.Service
	auth   *middleware.Auth
	logger zerolog.Logger
}

// New 创建登录处理器
func New(svc *identity.Service, auth *middleware.Auth, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, auth: auth, logger: logger.With().Str("component", "auth").Logger()}
}

// RegisterRoutes 注册登录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", h.handleLogin)
		ar.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		ar.Group(func(pr chi.Router) {
			pr.Use(h.auth.Require)
			pr.Post("/logout", h.handleLogout)
			pr.Get("/session", h.handleSession)
		})
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse 描述令牌对应的会话信息。
type SessionResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"name,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// handleLogin 校验账号密码并签发令牌
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.svc.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		utils.RespondError(w, http.StatusInternalServerError, "login unavailable")
		return
	}

	utils.RespondJSON(w, http.StatusOK, token)
}

// handleLogout 吊销当前令牌
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := middleware.BearerToken(r)
	if err := h.svc.Logout(r.Context(), raw); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrTokenRevoked) {
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Error().Err(err).Msg("logout failed")
		utils.RespondError(w, http.StatusInternalServerError, "logout unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession 返回令牌对应的会话信息
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := SessionResponse{Username: claims.Subject, DisplayName: claims.DisplayName}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
