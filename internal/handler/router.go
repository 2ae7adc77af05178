package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	authHandler "github.com/zhouzirui/contact-desk/backend/internal/handler/auth"
	contactHandler "github.com/zhouzirui/contact-desk/backend/internal/handler/contact"
	messagesHandler "github.com/zhouzirui/contact-desk/backend/internal/handler/messages"
	middlewarePkg "github.com/zhouzirui/contact-desk/backend/internal/middleware"
	contactService "github.com/zhouzirui/contact-desk/backend/internal/service/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/feed"
	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
	"github.com/zhouzirui/contact-desk/backend/internal/store"
	"github.com/zhouzirui/contact-desk/backend/pkg/utils"
)

// 各路由对外声明的 CORS 方法与请求头。
const (
	intakeMethods    = "POST, OPTIONS"
	retrievalMethods = "OPTIONS,GET"
	retrievalHeaders = "Content-Type,Authorization"
)

// Deps 汇总路由所需的服务。
type Deps struct {
	Contact        *contactService.Service
	Identity       *identity.Service
	Hub            *feed.Hub
	Store          store.Store
	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         zerolog.Logger
}

// NewRouter 将 HTTP 路由与核心服务连接起来。
func NewRouter(deps Deps) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.Metrics)
	r.Use(middlewarePkg.SecurityHeaders)
	r.Use(middlewarePkg.CORS(origins))

	auth := middlewarePkg.NewAuth(deps.Identity, deps.Logger)

	// 公开留言入口
	r.Group(func(pub chi.Router) {
		pub.Use(middlewarePkg.AllowMethods(origins, intakeMethods, ""))
		contactHandler.New(deps.Contact, deps.MaxBodyBytes, deps.Logger).RegisterRoutes(pub)
	})

	// 运营侧留言查询，令牌在处理器之前校验
	messages := messagesHandler.New(deps.Contact, deps.Hub, origins, deps.Logger)
	r.Group(func(adm chi.Router) {
		adm.Use(middlewarePkg.AllowMethods(origins, retrievalMethods, retrievalHeaders))
		adm.Options("/messages", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		adm.Group(func(pr chi.Router) {
			pr.Use(auth.Require)
			messages.RegisterRoutes(pr)
		})
		adm.Group(func(pr chi.Router) {
			pr.Use(auth.RequireAllowingQuery)
			messages.RegisterLiveRoutes(pr)
		})
	})

	authHandler.New(deps.Identity, auth, deps.Logger).RegisterRoutes(r)

	r.Get("/healthz", healthz(deps.Store))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthz(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
