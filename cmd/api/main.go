package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/contact-desk/backend/internal/config"
	"github.com/zhouzirui/contact-desk/backend/internal/handler"
	"github.com/zhouzirui/contact-desk/backend/internal/logging"
	"github.com/zhouzirui/contact-desk/backend/internal/model/operator"
	contactService "github.com/zhouzirui/contact-desk/backend/internal/service/contact"
	"github.com/zhouzirui/contact-desk/backend/internal/service/feed"
	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
	triageService "github.com/zhouzirui/contact-desk/backend/internal/service/triage"
	"github.com/zhouzirui/contact-desk/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Log)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open message store")
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Str("table", cfg.Store.Table).Msg("message store ready")

	identitySvc := mustIdentity(ctx, cfg, logger)
	triageSvc := newTriage(ctx, cfg, logger)

	hub := feed.NewHub()
	contactSvc := contactService.NewService(st,
		contactService.WithClassifier(triageSvc),
		contactService.WithPublisher(hub),
		contactService.WithLogger(logger.With().Str("component", "contact").Logger()),
	)

	router := handler.NewRouter(handler.Deps{
		Contact:        contactSvc,
		Identity:       identitySvc,
		Hub:            hub,
		Store:          st,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func mustIdentity(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *identity.Service {
	operators, err := cfg.Auth.Operators()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load operators")
	}

	var revocations identity.RevocationStore
	if cfg.Auth.RevocationDriver == "redis" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to reach redis for token revocation")
		}
		revocations = identity.NewRedisRevocations(client)
	}

	svc, err := identity.NewService(operator.NewMemoryStore(operators), revocations, cfg.Auth.Identity(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize identity service")
	}
	logger.Info().Int("operators", len(operators)).Str("revocation", cfg.Auth.RevocationDriver).Msg("identity service ready")
	return svc
}

// newTriage 初始化留言分类（LLM 优先，启发式兜底）。
func newTriage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *triageService.Service {
	var chatModel model.ChatModel
	if cfg.Triage.LLMEnabled {
		if cfg.AI.Enabled() {
			m, err := cfg.AI.NewChatModel(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to initialize chat model, falling back to heuristics")
			} else {
				chatModel = m
			}
		} else {
			logger.Info().Msg("Ark 凭证未配置，留言分类使用启发式规则")
		}
	}

	svc, err := triageService.NewService(ctx, chatModel, triageService.Config{
		Enabled: cfg.Triage.LLMEnabled,
		Timeout: cfg.Triage.Timeout,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize triage chain, falling back to heuristics")
		svc, _ = triageService.NewService(ctx, nil, triageService.Config{}, logger)
	}
	logger.Info().Bool("llm", svc.Enabled()).Msg("triage service ready")
	return svc
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("contact-desk backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
