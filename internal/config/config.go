package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/contact-desk/backend/internal/logging"
	"github.com/zhouzirui/contact-desk/backend/internal/model/operator"
	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
	"github.com/zhouzirui/contact-desk/backend/internal/store"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    logging.Config
	Store  store.Options
	Auth   AuthConfig
	AI     AIConfig
	Triage TriageConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	triage, err := loadTriageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log: logging.Config{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Store: store.Options{
			Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", "memory")),
			Table:       getEnvOrDefault("TABLE_NAME", "contact_messages"),
			DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
			SQLitePath:  getEnvOrDefault("SQLITE_PATH", "contact.db"),
			RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		},
		Auth:   auth,
		AI:     ai,
		Triage: triage,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(strings.TrimSpace(os.Getenv("PORT")))
	if err != nil {
		return ServerConfig{}, err
	}

	maxBody := int64(64 << 10)
	if override, err := parseOptionalIntEnv("SERVER_MAX_BODY_BYTES"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return ServerConfig{}, fmt.Errorf("invalid SERVER_MAX_BODY_BYTES value %d", *override)
		}
		maxBody = int64(*override)
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		MaxBodyBytes:   maxBody,
	}, nil
}

func parseAddr(port string) (string, error) {
	if port == "" {
		return ":8080", nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AuthConfig 描述操作员登录与令牌配置。
type AuthConfig struct {
	Secret            []byte
	TokenTTL          time.Duration
	Issuer            string
	OperatorsFile     string
	AdminUsername     string
	AdminPasswordHash string
	RevocationDriver  string
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))
	if len(secret) < identity.MinSecretLength {
		return AuthConfig{}, fmt.Errorf("AUTH_JWT_SECRET must be at least %d characters", identity.MinSecretLength)
	}

	ttl, err := parseDurationEnv("AUTH_TOKEN_TTL", time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	driver := strings.ToLower(getEnvOrDefault("AUTH_REVOCATION_DRIVER", "memory"))
	if driver != "memory" && driver != "redis" {
		return AuthConfig{}, fmt.Errorf("invalid AUTH_REVOCATION_DRIVER value %q", driver)
	}

	return AuthConfig{
		Secret:            []byte(secret),
		TokenTTL:          ttl,
		Issuer:            getEnvOrDefault("AUTH_ISSUER", "contact-desk"),
		OperatorsFile:     strings.TrimSpace(os.Getenv("OPERATORS_FILE")),
		AdminUsername:     strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		RevocationDriver:  driver,
	}, nil
}

// Identity 转换为令牌服务参数。
func (c AuthConfig) Identity() identity.Config {
	return identity.Config{Secret: c.Secret, TTL: c.TokenTTL, Issuer: c.Issuer}
}

// Operators 合并账号文件与 ADMIN_* 环境变量。环境变量最后生效，可覆盖文件中同名账号。
func (c AuthConfig) Operators() ([]operator.Operator, error) {
	var operators []operator.Operator
	if c.OperatorsFile != "" {
		loaded, err := operator.LoadFile(c.OperatorsFile)
		if err != nil {
			return nil, err
		}
		operators = append(operators, loaded...)
	}

	switch {
	case c.AdminUsername != "" && c.AdminPasswordHash != "":
		operators = append(operators, operator.Operator{
			Username:     c.AdminUsername,
			PasswordHash: c.AdminPasswordHash,
		})
	case c.AdminUsername != "" || c.AdminPasswordHash != "":
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
	}

	if len(operators) == 0 {
		return nil, fmt.Errorf("no operators configured: set OPERATORS_FILE or ADMIN_USERNAME/ADMIN_PASSWORD_HASH")
	}
	return operators, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY together with ARK_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// TriageConfig 控制留言分类。
type TriageConfig struct {
	LLMEnabled bool
	Timeout    time.Duration
}

func loadTriageConfig() (TriageConfig, error) {
	enabled, err := parseBoolEnv("TRIAGE_LLM_ENABLED", false)
	if err != nil {
		return TriageConfig{}, err
	}

	timeout, err := parseDurationEnv("TRIAGE_TIMEOUT", 3*time.Second)
	if err != nil {
		return TriageConfig{}, err
	}

	return TriageConfig{LLMEnabled: enabled, Timeout: timeout}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
