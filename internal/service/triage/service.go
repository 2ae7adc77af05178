package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	analysis "github.com/zhouzirui/contact-desk/backend/internal/analysis/triage"
	"github.com/zhouzirui/contact-desk/backend/internal/metrics"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// Config 控制分类服务的行为。
type Config struct {
	Enabled bool
	Timeout time.Duration
}

// Result 表示分类结果以及结果来源（llm 或 heuristic）。
type Result struct {
	Category analysis.Label
	Source   string // "llm" or "heuristic"
	Reason   string
}

// Service 使用大模型对联系消息分类，失败时回退到关键词规则。
type Service struct {
	enabled    bool
	timeout    time.Duration
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   func(name, message string) analysis.Decision
	logger     zerolog.Logger
}

// NewService 创建分类服务。chatModel 为 nil 时只使用启发式规则。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger zerolog.Logger) (*Service, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		timeout:  timeout,
		fallback: analysis.Analyze,
		logger:   logger.With().Str("component", "triage").Logger(),
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(triageSystemPrompt),
		schema.UserMessage(triageUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile triage chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回大模型分类是否启用。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Classify 对提交内容分类。该方法不会失败，大模型出错、超时或返回未知标签时回退到关键词规则。
func (s *Service) Classify(ctx context.Context, sub contact.Submission) Result {
	result := s.classify(ctx, sub)
	metrics.SubmissionCategories.WithLabelValues(string(result.Category), result.Source).Inc()
	return result
}

func (s *Service) classify(ctx context.Context, sub contact.Submission) Result {
	if !s.Enabled() {
		return s.fallbackResult(sub)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := map[string]any{
		"name":    strings.TrimSpace(sub.Name),
		"email":   strings.TrimSpace(sub.Email),
		"message": strings.TrimSpace(sub.Message),
	}

	msg, err := s.classifier.Invoke(ctx, input)
	if err != nil {
		s.logger.Warn().Err(err).Msg("classifier invoke failed, using fallback")
		return s.fallbackResult(sub)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallbackResult(sub)
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("classifier output parse failed, using fallback")
		return s.fallbackResult(sub)
	}

	label, ok := analysis.ParseLabel(payload.Category)
	if !ok {
		return s.fallbackResult(sub)
	}

	return Result{Category: label, Source: "llm", Reason: strings.TrimSpace(payload.Reason)}
}

func (s *Service) fallbackResult(sub contact.Submission) Result {
	fallback := s.fallback
	if fallback == nil {
		fallback = analysis.Analyze
	}
	decision := fallback(sub.Name, sub.Message)
	return Result{Category: decision.Category, Source: "heuristic", Reason: "keyword match"}
}

// parseClassifierOutput 解析大模型返回的 JSON。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

type classifierPayload struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

const triageSystemPrompt = "You triage messages sent through a website contact form. Read the sender name, email and message and pick exactly one category: sales, support, partnership, feedback, spam or general.\nReturn only a JSON object with the fields category and reason (one short sentence). Do not output anything else."

const triageUserPrompt = "Name: {name}\nEmail: {email}\n\nMessage:\n{message}"
