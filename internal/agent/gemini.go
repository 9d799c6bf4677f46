package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vitalia/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultGeminiBaseURL Gemini REST 服务地址
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// DefaultGeminiModel 默认模型
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiPart 内容片段
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent 一轮对话内容
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// GenerateContentRequest generateContent 请求
type GenerateContentRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// GenerateContentResponse generateContent 响应
type GenerateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiError Gemini 错误响应
type GeminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiConfig Gemini 客户端配置
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Gemini 基于 Gemini REST API 的分析服务
type Gemini struct {
	httpClient *resty.Client
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewGemini 创建 Gemini 客户端
// APIKey 为空时客户端仍可创建，但每次调用都返回 ErrProviderUnavailable
func NewGemini(cfg GeminiConfig, logger *zap.Logger) *Gemini {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not configured, AI analysis disabled")
	}

	// 不在传输层重试：一次分析只调用一次，由冷却计时器控制频率
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Gemini{
		httpClient: client,
		apiKey:     cfg.APIKey,
		model:      model,
		logger:     logger,
	}
}

// Analyze 调用 generateContent 并解析三段式结果
func (g *Gemini) Analyze(ctx context.Context, sample models.VitalsSample, symptoms string) (models.AnalysisResult, error) {
	if g.apiKey == "" {
		return models.AnalysisResult{}, ErrProviderUnavailable
	}

	text, err := g.generate(ctx, BuildPrompt(sample, symptoms))
	if err != nil {
		return models.AnalysisResult{}, err
	}

	return ParseResponse(text), nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	request := GenerateContentRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: Persona}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}

	g.logger.Debug("Calling Gemini API: generateContent",
		zap.String("model", g.model),
	)

	var response GenerateContentResponse
	var apiErr GeminiError
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.apiKey).
		SetPathParam("model", g.model).
		SetBody(request).
		SetResult(&response).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")

	if err != nil {
		g.logger.Error("Gemini API call failed",
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}

	if resp.IsError() {
		g.logger.Error("Gemini API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("status", apiErr.Error.Status),
			zap.String("msg", apiErr.Error.Message),
		)
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("Gemini API error: %s (status: %d)", apiErr.Error.Message, resp.StatusCode())
		}
		return "", fmt.Errorf("Gemini API error: status %d", resp.StatusCode())
	}

	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	g.logger.Debug("Gemini API call succeeded",
		zap.String("finish_reason", response.Candidates[0].FinishReason),
		zap.Int("text_length", sb.Len()),
	)

	return sb.String(), nil
}
