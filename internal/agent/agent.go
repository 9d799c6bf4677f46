// Package agent 实现 AI 分析：构造三段式请求、调用模型服务、防御性解析返回文本。
package agent

import (
	"context"
	"errors"

	"vitalia/internal/models"
)

// ErrProviderUnavailable 分析服务未配置（例如缺少 API Key）
var ErrProviderUnavailable = errors.New("analysis provider unavailable")

// AutoDetectedSymptoms 自动升级时使用的症状描述（患者尚未输入症状）
const AutoDetectedSymptoms = "Auto-detected abnormality. Patient has not provided symptoms yet."

// 降级结果文案
const (
	unavailableAdvice = "AI Module not initialized (Missing API Key)."
	errorAdvicePrefix = "Error communicating with AI: "
)

// Provider AI 分析服务
type Provider interface {
	// Analyze 根据生命体征和症状描述返回分析结果
	// 未配置时返回 ErrProviderUnavailable；通信失败返回其他 error
	Analyze(ctx context.Context, sample models.VitalsSample, symptoms string) (models.AnalysisResult, error)
}

// Degraded 将分析失败转换为可展示的降级结果（emergency 恒为 false）
func Degraded(err error) models.AnalysisResult {
	if errors.Is(err, ErrProviderUnavailable) {
		return models.AnalysisResult{PatientAdvice: unavailableAdvice}
	}
	return models.AnalysisResult{PatientAdvice: errorAdvicePrefix + err.Error()}
}
