package models

import (
	"time"
)

// AnalysisResult AI 分析结果（三段式：患者建议 / 医生报告 / 紧急标记）
type AnalysisResult struct {
	PatientAdvice string `json:"patient_advice"`
	DoctorReport  string `json:"doctor_report"`
	Emergency     bool   `json:"emergency"`
}

// NotificationOutcome 通知发送结果（尽力而为，不保证送达）
type NotificationOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EscalationState 升级状态（只由 escalation.Controller 修改）
type EscalationState struct {
	AbnormalSince  *time.Time `json:"abnormal_since,omitempty"`
	LastAnalysisAt *time.Time `json:"last_analysis_at,omitempty"`
}

// Idle 是否处于空闲状态（未检测到持续异常）
func (s EscalationState) Idle() bool {
	return s.AbnormalSince == nil
}

// Phase 升级状态机阶段
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseWaiting   Phase = "WAITING"
	PhaseAnalyzing Phase = "ANALYZING"
)
