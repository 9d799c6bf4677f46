package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vitalia/internal/models"
	"vitalia/internal/service"

	"go.uber.org/zap"
)

// Monitor HTTP 层依赖的监护服务接口（由 service.MonitorService 实现）
type Monitor interface {
	Snapshot() service.Status
	StartMonitoring()
	StopMonitoring()
	SetForced(forced models.ForcedFlags)
	SetAutoNotify(enabled bool)
	SubmitSymptoms(ctx context.Context, symptoms string) (models.AnalysisResult, error)
	SendReport(ctx context.Context) (models.NotificationOutcome, error)
	History() []models.VitalsSample
}

// MonitorHandler 监护接口处理器
type MonitorHandler struct {
	monitor Monitor
	logger  *zap.Logger
}

// NewMonitorHandler 创建监护接口处理器
func NewMonitorHandler(monitor Monitor, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		logger:  logger,
	}
}

type analyzeRequest struct {
	Symptoms string `json:"symptoms"`
}

type autoSendRequest struct {
	Enabled *bool `json:"enabled"`
}

type monitoringResponse struct {
	Monitoring bool `json:"monitoring"`
}

type historyResponse struct {
	Items []models.VitalsSample `json:"items"`
	Total int                   `json:"total"`
}

// GetStatus 当前状态
func (h *MonitorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.monitor.Snapshot()))
}

// StartMonitoring 开始监护
func (h *MonitorHandler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitor.StartMonitoring()
	writeJSON(w, http.StatusOK, Ok(monitoringResponse{Monitoring: true}))
}

// StopMonitoring 停止监护
func (h *MonitorHandler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitor.StopMonitoring()
	writeJSON(w, http.StatusOK, Ok(monitoringResponse{Monitoring: false}))
}

// SetSimulate 设置模拟异常开关
func (h *MonitorHandler) SetSimulate(w http.ResponseWriter, r *http.Request) {
	var forced models.ForcedFlags
	if err := readBodyJSON(r, maxBodyBytes, &forced); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	h.monitor.SetForced(forced)
	writeJSON(w, http.StatusOK, Ok(forced))
}

// SetAutoSend 开关紧急情况自动发送
func (h *MonitorHandler) SetAutoSend(w http.ResponseWriter, r *http.Request) {
	var req autoSendRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, Fail("enabled is required"))
		return
	}
	h.monitor.SetAutoNotify(*req.Enabled)
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"enabled": *req.Enabled}))
}

// Analyze 根据用户症状立即分析
func (h *MonitorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	symptoms := strings.TrimSpace(req.Symptoms)
	if symptoms == "" {
		writeJSON(w, http.StatusBadRequest, Fail("symptoms is required"))
		return
	}

	result, err := h.monitor.SubmitSymptoms(r.Context(), symptoms)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// SendReport 把最近一次医生报告发送给医生
func (h *MonitorHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.monitor.SendReport(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(outcome))
}

// GetHistory 历史窗口
func (h *MonitorHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	items := h.monitor.History()
	writeJSON(w, http.StatusOK, Ok(historyResponse{Items: items, Total: len(items)}))
}

// ExportHistory 导出历史窗口为 Excel
func (h *MonitorHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	excelData, err := GenerateVitalsExport(h.monitor.History())
	if err != nil {
		h.logger.Error("GenerateVitalsExport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=vitals-history.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(excelData)
}

// writeServiceError 前置条件不满足时返回 409，其余按 500 处理
func (h *MonitorHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMonitoringStopped),
		errors.Is(err, service.ErrNoVitals),
		errors.Is(err, service.ErrNoAnalysis):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	default:
		h.logger.Error("Monitor request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}
