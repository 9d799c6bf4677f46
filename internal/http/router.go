package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)
	r.mux.ServeHTTP(w, req)
}

// RegisterMonitorRoutes 注册监护相关路由
func (r *Router) RegisterMonitorRoutes(h *MonitorHandler) {
	r.Handle("/api/v1/status", allowMethod(http.MethodGet, h.GetStatus))

	r.Handle("/api/v1/monitoring/start", allowMethod(http.MethodPost, h.StartMonitoring))
	r.Handle("/api/v1/monitoring/stop", allowMethod(http.MethodPost, h.StopMonitoring))

	r.Handle("/api/v1/simulate", allowMethod(http.MethodPut, h.SetSimulate))
	r.Handle("/api/v1/auto-send", allowMethod(http.MethodPut, h.SetAutoSend))

	r.Handle("/api/v1/analyze", allowMethod(http.MethodPost, h.Analyze))
	r.Handle("/api/v1/report/send", allowMethod(http.MethodPost, h.SendReport))

	r.Handle("/api/v1/vitals/history", allowMethod(http.MethodGet, h.GetHistory))
	r.Handle("/api/v1/vitals/export", allowMethod(http.MethodGet, h.ExportHistory))
}

// RegisterHealthRoutes 注册健康检查路由
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/health", h.HealthCheck)
	r.Handle("/healthz", h.HealthCheck)
}
