package service

import (
	"vitalia/internal/models"
)

// DefaultHistorySize 内存历史窗口默认大小
const DefaultHistorySize = 50

// History 有界的样本历史窗口（满了以后淘汰最旧的样本）
// 非并发安全，由 MonitorService 的锁保护
type History struct {
	buf   []models.VitalsSample
	start int
	count int
}

// NewHistory 创建历史窗口
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]models.VitalsSample, size)}
}

// Add 追加样本
func (h *History) Add(sample models.VitalsSample) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = sample
		h.count++
		return
	}
	h.buf[h.start] = sample
	h.start = (h.start + 1) % len(h.buf)
}

// Items 按时间顺序（最旧在前）返回副本
func (h *History) Items() []models.VitalsSample {
	out := make([]models.VitalsSample, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

// Len 当前样本数
func (h *History) Len() int {
	return h.count
}

// Cap 窗口容量
func (h *History) Cap() int {
	return len(h.buf)
}
