package models

import (
	"time"
)

// Status 分类状态
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusAbnormal Status = "ABNORMAL"
)

// Category 生命体征类别（血压的收缩压/舒张压合并为一个类别）
type Category string

const (
	CategoryHeartRate   Category = "heart_rate"
	CategorySpO2        Category = "spo2"
	CategoryBP          Category = "bp"
	CategoryTemperature Category = "temperature"
)

// Categories 全部类别，顺序固定
var Categories = []Category{
	CategoryHeartRate,
	CategorySpO2,
	CategoryBP,
	CategoryTemperature,
}

// VitalsSample 单次生命体征采样（每个 tick 产生一次，产生后不可修改）
type VitalsSample struct {
	Timestamp   string    `json:"timestamp"`   // 本地时间 "HH:MM:SS"，仅用于展示
	RecordedAt  time.Time `json:"recorded_at"` // 采样时刻（计时逻辑使用）
	HeartRate   int       `json:"heart_rate"`  // bpm
	SpO2        int       `json:"spo2"`        // %
	SysBP       int       `json:"sys_bp"`      // mmHg
	DiaBP       int       `json:"dia_bp"`      // mmHg
	Temperature float64   `json:"temperature"` // °C，一位小数
}

// ForcedFlags 各类别是否强制产生异常值（模拟开关）
type ForcedFlags struct {
	HeartRate   bool `json:"heart_rate"`
	SpO2        bool `json:"spo2"`
	BP          bool `json:"bp"`
	Temperature bool `json:"temperature"`
}

// Any 是否有任一类别被强制
func (f ForcedFlags) Any() bool {
	return f.HeartRate || f.SpO2 || f.BP || f.Temperature
}

// Details 各类别的状态（固定包含四个类别）
type Details struct {
	HeartRate   Status `json:"heart_rate"`
	SpO2        Status `json:"spo2"`
	BP          Status `json:"bp"`
	Temperature Status `json:"temperature"`
}

// Of 按类别取状态
func (d Details) Of(c Category) Status {
	switch c {
	case CategoryHeartRate:
		return d.HeartRate
	case CategorySpO2:
		return d.SpO2
	case CategoryBP:
		return d.BP
	case CategoryTemperature:
		return d.Temperature
	}
	return ""
}

// ClassificationResult 阈值分类结果（由样本和阈值表纯函数推导）
type ClassificationResult struct {
	Status        Status   `json:"status"`
	Abnormalities []string `json:"abnormalities"`
	Details       Details  `json:"details"`
}

// IsAbnormal 是否异常
func (r ClassificationResult) IsAbnormal() bool {
	return r.Status == StatusAbnormal
}
