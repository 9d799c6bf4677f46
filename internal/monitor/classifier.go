// Package monitor 将生命体征样本与固定阈值表比对，得到分类结果。
package monitor

import (
	"fmt"
	"strconv"

	"vitalia/internal/models"
)

// ThresholdVersion 阈值表版本；修改 Thresholds 会改变分类行为，必须同时升级版本号
const ThresholdVersion = "v1"

// Bounds 闭区间 [Min, Max]
type Bounds struct {
	Min float64
	Max float64
}

// Contains 是否在区间内
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func (b Bounds) String() string {
	return formatNumber(b.Min) + "-" + formatNumber(b.Max)
}

// ThresholdTable 临床阈值表
type ThresholdTable struct {
	HeartRate   Bounds
	SpO2        Bounds
	SysBP       Bounds
	DiaBP       Bounds
	Temperature Bounds
}

// Thresholds 当前生效的阈值表（版本见 ThresholdVersion）
var Thresholds = ThresholdTable{
	HeartRate:   Bounds{60, 100},
	SpO2:        Bounds{95, 100},
	SysBP:       Bounds{90, 140},
	DiaBP:       Bounds{60, 90},
	Temperature: Bounds{36.1, 37.5},
}

// Classify 根据阈值表对样本分类（纯函数，无副作用）
// 异常描述顺序：心率、血氧、收缩压、舒张压、体温
func Classify(sample models.VitalsSample) models.ClassificationResult {
	t := Thresholds
	abnormalities := make([]string, 0)
	details := models.Details{
		HeartRate:   models.StatusNormal,
		SpO2:        models.StatusNormal,
		BP:          models.StatusNormal,
		Temperature: models.StatusNormal,
	}

	if !t.HeartRate.Contains(float64(sample.HeartRate)) {
		abnormalities = append(abnormalities,
			fmt.Sprintf("Heart Rate: %d bpm (Normal: %s)", sample.HeartRate, t.HeartRate))
		details.HeartRate = models.StatusAbnormal
	}

	if !t.SpO2.Contains(float64(sample.SpO2)) {
		abnormalities = append(abnormalities,
			fmt.Sprintf("SpO2: %d%% (Normal: %s)", sample.SpO2, t.SpO2))
		details.SpO2 = models.StatusAbnormal
	}

	// 血压：收缩压或舒张压任一越界即为异常，两者分别列出
	sysAbnormal := !t.SysBP.Contains(float64(sample.SysBP))
	diaAbnormal := !t.DiaBP.Contains(float64(sample.DiaBP))
	if sysAbnormal {
		abnormalities = append(abnormalities,
			fmt.Sprintf("Systolic BP: %d mmHg (Normal: %s)", sample.SysBP, t.SysBP))
	}
	if diaAbnormal {
		abnormalities = append(abnormalities,
			fmt.Sprintf("Diastolic BP: %d mmHg (Normal: %s)", sample.DiaBP, t.DiaBP))
	}
	if sysAbnormal || diaAbnormal {
		details.BP = models.StatusAbnormal
	}

	if !t.Temperature.Contains(sample.Temperature) {
		abnormalities = append(abnormalities,
			fmt.Sprintf("Temperature: %.1f°C (Normal: %s)", sample.Temperature, t.Temperature))
		details.Temperature = models.StatusAbnormal
	}

	status := models.StatusNormal
	if len(abnormalities) > 0 {
		status = models.StatusAbnormal
	}

	return models.ClassificationResult{
		Status:        status,
		Abnormalities: abnormalities,
		Details:       details,
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
