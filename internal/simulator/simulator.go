package simulator

import (
	"math"
	"math/rand"

	"vitalia/internal/clock"
	"vitalia/internal/models"
)

// IntRange 闭区间 [Min, Max]
type IntRange struct {
	Min int
	Max int
}

// Contains 是否在区间内
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// FloatRange 闭区间 [Min, Max]
type FloatRange struct {
	Min float64
	Max float64
}

// Contains 是否在区间内
func (r FloatRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// 随机游走的正常区间（非强制模式下 clamp 到这里）
var (
	HeartRateWalk   = IntRange{60, 100}
	SpO2Walk        = IntRange{95, 100}
	SysBPWalk       = IntRange{110, 130}
	DiaBPWalk       = IntRange{70, 85}
	TemperatureWalk = FloatRange{36.5, 37.5}
)

// 强制异常模式下的取值区间（与正常区间不相交）
var (
	HeartRateLow    = IntRange{40, 55}
	HeartRateHigh   = IntRange{110, 150}
	SpO2Low         = IntRange{85, 94}
	SysBPHigh       = IntRange{140, 180}
	DiaBPHigh       = IntRange{90, 110}
	TemperatureHigh = FloatRange{38.0, 40.0}
	TemperatureLow  = FloatRange{35.0, 36.0}
)

// 每个 tick 的最大步长
const (
	heartRateStep   = 5
	spo2Step        = 1
	bpStep          = 2
	temperatureStep = 0.1
)

// Simulator 生命体征模拟器（有界随机游走，持有上一次的取值作为下一步基线）
// 非并发安全：只应由 tick 所在的 goroutine 调用
type Simulator struct {
	rng   *rand.Rand
	clock clock.Clock

	heartRate   int
	spo2        int
	sysBP       int
	diaBP       int
	temperature float64
}

// NewSimulator 创建模拟器
func NewSimulator(rng *rand.Rand, clk clock.Clock) *Simulator {
	return &Simulator{
		rng:         rng,
		clock:       clk,
		heartRate:   75,
		spo2:        98,
		sysBP:       120,
		diaBP:       80,
		temperature: 37.0,
	}
}

// Generate 生成下一组生命体征
// forced: 各类别是否强制异常，未强制的类别在上一值基础上随机游走
func (s *Simulator) Generate(forced models.ForcedFlags) models.VitalsSample {
	// 心率
	if forced.HeartRate {
		if s.coin() {
			s.heartRate = s.intIn(HeartRateLow)
		} else {
			s.heartRate = s.intIn(HeartRateHigh)
		}
	} else {
		s.heartRate = clampInt(s.heartRate+s.step(heartRateStep), HeartRateWalk)
	}

	// 血氧
	if forced.SpO2 {
		s.spo2 = s.intIn(SpO2Low)
	} else {
		s.spo2 = clampInt(s.spo2+s.step(spo2Step), SpO2Walk)
	}

	// 血压（收缩压和舒张压一起强制）
	if forced.BP {
		s.sysBP = s.intIn(SysBPHigh)
		s.diaBP = s.intIn(DiaBPHigh)
	} else {
		s.sysBP = clampInt(s.sysBP+s.step(bpStep), SysBPWalk)
		s.diaBP = clampInt(s.diaBP+s.step(bpStep), DiaBPWalk)
	}

	// 体温
	if forced.Temperature {
		if s.coin() {
			s.temperature = round1(s.floatIn(TemperatureHigh))
		} else {
			s.temperature = round1(s.floatIn(TemperatureLow))
		}
	} else {
		delta := s.floatIn(FloatRange{-temperatureStep, temperatureStep})
		s.temperature = round1(clampFloat(s.temperature+delta, TemperatureWalk))
	}

	now := s.clock.Now()
	return models.VitalsSample{
		Timestamp:   now.Local().Format("15:04:05"),
		RecordedAt:  now,
		HeartRate:   s.heartRate,
		SpO2:        s.spo2,
		SysBP:       s.sysBP,
		DiaBP:       s.diaBP,
		Temperature: s.temperature,
	}
}

func (s *Simulator) coin() bool {
	return s.rng.Intn(2) == 0
}

// step 返回 [-max, max] 内的整数步长
func (s *Simulator) step(max int) int {
	return s.rng.Intn(2*max+1) - max
}

func (s *Simulator) intIn(r IntRange) int {
	return r.Min + s.rng.Intn(r.Max-r.Min+1)
}

func (s *Simulator) floatIn(r FloatRange) float64 {
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

func clampInt(v int, r IntRange) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func clampFloat(v float64, r FloatRange) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
