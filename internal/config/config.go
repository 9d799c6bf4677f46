package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker      string // 为空表示不连接 MQTT
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // 通知主题前缀，如 "vitalia/notify/"
}

// Config 监护服务配置
type Config struct {
	ServiceName string
	PatientID   string // 单病人模式下的病人标识（用于日志、缓存键和事件）

	HTTP struct {
		Addr string
	}

	// 采样与监护
	Monitor struct {
		Enabled      bool  // 启动时是否立即开始监护
		TickInterval int   // 采样间隔（秒），默认 1秒
		HistorySize  int   // 内存历史窗口大小，默认 50
		Seed         int64 // 模拟器随机种子，0 表示按时间取种
	}

	// 升级策略
	Escalation struct {
		Cooldown        int    // 自动分析冷却时间（秒），默认 10秒
		AutoSend        bool   // 紧急情况自动发送报告给医生
		DoctorPhone     string // 医生号码，为空时不自动发送
		AnalysisTimeout int    // 分析调用超时（秒），默认 30秒
		NotifyTimeout   int    // 通知调用超时（秒），默认 15秒
	}

	Gemini struct {
		APIKey  string
		Model   string
		BaseURL string
	}

	Notify struct {
		Backends []string // twilio, mqtt
		Twilio   struct {
			AccountSID string
			AuthToken  string
			FromNumber string
			BaseURL    string
		}
	}

	Redis RedisConfig

	// Redis 缓存配置
	Cache struct {
		RealtimeKeyPrefix string // 实时数据缓存键前缀，如 "vitalia:patient:"
		RealtimeSuffix    string // 实时数据缓存键后缀，如 ":realtime"
		RealtimeTTL       int    // 实时数据 TTL（秒），默认 30秒
		EscalationStream  string // 升级事件 Stream 名称
		StreamMaxLen      int64  // Stream 最大长度
	}

	MQTT MQTTConfig

	Log struct {
		Level  string
		Format string
	}
}

// TickInterval 采样间隔
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Monitor.TickInterval) * time.Second
}

// Cooldown 冷却时间
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Escalation.Cooldown) * time.Second
}

// AnalysisTimeout 分析调用超时
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Escalation.AnalysisTimeout) * time.Second
}

// NotifyTimeout 通知调用超时
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Escalation.NotifyTimeout) * time.Second
}

// RealtimeTTL 实时缓存 TTL
func (c *Config) RealtimeTTL() time.Duration {
	return time.Duration(c.Cache.RealtimeTTL) * time.Second
}

// Load 加载配置（环境变量优先，其次当前目录的 .env 文件，最后是默认值）
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom 从指定 env 文件和环境变量加载配置；文件不存在时忽略
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	cfg := &Config{}

	cfg.ServiceName = getEnv(v, "SERVICE_NAME", "vitalia")
	cfg.PatientID = getEnv(v, "PATIENT_ID", "patient-001")
	cfg.HTTP.Addr = getEnv(v, "HTTP_ADDR", ":8080")

	cfg.Monitor.Enabled = getEnvBool(v, "MONITORING_ENABLED", false)
	cfg.Monitor.TickInterval = getEnvInt(v, "TICK_INTERVAL", 1)
	cfg.Monitor.HistorySize = getEnvInt(v, "HISTORY_SIZE", 50)
	cfg.Monitor.Seed = int64(getEnvInt(v, "SIM_SEED", 0))

	cfg.Escalation.Cooldown = getEnvInt(v, "COOLDOWN", 10)
	cfg.Escalation.AutoSend = getEnvBool(v, "AUTO_SEND", false)
	cfg.Escalation.DoctorPhone = getEnv(v, "DOCTOR_PHONE_NUMBER", "")
	cfg.Escalation.AnalysisTimeout = getEnvInt(v, "ANALYSIS_TIMEOUT", 30)
	cfg.Escalation.NotifyTimeout = getEnvInt(v, "NOTIFY_TIMEOUT", 15)

	cfg.Gemini.APIKey = getEnv(v, "GEMINI_API_KEY", "")
	cfg.Gemini.Model = getEnv(v, "GEMINI_MODEL", "gemini-2.5-flash")
	cfg.Gemini.BaseURL = getEnv(v, "GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")

	cfg.Notify.Backends = splitList(getEnv(v, "NOTIFY_BACKENDS", "twilio"))
	cfg.Notify.Twilio.AccountSID = getEnv(v, "TWILIO_ACCOUNT_SID", "")
	cfg.Notify.Twilio.AuthToken = getEnv(v, "TWILIO_AUTH_TOKEN", "")
	cfg.Notify.Twilio.FromNumber = getEnv(v, "TWILIO_FROM_NUMBER", "")
	cfg.Notify.Twilio.BaseURL = getEnv(v, "TWILIO_BASE_URL", "https://api.twilio.com")

	cfg.Redis.Enabled = getEnvBool(v, "REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnv(v, "REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv(v, "REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt(v, "REDIS_DB", 0)

	cfg.Cache.RealtimeKeyPrefix = getEnv(v, "CACHE_REALTIME_PREFIX", "vitalia:patient:")
	cfg.Cache.RealtimeSuffix = ":realtime"
	cfg.Cache.RealtimeTTL = getEnvInt(v, "CACHE_REALTIME_TTL", 30)
	cfg.Cache.EscalationStream = getEnv(v, "ESCALATION_STREAM", "vitalia:escalations")
	cfg.Cache.StreamMaxLen = int64(getEnvInt(v, "ESCALATION_STREAM_MAXLEN", 1000))

	cfg.MQTT.Broker = getEnv(v, "MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv(v, "MQTT_CLIENT_ID", "vitalia")
	cfg.MQTT.Username = getEnv(v, "MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv(v, "MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt(v, "MQTT_QOS", 1))
	cfg.MQTT.TopicPrefix = getEnv(v, "MQTT_TOPIC_PREFIX", "vitalia/notify/")

	cfg.Log.Level = getEnv(v, "LOG_LEVEL", "info")
	cfg.Log.Format = getEnv(v, "LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %d", c.Monitor.TickInterval)
	}
	if c.Escalation.Cooldown <= 0 {
		return fmt.Errorf("COOLDOWN must be positive, got %d", c.Escalation.Cooldown)
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.Monitor.HistorySize)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func getEnv(v *viper.Viper, key, defaultValue string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(v *viper.Viper, key string, defaultValue int) int {
	value := getEnv(v, key, "")
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvBool(v *viper.Viper, key string, defaultValue bool) bool {
	value := getEnv(v, key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
