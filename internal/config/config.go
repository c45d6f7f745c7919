package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Scylla    ScyllaConfig    `mapstructure:"scylla"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Throttle  ThrottleConfig  `mapstructure:"throttle"`
	Telephony TelephonyConfig `mapstructure:"telephony"`
	Detection DetectionConfig `mapstructure:"detection"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ScyllaConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Keyspace    string        `mapstructure:"keyspace"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers              []string      `mapstructure:"brokers"`
	ClientID             string        `mapstructure:"client_id"`
	EventTopic           string        `mapstructure:"event_topic"`
	JobTopic             string        `mapstructure:"job_topic"`
	ResultTopic          string        `mapstructure:"result_topic"`
	EventConsumerGroupID string        `mapstructure:"event_consumer_group_id"`
	JobConsumerGroupID   string        `mapstructure:"job_consumer_group_id"`
	CommitInterval       time.Duration `mapstructure:"commit_interval"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ThrottleConfig struct {
	GlobalConcurrency  int           `mapstructure:"global_concurrency"`
	DefaultPerCampaign int           `mapstructure:"default_per_campaign"`
	SlotTTL            time.Duration `mapstructure:"slot_ttl"`
}

type TelephonyConfig struct {
	ProviderName   string        `mapstructure:"provider_name"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DetectionConfig groups per-strategy settings. Each strategy resolves its own
// struct once at construction and never re-reads configuration per call.
type DetectionConfig struct {
	// ConfidenceThreshold is the global decision threshold; strategies fall
	// back to it when their own threshold is unset. Default 0.7.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	Signaling   SignalingConfig   `mapstructure:"signaling"`
	SIPEvent    SIPEventConfig    `mapstructure:"sip_event"`
	MLInference MLInferenceConfig `mapstructure:"ml_inference"`
	LLMAudio    LLMAudioConfig    `mapstructure:"llm_audio"`
}

// SignalingConfig configures the telephony-provider signaling strategy.
// AccountID and AuthToken are required.
type SignalingConfig struct {
	AccountID string `mapstructure:"account_id"`
	AuthToken string `mapstructure:"auth_token"`
}

// SIPEventConfig configures the SIP-platform event strategy.
// BaseURL is required; the liveness probe is advisory.
type SIPEventConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// MLInferenceConfig configures the remote-classifier strategy.
// BaseURL is required. RequestTimeout defaults to 10s, ProbeTimeout to 5s.
type MLInferenceConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// LLMAudioConfig configures the generative-model strategy.
// APIKey is required. RequestTimeout defaults to 15s.
type LLMAudioConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("AMD")
	v.SetEnvKeyReplacer(NewEnvReplacer())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
