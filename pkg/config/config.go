package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logger struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"json"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		BarsTopic   string   `yaml:"bars_topic" default:"fincast.bars.daily"`
		EventsTopic string   `yaml:"events_topic" default:"fincast.engine.events"`
		LogsTopic   string   `yaml:"logs_topic" default:"fincast.engine.logs"`
		Compression string   `yaml:"compression" default:"gzip"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fincast-engine"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fincast.bars.dlq"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		MemorySize int `yaml:"memory_size" default:"2048"`
	} `yaml:"cache"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"2"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		KeyPrefix  string        `yaml:"key_prefix" default:"fincast:queue"`
	} `yaml:"queue"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"3"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
	} `yaml:"ratelimit"`
	Engine struct {
		MAShort         int     `yaml:"ma_short" default:"20"`
		MALong          int     `yaml:"ma_long" default:"50"`
		RSIWindow       int     `yaml:"rsi_window" default:"14"`
		MACDFast        int     `yaml:"macd_fast" default:"12"`
		MACDSlow        int     `yaml:"macd_slow" default:"26"`
		MACDSignal      int     `yaml:"macd_signal" default:"9"`
		BollingerWindow int     `yaml:"bollinger_window" default:"20"`
		BollingerK      float64 `yaml:"bollinger_k" default:"2.0"`
		ATRWindow       int     `yaml:"atr_window" default:"14"`
	} `yaml:"engine"`
	Forecast struct {
		Horizon      int     `yaml:"horizon" default:"10"`
		LagDepth     int     `yaml:"lag_depth" default:"10"`
		Trees        int     `yaml:"trees" default:"100"`
		Seed         int64   `yaml:"seed" default:"42"`
		Strategy     string  `yaml:"strategy" default:"iterative"`
		ConfidenceZ  float64 `yaml:"confidence_z" default:"1.96"`
		TestFraction float64 `yaml:"test_fraction" default:"0.2"`
		MinTrainRows int     `yaml:"min_train_rows" default:"30"`
		MaxDepth     int     `yaml:"max_depth" default:"12"`
		MinLeaf      int     `yaml:"min_leaf" default:"2"`
	} `yaml:"forecast"`
	Ingest struct {
		FlushInterval time.Duration `yaml:"flush_interval"`
		BatchSize     int           `yaml:"batch_size" default:"500"`
		RetryBuffer   int           `yaml:"retry_buffer" default:"64"`
	} `yaml:"ingest"`
}

// Load parses the YAML file at path and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill zero fields from default tags
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv is Load plus environment overrides for the endpoints
// that differ between deploy targets.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Environment wins over the file for connection endpoints.
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BARS_TOPIC"); v != "" {
		c.Kafka.BarsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	e := c.Engine
	for name, w := range map[string]int{
		"ma_short": e.MAShort, "ma_long": e.MALong, "rsi_window": e.RSIWindow,
		"macd_fast": e.MACDFast, "macd_slow": e.MACDSlow, "macd_signal": e.MACDSignal,
		"bollinger_window": e.BollingerWindow, "atr_window": e.ATRWindow,
	} {
		if w < 1 {
			return fmt.Errorf("engine.%s must be >= 1, got %d", name, w)
		}
	}
	if e.MACDFast >= e.MACDSlow {
		return fmt.Errorf("engine.macd_fast must be < engine.macd_slow")
	}
	if e.BollingerK <= 0 {
		return fmt.Errorf("engine.bollinger_k must be > 0")
	}
	f := c.Forecast
	if f.Strategy != "single_shot" && f.Strategy != "iterative" {
		return fmt.Errorf("forecast.strategy must be 'single_shot' or 'iterative', got '%s'", f.Strategy)
	}
	if f.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be >= 1")
	}
	if f.LagDepth < 1 {
		return fmt.Errorf("forecast.lag_depth must be >= 1")
	}
	if f.Trees < 1 {
		return fmt.Errorf("forecast.trees must be >= 1")
	}
	if f.TestFraction <= 0 || f.TestFraction >= 1 {
		return fmt.Errorf("forecast.test_fraction must be in (0,1)")
	}
	if f.ConfidenceZ <= 0 {
		return fmt.Errorf("forecast.confidence_z must be > 0")
	}
	return nil
}
