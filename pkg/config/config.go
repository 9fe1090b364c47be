package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SweepLab/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Mode        string `yaml:"mode" default:"batch" validate:"oneof=batch serve"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`

	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		RPS     float64       `yaml:"rps" default:"5" validate:"gt=0"`
		Burst   int           `yaml:"burst" default:"20" validate:"gte=1"`
		Idle    time.Duration `yaml:"idle" default:"10m"`
	} `yaml:"rate_limit"`

	Sweep struct {
		SingleThreaded    bool          `yaml:"single_threaded"`
		Threads           int           `yaml:"threads" validate:"gte=0,lte=1024"`
		ProgressStride    uint64        `yaml:"progress_stride" default:"500"`
		AnnualizationDays float64       `yaml:"annualization_days" default:"252" validate:"gt=0"`
		JobRetention      time.Duration `yaml:"job_retention" default:"1h"`
		Holidays          []string      `yaml:"holidays"`

		Symbol        string `yaml:"symbol"`
		Field         string `yaml:"field" default:"close" validate:"oneof=open high low close volume"`
		From          string `yaml:"from"`
		To            string `yaml:"to"`
		IntervalMin   uint64 `yaml:"interval_min" default:"2"`
		IntervalMax   uint64 `yaml:"interval_max" default:"59"`
		IntervalStep  uint64 `yaml:"interval_step" default:"1"`
		StartFrom     string `yaml:"start_from" default:"08:00:00"`
		StartTo       string `yaml:"start_to" default:"10:30:00"`
		StartStep     uint64 `yaml:"start_step" default:"1"`
		SessionEnd    string `yaml:"session_end" default:"17:00:00"`
		Pairing       string `yaml:"pairing" default:"last_start_wins"`
		FailurePolicy string `yaml:"failure_policy" default:"fail_fast"`
	} `yaml:"sweep"`

	Series struct {
		Source    string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		Path      string `yaml:"path"`
		Timeframe string `yaml:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
		Timezone  string `yaml:"timezone" default:"UTC"`
	} `yaml:"series"`

	Events struct {
		Enabled    bool     `yaml:"enabled"`
		Path       string   `yaml:"path"`
		Mode       string   `yaml:"mode" default:"mask" validate:"oneof=mask filter"`
		Impacts    []int    `yaml:"impacts" validate:"dive,gte=0,lte=3"`
		Currencies []string `yaml:"currencies"`
		BackDays   int      `yaml:"back_days" validate:"gte=0,lte=60"`
		FwdDays    int      `yaml:"fwd_days" validate:"gte=0,lte=60"`
	} `yaml:"events"`

	Output struct {
		CSV        string `yaml:"csv"`
		ClickHouse bool   `yaml:"clickhouse"`
		Kafka      bool   `yaml:"kafka"`
	} `yaml:"output"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequestTopic string   `yaml:"request_topic" default:"sweep.requests"`
		ResultTopic  string   `yaml:"result_topic" default:"sweep.results"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts     int           `yaml:"max_attempts" default:"3"`
			Linger          time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes      int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize       int           `yaml:"batch_size" default:"500"`
			WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
			AutoCreateTopic bool          `yaml:"auto_create_topic"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"sweeplab"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"sweep.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"sweeplab"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		InitSchema       bool          `yaml:"init_schema" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`

	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		TTL     time.Duration `yaml:"ttl" default:"24h"`
		LockTTL time.Duration `yaml:"lock_ttl" default:"30m"`
		Memory  struct {
			MaxSize int           `yaml:"max_size" default:"256"`
			Cleanup time.Duration `yaml:"cleanup" default:"5m"`
		} `yaml:"memory"`
		Redis struct {
			Addr        string        `yaml:"addr" default:"localhost:6379"`
			Password    string        `yaml:"password"`
			DB          int           `yaml:"db"`
			Prefix      string        `yaml:"prefix" default:"sweeplab"`
			PoolSize    int           `yaml:"pool_size" default:"10"`
			MinIdle     int           `yaml:"min_idle" default:"2"`
			PoolTimeout time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MODE"); v != "" {
		c.Mode = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.Sweep.SingleThreaded = util.ParseBoolDefault(getenv("SWEEP_SINGLE_THREADED"), c.Sweep.SingleThreaded)
	c.Sweep.Threads = util.ParseIntDefault(getenv("SWEEP_THREADS"), c.Sweep.Threads)
	if v := getenv("SERIES_PATH"); v != "" {
		c.Series.Path = v
	}
	if v := getenv("OUTPUT_CSV"); v != "" {
		c.Output.CSV = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Series.Timezone); err != nil {
		return fmt.Errorf("series.timezone: %w", err)
	}
	if _, err := util.ParseDates(c.Sweep.Holidays); err != nil {
		return fmt.Errorf("sweep.holidays: %w", err)
	}
	switch c.Series.Source {
	case "csv":
		if c.Series.Path == "" {
			return fmt.Errorf("series.path is required for the csv source")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse source")
		}
		if c.Mode == "batch" && c.Sweep.Symbol == "" {
			return fmt.Errorf("sweep.symbol is required for the clickhouse source")
		}
	}
	if c.Events.Enabled && c.Events.Path == "" {
		return fmt.Errorf("events.path is required when events are enabled")
	}
	if c.Output.ClickHouse && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse output")
	}
	if (c.Output.Kafka || c.Kafka.Consumer.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is used")
	}
	if c.Mode == "batch" && !c.HasOutput() {
		return fmt.Errorf("batch mode needs at least one output")
	}
	return nil
}

// HasOutput reports whether any result sink is configured.
func (c *Config) HasOutput() bool {
	return c.Output.CSV != "" || c.Output.ClickHouse || c.Output.Kafka
}

// UsesClickHouse reports whether a ClickHouse connection is needed.
func (c *Config) UsesClickHouse() bool {
	return c.Series.Source == "clickhouse" || c.Output.ClickHouse
}
