package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string            `yaml:"git_commit" envconfig:"BCAT_GIT_COMMIT" json:"git_commit"`
	GitTag             string            `yaml:"git_tag" envconfig:"BCAT_GIT_TAG" json:"git_tag"`
	BuildTime          string            `yaml:"build_time" envconfig:"BCAT_BUILD_TIME" json:"build_time"`
	IsProduction       bool              `yaml:"is_production" envconfig:"BCAT_IS_PRODUCTION" json:"is_production"`
	LogLevel           zapcore.Level     `yaml:"log_level" envconfig:"BCAT_LOG_LEVEL" json:"log_level"`
	LogFolder          string            `yaml:"log_folder" envconfig:"BCAT_LOG_FOLDER" json:"log_folder"`
	LogMaxSize         int               `yaml:"log_max_size" envconfig:"BCAT_LOG_MAX_SIZE" json:"log_max_size"`
	ProfilerEnable     bool              `yaml:"profiler_enable" envconfig:"BCAT_PROFILER_ENABLE" json:"profiler_enable"`
	OpsEndpointsEnable bool              `yaml:"ops_endpoints_enable" envconfig:"BCAT_OPS_ENDPOINTS_ENABLE" json:"ops_endpoints_enable"`
	Server             ServerConfig      `yaml:"server" json:"server"`
	Database           DatabaseConfig    `yaml:"database" json:"database"`
	Redis              RedisConfig       `yaml:"redis" json:"redis"`
	BoltDB             BoltDBConfig      `yaml:"boltdb" json:"boltdb"`
	Mirror             MirrorConfig      `yaml:"mirror" json:"mirror"`
	Summarizer         SummarizerConfig  `yaml:"summarizer" json:"summarizer"`
	Recommender        RecommenderConfig `yaml:"recommender" json:"recommender"`
	RateLimit          RateLimitConfig   `yaml:"ratelimit" json:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BCAT_SERVER_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"BCAT_SERVER_PORT" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BCAT_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BCAT_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BCAT_SERVER_REQUEST_TIMEOUT" json:"request_timeout"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BCAT_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
}

// DatabaseConfig describes the relational database holding the catalog.
// Driver is one of `sqlite3`, `postgres` or `mysql`.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"BCAT_DATABASE_DRIVER" json:"driver"`
	DSN             string        `yaml:"dsn" envconfig:"BCAT_DATABASE_DSN" json:"-"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"BCAT_DATABASE_MAX_OPEN_CONNS" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"BCAT_DATABASE_MAX_IDLE_CONNS" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"BCAT_DATABASE_CONN_MAX_LIFETIME" json:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout" envconfig:"BCAT_DATABASE_PING_TIMEOUT" json:"ping_timeout"`
	Migrate         bool          `yaml:"migrate" envconfig:"BCAT_DATABASE_MIGRATE" json:"migrate"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BCAT_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"BCAT_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BCAT_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BCAT_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BCAT_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BCAT_REDIS_POOL_SIZE" json:"pool_size"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BCAT_REDIS_POOL_TIMEOUT" json:"pool_timeout"`
	Username      string        `yaml:"username" envconfig:"BCAT_REDIS_USERNAME" json:"-"`
	Password      string        `yaml:"password" envconfig:"BCAT_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BCAT_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BCAT_BOLTDB_FILE_PATH" json:"filepath"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BCAT_BOLTDB_TIMEOUT" json:"timeout"`
	BucketName string        `yaml:"bucket_name" envconfig:"BCAT_BOLTDB_BUCKET_NAME" json:"bucket_name"`
}

// MirrorConfig enables the redis queue feeding the boltdb snapshot of the catalog.
type MirrorConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"BCAT_MIRROR_ENABLED" json:"enabled"`
}

type SummarizerConfig struct {
	Endpoint       string        `yaml:"endpoint" envconfig:"BCAT_SUMMARIZER_ENDPOINT" json:"endpoint"`
	Model          string        `yaml:"model" envconfig:"BCAT_SUMMARIZER_MODEL" json:"model"`
	Token          string        `yaml:"token" envconfig:"BCAT_SUMMARIZER_TOKEN" json:"-"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"BCAT_SUMMARIZER_TIMEOUT" json:"timeout"`
	Prefix         string        `yaml:"prefix" envconfig:"BCAT_SUMMARIZER_PREFIX" json:"prefix"`
	MaxInputTokens int           `yaml:"max_input_tokens" envconfig:"BCAT_SUMMARIZER_MAX_INPUT_TOKENS" json:"max_input_tokens"`
	MinLength      int           `yaml:"min_length" envconfig:"BCAT_SUMMARIZER_MIN_LENGTH" json:"min_length"`
	MaxLength      int           `yaml:"max_length" envconfig:"BCAT_SUMMARIZER_MAX_LENGTH" json:"max_length"`
	NumBeams       int           `yaml:"num_beams" envconfig:"BCAT_SUMMARIZER_NUM_BEAMS" json:"num_beams"`
	LengthPenalty  float64       `yaml:"length_penalty" envconfig:"BCAT_SUMMARIZER_LENGTH_PENALTY" json:"length_penalty"`
	EarlyStopping  bool          `yaml:"early_stopping" envconfig:"BCAT_SUMMARIZER_EARLY_STOPPING" json:"early_stopping"`
	Warmup         bool          `yaml:"warmup" envconfig:"BCAT_SUMMARIZER_WARMUP" json:"warmup"`
}

type RecommenderConfig struct {
	Trees int   `yaml:"trees" envconfig:"BCAT_RECOMMENDER_TREES" json:"trees"`
	Seed  int64 `yaml:"seed" envconfig:"BCAT_RECOMMENDER_SEED" json:"seed"`
}

// RateLimitConfig bounds the ML endpoints. A non-positive RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" envconfig:"BCAT_RATELIMIT_RPS" json:"rps"`
	Burst int     `yaml:"burst" envconfig:"BCAT_RATELIMIT_BURST" json:"burst"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	switch config.Database.Driver {
	case "":
		config.Database.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if len(config.Database.DSN) == 0 {
		return errors.New("make sure to set a valid database dsn in configuration file")
	}

	if config.Mirror.Enabled {
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port when the mirror is enabled")
		}
		if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file and bucket when the mirror is enabled")
		}
	}

	if len(config.Summarizer.Endpoint) == 0 {
		return errors.New("make sure to set a valid summarizer endpoint in configuration file")
	}

	setDefaults(config)
	return nil
}

// setDefaults fills zero values with the service defaults.
func setDefaults(config *Config) {
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}
	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 60 * time.Second
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}
	if config.Database.PingTimeout <= 0 {
		config.Database.PingTimeout = 5 * time.Second
	}

	sc := &config.Summarizer
	if len(sc.Prefix) == 0 {
		sc.Prefix = "summarize: "
	}
	if sc.MaxInputTokens <= 0 {
		sc.MaxInputTokens = 512
	}
	if sc.MinLength <= 0 {
		sc.MinLength = 30
	}
	if sc.MaxLength <= 0 {
		sc.MaxLength = 150
	}
	if sc.NumBeams <= 0 {
		sc.NumBeams = 4
	}
	if sc.LengthPenalty == 0 {
		sc.LengthPenalty = 2.0
	}
	if sc.Timeout <= 0 {
		sc.Timeout = 30 * time.Second
	}

	rc := &config.Recommender
	if rc.Trees <= 0 {
		rc.Trees = 100
	}
	if rc.Seed == 0 {
		rc.Seed = 42
	}
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. The file is optional.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BCAT`.
	err = LoadConfigEnvs("BCAT", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
