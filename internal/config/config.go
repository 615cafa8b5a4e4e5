package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath  = "./config/config.yml"
	placeholderSecret  = "change-me-in-production"
	ReleaseMode        = "release"
	StorageLocal       = "local"
	StorageS3          = "s3"
	FallbackAllow      = "allow"
	FallbackDeny       = "deny"
	defaultMaxAttempts = 3
)

type Config struct {
	Server      ServerConfig
	Postgres    DBConfig
	Redis       RedisConfig
	S3          S3Config
	Storage     StorageConfig
	Transcode   TranscodeConfig
	Worker      WorkerConfig
	Tokens      TokenConfig
	PageService PageServiceConfig
	Policy      PolicyConfig
	Managers    ManagersConfig
	Logger      Logger
}

type ServerConfig struct {
	AppVersion        string
	Port              string
	Mode              string
	Debug             bool
	SecretKey         string
	JwtSecretKey      string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	CtxDefaultTimeout time.Duration
	AllowOrigins      []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
	JobQueueKey   string
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type StorageConfig struct {
	Type    string
	Path    string
	WorkDir string
}

type TranscodeConfig struct {
	Presets        []string
	FFmpegPath     string
	FFprobePath    string
	SegmentSeconds int
	MaxUploadMB    int64
	MaxAttempts    int
	RetryDelay     time.Duration
}

type WorkerConfig struct {
	WorkerCount  int
	MaxCPUUsage  float64
	PollInterval time.Duration
}

type TokenConfig struct {
	StreamTTL time.Duration
	ViewerTTL time.Duration
}

type PageServiceConfig struct {
	URL         string
	TokenID     string
	TokenSecret string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// PolicyConfig maps a visibility tier to "allow" or "deny" when the page
// service cannot be reached.
type PolicyConfig struct {
	OnUnreachable map[string]string
}

type ManagersConfig struct {
	APIKeyHashes []string
	SessionTTL   time.Duration
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// ConfigPath returns CONFIG_PATH when set, the bundled config file otherwise.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.secretkey", placeholderSecret)
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 60*time.Second)
	v.SetDefault("server.ctxdefaulttimeout", 10*time.Second)
	v.SetDefault("server.alloworigins", []string{"*"})
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.pgdriver", "pgx")
	v.SetDefault("redis.redisaddr", "localhost:6379")
	v.SetDefault("redis.jobqueuekey", "transcode:jobs")
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.pooltimeout", 30)
	v.SetDefault("storage.type", StorageLocal)
	v.SetDefault("storage.path", "./data/videos")
	v.SetDefault("storage.workdir", os.TempDir())
	v.SetDefault("transcode.presets", []string{"720p"})
	v.SetDefault("transcode.ffmpegpath", "ffmpeg")
	v.SetDefault("transcode.ffprobepath", "ffprobe")
	v.SetDefault("transcode.segmentseconds", 6)
	v.SetDefault("transcode.maxuploadmb", 2048)
	v.SetDefault("transcode.maxattempts", defaultMaxAttempts)
	v.SetDefault("transcode.retrydelay", time.Minute)
	v.SetDefault("worker.workercount", 2)
	v.SetDefault("worker.maxcpuusage", 85.0)
	v.SetDefault("worker.pollinterval", 5*time.Second)
	v.SetDefault("tokens.streamttl", 4*time.Hour)
	v.SetDefault("tokens.viewerttl", 4*time.Hour)
	v.SetDefault("pageservice.timeout", 3*time.Second)
	v.SetDefault("pageservice.cachettl", time.Minute)
	v.SetDefault("policy.onunreachable", map[string]string{"page_protected": FallbackAllow})
	v.SetDefault("managers.sessionttl", 12*time.Hour)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filename)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) || os.IsNotExist(errors.Cause(err)) {
			return nil, errors.New("config file not found")
		}
		return nil, errors.Wrap(err, "read config")
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects configurations that would be unsafe to run.
func (c *Config) Validate() error {
	if c.Server.SecretKey == "" {
		return errors.New("server.secretKey must be set")
	}
	if c.Server.Mode == ReleaseMode && c.Server.SecretKey == placeholderSecret {
		return errors.New("server.secretKey must be changed in release mode")
	}
	if c.Server.JwtSecretKey == "" {
		c.Server.JwtSecretKey = c.Server.SecretKey
	}
	switch c.Storage.Type {
	case StorageLocal, StorageS3:
	default:
		return errors.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == StorageS3 && c.S3.Bucket == "" {
		return errors.New("s3.bucket is required for s3 storage")
	}
	for tier, fb := range c.Policy.OnUnreachable {
		if fb != FallbackAllow && fb != FallbackDeny {
			return errors.Errorf("policy.onUnreachable.%s must be allow or deny, got %q", tier, fb)
		}
	}
	if c.Transcode.MaxAttempts < 1 {
		c.Transcode.MaxAttempts = defaultMaxAttempts
	}
	return nil
}

// PageServiceConfigured reports whether page checks can be made at all.
func (c *Config) PageServiceConfigured() bool {
	return c.PageService.URL != "" && c.PageService.TokenID != "" && c.PageService.TokenSecret != ""
}
