package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ops      OpsConfig      `yaml:"ops"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// OpsConfig はヘルスチェックとメトリクスを公開する HTTP サーバーの設定です。
type OpsConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	// SlowQueryThreshold を超えたクエリは警告ログに出力されます。0 の場合は出力しません。
	SlowQueryThreshold    time.Duration `yaml:"-"`
	SlowQueryThresholdRaw string        `yaml:"slow_query_threshold"`
}

// RedisConfig は Redis 接続に関する設定です。URL が空の場合 Redis は使用しません。
type RedisConfig struct {
	URL             string        `yaml:"url"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	DialTimeout     time.Duration `yaml:"-"`
	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
	DialTimeoutRaw  string        `yaml:"dial_timeout"`
	ReadTimeoutRaw  string        `yaml:"read_timeout"`
	WriteTimeoutRaw string        `yaml:"write_timeout"`
}

// KafkaConfig はドメインイベントの配信先に関する設定です。Brokers が空の場合は配信しません。
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

// OutboxConfig はアウトボックス中継ワーカーの設定です。
type OutboxConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BatchSize       int           `yaml:"batch_size"`
	PollInterval    time.Duration `yaml:"-"`
	LeaseTTL        time.Duration `yaml:"-"`
	PollIntervalRaw string        `yaml:"poll_interval"`
	LeaseTTLRaw     string        `yaml:"lease_ttl"`
	LeaseKey        string        `yaml:"lease_key"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Ops.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Redis.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Kafka.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Outbox.validateAndNormalize(); err != nil {
		return err
	}
	if c.Outbox.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: outbox.enabled requires kafka.brokers")
	}
	return c.Logging.validateAndNormalize()
}

func (o *OpsConfig) validateAndNormalize() error {
	if o.ListenAddr == "" {
		o.ListenAddr = ":8080"
	}
	timeout, err := parseDurationAllowEmpty(o.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: ops.shutdown_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	o.ShutdownTimeout = timeout
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	slow, err := parseDurationAllowEmpty(d.SlowQueryThresholdRaw)
	if err != nil {
		return fmt.Errorf("config: database.slow_query_threshold: %w", err)
	}
	d.SlowQueryThreshold = slow

	return nil
}

func (r *RedisConfig) validateAndNormalize() error {
	if r.URL == "" {
		return nil
	}
	if r.PoolSize == 0 {
		r.PoolSize = 10
	}

	var err error
	if r.DialTimeout, err = parseDurationAllowEmpty(r.DialTimeoutRaw); err != nil {
		return fmt.Errorf("config: redis.dial_timeout: %w", err)
	}
	if r.ReadTimeout, err = parseDurationAllowEmpty(r.ReadTimeoutRaw); err != nil {
		return fmt.Errorf("config: redis.read_timeout: %w", err)
	}
	if r.WriteTimeout, err = parseDurationAllowEmpty(r.WriteTimeoutRaw); err != nil {
		return fmt.Errorf("config: redis.write_timeout: %w", err)
	}
	return nil
}

func (k *KafkaConfig) validateAndNormalize() error {
	brokers := k.Brokers[:0]
	for _, b := range k.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	k.Brokers = brokers
	if len(k.Brokers) == 0 {
		return nil
	}
	if k.Topic == "" {
		return fmt.Errorf("config: kafka.topic must be set when kafka.brokers is configured")
	}
	if k.ClientID == "" {
		k.ClientID = "unifiedcontract"
	}
	return nil
}

func (o *OutboxConfig) validateAndNormalize() error {
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("config: outbox.batch_size must be positive")
	}

	interval, err := parseDurationAllowEmpty(o.PollIntervalRaw)
	if err != nil {
		return fmt.Errorf("config: outbox.poll_interval: %w", err)
	}
	if interval == 0 {
		interval = time.Second
	}
	o.PollInterval = interval

	ttl, err := parseDurationAllowEmpty(o.LeaseTTLRaw)
	if err != nil {
		return fmt.Errorf("config: outbox.lease_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	o.LeaseTTL = ttl

	if o.LeaseKey == "" {
		o.LeaseKey = "unifiedcontract:outbox-relay"
	}
	return nil
}

func (l *LoggingConfig) validateAndNormalize() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	switch l.Level {
	case "":
		l.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not supported", l.Level)
	}

	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	switch l.Format {
	case "":
		l.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: logging.format %q is not supported", l.Format)
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
