package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/configparser"
)

// Flags
var (
	modeFlag = flag.String("mode", string(types.RoomService), "application mode")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidMode     = errors.New("invalid mode")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		HTTP        HTTPConfig
		Database    DatabaseConfig
		RabbitMQ    RabbitMQConfig
		Redis       RedisConfig
		Auth        Auth
		Room        RoomConfig
		Tracker     TrackerConfig
		Compass     CompassConfig
		Declination DeclinationConfig
		Cloudinary  CloudinaryConfig
	}

	HTTPConfig struct {
		Port              string        `env:"HTTP_PORT" default:"3000"`
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
		ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"compass_user"`
		Password string `env:"DATABASE_PASSWORD" default:"compass_pass"`
		Database string `env:"DATABASE_DATABASE" default:"compass_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		// Without RabbitMQ change events stay inside this instance.
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"true"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		PublishAttempts int           `env:"RABBITMQ_PUBLISH_ATTEMPTS" default:"3"`
		RetryInterval   time.Duration `env:"RABBITMQ_RETRY_INTERVAL" default:"500ms"`
	}

	RedisConfig struct {
		Enabled  bool   `env:"REDIS_ENABLED" default:"true"`
		Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
	}

	Auth struct {
		SessionTokenTTL time.Duration `env:"AUTH_SESSION_TOKEN_TTL" default:"720h"`
		JWTSecret       string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	RoomConfig struct {
		CodeAttempts int   `env:"ROOM_CODE_ATTEMPTS" default:"50"`
		MaxIconBytes int64 `env:"ROOM_MAX_ICON_BYTES" default:"2097152"`
	}

	TrackerConfig struct {
		Threshold       float64       `env:"TRACKER_THRESHOLD" default:"5"`
		Interval        time.Duration `env:"TRACKER_INTERVAL" default:"8s"`
		DebounceWait    time.Duration `env:"TRACKER_DEBOUNCE_WAIT" default:"8s"`
		DebounceMaxWait time.Duration `env:"TRACKER_DEBOUNCE_MAX_WAIT" default:"16s"`
		RetryInitial    time.Duration `env:"TRACKER_RETRY_INITIAL" default:"200ms"`
		RetryMaxElapsed time.Duration `env:"TRACKER_RETRY_MAX_ELAPSED" default:"5s"`
		RetryAttempts   int           `env:"TRACKER_RETRY_ATTEMPTS" default:"3"`
		ClientsWait     time.Duration `env:"TRACKER_CLIENTS_WAIT" default:"1s"`
		ClientsMaxWait  time.Duration `env:"TRACKER_CLIENTS_MAX_WAIT" default:"3s"`
	}

	CompassConfig struct {
		SmoothingWeight    float64 `env:"COMPASS_SMOOTHING_WEIGHT" default:"0.1"`
		MaxEventsPerSecond float64 `env:"COMPASS_MAX_EVENTS_PER_SECOND" default:"20"`
		Burst              int     `env:"COMPASS_BURST" default:"5"`
		DeclinationRefresh float64 `env:"COMPASS_DECLINATION_REFRESH" default:"500"`
	}

	DeclinationConfig struct {
		BaseURL  string        `env:"DECLINATION_BASE_URL"`
		APIKey   string        `env:"DECLINATION_API_KEY"`
		Timeout  time.Duration `env:"DECLINATION_TIMEOUT" default:"5s"`
		CacheTTL time.Duration `env:"DECLINATION_CACHE_TTL" default:"720h"`
		Grid     float64       `env:"DECLINATION_GRID" default:"0.1"`
	}

	// CloudinaryConfig is optional: without a cloud name icon uploads are disabled.
	CloudinaryConfig struct {
		CloudName string `env:"CLOUDINARY_CLOUD_NAME"`
		APIKey    string `env:"CLOUDINARY_API_KEY"`
		APISecret string `env:"CLOUDINARY_API_SECRET"`
		Folder    string `env:"CLOUDINARY_FOLDER" default:"room-compass/icons"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (int32, int32, time.Duration, time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)
	if cfg.Mode != types.RoomService {
		return fmt.Errorf("%w: %s", ErrInvalidMode, cfg.Mode)
	}

	return nil
}
