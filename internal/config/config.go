package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/PapNorbert/WatchWise/pkg/config"
	"github.com/PapNorbert/WatchWise/pkg/database"
	"github.com/PapNorbert/WatchWise/pkg/log"
	"github.com/PapNorbert/WatchWise/pkg/pubsub"
	"github.com/PapNorbert/WatchWise/pkg/storage"
)

// Store drivers.
const (
	StoreDriverGorm   = "gorm"
	StoreDriverMemory = "memory"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Database  database.Config
	Store     StoreConfig
	Chat      ChatConfig
	PubSub    pubsub.Config
	Events    EventsConfig
	Archive   ArchiveConfig
	Log       log.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type StoreConfig struct {
	Driver      string // gorm, memory
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type ChatConfig struct {
	InstanceID    string `mapstructure:"instance_id"`
	MaxBodyLength int    `mapstructure:"max_body_length"`
}

// EventsConfig configures the committed-message feed.
type EventsConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type ArchiveConfig struct {
	Storage   storage.Config
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	relay := pubsub.DefaultConfig()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 16384)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "watchwise")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "watchwise")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/watchwise.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("store.driver", StoreDriverGorm)
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("chat.instance_id", "")
	v.SetDefault("chat.max_body_length", 2000)
	v.SetDefault("pubsub.driver", relay.Driver)
	v.SetDefault("pubsub.redis.address", relay.Redis.Address)
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", relay.Redis.PoolSize)
	v.SetDefault("pubsub.redis.read_timeout", relay.Redis.ReadTimeout.String())
	v.SetDefault("pubsub.redis.write_timeout", relay.Redis.WriteTimeout.String())
	v.SetDefault("pubsub.kafka.brokers", relay.Kafka.Brokers)
	v.SetDefault("pubsub.kafka.group_id", relay.Kafka.GroupID)
	v.SetDefault("pubsub.kafka.partitions", relay.Kafka.Partitions)
	v.SetDefault("pubsub.kafka.topics", relay.Kafka.Topics)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", "localhost:9092")
	v.SetDefault("events.topic", "watch-group-chat-messages")
	v.SetDefault("events.partitions", 8)
	v.SetDefault("archive.storage.driver", "local")
	v.SetDefault("archive.storage.local.base_path", "./data/archive")
	v.SetDefault("archive.storage.s3.endpoint", "")
	v.SetDefault("archive.storage.s3.region", "us-east-1")
	v.SetDefault("archive.storage.s3.bucket", "")
	v.SetDefault("archive.storage.s3.access_key_id", "")
	v.SetDefault("archive.storage.s3.secret_access_key", "")
	v.SetDefault("archive.storage.s3.use_path_style", false)
	v.SetDefault("archive.storage.s3.public_url", "")
	v.SetDefault("archive.url_expiry", "15m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "watchwise-chat-gateway")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("grpc.port", "GRPC_PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("chat.instance_id", "INSTANCE_ID")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("events.brokers", "KAFKA_BROKERS")
	v.BindEnv("events.topic", "EVENTS_TOPIC")
	v.BindEnv("archive.storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("archive.storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("archive.storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 30*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.PubSub.Redis.ReadTimeout = parseDuration(v, "pubsub.redis.read_timeout", relay.Redis.ReadTimeout)
	cfg.PubSub.Redis.WriteTimeout = parseDuration(v, "pubsub.redis.write_timeout", relay.Redis.WriteTimeout)
	cfg.Archive.URLExpiry = parseDuration(v, "archive.url_expiry", 15*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
