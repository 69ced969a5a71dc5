package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"GymChat/tools/errs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	GymSourceMongo    = "mongo"
	GymSourcePostgres = "postgres"
	GymSourceStatic   = "static"

	EnvPrefix = "GYMCHAT"
)

type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	GRPC    GRPCConfig    `mapstructure:"grpc" yaml:"grpc"`
	Chat    ChatConfig    `mapstructure:"chat" yaml:"chat"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Mongo   MongoConfig   `mapstructure:"mongo" yaml:"mongo"`
	Gym     GymConfig     `mapstructure:"gym" yaml:"gym"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka" yaml:"kafka"`
	Nats    NatsConfig    `mapstructure:"nats" yaml:"nats"`
	Nacos   NacosConfig   `mapstructure:"nacos" yaml:"nacos"`
}

type AppConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	NodeID int64  `mapstructure:"node_id" yaml:"node_id"` // 雪花ID节点号 0~1023
}

type HTTPConfig struct {
	Port         int      `mapstructure:"port" yaml:"port"`
	WsPath       string   `mapstructure:"ws_path" yaml:"ws_path"`
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"` // 空 = 不校验
	Mode         string   `mapstructure:"mode" yaml:"mode"`                   // gin mode
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

type ChatConfig struct {
	EventTimeout  time.Duration `mapstructure:"event_timeout" yaml:"event_timeout"`
	PingInterval  time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PongWait      time.Duration `mapstructure:"pong_wait" yaml:"pong_wait"`
	WriteWait     time.Duration `mapstructure:"write_wait" yaml:"write_wait"`
	MaxFrameBytes int64         `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	SendQueue     int           `mapstructure:"send_queue" yaml:"send_queue"`
	EventQueue    int           `mapstructure:"event_queue" yaml:"event_queue"` // Kafka/NATS 事件出站队列
	PresenceTTL   time.Duration `mapstructure:"presence_ttl" yaml:"presence_ttl"`
}

type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Secret  string `mapstructure:"secret" yaml:"secret"`
	Alg     string `mapstructure:"alg" yaml:"alg"`
	Issuer  string `mapstructure:"issuer" yaml:"issuer"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
}

type MongoConfig struct {
	Uri         string   `mapstructure:"uri" yaml:"uri"`
	Address     []string `mapstructure:"address" yaml:"address"`
	Database    string   `mapstructure:"database" yaml:"database"`
	Username    string   `mapstructure:"username" yaml:"username"`
	Password    string   `mapstructure:"password" yaml:"password"`
	AuthSource  string   `mapstructure:"auth_source" yaml:"auth_source"`
	MaxPoolSize int      `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	MaxRetry    int      `mapstructure:"max_retry" yaml:"max_retry"`
}

type GymConfig struct {
	Source      string            `mapstructure:"source" yaml:"source"`
	Collection  string            `mapstructure:"collection" yaml:"collection"`
	PostgresDSN string            `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	CacheTTL    time.Duration     `mapstructure:"cache_ttl" yaml:"cache_ttl"` // 0 = 不缓存
	Static      []StaticGymConfig `mapstructure:"static" yaml:"static"`
}

type StaticGymConfig struct {
	ID      string `mapstructure:"id" yaml:"id"`
	Name    string `mapstructure:"name" yaml:"name"`
	OwnerID string `mapstructure:"owner_id" yaml:"owner_id"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	PoolSize int    `mapstructure:"pool_size" yaml:"pool_size"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers     []string `mapstructure:"brokers" yaml:"brokers"`
	Version     string   `mapstructure:"version" yaml:"version"`
	ChatTopic   string   `mapstructure:"chat_topic" yaml:"chat_topic"`
	GymTopic    string   `mapstructure:"gym_topic" yaml:"gym_topic"`
	GroupID     string   `mapstructure:"group_id" yaml:"group_id"`
	Compression string   `mapstructure:"compression" yaml:"compression"`
	Retries     int      `mapstructure:"retries" yaml:"retries"`
	// 以下用于启动时 EnsureTopics
	InitialOffset     string `mapstructure:"initial_offset" yaml:"initial_offset"` // oldest | newest
	Partitions        int32  `mapstructure:"partitions" yaml:"partitions"`
	ReplicationFactor int16  `mapstructure:"replication_factor" yaml:"replication_factor"`
}

type NatsConfig struct {
	Enabled       bool     `mapstructure:"enabled" yaml:"enabled"`
	Servers       []string `mapstructure:"servers" yaml:"servers"`
	Name          string   `mapstructure:"name" yaml:"name"`
	User          string   `mapstructure:"user" yaml:"user"`
	Password      string   `mapstructure:"password" yaml:"password"`
	RenameSubject string   `mapstructure:"rename_subject" yaml:"rename_subject"`
	EventSubject  string   `mapstructure:"event_subject" yaml:"event_subject"` // 前缀，实际 subject = 前缀.事件类型
	Queue         string   `mapstructure:"queue" yaml:"queue"`
}

type NacosConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"host" yaml:"host"`
	Port      uint64 `mapstructure:"port" yaml:"port"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	DataID    string `mapstructure:"data_id" yaml:"data_id"`
	Group     string `mapstructure:"group" yaml:"group"`
	Username  string `mapstructure:"username" yaml:"username"`
	Password  string `mapstructure:"password" yaml:"password"`
	// 服务注册：把本节点 HTTP 地址注册到 nacos naming
	Register    bool   `mapstructure:"register" yaml:"register"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	IP          string `mapstructure:"ip" yaml:"ip"` // 空 = 取本机第一个非回环 IPv4
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gym-chat")
	v.SetDefault("app.node_id", 1)
	v.SetDefault("http.port", 3002)
	v.SetDefault("http.ws_path", "/socket.io")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.allow_origins", []string{})
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.port", 50061)
	v.SetDefault("chat.event_timeout", 5*time.Second)
	v.SetDefault("chat.ping_interval", 25*time.Second)
	v.SetDefault("chat.pong_wait", 60*time.Second)
	v.SetDefault("chat.write_wait", 10*time.Second)
	v.SetDefault("chat.max_frame_bytes", 64*1024)
	v.SetDefault("chat.send_queue", 256)
	v.SetDefault("chat.event_queue", 1024)
	v.SetDefault("chat.presence_ttl", 90*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.alg", "HS256")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("storage.driver", StorageMongo)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "gym_market")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.max_pool_size", 50)
	v.SetDefault("mongo.max_retry", 3)
	v.SetDefault("gym.source", GymSourceMongo)
	v.SetDefault("gym.collection", "gyms")
	v.SetDefault("gym.postgres_dsn", "")
	v.SetDefault("gym.cache_ttl", time.Duration(0))
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.version", "2.1.0")
	v.SetDefault("kafka.chat_topic", "chat.events")
	v.SetDefault("kafka.gym_topic", "gym.events")
	v.SetDefault("kafka.group_id", "gym-chat")
	v.SetDefault("kafka.compression", "snappy")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("kafka.initial_offset", "newest")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.servers", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("nats.name", "gym-chat")
	v.SetDefault("nats.user", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.rename_subject", "gym.rename")
	v.SetDefault("nats.event_subject", "chat.events")
	v.SetDefault("nats.queue", "gym-chat")
	v.SetDefault("nacos.enabled", false)
	v.SetDefault("nacos.host", "127.0.0.1")
	v.SetDefault("nacos.port", 8848)
	v.SetDefault("nacos.data_id", "gym-chat.yaml")
	v.SetDefault("nacos.group", "DEFAULT_GROUP")
	v.SetDefault("nacos.register", false)
	v.SetDefault("nacos.service_name", "gym-chat")
}

// Load 读取配置：默认值 < 配置文件 < 环境变量（GYMCHAT_HTTP_PORT 这种）
// path 为空时按 ./config/config.yaml、./config.yaml 查找，找不到就只用默认值
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env 可选

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errs.WrapMsg(err, "read config", "path", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 校验并补齐零值（代码里直接构造 Config 时也能用）
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 3002
	}
	if c.HTTP.WsPath == "" {
		c.HTTP.WsPath = "/socket.io"
	}
	if !strings.HasPrefix(c.HTTP.WsPath, "/") {
		return errs.ErrArgs.WrapMsg("http.ws_path must start with /", "ws_path", c.HTTP.WsPath)
	}
	if c.Chat.EventTimeout <= 0 {
		c.Chat.EventTimeout = 5 * time.Second
	}
	if c.Chat.PingInterval <= 0 {
		c.Chat.PingInterval = 25 * time.Second
	}
	if c.Chat.PongWait <= c.Chat.PingInterval {
		c.Chat.PongWait = c.Chat.PingInterval * 2
	}
	if c.Chat.WriteWait <= 0 {
		c.Chat.WriteWait = 10 * time.Second
	}
	if c.Chat.MaxFrameBytes <= 0 {
		c.Chat.MaxFrameBytes = 64 * 1024
	}
	if c.Chat.SendQueue <= 0 {
		c.Chat.SendQueue = 256
	}
	if c.Chat.EventQueue <= 0 {
		c.Chat.EventQueue = 1024
	}
	if c.Chat.PresenceTTL <= 0 {
		c.Chat.PresenceTTL = 90 * time.Second
	}

	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = StorageMongo
	case StorageMongo, StorageMemory:
	default:
		return errs.ErrArgs.WrapMsg("unknown storage.driver", "driver", c.Storage.Driver)
	}

	switch c.Gym.Source {
	case "":
		c.Gym.Source = GymSourceMongo
	case GymSourceMongo, GymSourceStatic:
	case GymSourcePostgres:
		if c.Gym.PostgresDSN == "" {
			return errs.ErrArgs.WrapMsg("gym.postgres_dsn is required for postgres source")
		}
	default:
		return errs.ErrArgs.WrapMsg("unknown gym.source", "source", c.Gym.Source)
	}
	if c.Gym.Collection == "" {
		c.Gym.Collection = "gyms"
	}
	if c.Gym.Source == GymSourceMongo && c.Storage.Driver == StorageMemory {
		return errs.ErrArgs.WrapMsg("gym.source mongo needs storage.driver mongo")
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errs.ErrArgs.WrapMsg("auth.secret is required when auth is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errs.ErrArgs.WrapMsg("kafka.brokers is required when kafka is enabled")
	}
	if c.Nats.Enabled && len(c.Nats.Servers) == 0 {
		return errs.ErrArgs.WrapMsg("nats.servers is required when nats is enabled")
	}
	if c.App.NodeID < 0 || c.App.NodeID > 1023 {
		return errs.ErrArgs.WrapMsg("app.node_id out of range", "node_id", c.App.NodeID)
	}
	return nil
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTP.Port) }

func (c *Config) GRPCAddr() string { return fmt.Sprintf(":%d", c.GRPC.Port) }
