package mongoutil

import (
	"context"
	"time"

	"GymChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// 将 Config 应用到 ClientOptions
func applyConfigToOptions(cfg *Config) (*options.ClientOptions, error) {
	var opts *options.ClientOptions

	switch {
	case cfg.Uri != "":
		// 优先使用完整 URI（可含参数 ?authSource=admin 等）
		opts = options.Client().ApplyURI(cfg.Uri)
	case len(cfg.Address) > 0:
		opts = options.Client().SetHosts(cfg.Address)
	default:
		return nil, errs.New("mongo uri or address is required")
	}

	opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	opts.SetRetryWrites(true)
	opts.SetServerSelectionTimeout(5 * time.Second)
	opts.SetAppName("gym-chat")

	// 单独给了用户名/密码时覆盖 URI 中的认证
	if cfg.Username != "" {
		authSource := cfg.AuthSource
		if authSource == "" {
			authSource = cfg.Database
		}
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: authSource,
		})
	}
	return opts, opts.Validate()
}

type Client struct {
	cli *mongo.Client
	db  *mongo.Database
}

func (c *Client) GetDB() *mongo.Database { return c.db }

func (c *Client) Disconnect(ctx context.Context) error { return c.cli.Disconnect(ctx) }

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx, nil) }

// NewMongoDB initializes a new MongoDB connection.
func NewMongoDB(ctx context.Context, config *Config) (*Client, error) {
	if err := config.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	opts, err := applyConfigToOptions(config)
	if err != nil {
		return nil, errs.WrapMsg(err, "invalid mongo options", "URI", config.Uri)
	}

	var cli *mongo.Client
	for i := 0; i < config.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err != nil && shouldRetry(ctx, err) {
			time.Sleep(time.Second / 2)
			continue
		}
		break
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "failed to connect to MongoDB", "URI", config.Uri)
	}
	return &Client{cli: cli, db: cli.Database(config.Database)}, nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// Check 连一次再断开，启动前自检用
func Check(ctx context.Context, config *Config) error {
	c, err := NewMongoDB(ctx, config)
	if err != nil {
		return err
	}
	return c.Disconnect(ctx)
}

// IsDuplicateKey 并发 upsert 撞唯一索引时返回 E11000
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
