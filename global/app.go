package global

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"GymChat/config"
	"GymChat/data/database/mgo/mongoutil"
	"GymChat/logger"
	"GymChat/middleware"
	midsec "GymChat/middleware/security"
	"GymChat/module/chat/api"
	"GymChat/module/chat/service"
	"GymChat/module/chat/store"
	gymmodel "GymChat/module/gym/model"
	gymstore "GymChat/module/gym/store"
	"GymChat/service/chat"
	"GymChat/service/chat/handlers"
	"GymChat/service/events"
	"GymChat/service/health"
	"GymChat/service/kafka"
	mgoSrv "GymChat/service/mgo"
	"GymChat/service/nacos"
	"GymChat/service/natsx"
	"GymChat/service/storage"
	storageredis "GymChat/service/storage/redis"
	"GymChat/tools/errs"
	"GymChat/tools/ids"
	"GymChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const mongoReadyTimeout = 30 * time.Second

// App 进程内所有组件；Boot 组装，Run 启动监听，Shutdown 逆序关闭
type App struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	mongo    *mgoSrv.MongoManager
	pg       *pgxpool.Pool
	rdb      *redis.Client
	nats     *natsx.NatsManager
	kafka    *kafka.Client
	producer *kafka.AsyncProducer
	group    *kafka.ConsumerGroup
	sink     *events.AsyncSink // 所有出站事件都经过它

	svc    *service.ChatService
	reg    *chat.Registry
	chat   *chat.Server
	health *health.Server
	engine *gin.Engine
	http   *http.Server
	naming *nacos.Registry
}

// Boot 按配置连接依赖并组装服务；失败时已打开的资源会被释放
func Boot(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg, health: health.New()}
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer func() {
		if err != nil {
			a.closeDeps()
		}
	}()

	ids.SetNodeID(cfg.App.NodeID)

	st, db, err := a.bootStore()
	if err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		if a.rdb, err = storageredis.NewClient(a.ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	var opts []service.Option
	dir, err := a.bootGymDirectory(db)
	if err != nil {
		return nil, err
	}
	if a.rdb != nil && cfg.Gym.CacheTTL > 0 {
		cached := gymstore.NewCachedDirectory(dir, a.rdb, cfg.Gym.CacheTTL)
		dir = cached
		opts = append(opts, service.WithGymCache(cached))
	}

	sinks, err := a.bootEventSinks()
	if err != nil {
		return nil, err
	}
	if len(sinks) > 0 {
		a.sink = events.NewAsyncSink(sinks, cfg.Chat.EventQueue, cfg.Chat.EventTimeout)
		opts = append(opts, service.WithEventSink(a.sink))
	}
	a.svc = service.New(st, dir, opts...)

	if err := a.bootRenameListeners(); err != nil {
		return nil, err
	}

	if a.rdb != nil {
		a.reg = chat.NewRegistry(storage.NewPresenceMirror(a.rdb, NodeKey(cfg.App.Name, cfg.App.NodeID), cfg.Chat.PresenceTTL))
	} else {
		a.reg = chat.NewRegistry(nil)
	}
	chatOpts := chat.OptionsFromConfig(cfg)
	a.chat = chat.NewServer(chatOpts, a.reg, a.svc)
	handlers.RegisterAll(a.chat)

	a.engine = a.buildEngine(chatOpts)
	a.http = &http.Server{Addr: cfg.HTTPAddr(), Handler: a.engine, ReadHeaderTimeout: 10 * time.Second}

	logger.Info("app booted",
		zap.String("storage", cfg.Storage.Driver), zap.String("gym_source", cfg.Gym.Source),
		zap.Bool("redis", a.rdb != nil), zap.Bool("kafka", a.kafka != nil), zap.Bool("nats", a.nats != nil),
		zap.Strings("events", a.chat.Disp().Events()))
	return a, nil
}

func (a *App) bootStore() (store.ConversationStore, *mongo.Database, error) {
	if a.cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("memory storage: history is lost on restart")
		return store.NewMemoryStore(), nil, nil
	}

	mc := a.cfg.Mongo
	a.mongo = mgoSrv.NewManager(&mongoutil.Config{
		Uri:         mc.Uri,
		Address:     mc.Address,
		Database:    mc.Database,
		Username:    mc.Username,
		Password:    mc.Password,
		AuthSource:  mc.AuthSource,
		MaxPoolSize: mc.MaxPoolSize,
		MaxRetry:    mc.MaxRetry,
	})
	a.health.Set("mongo", false)
	a.mongo.OnStatus(func(ok bool) { a.health.Set("mongo", ok) })
	a.mongo.StartAsync(a.ctx)

	wctx, cancel := context.WithTimeout(a.ctx, mongoReadyTimeout)
	defer cancel()
	if err := a.mongo.WaitReady(wctx); err != nil {
		return nil, nil, err
	}
	db := a.mongo.MustDB()
	st := store.NewMongoStore(db)
	if err := st.EnsureIndexes(wctx); err != nil {
		return nil, nil, errs.WrapMsg(err, "ensure chat indexes")
	}
	return st, db, nil
}

func (a *App) bootGymDirectory(db *mongo.Database) (gymstore.Directory, error) {
	gc := a.cfg.Gym
	switch gc.Source {
	case config.GymSourcePostgres:
		pool, err := gymstore.OpenPostgres(a.ctx, gc.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.pg = pool
		return gymstore.NewPostgresDirectory(pool), nil
	case config.GymSourceStatic:
		refs := make([]gymmodel.GymRef, 0, len(gc.Static))
		for _, g := range gc.Static {
			refs = append(refs, gymmodel.GymRef{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID})
		}
		return gymstore.NewStaticDirectory(refs...), nil
	default:
		return gymstore.NewMongoDirectory(db, gc.Collection), nil
	}
}

func (a *App) bootEventSinks() (events.MultiSink, error) {
	var sinks events.MultiSink

	if kc := a.cfg.Kafka; kc.Enabled {
		appCfg, err := kafka.FromConfig(kc)
		if err != nil {
			return nil, err
		}
		if a.kafka, err = kafka.NewClient(appCfg); err != nil {
			return nil, err
		}
		if err := a.kafka.EnsureTopics(kc.ChatTopic, kc.GymTopic); err != nil {
			return nil, err
		}
		if a.producer, err = kafka.NewAsyncProducerFromClient(a.kafka); err != nil {
			return nil, err
		}
		sinks = append(sinks, events.NewKafkaSink(a.producer, kc.ChatTopic))
	}

	if nc := a.cfg.Nats; nc.Enabled {
		m, err := natsx.NewNatsManager(natsx.NatsxConfig{
			Servers:        nc.Servers,
			Name:           nc.Name,
			User:           nc.User,
			Password:       nc.Password,
			HandlerTimeout: a.cfg.Chat.EventTimeout,
		})
		if err != nil {
			return nil, errs.WrapMsg(err, "nats connect")
		}
		a.nats = m
		if err := events.RegisterEventRoutes(m, nc.EventSubject); err != nil {
			return nil, err
		}
		sinks = append(sinks, events.NewNatsSink(m))
	}
	return sinks, nil
}

// bootRenameListeners gym 管理端的两个改名入口：NATS request/reply 和 Kafka gym.events
func (a *App) bootRenameListeners() error {
	if a.nats != nil {
		nc := a.cfg.Nats
		if err := events.RegisterRenameRoute(a.nats, nc.RenameSubject, nc.Queue); err != nil {
			return err
		}
		if err := a.nats.Respond(events.BizRename, events.RenameResponder(a.svc), events.RenameErrorReply); err != nil {
			return errs.WrapMsg(err, "nats respond", "subject", nc.RenameSubject)
		}
	}
	if a.kafka != nil {
		reg := kafka.NewHandlerRegistry()
		reg.Register(a.cfg.Kafka.GymTopic, events.GymEventHandler(a.svc))
		group, err := kafka.NewConsumerGroup(a.kafka.AppConfig(), reg)
		if err != nil {
			return errs.WrapMsg(err, "kafka consumer group")
		}
		a.group = group
	}
	return nil
}

func (a *App) buildEngine(chatOpts chat.Options) *gin.Engine {
	if a.cfg.HTTP.Mode != "" {
		gin.SetMode(a.cfg.HTTP.Mode)
	}
	r := gin.New()
	r.Use(middleware.AccessLog(), middleware.Recovery())

	mids := middleware.NewManager()
	mids.Add(middleware.Origin(a.cfg.HTTP.AllowOrigins))
	r.Use(mids.Use())

	r.GET(a.cfg.HTTP.WsPath, a.chat.HandleWS)

	var auth gin.HandlerFunc
	if chatOpts.Auth != nil {
		auth = midsec.Middleware(*chatOpts.Auth)
	}
	api.NewServer(a.svc, a.health, a.reg).Register(r, auth)
	return r
}

func (a *App) Engine() *gin.Engine { return a.engine }

// Run 启动 HTTP / gRPC health / Kafka 消费 / Nacos 监听，阻塞到 ctx 结束或任一监听出错
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	safe.SafeGo("http", func() {
		logger.Infof("[HTTP] listening on %s ws=%s", a.http.Addr, a.cfg.HTTP.WsPath)
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errs.WrapMsg(err, "http serve")
		}
	})

	if a.cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", a.cfg.GRPCAddr())
		if err != nil {
			return errs.WrapMsg(err, "grpc listen", "addr", a.cfg.GRPCAddr())
		}
		safe.SafeGo("grpc-health", func() {
			if err := a.health.Serve(lis); err != nil {
				errCh <- err
			}
		})
	}

	if a.group != nil {
		safe.SafeGo("kafka-consumer", func() {
			if err := a.group.Run(a.ctx); err != nil {
				logger.Error("kafka consumer stopped", zap.Error(err))
			}
		})
	}

	if a.cfg.Nacos.Enabled {
		if err := config.StartNacosWatcher(a.ctx, a.cfg.Nacos); err != nil {
			logger.Warn("nacos watcher not started", zap.Error(err))
		}
		if a.cfg.Nacos.Register {
			if err := a.registerNaming(); err != nil {
				logger.Warn("nacos register failed", zap.Error(err))
			}
		}
	}

	if a.nats != nil {
		a.health.Set("nats", a.nats.Connected())
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) registerNaming() error {
	nc := a.cfg.Nacos
	ip := nc.IP
	if ip == "" {
		var err error
		if ip, err = nacos.LocalIP(); err != nil {
			return err
		}
	}
	client, err := nacos.NewNamingClient(nc)
	if err != nil {
		return errs.WrapMsg(err, "nacos naming client")
	}
	r := nacos.NewRegistry(client, nc.ServiceName, nc.Group, ip, uint64(a.cfg.HTTP.Port))
	r.SetMeta("ws_path", a.cfg.HTTP.WsPath)
	r.SetMeta("node", NodeKey(a.cfg.App.Name, a.cfg.App.NodeID))
	r.AddEvents(a.chat.Disp().Events()...)
	if err := r.Register(); err != nil {
		return err
	}
	a.naming = r
	return nil
}

// Shutdown 先停入口（HTTP / websocket），等在途事件处理完，再关依赖
func (a *App) Shutdown(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if a.naming != nil {
		keep(a.naming.Deregister())
	}
	if a.http != nil {
		keep(a.http.Shutdown(ctx))
	}
	if a.chat != nil {
		keep(a.chat.Shutdown(ctx))
	}
	if a.sink != nil {
		keep(a.sink.Close(ctx))
	}
	a.health.Stop()
	a.closeDeps()
	return first
}

func (a *App) closeDeps() {
	if a.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = a.sink.Close(ctx)
		cancel()
	}
	if a.group != nil {
		_ = a.group.Close()
	}
	if a.nats != nil {
		_ = a.nats.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.kafka != nil {
		_ = a.kafka.Close()
	}
	if a.reg != nil {
		a.reg.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	// mongo manager 在 ctx 结束时断开
	a.cancel()
}
