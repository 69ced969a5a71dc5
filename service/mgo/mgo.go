package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	mgo "GymChat/data/database/mgo/mongoutil"
	"GymChat/logger"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoManager 后台连接 Mongo：首次连接退避重试 + 周期健康检查
// 连上之后断线由驱动自己重连，这里只上报健康状态，集合句柄一直有效
type MongoManager struct {
	cfg *mgo.Config

	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once

	healthy atomic.Bool
	lastErr atomic.Value // error

	// 状态变化回调（健康检查上报用）
	onStatus func(healthy bool)
}

func NewManager(cfg *mgo.Config) *MongoManager {
	return &MongoManager{cfg: cfg, readyCh: make(chan struct{})}
}

// OnStatus 在 StartAsync 之前设置
func (m *MongoManager) OnStatus(f func(healthy bool)) { m.onStatus = f }

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second // 健康检查周期
	failThresh  = 3                // 连续失败阈值
)

// StartAsync 一直运行到 ctx.Done()；首次连上时 close readyCh
func (m *MongoManager) StartAsync(ctx context.Context) {
	go func() {
		if !m.connect(ctx) {
			return
		}
		m.watch(ctx)
	}()
}

// connect 带退避重试，直到成功或 ctx 结束
func (m *MongoManager) connect(ctx context.Context) bool {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return false
		}
		cli, err := mgo.NewMongoDB(ctx, m.cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.setHealthy(true)
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Infof("[Mongo] connected db=%s", m.cfg.Database)
			return true
		}

		m.lastErr.Store(err)
		logger.Warnf("[Mongo] connect failed attempt=%d err=%v", attempt, err)

		// 退避 + 抖动
		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1)) // 0~20%
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

// watch 健康检查；连续失败 failThresh 次才标记不健康，避免抖动
func (m *MongoManager) watch(ctx context.Context) {
	fail := 0
	t := time.NewTicker(healthEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.disconnect()
			return
		case <-t.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return
			}
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.Ping(pctx)
			cancel()
			if err == nil {
				fail = 0
				m.setHealthy(true)
				continue
			}
			fail++
			m.lastErr.Store(err)
			logger.Warnf("[Mongo] ping failed count=%d err=%v", fail, err)
			if fail >= failThresh {
				m.setHealthy(false)
			}
		}
	}
}

func (m *MongoManager) disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.Disconnect(context.Background())
		m.client = nil
	}
	m.setHealthy(false)
}

func (m *MongoManager) setHealthy(v bool) {
	if m.healthy.Swap(v) != v && m.onStatus != nil {
		m.onStatus(v)
	}
}

func (m *MongoManager) Healthy() bool { return m.healthy.Load() }

// Ready 首次连接成功时会 close
func (m *MongoManager) Ready() <-chan struct{} { return m.readyCh }

// Err 最近一次错误
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// WaitReady 阻塞到首次连上或 ctx 结束
func (m *MongoManager) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return fmt.Errorf("mongo not ready: %w", err)
		}
		return ctx.Err()
	}
}

// DB 返回当前数据库句柄；重连期间返回 false
func (m *MongoManager) DB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

func (m *MongoManager) MustDB() *mongo.Database {
	db, ok := m.DB()
	if !ok {
		panic("Mongo not ready: call WaitReady first")
	}
	return db
}
