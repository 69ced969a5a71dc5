package chat

import (
	"sync"

	"GymChat/logger"
	"GymChat/tools/safe"

	"go.uber.org/zap"
)

// Handle 一条可以推送的连接
type Handle interface {
	ID() string
	Push(frame []byte) error
}

// PresenceObserver 在线状态旁路（比如 Redis 镜像），异步串行回调
type PresenceObserver interface {
	Online(userID, connID string)
	Offline(userID string)
}

type presenceOp struct {
	online bool
	user   string
	connID string
}

// Registry 进程内 userId -> 连接，后注册的覆盖先注册的（不关闭旧连接）
// 只在本进程有效，多进程需要外部 fan-out
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Handle

	obs    PresenceObserver
	ops    chan presenceOp
	stop   chan struct{}
	closed sync.Once
}

const presenceQueue = 1024

func NewRegistry(obs PresenceObserver) *Registry {
	r := &Registry{
		byUser: make(map[string]Handle),
		obs:    obs,
		stop:   make(chan struct{}),
	}
	if obs != nil {
		r.ops = make(chan presenceOp, presenceQueue)
		safe.SafeGo("presence-observer", r.loop)
	}
	return r
}

func (r *Registry) loop() {
	for {
		select {
		case <-r.stop:
			return
		case op := <-r.ops:
			if op.online {
				r.obs.Online(op.user, op.connID)
			} else {
				r.obs.Offline(op.user)
			}
		}
	}
}

func (r *Registry) notify(op presenceOp) {
	if r.ops == nil {
		return
	}
	select {
	case <-r.stop:
	case r.ops <- op:
	default:
		logger.Warn("presence observer queue full, drop", zap.String("user", op.user), zap.Bool("online", op.online))
	}
}

func (r *Registry) Close() {
	r.closed.Do(func() { close(r.stop) })
}

// Register 覆盖已有记录
func (r *Registry) Register(userID string, h Handle) {
	if userID == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.byUser[userID] = h
	r.mu.Unlock()
	r.notify(presenceOp{online: true, user: userID, connID: h.ID()})
}

// Unregister 不存在时什么也不做
func (r *Registry) Unregister(userID string) bool {
	r.mu.Lock()
	_, ok := r.byUser[userID]
	delete(r.byUser, userID)
	r.mu.Unlock()
	if ok {
		r.notify(presenceOp{user: userID})
	}
	return ok
}

// UnregisterIf 只有当前记录还是 h 时才删除；断线清理用，避免删掉新连接的注册
func (r *Registry) UnregisterIf(userID string, h Handle) bool {
	r.mu.Lock()
	cur, ok := r.byUser[userID]
	ok = ok && cur.ID() == h.ID()
	if ok {
		delete(r.byUser, userID)
	}
	r.mu.Unlock()
	if ok {
		r.notify(presenceOp{user: userID})
	}
	return ok
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// Touch 心跳续期，只通知 observer
func (r *Registry) Touch(userID string, h Handle) {
	if cur, ok := r.Lookup(userID); ok && cur.ID() == h.ID() {
		r.notify(presenceOp{online: true, user: userID, connID: h.ID()})
	}
}

func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
