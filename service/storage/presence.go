package storage

import (
	"context"
	"time"

	"GymChat/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// presence key: gymchat:presence:<user>
// value 是所在节点，TTL 控制在线有效期，ping 时续期
func presenceKey(user string) string { return "gymchat:presence:" + user }

// 只删自己节点写的 key，用户已经在别的节点重连时保留
var delIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// PresenceMirror 把本节点的在线表镜像到 Redis，只作展示/排查用
type PresenceMirror struct {
	rdb     redis.Cmdable
	nodeID  string
	ttl     time.Duration
	timeout time.Duration
}

func NewPresenceMirror(rdb redis.Cmdable, nodeID string, ttl time.Duration) *PresenceMirror {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &PresenceMirror{rdb: rdb, nodeID: nodeID, ttl: ttl, timeout: 2 * time.Second}
}

// Online 设置在线并续期
func (p *PresenceMirror) Online(userID, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.rdb.Set(ctx, presenceKey(userID), p.nodeID, p.ttl).Err(); err != nil {
		logger.Warn("presence mirror online", zap.String("user", userID), zap.String("conn", connID), zap.Error(err))
	}
}

// Offline 主动下线
func (p *PresenceMirror) Offline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := delIfOwner.Run(ctx, p.rdb, []string{presenceKey(userID)}, p.nodeID).Err(); err != nil {
		logger.Warn("presence mirror offline", zap.String("user", userID), zap.Error(err))
	}
}
