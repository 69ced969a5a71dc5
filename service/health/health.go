package health

import (
	"context"
	"fmt"
	"net"
	"sync"

	"GymChat/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceChat 聊天服务在 health 协议里的名字；"" 表示整个进程
const ServiceChat = "gymchat.Chat"

// Server gRPC health 服务；依赖（Mongo / NATS 等）状态变化时调用 Set
type Server struct {
	hs  *health.Server
	srv *grpc.Server

	mu   sync.RWMutex
	deps map[string]bool
}

func New() *Server {
	s := &Server{
		hs:   health.NewServer(),
		srv:  grpc.NewServer(),
		deps: make(map[string]bool),
	}
	grpc_health_v1.RegisterHealthServer(s.srv, s.hs)
	s.apply()
	return s
}

// Set 更新某个依赖的状态；任一依赖不健康时整体 NOT_SERVING
func (s *Server) Set(dep string, healthy bool) {
	s.mu.Lock()
	prev, seen := s.deps[dep]
	s.deps[dep] = healthy
	s.mu.Unlock()
	if seen && prev == healthy {
		return
	}
	logger.Infof("[Health] %s healthy=%v", dep, healthy)
	s.apply()
}

func (s *Server) apply() {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !s.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(ServiceChat, status)
}

func (s *Server) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ok := range s.deps {
		if !ok {
			return false
		}
	}
	return true
}

// Deps 各依赖当前状态（给 /healthz 用）
func (s *Server) Deps() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.deps))
	for k, v := range s.deps {
		out[k] = v
	}
	return out
}

// Check 本地查询，语义和远端 health.Check 一致
func (s *Server) Check(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.hs.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve 阻塞直到 Stop
func (s *Server) Serve(lis net.Listener) error {
	logger.Infof("[Health] grpc listening on %s", lis.Addr())
	if err := s.srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop 先标记 NOT_SERVING 再优雅退出
func (s *Server) Stop() {
	s.hs.Shutdown()
	s.srv.GracefulStop()
}
