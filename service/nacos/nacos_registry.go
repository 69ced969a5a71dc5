package nacos

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"GymChat/config"
	"GymChat/logger"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// namingClient naming_client.INamingClient 里用到的部分
type namingClient interface {
	RegisterInstance(param vo.RegisterInstanceParam) (bool, error)
	DeregisterInstance(param vo.DeregisterInstanceParam) (bool, error)
}

// Registry 把本节点注册成 nacos 临时实例，metadata 里带上 websocket 路径和事件列表
type Registry struct {
	ServiceName string
	Group       string
	IP          string
	Port        uint64

	mu         sync.Mutex
	client     namingClient
	meta       map[string]string
	events     map[string]struct{}
	registered bool
}

// NewNamingClient 按配置建 naming client
func NewNamingClient(nc config.NacosConfig) (naming_client.INamingClient, error) {
	serverConfigs := []constant.ServerConfig{
		*constant.NewServerConfig(nc.Host, nc.Port),
	}
	clientConfig := constant.NewClientConfig(
		constant.WithNamespaceId(nc.Namespace),
		constant.WithTimeoutMs(5000),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithUsername(nc.Username),
		constant.WithPassword(nc.Password),
		constant.WithLogLevel("warn"),
	)
	return clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  clientConfig,
		ServerConfigs: serverConfigs,
	})
}

func NewRegistry(client namingClient, serviceName, group, ip string, port uint64) *Registry {
	if group == "" {
		group = "DEFAULT_GROUP"
	}
	return &Registry{
		ServiceName: serviceName,
		Group:       group,
		IP:          ip,
		Port:        port,
		client:      client,
		meta:        map[string]string{"protocol": "ws"},
		events:      make(map[string]struct{}),
	}
}

// SetMeta 注册前设置；已注册时需要再调 Register 才生效
func (r *Registry) SetMeta(k, v string) {
	r.mu.Lock()
	r.meta[k] = v
	r.mu.Unlock()
}

// AddEvents 记录本节点支持的事件名
func (r *Registry) AddEvents(events ...string) {
	r.mu.Lock()
	for _, e := range events {
		r.events[e] = struct{}{}
	}
	r.mu.Unlock()
}

// Register 注册；已注册时先摘掉旧实例再用新 metadata 注册
func (r *Registry) Register() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		if err := r.deregister(); err != nil {
			logger.Warnf("[Nacos] deregister previous instance: %v", err)
		}
	}

	meta := make(map[string]string, len(r.meta)+1)
	for k, v := range r.meta {
		meta[k] = v
	}
	meta["events"] = r.eventList()

	ok, err := r.client.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          r.IP,
		Port:        r.Port,
		ServiceName: r.ServiceName,
		GroupName:   r.Group,
		ClusterName: "DEFAULT",
		Weight:      1,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if !ok {
		return errors.New("register failed: returned false")
	}
	r.registered = true
	logger.Infof("[Nacos] registered %s %s:%d", r.ServiceName, r.IP, r.Port)
	return nil
}

// Deregister 进程退出前调用
func (r *Registry) Deregister() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.registered {
		return nil
	}
	return r.deregister()
}

func (r *Registry) deregister() error {
	ok, err := r.client.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          r.IP,
		Port:        r.Port,
		ServiceName: r.ServiceName,
		GroupName:   r.Group,
		Cluster:     "DEFAULT",
		Ephemeral:   true,
	})
	if err != nil {
		return err
	}
	if !ok {
		logger.Warnf("[Nacos] instance %s:%d not found on deregister", r.IP, r.Port)
	}
	r.registered = false
	return nil
}

func (r *Registry) eventList() string {
	list := make([]string, 0, len(r.events))
	for name := range r.events {
		list = append(list, name)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

// LocalIP 第一个非回环 IPv4
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4.String(), nil
			}
		}
	}
	return "", errors.New("no non-loopback ipv4 address")
}
