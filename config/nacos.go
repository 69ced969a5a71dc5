package config

import (
	"context"
	"sync"

	"GymChat/logger"
	"GymChat/tools/errs"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// Remote 可以在运行时从 Nacos 下发的配置项
type Remote struct {
	Log LogConfig `yaml:"log"`
}

var (
	currentRemote Remote
	remoteMu      sync.RWMutex
)

// ApplyRemote 解析远端 yaml 并生效；只处理可以热更新的 key
func ApplyRemote(data string) error {
	var r Remote
	if err := yaml.Unmarshal([]byte(data), &r); err != nil {
		return errs.WrapMsg(err, "parse remote config")
	}
	if err := logger.SetLevel(r.Log.Level); err != nil {
		return err
	}

	remoteMu.Lock()
	currentRemote = r
	remoteMu.Unlock()
	return nil
}

func CurrentRemote() Remote {
	remoteMu.RLock()
	defer remoteMu.RUnlock()
	return currentRemote
}

// StartNacosWatcher 拉取一次远端配置并持续监听，ctx 结束时取消监听
func StartNacosWatcher(ctx context.Context, nc NacosConfig) error {
	serverConfigs := []constant.ServerConfig{
		*constant.NewServerConfig(nc.Host, nc.Port),
	}
	clientConfig := *constant.NewClientConfig(
		constant.WithTimeoutMs(5000),
		constant.WithNamespaceId(nc.Namespace),
		constant.WithNotLoadCacheAtStart(true),
		constant.WithUsername(nc.Username),
		constant.WithPassword(nc.Password),
		constant.WithLogLevel("warn"),
	)

	configClient, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return errs.WrapMsg(err, "nacos client", "host", nc.Host)
	}

	param := vo.ConfigParam{DataId: nc.DataID, Group: nc.Group}

	// 第一次读取
	content, err := configClient.GetConfig(param)
	if err != nil {
		return errs.WrapMsg(err, "nacos get config", "data_id", nc.DataID)
	}
	if content != "" {
		if err := ApplyRemote(content); err != nil {
			logger.Warnf("[Nacos] apply initial config failed: %v", err)
		}
	}

	// 开始监听
	param.OnChange = func(namespace, group, dataId, data string) {
		logger.Infof("[Nacos] config changed data_id=%s group=%s", dataId, group)
		if err := ApplyRemote(data); err != nil {
			logger.Warnf("[Nacos] apply config failed: %v", err)
		}
	}
	if err := configClient.ListenConfig(param); err != nil {
		return errs.WrapMsg(err, "nacos listen config", "data_id", nc.DataID)
	}

	go func() {
		<-ctx.Done()
		_ = configClient.CancelListenConfig(vo.ConfigParam{DataId: nc.DataID, Group: nc.Group})
	}()
	return nil
}
