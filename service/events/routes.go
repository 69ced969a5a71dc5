package events

import (
	"GymChat/module/chat/model"
	"GymChat/service/natsx"
)

// BizRename NATS request/reply 改名入口
const BizRename = "gym.rename"

// EventTypes 所有对外广播的事件类型
var EventTypes = []string{model.EventMessageStored, model.EventMessageRead, model.EventGymRenamed}

type routeRegistrar interface {
	RegisterRoute(r natsx.NatsxRoute) error
}

// RegisterEventRoutes 每个事件类型一条路由：subject = prefix.type，广播无队列组
func RegisterEventRoutes(m routeRegistrar, prefix string) error {
	for _, t := range EventTypes {
		if err := m.RegisterRoute(natsx.NatsxRoute{Biz: t, Subject: prefix + "." + t}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterRenameRoute 改名请求走队列组，多个实例只有一个处理
func RegisterRenameRoute(m routeRegistrar, subject, queue string) error {
	return m.RegisterRoute(natsx.NatsxRoute{Biz: BizRename, Subject: subject, Queue: queue})
}
