package handlers

import "GymChat/service/chat"

// RegisterAll 挂上全部事件
func RegisterAll(s *chat.Server) {
	s.Disp().Register(
		RegisterPresenceHandler{},
		UnregisterPresenceHandler{},
		SendMessageHandler{},
		FetchHistoryHandler{},
		MarkReadHandler{},
		UnreadCountHandler{},
		RenameGymHandler{},
	)
}
