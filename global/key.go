package global

import "strconv"

// NodeKey 本节点标识，写进 Redis presence 镜像的 value
func NodeKey(app string, nodeID int64) string {
	if app == "" {
		app = "gym-chat"
	}
	return app + "-" + strconv.FormatInt(nodeID, 10)
}
