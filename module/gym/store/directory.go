package store

import (
	"context"

	"GymChat/logger"
	"GymChat/module/gym/model"

	"go.uber.org/zap"
)

// Directory 按名字解析 gym；找不到返回 (nil, nil)，只有查询本身出错才返回 error
// gym 名字不唯一：同名 gym 不止一个时也返回 (nil, nil)，会话不挂 owner，改名不会波及别人的会话
type Directory interface {
	LookupByName(ctx context.Context, name string) (*model.GymRef, error)
}

func ambiguous(name string, n int) {
	logger.Warn("gym name matches several gyms, left unresolved", zap.String("gym", name), zap.Int("matches", n))
}

// StaticDirectory 配置里写死的 gym 列表，memory 模式和单测用
type StaticDirectory struct {
	byName map[string][]model.GymRef
}

func NewStaticDirectory(refs ...model.GymRef) *StaticDirectory {
	d := &StaticDirectory{byName: make(map[string][]model.GymRef, len(refs))}
	for _, r := range refs {
		d.byName[r.Name] = append(d.byName[r.Name], r)
	}
	return d
}

func (d *StaticDirectory) LookupByName(_ context.Context, name string) (*model.GymRef, error) {
	refs := d.byName[name]
	switch len(refs) {
	case 0:
		return nil, nil
	case 1:
		r := refs[0]
		return &r, nil
	}
	ambiguous(name, len(refs))
	return nil, nil
}
