package chat

import (
	"sort"

	"GymChat/tools/errs"

	"github.com/golang/glog"
)

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(hs ...Handler) {
	for _, h := range hs {
		d.handlers[h.Event()] = h
	}
}

func (d *Dispatcher) GetHandler(event string) Handler {
	h, ok := d.handlers[event]
	if !ok {
		glog.V(1).Infof("no handler for event=%s", event)
		return nil
	}
	return h
}

func (d *Dispatcher) Dispatch(ctx *ChatContext, f *InboundFrame) (any, error) {
	h := d.GetHandler(f.Event)
	if h == nil {
		return nil, errs.ErrUnknownEvent.WrapMsg("no handler", "event", f.Event)
	}
	if glog.V(2) {
		glog.Infof("dispatch event=%s alias=%s conn=%s ack=%q", f.Event, f.Alias, ctx.Client.ConnID, f.Ack)
	}
	return h.Handle(ctx, f)
}

// Events 已注册的事件名，排序后返回
func (d *Dispatcher) Events() []string {
	out := make([]string, 0, len(d.handlers))
	for e := range d.handlers {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
