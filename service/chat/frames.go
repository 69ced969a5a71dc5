package chat

import (
	"encoding/json"
	"strconv"

	"GymChat/tools/decode"
	"GymChat/tools/errs"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// 客户端 -> 服务端
const (
	EventRegisterPresence   = "register-presence"
	EventUnregisterPresence = "unregister-presence"
	EventSendMessage        = "send-message"
	EventFetchHistory       = "fetch-history"
	EventMarkRead           = "mark-read"
	EventGetUnreadCount     = "get-unread-count"
	EventRenameGym          = "rename-gym"
)

// 服务端 -> 客户端
const (
	EventAck     = "ack"
	EventMessage = "message"
	EventRead    = "read"
	EventError   = "error"
)

// 老客户端的事件名，参数是位置参数
type legacyEvent struct {
	event  string
	fields []string
}

var legacyEvents = map[string]legacyEvent{
	"add_user":    {event: EventRegisterPresence, fields: []string{"userId"}},
	"remove_user": {event: EventUnregisterPresence, fields: []string{"userId"}},
	"communicate": {event: EventSendMessage, fields: []string{"senderId", "recipientId", "text", "gymTag"}},
}

// InboundFrame {"event":"send-message","ack":"7","data":{...}}
type InboundFrame struct {
	Event string
	Alias string // 原始的老事件名
	Ack   string
	Data  *structpb.Struct
}

// ParseFrame 解析并把老事件名、位置参数统一成新格式
func ParseFrame(raw []byte) (*InboundFrame, error) {
	st := &structpb.Struct{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(raw, st); err != nil {
		return nil, errs.ErrFrame.WrapMsg("frame is not a json object")
	}
	event, err := decode.ReadString(st, "event")
	if err != nil || event == "" {
		return nil, errs.ErrFrame.WrapMsg("event is required")
	}

	f := &InboundFrame{Event: event}
	if v := st.GetFields()["ack"]; v != nil {
		switch k := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			f.Ack = k.StringValue
		case *structpb.Value_NumberValue:
			f.Ack = strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
		}
	}

	legacy, isLegacy := legacyEvents[event]
	if isLegacy {
		f.Alias, f.Event = event, legacy.event
	}

	data := st.GetFields()["data"]
	switch k := data.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		f.Data = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	case *structpb.Value_StructValue:
		f.Data = k.StructValue
	case *structpb.Value_ListValue:
		if !isLegacy {
			return f, errs.ErrFrame.WrapMsg("data must be an object", "event", event)
		}
		f.Data = positional(legacy.fields, k.ListValue.GetValues())
	default:
		if !isLegacy {
			return f, errs.ErrFrame.WrapMsg("data must be an object", "event", event)
		}
		f.Data = positional(legacy.fields, []*structpb.Value{data})
	}
	return f, nil
}

func positional(names []string, vals []*structpb.Value) *structpb.Struct {
	st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(names))}
	for i, v := range vals {
		if i >= len(names) {
			break
		}
		st.Fields[names[i]] = v
	}
	return st
}

// DecodeData 把 data 解到具体的请求类型
func DecodeData[T any](f *InboundFrame) (*T, error) {
	v, err := decode.DecodeStruct[T](f.Data)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad payload", "event", f.Event, "err", err)
	}
	return v, nil
}

// ---- 请求 ----

type PresenceReq struct {
	UserID string `json:"userId"`
}

func (r *PresenceReq) Check() error {
	if r.UserID == "" {
		return errs.ErrArgs.WrapMsg("userId is required")
	}
	return nil
}

type SendMessageReq struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	GymTag      string `json:"gymTag"`
	Text        string `json:"text"`
}

type HistoryReq struct {
	UserA  string `json:"userA"`
	UserB  string `json:"userB"`
	GymTag string `json:"gymTag"`
}

type MarkReadReq struct {
	ReaderID    string `json:"readerId"`
	OtherUserID string `json:"otherUserId"`
	GymTag      string `json:"gymTag"`
}

type UnreadReq struct {
	UserID string `json:"userId"`
	GymID  string `json:"gymId"`
	GymTag string `json:"gymTag"`
}

// ---- 下行帧 ----

type OutboundFrame struct {
	Event string          `json:"event"`
	Ack   string          `json:"ack,omitempty"`
	Data  any             `json:"data,omitempty"`
	Error *errs.CodeError `json:"error,omitempty"`
}

func (f *OutboundFrame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

func AckFrame(ack string, data any) *OutboundFrame {
	return &OutboundFrame{Event: EventAck, Ack: ack, Data: data}
}

func AckErrorFrame(ack string, err error) *OutboundFrame {
	return &OutboundFrame{Event: EventAck, Ack: ack, Error: errs.Public(err)}
}

func PushFrame(event string, data any) *OutboundFrame {
	return &OutboundFrame{Event: event, Data: data}
}

// ErrorFrame 没有 ack id 的事件失败时下发；data 里带上出错的事件名
func ErrorFrame(event string, err error) *OutboundFrame {
	f := &OutboundFrame{Event: EventError, Error: errs.Public(err)}
	if event != "" {
		f.Data = map[string]string{"event": event}
	}
	return f
}
