package decode

import (
	"encoding/json"
	"fmt"
	"reflect"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/mitchellh/mapstructure"
)

// Options 用于定制 Decode 行为。
type Options struct {
	// 宽松解码：数字 id 可以落到 string 字段，"3" 可以落到 int 字段
	WeaklyTypedInput bool
	// 出现结构体里没有的字段时报错
	ErrorUnused bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeStruct 将 *structpb.Struct 解码到结构体 T，字段读取使用 `json` tag。
func DecodeStruct[T any](st *structpb.Struct, opts ...Options) (*T, error) {
	if st == nil {
		return nil, fmt.Errorf("struct is nil")
	}
	return DecodeMap[T](st.AsMap(), opts...)
}

// DecodeMap 同 DecodeStruct，入参为已经展开的 map
func DecodeMap[T any](m map[string]any, opts ...Options) (*T, error) {
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			sliceAnyToSliceStringHook(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return &out, nil
}

// ReadString 从 Struct 中读取 string 字段。
func ReadString(st *structpb.Struct, key string) (string, error) {
	if st == nil {
		return "", fmt.Errorf("struct is nil")
	}
	v, ok := st.GetFields()[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %q not string", key)
	}
	return s.StringValue, nil
}

// -----------------------------
// Decode Hooks
// -----------------------------

// floatToIntHook：JSON 数字统一是 float64，落到整型字段时转换
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// sliceAnyToSliceStringHook：把 []any 转为 []string。
func sliceAnyToSliceStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Slice || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		src, ok := data.([]any)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(src))
		for _, it := range src {
			switch v := it.(type) {
			case string:
				out = append(out, v)
			default:
				b, _ := json.Marshal(v)
				out = append(out, string(b))
			}
		}
		return out, nil
	}
}
