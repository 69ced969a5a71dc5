package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrs "github.com/pkg/errors"
)

// CodeError 带业务码的错误；对外只暴露 code/msg
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail 追加 detail，返回新对象，不修改预定义错误
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// Wrap 附带调用栈
func (e *CodeError) Wrap() error {
	return pkgerrs.WithStack(e.clone())
}

// WrapMsg 追加 msg + kv 到 detail 并附带调用栈
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	c := e.clone()
	if msg != "" || len(kv) > 0 {
		c = c.WithDetail(toString(msg, kv))
	}
	return pkgerrs.WithStack(c)
}

// Is 按 code 比较，errors.Is(err, ErrArgs) 可穿透 Wrap
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	if e == nil || t == nil {
		return e == t
	}
	return e.Code == t.Code
}

// As 取出链上的 CodeError
func As(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Public 转成可以下发给客户端的错误；非业务错误一律按内部错误处理
func Public(err error) *CodeError {
	if err == nil {
		return nil
	}
	if ce, ok := As(err); ok {
		return &CodeError{Code: ce.Code, Msg: ce.Msg}
	}
	return &CodeError{Code: ErrInternalServer.Code, Msg: ErrInternalServer.Msg}
}

func New(msg string, kv ...any) error {
	return pkgerrs.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrs.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrs.Wrap(err, toString(msg, kv))
}

func Cause(err error) error { return pkgerrs.Cause(err) }

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
