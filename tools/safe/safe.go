package safe

import (
	"GymChat/logger"
	"GymChat/tools/errs"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Used by constructors that cannot run without a collaborator.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Run executes f and turns a panic into an error.
func Run(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return f()
}

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[SafeGo] panic recovered", zap.String("task", name), zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
		f()
	}()
}
