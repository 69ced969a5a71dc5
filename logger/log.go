package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

func init() {
	Log = build("console")
}

func build(encoding string) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalColorLevelEncoder, // 彩色等级
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if encoding == "json" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder // json 不要颜色
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level)
	// 快捷方法多包了一层，跳过一帧才能拿到真实调用方
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init 按配置重建 logger；encoding 取 console / json
func Init(lvl, encoding string) error {
	if err := SetLevel(lvl); err != nil {
		return err
	}
	Log = build(strings.ToLower(encoding))
	return nil
}

// SetLevel 运行时调整日志级别（远端配置变更时调用）
func SetLevel(lvl string) error {
	if lvl == "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(lvl))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	level.SetLevel(l)
	return nil
}

func Level() string { return level.Level().String() }

func With(fields ...zap.Field) *zap.Logger { return Log.With(fields...) }

func Sync() { _ = Log.Sync() }

// 快捷方法
func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }
func Infof(format string, args ...interface{}) {
	Log.Info(fmt.Sprintf(format, args...))
}
func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }
func Warnf(format string, args ...interface{}) {
	Log.Warn(fmt.Sprintf(format, args...))
}
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

func Errorf(format string, args ...interface{}) {
	Log.Error(fmt.Sprintf(format, args...))
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Debugf(format string, args ...interface{}) {
	Log.Debug(fmt.Sprintf(format, args...))
}
