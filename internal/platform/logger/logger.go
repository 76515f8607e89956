package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tune the logger beyond the environment defaults.
type Options struct {
	// FilePath, when set, tees output into a size-rotated file.
	FilePath string
}

// NewNamed creates a named zap logger. Development gets a console encoder at debug
// level; everything else gets JSON at info.
func NewNamed(appEnv, name string, opts ...Options) (*zap.Logger, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	var (
		encCfg zapcore.EncoderConfig
		enc    zapcore.Encoder
		level  zapcore.Level
	)
	if appEnv == "development" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
		level = zapcore.DebugLevel
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
		level = zapcore.InfoLevel
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if o.FilePath != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   o.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named(name), nil
}
