package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Loggers are no-ops until Init runs, so packages and tests can log freely.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

type Options struct {
	// Dir enables rotated JSON log files. Empty logs to stderr.
	Dir   string
	Level string
}

// Init builds the loggers. With a directory, app/request/error logs go to
// separate rotated files; otherwise everything goes to stderr.
func Init(opts Options) error {
	level := zap.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.Dir == "" {
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
		AppLogger = zap.New(core)
		RequestLogger = AppLogger.Named("request")
		ErrorLogger = AppLogger.Named("error")
		return nil
	}

	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	AppLogger = zap.New(zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(opts.Dir, "app.log"), MaxSize: 100, MaxAge: 28, Compress: true,
		}),
		level,
	))
	RequestLogger = zap.New(zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(opts.Dir, "request.log"), MaxSize: 50, MaxAge: 7, Compress: true,
		}),
		level,
	))
	ErrorLogger = zap.New(zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(opts.Dir, "error.log"), MaxSize: 100, MaxAge: 30, Compress: true,
		}),
		zap.ErrorLevel,
	))
	return nil
}

// Sync flushes all loggers.
func Sync() {
	_ = AppLogger.Sync()
	_ = RequestLogger.Sync()
	_ = ErrorLogger.Sync()
}

// LogDuration lets you do: defer logging.LogDuration("name")()
func LogDuration(name string, fields ...zap.Field) func() {
	start := time.Now()
	return func() {
		fields = append(fields, zap.String("func", name), zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		AppLogger.Debug("function timed", fields...)
	}
}
