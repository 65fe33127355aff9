package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"botfleet/internal/application/port/output"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

// Config — настройки общего лога менеджера. Файл один на весь парк
// (как logs.txt в старых версиях), ротация через lumberjack.
type Config struct {
	Level      string // debug|info|warn|error
	File       string // пусто — только консоль
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "logs/botfleet.log",
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Console:    true,
	}
}

// LoggerAdapter реализует output.LoggerPort поверх zap.
type LoggerAdapter struct {
	zl   *zap.SugaredLogger
	root *zap.Logger
}

// NewLoggerAdapter собирает логгер: человекочитаемая консоль плюс
// JSON-файл с ротацией.
func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if cfg.Console {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stdout),
			level,
		))
	}
	if cfg.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			fileWriter,
			level,
		))
	}
	if len(cores) == 0 {
		return nil, fmt.Errorf("logger: neither console nor file output enabled")
	}

	root := zap.New(zapcore.NewTee(cores...))
	return &LoggerAdapter{zl: root.Sugar(), root: root}, nil
}

func (l *LoggerAdapter) Debug(msg string, args ...any) { l.zl.Debugw(msg, args...) }
func (l *LoggerAdapter) Info(msg string, args ...any)  { l.zl.Infow(msg, args...) }
func (l *LoggerAdapter) Warn(msg string, args ...any)  { l.zl.Warnw(msg, args...) }
func (l *LoggerAdapter) Error(msg string, args ...any) { l.zl.Errorw(msg, args...) }

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{zl: l.zl.With(key, value), root: l.root}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &LoggerAdapter{zl: l.zl.With(args...), root: l.root}
}

func (l *LoggerAdapter) Close() error {
	// Sync на stdout на части платформ возвращает EINVAL — это не ошибка
	// завершения.
	_ = l.root.Sync()
	return nil
}

// Nop — логгер-заглушка для тестов.
func Nop() *LoggerAdapter {
	return &LoggerAdapter{zl: zap.NewNop().Sugar(), root: zap.NewNop()}
}
