package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

var Lg = zap.NewNop()

func isDev(mode string) bool {
	return mode == "dev" || mode == "development"
}

// Init 初始化全局 logger，并替换 zap 全局 logger
func Init(cfg *LogConfig, mode string) error {
	l, err := New(cfg, mode)
	if err != nil {
		return err
	}
	Lg = l
	zap.ReplaceGlobals(Lg)
	Info("init logger success", zap.String("mode", mode), zap.String("level", cfg.Level))
	return nil
}

// New 构建 logger：JSON 写入滚动文件，开发模式下同时输出彩色终端日志
func New(cfg *LogConfig, mode string) (*zap.Logger, error) {
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	var cores []zapcore.Core
	if cfg.Filename != "" {
		writer := getLogWriter(cfg.Filename, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge, cfg.Daily)
		cores = append(cores, zapcore.NewCore(getEncoder(), writer, level))
	}
	if isDev(mode) || cfg.Filename == "" {
		console := zapcore.NewConsoleEncoder(consoleEncoderConfig())
		high := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel && level.Enabled(lvl)
		})
		low := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl < zapcore.ErrorLevel && level.Enabled(lvl)
		})
		cores = append(cores,
			zapcore.NewCore(console, zapcore.Lock(os.Stdout), low),
			zapcore.NewCore(console, zapcore.Lock(os.Stderr), high),
		)
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

var levelColor = map[zapcore.Level]string{
	zapcore.DebugLevel:  "\x1b[35m", // 紫色
	zapcore.InfoLevel:   "\x1b[36m", // 青色
	zapcore.WarnLevel:   "\x1b[33m", // 黄色
	zapcore.ErrorLevel:  "\x1b[31m", // 红色
	zapcore.DPanicLevel: "\x1b[31m",
	zapcore.PanicLevel:  "\x1b[31m",
	zapcore.FatalLevel:  "\x1b[31m",
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("\x1b[90m" + t.Format("2006-01-02 15:04:05.000") + "\x1b[0m")
	}
	// [INFO] 格式
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		color, ok := levelColor[l]
		if !ok {
			color = "\x1b[0m"
		}
		enc.AppendString(color + "[" + l.CapitalString() + "]\x1b[0m")
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("\x1b[90m" + caller.TrimmedPath() + "\x1b[0m")
	}
	return cfg
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getLogWriter(filename string, maxSize, maxBackup, maxAge int, daily bool) zapcore.WriteSyncer {
	if daily {
		filename = GetDailyLogFilename(filename)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSize,
		MaxBackups: maxBackup,
		MaxAge:     maxAge,
		LocalTime:  true,
	})
}

// GetDailyLogFilename 获取按日期分割的日志文件名
func GetDailyLogFilename(baseFilename string) string {
	ext := filepath.Ext(baseFilename)
	base := baseFilename[:len(baseFilename)-len(ext)]
	return base + "-" + time.Now().Format("2006-01-02") + ext
}

// Named returns a child of the global logger for one component.
func Named(component string) *zap.Logger {
	return Lg.Named(component)
}

func Info(msg string, fields ...zap.Field) {
	Lg.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Lg.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Lg.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Lg.Debug(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Lg.Fatal(msg, fields...)
}

// Sync 刷新缓冲区
func Sync() {
	_ = Lg.Sync()
}
