package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/letra-wholesale/order-sheet/config"
)

// New builds the process logger. With file output enabled, JSON goes to a
// rotating file and console output stays on stdout.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if err := zapConfig.Level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(cfg.Level)))); err != nil {
		zapConfig.Level.SetLevel(zapcore.InfoLevel)
	}

	if !cfg.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotating),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}
