package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

// MakeLogger replaces the global zap logger. Debug level gets the colored
// development output, anything else is logged as JSON.
func MakeLogger() error {
	level, err := zapcore.ParseLevel(viper.GetString("app.log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level, %w", err)
	}

	var cfg zap.Config

	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + t.Format("15:04:05.000") + reset)
		}
		cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + ec.TrimmedPath() + reset)
		}
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger, %w", err)
	}

	zap.ReplaceGlobals(log)
	return nil
}
