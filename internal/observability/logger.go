package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every log line.
const ServiceName = "weather-dashboard"

// NewLogger builds the process logger from the environment.
func NewLogger() (*zap.Logger, error) {
	return loggerConfig(os.Getenv).Build()
}

// loggerConfig is the JSON production config with ISO8601 "timestamp".
// LOG_LEVEL picks the level, LOG_FORMAT=console switches to the readable
// encoder and ENV_NAME (default dev) is attached as "env".
func loggerConfig(getenv func(string) string) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(strings.TrimSpace(getenv("LOG_FORMAT")), "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(getenv("LOG_LEVEL")))

	env := strings.TrimSpace(getenv("ENV_NAME"))
	if env == "" {
		env = "dev"
	}
	cfg.InitialFields = map[string]interface{}{"service": ServiceName, "env": env}
	return cfg
}

// levelFromEnv maps a LOG_LEVEL value to a zap level. Unknown values log at info.
func levelFromEnv(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	if lvl > zapcore.ErrorLevel {
		return zapcore.ErrorLevel
	}
	return lvl
}
