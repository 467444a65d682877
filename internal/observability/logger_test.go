package observability

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"  Warn  ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromEnv(tt.env); got != tt.want {
			t.Errorf("levelFromEnv(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestLoggerConfig(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantEncoding string
		wantEnv      string
		wantLevel    zapcore.Level
	}{
		{"defaults", nil, "json", "dev", zapcore.InfoLevel},
		{"console staging", map[string]string{"LOG_FORMAT": "Console", "ENV_NAME": "staging", "LOG_LEVEL": "debug"}, "console", "staging", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loggerConfig(func(k string) string { return tt.env[k] })
			if cfg.Encoding != tt.wantEncoding {
				t.Errorf("Encoding = %q, want %q", cfg.Encoding, tt.wantEncoding)
			}
			if cfg.Level.Level() != tt.wantLevel {
				t.Errorf("Level = %v, want %v", cfg.Level.Level(), tt.wantLevel)
			}
			if cfg.EncoderConfig.TimeKey != "timestamp" {
				t.Errorf("TimeKey = %q, want timestamp", cfg.EncoderConfig.TimeKey)
			}
			if cfg.InitialFields["service"] != ServiceName || cfg.InitialFields["env"] != tt.wantEnv {
				t.Errorf("InitialFields = %v", cfg.InitialFields)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("dashboard logger ready")
	_ = FlushTelemetry(context.Background(), logger)
}
