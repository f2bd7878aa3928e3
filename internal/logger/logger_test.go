package logger

import (
	"testing"

	"github.com/safar/storefront/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "warn", Encoding: "console"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("Warn should be enabled at warn level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewDevelopmentPreset(t *testing.T) {
	log, err := New(config.LoggerConfig{Development: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Development logger should enable debug")
	}
}

func TestNewProductionDefaultsToInfo(t *testing.T) {
	log, err := New(config.LoggerConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Production logger should not enable debug")
	}
}
