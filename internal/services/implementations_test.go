package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"robot-pipeline/internal/config"
	"robot-pipeline/internal/models"
)

func TestConfigProvider(t *testing.T) {
	cfg := &config.Config{
		InitialX:       1,
		InitialY:       1,
		InitialDir:     2,
		CompileLocally: true,
		AckTimeout:     3 * time.Second,
		ReconnectDelay: time.Second,
		LogLevel:       "debug",
	}
	provider := NewConfigProvider(cfg)

	pose := provider.GetInitialPose()
	if !pose.Equal(models.NewWaypoint(1, 1, models.East)) {
		t.Errorf("Expected (1,1,East), got %s", pose)
	}
	if !provider.GetCompileLocally() {
		t.Errorf("Expected compile locally")
	}
	if provider.GetAckTimeout() != 3*time.Second {
		t.Errorf("Expected 3s ack timeout, got %v", provider.GetAckTimeout())
	}
	if provider.GetLogLevel() != "debug" {
		t.Errorf("Expected 'debug', got '%s'", provider.GetLogLevel())
	}
}

func TestConfigProviderInvalidHeadingFallsBackToNorth(t *testing.T) {
	provider := NewConfigProvider(&config.Config{InitialDir: 5})
	if provider.GetInitialPose().Heading != models.North {
		t.Errorf("Expected North fallback, got %s", provider.GetInitialPose().Heading)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)

	logger.Info("hidden")
	logger.Warnf("visible %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info to be filtered at warn level, got %s", out)
	}
	if !strings.Contains(out, "visible 1") {
		t.Errorf("Expected warn message in output, got %s", out)
	}
}

func TestUniqueIDGenerator(t *testing.T) {
	gen := NewUniqueIDGenerator()
	a, b := gen.GenerateUniqueID(), gen.GenerateUniqueID()

	if a == b {
		t.Errorf("Expected distinct ids, got %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("Expected uuid, got %s", a)
	}
}
