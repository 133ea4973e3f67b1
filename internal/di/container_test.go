package di

import (
	"context"
	"testing"
	"time"

	"robot-pipeline/internal/config"
	"robot-pipeline/internal/link"
)

func testConfig() *config.Config {
	return &config.Config{
		ControlTransport: config.ControlTransportTCP,
		PlannerURL:       "http://127.0.0.1:1",
		PlannerTimeout:   time.Second,
		ReconnectDelay:   10 * time.Millisecond,
		VisionTrigger:    "Capture",
		LogLevel:         "error",
	}
}

func TestNewLinks(t *testing.T) {
	t.Run("tcp control", func(t *testing.T) {
		links, err := NewLinks(testConfig())
		if err != nil {
			t.Fatalf("NewLinks failed: %v", err)
		}
		if links.Motor.Name() != "motor" || links.Control.Name() != "control" || links.Vision.Name() != "vision" {
			t.Errorf("Unexpected link names %s/%s/%s", links.Motor.Name(), links.Control.Name(), links.Vision.Name())
		}
	})

	t.Run("unknown transport", func(t *testing.T) {
		cfg := testConfig()
		cfg.ControlTransport = "carrier-pigeon"
		if _, err := NewLinks(cfg); err == nil {
			t.Error("Expected error for unknown transport")
		}
	})
}

func TestContainerWiring(t *testing.T) {
	motor, _ := link.Pipe("motor", "robot")
	control, _ := link.Pipe("control", "tablet")
	visionLink, _ := link.Pipe("vision", "camera")

	c, err := NewContainerWithLinks(context.Background(), testConfig(), Links{
		Motor:   motor,
		Control: control,
		Vision:  visionLink,
	})
	if err != nil {
		t.Fatalf("NewContainerWithLinks failed: %v", err)
	}
	defer c.Cleanup()

	if c.Cache != nil || c.MessagePublisher != nil {
		t.Error("Expected redis and mqtt to stay disabled")
	}
	if c.Orchestrator == nil || c.API == nil || c.Telemetry == nil || c.Hub == nil {
		t.Fatal("Expected orchestrator, API and telemetry to be wired")
	}
	if got := c.Config.GetReconnectDelay(); got != 10*time.Millisecond {
		t.Errorf("Expected reconnect delay 10ms, got %v", got)
	}
}

func TestContainerRunStopsOnCancel(t *testing.T) {
	motor, _ := link.Pipe("motor", "robot")
	control, _ := link.Pipe("control", "tablet")
	visionLink, _ := link.Pipe("vision", "camera")

	c, err := NewContainerWithLinks(context.Background(), testConfig(), Links{
		Motor:   motor,
		Control: control,
		Vision:  visionLink,
	})
	if err != nil {
		t.Fatalf("NewContainerWithLinks failed: %v", err)
	}
	defer c.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil after cancel, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
