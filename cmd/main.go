// cmd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"robot-pipeline/internal/config"
	"robot-pipeline/internal/di"
	"robot-pipeline/internal/utils"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	utils.SetupLogger(cfg.LogLevel)

	// 종료 신호 시 ctx 취소
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DI 컨테이너 생성
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		panic("Failed to create DI container: " + err.Error())
	}
	defer container.Cleanup()

	container.Logger.Infof("🎯 Robot pipeline starting")
	container.Logger.Infof("📊 Services initialized:")
	container.Logger.Infof("   ✅ Motor link: %s @ %d", cfg.MotorPort, cfg.MotorBaud)
	container.Logger.Infof("   ✅ Control link: %s", cfg.ControlTransport)
	container.Logger.Infof("   ✅ Vision link: %s", cfg.VisionListenAddr)
	container.Logger.Infof("   ✅ Planner: %s (compile locally: %v)", cfg.PlannerURL, cfg.CompileLocally)
	container.Logger.Infof("   ✅ Redis snapshot: %v, MQTT mirror: %v", cfg.RedisEnabled, cfg.MQTTEnabled)

	if err := container.Run(ctx); err != nil {
		container.Logger.Errorf("❌ Robot pipeline stopped: %v", err)
		container.Cleanup()
		os.Exit(1)
	}

	container.Logger.Infof("✅ Robot pipeline shutdown completed")
}
