// internal/di/container.go
package di

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"robot-pipeline/internal/api"
	"robot-pipeline/internal/config"
	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/link"
	"robot-pipeline/internal/messaging"
	"robot-pipeline/internal/orchestrator"
	"robot-pipeline/internal/planner"
	"robot-pipeline/internal/redis"
	"robot-pipeline/internal/services"
	"robot-pipeline/internal/telemetry"
	"robot-pipeline/internal/vision"
)

// Links 컨테이너가 사용하는 세 링크
type Links struct {
	Motor   link.Link
	Control link.Link
	Vision  link.Link
}

// Container 의존성 주입 컨테이너
type Container struct {
	cfg *config.Config

	// Core Services
	Config      interfaces.ConfigProvider
	Logger      interfaces.Logger
	UniqueIDGen interfaces.UniqueIDGenerator

	// Infra Services (비활성화 시 nil)
	Cache            interfaces.CacheService
	MessagePublisher interfaces.MessagePublisher
	redisClient      *goredis.Client

	// Links
	Links Links

	// Domain Services
	Planner   interfaces.Planner
	Vision    interfaces.Vision
	Telemetry *telemetry.Fanout
	Hub       *telemetry.Hub

	Orchestrator *orchestrator.Orchestrator
	API          *api.Server
}

// NewContainer 설정으로 실제 링크를 만들고 컨테이너 생성
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	links, err := NewLinks(cfg)
	if err != nil {
		return nil, err
	}
	return NewContainerWithLinks(ctx, cfg, links)
}

// NewContainerWithLinks 주어진 링크로 컨테이너 생성 (시뮬레이션, 테스트)
func NewContainerWithLinks(ctx context.Context, cfg *config.Config, links Links) (*Container, error) {
	container := &Container{cfg: cfg, Links: links}

	// 1. 기본 서비스들 초기화
	container.initCoreServices(cfg)

	// 2. 인프라 서비스들 초기화
	if err := container.initInfraServices(ctx, cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init infra services: %v", err)
	}

	// 3. 도메인 서비스들 초기화
	container.initDomainServices(cfg)

	// 4. 오케스트레이터와 API 초기화
	container.initOrchestrator(cfg)

	return container, nil
}

// NewLinks 설정에 맞는 모터/제어/비전 링크 생성
func NewLinks(cfg *config.Config) (Links, error) {
	var controlDialer link.Dialer
	switch cfg.ControlTransport {
	case config.ControlTransportSerial:
		controlDialer = link.SerialDialer(cfg.ControlPort, cfg.ControlBaud)
	case config.ControlTransportTCP:
		controlDialer = link.TCPListenDialer(cfg.ControlListenAddr)
	default:
		return Links{}, fmt.Errorf("unknown control transport %q", cfg.ControlTransport)
	}

	return Links{
		// 모터 명령은 고정 폭이라 종결 문자 없음
		Motor:   link.NewLineLink("motor", link.SerialDialer(cfg.MotorPort, cfg.MotorBaud), link.WithTerminator("")),
		Control: link.NewLineLink("control", controlDialer),
		Vision:  link.NewLineLink("vision", link.TCPListenDialer(cfg.VisionListenAddr)),
	}, nil
}

// initCoreServices 핵심 서비스들 초기화
func (c *Container) initCoreServices(cfg *config.Config) {
	c.Config = services.NewConfigProvider(cfg)
	c.Logger = services.NewLogger(cfg.LogLevel)
	c.UniqueIDGen = services.NewUniqueIDGenerator()
}

// initInfraServices 인프라 서비스들 초기화
func (c *Container) initInfraServices(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisEnabled {
		redisClient, err := redis.NewRedisClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("redis init failed: %v", err)
		}
		c.redisClient = redisClient
		c.Cache = services.NewCacheService(redisClient)
		c.Logger.Infof("✅ Redis connected at %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	if cfg.MQTTEnabled {
		mqttClient, err := messaging.NewMQTTClient(cfg)
		if err != nil {
			return fmt.Errorf("mqtt init failed: %v", err)
		}
		c.MessagePublisher = services.NewMessagePublisher(mqttClient)
	}

	return nil
}

// initDomainServices 플래너, 비전, 텔레메트리 초기화
func (c *Container) initDomainServices(cfg *config.Config) {
	c.Planner = planner.NewClient(cfg.PlannerURL, cfg.PlannerTimeout)
	c.Vision = vision.NewClient(c.Links.Vision, cfg.VisionTrigger)

	c.Hub = telemetry.NewHub(c.Logger)
	c.Telemetry = telemetry.NewFanout(c.Logger, c.Hub)
	if c.MessagePublisher != nil {
		c.Telemetry.AddSink(telemetry.NewMQTTMirror(c.MessagePublisher, cfg.MQTTTopicPrefix))
	}
	if c.Cache != nil {
		c.Telemetry.AddSink(telemetry.NewRedisSnapshot(c.Cache))
	}
}

// initOrchestrator 오케스트레이터와 상태 API 초기화
func (c *Container) initOrchestrator(cfg *config.Config) {
	c.Orchestrator = orchestrator.New(
		orchestrator.Links{Motor: c.Links.Motor, Control: c.Links.Control},
		c.Vision,
		c.Planner,
		c.Config,
		c.Logger,
		c.UniqueIDGen,
		c.Telemetry,
	)
	c.API = api.NewServer(c.Orchestrator, c.Hub, c.Logger)
}

// Run 텔레메트리, API, 비전 링크, 오케스트레이터를 실행. ctx 취소 시 nil
func (c *Container) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.Telemetry.Run(gctx)
		return nil
	})
	g.Go(func() error {
		c.Hub.Run(gctx)
		return nil
	})
	if c.cfg.APIAddr != "" {
		g.Go(func() error { return c.API.Start(gctx, c.cfg.APIAddr) })
	}
	g.Go(func() error {
		c.Logger.Infof("📷 Waiting for vision companion")
		if err := c.Links.Vision.Connect(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("vision link: %w", err)
		}
		defer c.Links.Vision.Disconnect()
		c.Logger.Infof("✅ Vision link connected")

		return c.Orchestrator.Run(gctx)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Cleanup 리소스 정리
func (c *Container) Cleanup() {
	if c.MessagePublisher != nil {
		c.MessagePublisher.Disconnect(250)
	}
	if c.redisClient != nil {
		c.redisClient.Close()
	}
	if c.Logger != nil {
		c.Logger.Infof("Container cleanup completed")
	}
}
