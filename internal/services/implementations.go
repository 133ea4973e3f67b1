// internal/services/implementations.go
package services

import (
	"context"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"robot-pipeline/internal/config"
	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
	"robot-pipeline/internal/utils"
)

// =============================================================================
// Cache Service Implementation
// =============================================================================

type CacheServiceImpl struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) interfaces.CacheService {
	return &CacheServiceImpl{client: client}
}

func (c *CacheServiceImpl) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *CacheServiceImpl) HSet(ctx context.Context, key, field string, value interface{}) error {
	return c.client.HSet(ctx, key, field, value).Err()
}

func (c *CacheServiceImpl) Pipeline() interfaces.CachePipeline {
	return &CachePipelineImpl{pipeline: c.client.Pipeline()}
}

type CachePipelineImpl struct {
	pipeline redis.Pipeliner
}

func (c *CachePipelineImpl) HSet(ctx context.Context, key, field string, value interface{}) error {
	c.pipeline.HSet(ctx, key, field, value)
	return nil
}

func (c *CachePipelineImpl) Exec(ctx context.Context) error {
	_, err := c.pipeline.Exec(ctx)
	return err
}

// =============================================================================
// Message Publisher Implementation
// =============================================================================

type MessagePublisherImpl struct {
	client mqtt.Client
}

func NewMessagePublisher(client mqtt.Client) interfaces.MessagePublisher {
	return &MessagePublisherImpl{client: client}
}

func (m *MessagePublisherImpl) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	utils.Logger.Debugf("📤 MQTT SENDING Topic: %s, QoS: %d, Retained: %v", topic, qos, retained)

	token := m.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		utils.Logger.Errorf("❌ MQTT SEND FAILED: %s - %v", topic, token.Error())
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}
	return nil
}

func (m *MessagePublisherImpl) IsConnected() bool {
	return m.client.IsConnected()
}

func (m *MessagePublisherImpl) Disconnect(quiesce uint) {
	m.client.Disconnect(quiesce)
}

// =============================================================================
// Config Provider Implementation
// =============================================================================

type ConfigProviderImpl struct {
	cfg *config.Config
}

func NewConfigProvider(cfg *config.Config) interfaces.ConfigProvider {
	return &ConfigProviderImpl{cfg: cfg}
}

// GetInitialPose 첫 ACK 이전의 로봇 위치
func (c *ConfigProviderImpl) GetInitialPose() models.WaypointState {
	heading, err := models.ParseHeading(c.cfg.InitialDir)
	if err != nil {
		heading = models.North
	}
	return models.NewWaypoint(c.cfg.InitialX, c.cfg.InitialY, heading)
}

func (c *ConfigProviderImpl) GetCompileLocally() bool {
	return c.cfg.CompileLocally
}

func (c *ConfigProviderImpl) GetAckTimeout() time.Duration {
	return c.cfg.AckTimeout
}

func (c *ConfigProviderImpl) GetReconnectDelay() time.Duration {
	return c.cfg.ReconnectDelay
}

func (c *ConfigProviderImpl) GetLogLevel() string {
	return c.cfg.LogLevel
}

// =============================================================================
// Logger Implementation
// =============================================================================

type LoggerImpl struct {
	logger *logrus.Logger
}

func NewLogger(level string) interfaces.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return &LoggerImpl{logger: logger}
}

// NewLoggerWithOutput 출력 대상을 지정한 로거 (테스트에서 io.Discard)
func NewLoggerWithOutput(level string, w io.Writer) interfaces.Logger {
	l := NewLogger(level).(*LoggerImpl)
	l.logger.SetOutput(w)
	return l
}

func (l *LoggerImpl) Debug(args ...interface{}) {
	l.logger.Debug(args...)
}

func (l *LoggerImpl) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *LoggerImpl) Info(args ...interface{}) {
	l.logger.Info(args...)
}

func (l *LoggerImpl) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *LoggerImpl) Warn(args ...interface{}) {
	l.logger.Warn(args...)
}

func (l *LoggerImpl) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *LoggerImpl) Error(args ...interface{}) {
	l.logger.Error(args...)
}

func (l *LoggerImpl) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *LoggerImpl) Fatal(args ...interface{}) {
	l.logger.Fatal(args...)
}

func (l *LoggerImpl) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}

// =============================================================================
// ID Generator Implementation
// =============================================================================

type UniqueIDGeneratorImpl struct{}

func NewUniqueIDGenerator() interfaces.UniqueIDGenerator {
	return &UniqueIDGeneratorImpl{}
}

func (u *UniqueIDGeneratorImpl) GenerateUniqueID() string {
	return uuid.NewString()
}
