// internal/interfaces/services.go
package interfaces

import (
	"context"
	"time"

	"robot-pipeline/internal/models"
)

// Planner 경로 계획 서비스 인터페이스
type Planner interface {
	Status(ctx context.Context) error
	Plan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error)
	Stitch(ctx context.Context) error
}

// Vision 이미지 인식 인터페이스
type Vision interface {
	Capture(ctx context.Context, obstacleID int, lateral models.Lateral) (models.ImageRecPayload, error)
}

// TelemetryObserver 송신 제어 메시지 관찰자. 호출자를 블록하지 않아야 함
type TelemetryObserver interface {
	Observe(runID string, msg models.ControlMessage)
}

// TelemetrySink 송신 제어 메시지를 복제 받는 대상
type TelemetrySink interface {
	Name() string
	Publish(ctx context.Context, runID string, msg models.ControlMessage) error
}

// CacheService Redis 캐시 관련 서비스 인터페이스
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	HSet(ctx context.Context, key, field string, value interface{}) error

	// Pipeline operations
	Pipeline() CachePipeline
}

// CachePipeline Redis 파이프라인 인터페이스
type CachePipeline interface {
	HSet(ctx context.Context, key, field string, value interface{}) error
	Exec(ctx context.Context) error
}

// MessagePublisher MQTT 메시지 발행 인터페이스
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// ConfigProvider 설정 제공 인터페이스
type ConfigProvider interface {
	GetInitialPose() models.WaypointState
	GetCompileLocally() bool
	GetAckTimeout() time.Duration
	GetReconnectDelay() time.Duration
	GetLogLevel() string
}

// Logger 로깅 인터페이스
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// UniqueIDGenerator 고유 ID 생성 인터페이스
type UniqueIDGenerator interface {
	GenerateUniqueID() string
}
