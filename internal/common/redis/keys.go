// internal/common/redis/keys.go
package redis

import "fmt"

// Redis Key Patterns Redis 키 패턴 상수
const (
	// 실행 중인 run 텔레메트리 (hash)
	RunTelemetryPattern = "robot:run:%s"

	// 최근 로봇 위치
	RobotLocationKey = "robot:location"

	// 최근 run id
	CurrentRunKey = "robot:run:current"
)

// Hash fields 텔레메트리 hash 필드
const (
	FieldLocation = "location"
	FieldStatus   = "status"
	FieldMode     = "mode"
	FieldSuccess  = "success"
	FieldFailure  = "failure"
	FieldLastInfo = "last_general"
	FieldLastErr  = "last_error"
)

// KeyGenerator Redis 키 생성기
type KeyGenerator struct{}

// NewKeyGenerator 새 키 생성기 생성
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// RunTelemetry run 텔레메트리 키 생성
func (k *KeyGenerator) RunTelemetry(runID string) string {
	return fmt.Sprintf(RunTelemetryPattern, runID)
}

// 전역 키 생성기 인스턴스
var Keys = NewKeyGenerator()

// RunTelemetry run 텔레메트리 키 생성
func RunTelemetry(runID string) string {
	return Keys.RunTelemetry(runID)
}
