package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"robot-pipeline/internal/common/constants"
	"robot-pipeline/internal/interfaces"
	"robot-pipeline/internal/models"
)

// ErrPublisherDisconnected 브로커 연결이 끊긴 상태
var ErrPublisherDisconnected = errors.New("mqtt publisher not connected")

// MQTTMirror 각 제어 메시지를 <prefix>/<type> 토픽으로 발행
type MQTTMirror struct {
	publisher interfaces.MessagePublisher
	prefix    string
	qos       byte
	retained  *retainedCache
}

// NewMQTTMirror 새 MQTT 미러 생성
func NewMQTTMirror(publisher interfaces.MessagePublisher, prefix string) *MQTTMirror {
	return &MQTTMirror{publisher: publisher, prefix: prefix, retained: newRetainedCache(retainedHeartbeat)}
}

func (m *MQTTMirror) Name() string {
	return "mqtt"
}

// Topic 메시지 타입별 토픽
func (m *MQTTMirror) Topic(msgType string) string {
	return fmt.Sprintf("%s/%s", m.prefix, msgType)
}

func (m *MQTTMirror) Publish(ctx context.Context, runID string, msg models.ControlMessage) error {
	if !m.publisher.IsConnected() {
		return ErrPublisherDisconnected
	}

	topic := m.Topic(msg.Type)
	// 마지막 상태와 위치만 retained
	retained := msg.Type == constants.MessageTypeStatus || msg.Type == constants.MessageTypeLocation
	key := runID + "|" + string(msg.Value)
	if retained && !m.retained.ShouldSend(topic, key) {
		return nil
	}

	data, err := json.Marshal(NewEvent(runID, msg))
	if err != nil {
		return err
	}
	if err := m.publisher.Publish(topic, m.qos, retained, data); err != nil {
		return err
	}
	if retained {
		m.retained.Mark(topic, key)
	}
	return nil
}
