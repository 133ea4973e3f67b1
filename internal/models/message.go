package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"robot-pipeline/internal/common/constants"
)

// ControlMessage 태블릿 링크의 {type, value} 봉투
type ControlMessage struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Encode 한 줄 JSON으로 직렬화
func (m ControlMessage) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Text value가 문자열이면 그 내용을 반환
func (m ControlMessage) Text() (string, bool) {
	var s string
	if err := json.Unmarshal(m.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// LocationPayload 위치 텔레메트리
type LocationPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
	D int `json:"d"`
}

// ImageRecPayload 비전 인식 결과
type ImageRecPayload struct {
	ImageID    string `json:"image_id"`
	ObstacleID string `json:"obstacle_id"`
}

// Recognized 인식 결과가 NA가 아닌지 확인
func (p ImageRecPayload) Recognized() bool {
	id := strings.TrimSpace(p.ImageID)
	return id != "" && id != constants.NotRecognized
}

// ObstaclesPayload 장애물 설정 메시지 본문
type ObstaclesPayload struct {
	Obstacles []Obstacle `json:"obstacles"`
	Mode      string     `json:"mode"`
}

func newMessage(msgType string, value interface{}) ControlMessage {
	data, err := json.Marshal(value)
	if err != nil {
		// 이 패키지의 페이로드 타입은 항상 직렬화 가능
		panic(fmt.Sprintf("marshal %s message: %v", msgType, err))
	}
	return ControlMessage{Type: msgType, Value: data}
}

func NewGeneral(text string) ControlMessage {
	return newMessage(constants.MessageTypeGeneral, text)
}

func NewError(text string) ControlMessage {
	return newMessage(constants.MessageTypeError, text)
}

func NewLocation(loc LocationPayload) ControlMessage {
	return newMessage(constants.MessageTypeLocation, loc)
}

func NewImageRec(rec ImageRecPayload) ControlMessage {
	return newMessage(constants.MessageTypeImageRec, rec)
}

func NewMode(mode string) ControlMessage {
	return newMessage(constants.MessageTypeMode, mode)
}

func NewStatus(status string) ControlMessage {
	return newMessage(constants.MessageTypeStatus, status)
}

// ============================================================================
// Inbound messages
// ============================================================================

// InboundMessage 태블릿에서 받은 메시지 (ObstaclesMessage | ActionMessage)
type InboundMessage interface {
	inbound()
}

// ObstaclesMessage 장애물 설정
type ObstaclesMessage struct {
	Payload ObstaclesPayload
}

// ActionMessage 실행 액션 (현재 "start"만 존재)
type ActionMessage struct {
	Action string
}

func (ObstaclesMessage) inbound() {}
func (ActionMessage) inbound() {}

// ParseControlMessage 수신한 한 줄을 타입별 메시지로 변환
func ParseControlMessage(line string) (InboundMessage, error) {
	var envelope ControlMessage
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed control message: %v", ErrProtocol, err)
	}

	switch envelope.Type {
	case constants.MessageTypeObstacles:
		var payload ObstaclesPayload
		if err := json.Unmarshal(envelope.Value, &payload); err != nil {
			return nil, fmt.Errorf("%w: malformed obstacles payload: %v", ErrProtocol, err)
		}
		for _, obs := range payload.Obstacles {
			if !obs.Heading.Valid() {
				return nil, fmt.Errorf("%w: obstacle %d has invalid heading %d", ErrProtocol, obs.ID, int(obs.Heading))
			}
		}
		return ObstaclesMessage{Payload: payload}, nil

	case constants.MessageTypeAction:
		action, ok := envelope.Text()
		if !ok {
			return nil, fmt.Errorf("%w: action value must be a string", ErrProtocol)
		}
		if action != constants.ActionStart {
			return nil, fmt.Errorf("%w: unknown action %q", ErrProtocol, action)
		}
		return ActionMessage{Action: action}, nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrProtocol, envelope.Type)
	}
}
